package bloom

/*

# Bloom primitives for batched trees (single filter, in-place)

This package provides the membership prefilter owned by each batch of a
batched tree queue. The filter lives inside a preallocated region of the
tree's backing buffer and is never resized.

Each queue batch owns one filter. A value is inserted when it joins the
batch and the whole bitset is cleared once the batch's roots have been
superseded, so a filter is only ever written by inserts and one bulk clear.

## Answers

MaybeContainsV1 returning false is definite: the value was never inserted
since the last clear. Returning true means the value may have been
inserted. The queues reject a value on true, so a false positive refuses a
fresh value and no answer ever admits a double insert.

## Region layout

	+----------------------+  32B header (magic, version, params, counter)
	| HeaderV1             |
	+----------------------+  ceil(mBits/8) bitset bytes
	| bitset               |
	+----------------------+

Header fields are big endian:

	[0:4]   magic "BLM1"
	[4]     version
	[5]     bit order (LSB0)
	[6]     k, the number of bit positions per element
	[7]     reserved
	[8:12]  mBits
	[12:16] nInserted

## Indexing and bit numbering

Bit positions are derived by double hashing: h1, h2 are read from
SHA-256(0xB0 || elem) and position i is (h1 + i*h2) mod mBits. Bit j lives in
byte j>>3 at bit j&7, counting from the least significant bit.

## Saturation

An insert fails with ErrFull once (nInserted+1)*k exceeds mBits*ln2. Past that
fill ratio the false positive rate of the filter rises steeply, so the
capacity is treated as exhausted. MaxElementsV1 exposes the bound.

## API versioning

Functions are suffixed with the format version they implement (InitV1,
InsertV1, ...). An incompatible layout or hashing change is introduced as V2
side by side rather than by silently reinterpreting existing regions.

*/
