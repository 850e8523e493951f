package hasher

/*

# Tree hashing

Every digest stored by the batched tree is 32 bytes wide. The hasher package
provides the node hash used for the Merkle tree, the batch hash chains and the
proof public input commitments.

Three functions are supported and the choice is recorded in the tree header,
so a region is always re-opened with the hash it was created with:

  - KindSHA256: sha256(a || b || ...)
  - KindKeccak256: legacy keccak-256 (the ethereum variant)
  - KindMiMCBN254: MiMC over the BN254 scalar field. Each 32 byte input is
    reduced into the field before it is absorbed, so arbitrary byte strings
    are accepted. This is the hash to choose when the chunk proofs are produced
    by a BN254 circuit.

Inputs are always fixed width. Integer values (leaf indices, start indices)
are encoded with Uint64Bytes: big endian, right aligned in 32 bytes.
*/
