package hasher

// ZeroBytes returns the roots of the empty subtrees for levels 0..height.
//
// Level 0 is the all zero leaf, level i is HashPair(z[i-1], z[i-1]). The root
// of an empty tree of the given height is the last element.
func ZeroBytes(h Hasher, height uint8) ([][32]byte, error) {
	if height > MaxHeight {
		return nil, ErrHeightTooLarge
	}
	zeros := make([][32]byte, int(height)+1)
	for i := 1; i <= int(height); i++ {
		z, err := HashPair(h, zeros[i-1], zeros[i-1])
		if err != nil {
			return nil, err
		}
		zeros[i] = z
	}
	return zeros, nil
}

// SingleLeafRoot returns the root of a tree of the given height whose only
// non zero leaf is leaf, stored at index 0.
func SingleLeafRoot(h Hasher, height uint8, leaf [32]byte) ([32]byte, error) {
	zeros, err := ZeroBytes(h, height)
	if err != nil {
		return [32]byte{}, err
	}
	node := leaf
	for i := 0; i < int(height); i++ {
		node, err = HashPair(h, node, zeros[i])
		if err != nil {
			return [32]byte{}, err
		}
	}
	return node, nil
}
