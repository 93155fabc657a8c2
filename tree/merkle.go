package tree

// Chunk merkleization over flat chunk sequences. The view layer computes
// roots through its backing nodes; these helpers provide the direct
// definition for padding-sensitive callers and for cross-checking.

// Merkleize computes the Merkle root of the chunk sequence padded with zero
// chunks up to the next power of two of limit. A limit of zero yields the
// zero chunk. The chunk count must not exceed the limit.
func Merkleize(chunks []Root, limit uint64) Root {
	if limit == 0 {
		return ZeroHash(0)
	}
	if uint64(len(chunks)) > limit {
		limit = uint64(len(chunks))
	}
	depth := CoverDepth(limit)
	return merkleizeLayer(chunks, depth)
}

// merkleizeLayer hashes chunks up a tree of the given depth, substituting
// cached zero hashes for the padded region instead of materializing it.
func merkleizeLayer(chunks []Root, depth uint8) Root {
	if len(chunks) == 0 {
		return ZeroHash(depth)
	}
	if depth == 0 {
		return chunks[0]
	}
	layer := make([]Root, len(chunks))
	copy(layer, chunks)
	for d := uint8(0); d < depth; d++ {
		odd := len(layer)%2 == 1
		if odd {
			layer = append(layer, ZeroHash(d))
		}
		half := len(layer) / 2
		for i := 0; i < half; i++ {
			layer[i] = Hash(layer[2*i], layer[2*i+1])
		}
		layer = layer[:half]
	}
	return layer[0]
}

// MixInLength mixes a content root with a length: Hash(root || u256_le(n)).
// This is the root rule for lists, byte lists and bitlists.
func MixInLength(root Root, length uint64) Root {
	return Hash(root, uint64Chunk(length))
}

// MixInSelector mixes a value root with a union selector:
// Hash(root || u256_le(selector)).
func MixInSelector(root Root, selector uint64) Root {
	return Hash(root, uint64Chunk(selector))
}

// uint64Chunk returns the little-endian value zero-padded to 32 bytes.
func uint64Chunk(v uint64) Root {
	var chunk Root
	for i := 0; i < 8; i++ {
		chunk[i] = byte(v >> (8 * i))
	}
	return chunk
}

// PackChunks splits serialized bytes into 32-byte chunks, zero-padding the
// last. Empty input yields a single zero chunk.
func PackChunks(data []byte) []Root {
	if len(data) == 0 {
		return []Root{{}}
	}
	n := (len(data) + 31) / 32
	chunks := make([]Root, n)
	for i := 0; i < n; i++ {
		start := i * 32
		end := min(start+32, len(data))
		copy(chunks[i][:], data[start:end])
	}
	return chunks
}
