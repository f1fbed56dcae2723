package storage

import "crypto/sha256"

// zeroHash is the sentinel combined for a nil child, exactly as the
// teacher's BuildMerkleTree pads an odd leaf by duplicating it — here we
// instead fix an explicit all-zero sentinel so an empty subtree's root is
// well defined and distinguishable from any real node.
var zeroHash = [32]byte{}

// kvHash hashes one element's identity: its kind, key, and value bytes.
// Grounded on the teacher's leaf hash (sha256.Sum256(leaf)) in
// merkle_tree_operations.go, generalized to cover the four element kinds.
func kvHash(key []byte, e Element) [32]byte {
	h := sha256.New()
	h.Write([]byte{byte(e.Kind)})
	writeLenPrefixed(h, key)
	writeLenPrefixed(h, e.valueBytes())
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// combineNode computes an internal merk node's hash from its left child
// hash, its own kv-hash, and its right child hash, in that fixed order
// (spec.md §4.1 "internal node hash combines left, self, right in a fixed
// order"). This is the BST generalization of the teacher's pairwise
// sha256(left || right) level combination.
func combineNode(left, kv, right [32]byte) [32]byte {
	h := sha256.New()
	h.Write(left[:])
	h.Write(kv[:])
	h.Write(right[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// combineSumNode folds a signed cumulative sum into the node hash for
// sum-tree nodes, so two subtrees with equal elements but different
// aggregate sums never collide on root hash.
func combineSumNode(left, kv, right [32]byte, sum int64) [32]byte {
	h := sha256.New()
	h.Write(left[:])
	h.Write(kv[:])
	h.Write(right[:])
	h.Write(encodeInt64(sum))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func writeLenPrefixed(h interface{ Write([]byte) (int, error) }, b []byte) {
	var lenBuf [8]byte
	n := len(b)
	for i := 0; i < 8; i++ {
		lenBuf[i] = byte(n >> (8 * i))
	}
	h.Write(lenBuf[:])
	h.Write(b)
}

func encodeInt64(v int64) []byte {
	u := uint64(v)
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
	return b
}
