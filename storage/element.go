// Package storage implements the Merkleized, hierarchical authenticated
// key-value store described in spec.md §4.1: subtrees of ordered byte-keyed
// elements (items, references, nested trees, sum-items), batched
// transactional application, deterministic root hashing, and proof
// generation.
//
// The design generalizes two things the teacher repository does
// separately: core/merkle_tree_operations.go's flat binary Merkle tree
// (hashing scheme, proof shape) and core/storage.go's StateRW-shaped
// get/set/delete/iterate contract (now backed by real subtrees instead of
// a flat map). It follows the same node-per-item "Merkle search tree"
// construction read out of original_source's grove_operations.rs (GroveDB
// calls its per-subtree structure a "merk": a balanced binary search tree
// over sorted keys where every internal node also holds a live key/value).
package storage

import "fmt"

// ElementKind tags the variant a stored Element holds.
type ElementKind uint8

const (
	KindItem ElementKind = iota
	KindReference
	KindTree
	KindSumItem
)

func (k ElementKind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindReference:
		return "reference"
	case KindTree:
		return "tree"
	case KindSumItem:
		return "sum_item"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// StorageFlags travels with every stored element and records who paid for
// it and when, so the refund engine (fees package) can compute age-based
// refunds without a side index (spec.md §4.1 "storage flags").
type StorageFlags struct {
	OwnerIdentityID  [32]byte
	EpochCreated     uint16
	EpochUpdatedLast uint16
}

// Element is a stored value. Exactly one of the payload fields is
// meaningful, selected by Kind.
type Element struct {
	Kind ElementKind

	// Item payload.
	ItemValue []byte

	// Reference payload: a symbolic path to another element, followed
	// transparently on read and counted once for proof purposes (spec.md
	// §4.1).
	ReferencePath [][]byte
	ReferenceKey  []byte

	// Tree payload: a nested subtree. Never serialized by value; the
	// Subtree pointer is the actual nested store.
	Tree *Subtree

	// SumItem payload: an item that additionally carries a signed integer
	// contributing to its subtree's aggregate sum.
	SumValue int64
}

// NewItem constructs an Item element.
func NewItem(value []byte) Element { return Element{Kind: KindItem, ItemValue: value} }

// NewReference constructs a Reference element pointing at (path, key).
func NewReference(path [][]byte, key []byte) Element {
	return Element{Kind: KindReference, ReferencePath: path, ReferenceKey: key}
}

// NewSumItem constructs a SumItem element carrying value.
func NewSumItem(value []byte, sum int64) Element {
	return Element{Kind: KindSumItem, ItemValue: value, SumValue: sum}
}

// NewTree constructs a Tree element wrapping a fresh empty subtree.
func NewTree(isSumTree bool) Element {
	return Element{Kind: KindTree, Tree: NewSubtree(isSumTree)}
}

// valueBytes returns the byte payload hashed into the element's kv-hash: the
// item value for Item/SumItem, the encoded path+key for References, and
// nothing (the nested root hash is used instead) for Tree.
func (e Element) valueBytes() []byte {
	switch e.Kind {
	case KindItem, KindSumItem:
		return e.ItemValue
	case KindReference:
		b := make([]byte, 0, len(e.ReferenceKey)+8)
		for _, seg := range e.ReferencePath {
			b = append(b, seg...)
			b = append(b, 0)
		}
		b = append(b, e.ReferenceKey...)
		return b
	case KindTree:
		if e.Tree == nil {
			return nil
		}
		h := e.Tree.RootHash()
		return h[:]
	default:
		return nil
	}
}
