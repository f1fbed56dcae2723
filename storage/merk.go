package storage

import "bytes"

// merkNode is one node of a subtree's authenticated binary search tree
// ("merk", following original_source/rs-drive's grove_operations.rs
// terminology). Every node holds a live key/element — not just the
// leaves — built deterministically from a sorted key list by recursive
// bisection, so two independently constructed subtrees holding the same
// elements always produce the same tree shape and the same root hash
// regardless of insertion order (spec.md §8 "root hash is a pure function
// of the set of (path,key,element) triples currently committed").
type merkNode struct {
	key     []byte
	element Element
	left    *merkNode
	right   *merkNode

	hash      [32]byte
	sum       int64 // cumulative sum of this node and its subtree
	isSumTree bool
}

func (n *merkNode) Hash() [32]byte {
	if n == nil {
		return zeroHash
	}
	return n.hash
}

func (n *merkNode) Sum() int64 {
	if n == nil {
		return 0
	}
	return n.sum
}

// buildMerk constructs a merk tree from a key-sorted slice of (key,
// element) pairs. items must already be sorted ascending by key.
func buildMerk(items []kvPair, isSumTree bool) *merkNode {
	if len(items) == 0 {
		return nil
	}
	mid := len(items) / 2
	node := &merkNode{
		key:       items[mid].key,
		element:   items[mid].element,
		isSumTree: isSumTree,
	}
	node.left = buildMerk(items[:mid], isSumTree)
	node.right = buildMerk(items[mid+1:], isSumTree)

	selfSum := int64(0)
	if isSumTree && node.element.Kind == KindSumItem {
		selfSum = node.element.SumValue
	}
	node.sum = selfSum + node.left.Sum() + node.right.Sum()

	kv := kvHash(node.key, node.element)
	if isSumTree {
		node.hash = combineSumNode(node.left.Hash(), kv, node.right.Hash(), node.sum)
	} else {
		node.hash = combineNode(node.left.Hash(), kv, node.right.Hash())
	}
	return node
}

type kvPair struct {
	key     []byte
	element Element
}

// find locates the element stored under key, returning the path walked
// from the root (inclusive of the terminal node when found) for proof
// construction.
func (n *merkNode) find(key []byte) (*merkNode, []pathStep) {
	var path []pathStep
	cur := n
	for cur != nil {
		cmp := bytes.Compare(key, cur.key)
		if cmp == 0 {
			return cur, path
		}
		if cmp < 0 {
			path = append(path, pathStep{node: cur, wentLeft: true})
			cur = cur.left
		} else {
			path = append(path, pathStep{node: cur, wentLeft: false})
			cur = cur.right
		}
	}
	return nil, path
}

type pathStep struct {
	node     *merkNode
	wentLeft bool
}
