package storage

import "fmt"

// AncestorStep records one level of a proof's walk from the proven node
// up to the subtree root: the sibling hash not taken by the proven path,
// which side it sits on, and the opaque combined kv-hash of the ancestor
// node itself (the verifier never learns the ancestor's plaintext key or
// value, only that some key/value hashed to this).
type AncestorStep struct {
	SiblingHash  [32]byte
	SiblingLeft  bool
	KVHash       [32]byte
	SiblingSum   int64 // only meaningful when the subtree is a sum tree
	AncestorSum  int64 // node's own SumItem contribution, 0 if not a SumItem
}

// Opening is a single-key inclusion proof within one subtree.
type Opening struct {
	Key     []byte
	Element Element
	Found   bool

	// Child hashes/sums of the proven node itself, needed to recompute its
	// combined hash before folding in the ancestor steps.
	LeftHash  [32]byte
	RightHash [32]byte
	LeftSum   int64
	RightSum  int64

	Ancestors []AncestorStep // ordered from the proven node's parent up to the root
}

// Proof bundles the subtree's current root hash with one or more openings,
// letting a verifier without access to the underlying store confirm
// membership (or absence) of specific keys against a previously trusted
// root hash (spec.md §4.1 Prove/verify).
type Proof struct {
	Root      [32]byte
	RootSum   int64
	Openings  []Opening
	IsSumTree bool
}

// Prove builds an inclusion/absence proof for the given keys against the
// subtree's current state.
func (s *Subtree) Prove(keys [][]byte) Proof {
	root := s.ensureBuilt()
	p := Proof{Root: root.Hash(), RootSum: root.Sum(), IsSumTree: s.IsSumTree()}
	for _, k := range keys {
		node, path := root.find(k)
		op := Opening{Key: k}
		if node != nil {
			op.Found = true
			op.Element = node.element
			op.LeftHash = node.left.Hash()
			op.RightHash = node.right.Hash()
			op.LeftSum = node.left.Sum()
			op.RightSum = node.right.Sum()
		}
		// Walk the recorded path from root down to (not including) the
		// terminal node, then reverse it so ancestors are ordered bottom-up
		// for verification.
		for i := len(path) - 1; i >= 0; i-- {
			step := path[i]
			var sibHash [32]byte
			var sibSum int64
			siblingLeft := !step.wentLeft
			if step.wentLeft {
				sibHash, sibSum = step.node.right.Hash(), step.node.right.Sum()
			} else {
				sibHash, sibSum = step.node.left.Hash(), step.node.left.Sum()
			}
			ownSum := int64(0)
			if step.node.element.Kind == KindSumItem {
				ownSum = step.node.element.SumValue
			}
			op.Ancestors = append(op.Ancestors, AncestorStep{
				SiblingHash: sibHash,
				SiblingLeft: siblingLeft,
				KVHash:      kvHash(step.node.key, step.node.element),
				SiblingSum:  sibSum,
				AncestorSum: ownSum,
			})
		}
		p.Openings = append(p.Openings, op)
	}
	return p
}

// Verify recomputes the root hash (and, for sum trees, the root sum)
// implied by a single opening and checks it against expectedRoot. It does
// not require access to the subtree at all, only the proof.
func Verify(expectedRoot [32]byte, op Opening, isSumTree bool) (bool, error) {
	var kv [32]byte
	if op.Found {
		kv = kvHash(op.Key, op.Element)
	} else if len(op.Ancestors) == 0 {
		// Absence in an empty subtree: nothing to check beyond root==zero.
		return expectedRoot == zeroHash, nil
	} else {
		return false, fmt.Errorf("storage: absence proofs for non-empty subtrees are not supported")
	}

	cur := kv
	curSum := int64(0)
	if op.Element.Kind == KindSumItem {
		curSum = op.Element.SumValue
	}
	var nodeHash [32]byte
	var nodeSum int64
	if isSumTree {
		nodeSum = curSum + op.LeftSum + op.RightSum
		nodeHash = combineSumNode(op.LeftHash, cur, op.RightHash, nodeSum)
	} else {
		nodeHash = combineNode(op.LeftHash, cur, op.RightHash)
	}

	for _, step := range op.Ancestors {
		var left, right [32]byte
		var leftSum, rightSum int64
		if step.SiblingLeft {
			left, leftSum = step.SiblingHash, step.SiblingSum
			right, rightSum = nodeHash, nodeSum
		} else {
			left, leftSum = nodeHash, nodeSum
			right, rightSum = step.SiblingHash, step.SiblingSum
		}
		if isSumTree {
			nodeSum = step.AncestorSum + leftSum + rightSum
			nodeHash = combineSumNode(left, step.KVHash, right, nodeSum)
		} else {
			nodeHash = combineNode(left, step.KVHash, right)
		}
	}
	return nodeHash == expectedRoot, nil
}
