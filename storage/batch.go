package storage

import (
	"bytes"
	"sort"
)

// OpKind tags a batched operation.
type OpKind uint8

const (
	OpInsert OpKind = iota
	OpInsertIfNotExists
	OpReplace
	OpDelete
)

// Op is one operation queued into a Batch.
type Op struct {
	Path    [][]byte
	Key     []byte
	Kind    OpKind
	Element Element
}

// Batch accumulates operations for atomic application. Grounded on the
// teacher's ledger append-then-apply pattern (core/ledger.go's pending
// transaction queue applied in AddBlock), generalized to storage
// mutations instead of transfers.
type Batch struct {
	ops []Op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch { return &Batch{} }

func (b *Batch) Insert(path [][]byte, key []byte, e Element) {
	b.ops = append(b.ops, Op{Path: path, Key: key, Kind: OpInsert, Element: e})
}

func (b *Batch) InsertIfNotExists(path [][]byte, key []byte, e Element) {
	b.ops = append(b.ops, Op{Path: path, Key: key, Kind: OpInsertIfNotExists, Element: e})
}

func (b *Batch) Replace(path [][]byte, key []byte, e Element) {
	b.ops = append(b.ops, Op{Path: path, Key: key, Kind: OpReplace, Element: e})
}

func (b *Batch) Delete(path [][]byte, key []byte) {
	b.ops = append(b.ops, Op{Path: path, Key: key, Kind: OpDelete})
}

func (b *Batch) Len() int { return len(b.ops) }

// sortedOps returns the batch's operations in the deterministic order
// spec.md §4.1 requires for ApplyBatch: ascending by path, then by key,
// then by operation class (deletes before inserts/replaces at the same
// path/key, so a delete-then-reinsert of the same key within one batch has
// an unambiguous outcome regardless of the order the caller queued them
// in).
func (b *Batch) sortedOps() []Op {
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	sort.SliceStable(out, func(i, j int) bool {
		if c := comparePath(out[i].Path, out[j].Path); c != 0 {
			return c < 0
		}
		if c := bytes.Compare(out[i].Key, out[j].Key); c != 0 {
			return c < 0
		}
		return opClass(out[i].Kind) < opClass(out[j].Kind)
	})
	return out
}

func opClass(k OpKind) int {
	if k == OpDelete {
		return 0
	}
	return 1
}

func comparePath(a, b [][]byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := bytes.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// ApplyBatch applies every queued operation to the store in deterministic
// order. On the first failing operation, ApplyBatch stops and returns the
// error; operations already applied are NOT rolled back — callers that
// need all-or-nothing semantics must apply the batch to a Transaction
// (transaction.go) and Rollback on error instead.
func (g *GroveStore) ApplyBatch(b *Batch) error {
	for _, op := range b.sortedOps() {
		var err error
		switch op.Kind {
		case OpInsert:
			err = g.Insert(op.Path, op.Key, op.Element)
		case OpInsertIfNotExists:
			err = g.InsertIfNotExists(op.Path, op.Key, op.Element)
		case OpReplace:
			err = g.Replace(op.Path, op.Key, op.Element)
		case OpDelete:
			err = g.Delete(op.Path, op.Key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
