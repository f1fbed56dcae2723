package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// KVStore is the capability interface block executors and query handlers
// depend on instead of the concrete GroveStore, mirroring core/storage.go's
// StateRW-shaped contract generalized to element-typed reads/writes.
type KVStore interface {
	Get(path [][]byte, key []byte) (Element, error)
	Insert(path [][]byte, key []byte, e Element) error
	Delete(path [][]byte, key []byte) error
	ApplyBatch(b *Batch) error
	RootHash() [32]byte
}

var _ KVStore = (*GroveStore)(nil)

// walRecord is the on-disk shape of one durable batch append, replayed in
// order to reconstruct a GroveStore after a restart.
type walRecord struct {
	Path    [][]byte `json:"path"`
	Key     []byte   `json:"key"`
	Kind    OpKind   `json:"kind"`
	Element walElement `json:"element"`
}

// walElement is Element's JSON wire shape. Element itself is not directly
// marshalable because its Tree field holds live pointers; walElement
// instead snapshots only the scalar payload relevant to leaf storage
// (nested Tree elements are represented by their own empty-tree insert
// record followed by their children's records).
type walElement struct {
	Kind          ElementKind `json:"kind"`
	ItemValue     []byte      `json:"item_value,omitempty"`
	ReferencePath [][]byte    `json:"reference_path,omitempty"`
	ReferenceKey  []byte      `json:"reference_key,omitempty"`
	SumValue      int64       `json:"sum_value,omitempty"`
	IsSumTree     bool        `json:"is_sum_tree,omitempty"`
}

func toWalElement(e Element) walElement {
	w := walElement{Kind: e.Kind, ItemValue: e.ItemValue, ReferencePath: e.ReferencePath, ReferenceKey: e.ReferenceKey, SumValue: e.SumValue}
	if e.Kind == KindTree && e.Tree != nil {
		w.IsSumTree = e.Tree.IsSumTree()
	}
	return w
}

func (w walElement) toElement() Element {
	if w.Kind == KindTree {
		return NewTree(w.IsSumTree)
	}
	return Element{Kind: w.Kind, ItemValue: w.ItemValue, ReferencePath: w.ReferencePath, ReferenceKey: w.ReferenceKey, SumValue: w.SumValue}
}

// DurableStore wraps a GroveStore with an append-only JSON WAL, grounded
// on core/ledger.go's replay-on-open pattern: every applied batch op is
// appended as one JSON line, and a fresh process replays the whole file
// before serving reads.
type DurableStore struct {
	*GroveStore
	walPath string
	walFile *os.File
	logger  *logrus.Logger
}

// OpenDurableStore opens (creating if absent) the WAL at walPath and
// replays it into a fresh GroveStore.
func OpenDurableStore(walPath string, logger *logrus.Logger) (*DurableStore, error) {
	f, err := os.OpenFile(walPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("storage: open WAL: %w", err)
	}
	store := NewGroveStore()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var rec walRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("storage: WAL unmarshal: %w", err)
		}
		if err := applyRecord(store, rec); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("storage: WAL replay: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("storage: WAL scan: %w", err)
	}

	logger.Infof("storage: durable store ready, wal=%s root=%x", walPath, store.RootHash())
	return &DurableStore{GroveStore: store, walPath: walPath, walFile: f, logger: logger}, nil
}

func applyRecord(store *GroveStore, rec walRecord) error {
	switch rec.Kind {
	case OpDelete:
		return store.Delete(rec.Path, rec.Key)
	case OpInsertIfNotExists:
		return store.InsertIfNotExists(rec.Path, rec.Key, rec.Element.toElement())
	case OpReplace:
		return store.Replace(rec.Path, rec.Key, rec.Element.toElement())
	default:
		return store.Insert(rec.Path, rec.Key, rec.Element.toElement())
	}
}

// ApplyBatch applies b to the underlying store and durably appends every
// op to the WAL before returning. If any operation fails, already-applied
// ops are NOT rewound — callers that need atomicity should apply through
// a Transaction and only call ApplyBatch with the transaction's resulting
// batch once validated.
func (d *DurableStore) ApplyBatch(b *Batch) error {
	ops := b.sortedOps()
	enc := json.NewEncoder(d.walFile)
	for _, op := range ops {
		var err error
		switch op.Kind {
		case OpInsert:
			err = d.GroveStore.Insert(op.Path, op.Key, op.Element)
		case OpInsertIfNotExists:
			err = d.GroveStore.InsertIfNotExists(op.Path, op.Key, op.Element)
		case OpReplace:
			err = d.GroveStore.Replace(op.Path, op.Key, op.Element)
		case OpDelete:
			err = d.GroveStore.Delete(op.Path, op.Key)
		}
		if err != nil {
			return err
		}
		rec := walRecord{Path: op.Path, Key: op.Key, Kind: op.Kind, Element: toWalElement(op.Element)}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("storage: write WAL: %w", err)
		}
	}
	return d.walFile.Sync()
}

// Close syncs and closes the underlying WAL file.
func (d *DurableStore) Close() error {
	_ = d.walFile.Sync()
	return d.walFile.Close()
}
