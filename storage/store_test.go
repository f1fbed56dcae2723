package storage

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func path(segs ...string) [][]byte {
	out := make([][]byte, len(segs))
	for i, s := range segs {
		out[i] = []byte(s)
	}
	return out
}

func TestGroveStoreInsertGetDelete(t *testing.T) {
	g := NewGroveStore()
	if err := g.Insert(path("identities"), []byte("alice"), NewItem([]byte("balance:10"))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	e, err := g.Get(path("identities"), []byte("alice"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(e.ItemValue, []byte("balance:10")) {
		t.Fatalf("got %q", e.ItemValue)
	}
	if err := g.Delete(path("identities"), []byte("alice")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := g.Get(path("identities"), []byte("alice")); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGroveStoreReferenceFollowed(t *testing.T) {
	g := NewGroveStore()
	if err := g.Insert(path("documents"), []byte("doc1"), NewItem([]byte("payload"))); err != nil {
		t.Fatalf("insert item: %v", err)
	}
	ref := NewReference(path("documents"), []byte("doc1"))
	if err := g.Insert(path("indexes", "by_owner"), []byte("alice"), ref); err != nil {
		t.Fatalf("insert ref: %v", err)
	}
	e, err := g.Get(path("indexes", "by_owner"), []byte("alice"))
	if err != nil {
		t.Fatalf("get through reference: %v", err)
	}
	if !bytes.Equal(e.ItemValue, []byte("payload")) {
		t.Fatalf("reference did not resolve to target payload, got %q", e.ItemValue)
	}
}

// TestRootHashDeterministicAcrossInsertOrder exercises the testable
// property that root hash is a pure function of the committed
// (path,key,element) set, independent of the order operations were
// applied in.
func TestRootHashDeterministicAcrossInsertOrder(t *testing.T) {
	build := func(order []string) [32]byte {
		g := NewGroveStore()
		for _, k := range order {
			if err := g.Insert(path("documents"), []byte(k), NewItem([]byte("v-"+k))); err != nil {
				t.Fatalf("insert %s: %v", k, err)
			}
		}
		return g.RootHash()
	}
	h1 := build([]string{"a", "b", "c", "d", "e"})
	h2 := build([]string{"e", "c", "a", "d", "b"})
	if h1 != h2 {
		t.Fatalf("root hash depends on insertion order: %x != %x", h1, h2)
	}
}

func TestApplyBatchDeterministicOrdering(t *testing.T) {
	g := NewGroveStore()
	if err := g.Insert(path("documents"), []byte("a"), NewItem([]byte("old"))); err != nil {
		t.Fatalf("seed: %v", err)
	}
	b := NewBatch()
	b.Delete(path("documents"), []byte("a"))
	b.Insert(path("documents"), []byte("a"), NewItem([]byte("new")))
	if err := g.ApplyBatch(b); err != nil {
		t.Fatalf("apply batch: %v", err)
	}
	e, err := g.Get(path("documents"), []byte("a"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(e.ItemValue, []byte("new")) {
		t.Fatalf("delete-then-insert in one batch should leave the reinsert, got %q", e.ItemValue)
	}
}

func TestSumTreeAggregatesAndRejectsNonSumItems(t *testing.T) {
	g := NewGroveStore()
	if _, err := g.InsertTree(nil, []byte("balances"), true); err != nil {
		t.Fatalf("insert sum tree: %v", err)
	}
	if err := g.Insert(path("balances"), []byte("alice"), NewSumItem([]byte{}, 100)); err != nil {
		t.Fatalf("insert sum item: %v", err)
	}
	if err := g.Insert(path("balances"), []byte("bob"), NewSumItem([]byte{}, 250)); err != nil {
		t.Fatalf("insert sum item: %v", err)
	}
	sub, err := g.Subtree(path("balances"))
	if err != nil {
		t.Fatalf("subtree: %v", err)
	}
	if got := sub.Sum(); got != 350 {
		t.Fatalf("sum = %d, want 350", got)
	}
	if err := g.Insert(path("balances"), []byte("carol"), NewItem([]byte("not a sum item"))); err == nil {
		t.Fatalf("expected error inserting a plain item into a sum tree")
	}
}

func TestProveVerifyRoundTrip(t *testing.T) {
	g := NewGroveStore()
	keys := []string{"alice", "bob", "carol", "dave", "erin"}
	for _, k := range keys {
		if err := g.Insert(path("identities"), []byte(k), NewItem([]byte("v-"+k))); err != nil {
			t.Fatalf("insert %s: %v", k, err)
		}
	}
	proof, err := g.Prove(path("identities"), [][]byte{[]byte("carol")})
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if len(proof.Openings) != 1 || !proof.Openings[0].Found {
		t.Fatalf("expected a found opening for carol")
	}
	ok, err := Verify(proof.Root, proof.Openings[0], proof.IsSumTree)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("proof failed to verify against root hash")
	}

	// Tampering with the root must invalidate the proof.
	badRoot := proof.Root
	badRoot[0] ^= 0xFF
	ok, err = Verify(badRoot, proof.Openings[0], proof.IsSumTree)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("proof verified against a tampered root")
	}
}

func TestTransactionIsolationAndCommit(t *testing.T) {
	g := NewGroveStore()
	if err := g.Insert(path("identities"), []byte("alice"), NewItem([]byte("v1"))); err != nil {
		t.Fatalf("seed: %v", err)
	}
	tx := g.StartTransaction()
	if err := tx.Store().Replace(path("identities"), []byte("alice"), NewItem([]byte("v2"))); err != nil {
		t.Fatalf("replace in tx: %v", err)
	}
	// Parent store unaffected until commit.
	e, _ := g.Get(path("identities"), []byte("alice"))
	if !bytes.Equal(e.ItemValue, []byte("v1")) {
		t.Fatalf("transaction leaked into parent store before commit")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	e, _ = g.Get(path("identities"), []byte("alice"))
	if !bytes.Equal(e.ItemValue, []byte("v2")) {
		t.Fatalf("commit did not apply, got %q", e.ItemValue)
	}
}

// TestGetCacheInvalidatedOnReplaceAndDelete guards against the decoded-
// element cache serving a stale Element after a key it already cached is
// overwritten or removed.
func TestGetCacheInvalidatedOnReplaceAndDelete(t *testing.T) {
	g := NewGroveStore()
	if err := g.Insert(path("identities"), []byte("alice"), NewItem([]byte("v1"))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if e, err := g.Get(path("identities"), []byte("alice")); err != nil || !bytes.Equal(e.ItemValue, []byte("v1")) {
		t.Fatalf("get v1: %v %q", err, e.ItemValue)
	}

	if err := g.Replace(path("identities"), []byte("alice"), NewItem([]byte("v2"))); err != nil {
		t.Fatalf("replace: %v", err)
	}
	e, err := g.Get(path("identities"), []byte("alice"))
	if err != nil {
		t.Fatalf("get after replace: %v", err)
	}
	if !bytes.Equal(e.ItemValue, []byte("v2")) {
		t.Fatalf("cache served stale value after replace: got %q, want v2", e.ItemValue)
	}

	if err := g.Delete(path("identities"), []byte("alice")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := g.Get(path("identities"), []byte("alice")); err != ErrNotFound {
		t.Fatalf("cache served a deleted key, err = %v, want ErrNotFound", err)
	}
}

// TestTransactionCommitDropsParentCache guards against Commit leaving the
// parent's cache populated with pre-commit elements when the transaction
// replaced the root wholesale.
func TestTransactionCommitDropsParentCache(t *testing.T) {
	g := NewGroveStore()
	if err := g.Insert(path("identities"), []byte("alice"), NewItem([]byte("v1"))); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := g.Get(path("identities"), []byte("alice")); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	tx := g.StartTransaction()
	if err := tx.Store().Replace(path("identities"), []byte("alice"), NewItem([]byte("v2"))); err != nil {
		t.Fatalf("replace in tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	e, err := g.Get(path("identities"), []byte("alice"))
	if err != nil {
		t.Fatalf("get after commit: %v", err)
	}
	if !bytes.Equal(e.ItemValue, []byte("v2")) {
		t.Fatalf("parent cache served a pre-commit value: got %q, want v2", e.ItemValue)
	}
}

func TestDurableStoreReplaysWAL(t *testing.T) {
	dir := t.TempDir()
	walPath := filepath.Join(dir, "store.wal")
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	d1, err := OpenDurableStore(walPath, logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b := NewBatch()
	b.Insert(path("documents"), []byte("doc1"), NewItem([]byte("payload")))
	if err := d1.ApplyBatch(b); err != nil {
		t.Fatalf("apply: %v", err)
	}
	wantRoot := d1.RootHash()
	if err := d1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	d2, err := OpenDurableStore(walPath, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d2.Close()
	if got := d2.RootHash(); got != wantRoot {
		t.Fatalf("root hash after replay = %x, want %x", got, wantRoot)
	}
	e, err := d2.Get(path("documents"), []byte("doc1"))
	if err != nil {
		t.Fatalf("get after replay: %v", err)
	}
	if !bytes.Equal(e.ItemValue, []byte("payload")) {
		t.Fatalf("payload mismatch after replay: %q", e.ItemValue)
	}
}
