package storage

import (
	"bytes"
	"fmt"

	"synnergy-platform/core"
)

// The storage layer's errors are core's, so callers can match either name.
var (
	ErrNotFound      = core.ErrNotFound
	ErrInvalidState  = core.ErrInvalidState
	ErrAlreadyExists = core.ErrAlreadyExists
)

// maxReferenceHops bounds reference resolution so a misconfigured or
// malicious reference cycle cannot hang a read (spec.md §4.1 "references
// are followed transparently on read").
const maxReferenceHops = 8

// GroveStore is the top-level Merkleized store: a root Subtree whose
// elements are themselves Tree elements for each named top-level
// collection (spec.md §3's Identities, DataContracts, Documents, Tokens,
// Balances, Pools and friends), addressed by a path of byte-string keys
// descending through nested Tree elements. Grounded on core/storage.go's
// StateRW contract (get/set/delete/iterate under a single lock) but now
// backed by real nested subtrees instead of one flat map.
type GroveStore struct {
	root  *Subtree
	cache *elementCache
}

// NewGroveStore creates an empty store with a fresh non-sum root subtree.
func NewGroveStore() *GroveStore {
	return &GroveStore{root: NewSubtree(false), cache: newElementCache(0)}
}

// navigate walks path from the root, descending through Tree elements. If
// create is true, missing intermediate Tree elements are created as
// plain (non-sum) trees — callers that need a sum tree at a given path
// must create it explicitly via InsertTree.
func (g *GroveStore) navigate(path [][]byte, create bool) (*Subtree, error) {
	cur := g.root
	for _, seg := range path {
		e, ok := cur.Get(seg)
		if !ok {
			if !create {
				return nil, ErrNotFound
			}
			t := NewTree(false)
			if err := cur.Insert(seg, t); err != nil {
				return nil, err
			}
			cur = t.Tree
			continue
		}
		if e.Kind != KindTree {
			return nil, fmt.Errorf("storage: path segment %q is not a tree: %w", seg, ErrInvalidState)
		}
		cur = e.Tree
	}
	return cur, nil
}

// InsertTree creates a (possibly sum) tree element at path/key, overwriting
// any existing element there.
func (g *GroveStore) InsertTree(path [][]byte, key []byte, isSumTree bool) (*Subtree, error) {
	parent, err := g.navigate(path, true)
	if err != nil {
		return nil, err
	}
	e := NewTree(isSumTree)
	if err := parent.Insert(key, e); err != nil {
		return nil, err
	}
	g.cache.invalidate(path, key)
	return e.Tree, nil
}

// Insert stores element at path/key, creating intermediate trees as
// needed.
func (g *GroveStore) Insert(path [][]byte, key []byte, e Element) error {
	parent, err := g.navigate(path, true)
	if err != nil {
		return err
	}
	if err := parent.Insert(key, e); err != nil {
		return err
	}
	g.cache.invalidate(path, key)
	return nil
}

// InsertIfNotExists is the non-clobbering variant of Insert.
func (g *GroveStore) InsertIfNotExists(path [][]byte, key []byte, e Element) error {
	parent, err := g.navigate(path, true)
	if err != nil {
		return err
	}
	if err := parent.InsertIfNotExists(key, e); err != nil {
		return err
	}
	g.cache.invalidate(path, key)
	return nil
}

// Replace updates an existing element, failing if absent.
func (g *GroveStore) Replace(path [][]byte, key []byte, e Element) error {
	parent, err := g.navigate(path, false)
	if err != nil {
		return err
	}
	if err := parent.Replace(key, e); err != nil {
		return err
	}
	g.cache.invalidate(path, key)
	return nil
}

// Delete removes path/key, failing if absent.
func (g *GroveStore) Delete(path [][]byte, key []byte) error {
	parent, err := g.navigate(path, false)
	if err != nil {
		return err
	}
	if err := parent.Delete(key); err != nil {
		return err
	}
	g.cache.invalidate(path, key)
	return nil
}

// Get resolves path/key, transparently following Reference elements up to
// maxReferenceHops. Each hop is served from the decoded-element cache when
// present, saving a full navigate() descent through every intermediate
// Tree element on repeated reads of the same (path, key) — a real cost for
// query-server hot paths like identity balance lookups, which otherwise
// re-walk the same subtree chain on every request.
func (g *GroveStore) Get(path [][]byte, key []byte) (Element, error) {
	for hop := 0; ; hop++ {
		if hop > maxReferenceHops {
			return Element{}, fmt.Errorf("storage: reference chain too deep at %v/%q", path, key)
		}
		e, ok := g.cache.get(path, key)
		if !ok {
			parent, err := g.navigate(path, false)
			if err != nil {
				return Element{}, err
			}
			e, ok = parent.Get(key)
			if !ok {
				return Element{}, ErrNotFound
			}
			g.cache.put(path, key, e)
		}
		if e.Kind != KindReference {
			return e, nil
		}
		path, key = e.ReferencePath, e.ReferenceKey
	}
}

// HasRaw reports whether path/key holds any element, without following
// references.
func (g *GroveStore) HasRaw(path [][]byte, key []byte) bool {
	parent, err := g.navigate(path, false)
	if err != nil {
		return false
	}
	return parent.HasRaw(key)
}

// RootHash returns the root subtree's current hash: the authenticated
// digest of the entire store.
func (g *GroveStore) RootHash() [32]byte {
	return g.root.RootHash()
}

// Subtree returns the live Subtree at path for direct operations (e.g.
// Keys(), Sum(), Prove()), failing if any segment is missing or not a
// tree.
func (g *GroveStore) Subtree(path [][]byte) (*Subtree, error) {
	return g.navigate(path, false)
}

// Prove builds an inclusion proof for keys within the subtree at path.
func (g *GroveStore) Prove(path [][]byte, keys [][]byte) (Proof, error) {
	sub, err := g.navigate(path, false)
	if err != nil {
		return Proof{}, err
	}
	return sub.Prove(keys), nil
}

func pathEqual(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
