package identity

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"

	"synnergy-platform/core"
	"synnergy-platform/storage"
)

// topLevel names the root-tree subtrees this package owns (spec.md §3
// "Root state tree"): Identities plus the two public-key-hash indices.
var (
	pathIdentities          = [][]byte{[]byte("Identities")}
	pathUniqueKeyHashes      = [][]byte{[]byte("UniquePublicKeyHashesToIdentities")}
	pathNonUniqueKeyHashes   = [][]byte{[]byte("NonUniqueKeyKeyHashesToIdentities")}
)

// Registry is the identity subtree's typed facade over a GroveStore,
// grounded on core/identity_verification.go's IdentityService: a
// namespace-prefixed ledger-backed registry, generalized here from a
// single verification flag per address into the full Identity record
// plus its key-hash secondary indices, and from a sync.Once global
// singleton into an explicit instance any caller can construct (block
// execution needs one registry per in-flight transaction snapshot, not
// one process-wide global).
type Registry struct {
	mu    sync.RWMutex
	store storage.KVStore
}

// NewRegistry wraps store for identity operations.
func NewRegistry(store storage.KVStore) *Registry {
	return &Registry{store: store}
}

func keyHash(pub []byte) []byte {
	h := sha256.Sum256(pub)
	return h[:]
}

// Create inserts a brand-new identity and indexes each of its keys'
// hashes, failing with core.ErrAlreadyExists if the ID is taken.
func (r *Registry) Create(id Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.Get(pathIdentities, id.ID.Bytes()); err == nil {
		return fmt.Errorf("identity: identity %s already exists: %w", id.ID, core.ErrAlreadyExists)
	}
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := r.store.Insert(pathIdentities, id.ID.Bytes(), storage.NewItem(raw)); err != nil {
		return err
	}
	for _, k := range id.Keys {
		if err := r.indexKey(id.ID, k); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) indexKey(owner core.Identifier, k PublicKey) error {
	h := keyHash(k.Data)
	ref := storage.NewReference(pathIdentities, owner.Bytes())
	// Unique index: authentication/critical keys are expected to be
	// globally unique; a collision is a consensus error the caller
	// surfaces as a uniqueness conflict (spec.md §7).
	if k.Purpose == PurposeAuthentication && k.SecurityLevel <= SecurityCritical {
		if err := r.store.Insert(pathUniqueKeyHashes, h, ref); err != nil {
			return fmt.Errorf("identity: index unique key hash: %w", err)
		}
		return nil
	}
	return r.store.Insert(pathNonUniqueKeyHashes, h, ref)
}

// Get loads an identity by ID.
func (r *Registry) Get(id core.Identifier) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, err := r.store.Get(pathIdentities, id.Bytes())
	if err != nil {
		return Identity{}, err
	}
	var out Identity
	if err := json.Unmarshal(e.ItemValue, &out); err != nil {
		return Identity{}, fmt.Errorf("identity: decode: %w", err)
	}
	return out, nil
}

// Save persists a mutated identity back to the store (replace semantics:
// the identity must already exist).
func (r *Registry) Save(id Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	b := storage.NewBatch()
	b.Replace(pathIdentities, id.ID.Bytes(), storage.NewItem(raw))
	return r.store.ApplyBatch(b)
}

// ResolveByKeyHash follows the public-key-hash index to the owning
// identity, the lookup spec.md §3's invariant "for every identity key
// hash entry, it resolves to a real identity" guards. GroveStore.Get
// follows the index's Reference element transparently, so a hit returns
// the target Identity's own encoded record directly.
func (r *Registry) ResolveByKeyHash(pub []byte) (Identity, error) {
	h := keyHash(pub)
	e, err := r.store.Get(pathUniqueKeyHashes, h)
	if err != nil {
		e, err = r.store.Get(pathNonUniqueKeyHashes, h)
		if err != nil {
			return Identity{}, core.ErrNotFound
		}
	}
	var out Identity
	if err := json.Unmarshal(e.ItemValue, &out); err != nil {
		return Identity{}, fmt.Errorf("identity: decode resolved identity: %w", err)
	}
	return out, nil
}
