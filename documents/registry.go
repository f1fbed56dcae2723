package documents

import (
	"encoding/json"
	"fmt"
	"sync"

	"synnergy-platform/contracts"
	"synnergy-platform/core"
	"synnergy-platform/storage"
)

// SetAttachment pins ref as a document's named attachment property,
// storing only the small BlobRef pointer in the GroveStore. Grounded on
// storage.NewBlobRefElement/DecodeBlobRef: the bytes themselves live in
// the blob gateway's content-addressed cache, never in the tree.
func (r *Registry) SetAttachment(contractID core.Identifier, typeName string, docID core.Identifier, property string, ref storage.BlobRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := storage.NewBlobRefElement(ref)
	if err != nil {
		return err
	}
	b := storage.NewBatch()
	b.Insert(AttachmentPath(contractID, typeName), attachmentKey(docID, property), e)
	return r.store.ApplyBatch(b)
}

// GetAttachment loads a document's previously pinned attachment.
func (r *Registry) GetAttachment(contractID core.Identifier, typeName string, docID core.Identifier, property string) (storage.BlobRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, err := r.store.Get(AttachmentPath(contractID, typeName), attachmentKey(docID, property))
	if err != nil {
		return storage.BlobRef{}, err
	}
	return storage.DecodeBlobRef(e)
}

// DeleteAttachment removes a document's pinned attachment pointer. The
// underlying blob is left in the gateway's cache; attachments are
// content-addressed and may be shared across documents.
func (r *Registry) DeleteAttachment(contractID core.Identifier, typeName string, docID core.Identifier, property string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Delete(AttachmentPath(contractID, typeName), attachmentKey(docID, property))
}

// Registry provides document CRUD against a GroveStore, maintaining each
// declared index as References alongside the primary record. Grounded on
// identity.Registry's key-hash secondary-index pattern (storage.Reference
// elements into a dedicated index subtree), generalized from a single
// fixed index to the contract's declared IndexDefinition list.
type Registry struct {
	mu    sync.RWMutex
	store storage.KVStore
}

// NewRegistry wraps store for document operations.
func NewRegistry(store storage.KVStore) *Registry {
	return &Registry{store: store}
}

// Create validates doc against schema, inserts its primary record, and
// populates every declared index. Fails with core.ErrAlreadyExists if the
// ID is taken, or with a uniqueness error if a unique index collides.
func (r *Registry) Create(doc Document, contract contracts.DataContract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema, ok := contract.DocumentType(doc.TypeName)
	if !ok {
		return fmt.Errorf("documents: contract %s declares no type %q", contract.ID, doc.TypeName)
	}
	if err := ValidateAgainstSchema(doc, schema); err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	primaryPath := PrimaryPath(doc.ContractID, doc.TypeName)
	b := storage.NewBatch()
	b.InsertIfNotExists(primaryPath, doc.ID.Bytes(), storage.NewItem(raw))

	for _, idx := range schema.Indices {
		key, err := IndexKey(doc, idx)
		if err != nil {
			return err
		}
		idxPath := IndexPath(doc.ContractID, doc.TypeName, idx.Name)
		ref := storage.NewReference(primaryPath, doc.ID.Bytes())
		if idx.Unique {
			if _, err := r.store.Get(idxPath, key); err == nil {
				return fmt.Errorf("documents: unique index %q violated for document %s: %w", idx.Name, doc.ID, core.ErrAlreadyExists)
			}
			b.InsertIfNotExists(idxPath, key, ref)
		} else {
			// Non-unique indices key by index-value||id so multiple documents
			// can share the same indexed value.
			b.InsertIfNotExists(idxPath, append(append([]byte{}, key...), doc.ID.Bytes()...), ref)
		}
	}

	return r.store.ApplyBatch(b)
}

// Get loads a document's primary record.
func (r *Registry) Get(contractID core.Identifier, typeName string, id core.Identifier) (Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, err := r.store.Get(PrimaryPath(contractID, typeName), id.Bytes())
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(e.ItemValue, &doc); err != nil {
		return Document{}, fmt.Errorf("documents: decode: %w", err)
	}
	return doc, nil
}

// Replace overwrites an existing document's primary record and reconciles
// its indices against the previous revision, requiring schema.Mutable.
func (r *Registry) Replace(doc Document, contract contracts.DataContract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema, ok := contract.DocumentType(doc.TypeName)
	if !ok {
		return fmt.Errorf("documents: contract %s declares no type %q", contract.ID, doc.TypeName)
	}
	if !schema.Mutable {
		return fmt.Errorf("documents: type %q is immutable: %w", doc.TypeName, core.ErrInvalidState)
	}
	if err := ValidateAgainstSchema(doc, schema); err != nil {
		return err
	}

	prev, err := r.Get(doc.ContractID, doc.TypeName, doc.ID)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	primaryPath := PrimaryPath(doc.ContractID, doc.TypeName)
	b := storage.NewBatch()
	b.Replace(primaryPath, doc.ID.Bytes(), storage.NewItem(raw))

	for _, idx := range schema.Indices {
		oldKey, err := IndexKey(prev, idx)
		if err != nil {
			return err
		}
		newKey, err := IndexKey(doc, idx)
		if err != nil {
			return err
		}
		idxPath := IndexPath(doc.ContractID, doc.TypeName, idx.Name)
		ref := storage.NewReference(primaryPath, doc.ID.Bytes())
		if idx.Unique {
			if string(oldKey) != string(newKey) {
				b.Delete(idxPath, oldKey)
				if _, err := r.store.Get(idxPath, newKey); err == nil {
					return fmt.Errorf("documents: unique index %q violated for document %s: %w", idx.Name, doc.ID, core.ErrAlreadyExists)
				}
				b.InsertIfNotExists(idxPath, newKey, ref)
			}
		} else {
			oldCompound := append(append([]byte{}, oldKey...), doc.ID.Bytes()...)
			newCompound := append(append([]byte{}, newKey...), doc.ID.Bytes()...)
			if string(oldCompound) != string(newCompound) {
				b.Delete(idxPath, oldCompound)
				b.InsertIfNotExists(idxPath, newCompound, ref)
			}
		}
	}

	return r.store.ApplyBatch(b)
}

// Delete removes a document's primary record and every index entry it
// populated, requiring schema.CanBeDeleted.
func (r *Registry) Delete(contractID core.Identifier, typeName string, id core.Identifier, contract contracts.DataContract) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema, ok := contract.DocumentType(typeName)
	if !ok {
		return fmt.Errorf("documents: contract %s declares no type %q", contractID, typeName)
	}
	if !schema.CanBeDeleted {
		return fmt.Errorf("documents: type %q cannot be deleted: %w", typeName, core.ErrInvalidState)
	}

	doc, err := r.Get(contractID, typeName, id)
	if err != nil {
		return err
	}

	primaryPath := PrimaryPath(contractID, typeName)
	b := storage.NewBatch()
	b.Delete(primaryPath, id.Bytes())

	for _, idx := range schema.Indices {
		key, err := IndexKey(doc, idx)
		if err != nil {
			return err
		}
		idxPath := IndexPath(contractID, typeName, idx.Name)
		if idx.Unique {
			b.Delete(idxPath, key)
		} else {
			b.Delete(idxPath, append(append([]byte{}, key...), id.Bytes()...))
		}
	}

	return r.store.ApplyBatch(b)
}

// ResolveByIndex follows a unique index entry to its document; key is the
// IndexKey encoding of the indexed property values.
func (r *Registry) ResolveByIndex(contractID core.Identifier, typeName, indexName string, key []byte) (Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, err := r.store.Get(IndexPath(contractID, typeName, indexName), key)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(e.ItemValue, &doc); err != nil {
		return Document{}, fmt.Errorf("documents: decode: %w", err)
	}
	return doc, nil
}
