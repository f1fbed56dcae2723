// Package documents implements the platform's Document model: the
// contract-governed records stored under a deterministic path with
// secondary-index references, and their schema validation against the
// owning contract's DocumentTypeSchema. Grounded on core/storage.go's
// key-prefix convention for structured records, generalized onto the
// storage package's GroveStore paths instead of flat ledger keys.
package documents

import (
	"fmt"
	"time"

	"synnergy-platform/contracts"
	"synnergy-platform/core"
)

// Document is one contract-governed record (spec.md §3 "Document").
type Document struct {
	ID            core.Identifier
	OwnerID       core.Identifier
	ContractID    core.Identifier
	TypeName      string
	Revision      uint64
	Properties    map[string]any
	CreatedAtMs   *uint64
	UpdatedAtMs   *uint64
	TransferredAtMs *uint64

	// CreatedAtEpoch, StoredBytes and StoragePricePerByteEpoch are stamped
	// at creation and carried unchanged through updates so a later delete
	// can compute its refund against the price schedule active when the
	// bytes were originally charged (spec.md §4.2 "refunds honor the price
	// schedule in effect when the bytes were stored").
	CreatedAtEpoch           core.Epoch
	StoredBytes              uint64
	StoragePricePerByteEpoch core.Credits

	// Attachments lists the property names this document has pinned a
	// content-addressed blob against (storage.BlobRef), so a later delete
	// knows which attachment elements under AttachmentPath need cleanup.
	Attachments []string
}

// PrimaryPath returns the deterministic storage path a document's primary
// record lives at (spec.md §3: "[Contracts, contract_id, type_name,
// primary_storage, id]").
func PrimaryPath(contractID core.Identifier, typeName string) [][]byte {
	return [][]byte{
		[]byte("DataContractDocuments"),
		contractID.Bytes(),
		[]byte(typeName),
		[]byte("primary_storage"),
	}
}

// IndexPath returns the path a named secondary index's entries live
// under for a given contract/type.
func IndexPath(contractID core.Identifier, typeName, indexName string) [][]byte {
	return [][]byte{
		[]byte("DataContractDocuments"),
		contractID.Bytes(),
		[]byte(typeName),
		[]byte("index"),
		[]byte(indexName),
	}
}

// AttachmentPath returns the path a document's pinned blob attachments
// live under, one element per (document id, property name).
func AttachmentPath(contractID core.Identifier, typeName string) [][]byte {
	return [][]byte{
		[]byte("DataContractDocuments"),
		contractID.Bytes(),
		[]byte(typeName),
		[]byte("attachments"),
	}
}

// attachmentKey composes the per-document, per-property key an
// attachment's BlobRef is stored under.
func attachmentKey(docID core.Identifier, property string) []byte {
	return append(append([]byte{}, docID.Bytes()...), []byte(":"+property)...)
}

// IndexKey builds the composite key an index entry is stored under: the
// ordered, length-prefixed encoding of the indexed properties' values, so
// lexicographic key order matches the declared property order.
func IndexKey(doc Document, def contracts.IndexDefinition) ([]byte, error) {
	var key []byte
	for _, prop := range def.Properties {
		v, ok := doc.Properties[prop]
		if !ok {
			return nil, fmt.Errorf("documents: index %q requires property %q", def.Name, prop)
		}
		enc, err := encodeIndexValue(v)
		if err != nil {
			return nil, err
		}
		key = append(key, byte(len(enc)))
		key = append(key, enc...)
	}
	return key, nil
}

func encodeIndexValue(v any) ([]byte, error) {
	switch t := v.(type) {
	case string:
		return []byte(t), nil
	case int64:
		return encodeBigEndianInt(uint64(t)), nil
	case float64:
		return encodeBigEndianInt(uint64(t)), nil
	case bool:
		if t {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	default:
		return nil, fmt.Errorf("documents: unsupported index value type %T", v)
	}
}

func encodeBigEndianInt(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// ValidateAgainstSchema checks a document's properties against its
// declared type's required fields and recorded property types. This is a
// structural check only (the structural/decode pipeline stage, spec.md
// §4.3 stage 1) — schema-governed uniqueness and cross-document
// constraints are enforced by the index layer and data triggers.
func ValidateAgainstSchema(doc Document, schema contracts.DocumentTypeSchema) error {
	for _, req := range schema.Required {
		if _, ok := doc.Properties[req]; !ok {
			return fmt.Errorf("documents: missing required property %q", req)
		}
	}
	for name, v := range doc.Properties {
		want, ok := schema.Properties[name]
		if !ok {
			return fmt.Errorf("documents: property %q not declared by schema", name)
		}
		if err := checkPropertyType(name, v, want); err != nil {
			return err
		}
	}
	return nil
}

func checkPropertyType(name string, v any, want contracts.PropertyType) error {
	switch want {
	case contracts.PropString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("documents: property %q must be a string", name)
		}
	case contracts.PropInteger:
		switch v.(type) {
		case int64, float64:
		default:
			return fmt.Errorf("documents: property %q must be an integer", name)
		}
	case contracts.PropNumber:
		if _, ok := v.(float64); !ok {
			return fmt.Errorf("documents: property %q must be a number", name)
		}
	case contracts.PropBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("documents: property %q must be a boolean", name)
		}
	case contracts.PropArray:
		if _, ok := v.([]any); !ok {
			return fmt.Errorf("documents: property %q must be an array", name)
		}
	case contracts.PropObject:
		if _, ok := v.(map[string]any); !ok {
			return fmt.Errorf("documents: property %q must be an object", name)
		}
	case contracts.PropBinary:
		if _, ok := v.([]byte); !ok {
			return fmt.Errorf("documents: property %q must be binary", name)
		}
	}
	return nil
}

// NowMs is the single clock read point documents stamp CreatedAtMs /
// UpdatedAtMs from; block execution always supplies the block's own
// time rather than calling this directly, keeping execution deterministic
// (spec.md §9 "the block-execution core is synchronous and deterministic
// by design").
func NowMs() uint64 { return uint64(time.Now().UnixMilli()) }
