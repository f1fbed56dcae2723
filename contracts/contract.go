// Package contracts implements the platform's Data Contract model: a
// versioned, owner-governed schema describing one or more document
// types and, optionally, a token configuration. Grounded on the
// teacher's core/contract_management.go (owner/pause lifecycle over a
// ledger-backed contract registry), generalized from bytecode contracts
// to declarative document schemas.
package contracts

import "synnergy-platform/core"

// IndexDefinition names one secondary index a document type declares: an
// ordered list of property paths the index is keyed by, and whether the
// combination must be globally unique.
type IndexDefinition struct {
	Name       string
	Properties []string
	Unique     bool
}

// DocumentTypeSchema describes one document type's shape and mutability
// rules (spec.md §3 "Document types declare indices and mutability").
type DocumentTypeSchema struct {
	Name        string
	Properties  map[string]PropertyType
	Required    []string
	Indices     []IndexDefinition
	Mutable     bool // false means documents of this type can only be created/deleted, never updated
	CanBeDeleted bool
	Transferable bool
}

// PropertyType is a minimal JSON-Schema-like type tag for document
// properties. documents.ValidateAgainstSchema checks required properties
// and these type tags only; patterns, min/max ranges and nested object
// shapes are not validated.
type PropertyType uint8

const (
	PropString PropertyType = iota
	PropInteger
	PropNumber
	PropBoolean
	PropArray
	PropObject
	PropBinary
)

// TokenPositionConfig is the token-configuration slot a contract may
// declare at a given position (spec.md §3 "tokens{position →
// token_config}?"). The full distribution/control rules live in the
// tokens package; this only records which positions exist.
type TokenPositionConfig struct {
	Position    uint16
	Name        string
	BaseSupply  uint64
	Decimals    uint8
}

// GroupDefinition is a named multi-signature authority a contract can
// gate privileged token/document operations behind (spec.md §4.4
// "ACL-over-groups").
type GroupDefinition struct {
	Position      uint16
	Members       map[core.Identifier]uint32 // member -> voting power
	RequiredPower uint32
}

// DataContract is the platform's schema-governing record (spec.md §3
// "Data Contract"). Immutable after creation except through explicit
// contract-update transitions (transitions.DataContractUpdateHandler).
type DataContract struct {
	ID            core.Identifier
	OwnerID       core.Identifier
	Version       uint32
	DocumentTypes map[string]DocumentTypeSchema
	Tokens        map[uint16]TokenPositionConfig
	Groups        map[uint16]GroupDefinition
	Paused        bool
}

// DocumentType looks up a declared document type by name.
func (c DataContract) DocumentType(name string) (DocumentTypeSchema, bool) {
	t, ok := c.DocumentTypes[name]
	return t, ok
}
