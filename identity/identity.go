// Package identity implements the platform's Identity lifecycle: public
// keys, balances, and signature verification. Grounded on the teacher's
// core/identity_verification.go (a ledger-backed verified-address
// registry keyed by namespace prefix) generalized from a boolean
// verification flag into the full identity record spec.md §3 defines.
package identity

import (
	"fmt"

	"synnergy-platform/core"
)

// KeyPurpose classifies what an IdentityPublicKey may be used for.
type KeyPurpose uint8

const (
	PurposeAuthentication KeyPurpose = iota
	PurposeEncryption
	PurposeDecryption
	PurposeTransfer
	PurposeVoting
)

// SecurityLevel bounds how sensitive an operation a key may authorize.
type SecurityLevel uint8

const (
	SecurityMaster SecurityLevel = iota
	SecurityCritical
	SecurityHigh
	SecurityMedium
)

// KeyType names the signature scheme a key's Data bytes encode.
type KeyType uint8

const (
	KeyTypeECDSASecp256k1 KeyType = iota
	KeyTypeBLS12381
	KeyTypeECDSAHash160
	KeyTypeBIP13Script
	KeyTypeEDDSA25519
)

// PublicKey is one entry in an Identity's key set (spec.md §3 "Keys carry
// (id, purpose, security_level, key_type, data, disabled_at?,
// contract_bounds?)").
type PublicKey struct {
	ID             uint32
	Purpose        KeyPurpose
	SecurityLevel  SecurityLevel
	KeyType        KeyType
	Data           []byte
	DisabledAt     *uint64 // block time, nil while active
	ContractBounds *ContractBounds
}

// ContractBounds restricts a key's authority to a single contract (and
// optionally a single document type within it).
type ContractBounds struct {
	ContractID core.Identifier
	DocumentType string // empty means the whole contract
}

// IsActive reports whether the key can currently authorize a transition.
func (k PublicKey) IsActive() bool { return k.DisabledAt == nil }

// Identity is the platform's account record: a balance, a monotonically
// incrementing revision bumped by every mutating transition, and a set of
// public keys (spec.md §3 "Identity").
type Identity struct {
	ID       core.Identifier
	Balance  core.Credits
	Revision uint64
	Keys     []PublicKey
	Nonce    uint64
}

// KeyByID finds an identity's key by its local key ID.
func (id *Identity) KeyByID(keyID uint32) (*PublicKey, bool) {
	for i := range id.Keys {
		if id.Keys[i].ID == keyID {
			return &id.Keys[i], true
		}
	}
	return nil, false
}

// AddKey appends a new public key, failing if the ID is already in use
// (IdentityUpdate's add-key path, spec.md §3 identity lifecycle).
func (id *Identity) AddKey(k PublicKey) error {
	if _, ok := id.KeyByID(k.ID); ok {
		return fmt.Errorf("identity: key id %d already present: %w", k.ID, core.ErrAlreadyExists)
	}
	id.Keys = append(id.Keys, k)
	id.Revision++
	return nil
}

// DisableKey marks a key disabled as of disabledAt. Disabling is logical:
// the key entry remains for audit/history, only its DisabledAt is set
// (spec.md §3 "destroyed only logically").
func (id *Identity) DisableKey(keyID uint32, disabledAt uint64) error {
	k, ok := id.KeyByID(keyID)
	if !ok {
		return core.ErrNotFound
	}
	if !k.IsActive() {
		return core.ErrInvalidState
	}
	k.DisabledAt = &disabledAt
	id.Revision++
	return nil
}

// Debit deducts amount from the identity's balance, failing with
// ErrInvalidState on insufficient funds (never goes negative — Credits is
// unsigned).
func (id *Identity) Debit(amount core.Credits) error {
	if id.Balance < amount {
		return core.ErrInvalidState
	}
	id.Balance -= amount
	return nil
}

// Credit adds amount to the identity's balance (refunds, top-ups,
// transfers received).
func (id *Identity) Credit(amount core.Credits) {
	id.Balance += amount
}

// NextNonce returns the nonce a new transition from this identity must
// carry, then advances it. Nonce tracking rejects replayed or reordered
// transitions (pipeline stage 2, alongside signature validation).
func (id *Identity) NextNonce() uint64 {
	n := id.Nonce
	id.Nonce++
	return n
}

// IsLogicallyDestroyed reports whether the identity has been reduced to
// the terminal state spec.md §3 describes: zero balance and every key
// disabled.
func (id *Identity) IsLogicallyDestroyed() bool {
	if id.Balance != 0 {
		return false
	}
	for _, k := range id.Keys {
		if k.IsActive() {
			return false
		}
	}
	return true
}
