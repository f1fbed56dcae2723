// Package core defines the versioned primitives shared by every other
// package in this module: identifiers, credits, epochs, and the
// platform-wide version/state handles that the storage, fee, transition,
// token, and block-execution layers all key off of.
package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Identifier is a 32-byte opaque handle with total ordering by byte-lex.
// Contract and document identifiers are derived by domain-separated
// hashing of entropy and owner (see DeriveIdentifier).
type Identifier [32]byte

// Compare implements total ordering by byte-lex, matching the storage
// layer's key ordering (storage/subtree.go).
func (id Identifier) Compare(other Identifier) int {
	return bytes.Compare(id[:], other[:])
}

func (id Identifier) Less(other Identifier) bool { return id.Compare(other) < 0 }

func (id Identifier) String() string { return hex.EncodeToString(id[:]) }

func (id Identifier) Bytes() []byte { return id[:] }

func (id Identifier) IsZero() bool { return id == Identifier{} }

// IdentifierFromBytes copies b into an Identifier, erroring if the length
// does not match.
func IdentifierFromBytes(b []byte) (Identifier, error) {
	var id Identifier
	if len(b) != len(id) {
		return id, fmt.Errorf("core: identifier must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

// DeriveIdentifier domain-separates a hash input with a purpose tag so that
// contract IDs and document IDs, though both derived from entropy+owner,
// never collide.
func DeriveIdentifier(purpose string, entropy [32]byte, owner Identifier) Identifier {
	h := sha256.New()
	h.Write([]byte(purpose))
	h.Write(entropy[:])
	h.Write(owner[:])
	var out Identifier
	copy(out[:], h.Sum(nil))
	return out
}

// Credits is an unsigned 64-bit quantity. The system-wide invariant
// sum(balances)+sum(pools)+sum(prefunded) == TotalSystemCredits must hold
// after every committed block (see fees.CalculateTotalCreditsBalance).
type Credits uint64

// Epoch is a monotonically increasing 16-bit index. Epoch length is a
// config parameter; roughly 2000 epochs span the refund horizon.
type Epoch uint16

// StorageEpochHorizon is the number of epochs over which a refund decays
// to zero, matching the ~50-year design horizon in spec.md §4.2.
const StorageEpochHorizon Epoch = 2000

// Hash is a 32-byte cryptographic digest, used for block/app hashes and
// merkle roots. Distinct from Identifier so the two are never accidentally
// interchanged even though both are 32 bytes.
type Hash [32]byte

func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

func (h Hash) IsZero() bool { return h == Hash{} }
