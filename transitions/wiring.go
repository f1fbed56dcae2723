package transitions

import (
	"fmt"

	"synnergy-platform/identity"
)

// IdentitySignatureCheck builds a Pipeline.VerifySignature closure that
// checks a transition's signature against its signer's active key — the
// production counterpart to the stubbed checks transitions' own tests
// use. KindIdentityCreate is exempted: that transition creates the very
// identity its signature would otherwise need to reference, so its
// authenticity is carried by the asset-lock proof instead (see
// identity_create.go's deriveAssetLockEntropy).
func IdentitySignatureCheck(reg *identity.Registry) func(Transition) error {
	return func(t Transition) error {
		if t.Kind == KindIdentityCreate {
			return nil
		}
		id, err := reg.Get(t.IdentityID)
		if err != nil {
			return fmt.Errorf("transitions: resolve signer %s: %w", t.IdentityID, err)
		}
		key, ok := id.KeyByID(t.SignaturePublicKeyID)
		if !ok {
			return fmt.Errorf("transitions: signer %s has no key %d", t.IdentityID, t.SignaturePublicKeyID)
		}
		if !key.IsActive() {
			return fmt.Errorf("transitions: signer %s key %d is disabled", t.IdentityID, t.SignaturePublicKeyID)
		}
		valid, verr := identity.VerifySignature(*key, t.SigningBytes(), t.Signature)
		if verr != nil {
			return fmt.Errorf("transitions: verify signature: %w", verr)
		}
		if !valid {
			return fmt.Errorf("transitions: invalid signature for signer %s", t.IdentityID)
		}
		return nil
	}
}

// IdentityNonceCheck builds a Pipeline.NonceCheck closure enforcing and
// advancing per-identity nonce monotonicity (spec.md §4.3 stage 2). The
// nonce is consumed here rather than in Handler.Execute, so it is spent
// exactly once for every transition that reaches stage 3 regardless of
// whether the handler itself later succeeds, fails paid, or errors
// internally — matching Unpaid's "no mutation at all" contract for stage
// 2 failures while still preventing replay of a transition that merely
// failed downstream.
func IdentityNonceCheck(reg *identity.Registry) func(Transition) error {
	return func(t Transition) error {
		if t.Kind == KindIdentityCreate {
			return nil
		}
		id, err := reg.Get(t.IdentityID)
		if err != nil {
			return fmt.Errorf("transitions: resolve signer %s: %w", t.IdentityID, err)
		}
		if t.IdentityNonce != id.Nonce {
			return fmt.Errorf("transitions: identity %s expects nonce %d, transition carries %d", t.IdentityID, id.Nonce, t.IdentityNonce)
		}
		id.NextNonce()
		if err := reg.Save(id); err != nil {
			return fmt.Errorf("transitions: persist nonce advance: %w", err)
		}
		return nil
	}
}
