package transitions

import "encoding/json"

// signable mirrors Transition minus its Signature field — the bytes a
// signer actually signs over, so a valid signature can never be replayed
// onto a transition carrying a different signature.
type signable struct {
	Kind                 Kind
	ProtocolVersion      uint8
	IdentityID           [32]byte
	IdentityNonce        uint64
	SignaturePublicKeyID uint32
	Body                 []byte
}

// SigningBytes returns the canonical encoding a transition's signer signs
// over.
func (t Transition) SigningBytes() []byte {
	raw, _ := json.Marshal(signable{
		Kind:                 t.Kind,
		ProtocolVersion:      t.ProtocolVersion,
		IdentityID:           t.IdentityID,
		IdentityNonce:        t.IdentityNonce,
		SignaturePublicKeyID: t.SignaturePublicKeyID,
		Body:                 t.Body,
	})
	return raw
}
