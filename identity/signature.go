package identity

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// VerifySignature checks that sig is a valid secp256k1 ECDSA signature
// over sha256(message) by the key encoded in k.Data (compressed public
// key bytes), the signature-verification stage of the pipeline (spec.md
// §4.3 stage 2). Only KeyTypeECDSASecp256k1 keys are currently
// verifiable; other key types return an error rather than silently
// succeeding.
func VerifySignature(k PublicKey, message, sig []byte) (bool, error) {
	if k.KeyType != KeyTypeECDSASecp256k1 {
		return false, fmt.Errorf("identity: unsupported key type for verification: %d", k.KeyType)
	}
	if !k.IsActive() {
		return false, fmt.Errorf("identity: key %d is disabled", k.ID)
	}
	pub, err := secp256k1.ParsePubKey(k.Data)
	if err != nil {
		return false, fmt.Errorf("identity: parse public key: %w", err)
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return false, fmt.Errorf("identity: parse signature: %w", err)
	}
	digest := sha256.Sum256(message)
	return parsed.Verify(digest[:], pub), nil
}
