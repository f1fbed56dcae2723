// Package transitions implements the platform's state-transition
// pipeline: the tagged union of transition types, the seven-stage
// validation/execution pipeline, data triggers, ACL-over-groups, and the
// four-way outcome taxonomy. Grounded on core/access_control.go (role/ACL
// pattern), core/contract_management.go (owner/pause lifecycle),
// core/identity_verification.go (register/verify/list), generalized from
// the teacher's single bytecode-contract execution path into the
// document/identity/token transition pipeline spec.md §4.3 describes.
package transitions

import "fmt"

// ConsensusError is the common interface every typed pipeline failure
// implements (spec.md §7's structural error taxonomy), mirrored from
// pkg/utils/errors.go's wrapped-sentinel convention but given named
// constructors instead of ad-hoc fmt.Errorf call sites so callers can
// type-switch on failure kind.
type ConsensusError interface {
	error
	Code() string
}

type baseError struct {
	code string
	msg  string
}

func (e baseError) Error() string { return e.msg }
func (e baseError) Code() string  { return e.code }

// NewConsensusError builds a ConsensusError with an explicit code and
// message — the general-purpose constructor every typed error below
// delegates to.
func NewConsensusError(code, msg string) ConsensusError {
	return baseError{code: code, msg: msg}
}

// Structural/signature (stage 1-2) errors are unpaid: the transition
// never reaches a state where a fee could be charged.
func ErrStructuralDecode(reason string) ConsensusError {
	return NewConsensusError("StructuralDecodeError", fmt.Sprintf("structural decode failed: %s", reason))
}

func ErrSignatureInvalid(reason string) ConsensusError {
	return NewConsensusError("InvalidSignatureError", fmt.Sprintf("signature invalid: %s", reason))
}

func ErrNonceOutOfOrder(expected, got uint64) ConsensusError {
	return NewConsensusError("InvalidIdentityNonceError", fmt.Sprintf("expected nonce %d, got %d", expected, got))
}

// Pre-execution/data-trigger/token-rule (stage 3-4) errors are paid: the
// processing fee is deducted even though no mutation lands.
func ErrBalanceInsufficient() ConsensusError {
	return NewConsensusError("BalanceIsNotEnoughError", "balance is not sufficient for this transition")
}

func ErrContractNotFound(id string) ConsensusError {
	return NewConsensusError("DataContractNotFoundError", fmt.Sprintf("data contract %s not found", id))
}

func ErrSchemaViolation(reason string) ConsensusError {
	return NewConsensusError("DataContractSchemaError", reason)
}

func ErrUniquenessViolation(index string) ConsensusError {
	return NewConsensusError("DuplicateUniqueIndexError", fmt.Sprintf("unique index %s violated", index))
}

func ErrTokenACLDenied(reason string) ConsensusError {
	return NewConsensusError("TokenACLDeniedError", reason)
}

func ErrInvalidTokenClaimNoCurrentRewards() ConsensusError {
	return NewConsensusError("InvalidTokenClaimNoCurrentRewards", "no current rewards due")
}

func ErrDataTriggerCondition(msg string) ConsensusError {
	return NewConsensusError("DataTriggerConditionError", msg)
}

func ErrResourceExhausted() ConsensusError {
	return NewConsensusError("ResourceExhausted", "transition exceeded its advisory resource budget")
}
