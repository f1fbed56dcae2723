package transitions

import (
	"golang.org/x/sync/errgroup"

	"synnergy-platform/core"
	"synnergy-platform/fees"
)

// Kind tags the transition variant, the tagged union spec.md §4.3 lists.
type Kind uint8

const (
	KindDocumentCreate Kind = iota
	KindDocumentUpdate
	KindDocumentDelete
	KindIdentityCreate
	KindIdentityTopUp
	KindIdentityUpdate
	KindIdentityCreditWithdrawal
	KindIdentityCreditTransfer
	KindTokenMint
	KindTokenBurn
	KindTokenTransfer
	KindTokenClaim
	KindTokenFreeze
	KindTokenUnfreeze
	KindTokenDestroyFrozen
	KindTokenPause
	KindTokenResume
	KindTokenSetPrice
	KindDataContractCreate
	KindDataContractUpdate
	KindMasternodeVote
	KindBatch
	KindStorageLeaseOpen
	KindStorageLeaseClose
)

// Transition is the common envelope every transition variant carries
// (spec.md §6 "Wire format for state transitions": one-byte type tag,
// one-byte protocol version, body fields, signature_public_key_id,
// signature).
type Transition struct {
	Kind                Kind
	ProtocolVersion     uint8
	IdentityID          core.Identifier
	IdentityNonce       uint64
	SignaturePublicKeyID uint32
	Signature           []byte
	Body                []byte // opaque, decoded per-Kind by the handler stage
}

// Context carries the per-block, read-only inputs every pipeline stage
// needs (spec.md §5 "PlatformState ... is read-only during a block").
type Context struct {
	Height          uint64
	CoreHeight      uint32
	TimeMs          uint64
	Epoch           core.Epoch
	ProposerProTxHash [32]byte
	Version         core.PlatformVersion
	FeeTable        fees.Table
	// Masternodes is the read-only masternode-list snapshot carried into
	// this block (spec.md §5 "PlatformState ... masternode list"),
	// consulted by MasternodeVoteHandler to confirm a voter's ProTxHash is
	// a known, voting-enabled entry.
	Masternodes core.MasternodeListSnapshot
}

// Handler decodes and executes one transition's stage 3-7 work (the
// stages specific to its Kind); Execute applies its mutations directly
// and returns the fee and a state-diff summary. Stage 1-2 (structural/signature/nonce) are
// enforced uniformly by Pipeline.Run before a Handler is ever invoked.
type Handler interface {
	// Validate runs stage 3 (pre-execution) and stage 4 (data triggers),
	// returning a ConsensusError if the transition cannot proceed.
	Validate(ctx Context, t Transition) ConsensusError
	// Execute runs stage 5-7 (action derivation, fee computation,
	// mutation application) assuming Validate already passed, returning
	// the fee charged and a short state-diff summary.
	Execute(ctx Context, t Transition) (core.Credits, string, error)
}

// Pipeline dispatches each transition to its registered Handler,
// enforcing the stage ordering and outcome taxonomy of spec.md §4.3.
// Grounded on the teacher's applyBlock-style sequential-transaction loop
// (core/ledger.go), generalized from a flat list of value transfers to a
// typed-handler dispatch table.
type Pipeline struct {
	handlers map[Kind]Handler
	// NonceCheck enforces per-identity nonce monotonicity (stage 2); nil
	// disables the check (tests only).
	NonceCheck func(t Transition) error
	// VerifySignature enforces stage 2's signer/key-requirement check;
	// nil disables the check (tests only).
	VerifySignature func(t Transition) error
}

// NewPipeline returns an empty pipeline; call Register for each Kind the
// block executor needs to dispatch.
func NewPipeline() *Pipeline {
	return &Pipeline{handlers: make(map[Kind]Handler)}
}

// Register installs handler for kind.
func (p *Pipeline) Register(kind Kind, handler Handler) {
	p.handlers[kind] = handler
}

// Run executes the full seven-stage pipeline for one transition,
// returning the Outcome to report to the block executor. It checks the
// transition's signature itself; callers driving a whole block should
// use PrecheckSignatures plus RunPrechecked instead so the signature
// work for the block's transitions fans out concurrently rather than
// serializing one at a time.
func (p *Pipeline) Run(ctx Context, t Transition) Outcome {
	var sigErr error
	if p.VerifySignature != nil {
		sigErr = p.VerifySignature(t)
	}
	return p.run(ctx, t, sigErr)
}

// PrecheckSignatures verifies every transition's signature concurrently,
// bounded to a fixed worker count, and returns the per-transition errors
// in the same order as ts — stage 2's signature check reordered from a
// serial per-transition step into a bounded fan-out ahead of the
// sequential apply loop, since signature verification has no
// dependency on block-execution order the way mutation application
// does (spec.md §4.3 stage 2 vs stage 5-7). A nil VerifySignature
// disables the check and returns an all-nil slice, matching Run's
// behavior when the field is unset.
func (p *Pipeline) PrecheckSignatures(ts []Transition) []error {
	errs := make([]error, len(ts))
	if p.VerifySignature == nil {
		return errs
	}
	var g errgroup.Group
	g.SetLimit(8)
	for i, t := range ts {
		i, t := i, t
		g.Go(func() error {
			errs[i] = p.VerifySignature(t)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// RunPrechecked runs the pipeline for one transition using a signature
// check already computed by PrecheckSignatures, skipping the redundant
// serial re-verification Run would otherwise perform.
func (p *Pipeline) RunPrechecked(ctx Context, t Transition, sigErr error) Outcome {
	return p.run(ctx, t, sigErr)
}

func (p *Pipeline) run(ctx Context, t Transition, sigErr error) Outcome {
	// Stage 1: structural validation (presence of a registered handler
	// stands in for "mandatory-field checks" at this layer; Handler.Validate
	// performs the type-specific structural decode).
	handler, ok := p.handlers[t.Kind]
	if !ok {
		return Unpaid(ErrStructuralDecode("no handler registered for transition kind"))
	}

	// Stage 2: signature validation and nonce monotonicity. Failures here
	// are unpaid — the transition is rejected outright.
	if sigErr != nil {
		return Unpaid(ErrSignatureInvalid(sigErr.Error()))
	}
	if p.NonceCheck != nil {
		if err := p.NonceCheck(t); err != nil {
			return Unpaid(ErrSignatureInvalid(err.Error()))
		}
	}

	processingFee := fees.ProcessingFee(ctx.FeeTable, []fees.OpKind{fees.OpSignatureVerify, fees.OpHash}, 0)

	// Stage 3-4: pre-execution checks and data triggers. Failures here
	// are paid — the processing fee is charged, no other mutation lands.
	if cerr := handler.Validate(ctx, t); cerr != nil {
		return Paid(cerr, processingFee)
	}

	// Stage 5-7: action derivation, fee computation, mutation application.
	fee, summary, err := handler.Execute(ctx, t)
	if err != nil {
		if cerr, ok := err.(ConsensusError); ok {
			return Paid(cerr, processingFee)
		}
		return Internal(err)
	}
	return Success(fee, summary)
}
