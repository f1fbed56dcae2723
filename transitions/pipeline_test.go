package transitions

import (
	"errors"
	"testing"

	"synnergy-platform/core"
	"synnergy-platform/fees"
)

type stubHandler struct {
	validateErr ConsensusError
	executeFee  core.Credits
	executeErr  error
}

func (h stubHandler) Validate(Context, Transition) ConsensusError { return h.validateErr }

func (h stubHandler) Execute(Context, Transition) (core.Credits, string, error) {
	if h.executeErr != nil {
		return 0, "", h.executeErr
	}
	return h.executeFee, "stub mutation applied", nil
}

func testContext() Context {
	table, _ := fees.VersionTable(1)
	return Context{Height: 1, TimeMs: 1000, FeeTable: table}
}

func TestPipelineRunSuccessfulExecution(t *testing.T) {
	p := NewPipeline()
	p.Register(KindTokenTransfer, stubHandler{executeFee: 42})

	out := p.Run(testContext(), Transition{Kind: KindTokenTransfer})
	if out.Kind != KindSuccessfulExecution {
		t.Fatalf("kind = %v, want SuccessfulExecution", out.Kind)
	}
	if out.Fee != 42 {
		t.Fatalf("fee = %d, want 42", out.Fee)
	}
}

func TestPipelineRunUnpaidOnMissingHandler(t *testing.T) {
	p := NewPipeline()
	out := p.Run(testContext(), Transition{Kind: KindTokenTransfer})
	if out.Kind != KindUnpaidConsensusError {
		t.Fatalf("kind = %v, want UnpaidConsensusError", out.Kind)
	}
}

func TestPipelineRunUnpaidOnSignatureFailure(t *testing.T) {
	p := NewPipeline()
	p.Register(KindTokenTransfer, stubHandler{})
	p.VerifySignature = func(Transition) error { return errors.New("bad signature") }

	out := p.Run(testContext(), Transition{Kind: KindTokenTransfer})
	if out.Kind != KindUnpaidConsensusError {
		t.Fatalf("kind = %v, want UnpaidConsensusError", out.Kind)
	}
}

func TestPipelineRunUnpaidOnNonceFailure(t *testing.T) {
	p := NewPipeline()
	p.Register(KindTokenTransfer, stubHandler{})
	p.NonceCheck = func(Transition) error { return errors.New("nonce out of order") }

	out := p.Run(testContext(), Transition{Kind: KindTokenTransfer})
	if out.Kind != KindUnpaidConsensusError {
		t.Fatalf("kind = %v, want UnpaidConsensusError", out.Kind)
	}
}

func TestPipelineRunPaidOnValidationFailure(t *testing.T) {
	p := NewPipeline()
	p.Register(KindTokenTransfer, stubHandler{validateErr: ErrBalanceInsufficient()})

	out := p.Run(testContext(), Transition{Kind: KindTokenTransfer})
	if out.Kind != KindPaidConsensusError {
		t.Fatalf("kind = %v, want PaidConsensusError", out.Kind)
	}
	if out.Error == nil || out.Error.Code() != "BalanceIsNotEnoughError" {
		t.Fatalf("unexpected error: %v", out.Error)
	}
}

func TestPipelineRunPaidOnExecuteConsensusError(t *testing.T) {
	p := NewPipeline()
	p.Register(KindTokenTransfer, stubHandler{executeErr: ErrTokenACLDenied("frozen")})

	out := p.Run(testContext(), Transition{Kind: KindTokenTransfer})
	if out.Kind != KindPaidConsensusError {
		t.Fatalf("kind = %v, want PaidConsensusError", out.Kind)
	}
}

func TestPipelineRunInternalErrorOnNonConsensusExecuteError(t *testing.T) {
	p := NewPipeline()
	p.Register(KindTokenTransfer, stubHandler{executeErr: errors.New("storage unavailable")})

	out := p.Run(testContext(), Transition{Kind: KindTokenTransfer})
	if out.Kind != KindInternalError {
		t.Fatalf("kind = %v, want InternalError", out.Kind)
	}
}
