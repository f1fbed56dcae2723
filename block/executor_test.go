package block

import (
	"testing"

	"synnergy-platform/core"
	"synnergy-platform/fees"
	"synnergy-platform/storage"
	"synnergy-platform/transitions"
)

type fixedHandler struct {
	fee core.Credits
}

func (h fixedHandler) Validate(transitions.Context, transitions.Transition) transitions.ConsensusError {
	return nil
}

func (h fixedHandler) Execute(transitions.Context, transitions.Transition) (core.Credits, string, error) {
	return h.fee, "ok", nil
}

func newTestExecutor() *Executor {
	store := storage.NewGroveStore()
	pipeline := transitions.NewPipeline()
	pipeline.Register(transitions.KindTokenTransfer, fixedHandler{fee: 100})
	pools := fees.NewPoolDistributor(2000, 3000)
	state := core.NewPlatformStateHandle(core.PlatformState{Version: core.Latest()})
	return NewExecutor(store, pipeline, pools, state, 0, nil)
}

func TestExecutorExecuteBlockAppliesAndCommits(t *testing.T) {
	e := newTestExecutor()

	results, _, err := e.ExecuteBlock(1, 10, 1000, [32]byte{1}, core.Epoch(1), core.Latest(), []transitions.Transition{
		{Kind: transitions.KindTokenTransfer},
	})
	if err != nil {
		t.Fatalf("execute block: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Outcome.Kind != transitions.KindSuccessfulExecution {
		t.Fatalf("outcome kind = %v, want SuccessfulExecution", results[0].Outcome.Kind)
	}

	got := e.State.Load()
	if got.LastBlock.Height != 1 {
		t.Fatalf("committed height = %d, want 1", got.LastBlock.Height)
	}
	if e.Pools.Balance(fees.PoolProcessing) != 100 {
		t.Fatalf("processing pool = %d, want 100", e.Pools.Balance(fees.PoolProcessing))
	}
}

func TestExecutorExecuteBlockRejectsWrongHeight(t *testing.T) {
	e := newTestExecutor()
	if _, _, err := e.ExecuteBlock(5, 10, 1000, [32]byte{1}, core.Epoch(1), core.Latest(), nil); err == nil {
		t.Fatalf("expected a height-mismatch error")
	}
}

func TestExecutorExecuteBlockSequentialHeights(t *testing.T) {
	e := newTestExecutor()
	if _, _, err := e.ExecuteBlock(1, 10, 1000, [32]byte{1}, core.Epoch(1), core.Latest(), nil); err != nil {
		t.Fatalf("first block: %v", err)
	}
	if _, _, err := e.ExecuteBlock(2, 11, 2000, [32]byte{2}, core.Epoch(1), core.Latest(), nil); err != nil {
		t.Fatalf("second block: %v", err)
	}
	if _, _, err := e.ExecuteBlock(2, 12, 3000, [32]byte{3}, core.Epoch(1), core.Latest(), nil); err == nil {
		t.Fatalf("expected a repeated height to be rejected")
	}
}
