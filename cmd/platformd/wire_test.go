package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"synnergy-platform/core"
	"synnergy-platform/identity"
	pkgconfig "synnergy-platform/pkg/config"
	"synnergy-platform/transitions"
)

func testConfig(t *testing.T) *pkgconfig.Config {
	t.Helper()
	var cfg pkgconfig.Config
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "platform.db")
	cfg.Consensus.MasternodesRequired = 2
	cfg.Fees.TotalSystemCredits = 1_000_000_000
	cfg.Fees.ProposerShareBps = 4000
	cfg.Fees.MasternodeShareBps = 6000
	cfg.Query.ListenAddr = "127.0.0.1:0"
	return &cfg
}

func TestNewAppRegistersEveryPipelineKind(t *testing.T) {
	cfg := testConfig(t)
	genesis := core.PlatformState{
		Version:     core.Latest(),
		Masternodes: core.GenerateTestMasternodes(cfg.Consensus.MasternodesRequired, 1, 7, nil),
	}

	a, err := newApp(cfg, genesis)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}

	ctx := transitions.Context{Version: genesis.Version}
	for kind := transitions.KindDocumentCreate; kind <= transitions.KindStorageLeaseClose; kind++ {
		outcome := a.Pipeline.Run(ctx, transitions.Transition{Kind: kind})
		if outcome.Kind == transitions.KindUnpaidConsensusError && outcome.Error.Code() == "StructuralDecodeError" &&
			outcome.Error.Error() == "structural decode failed: no handler registered for transition kind" {
			t.Fatalf("kind %v has no registered handler", kind)
		}
	}
}

func TestGenesisThenBlockExecuteAppliesIdentityCreate(t *testing.T) {
	cfg := testConfig(t)
	genesis := core.PlatformState{
		Version:     core.Latest(),
		Masternodes: core.GenerateTestMasternodes(cfg.Consensus.MasternodesRequired, 1, 7, nil),
	}

	a, err := newApp(cfg, genesis)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	if err := saveState(cfg, a.State.Load()); err != nil {
		t.Fatalf("saveState: %v", err)
	}

	st, ok, err := loadState(cfg)
	if err != nil || !ok {
		t.Fatalf("loadState: ok=%v err=%v", ok, err)
	}

	b, err := newApp(cfg, st)
	if err != nil {
		t.Fatalf("second newApp: %v", err)
	}

	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	body, err := json.Marshal(transitions.IdentityCreateBody{
		AssetLockProof: []byte("proof-bytes-from-core-chain-lock"),
		InitialBalance: 5000,
		Keys: []identity.PublicKey{
			{ID: 0, Purpose: identity.PurposeAuthentication, SecurityLevel: identity.SecurityMaster, KeyType: identity.KeyTypeECDSASecp256k1, Data: priv.PubKey().SerializeCompressed()},
		},
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	results, appHash, err := b.Executor.ExecuteBlock(1, 100, 1000, [32]byte{}, 0, st.Version, []transitions.Transition{
		{Kind: transitions.KindIdentityCreate, Body: body},
	})
	if err != nil {
		t.Fatalf("ExecuteBlock: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Outcome.Kind != transitions.KindSuccessfulExecution {
		t.Fatalf("outcome kind = %v, want KindSuccessfulExecution: %+v", results[0].Outcome.Kind, results[0].Outcome)
	}
	if appHash == (core.Hash{}) {
		t.Fatal("expected a non-zero app hash after a committed block")
	}

	if err := saveState(cfg, b.State.Load()); err != nil {
		t.Fatalf("saveState after block: %v", err)
	}
	final, ok, err := loadState(cfg)
	if err != nil || !ok {
		t.Fatalf("loadState after block: ok=%v err=%v", ok, err)
	}
	if final.LastBlock.Height != 1 {
		t.Fatalf("LastBlock.Height = %d, want 1", final.LastBlock.Height)
	}
}
