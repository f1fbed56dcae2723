package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"synnergy-platform/block"
	"synnergy-platform/contracts"
	"synnergy-platform/core"
	"synnergy-platform/documents"
	"synnergy-platform/fees"
	"synnergy-platform/identity"
	pkgconfig "synnergy-platform/pkg/config"
	"synnergy-platform/storage"
	"synnergy-platform/tokens"
	"synnergy-platform/transitions"
)

// app bundles every long-lived collaborator the daemon's subcommands
// need, wired once per process the way cmd/cli's ensureXInitialised
// helpers lazily build the teacher's singletons — except here each
// subcommand's RunE builds it by calling newApp, since platformd has no
// equivalent of the teacher's process-wide core.reg global to guard.
type app struct {
	Store      *storage.DurableStore
	Identities *identity.Registry
	Contracts  *contracts.Manager
	Documents  *documents.Registry
	Leases     *storage.LeaseRegistry
	Blobs      *storage.BlobGateway
	Tokens     *tokens.Registry
	Controller *tokens.Controller
	ACL        *transitions.ACL
	Pipeline   *transitions.Pipeline
	Pools      *fees.PoolDistributor
	State      *core.PlatformStateHandle
	Executor   *block.Executor
	Logger     *logrus.Logger
}

// newApp wires every package's constructor against a single durable
// store and the loaded configuration, registering every transitions.Kind
// the pipeline must dispatch.
func newApp(cfg *pkgconfig.Config, genesis core.PlatformState) (*app, error) {
	logger := logrus.StandardLogger()

	store, err := storage.OpenDurableStore(cfg.Storage.DBPath+".wal", logger)
	if err != nil {
		return nil, fmt.Errorf("platformd: open durable store: %w", err)
	}

	identities := identity.NewRegistry(store)
	contractMgr := contracts.NewManager(store)
	docs := documents.NewRegistry(store)
	leases := storage.NewLeaseRegistry(store)
	var blobs *storage.BlobGateway
	if cfg.Storage.BlobGatewayEndpoint != "" {
		blobs, err = storage.NewBlobGateway(storage.GatewayConfig{
			Endpoint:         cfg.Storage.BlobGatewayEndpoint,
			CacheDir:         cfg.Storage.BlobCacheDir,
			CacheSizeEntries: cfg.Storage.BlobCacheEntries,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("platformd: open blob gateway: %w", err)
		}
	}
	tokenReg := tokens.NewRegistry()
	acl := transitions.NewACL(contractMgr)
	controller := tokens.NewController(tokenReg, acl)
	triggers := transitions.NewDataTriggerRegistry()

	pools := fees.NewPoolDistributor(cfg.Fees.ProposerShareBps, cfg.Fees.MasternodeShareBps)
	state := core.NewPlatformStateHandle(genesis)

	pipeline := transitions.NewPipeline()
	pipeline.VerifySignature = transitions.IdentitySignatureCheck(identities)
	pipeline.NonceCheck = transitions.IdentityNonceCheck(identities)

	pipeline.Register(transitions.KindDocumentCreate, &transitions.DocumentCreateHandler{
		Contracts: contractMgr, Documents: docs, Triggers: triggers,
	})
	pipeline.Register(transitions.KindDocumentUpdate, &transitions.DocumentUpdateHandler{
		Contracts: contractMgr, Documents: docs, Triggers: triggers,
	})
	pipeline.Register(transitions.KindDocumentDelete, &transitions.DocumentDeleteHandler{
		Contracts: contractMgr, Documents: docs, Identities: identities, Pools: pools,
	})
	pipeline.Register(transitions.KindIdentityCreate, &transitions.IdentityCreateHandler{Registry: identities})
	pipeline.Register(transitions.KindIdentityUpdate, &transitions.IdentityUpdateHandler{Registry: identities})
	pipeline.Register(transitions.KindIdentityTopUp, &transitions.IdentityTopUpHandler{Registry: identities})
	pipeline.Register(transitions.KindIdentityCreditTransfer, &transitions.IdentityCreditTransferHandler{Registry: identities})
	pipeline.Register(transitions.KindIdentityCreditWithdrawal, &transitions.IdentityCreditWithdrawalHandler{Registry: identities})
	pipeline.Register(transitions.KindTokenTransfer, &transitions.TokenTransferHandler{Registry: tokenReg})
	pipeline.Register(transitions.KindTokenClaim, &transitions.TokenClaimHandler{Registry: tokenReg})
	pipeline.Register(transitions.KindTokenMint, &transitions.TokenMintHandler{Registry: tokenReg, ACL: acl})
	pipeline.Register(transitions.KindTokenBurn, &transitions.TokenBurnHandler{Registry: tokenReg, ACL: acl})
	pipeline.Register(transitions.KindTokenFreeze, &transitions.TokenControlHandler{Controller: controller, Action: tokens.ControlFreeze})
	pipeline.Register(transitions.KindTokenUnfreeze, &transitions.TokenControlHandler{Controller: controller, Action: tokens.ControlUnfreeze})
	pipeline.Register(transitions.KindTokenDestroyFrozen, &transitions.TokenControlHandler{Controller: controller, Action: tokens.ControlDestroyFrozen})
	pipeline.Register(transitions.KindTokenPause, &transitions.TokenControlHandler{Controller: controller, Action: tokens.ControlPause})
	pipeline.Register(transitions.KindTokenResume, &transitions.TokenControlHandler{Controller: controller, Action: tokens.ControlResume})
	pipeline.Register(transitions.KindTokenSetPrice, &transitions.TokenControlHandler{Controller: controller, Action: tokens.ControlSetPrice})
	pipeline.Register(transitions.KindDataContractCreate, &transitions.DataContractCreateHandler{Contracts: contractMgr})
	pipeline.Register(transitions.KindDataContractUpdate, &transitions.DataContractUpdateHandler{Contracts: contractMgr})
	pipeline.Register(transitions.KindMasternodeVote, &transitions.MasternodeVoteHandler{ACL: acl})
	pipeline.Register(transitions.KindBatch, &transitions.BatchHandler{Pipeline: pipeline})
	pipeline.Register(transitions.KindStorageLeaseOpen, &transitions.StorageLeaseOpenHandler{Leases: leases, Identities: identities})
	pipeline.Register(transitions.KindStorageLeaseClose, &transitions.StorageLeaseCloseHandler{Leases: leases})

	executor := block.NewExecutor(store, pipeline, pools, state, core.Credits(cfg.Fees.TotalSystemCredits), logger)

	return &app{
		Store: store, Identities: identities, Contracts: contractMgr, Documents: docs, Leases: leases, Blobs: blobs,
		Tokens: tokenReg, Controller: controller, ACL: acl, Pipeline: pipeline,
		Pools: pools, State: state, Executor: executor, Logger: logger,
	}, nil
}
