package main

import (
	"encoding/json"
	"fmt"
	"os"

	pkgconfig "synnergy-platform/pkg/config"
	"synnergy-platform/core"
)

// statePath returns the sidecar file genesis/block/query subcommands
// share to carry core.PlatformState across separate process
// invocations. GroveStore's own element data durably round-trips through
// DurableStore's WAL (storage/kvstore.go), but PlatformState itself
// (version, last block, masternode list) lives only in the
// PlatformStateHandle's atomic pointer, so it needs its own small JSON
// snapshot — the same role core/ledger.go's periodic snapshot file plays
// alongside its WAL.
func statePath(cfg *pkgconfig.Config) string {
	return cfg.Storage.DBPath + ".state.json"
}

// loadState reads the last-saved PlatformState, if any.
func loadState(cfg *pkgconfig.Config) (core.PlatformState, bool, error) {
	raw, err := os.ReadFile(statePath(cfg))
	if err != nil {
		if os.IsNotExist(err) {
			return core.PlatformState{}, false, nil
		}
		return core.PlatformState{}, false, fmt.Errorf("platformd: read state snapshot: %w", err)
	}
	var st core.PlatformState
	if err := json.Unmarshal(raw, &st); err != nil {
		return core.PlatformState{}, false, fmt.Errorf("platformd: decode state snapshot: %w", err)
	}
	return st, true, nil
}

// saveState durably records the current PlatformState snapshot.
func saveState(cfg *pkgconfig.Config, st core.PlatformState) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("platformd: encode state snapshot: %w", err)
	}
	if err := os.WriteFile(statePath(cfg), raw, 0o600); err != nil {
		return fmt.Errorf("platformd: write state snapshot: %w", err)
	}
	return nil
}
