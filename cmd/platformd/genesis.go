package main

import (
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cmdconfig "synnergy-platform/cmd/config"
	"synnergy-platform/core"
)

// masternodeListFile is the YAML shape genesis init reads when
// --masternodes-file is given, grounded on cmd/cli/devnet.go's
// testnetStart: a plain yaml.Unmarshal of a nodes list read straight off
// disk, no viper layering, since this describes one genesis ceremony's
// input rather than process configuration.
type masternodeListFile struct {
	Masternodes []struct {
		Seed            string `yaml:"seed"`
		Address         string `yaml:"address"`
		HPMN            bool   `yaml:"hpmn"`
		Voting          bool   `yaml:"voting"`
		UpdateFrequency uint32 `yaml:"update_frequency"`
	} `yaml:"masternodes"`
}

// loadMasternodeList reads an explicit masternode snapshot from a YAML
// file instead of synthesizing one with core.GenerateTestMasternodes,
// for operators seeding genesis from a real masternode-set oracle export
// rather than a deterministic test fixture.
func loadMasternodeList(path string) (core.MasternodeListSnapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return core.MasternodeListSnapshot{}, fmt.Errorf("platformd: read masternode list: %w", err)
	}
	var file masternodeListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return core.MasternodeListSnapshot{}, fmt.Errorf("platformd: decode masternode list: %w", err)
	}

	var snapshot core.MasternodeListSnapshot
	for _, n := range file.Masternodes {
		entry := core.MasternodeEntry{
			ProTxHash:       core.DeriveIdentifier("masternode", sha256.Sum256([]byte(n.Seed)), core.Identifier{}),
			Address:         n.Address,
			IsHPMN:          n.HPMN,
			Voting:          n.Voting,
			UpdateFrequency: n.UpdateFrequency,
		}
		if entry.IsHPMN {
			snapshot.HPMN = append(snapshot.HPMN, entry)
		} else {
			snapshot.Regular = append(snapshot.Regular, entry)
		}
	}
	return snapshot, nil
}

// genesisCmd wires the "genesis init" subcommand: seeds a fresh durable
// store and an initial PlatformState snapshot, mirroring cmd/synnergy's
// "genesis" group but collapsed to the one operation this platform needs
// at bootstrap (spec.md §5 "PlatformState" has no richer bootstrap
// ceremony than version + masternode list + a zero last-block).
func genesisCmd() *cobra.Command {
	var hpmnCount int
	var seed int64
	var masternodesFile string

	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "bootstrap a fresh platform state",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "create the genesis PlatformState and durable store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &cmdconfig.AppConfig

			masternodes := core.GenerateTestMasternodes(cfg.Consensus.MasternodesRequired, hpmnCount, seed, nil)
			if masternodesFile != "" {
				loaded, err := loadMasternodeList(masternodesFile)
				if err != nil {
					return err
				}
				masternodes = loaded
			}

			genesis := core.PlatformState{
				Version:     core.Latest(),
				Masternodes: masternodes,
			}

			a, err := newApp(cfg, genesis)
			if err != nil {
				return err
			}

			if err := saveState(cfg, a.State.Load()); err != nil {
				return err
			}

			fmt.Printf("genesis: protocol version %d, %d regular + %d HPMN masternodes\n",
				genesis.Version.Number, len(genesis.Masternodes.Regular), len(genesis.Masternodes.HPMN))
			return nil
		},
	}
	initCmd.Flags().IntVar(&hpmnCount, "hpmn-count", 1, "number of high-performance masternodes to seed")
	initCmd.Flags().Int64Var(&seed, "seed", 42, "deterministic PRNG seed for the test masternode list")
	initCmd.Flags().StringVar(&masternodesFile, "masternodes-file", "", "YAML file of an explicit masternode snapshot, overriding the generated test list")

	cmd.AddCommand(initCmd)
	return cmd
}
