package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMasternodeListSplitsByHPMN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "masternodes.yaml")
	yamlBody := `masternodes:
  - seed: node-a
    address: 10.0.0.1:9999
    hpmn: false
    voting: true
    update_frequency: 1
  - seed: node-b
    address: 10.0.0.2:9999
    hpmn: true
    voting: true
    update_frequency: 2
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	snapshot, err := loadMasternodeList(path)
	if err != nil {
		t.Fatalf("loadMasternodeList: %v", err)
	}
	if len(snapshot.Regular) != 1 {
		t.Fatalf("len(Regular) = %d, want 1", len(snapshot.Regular))
	}
	if len(snapshot.HPMN) != 1 {
		t.Fatalf("len(HPMN) = %d, want 1", len(snapshot.HPMN))
	}
	if snapshot.Regular[0].Address != "10.0.0.1:9999" {
		t.Fatalf("Regular[0].Address = %q", snapshot.Regular[0].Address)
	}
	if !snapshot.HPMN[0].IsHPMN || snapshot.HPMN[0].UpdateFrequency != 2 {
		t.Fatalf("HPMN[0] = %+v", snapshot.HPMN[0])
	}
}

func TestLoadMasternodeListRejectsMissingFile(t *testing.T) {
	if _, err := loadMasternodeList(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error reading a missing masternode list file")
	}
}
