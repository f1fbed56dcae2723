package contracts

import (
	"testing"

	"synnergy-platform/core"
	"synnergy-platform/storage"
)

func TestManagerCreateGetUpdatePause(t *testing.T) {
	store := storage.NewGroveStore()
	mgr := NewManager(store)

	owner := core.DeriveIdentifier("identity", [32]byte{1}, core.Identifier{})
	c := DataContract{
		ID:      core.DeriveIdentifier("contract", [32]byte{2}, owner),
		OwnerID: owner,
		Version: 0,
		DocumentTypes: map[string]DocumentTypeSchema{
			"profile": {Name: "profile", Mutable: true, Properties: map[string]PropertyType{"displayName": PropString}},
		},
	}
	if err := mgr.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := mgr.Get(c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != 0 {
		t.Fatalf("version = %d, want 0", got.Version)
	}

	if err := mgr.Update(c.ID, func(dc *DataContract) error {
		dc.DocumentTypes["profile"] = DocumentTypeSchema{Name: "profile", Mutable: false}
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = mgr.Get(c.ID)
	if got.Version != 1 {
		t.Fatalf("version after update = %d, want 1", got.Version)
	}

	if err := mgr.Pause(c.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := mgr.Update(c.ID, func(dc *DataContract) error { return nil }); err == nil {
		t.Fatalf("expected update on paused contract to fail")
	}
	if err := mgr.Resume(c.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := mgr.Update(c.ID, func(dc *DataContract) error { return nil }); err != nil {
		t.Fatalf("update after resume: %v", err)
	}
}

func TestManagerTransferOwnership(t *testing.T) {
	store := storage.NewGroveStore()
	mgr := NewManager(store)
	owner := core.DeriveIdentifier("identity", [32]byte{3}, core.Identifier{})
	newOwner := core.DeriveIdentifier("identity", [32]byte{4}, core.Identifier{})
	c := DataContract{ID: core.DeriveIdentifier("contract", [32]byte{5}, owner), OwnerID: owner}
	if err := mgr.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mgr.TransferOwnership(c.ID, newOwner); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	got, _ := mgr.Get(c.ID)
	if got.OwnerID != newOwner {
		t.Fatalf("owner not updated")
	}
}
