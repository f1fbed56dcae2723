package transitions

import (
	"testing"

	"synnergy-platform/contracts"
	"synnergy-platform/core"
	"synnergy-platform/storage"
	"synnergy-platform/tokens"
)

func aclID(b byte) core.Identifier {
	var out core.Identifier
	out[0] = b
	return out
}

func newACLFixture(t *testing.T, group contracts.GroupDefinition) (*ACL, core.Identifier) {
	t.Helper()
	store := storage.NewGroveStore()
	mgr := contracts.NewManager(store)
	owner := aclID(1)
	contractID := core.DeriveIdentifier("contract", [32]byte{7}, owner)
	c := contracts.DataContract{
		ID:      contractID,
		OwnerID: owner,
		DocumentTypes: map[string]contracts.DocumentTypeSchema{
			"profile": {Name: "profile"},
		},
		Groups: map[uint16]contracts.GroupDefinition{0: group},
	}
	if err := mgr.Create(c); err != nil {
		t.Fatalf("create contract: %v", err)
	}
	return NewACL(mgr), contractID
}

func TestACLUngatedWithoutGroupDefinition(t *testing.T) {
	store := storage.NewGroveStore()
	mgr := contracts.NewManager(store)
	owner := aclID(1)
	contractID := core.DeriveIdentifier("contract", [32]byte{8}, owner)
	c := contracts.DataContract{
		ID:            contractID,
		OwnerID:       owner,
		DocumentTypes: map[string]contracts.DocumentTypeSchema{"profile": {Name: "profile"}},
	}
	if err := mgr.Create(c); err != nil {
		t.Fatalf("create: %v", err)
	}
	acl := NewACL(mgr)
	if err := acl.Authorize(contractID, 0, tokens.ControlFreeze, aclID(99)); err != nil {
		t.Fatalf("expected ungated authorization, got %v", err)
	}
}

func TestACLSingleSignerMeetingThreshold(t *testing.T) {
	acl, contractID := newACLFixture(t, contracts.GroupDefinition{
		Position:      0,
		Members:       map[core.Identifier]uint32{aclID(2): 100},
		RequiredPower: 100,
	})
	if err := acl.Authorize(contractID, 0, tokens.ControlFreeze, aclID(2)); err != nil {
		t.Fatalf("expected single signer at threshold to authorize, got %v", err)
	}
}

func TestACLRejectsNonMember(t *testing.T) {
	acl, contractID := newACLFixture(t, contracts.GroupDefinition{
		Position:      0,
		Members:       map[core.Identifier]uint32{aclID(2): 100},
		RequiredPower: 100,
	})
	if err := acl.Authorize(contractID, 0, tokens.ControlFreeze, aclID(55)); err == nil {
		t.Fatalf("expected non-member to be rejected")
	}
}

func TestACLRequiresMultipleSignersToMeetThreshold(t *testing.T) {
	acl, contractID := newACLFixture(t, contracts.GroupDefinition{
		Position: 0,
		Members: map[core.Identifier]uint32{
			aclID(2): 40,
			aclID(3): 40,
			aclID(4): 40,
		},
		RequiredPower: 80,
	})
	if err := acl.Authorize(contractID, 0, tokens.ControlFreeze, aclID(2)); err == nil {
		t.Fatalf("expected single signer below threshold to be denied")
	}
	if err := acl.Authorize(contractID, 0, tokens.ControlFreeze, aclID(3)); err != nil {
		t.Fatalf("expected second signer to reach threshold, got %v", err)
	}
}

func TestACLClearsVotesAfterActionAuthorized(t *testing.T) {
	acl, contractID := newACLFixture(t, contracts.GroupDefinition{
		Position: 0,
		Members: map[core.Identifier]uint32{
			aclID(2): 50,
			aclID(3): 50,
		},
		RequiredPower: 100,
	})
	if err := acl.Authorize(contractID, 0, tokens.ControlFreeze, aclID(2)); err == nil {
		t.Fatalf("expected first signer alone to be insufficient")
	}
	if err := acl.Authorize(contractID, 0, tokens.ControlFreeze, aclID(3)); err != nil {
		t.Fatalf("expected quorum reached, got %v", err)
	}
	// A fresh round of the same action requires a fresh quorum.
	if err := acl.Authorize(contractID, 0, tokens.ControlFreeze, aclID(2)); err == nil {
		t.Fatalf("expected votes to have been cleared after the action was authorized")
	}
}
