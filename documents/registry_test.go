package documents

import (
	"testing"

	"synnergy-platform/contracts"
	"synnergy-platform/core"
	"synnergy-platform/storage"
)

func testContract() contracts.DataContract {
	owner := core.DeriveIdentifier("identity", [32]byte{9}, core.Identifier{})
	return contracts.DataContract{
		ID:      core.DeriveIdentifier("contract", [32]byte{10}, owner),
		OwnerID: owner,
		DocumentTypes: map[string]contracts.DocumentTypeSchema{
			"profile": {
				Name:       "profile",
				Mutable:    true,
				CanBeDeleted: true,
				Properties: map[string]contracts.PropertyType{
					"displayName": contracts.PropString,
					"age":         contracts.PropInteger,
				},
				Required: []string{"displayName"},
				Indices: []contracts.IndexDefinition{
					{Name: "byDisplayName", Properties: []string{"displayName"}, Unique: true},
					{Name: "byAge", Properties: []string{"age"}, Unique: false},
				},
			},
		},
	}
}

func TestRegistryCreateGetReplaceDelete(t *testing.T) {
	store := storage.NewGroveStore()
	reg := NewRegistry(store)
	contract := testContract()

	owner := core.DeriveIdentifier("identity", [32]byte{11}, core.Identifier{})
	doc := Document{
		ID:         core.DeriveIdentifier("document", [32]byte{12}, owner),
		OwnerID:    owner,
		ContractID: contract.ID,
		TypeName:   "profile",
		Properties: map[string]any{"displayName": "alice", "age": int64(30)},
	}

	if err := reg.Create(doc, contract); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := reg.Get(contract.ID, "profile", doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Properties["displayName"] != "alice" {
		t.Fatalf("displayName = %v, want alice", got.Properties["displayName"])
	}

	resolved, err := reg.ResolveByIndex(contract.ID, "profile", "byDisplayName", append([]byte{byte(len("alice"))}, "alice"...))
	if err != nil {
		t.Fatalf("resolve by index: %v", err)
	}
	if resolved.ID != doc.ID {
		t.Fatalf("resolved wrong document")
	}

	doc.Properties["displayName"] = "alice2"
	doc.Properties["age"] = int64(31)
	if err := reg.Replace(doc, contract); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := reg.ResolveByIndex(contract.ID, "profile", "byDisplayName", append([]byte{byte(len("alice"))}, "alice"...)); err == nil {
		t.Fatalf("stale index entry should have been removed")
	}
	resolved, err = reg.ResolveByIndex(contract.ID, "profile", "byDisplayName", append([]byte{byte(len("alice2"))}, "alice2"...))
	if err != nil {
		t.Fatalf("resolve after replace: %v", err)
	}
	if resolved.Properties["age"] != float64(31) {
		t.Fatalf("age not updated")
	}

	if err := reg.Delete(contract.ID, "profile", doc.ID, contract); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := reg.Get(contract.ID, "profile", doc.ID); err == nil {
		t.Fatalf("expected document to be gone after delete")
	}
	if _, err := reg.ResolveByIndex(contract.ID, "profile", "byDisplayName", append([]byte{byte(len("alice2"))}, "alice2"...)); err == nil {
		t.Fatalf("expected index entry to be gone after delete")
	}
}

func TestRegistryUniqueIndexRejectsCollision(t *testing.T) {
	store := storage.NewGroveStore()
	reg := NewRegistry(store)
	contract := testContract()
	owner := core.DeriveIdentifier("identity", [32]byte{13}, core.Identifier{})

	first := Document{
		ID:         core.DeriveIdentifier("document", [32]byte{14}, owner),
		OwnerID:    owner,
		ContractID: contract.ID,
		TypeName:   "profile",
		Properties: map[string]any{"displayName": "bob", "age": int64(20)},
	}
	if err := reg.Create(first, contract); err != nil {
		t.Fatalf("create first: %v", err)
	}

	second := Document{
		ID:         core.DeriveIdentifier("document", [32]byte{15}, owner),
		OwnerID:    owner,
		ContractID: contract.ID,
		TypeName:   "profile",
		Properties: map[string]any{"displayName": "bob", "age": int64(40)},
	}
	if err := reg.Create(second, contract); err == nil {
		t.Fatalf("expected unique index collision to be rejected")
	}
}

func TestValidateAgainstSchemaRejectsUnknownAndMissing(t *testing.T) {
	contract := testContract()
	schema, _ := contract.DocumentType("profile")

	missing := Document{Properties: map[string]any{"age": int64(1)}}
	if err := ValidateAgainstSchema(missing, schema); err == nil {
		t.Fatalf("expected missing required property to fail validation")
	}

	unknown := Document{Properties: map[string]any{"displayName": "x", "unknownField": true}}
	if err := ValidateAgainstSchema(unknown, schema); err == nil {
		t.Fatalf("expected undeclared property to fail validation")
	}
}
