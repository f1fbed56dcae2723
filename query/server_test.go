package query

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"synnergy-platform/contracts"
	"synnergy-platform/core"
	"synnergy-platform/documents"
	"synnergy-platform/identity"
	"synnergy-platform/storage"
)

func qid(b byte) core.Identifier {
	var out core.Identifier
	out[0] = b
	return out
}

func newTestServer(t *testing.T) (*Server, core.Identifier) {
	t.Helper()
	store := storage.NewGroveStore()
	identities := identity.NewRegistry(store)
	contractMgr := contracts.NewManager(store)
	docs := documents.NewRegistry(store)
	state := core.NewPlatformStateHandle(core.PlatformState{})

	ownerID := qid(1)
	id := identity.Identity{
		ID:      ownerID,
		Balance: 777,
		Keys: []identity.PublicKey{
			{ID: 0, Purpose: identity.PurposeAuthentication, SecurityLevel: identity.SecurityMaster, Data: []byte("pubkey-bytes")},
		},
	}
	if err := identities.Create(id); err != nil {
		t.Fatalf("create identity: %v", err)
	}

	contract := contracts.DataContract{
		ID:      qid(2),
		OwnerID: ownerID,
		DocumentTypes: map[string]contracts.DocumentTypeSchema{
			"profile": {
				Name:       "profile",
				Properties: map[string]contracts.PropertyType{"displayName": contracts.PropString},
				Required:   []string{"displayName"},
				Indices:    []contracts.IndexDefinition{{Name: "byDisplayName", Properties: []string{"displayName"}, Unique: true}},
			},
		},
	}
	if err := contractMgr.Create(contract); err != nil {
		t.Fatalf("create contract: %v", err)
	}

	doc := documents.Document{ID: qid(3), OwnerID: ownerID, ContractID: contract.ID, TypeName: "profile", Properties: map[string]any{"displayName": "alice"}}
	if err := docs.Create(doc, contract); err != nil {
		t.Fatalf("create document: %v", err)
	}

	s := NewServer("127.0.0.1:0", identities, contractMgr, docs, store, state, nil, nil)
	return s, ownerID
}

func TestHandleIdentityBalance(t *testing.T) {
	s, owner := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/identity/"+hex.EncodeToString(owner.Bytes())+"/balance", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]uint64
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["balance"] != 777 {
		t.Fatalf("balance = %d, want 777", body["balance"])
	}
}

func TestHandleIdentityBalanceNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/identity/"+hex.EncodeToString(qid(99).Bytes())+"/balance", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleIdentityKeys(t *testing.T) {
	s, owner := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/identity/"+hex.EncodeToString(owner.Bytes())+"/keys", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var keys []identity.PublicKey
	if err := json.Unmarshal(rec.Body.Bytes(), &keys); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("keys = %d, want 1", len(keys))
	}
}

func TestHandleDataContract(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/dataContract/"+hex.EncodeToString(qid(2).Bytes()), nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleDataContracts(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/dataContracts?ids="+hex.EncodeToString(qid(2).Bytes())+",deadbeef", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out []contracts.DataContract
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("contracts = %d, want 1 (malformed id skipped)", len(out))
	}
}

func TestHandleDocument(t *testing.T) {
	s, _ := newTestServer(t)
	url := "/documents/" + hex.EncodeToString(qid(2).Bytes()) + "/profile/" + hex.EncodeToString(qid(3).Bytes())
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleDataContractDocumentsByIndex(t *testing.T) {
	s, _ := newTestServer(t)
	url := "/dataContract/" + hex.EncodeToString(qid(2).Bytes()) + "/documents/profile?index=byDisplayName&value=alice"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

// TestHandleBlobRoutesWithoutGatewayConfigured guards against a nil
// Blobs gateway crashing the /blobs routes instead of answering 503, the
// expected state for a node that never configured blob_gateway_endpoint.
func TestHandleBlobRoutesWithoutGatewayConfigured(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/blobs", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("pin status = %d, want 503", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/blobs/deadbeef", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("retrieve status = %d, want 503", rec.Code)
	}
}

func TestHandleDataContractDocumentsMissingQuery(t *testing.T) {
	s, _ := newTestServer(t)
	url := "/dataContract/" + hex.EncodeToString(qid(2).Bytes()) + "/documents/profile"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
