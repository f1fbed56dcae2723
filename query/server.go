// Package query implements the platform's read-only HTTP query surface:
// a fixed set of named query paths serving reads of the identity,
// contract and document registries. Every handler returns data only; no
// query path takes a prove flag or returns a proof. Grounded on
// cmd/explorer/server.go's
// gorilla/mux-routed Server, generalized from block/tx explorer
// endpoints to the identity/contract/document query paths spec.md §6
// names.
package query

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"synnergy-platform/contracts"
	"synnergy-platform/core"
	"synnergy-platform/documents"
	"synnergy-platform/identity"
	"synnergy-platform/storage"
)

// Server exposes the query contract over HTTP. Grounded on
// cmd/explorer/server.go's Server shape (a wrapped mux.Router plus
// http.Server), generalized to take the platform's read registries
// instead of a single ledger pointer.
type Server struct {
	router     *mux.Router
	httpServer *http.Server

	Identities *identity.Registry
	Contracts  *contracts.Manager
	Documents  *documents.Registry
	Store      storage.KVStore
	State      *core.PlatformStateHandle
	Logger     *logrus.Logger

	// Blobs pins and serves document attachments ahead of a transition's
	// submission, off the deterministic execution path (spec.md §9); nil
	// when the node has no content-addressed gateway configured.
	Blobs *storage.BlobGateway

	// AccessLog records one structured line per served request (method,
	// path, status, latency), kept separate from Logger's debug-level
	// request trace the way the teacher splits its hot logrus path from
	// its zap-backed marketplace logging.
	AccessLog *zap.SugaredLogger
}

// NewServer constructs the router and HTTP server bound to addr. blobs
// may be nil when the node has no content-addressed gateway configured,
// in which case the /blobs routes answer 503.
func NewServer(addr string, identities *identity.Registry, contractMgr *contracts.Manager, docs *documents.Registry, store storage.KVStore, state *core.PlatformStateHandle, blobs *storage.BlobGateway, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		Identities: identities,
		Contracts:  contractMgr,
		Documents:  docs,
		Store:      store,
		State:      state,
		Blobs:      blobs,
		Logger:     logger,
		AccessLog:  zap.L().Sugar(),
		router:     mux.NewRouter(),
	}
	s.routes()
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// Start blocks serving HTTP until the server is shut down or fails.
func (s *Server) Start() error { return s.httpServer.ListenAndServe() }

func (s *Server) routes() {
	s.router.Use(s.loggingMiddleware)
	s.router.HandleFunc("/identity/{id}/balance", s.handleIdentityBalance).Methods("GET")
	s.router.HandleFunc("/identity/{id}/balanceAndRevision", s.handleIdentityBalanceAndRevision).Methods("GET")
	s.router.HandleFunc("/identity/{id}/keys", s.handleIdentityKeys).Methods("GET")
	s.router.HandleFunc("/identity/by-public-key-hash/{hash}", s.handleIdentityByKeyHash).Methods("GET")
	s.router.HandleFunc("/identities/by-public-key-hash", s.handleIdentitiesByKeyHash).Methods("GET")
	s.router.HandleFunc("/dataContract/{id}", s.handleDataContract).Methods("GET")
	s.router.HandleFunc("/dataContracts", s.handleDataContracts).Methods("GET")
	s.router.HandleFunc("/dataContract/{contractId}/documents/{typeName}", s.handleDataContractDocuments).Methods("GET")
	s.router.HandleFunc("/documents/{contractId}/{typeName}/{id}", s.handleDocument).Methods("GET")
	s.router.HandleFunc("/blobs", s.handleBlobPin).Methods("POST")
	s.router.HandleFunc("/blobs/{cid}", s.handleBlobRetrieve).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

type statusCapturingWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusCapturingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Logger.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("query: request")

		start := time.Now()
		sw := &statusCapturingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		if s.AccessLog != nil {
			s.AccessLog.Infow("query access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	})
}

func parseIdentifier(hexStr string) (core.Identifier, error) {
	var out core.Identifier
	raw, err := hex.DecodeString(hexStr)
	if err != nil || len(raw) != len(out) {
		return out, core.ErrInvalidState
	}
	copy(out[:], raw)
	return out, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	http.Error(w, err.Error(), status)
}

// maxBlobPinBytes caps an attachment upload so a single /blobs POST can't
// exhaust the node's memory; large media belongs behind a dedicated
// object store, not this convenience endpoint.
const maxBlobPinBytes = 64 << 20

func ioReadAllLimited(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxBlobPinBytes+1))
}

func (s *Server) handleIdentityBalance(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdentifier(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	got, err := s.Identities.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, map[string]any{"balance": got.Balance})
}

func (s *Server) handleIdentityBalanceAndRevision(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdentifier(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	got, err := s.Identities.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, map[string]any{"balance": got.Balance, "revision": got.Revision})
}

func (s *Server) handleIdentityKeys(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdentifier(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	got, err := s.Identities.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, got.Keys)
}

func (s *Server) handleIdentityByKeyHash(w http.ResponseWriter, r *http.Request) {
	hashHex := mux.Vars(r)["hash"]
	pub, err := hex.DecodeString(hashHex)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	got, err := s.Identities.ResolveByKeyHash(pub)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, got)
}

func (s *Server) handleIdentitiesByKeyHash(w http.ResponseWriter, r *http.Request) {
	hashes := r.URL.Query()["hash"]
	out := make([]identity.Identity, 0, len(hashes))
	for _, h := range hashes {
		pub, err := hex.DecodeString(h)
		if err != nil {
			continue
		}
		got, err := s.Identities.ResolveByKeyHash(pub)
		if err != nil {
			continue
		}
		out = append(out, got)
	}
	writeJSON(w, out)
}

func (s *Server) handleDataContract(w http.ResponseWriter, r *http.Request) {
	id, err := parseIdentifier(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	got, err := s.Contracts.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, got)
}

func (s *Server) handleDataContracts(w http.ResponseWriter, r *http.Request) {
	ids := strings.Split(r.URL.Query().Get("ids"), ",")
	out := make([]contracts.DataContract, 0, len(ids))
	for _, idHex := range ids {
		idHex = strings.TrimSpace(idHex)
		if idHex == "" {
			continue
		}
		id, err := parseIdentifier(idHex)
		if err != nil {
			continue
		}
		got, err := s.Contracts.Get(id)
		if err != nil {
			continue
		}
		out = append(out, got)
	}
	writeJSON(w, out)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	contractID, err := parseIdentifier(vars["contractId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := parseIdentifier(vars["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	got, err := s.Documents.Get(contractID, vars["typeName"], id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, got)
}

// handleBlobPin pins a document attachment's bytes to the content-
// addressed gateway ahead of the owning transition's submission, so the
// transition body only ever needs to carry the returned CID and size
// (DocumentAttachment). This is the off-chain half of attachment
// handling spec.md §9's deterministic-execution rule forces out of the
// pipeline.
func (s *Server) handleBlobPin(w http.ResponseWriter, r *http.Request) {
	if s.Blobs == nil {
		writeError(w, http.StatusServiceUnavailable, core.ErrInvalidState)
		return
	}
	data, err := ioReadAllLimited(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cidStr, size, err := s.Blobs.Pin(r.Context(), data)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, map[string]any{"cid": cidStr, "size_bytes": size})
}

// handleBlobRetrieve fetches a previously pinned attachment's bytes by
// CID, preferring the gateway's local disk cache.
func (s *Server) handleBlobRetrieve(w http.ResponseWriter, r *http.Request) {
	if s.Blobs == nil {
		writeError(w, http.StatusServiceUnavailable, core.ErrInvalidState)
		return
	}
	data, err := s.Blobs.Retrieve(r.Context(), mux.Vars(r)["cid"])
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

// handleDataContractDocuments serves /dataContract/documents with a
// where-clause limited to a single named-index equality match (spec.md
// §6's full where/orderBy/paging surface is the query gateway's concern,
// out of scope per spec.md §1 "the gRPC/HTTP query surface (§6 names its
// contract, not its wire framing)"; this handler implements the one
// lookup shape the storage layer's secondary indices directly support:
// a unique index over a single string property, whose value is encoded
// the way documents.IndexKey encodes it).
func (s *Server) handleDataContractDocuments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	contractID, err := parseIdentifier(vars["contractId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	indexName := r.URL.Query().Get("index")
	indexValue := r.URL.Query().Get("value")
	if indexName == "" || indexValue == "" {
		writeError(w, http.StatusBadRequest, core.ErrInvalidState)
		return
	}
	key := append([]byte{byte(len(indexValue))}, indexValue...)
	got, err := s.Documents.ResolveByIndex(contractID, vars["typeName"], indexName, key)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, got)
}

