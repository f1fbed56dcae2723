package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// BlobGateway pins large, content-addressed binary payloads (document
// attachments such as a dashpay profile's avatar image) to an external
// content-addressable network and caches them on disk, computing a
// content ID deterministically so the GroveStore only ever needs to keep
// a small Reference-shaped pointer, not the bytes themselves. Adapted
// from core/storage.go's IPFS gateway wrapper: same CID computation, same
// on-disk LRU cache shape, without the cross-chain coin transfer; the
// gateway itself charges no credits.
type BlobGateway struct {
	logger      *logrus.Logger
	client      *http.Client
	cache       *diskLRU
	pinEndpoint string
	getEndpoint string
}

// GatewayConfig configures a BlobGateway.
type GatewayConfig struct {
	Endpoint         string
	CacheDir         string
	CacheSizeEntries int
	Timeout          time.Duration
}

// NewBlobGateway wires a BlobGateway against an IPFS-compatible HTTP
// gateway and a local disk cache directory.
func NewBlobGateway(cfg GatewayConfig, logger *logrus.Logger) (*BlobGateway, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("storage: gateway endpoint required")
	}
	cache, err := newDiskLRU(cfg.CacheDir, cfg.CacheSizeEntries)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	g := &BlobGateway{
		logger:      logger,
		client:      &http.Client{Timeout: timeout},
		cache:       cache,
		pinEndpoint: cfg.Endpoint + "/api/v0/add?pin=true",
		getEndpoint: cfg.Endpoint + "/ipfs/",
	}
	logger.Infof("storage: blob gateway %s cache %s", cfg.Endpoint, cfg.CacheDir)
	return g, nil
}

// Pin uploads data and returns its content ID and byte length. The CID is
// computed locally first so callers can reference it before the upload
// round-trip completes, and so a cache hit short-circuits the network
// call entirely.
func (g *BlobGateway) Pin(ctx context.Context, data []byte) (string, int64, error) {
	encodedMH, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return "", 0, err
	}
	c := cid.NewCidV1(cid.Raw, encodedMH)
	cidStr := c.String()

	if _, ok := g.cache.get(cidStr); ok {
		return cidStr, int64(len(data)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.pinEndpoint, bytes.NewReader(data))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", 0, fmt.Errorf("gateway pin %d: %s", resp.StatusCode, string(b))
	}

	var meta struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", 0, fmt.Errorf("decode: %w", err)
	}
	if meta.Hash != cidStr {
		return "", 0, errors.New("storage: cid mismatch between local computation and gateway response")
	}

	_ = g.cache.put(cidStr, data)
	g.logger.Infof("storage: pinned blob %s (%d bytes)", cidStr, len(data))
	return cidStr, int64(len(data)), nil
}

// Retrieve fetches data for a CID, preferring the local cache.
func (g *BlobGateway) Retrieve(ctx context.Context, cidStr string) ([]byte, error) {
	if b, ok := g.cache.get(cidStr); ok {
		return b, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.getEndpoint+cidStr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 128))
		return nil, fmt.Errorf("gateway fetch %d: %s", resp.StatusCode, string(b))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	_ = g.cache.put(cidStr, data)
	g.logger.Infof("storage: retrieved blob %s (%d bytes)", cidStr, len(data))
	return data, nil
}

// --- on-disk LRU, unchanged in shape from the teacher's diskLRU ---

const defaultDiskCacheEntries = 10_000

type diskEntry struct {
	path string
	size int64
	at   time.Time
}

type diskLRU struct {
	mu    sync.Mutex
	dir   string
	max   int
	index map[string]*diskEntry
	order []*diskEntry
}

func newDiskLRU(dir string, maxEntries int) (*diskLRU, error) {
	if maxEntries <= 0 {
		maxEntries = defaultDiskCacheEntries
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &diskLRU{dir: dir, max: maxEntries, index: make(map[string]*diskEntry)}, nil
}

func (l *diskLRU) put(cidStr string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.index[cidStr]; ok {
		ent.at = time.Now()
		return nil
	}
	if len(l.index) >= l.max && len(l.order) > 0 {
		oldest := l.order[0]
		_ = os.Remove(oldest.path)
		delete(l.index, filepath.Base(oldest.path))
		l.order = l.order[1:]
	}
	p := filepath.Join(l.dir, cidStr)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return err
	}
	ent := &diskEntry{path: p, size: int64(len(data)), at: time.Now()}
	l.index[cidStr] = ent
	l.order = append(l.order, ent)
	return nil
}

func (l *diskLRU) get(cidStr string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ent, ok := l.index[cidStr]
	if !ok {
		return nil, false
	}
	ent.at = time.Now()
	b, err := os.ReadFile(ent.path)
	if err != nil {
		return nil, false
	}
	return b, true
}

// BlobRef is the small Reference-shaped pointer a document stores in the
// GroveStore in place of the blob's bytes: the content ID, size, and the
// storage flags used to compute the byte's refund schedule.
type BlobRef struct {
	CID       string       `json:"cid"`
	SizeBytes int64        `json:"size_bytes"`
	Flags     StorageFlags `json:"flags"`
}

// NewBlobRefElement wraps a BlobRef as an Item element for insertion into
// a GroveStore path, keeping the document tree itself small regardless of
// attachment size.
func NewBlobRefElement(ref BlobRef) (Element, error) {
	raw, err := json.Marshal(ref)
	if err != nil {
		return Element{}, err
	}
	return NewItem(raw), nil
}

// DecodeBlobRef reverses NewBlobRefElement.
func DecodeBlobRef(e Element) (BlobRef, error) {
	var ref BlobRef
	if e.Kind != KindItem {
		return ref, fmt.Errorf("storage: element is not an item: %s", e.Kind)
	}
	err := json.Unmarshal(e.ItemValue, &ref)
	return ref, err
}

// StorageListing and StorageDeal model the teacher's provider/client
// escrow-backed storage market, generalized here to record credits
// (spec.md's fee unit) instead of a generic coin amount.
type StorageListing struct {
	ID         string    `json:"id"`
	Provider   [32]byte  `json:"provider"`
	PricePerGB uint64    `json:"price_per_gb_credits"`
	CapacityGB int       `json:"capacity_gb"`
	CreatedAt  time.Time `json:"created_at"`
}

type StorageDeal struct {
	ID         string     `json:"id"`
	ListingID  string     `json:"listing_id"`
	Client     [32]byte   `json:"client"`
	Duration   time.Duration `json:"duration"`
	TotalPrice uint64     `json:"total_price_credits"`
	CreatedAt  time.Time  `json:"created_at"`
	Closed     bool       `json:"closed"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// OpenDeal computes a deal's total price from the listing it references.
// It does no escrow or settlement; it only prices and records the
// agreement.
func OpenDeal(listing StorageListing, client [32]byte, duration time.Duration) StorageDeal {
	logger := zap.L().Sugar()
	deal := StorageDeal{
		ID:         uuid.New().String(),
		ListingID:  listing.ID,
		Client:     client,
		Duration:   duration,
		TotalPrice: listing.PricePerGB * uint64(listing.CapacityGB),
		CreatedAt:  time.Now().UTC(),
	}
	logger.Infof("storage: deal %s opened against listing %s (%d credits)", deal.ID, listing.ID, deal.TotalPrice)
	return deal
}

// Close marks a deal closed, returning ErrInvalidState if already closed.
func (d *StorageDeal) Close() error {
	logger := zap.L().Sugar()
	if d.Closed {
		logger.Warnf("storage: deal %s already closed", d.ID)
		return ErrInvalidState
	}
	now := time.Now().UTC()
	d.Closed = true
	d.ClosedAt = &now
	logger.Infof("storage: deal %s closed", d.ID)
	return nil
}

// leasePath is the GroveStore path every open and closed StorageDeal lives
// under, keyed by its generated deal ID.
func leasePath() [][]byte {
	return [][]byte{[]byte("StorageLeases")}
}

// LeaseRegistry persists StorageDeal records against a KVStore, the
// missing link that otherwise left OpenDeal/StorageDeal as plain values
// with nowhere durable to live across block boundaries.
type LeaseRegistry struct {
	store KVStore
}

// NewLeaseRegistry wraps store for storage-lease bookkeeping.
func NewLeaseRegistry(store KVStore) *LeaseRegistry {
	return &LeaseRegistry{store: store}
}

// Open prices and records a new lease against listing, durably.
func (r *LeaseRegistry) Open(listing StorageListing, client [32]byte, duration time.Duration) (StorageDeal, error) {
	deal := OpenDeal(listing, client, duration)
	raw, err := json.Marshal(deal)
	if err != nil {
		return StorageDeal{}, err
	}
	b := NewBatch()
	b.Insert(leasePath(), []byte(deal.ID), NewItem(raw))
	if err := r.store.ApplyBatch(b); err != nil {
		return StorageDeal{}, err
	}
	return deal, nil
}

// Get loads a lease by deal ID.
func (r *LeaseRegistry) Get(dealID string) (StorageDeal, error) {
	e, err := r.store.Get(leasePath(), []byte(dealID))
	if err != nil {
		return StorageDeal{}, err
	}
	var deal StorageDeal
	if err := json.Unmarshal(e.ItemValue, &deal); err != nil {
		return StorageDeal{}, fmt.Errorf("storage: decode lease: %w", err)
	}
	return deal, nil
}

// Close loads, closes, and persists the lease's closed state.
func (r *LeaseRegistry) Close(dealID string) (StorageDeal, error) {
	deal, err := r.Get(dealID)
	if err != nil {
		return StorageDeal{}, err
	}
	if err := deal.Close(); err != nil {
		return StorageDeal{}, err
	}
	raw, err := json.Marshal(deal)
	if err != nil {
		return StorageDeal{}, err
	}
	b := NewBatch()
	b.Replace(leasePath(), []byte(dealID), NewItem(raw))
	if err := r.store.ApplyBatch(b); err != nil {
		return StorageDeal{}, err
	}
	return deal, nil
}
