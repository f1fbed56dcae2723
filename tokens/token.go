// Package tokens implements the platform's per-contract token
// subsystem: balances, distribution rules (pre-programmed, perpetual,
// direct-purchase), control rules (freeze/pause/price), and the
// subscription filter predicate tree. Grounded on core/tokens.go's
// Token/BaseToken/BalanceTable/registry shape, generalized from 50
// globally-registered canonical assets to per-contract, per-position
// tokens addressed by calculate_token_id(contract_id, position).
package tokens

import (
	"fmt"
	"sync"

	"synnergy-platform/core"
)

// TokenID identifies one token instance: derived deterministically from
// its owning contract and declared position, mirroring core/tokens.go's
// deriveID but salted by contract instead of a fixed standard byte.
type TokenID [32]byte

// CalculateTokenID derives a TokenID from a contract and its declared
// token position (spec.md §4.4 "calculate_token_id(contract_id, position)").
func CalculateTokenID(contractID core.Identifier, position uint16) TokenID {
	var entropy [32]byte
	copy(entropy[:], contractID.Bytes())
	entropy[30] = byte(position >> 8)
	entropy[31] = byte(position)
	id := core.DeriveIdentifier("token", entropy, contractID)
	return TokenID(id)
}

func (t TokenID) String() string { return core.Identifier(t).String() }

// BalanceTable tracks per-(token, identity) balances plus a parallel
// frozen-balance map, the supply-invariant's two addends (spec.md §4.4
// "total_supply(token) = Σ per_identity_balance + Σ frozen_balances").
// Grounded on core/tokens.go's BalanceTable, generalized from Address to
// core.Identifier and split to track frozen funds separately.
type BalanceTable struct {
	mu       sync.RWMutex
	balances map[TokenID]map[core.Identifier]uint64
	frozen   map[TokenID]map[core.Identifier]uint64
}

// NewBalanceTable returns an empty table.
func NewBalanceTable() *BalanceTable {
	return &BalanceTable{
		balances: make(map[TokenID]map[core.Identifier]uint64),
		frozen:   make(map[TokenID]map[core.Identifier]uint64),
	}
}

func (bt *BalanceTable) Get(token TokenID, id core.Identifier) uint64 {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return bt.balances[token][id]
}

func (bt *BalanceTable) Frozen(token TokenID, id core.Identifier) uint64 {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return bt.frozen[token][id]
}

func (bt *BalanceTable) Add(token TokenID, id core.Identifier, amount uint64) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if bt.balances[token] == nil {
		bt.balances[token] = make(map[core.Identifier]uint64)
	}
	bt.balances[token][id] += amount
}

func (bt *BalanceTable) Sub(token TokenID, id core.Identifier, amount uint64) error {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if bt.balances[token][id] < amount {
		return fmt.Errorf("tokens: insufficient balance: %w", core.ErrInvalidState)
	}
	bt.balances[token][id] -= amount
	return nil
}

// TotalSupply sums every identity's balance plus every frozen balance for
// token (spec.md §4.4's supply invariant).
func (bt *BalanceTable) TotalSupply(token TokenID) uint64 {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	var total uint64
	for _, v := range bt.balances[token] {
		total += v
	}
	for _, v := range bt.frozen[token] {
		total += v
	}
	return total
}

// Freeze moves amount from an identity's spendable balance into its
// frozen balance for token.
func (bt *BalanceTable) Freeze(token TokenID, id core.Identifier, amount uint64) error {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if bt.balances[token][id] < amount {
		return fmt.Errorf("tokens: insufficient balance to freeze: %w", core.ErrInvalidState)
	}
	bt.balances[token][id] -= amount
	if bt.frozen[token] == nil {
		bt.frozen[token] = make(map[core.Identifier]uint64)
	}
	bt.frozen[token][id] += amount
	return nil
}

// Unfreeze moves amount back from frozen to spendable.
func (bt *BalanceTable) Unfreeze(token TokenID, id core.Identifier, amount uint64) error {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if bt.frozen[token][id] < amount {
		return fmt.Errorf("tokens: insufficient frozen balance: %w", core.ErrInvalidState)
	}
	bt.frozen[token][id] -= amount
	if bt.balances[token] == nil {
		bt.balances[token] = make(map[core.Identifier]uint64)
	}
	bt.balances[token][id] += amount
	return nil
}

// DestroyFrozen reduces a frozen balance and the token's total supply
// without crediting anyone (spec.md §4.4 "destroy-frozen-funds").
func (bt *BalanceTable) DestroyFrozen(token TokenID, id core.Identifier, amount uint64) error {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if bt.frozen[token][id] < amount {
		return fmt.Errorf("tokens: insufficient frozen balance to destroy: %w", core.ErrInvalidState)
	}
	bt.frozen[token][id] -= amount
	return nil
}

// IsFrozen reports whether id has any frozen balance for token at all —
// used by the transfer-precondition check (spec.md §4.4 "transfer from a
// frozen sender fails"), which treats any frozen balance as sender-level
// freeze rather than tracking a separate freeze flag.
func (bt *BalanceTable) IsFrozen(token TokenID, id core.Identifier) bool {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return bt.frozen[token][id] > 0
}

// TokenState holds one contract-declared token's full runtime
// configuration and distribution state (spec.md §3 "TokenState").
type TokenState struct {
	ID         TokenID
	ContractID core.Identifier
	Position   uint16
	Paused     bool

	PreProgrammed *PreProgrammedDistribution
	Perpetual     *PerpetualDistribution
	Purchase      *DirectPurchase
}

// Registry is the in-memory, GroveStore-agnostic catalog of live token
// states keyed by TokenID, mirroring core/tokens.go's registry singleton
// but instantiated per block-execution context instead of a process-wide
// global, and addressed by TokenID instead of a fixed byte-coded standard.
type Registry struct {
	mu     sync.RWMutex
	tokens map[TokenID]*TokenState
	Balances *BalanceTable
}

// NewRegistry returns an empty registry with a fresh balance table.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[TokenID]*TokenState), Balances: NewBalanceTable()}
}

// Create registers a new token state, failing if its ID is already taken.
func (r *Registry) Create(t *TokenState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[t.ID]; ok {
		return fmt.Errorf("tokens: token %s already registered: %w", t.ID, core.ErrAlreadyExists)
	}
	r.tokens[t.ID] = t
	return nil
}

// Get looks up a token state by ID.
func (r *Registry) Get(id TokenID) (*TokenState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tokens[id]
	return t, ok
}

// Mint increases total supply and the recipient's balance.
func (r *Registry) Mint(id TokenID, to core.Identifier, amount uint64) error {
	if _, ok := r.Get(id); !ok {
		return fmt.Errorf("tokens: unknown token %s: %w", id, core.ErrNotFound)
	}
	r.Balances.Add(id, to, amount)
	return nil
}

// Burn decreases total supply and the holder's balance.
func (r *Registry) Burn(id TokenID, from core.Identifier, amount uint64) error {
	if _, ok := r.Get(id); !ok {
		return fmt.Errorf("tokens: unknown token %s: %w", id, core.ErrNotFound)
	}
	return r.Balances.Sub(id, from, amount)
}

// Transfer moves amount from->to, rejecting paused tokens and frozen
// participants (spec.md §4.4).
func (r *Registry) Transfer(id TokenID, from, to core.Identifier, amount uint64) error {
	t, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("tokens: unknown token %s: %w", id, core.ErrNotFound)
	}
	if t.Paused {
		return fmt.Errorf("tokens: token %s is paused: %w", id, core.ErrInvalidState)
	}
	if r.Balances.IsFrozen(id, from) {
		return fmt.Errorf("tokens: sender %s is frozen: %w", from, core.ErrInvalidState)
	}
	if r.Balances.IsFrozen(id, to) {
		return fmt.Errorf("tokens: recipient %s is frozen: %w", to, core.ErrInvalidState)
	}
	if err := r.Balances.Sub(id, from, amount); err != nil {
		return err
	}
	r.Balances.Add(id, to, amount)
	return nil
}
