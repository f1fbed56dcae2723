package fees

import (
	"sync"

	"synnergy-platform/core"
)

// PoolKind names one of the sum-tree pools spec.md §3 lists under the
// root state tree's `Pools` entry.
type PoolKind uint8

const (
	PoolStorage PoolKind = iota
	PoolProcessing
	PoolProposer
	PoolMasternode
)

// PoolDistributor accumulates collected fees per pool and, at epoch
// rollover, redistributes matured processing-pool balances to the
// proposer and masternode pools by a weighted schedule (spec.md §4.2
// "pool distribution"). Grounded on core/transaction_fee_distribution_management.go's
// TxFeeManager: a mutex-guarded accumulator with a percentage-weighted
// Distribute step, generalized from a flat miner/staker/loan-pool split
// into the platform's storage/processing/proposer/masternode pools.
type PoolDistributor struct {
	mu      sync.Mutex
	balance map[PoolKind]core.Credits

	// ProposerShareBps (basis points out of 10000) sets the block
	// proposer's part of a processing-pool rollover; the wider masternode
	// set receives the remainder. MasternodeShareBps is stored but
	// RolloverEpoch does not read it.
	ProposerShareBps   uint32
	MasternodeShareBps uint32
}

// NewPoolDistributor constructs a distributor with the given
// proposer/masternode split; the two shares are not checked against each
// other.
func NewPoolDistributor(proposerShareBps, masternodeShareBps uint32) *PoolDistributor {
	return &PoolDistributor{
		balance:            make(map[PoolKind]core.Credits),
		ProposerShareBps:   proposerShareBps,
		MasternodeShareBps: masternodeShareBps,
	}
}

// CreditStorageFee adds a collected storage fee to the storage pool.
func (d *PoolDistributor) CreditStorageFee(amount core.Credits) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.balance[PoolStorage] += amount
}

// CreditProcessingFee adds a collected processing fee to the processing
// pool, pending epoch-rollover distribution.
func (d *PoolDistributor) CreditProcessingFee(amount core.Credits) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.balance[PoolProcessing] += amount
}

// DebitRefund removes amount from the storage pool to pay a refund
// (spec.md §4.2 "refunds are paid additionally from the storage pool").
// Returns core.ErrInvalidState if the storage pool cannot cover it — a
// condition the balance invariant check (invariant.go) should never let
// arise in a correctly accounted system.
func (d *PoolDistributor) DebitRefund(amount core.Credits) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.balance[PoolStorage] < amount {
		return core.ErrInvalidState
	}
	d.balance[PoolStorage] -= amount
	return nil
}

// RolloverEpoch distributes the processing pool's current balance between
// the proposer and masternode pools per the configured basis-point split,
// zeroing the processing pool. Called once at each epoch boundary.
func (d *PoolDistributor) RolloverEpoch() {
	d.mu.Lock()
	total := d.balance[PoolProcessing]
	d.balance[PoolProcessing] = 0
	d.mu.Unlock()

	if total == 0 {
		return
	}
	proposerShare := core.Credits(uint64(total) * uint64(d.ProposerShareBps) / 10000)
	masternodeShare := total - proposerShare

	d.mu.Lock()
	d.balance[PoolProposer] += proposerShare
	d.balance[PoolMasternode] += masternodeShare
	d.mu.Unlock()
}

// Balance returns a pool's current balance.
func (d *PoolDistributor) Balance(kind PoolKind) core.Credits {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.balance[kind]
}

// TotalPoolCredits sums every pool's balance, the `Pools` sum-tree
// contribution to the global balance invariant (spec.md §4.2 "balance
// invariant proof").
func (d *PoolDistributor) TotalPoolCredits() core.Credits {
	d.mu.Lock()
	defer d.mu.Unlock()
	var total core.Credits
	for _, v := range d.balance {
		total += v
	}
	return total
}
