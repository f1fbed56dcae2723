package tokens

import (
	"fmt"
	"math"
	"sort"

	"synnergy-platform/core"
)

// ErrNoCurrentRewards is the paid consensus error spec.md §4.4 requires
// when a claim has no matured, unclaimed entries.
var ErrNoCurrentRewards = fmt.Errorf("tokens: no current rewards due: %w", core.ErrInvalidState)

// PreProgrammedDistribution is a sorted schedule of time-keyed payouts
// per recipient, with a per-entry claimed flag standing in for the
// per-recipient claim cursor spec.md §4.4 describes (equivalent: once
// every entry at-or-before T is marked claimed, no entry at-or-before T
// can mature again). Grounded on core/tokens.go's Factory-seeded initial
// balances, generalized from a single genesis allocation to a schedule
// claimed incrementally over time.
type PreProgrammedDistribution struct {
	// Entries is ordered ascending by TimeMs.
	Entries []ScheduleEntry
	claimed []bool
}

// ScheduleEntry is one time-keyed payout line.
type ScheduleEntry struct {
	TimeMs    uint64
	Recipient core.Identifier
	Amount    uint64
}

// NewPreProgrammedDistribution builds a schedule from entries, sorting by
// TimeMs to establish claim order.
func NewPreProgrammedDistribution(entries []ScheduleEntry) *PreProgrammedDistribution {
	sorted := append([]ScheduleEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TimeMs < sorted[j].TimeMs })
	return &PreProgrammedDistribution{Entries: sorted, claimed: make([]bool, len(sorted))}
}

// Claim pays caller the sum of every not-yet-claimed entry targeting them
// with TimeMs <= blockTimeMs, marking each paid entry claimed so it can
// never mature again. Returns ErrNoCurrentRewards if nothing is due.
func (d *PreProgrammedDistribution) Claim(caller core.Identifier, blockTimeMs uint64) (uint64, error) {
	var total uint64
	var matured bool
	for i, e := range d.Entries {
		if d.claimed[i] || e.Recipient != caller || e.TimeMs > blockTimeMs {
			continue
		}
		total += e.Amount
		d.claimed[i] = true
		matured = true
	}
	if !matured {
		return 0, ErrNoCurrentRewards
	}
	return total, nil
}

// RewardFunction computes a perpetual distribution's payout at a given
// elapsed-interval count (spec.md §4.4 Linear/Exponential/Stepwise/
// FixedAmount).
type RewardFunction interface {
	Amount(intervalsElapsed uint64) uint64
}

type FixedAmount struct{ A uint64 }

func (f FixedAmount) Amount(uint64) uint64 { return f.A }

type Linear struct {
	Slope, Offset uint64
}

func (l Linear) Amount(n uint64) uint64 { return l.Offset + l.Slope*n }

type Exponential struct {
	Base   uint64
	Growth float64 // multiplicative growth per interval, e.g. 1.05
}

func (e Exponential) Amount(n uint64) uint64 {
	return uint64(math.Round(float64(e.Base) * math.Pow(e.Growth, float64(n))))
}

type Stepwise struct {
	// Steps maps a threshold interval count to the amount paid once
	// intervalsElapsed reaches it; the highest matching threshold wins.
	Steps map[uint64]uint64
}

// Amount pays the amount associated with the largest declared threshold
// that is <= n, or 0 if n precedes every threshold.
func (s Stepwise) Amount(n uint64) uint64 {
	var bestThresh uint64
	var found bool
	for threshold := range s.Steps {
		if threshold <= n && (!found || threshold > bestThresh) {
			bestThresh = threshold
			found = true
		}
	}
	if !found {
		return 0
	}
	return s.Steps[bestThresh]
}

// DistributionInterval names the cadence a PerpetualDistribution accrues
// on (spec.md §4.4 BlockBased/TimeBased/EpochBased).
type DistributionInterval uint8

const (
	IntervalBlockBased DistributionInterval = iota
	IntervalTimeBased
	IntervalEpochBased
)

// PerpetualDistribution pays Recipient a RewardFunction-computed amount
// each time Interval elapses, tracked via a monotonically advancing
// cursor of the last interval count paid.
type PerpetualDistribution struct {
	Recipient core.Identifier
	Interval  DistributionInterval
	Period    uint64 // blocks, milliseconds, or epochs depending on Interval
	Function  RewardFunction

	lastPaidCount uint64
}

// Accrue computes the payout owed given the current absolute counter
// (block height, time_ms, or epoch depending on Interval), paying out
// once per elapsed Period and advancing the internal cursor. Returns 0,
// false if no full period has elapsed since the last accrual.
func (p *PerpetualDistribution) Accrue(currentCounter uint64) (uint64, bool) {
	if p.Period == 0 {
		return 0, false
	}
	currentIntervals := currentCounter / p.Period
	if currentIntervals <= p.lastPaidCount {
		return 0, false
	}
	var total uint64
	for n := p.lastPaidCount + 1; n <= currentIntervals; n++ {
		total += p.Function.Amount(n)
	}
	p.lastPaidCount = currentIntervals
	return total, true
}

// TokenPricingSchedule maps a purchasable token count to its total price
// in credits (spec.md §4.4 DirectPurchase).
type TokenPricingSchedule map[uint64]core.Credits

// DirectPurchase is a fixed pricing schedule a buyer can purchase a
// declared token_count against.
type DirectPurchase struct {
	Schedule TokenPricingSchedule
}

// PriceFor looks up the exact total price for count tokens, failing if
// the schedule has no entry for that count (spec.md does not define
// interpolation between schedule points).
func (d DirectPurchase) PriceFor(count uint64) (core.Credits, error) {
	price, ok := d.Schedule[count]
	if !ok {
		return 0, fmt.Errorf("tokens: no price schedule entry for count %d: %w", count, core.ErrNotFound)
	}
	return price, nil
}
