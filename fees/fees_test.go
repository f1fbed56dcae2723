package fees

import (
	"testing"

	"synnergy-platform/core"
)

func TestRefundCalibrationScenarios(t *testing.T) {
	tests := []struct {
		name    string
		ageEpochs core.Epoch
		wantPct int
		// exact, "> threshold", or "< threshold" checks per spec.md §8
		minAbove *int
	}{
		{"same-block", 0, 99, pct(99)},
		{"one-epoch-later", 1, 99, pct(99)},
		{"one-year-40-epochs", 40, 94, nil},
		{"25-years-1000-epochs", 1000, 21, nil},
		{"50-years-2000-epochs-horizon", 2000, 0, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RefundPercent(0, tc.ageEpochs)
			if tc.minAbove != nil {
				exact := remainingRatio(tc.ageEpochs) * 100
				if exact <= float64(*tc.minAbove) {
					t.Fatalf("refund pct = %.4f, want > %d", exact, *tc.minAbove)
				}
				return
			}
			if got != tc.wantPct {
				t.Fatalf("refund pct = %d, want %d", got, tc.wantPct)
			}
		})
	}
}

func pct(p int) *int { return &p }

func TestComputeRefundBounds(t *testing.T) {
	table, ok := VersionTable(1)
	if !ok {
		t.Fatalf("fee version 1 not registered")
	}
	storageFee := StorageFeeForBytes(table, 173)

	refund := ComputeRefund(173, table.StorageCreditPerByteEpoch, 0, 0)
	if refund <= core.Credits(float64(storageFee)*0.99) {
		t.Fatalf("same-block refund %d not > 0.99 * storage_fee (%d)", refund, storageFee)
	}
	if refund >= storageFee {
		t.Fatalf("same-block refund %d should be < storage_fee %d", refund, storageFee)
	}
}

func TestComputeRefundMonotoneDecay(t *testing.T) {
	table, _ := VersionTable(1)
	var prev core.Credits = core.Credits(^uint64(0) >> 1)
	for _, age := range []core.Epoch{0, 1, 40, 400, 1000, 1999, 2000} {
		r := ComputeRefund(1000, table.StorageCreditPerByteEpoch, 0, age)
		if r > prev {
			t.Fatalf("refund increased with age at %d: %d > %d", age, r, prev)
		}
		prev = r
	}
	if r := ComputeRefund(1000, table.StorageCreditPerByteEpoch, 0, 2000); r != 0 {
		t.Fatalf("refund at horizon = %d, want 0", r)
	}
}

func TestPoolDistributorRolloverAndInvariant(t *testing.T) {
	d := NewPoolDistributor(3000, 7000)
	d.CreditStorageFee(1000)
	d.CreditProcessingFee(500)

	if err := d.DebitRefund(200); err != nil {
		t.Fatalf("debit refund: %v", err)
	}
	d.RolloverEpoch()

	if got, want := d.Balance(PoolStorage), core.Credits(800); got != want {
		t.Fatalf("storage pool = %d, want %d", got, want)
	}
	if got, want := d.Balance(PoolProcessing), core.Credits(0); got != want {
		t.Fatalf("processing pool after rollover = %d, want %d", got, want)
	}
	if got, want := d.Balance(PoolProposer), core.Credits(150); got != want {
		t.Fatalf("proposer pool = %d, want %d", got, want)
	}
	if got, want := d.Balance(PoolMasternode), core.Credits(350); got != want {
		t.Fatalf("masternode pool = %d, want %d", got, want)
	}

	total := d.TotalPoolCredits()
	sources := BalanceSources{IdentityBalances: 5000, Pools: total, PreFundedSpecializedTotal: 100}
	// Should not panic.
	CheckBalanceInvariant(sources, CalculateTotalCreditsBalance(sources))
}

func TestDebitRefundInsufficientStoragePool(t *testing.T) {
	d := NewPoolDistributor(5000, 5000)
	d.CreditStorageFee(10)
	if err := d.DebitRefund(20); err != core.ErrInvalidState {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestCheckBalanceInvariantPanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on balance mismatch")
		}
	}()
	sources := BalanceSources{IdentityBalances: 10, Pools: 5, PreFundedSpecializedTotal: 0}
	CheckBalanceInvariant(sources, 999)
}
