// Package fees implements the epoch-indexed pricing, processing-fee
// accounting, refund computation, pool distribution, and balance
// invariant check described by the platform's fee model. Grounded on the
// teacher's core/transaction_fee_distribution_management.go (a
// mutex-guarded fee accumulator distributed by weighted percentage split)
// generalized from a flat collect/distribute split into the
// versioned-table-driven storage/processing fee model, plus the
// refund-calibration scenarios recovered from
// original_source/packages/rs-drive's document insert/delete fee tests.
package fees

import "synnergy-platform/core"

// OpKind names a billable storage or processing operation. The constants
// mirror the operation classes spec.md §4.2 lists as processing-fee
// inputs: hashing, tree traversal, signature verification, and byte
// reads.
type OpKind uint8

const (
	OpHash OpKind = iota
	OpTreeSeek
	OpSignatureVerify
	OpByteRead
	OpByteWrite
)

// Table is one frozen fee-version record: the storage price per
// byte-epoch and the processing-fee constant for every billable
// operation kind. Tables are versioned and never mutated once published
// (spec.md §4.2 "the processing table is versioned; once a transition's
// epoch is fixed the fee table is fixed").
type Table struct {
	Version uint32

	// StorageCreditPerByteEpoch is the per-byte, per-epoch storage price:
	// bytes_added * StorageCreditPerByteEpoch is the base storage fee for
	// newly written bytes (spec.md §4.2 "storage fee").
	StorageCreditPerByteEpoch core.Credits

	// ProcessingCost gives the flat per-operation processing fee for each
	// OpKind.
	ProcessingCost map[OpKind]core.Credits
}

// versionTable is the frozen per-FeeVersion registry. New fee versions are
// appended here, never edited in place — a later version may reprice
// operations, but existing versions stay addressable by epoch so refunds
// for bytes stored under an old price schedule are computed at that old
// price (spec.md §4.3 versioning).
var versionTable = map[uint32]Table{
	1: {
		Version:                   1,
		StorageCreditPerByteEpoch: 27000,
		ProcessingCost: map[OpKind]core.Credits{
			OpHash:            5000,
			OpTreeSeek:        1500,
			OpSignatureVerify: 3000000,
			OpByteRead:        200,
			OpByteWrite:       400,
		},
	},
	2: {
		Version:                   2,
		StorageCreditPerByteEpoch: 27000,
		ProcessingCost: map[OpKind]core.Credits{
			OpHash:            5000,
			OpTreeSeek:        1500,
			OpSignatureVerify: 3000000,
			OpByteRead:        200,
			OpByteWrite:       400,
		},
	},
}

// VersionTable resolves the frozen Table for a fee version. This is the
// fees package's half of the versioned-method-table scheme core.go
// documents: core.PlatformVersion carries the FeeVersion key, each
// subsystem resolves its own table from it.
func VersionTable(feeVersion uint32) (Table, bool) {
	t, ok := versionTable[feeVersion]
	return t, ok
}

// StorageFeeForBytes computes the base storage fee for writing n bytes at
// the given fee version: bytes_added × storage_disk_usage_credit_per_byte
// (spec.md §4.2). The exact per-byte constant is fee-version data (spec.md
// §9 "the precise processing-fee per-op constants are versioned data, not
// part of this spec"); versionTable fixes a representative schedule rather
// than attempting to reproduce the original system's internal operation
// cost breakdown byte-for-byte.
func StorageFeeForBytes(t Table, bytesAdded uint64) core.Credits {
	return core.Credits(bytesAdded) * t.StorageCreditPerByteEpoch
}

// ProcessingFee sums the processing-fee constants for a set of operations,
// then applies the user's prioritization tip (spec.md §4.2 "user fee
// increase"): fee * (1 + userFeeIncrease / 10000). The bump is computed in
// big.Int fixed-point rather than float64 so credit totals never drift off
// the exact integer a wallet quoted the user (spec.md §9 treats Credits as
// an exact integer ledger unit throughout).
func ProcessingFee(t Table, ops []OpKind, userFeeIncrease uint32) core.Credits {
	var total core.Credits
	for _, op := range ops {
		total += t.ProcessingCost[op]
	}
	if userFeeIncrease == 0 {
		return total
	}
	return core.Credits(bumpByBasisPoints(uint64(total), userFeeIncrease))
}
