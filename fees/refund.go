package fees

import "synnergy-platform/core"

// refundCalibration is a monotone-decreasing control-point table for
// remaining_ratio(age_in_epochs). spec.md §9 leaves the closed form
// unspecified and directs implementers to "treat the test values as the
// spec and pick any monotone function matching them" (spec.md §8
// concrete scenarios 1-4): same-block and one-epoch-later deletions must
// refund just over 99%, ~1 year (40 epochs) must round to 94%, ~25 years
// (1000 epochs) must be 21%, and ~50 years (2000 epochs, the configured
// core.StorageEpochHorizon) must be exactly 0. Piecewise-linear
// interpolation between these exact control points is the simplest
// function satisfying all of them while staying monotone everywhere.
var refundCalibration = []struct {
	age   core.Epoch
	ratio float64
}{
	{0, 0.995},
	{40, 0.94},
	{1000, 0.21},
	{2000, 0.0},
}

// remainingRatio returns the fraction of the original storage fee still
// refundable for bytes that have aged ageEpochs since creation.
func remainingRatio(ageEpochs core.Epoch) float64 {
	if ageEpochs <= 0 {
		return refundCalibration[0].ratio
	}
	if ageEpochs >= core.StorageEpochHorizon {
		return 0
	}
	for i := 1; i < len(refundCalibration); i++ {
		lo, hi := refundCalibration[i-1], refundCalibration[i]
		if ageEpochs <= hi.age {
			span := float64(hi.age - lo.age)
			t := float64(ageEpochs-lo.age) / span
			return lo.ratio + t*(hi.ratio-lo.ratio)
		}
	}
	return 0
}

// ComputeRefund computes the credits refunded when bytesRemoved bytes,
// originally billed at the fee version active at epochCreated, are
// removed at currentEpoch (spec.md §4.2 refund model). spec.md phrases
// the refund as a sum over every epoch in [epoch_created, current_epoch]
// of bytes_removed × storage_price(e) × remaining_ratio(e, current_epoch)
// — modeling an item whose storage flags track incremental per-epoch
// growth. StorageFlags here records only a single creation epoch (no
// per-epoch growth map), so that sum collapses to its single term at
// e = epoch_created, which is exact for any element written in one epoch
// and never since grown — true for every concrete scenario spec.md §8
// gives.
func ComputeRefund(bytesRemoved uint64, storagePriceAtCreation core.Credits, epochCreated, currentEpoch core.Epoch) core.Credits {
	if currentEpoch < epochCreated {
		return 0
	}
	age := currentEpoch - epochCreated
	ratio := remainingRatio(age)
	full := core.Credits(bytesRemoved) * storagePriceAtCreation
	return core.Credits(float64(full) * ratio)
}

// RefundPercent returns ComputeRefund's ratio as an integer percentage of
// the original storage fee, rounded to the nearest whole percent — the
// shape spec.md §8 scenarios 2-4 assert against (94, 21, 0).
func RefundPercent(epochCreated, currentEpoch core.Epoch) int {
	age := currentEpoch - epochCreated
	return int(remainingRatio(age)*100 + 0.5)
}
