package core

import "math/rand"

// MasternodeEntry is a read-only snapshot row from the masternode-set
// oracle (spec.md §1 treats the oracle itself as an external collaborator;
// the core consumes a snapshot of entries like this one).
type MasternodeEntry struct {
	ProTxHash       Identifier
	Address         string
	IsHPMN          bool
	Voting          bool
	UpdateFrequency uint32
}

// MasternodeListSnapshot is the oracle snapshot a block carries into
// execution (spec.md §5 "PlatformState ... masternode list").
type MasternodeListSnapshot struct {
	Regular []MasternodeEntry
	HPMN    []MasternodeEntry
}

// GenerateTestMasternodes deterministically builds a masternode snapshot
// from (count, seed, updateFrequencies), for use in test fixtures and
// simulation harnesses. Two calls with identical arguments always return
// byte-identical results (scenario 8, spec.md §8) because the only source
// of randomness is the seeded PRNG, never wall-clock or map iteration
// order.
//
// This is a deliberately simplified stand-in for the much richer
// update/ban/unban simulation in the original source
// (strategy_tests::generate_test_masternodes, which models per-height key
// rotation, bans, and IP/port churn via a table of Frequency
// distributions); that level of detail belongs to the external consensus
// harness this spec treats as out of scope (spec.md §1), not to the
// storage/fee/transition core. The simplification is recorded as an open
// decision in DESIGN.md.
func GenerateTestMasternodes(count, hpmnCount int, seed int64, updateFrequencies []uint32) MasternodeListSnapshot {
	rng := rand.New(rand.NewSource(seed))

	mk := func(n int, isHPMN bool) []MasternodeEntry {
		out := make([]MasternodeEntry, n)
		for i := 0; i < n; i++ {
			var entropy [32]byte
			rng.Read(entropy[:])
			freq := uint32(1)
			if len(updateFrequencies) > 0 {
				freq = updateFrequencies[rng.Intn(len(updateFrequencies))]
			}
			out[i] = MasternodeEntry{
				ProTxHash:       DeriveIdentifier("masternode", entropy, Identifier{}),
				Address:         "",
				IsHPMN:          isHPMN,
				Voting:          true,
				UpdateFrequency: freq,
			}
		}
		return out
	}

	return MasternodeListSnapshot{
		Regular: mk(count, false),
		HPMN:    mk(hpmnCount, true),
	}
}
