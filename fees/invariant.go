package fees

import (
	"fmt"

	"synnergy-platform/core"
)

// BalanceSources gathers the three sum-tree totals spec.md §4.2's balance
// invariant proof checks after every block: identity balances, pool
// balances, and pre-funded specialized balances.
type BalanceSources struct {
	IdentityBalances          core.Credits
	Pools                     core.Credits
	PreFundedSpecializedTotal core.Credits
}

// CalculateTotalCreditsBalance sums BalanceSources, the left-hand side of
// spec.md's `sum(Balances) + sum(Pools) + sum(PreFundedSpecializedBalances)
// = TOTAL_SYSTEM_CREDITS` invariant.
func CalculateTotalCreditsBalance(s BalanceSources) core.Credits {
	return s.IdentityBalances + s.Pools + s.PreFundedSpecializedTotal
}

// CheckBalanceInvariant panics if the computed total credits balance does
// not equal totalSystemCredits. spec.md §9 "Exceptions / panics" reserves
// hard panics specifically for this case: "Reserve hard panics for
// invariant violations (e.g., balance-sum mismatch)." Every other failure
// in this codebase is a typed error; this is the one deliberate exception,
// called once per committed block by the block executor.
func CheckBalanceInvariant(s BalanceSources, totalSystemCredits core.Credits) {
	got := CalculateTotalCreditsBalance(s)
	if got != totalSystemCredits {
		panic(fmt.Sprintf("fees: balance invariant violated: sum(balances)+sum(pools)+sum(prefunded)=%d, want TOTAL_SYSTEM_CREDITS=%d", got, totalSystemCredits))
	}
}
