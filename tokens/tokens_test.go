package tokens

import (
	"errors"
	"testing"

	"synnergy-platform/core"
)

func id(b byte) core.Identifier {
	var out core.Identifier
	out[0] = b
	return out
}

func TestBalanceTableFreezeUnfreezeAndSupply(t *testing.T) {
	bt := NewBalanceTable()
	tok := TokenID(id(1))
	alice := id(2)

	bt.Add(tok, alice, 1000)
	if got := bt.TotalSupply(tok); got != 1000 {
		t.Fatalf("total supply = %d, want 1000", got)
	}

	if err := bt.Freeze(tok, alice, 400); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if got := bt.Get(tok, alice); got != 600 {
		t.Fatalf("spendable = %d, want 600", got)
	}
	if got := bt.Frozen(tok, alice); got != 400 {
		t.Fatalf("frozen = %d, want 400", got)
	}
	if got := bt.TotalSupply(tok); got != 1000 {
		t.Fatalf("total supply after freeze = %d, want 1000 (supply invariant)", got)
	}

	if err := bt.Unfreeze(tok, alice, 100); err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	if got := bt.Get(tok, alice); got != 700 {
		t.Fatalf("spendable after unfreeze = %d, want 700", got)
	}

	if err := bt.DestroyFrozen(tok, alice, 300); err != nil {
		t.Fatalf("destroy frozen: %v", err)
	}
	if got := bt.TotalSupply(tok); got != 700 {
		t.Fatalf("total supply after destroy = %d, want 700", got)
	}
}

func TestRegistryTransferRejectsPausedAndFrozen(t *testing.T) {
	reg := NewRegistry()
	tok := CalculateTokenID(id(1), 0)
	state := &TokenState{ID: tok, ContractID: id(1), Position: 0}
	if err := reg.Create(state); err != nil {
		t.Fatalf("create: %v", err)
	}
	alice, bob := id(2), id(3)
	reg.Balances.Add(tok, alice, 500)

	if err := reg.Transfer(tok, alice, bob, 100); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := reg.Balances.Get(tok, bob); got != 100 {
		t.Fatalf("bob balance = %d, want 100", got)
	}

	state.Paused = true
	if err := reg.Transfer(tok, alice, bob, 50); err == nil {
		t.Fatalf("expected transfer to fail while paused")
	}
	state.Paused = false

	if err := reg.Balances.Freeze(tok, alice, 100); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if err := reg.Transfer(tok, alice, bob, 50); err == nil {
		t.Fatalf("expected transfer from frozen sender to fail")
	}
}

func TestPreProgrammedDistributionClaimScenarios(t *testing.T) {
	recipient := id(0xAA)
	dist := NewPreProgrammedDistribution([]ScheduleEntry{
		{TimeMs: 100, Recipient: recipient, Amount: 445},
		{TimeMs: 500000, Recipient: recipient, Amount: 600},
	})

	got, err := dist.Claim(recipient, 200)
	if err != nil {
		t.Fatalf("claim at 200: %v", err)
	}
	if got != 445 {
		t.Fatalf("claim at 200 = %d, want 445", got)
	}

	got, err = dist.Claim(recipient, 700000)
	if err != nil {
		t.Fatalf("claim at 700000: %v", err)
	}
	if got != 600 {
		t.Fatalf("claim at 700000 = %d, want 600 (incremental, cumulative balance would be 1045)", got)
	}

	if _, err := dist.Claim(recipient, 700000); !errors.Is(err, ErrNoCurrentRewards) {
		t.Fatalf("expected ErrNoCurrentRewards on repeat claim, got %v", err)
	}
}

func TestPreProgrammedDistributionNoMaturedEntries(t *testing.T) {
	recipient := id(0xBB)
	dist := NewPreProgrammedDistribution([]ScheduleEntry{
		{TimeMs: 20_000_000, Recipient: recipient, Amount: 1337},
	})

	if _, err := dist.Claim(recipient, 200); !errors.Is(err, ErrNoCurrentRewards) {
		t.Fatalf("expected ErrNoCurrentRewards, got %v", err)
	}
}

func TestPerpetualDistributionAccrue(t *testing.T) {
	p := &PerpetualDistribution{Period: 10, Function: FixedAmount{A: 5}}
	amt, ok := p.Accrue(25)
	if !ok {
		t.Fatalf("expected accrual at counter 25")
	}
	if amt != 10 { // two elapsed intervals (1, 2) at 5 each
		t.Fatalf("amount = %d, want 10", amt)
	}
	if _, ok := p.Accrue(29); ok {
		t.Fatalf("expected no accrual before the next full interval")
	}
	amt, ok = p.Accrue(31)
	if !ok || amt != 5 {
		t.Fatalf("amount = %d ok=%v, want 5 true", amt, ok)
	}
}

func TestStepwiseAndLinearAndExponential(t *testing.T) {
	sw := Stepwise{Steps: map[uint64]uint64{0: 1, 10: 5, 20: 9}}
	if got := sw.Amount(15); got != 5 {
		t.Fatalf("stepwise(15) = %d, want 5", got)
	}
	lin := Linear{Slope: 2, Offset: 3}
	if got := lin.Amount(4); got != 11 {
		t.Fatalf("linear(4) = %d, want 11", got)
	}
	exp := Exponential{Base: 100, Growth: 1.1}
	if got := exp.Amount(0); got != 100 {
		t.Fatalf("exponential(0) = %d, want 100", got)
	}
}

func TestDirectPurchasePriceFor(t *testing.T) {
	dp := DirectPurchase{Schedule: TokenPricingSchedule{10: 1000, 20: 1800}}
	price, err := dp.PriceFor(20)
	if err != nil {
		t.Fatalf("price for 20: %v", err)
	}
	if price != 1800 {
		t.Fatalf("price = %d, want 1800", price)
	}
	if _, err := dp.PriceFor(5); err == nil {
		t.Fatalf("expected error for unscheduled count")
	}
}

type denyOnce struct{ denied bool }

func (d *denyOnce) Authorize(core.Identifier, uint16, ControlAction, core.Identifier) error {
	if d.denied {
		return core.ErrUnauthorized
	}
	return nil
}

func TestControllerFreezePauseACL(t *testing.T) {
	reg := NewRegistry()
	tok := CalculateTokenID(id(1), 0)
	state := &TokenState{ID: tok, ContractID: id(1), Position: 0}
	if err := reg.Create(state); err != nil {
		t.Fatalf("create: %v", err)
	}
	acl := &denyOnce{}
	ctrl := NewController(reg, acl)
	alice := id(2)
	reg.Balances.Add(tok, alice, 100)

	if err := ctrl.Pause(tok, id(0xFF)); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !state.Paused {
		t.Fatalf("expected state paused")
	}

	acl.denied = true
	if err := ctrl.Resume(tok, id(0xFF)); err == nil {
		t.Fatalf("expected ACL denial")
	}
}

func TestSubscriptionFilterValidateAndMatch(t *testing.T) {
	contract := id(1)
	positions := map[uint16]struct{}{0: {}}
	recipient := id(9)

	filter := SubscriptionFilter{
		ContractID: contract,
		Position:   0,
		Action: ActionClause{
			Action:          ActionMint,
			AmountClause:    &ValueClause{Operator: OpGreaterThan, Kind: ValueKindInteger, IntValue: 5},
			RecipientClause: &ValueClause{Operator: OpEqual, Kind: ValueKindIdentifier, IDValue: recipient},
		},
	}
	if err := filter.Validate(positions); err != nil {
		t.Fatalf("validate: %v", err)
	}

	tok := CalculateTokenID(contract, 0)
	facts := TransitionFacts{Action: ActionMint, Amount: 10, Recipient: recipient}
	if !filter.Matches(contract, 0, tok, facts) {
		t.Fatalf("expected filter to match")
	}

	facts.Amount = 3
	if filter.Matches(contract, 0, tok, facts) {
		t.Fatalf("expected filter to reject amount below threshold")
	}

	badFilter := SubscriptionFilter{
		ContractID: contract,
		Position:   0,
		Action: ActionClause{
			Action:       ActionBurn,
			AmountClause: &ValueClause{Operator: OpEqual, Kind: ValueKindIdentifier, IDValue: recipient},
		},
	}
	if err := badFilter.Validate(positions); err == nil {
		t.Fatalf("expected validation to reject identifier comparator on amount field")
	}

	if err := filter.Validate(map[uint16]struct{}{1: {}}); err == nil {
		t.Fatalf("expected validation to reject unknown token position")
	}
}
