package tokens

import (
	"fmt"

	"synnergy-platform/core"
)

// ClauseOperator is the comparator a ValueClause applies.
type ClauseOperator uint8

const (
	OpEqual ClauseOperator = iota
	OpGreaterThan
	OpGreaterThanOrEquals
	OpLessThan
	OpLessThanOrEquals
)

// ClauseValueKind tags what type of value a ValueClause compares against,
// used to reject e.g. a string comparator on an amount field (spec.md
// §4.4 "Clause validation rejects clauses whose comparator type cannot
// hold the target").
type ClauseValueKind uint8

const (
	ValueKindInteger ClauseValueKind = iota
	ValueKindIdentifier
)

// ValueClause is one scalar comparison a subscription filter applies to
// a token transition field. Grounded on
// original_source/rs-drive/src/drive/subscriptions/token_filter.rs's
// ValueClause/matches_value.
type ValueClause struct {
	Operator ClauseOperator
	Kind     ClauseValueKind
	IntValue uint64
	IDValue  core.Identifier
}

// MatchesInt evaluates the clause against an observed uint64 value.
func (c ValueClause) MatchesInt(v uint64) bool {
	if c.Kind != ValueKindInteger {
		return false
	}
	switch c.Operator {
	case OpEqual:
		return v == c.IntValue
	case OpGreaterThan:
		return v > c.IntValue
	case OpGreaterThanOrEquals:
		return v >= c.IntValue
	case OpLessThan:
		return v < c.IntValue
	case OpLessThanOrEquals:
		return v <= c.IntValue
	default:
		return false
	}
}

// MatchesIdentifier evaluates an equality clause against an observed
// core.Identifier; only OpEqual is meaningful for identifiers.
func (c ValueClause) MatchesIdentifier(v core.Identifier) bool {
	if c.Kind != ValueKindIdentifier {
		return false
	}
	return c.Operator == OpEqual && c.IDValue == v
}

// validateInteger rejects a clause whose Kind is not Integer (spec.md
// §4.4's comparator-type validation).
func validateInteger(clause *ValueClause, field string) error {
	if clause == nil {
		return nil
	}
	if clause.Kind != ValueKindInteger {
		return fmt.Errorf("tokens: %s clause expects an integer comparator", field)
	}
	return nil
}

func validateIdentifier(clause *ValueClause, field string) error {
	if clause == nil {
		return nil
	}
	if clause.Kind != ValueKindIdentifier {
		return fmt.Errorf("tokens: %s clause expects an identifier comparator", field)
	}
	return nil
}

// TransitionAction tags the token transition variant an ActionClause
// targets.
type TransitionAction uint8

const (
	ActionMint TransitionAction = iota
	ActionBurn
	ActionTransfer
	ActionFreeze
	ActionUnfreeze
	ActionDestroyFrozenFunds
	ActionConfigUpdate
	ActionDirectPurchase
)

// ActionClause is the action-specific predicate half of a subscription
// filter (spec.md §4.4 "an action-specific clause tree").
type ActionClause struct {
	Action TransitionAction

	AmountClause    *ValueClause
	RecipientClause *ValueClause
	IdentityClause  *ValueClause

	TokenCountClause *ValueClause
	TotalPriceClause *ValueClause
}

// Validate rejects a clause whose comparator kinds cannot hold the
// field it targets.
func (a ActionClause) Validate() error {
	switch a.Action {
	case ActionMint:
		if err := validateInteger(a.AmountClause, "mint amount"); err != nil {
			return err
		}
		return validateIdentifier(a.RecipientClause, "mint recipient")
	case ActionBurn:
		return validateInteger(a.AmountClause, "burn amount")
	case ActionTransfer:
		if err := validateInteger(a.AmountClause, "transfer amount"); err != nil {
			return err
		}
		return validateIdentifier(a.RecipientClause, "transfer recipient")
	case ActionFreeze, ActionUnfreeze, ActionDestroyFrozenFunds:
		return validateIdentifier(a.IdentityClause, "identity")
	case ActionDirectPurchase:
		if err := validateInteger(a.TokenCountClause, "token count"); err != nil {
			return err
		}
		return validateInteger(a.TotalPriceClause, "total price")
	case ActionConfigUpdate:
		return nil
	default:
		return fmt.Errorf("tokens: unknown subscription action %d", a.Action)
	}
}

// TransitionFacts is the minimal observed-value surface an ActionClause
// is evaluated against — the filter's own transition shape, decoupled
// from the transitions package to avoid an import cycle.
type TransitionFacts struct {
	Action    TransitionAction
	Amount    uint64
	Recipient core.Identifier
	Identity  core.Identifier
	TokenCount uint64
	TotalPrice uint64
}

// Matches evaluates the action clause against observed transition facts,
// short-circuiting on the first mismatching field.
func (a ActionClause) Matches(facts TransitionFacts) bool {
	if a.Action != facts.Action {
		return false
	}
	switch a.Action {
	case ActionMint:
		if a.AmountClause != nil && !a.AmountClause.MatchesInt(facts.Amount) {
			return false
		}
		if a.RecipientClause != nil && !a.RecipientClause.MatchesIdentifier(facts.Recipient) {
			return false
		}
		return true
	case ActionBurn:
		return a.AmountClause == nil || a.AmountClause.MatchesInt(facts.Amount)
	case ActionTransfer:
		if a.AmountClause != nil && !a.AmountClause.MatchesInt(facts.Amount) {
			return false
		}
		return a.RecipientClause == nil || a.RecipientClause.MatchesIdentifier(facts.Recipient)
	case ActionFreeze, ActionUnfreeze, ActionDestroyFrozenFunds:
		return a.IdentityClause == nil || a.IdentityClause.MatchesIdentifier(facts.Identity)
	case ActionDirectPurchase:
		if a.TokenCountClause != nil && !a.TokenCountClause.MatchesInt(facts.TokenCount) {
			return false
		}
		return a.TotalPriceClause == nil || a.TotalPriceClause.MatchesInt(facts.TotalPrice)
	case ActionConfigUpdate:
		return true
	default:
		return false
	}
}

// SubscriptionFilter targets (contractID, position, tokenID?) plus an
// action-specific clause (spec.md §4.4 "Subscription filter"). Grounded
// on original_source's DriveTokenQueryFilter.
type SubscriptionFilter struct {
	ContractID core.Identifier
	Position   uint16
	TokenID    *TokenID
	Action     ActionClause
}

// Validate checks the filter references a real token position and that
// its action clause uses supported comparator shapes.
func (f SubscriptionFilter) Validate(contractTokenPositions map[uint16]struct{}) error {
	if _, ok := contractTokenPositions[f.Position]; !ok {
		return fmt.Errorf("tokens: unknown token contract position %d", f.Position)
	}
	return f.Action.Validate()
}

// Matches evaluates the filter's target fields then, only on a full
// target match, the action clause — mirroring
// DriveTokenQueryFilter::matches_token_transition's short-circuit order.
func (f SubscriptionFilter) Matches(contractID core.Identifier, position uint16, tokenID TokenID, facts TransitionFacts) bool {
	if contractID != f.ContractID {
		return false
	}
	if position != f.Position {
		return false
	}
	if f.TokenID != nil && *f.TokenID != tokenID {
		return false
	}
	return f.Action.Matches(facts)
}
