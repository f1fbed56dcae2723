package transitions

import (
	"encoding/json"
	"fmt"

	"synnergy-platform/core"
	"synnergy-platform/tokens"
)

// TokenTransferBody is the decoded body of a KindTokenTransfer
// transition.
type TokenTransferBody struct {
	TokenID core.Identifier
	To      core.Identifier
	Amount  uint64
}

// TokenTransferHandler executes token transfers against a shared
// tokens.Registry, enforcing the paused/frozen/balance preconditions
// spec.md §4.4 lists as stage-3 checks.
type TokenTransferHandler struct {
	Registry *tokens.Registry
}

func (h *TokenTransferHandler) decode(t Transition) (TokenTransferBody, error) {
	var body TokenTransferBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode token transfer: %w", err)
	}
	return body, nil
}

func (h *TokenTransferHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	tok := tokens.TokenID(body.TokenID)
	state, ok := h.Registry.Get(tok)
	if !ok {
		return ErrContractNotFound(body.TokenID.String())
	}
	if state.Paused {
		return ErrTokenACLDenied("token is paused")
	}
	if h.Registry.Balances.IsFrozen(tok, t.IdentityID) {
		return ErrTokenACLDenied("sender is frozen")
	}
	if h.Registry.Balances.IsFrozen(tok, body.To) {
		return ErrTokenACLDenied("recipient is frozen")
	}
	if h.Registry.Balances.Get(tok, t.IdentityID) < body.Amount {
		return ErrBalanceInsufficient()
	}
	return nil
}

func (h *TokenTransferHandler) Execute(ctx Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	tok := tokens.TokenID(body.TokenID)
	if err := h.Registry.Transfer(tok, t.IdentityID, body.To, body.Amount); err != nil {
		return 0, "", ErrBalanceInsufficient()
	}
	fee := core.Credits(0)
	return fee, fmt.Sprintf("token %s: %s -> %s amount %d", body.TokenID, t.IdentityID, body.To, body.Amount), nil
}

// TokenClaimBody is the decoded body of a pre-programmed distribution
// claim transition.
type TokenClaimBody struct {
	TokenID core.Identifier
}

// TokenClaimHandler runs a PreProgrammedDistribution claim (spec.md
// §4.4 "Claim semantics for pre-programmed distribution").
type TokenClaimHandler struct {
	Registry *tokens.Registry
}

func (h *TokenClaimHandler) decode(t Transition) (TokenClaimBody, error) {
	var body TokenClaimBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode token claim: %w", err)
	}
	return body, nil
}

func (h *TokenClaimHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	state, ok := h.Registry.Get(tokens.TokenID(body.TokenID))
	if !ok {
		return ErrContractNotFound(body.TokenID.String())
	}
	if state.PreProgrammed == nil {
		return ErrInvalidTokenClaimNoCurrentRewards()
	}
	return nil
}

func (h *TokenClaimHandler) Execute(ctx Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	state, ok := h.Registry.Get(tokens.TokenID(body.TokenID))
	if !ok {
		return 0, "", ErrContractNotFound(body.TokenID.String())
	}
	amount, claimErr := state.PreProgrammed.Claim(t.IdentityID, ctx.TimeMs)
	if claimErr != nil {
		return 0, "", ErrInvalidTokenClaimNoCurrentRewards()
	}
	h.Registry.Balances.Add(tokens.TokenID(body.TokenID), t.IdentityID, amount)
	return 0, fmt.Sprintf("token %s: claimed %d by %s", body.TokenID, amount, t.IdentityID), nil
}

// TokenMintBody is the decoded body of a KindTokenMint transition.
type TokenMintBody struct {
	TokenID core.Identifier
	To      core.Identifier
	Amount  uint64
}

// TokenMintHandler increases a token's total supply, gated by the same
// ACL the control rules use (spec.md §4.4 supply invariants).
type TokenMintHandler struct {
	Registry *tokens.Registry
	ACL      tokens.ACLChecker
}

func (h *TokenMintHandler) decode(t Transition) (TokenMintBody, error) {
	var body TokenMintBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode token mint: %w", err)
	}
	return body, nil
}

func (h *TokenMintHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	state, ok := h.Registry.Get(tokens.TokenID(body.TokenID))
	if !ok {
		return ErrContractNotFound(body.TokenID.String())
	}
	if h.ACL != nil {
		if aerr := h.ACL.Authorize(state.ContractID, state.Position, tokens.ControlConfigUpdate, t.IdentityID); aerr != nil {
			return ErrTokenACLDenied(aerr.Error())
		}
	}
	return nil
}

func (h *TokenMintHandler) Execute(_ Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	if merr := h.Registry.Mint(tokens.TokenID(body.TokenID), body.To, body.Amount); merr != nil {
		return 0, "", ErrContractNotFound(merr.Error())
	}
	return 0, fmt.Sprintf("token %s: minted %d to %s", body.TokenID, body.Amount, body.To), nil
}

// TokenBurnBody is the decoded body of a KindTokenBurn transition.
type TokenBurnBody struct {
	TokenID core.Identifier
	From    core.Identifier
	Amount  uint64
}

// TokenBurnHandler decreases a token's total supply.
type TokenBurnHandler struct {
	Registry *tokens.Registry
	ACL      tokens.ACLChecker
}

func (h *TokenBurnHandler) decode(t Transition) (TokenBurnBody, error) {
	var body TokenBurnBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode token burn: %w", err)
	}
	return body, nil
}

func (h *TokenBurnHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	state, ok := h.Registry.Get(tokens.TokenID(body.TokenID))
	if !ok {
		return ErrContractNotFound(body.TokenID.String())
	}
	if h.Registry.Balances.Get(tokens.TokenID(body.TokenID), body.From) < body.Amount {
		return ErrBalanceInsufficient()
	}
	if h.ACL != nil {
		if aerr := h.ACL.Authorize(state.ContractID, state.Position, tokens.ControlConfigUpdate, t.IdentityID); aerr != nil {
			return ErrTokenACLDenied(aerr.Error())
		}
	}
	return nil
}

func (h *TokenBurnHandler) Execute(_ Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	if berr := h.Registry.Burn(tokens.TokenID(body.TokenID), body.From, body.Amount); berr != nil {
		return 0, "", ErrBalanceInsufficient()
	}
	return 0, fmt.Sprintf("token %s: burned %d from %s", body.TokenID, body.Amount, body.From), nil
}

// TokenControlBody is the decoded body shared by every control-rule
// transition (freeze/unfreeze/destroy-frozen/pause/resume/set-price);
// only the fields the specific Kind needs are populated (spec.md §4.4
// "Control rules ... each gated by an ACL expressed as a rule over
// identity groups").
type TokenControlBody struct {
	TokenID       core.Identifier
	Holder        core.Identifier
	Amount        uint64
	PurchaseCount uint64
	PurchasePrice core.Credits
}

// TokenControlHandler applies one control-rule action to a token,
// delegating the ACL gate and the mutation itself to tokens.Controller so
// the authorization check and the state change happen in the same
// Execute call; no single lock spans both (spec.md §4.4 control rules).
type TokenControlHandler struct {
	Controller *tokens.Controller
	Action     tokens.ControlAction
}

func (h *TokenControlHandler) decode(t Transition) (TokenControlBody, error) {
	var body TokenControlBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode token control: %w", err)
	}
	return body, nil
}

// Validate only decodes and confirms the token exists; the ACL check and
// mutation both happen in Execute via tokens.Controller so a caller whose
// vote completes the group's quorum is authorized and applied in the same
// step, matching transitions.ACL's accumulate-then-clear vote semantics.
func (h *TokenControlHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	if _, ok := h.Controller.Registry.Get(tokens.TokenID(body.TokenID)); !ok {
		return ErrContractNotFound(body.TokenID.String())
	}
	return nil
}

func (h *TokenControlHandler) Execute(_ Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	tok := tokens.TokenID(body.TokenID)
	var actionErr error
	switch h.Action {
	case tokens.ControlFreeze:
		actionErr = h.Controller.Freeze(tok, t.IdentityID, body.Holder, body.Amount)
	case tokens.ControlUnfreeze:
		actionErr = h.Controller.Unfreeze(tok, t.IdentityID, body.Holder, body.Amount)
	case tokens.ControlDestroyFrozen:
		actionErr = h.Controller.DestroyFrozen(tok, t.IdentityID, body.Holder, body.Amount)
	case tokens.ControlPause:
		actionErr = h.Controller.Pause(tok, t.IdentityID)
	case tokens.ControlResume:
		actionErr = h.Controller.Resume(tok, t.IdentityID)
	case tokens.ControlSetPrice:
		actionErr = h.Controller.SetPrice(tok, t.IdentityID, body.PurchaseCount, body.PurchasePrice)
	default:
		return 0, "", ErrSchemaViolation(fmt.Sprintf("unsupported control action %d", h.Action))
	}
	if actionErr != nil {
		return 0, "", ErrTokenACLDenied(actionErr.Error())
	}
	return 0, fmt.Sprintf("token %s: control action %d applied by %s", body.TokenID, h.Action, t.IdentityID), nil
}
