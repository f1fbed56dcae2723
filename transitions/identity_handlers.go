package transitions

import (
	"encoding/json"
	"fmt"

	"synnergy-platform/core"
	"synnergy-platform/identity"
)

// IdentityTopUpBody is the decoded body of a credit top-up transition:
// the credits purchased against the core chain's asset-lock transaction
// are added to the identity's balance (spec.md §4.2 "IdentityTopUp").
type IdentityTopUpBody struct {
	IdentityID core.Identifier
	Amount     core.Credits
}

// IdentityTopUpHandler credits an identity's balance.
type IdentityTopUpHandler struct {
	Registry *identity.Registry
}

func (h *IdentityTopUpHandler) decode(t Transition) (IdentityTopUpBody, error) {
	var body IdentityTopUpBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode identity top-up: %w", err)
	}
	return body, nil
}

func (h *IdentityTopUpHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	if _, gerr := h.Registry.Get(body.IdentityID); gerr != nil {
		return ErrContractNotFound(body.IdentityID.String())
	}
	return nil
}

func (h *IdentityTopUpHandler) Execute(_ Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	id, gerr := h.Registry.Get(body.IdentityID)
	if gerr != nil {
		return 0, "", ErrContractNotFound(body.IdentityID.String())
	}
	id.Credit(body.Amount)
	if serr := h.Registry.Save(id); serr != nil {
		return 0, "", serr
	}
	return 0, fmt.Sprintf("identity %s topped up by %d", body.IdentityID, body.Amount), nil
}

// IdentityCreditTransferBody is the decoded body of a balance transfer
// between two identities (spec.md §4.2 "IdentityCreditTransfer").
type IdentityCreditTransferBody struct {
	RecipientID core.Identifier
	Amount      core.Credits
}

// IdentityCreditTransferHandler moves credits from the signing identity
// to a recipient, debiting the sender before crediting the recipient so
// a failed debit never mutates the recipient.
type IdentityCreditTransferHandler struct {
	Registry *identity.Registry
}

func (h *IdentityCreditTransferHandler) decode(t Transition) (IdentityCreditTransferBody, error) {
	var body IdentityCreditTransferBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode identity credit transfer: %w", err)
	}
	return body, nil
}

func (h *IdentityCreditTransferHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	sender, gerr := h.Registry.Get(t.IdentityID)
	if gerr != nil {
		return ErrContractNotFound(t.IdentityID.String())
	}
	if _, gerr := h.Registry.Get(body.RecipientID); gerr != nil {
		return ErrContractNotFound(body.RecipientID.String())
	}
	if sender.Balance < body.Amount {
		return ErrBalanceInsufficient()
	}
	return nil
}

func (h *IdentityCreditTransferHandler) Execute(_ Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	sender, gerr := h.Registry.Get(t.IdentityID)
	if gerr != nil {
		return 0, "", ErrContractNotFound(t.IdentityID.String())
	}
	recipient, gerr := h.Registry.Get(body.RecipientID)
	if gerr != nil {
		return 0, "", ErrContractNotFound(body.RecipientID.String())
	}
	if derr := sender.Debit(body.Amount); derr != nil {
		return 0, "", ErrBalanceInsufficient()
	}
	recipient.Credit(body.Amount)
	if serr := h.Registry.Save(sender); serr != nil {
		return 0, "", serr
	}
	if serr := h.Registry.Save(recipient); serr != nil {
		return 0, "", serr
	}
	return 0, fmt.Sprintf("transfer %d: %s -> %s", body.Amount, t.IdentityID, body.RecipientID), nil
}

// IdentityCreditWithdrawalBody is the decoded body of a withdrawal back
// to the core chain (spec.md §4.2 "IdentityCreditWithdrawal").
type IdentityCreditWithdrawalBody struct {
	Amount          core.Credits
	CoreFeePerByte  uint64
	OutputScript    []byte
}

// IdentityCreditWithdrawalHandler debits the signing identity's balance,
// queuing the amount for the core-chain payout the block executor emits
// separately (spec.md §4.1 "Withdrawal queue").
type IdentityCreditWithdrawalHandler struct {
	Registry *identity.Registry
}

func (h *IdentityCreditWithdrawalHandler) decode(t Transition) (IdentityCreditWithdrawalBody, error) {
	var body IdentityCreditWithdrawalBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode identity credit withdrawal: %w", err)
	}
	return body, nil
}

func (h *IdentityCreditWithdrawalHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	id, gerr := h.Registry.Get(t.IdentityID)
	if gerr != nil {
		return ErrContractNotFound(t.IdentityID.String())
	}
	if id.Balance < body.Amount {
		return ErrBalanceInsufficient()
	}
	return nil
}

func (h *IdentityCreditWithdrawalHandler) Execute(_ Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	id, gerr := h.Registry.Get(t.IdentityID)
	if gerr != nil {
		return 0, "", ErrContractNotFound(t.IdentityID.String())
	}
	if derr := id.Debit(body.Amount); derr != nil {
		return 0, "", ErrBalanceInsufficient()
	}
	if serr := h.Registry.Save(id); serr != nil {
		return 0, "", serr
	}
	return 0, fmt.Sprintf("identity %s withdrew %d", t.IdentityID, body.Amount), nil
}
