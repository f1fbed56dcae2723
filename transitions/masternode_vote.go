package transitions

import (
	"encoding/json"
	"fmt"

	"synnergy-platform/core"
	"synnergy-platform/tokens"
)

// MasternodeVoteBody is the decoded body of a KindMasternodeVote
// transition: a masternode's sign-off on a pending group-gated control
// action for one token (spec.md §6's reserved `GroupActions` root-tree
// slot; §4.4 "each gated by an ACL expressed as a rule over identity
// groups").
type MasternodeVoteBody struct {
	ContractID core.Identifier
	Position   uint16
	Action     tokens.ControlAction
}

func votingMasternode(snapshot core.MasternodeListSnapshot, id core.Identifier) (core.MasternodeEntry, bool) {
	for _, m := range snapshot.HPMN {
		if m.ProTxHash == id {
			return m, true
		}
	}
	for _, m := range snapshot.Regular {
		if m.ProTxHash == id {
			return m, true
		}
	}
	return core.MasternodeEntry{}, false
}

// MasternodeVoteHandler records one masternode's vote toward a group
// action's voting-power quorum, delegating the tally itself to ACL
// (spec.md §1 models the masternode set as a Proof-of-Service network
// this engine consumes read-only; voting on a group-gated action is the
// one place that network's membership feeds into the pipeline directly).
type MasternodeVoteHandler struct {
	ACL *ACL
}

func (h *MasternodeVoteHandler) decode(t Transition) (MasternodeVoteBody, error) {
	var body MasternodeVoteBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode masternode vote: %w", err)
	}
	return body, nil
}

func (h *MasternodeVoteHandler) Validate(ctx Context, t Transition) ConsensusError {
	_, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	entry, ok := votingMasternode(ctx.Masternodes, t.IdentityID)
	if !ok {
		return ErrTokenACLDenied(fmt.Sprintf("%s is not a known masternode", t.IdentityID))
	}
	if !entry.Voting {
		return ErrTokenACLDenied(fmt.Sprintf("masternode %s is not voting-enabled", t.IdentityID))
	}
	return nil
}

// Execute casts the vote via ACL.Authorize. A not-yet-quorum result is
// reported as a paid consensus error (the vote itself still bills a
// processing fee and stays in the ACL's in-memory tally); reaching quorum reports
// success. Either way the caller is responsible for then issuing the
// actual control-action transition once quorum is confirmed reached.
func (h *MasternodeVoteHandler) Execute(_ Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	if verr := h.ACL.Authorize(body.ContractID, body.Position, body.Action, t.IdentityID); verr != nil {
		return 0, "", ErrTokenACLDenied(verr.Error())
	}
	return 0, fmt.Sprintf("masternode %s vote reached quorum for action %d on %s/%d", t.IdentityID, body.Action, body.ContractID, body.Position), nil
}
