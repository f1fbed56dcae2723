package transitions

import (
	"encoding/json"
	"fmt"
	"strings"

	"synnergy-platform/core"
)

// BatchBody is the decoded body of a KindBatch transition: an ordered
// list of document- and/or token-mutation transitions sharing the
// signer's identity and nonce sequence (spec.md §4.3 "Batch (ordered list
// of document-mutation and/or token-mutation transitions sharing the same
// signer)").
type BatchBody struct {
	Items []Transition
}

// BatchHandler dispatches each item in a Batch through the same Pipeline
// that handles top-level transitions, reporting per-item outcomes in the
// summary rather than failing the batch as a whole on one item's error —
// the default spec.md §9 Open Questions settles on ("default to per-item
// outcomes unless a future version constrains this").
type BatchHandler struct {
	Pipeline *Pipeline
}

func (h *BatchHandler) decode(t Transition) (BatchBody, error) {
	var body BatchBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode batch: %w", err)
	}
	return body, nil
}

func (h *BatchHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	if len(body.Items) == 0 {
		return ErrSchemaViolation("batch must carry at least one item")
	}
	for _, item := range body.Items {
		if item.Kind == KindBatch {
			return ErrSchemaViolation("batch items may not themselves be batches")
		}
	}
	return nil
}

// Execute runs every item through the pipeline in order, inheriting the
// parent batch's IdentityID/nonce/signature on each item (the items share
// the signer, spec.md §4.3). The batch's own fee is the sum of its
// successfully-billed items' fees; the summary enumerates each item's
// outcome kind so a caller can see which items within the batch landed.
func (h *BatchHandler) Execute(ctx Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	var totalFee core.Credits
	kinds := make([]string, len(body.Items))
	for i, item := range body.Items {
		item.IdentityID = t.IdentityID
		item.IdentityNonce = t.IdentityNonce
		item.SignaturePublicKeyID = t.SignaturePublicKeyID
		item.Signature = t.Signature
		outcome := h.Pipeline.Run(ctx, item)
		totalFee += outcome.Fee
		kinds[i] = fmt.Sprintf("%d:%s", item.Kind, outcome.Kind)
	}
	return totalFee, fmt.Sprintf("batch of %d items: %s", len(body.Items), strings.Join(kinds, ", ")), nil
}
