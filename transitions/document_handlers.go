package transitions

import (
	"encoding/json"
	"fmt"

	"synnergy-platform/contracts"
	"synnergy-platform/core"
	"synnergy-platform/documents"
	"synnergy-platform/fees"
	"synnergy-platform/identity"
	"synnergy-platform/storage"
)

// DocumentAttachment names a content-addressed blob (already pinned
// off-chain through the query server's blob gateway) a document create
// or update carries a pointer to, keyed by property name. Only the CID
// and size travel through the deterministic execution pipeline; the
// bytes themselves never do (spec.md §9's synchronous/deterministic
// execution core rules out an in-pipeline network fetch). Validity here
// is intentionally shallow — CID non-empty, size positive — attachments
// are not coupled to a contract's DocumentTypeSchema the way ordinary
// properties are.
type DocumentAttachment struct {
	Property  string
	CID       string
	SizeBytes int64
}

// DocumentCreateBody is the decoded body of a KindDocumentCreate
// transition.
type DocumentCreateBody struct {
	ContractID  core.Identifier
	TypeName    string
	DocumentID  core.Identifier
	Properties  map[string]any
	Attachments []DocumentAttachment
}

// DocumentCreateHandler creates one document, running stage 4's
// data-trigger evaluation ahead of the storage mutation (spec.md §4.3,
// §8 scenario 7 for the masternode reward-share document type).
type DocumentCreateHandler struct {
	Contracts *contracts.Manager
	Documents *documents.Registry
	Triggers  *DataTriggerRegistry
	// RewardShareFacts, when non-nil, derives the masternode reward-share
	// trigger's facts from a create body; nil for document types that
	// carry no such trigger.
	RewardShareFacts func(body DocumentCreateBody) RewardShareFacts
}

func (h *DocumentCreateHandler) decode(t Transition) (DocumentCreateBody, error) {
	var body DocumentCreateBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode document create: %w", err)
	}
	return body, nil
}

func (h *DocumentCreateHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	contract, gerr := h.Contracts.Get(body.ContractID)
	if gerr != nil {
		return ErrContractNotFound(body.ContractID.String())
	}
	schema, ok := contract.DocumentType(body.TypeName)
	if !ok {
		return ErrSchemaViolation(fmt.Sprintf("document type %q is not declared by contract %s", body.TypeName, body.ContractID))
	}
	doc := documents.Document{
		ID:         body.DocumentID,
		OwnerID:    t.IdentityID,
		ContractID: body.ContractID,
		TypeName:   body.TypeName,
		Properties: body.Properties,
	}
	if verr := documents.ValidateAgainstSchema(doc, schema); verr != nil {
		return ErrSchemaViolation(verr.Error())
	}
	for _, att := range body.Attachments {
		if att.Property == "" || att.CID == "" || att.SizeBytes <= 0 {
			return ErrSchemaViolation(fmt.Sprintf("attachment %q must carry a CID and positive size", att.Property))
		}
	}
	if h.RewardShareFacts != nil {
		facts := h.RewardShareFacts(body)
		if terr := CheckMasternodeRewardShare(facts); terr != nil {
			return ErrDataTriggerCondition(terr.Error())
		}
	}
	if h.Triggers != nil {
		key := DataTriggerKey{ContractID: body.ContractID, TypeName: body.TypeName, Action: "create"}
		if terr := h.Triggers.Evaluate(key, body.Properties); terr != nil {
			return ErrDataTriggerCondition(terr.Error())
		}
	}
	return nil
}

func (h *DocumentCreateHandler) Execute(ctx Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	contract, gerr := h.Contracts.Get(body.ContractID)
	if gerr != nil {
		return 0, "", ErrContractNotFound(body.ContractID.String())
	}
	now := ctx.TimeMs
	raw, merr := json.Marshal(body.Properties)
	if merr != nil {
		return 0, "", ErrSchemaViolation(merr.Error())
	}
	totalBytes := uint64(len(raw))
	attachmentNames := make([]string, 0, len(body.Attachments))
	for _, att := range body.Attachments {
		totalBytes += uint64(att.SizeBytes)
		attachmentNames = append(attachmentNames, att.Property)
	}
	fee := fees.StorageFeeForBytes(ctx.FeeTable, totalBytes)
	doc := documents.Document{
		ID:                       body.DocumentID,
		OwnerID:                  t.IdentityID,
		ContractID:               body.ContractID,
		TypeName:                 body.TypeName,
		Revision:                 1,
		Properties:               body.Properties,
		CreatedAtMs:              &now,
		UpdatedAtMs:              &now,
		CreatedAtEpoch:           ctx.Epoch,
		StoredBytes:              totalBytes,
		StoragePricePerByteEpoch: ctx.FeeTable.StorageCreditPerByteEpoch,
		Attachments:              attachmentNames,
	}
	if cerr := h.Documents.Create(doc, contract); cerr != nil {
		if consensusErr, ok := cerr.(ConsensusError); ok {
			return 0, "", consensusErr
		}
		return 0, "", ErrUniquenessViolation(cerr.Error())
	}
	for _, att := range body.Attachments {
		ref := storage.BlobRef{
			CID:       att.CID,
			SizeBytes: att.SizeBytes,
			Flags: storage.StorageFlags{
				OwnerIdentityID:  [32]byte(t.IdentityID),
				EpochCreated:     uint16(ctx.Epoch),
				EpochUpdatedLast: uint16(ctx.Epoch),
			},
		}
		if serr := h.Documents.SetAttachment(body.ContractID, body.TypeName, body.DocumentID, att.Property, ref); serr != nil {
			return 0, "", fmt.Errorf("document create: pin attachment %q: %w", att.Property, serr)
		}
	}
	return fee, fmt.Sprintf("document %s/%s created by %s", body.ContractID, body.DocumentID, t.IdentityID), nil
}

// DocumentUpdateBody is the decoded body of a KindDocumentUpdate
// transition: a full-document replacement of Properties, the shape
// spec.md §4.3's "document-mutation" transitions use.
type DocumentUpdateBody struct {
	ContractID core.Identifier
	TypeName   string
	DocumentID core.Identifier
	Properties map[string]any
}

// DocumentUpdateHandler replaces a document's properties, charging only
// for the net byte growth (spec.md §4.2 "storage fee ... charged at
// creation/growth"); a shrinking update charges nothing (the refund path
// is reserved for deletes, per spec.md's refund model).
type DocumentUpdateHandler struct {
	Contracts *contracts.Manager
	Documents *documents.Registry
	Triggers  *DataTriggerRegistry
}

func (h *DocumentUpdateHandler) decode(t Transition) (DocumentUpdateBody, error) {
	var body DocumentUpdateBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode document update: %w", err)
	}
	return body, nil
}

func (h *DocumentUpdateHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	contract, gerr := h.Contracts.Get(body.ContractID)
	if gerr != nil {
		return ErrContractNotFound(body.ContractID.String())
	}
	schema, ok := contract.DocumentType(body.TypeName)
	if !ok {
		return ErrSchemaViolation(fmt.Sprintf("document type %q is not declared by contract %s", body.TypeName, body.ContractID))
	}
	if !schema.Mutable {
		return ErrSchemaViolation(fmt.Sprintf("document type %q is immutable", body.TypeName))
	}
	existing, gerr := h.Documents.Get(body.ContractID, body.TypeName, body.DocumentID)
	if gerr != nil {
		return ErrContractNotFound(body.DocumentID.String())
	}
	if existing.OwnerID != t.IdentityID {
		return ErrTokenACLDenied(fmt.Sprintf("%s does not own document %s", t.IdentityID, body.DocumentID))
	}
	candidate := existing
	candidate.Properties = body.Properties
	if verr := documents.ValidateAgainstSchema(candidate, schema); verr != nil {
		return ErrSchemaViolation(verr.Error())
	}
	if h.Triggers != nil {
		key := DataTriggerKey{ContractID: body.ContractID, TypeName: body.TypeName, Action: "update"}
		if terr := h.Triggers.Evaluate(key, body.Properties); terr != nil {
			return ErrDataTriggerCondition(terr.Error())
		}
	}
	return nil
}

func (h *DocumentUpdateHandler) Execute(ctx Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	contract, gerr := h.Contracts.Get(body.ContractID)
	if gerr != nil {
		return 0, "", ErrContractNotFound(body.ContractID.String())
	}
	existing, gerr := h.Documents.Get(body.ContractID, body.TypeName, body.DocumentID)
	if gerr != nil {
		return 0, "", ErrContractNotFound(body.DocumentID.String())
	}
	raw, merr := json.Marshal(body.Properties)
	if merr != nil {
		return 0, "", ErrSchemaViolation(merr.Error())
	}
	newSize := uint64(len(raw))
	var fee core.Credits
	if newSize > existing.StoredBytes {
		fee = fees.StorageFeeForBytes(ctx.FeeTable, newSize-existing.StoredBytes)
	}
	now := ctx.TimeMs
	updated := existing
	updated.Properties = body.Properties
	updated.Revision++
	updated.UpdatedAtMs = &now
	updated.StoredBytes = newSize
	if cerr := h.Documents.Replace(updated, contract); cerr != nil {
		if consensusErr, ok := cerr.(ConsensusError); ok {
			return 0, "", consensusErr
		}
		return 0, "", ErrUniquenessViolation(cerr.Error())
	}
	return fee, fmt.Sprintf("document %s/%s updated to revision %d", body.ContractID, body.DocumentID, updated.Revision), nil
}

// DocumentDeleteBody is the decoded body of a KindDocumentDelete
// transition.
type DocumentDeleteBody struct {
	ContractID core.Identifier
	TypeName   string
	DocumentID core.Identifier
}

// DocumentDeleteHandler removes a document and refunds its owner for the
// released bytes (spec.md §4.2 "refund model"), paying the refund out of
// the storage pool into the owner's identity balance.
type DocumentDeleteHandler struct {
	Contracts  *contracts.Manager
	Documents  *documents.Registry
	Identities *identity.Registry
	Pools      *fees.PoolDistributor
}

func (h *DocumentDeleteHandler) decode(t Transition) (DocumentDeleteBody, error) {
	var body DocumentDeleteBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode document delete: %w", err)
	}
	return body, nil
}

func (h *DocumentDeleteHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	contract, gerr := h.Contracts.Get(body.ContractID)
	if gerr != nil {
		return ErrContractNotFound(body.ContractID.String())
	}
	schema, ok := contract.DocumentType(body.TypeName)
	if !ok {
		return ErrSchemaViolation(fmt.Sprintf("document type %q is not declared by contract %s", body.TypeName, body.ContractID))
	}
	if !schema.CanBeDeleted {
		return ErrSchemaViolation(fmt.Sprintf("document type %q cannot be deleted", body.TypeName))
	}
	doc, gerr := h.Documents.Get(body.ContractID, body.TypeName, body.DocumentID)
	if gerr != nil {
		return ErrContractNotFound(body.DocumentID.String())
	}
	if doc.OwnerID != t.IdentityID {
		return ErrTokenACLDenied(fmt.Sprintf("%s does not own document %s", t.IdentityID, body.DocumentID))
	}
	return nil
}

func (h *DocumentDeleteHandler) Execute(ctx Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	contract, gerr := h.Contracts.Get(body.ContractID)
	if gerr != nil {
		return 0, "", ErrContractNotFound(body.ContractID.String())
	}
	doc, gerr := h.Documents.Get(body.ContractID, body.TypeName, body.DocumentID)
	if gerr != nil {
		return 0, "", ErrContractNotFound(body.DocumentID.String())
	}
	refund := fees.ComputeRefund(doc.StoredBytes, doc.StoragePricePerByteEpoch, doc.CreatedAtEpoch, ctx.Epoch)
	if cerr := h.Documents.Delete(body.ContractID, body.TypeName, body.DocumentID, contract); cerr != nil {
		if consensusErr, ok := cerr.(ConsensusError); ok {
			return 0, "", consensusErr
		}
		return 0, "", ErrUniquenessViolation(cerr.Error())
	}
	for _, property := range doc.Attachments {
		_ = h.Documents.DeleteAttachment(body.ContractID, body.TypeName, body.DocumentID, property)
	}
	if refund > 0 && h.Pools != nil && h.Identities != nil {
		if derr := h.Pools.DebitRefund(refund); derr == nil {
			if owner, oerr := h.Identities.Get(doc.OwnerID); oerr == nil {
				owner.Credit(refund)
				_ = h.Identities.Save(owner)
			}
		}
	}
	return 0, fmt.Sprintf("document %s/%s deleted, refunded %d", body.ContractID, body.DocumentID, refund), nil
}
