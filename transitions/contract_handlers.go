package transitions

import (
	"encoding/json"
	"fmt"

	"synnergy-platform/contracts"
	"synnergy-platform/core"
)

// DataContractCreateBody is the decoded body of a KindDataContractCreate
// transition.
type DataContractCreateBody struct {
	Contract contracts.DataContract
}

// DataContractCreateHandler registers a new data contract.
type DataContractCreateHandler struct {
	Contracts *contracts.Manager
}

func (h *DataContractCreateHandler) decode(t Transition) (DataContractCreateBody, error) {
	var body DataContractCreateBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode data contract create: %w", err)
	}
	return body, nil
}

func (h *DataContractCreateHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	if body.Contract.OwnerID != t.IdentityID {
		return ErrSchemaViolation("owner_id must match the signing identity")
	}
	if len(body.Contract.DocumentTypes) == 0 {
		return ErrSchemaViolation("a data contract must declare at least one document type")
	}
	return nil
}

func (h *DataContractCreateHandler) Execute(_ Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	if cerr := h.Contracts.Create(body.Contract); cerr != nil {
		return 0, "", ErrUniquenessViolation(cerr.Error())
	}
	return 0, fmt.Sprintf("contract %s created by %s", body.Contract.ID, t.IdentityID), nil
}

// DataContractUpdateBody is the decoded body of a KindDataContractUpdate
// transition: the new document type/group definitions to merge in
// (spec.md §4.1 "DataContractUpdate", schema additive-only).
type DataContractUpdateBody struct {
	ContractID    core.Identifier
	DocumentTypes map[string]contracts.DocumentTypeSchema
}

// DataContractUpdateHandler applies an additive schema update.
type DataContractUpdateHandler struct {
	Contracts *contracts.Manager
}

func (h *DataContractUpdateHandler) decode(t Transition) (DataContractUpdateBody, error) {
	var body DataContractUpdateBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode data contract update: %w", err)
	}
	return body, nil
}

func (h *DataContractUpdateHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	contract, gerr := h.Contracts.Get(body.ContractID)
	if gerr != nil {
		return ErrContractNotFound(body.ContractID.String())
	}
	if contract.OwnerID != t.IdentityID {
		return ErrTokenACLDenied("only the owning identity may update a data contract")
	}
	return nil
}

func (h *DataContractUpdateHandler) Execute(_ Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	var newVersion uint32
	uerr := h.Contracts.Update(body.ContractID, func(c *contracts.DataContract) error {
		for name, schema := range body.DocumentTypes {
			c.DocumentTypes[name] = schema
		}
		newVersion = c.Version + 1
		return nil
	})
	if uerr != nil {
		return 0, "", ErrContractNotFound(body.ContractID.String())
	}
	return 0, fmt.Sprintf("contract %s updated to version %d", body.ContractID, newVersion), nil
}
