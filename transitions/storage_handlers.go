package transitions

import (
	"encoding/json"
	"fmt"
	"time"

	"synnergy-platform/core"
	"synnergy-platform/identity"
	"synnergy-platform/storage"
)

// StorageLeaseOpenBody is the decoded body of a KindStorageLeaseOpen
// transition: a client reserving bulk off-document storage capacity
// against a provider-published listing (storage.StorageListing). This is
// distinct from the per-document storage fee DocumentCreateHandler
// charges (spec.md §4.2 prices written document bytes); a lease prices a
// capacity reservation a masternode operator advertises out-of-band,
// adapted from the teacher's storage.go deal/listing flow.
type StorageLeaseOpenBody struct {
	Listing     storage.StorageListing
	DurationSec int64
}

// StorageLeaseOpenHandler debits the signing identity for the full lease
// price up front and durably records the resulting deal.
type StorageLeaseOpenHandler struct {
	Leases     *storage.LeaseRegistry
	Identities *identity.Registry
}

func (h *StorageLeaseOpenHandler) decode(t Transition) (StorageLeaseOpenBody, error) {
	var body StorageLeaseOpenBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode storage lease open: %w", err)
	}
	return body, nil
}

func (h *StorageLeaseOpenHandler) price(body StorageLeaseOpenBody) core.Credits {
	return core.Credits(body.Listing.PricePerGB) * core.Credits(body.Listing.CapacityGB)
}

func (h *StorageLeaseOpenHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	if body.Listing.CapacityGB <= 0 || body.Listing.PricePerGB == 0 {
		return ErrSchemaViolation("storage lease: listing must price a positive capacity")
	}
	if body.DurationSec <= 0 {
		return ErrSchemaViolation("storage lease: duration must be positive")
	}
	client, gerr := h.Identities.Get(t.IdentityID)
	if gerr != nil {
		return ErrContractNotFound(t.IdentityID.String())
	}
	if client.Balance < h.price(body) {
		return ErrBalanceInsufficient()
	}
	return nil
}

func (h *StorageLeaseOpenHandler) Execute(_ Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	client, gerr := h.Identities.Get(t.IdentityID)
	if gerr != nil {
		return 0, "", ErrContractNotFound(t.IdentityID.String())
	}
	price := h.price(body)
	if derr := client.Debit(price); derr != nil {
		return 0, "", ErrBalanceInsufficient()
	}
	deal, lerr := h.Leases.Open(body.Listing, t.IdentityID, time.Duration(body.DurationSec)*time.Second)
	if lerr != nil {
		return 0, "", ErrSchemaViolation(lerr.Error())
	}
	if serr := h.Identities.Save(client); serr != nil {
		return 0, "", serr
	}
	// price is returned as the transition's fee so the executor credits it
	// into the processing pool the same way every other paid transition
	// funds proposer/masternode distribution (block/executor.go).
	return price, fmt.Sprintf("storage lease %s opened by %s for %d credits", deal.ID, t.IdentityID, price), nil
}

// StorageLeaseCloseBody is the decoded body of a KindStorageLeaseClose
// transition.
type StorageLeaseCloseBody struct {
	DealID string
}

// StorageLeaseCloseHandler closes a previously opened lease. Closing
// carries no refund: spec.md's refund model (fees/refund.go) is reserved
// for released document bytes, not unused lease capacity.
type StorageLeaseCloseHandler struct {
	Leases *storage.LeaseRegistry
}

func (h *StorageLeaseCloseHandler) decode(t Transition) (StorageLeaseCloseBody, error) {
	var body StorageLeaseCloseBody
	if err := json.Unmarshal(t.Body, &body); err != nil {
		return body, fmt.Errorf("decode storage lease close: %w", err)
	}
	return body, nil
}

func (h *StorageLeaseCloseHandler) Validate(_ Context, t Transition) ConsensusError {
	body, err := h.decode(t)
	if err != nil {
		return ErrSchemaViolation(err.Error())
	}
	if body.DealID == "" {
		return ErrSchemaViolation("storage lease close: deal id required")
	}
	deal, gerr := h.Leases.Get(body.DealID)
	if gerr != nil {
		return ErrContractNotFound(body.DealID)
	}
	if deal.Client != t.IdentityID {
		return ErrTokenACLDenied(fmt.Sprintf("%s does not own lease %s", t.IdentityID, body.DealID))
	}
	if deal.Closed {
		return ErrSchemaViolation(fmt.Sprintf("storage lease %s already closed", body.DealID))
	}
	return nil
}

func (h *StorageLeaseCloseHandler) Execute(_ Context, t Transition) (core.Credits, string, error) {
	body, err := h.decode(t)
	if err != nil {
		return 0, "", ErrSchemaViolation(err.Error())
	}
	deal, cerr := h.Leases.Close(body.DealID)
	if cerr != nil {
		return 0, "", ErrSchemaViolation(cerr.Error())
	}
	return 0, fmt.Sprintf("storage lease %s closed by %s", deal.ID, t.IdentityID), nil
}
