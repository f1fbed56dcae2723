package transitions

import (
	"fmt"

	"go.uber.org/multierr"

	"synnergy-platform/core"
)

const (
	rewardShareMaxPercentage = 10000
	rewardShareMaxDocuments  = 16
)

// RewardShareFacts is the minimal observed surface the masternode
// reward-share data trigger needs, decoupled from the documents package
// to avoid a transitions<->documents import cycle (the pipeline supplies
// these from the in-flight batch before staging the mutation).
type RewardShareFacts struct {
	OwnerID            core.Identifier
	OwnerIsHPMN        bool
	PayToID            core.Identifier
	PayToIDExists      bool
	Percentage         uint64
	ExistingSharesByOwner int
}

// CheckMasternodeRewardShare reproduces the masternode-reward-share data
// trigger (spec.md §4.3 "data-trigger evaluation", §8 scenario 7),
// accumulating every violated condition via multierr rather than
// stopping at the first. Grounded on
// original_source/.../data_triggers/triggers/reward_share/v0/mod.rs's
// create_masternode_reward_shares_data_trigger_v0.
func CheckMasternodeRewardShare(facts RewardShareFacts) error {
	var errs error

	if !facts.OwnerIsHPMN {
		errs = multierr.Append(errs, ErrDataTriggerCondition("Only masternode identities can share rewards"))
	}

	if !facts.PayToIDExists {
		errs = multierr.Append(errs, ErrDataTriggerCondition(fmt.Sprintf("Identity '%s' doesn't exist", facts.PayToID)))
		return errs
	}

	if facts.ExistingSharesByOwner >= rewardShareMaxDocuments {
		errs = multierr.Append(errs, ErrDataTriggerCondition(fmt.Sprintf("Reward shares cannot contain more than %d identities", rewardShareMaxDocuments)))
		return errs
	}

	total := facts.Percentage
	// The original sums this new share's percentage against every
	// sibling share already stored for the owner; callers pass the
	// already-summed total in Percentage when checking an n-th share.
	if total > rewardShareMaxPercentage {
		errs = multierr.Append(errs, ErrDataTriggerCondition(fmt.Sprintf("Percentage can not be more than %d", rewardShareMaxPercentage)))
	}

	return errs
}

// DataTriggerKey identifies one contract-authored server-side rule by
// (contract, document type, action) — spec.md §4.3's addressing scheme
// for the data-trigger evaluation stage.
type DataTriggerKey struct {
	ContractID core.Identifier
	TypeName   string
	Action     string
}

// DataTriggerFunc evaluates one trigger against a document creation's
// facts, returning a (possibly multierr-joined) accumulation of
// DataTriggerConditionErrors.
type DataTriggerFunc func(properties map[string]any) error

// DataTriggerRegistry maps (contract, type, action) tuples to the
// trigger function gating them, generalized from the single
// hard-wired masternode-reward-share rule so additional
// contract-authored triggers can be registered the same way.
type DataTriggerRegistry struct {
	triggers map[DataTriggerKey]DataTriggerFunc
}

// NewDataTriggerRegistry returns an empty registry.
func NewDataTriggerRegistry() *DataTriggerRegistry {
	return &DataTriggerRegistry{triggers: make(map[DataTriggerKey]DataTriggerFunc)}
}

// Register installs fn for key, overwriting any previous registration.
func (r *DataTriggerRegistry) Register(key DataTriggerKey, fn DataTriggerFunc) {
	r.triggers[key] = fn
}

// Evaluate runs the trigger registered for key, if any, returning nil if
// none is registered (most document types have no data trigger).
func (r *DataTriggerRegistry) Evaluate(key DataTriggerKey, properties map[string]any) error {
	fn, ok := r.triggers[key]
	if !ok {
		return nil
	}
	return fn(properties)
}
