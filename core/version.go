package core

// PlatformVersion is the versioned-method-table handle spec.md §4.3/§9
// describes: every pipeline stage and fee computation resolves its
// behavior by looking up `version.<Subsystem>` rather than branching on a
// protocol number inline. Concretely, each subsystem package (fees,
// transitions, tokens) keeps its own frozen table indexed by the relevant
// version field here — core cannot hold those tables itself without
// creating an import cycle (fees/transitions/tokens all depend on core),
// so PlatformVersion carries the *keys*, and each subsystem resolves them
// through its own `VersionTable(id)` lookup. This preserves the teacher's
// intent (protocol upgrades are reviewable, one frozen struct per version)
// while keeping the dependency graph a DAG.
type PlatformVersion struct {
	// Number identifies the overall protocol version carried in a block's
	// context and in each transition's wire-format version byte.
	Number uint32

	// FeeVersion selects the processing-fee constant table and storage
	// price table (fees.VersionTable). Distinct from Number because a fee
	// table revision does not always accompany a protocol bump.
	FeeVersion uint32

	// TransitionRules is a validation-rules revision number carried with
	// the version; the transitions package does not read it, and Batch
	// outcomes are always per-item.
	TransitionRules uint32
}

// versions is the frozen registry of known protocol versions. New versions
// are appended, never mutated in place.
var versions = map[uint32]PlatformVersion{
	1: {Number: 1, FeeVersion: 1, TransitionRules: 1},
	2: {Number: 2, FeeVersion: 2, TransitionRules: 1},
}

// LatestProtocolVersion is the highest registered protocol version.
const LatestProtocolVersion uint32 = 2

// VersionAt returns the PlatformVersion registered for the given protocol
// number, or false if unknown. Block execution uses this to resolve the
// active version for an incoming block's declared version byte.
func VersionAt(number uint32) (PlatformVersion, bool) {
	v, ok := versions[number]
	return v, ok
}

// Latest returns the newest registered PlatformVersion.
func Latest() PlatformVersion {
	v, ok := versions[LatestProtocolVersion]
	if !ok {
		panic("core: latest protocol version not registered")
	}
	return v
}

// FeeVersionForEpoch resolves which fee table was active when bytes stored
// at epochCreated would have been charged, so refunds honor the price
// schedule in effect at storage time (spec.md §4.3 "Versioning"). epochFeeLog
// is the ledger of (epoch, FeeVersion) activations, append-only and sorted
// by epoch ascending.
func FeeVersionForEpoch(epochFeeLog []EpochFeeVersion, at Epoch) uint32 {
	fv := uint32(1)
	for _, e := range epochFeeLog {
		if e.ActivatedAt > at {
			break
		}
		fv = e.FeeVersion
	}
	return fv
}

// EpochFeeVersion records the epoch at which a given fee table revision
// became active.
type EpochFeeVersion struct {
	ActivatedAt Epoch
	FeeVersion  uint32
}
