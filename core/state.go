package core

import "sync/atomic"

// LastBlockInfo mirrors the fields consensus hands the block executor
// (spec.md §6 execute_block) that the rest of the platform needs to read
// back between blocks.
type LastBlockInfo struct {
	Height        uint64
	CoreHeight    uint32
	TimeMs        uint64
	Epoch         Epoch
	AppHash       Hash
	ProposerProTx Identifier
}

// PlatformState is the single process-level structure spec.md §5 and §9
// describe: current protocol version, epoch, last block info, masternode
// list, and the fee-version activation log needed so refunds honor
// whatever price schedule was active when the refunded bytes were stored.
// It is read-only during a block; the block executor swaps in a new
// snapshot only at commit. Readers (the query layer, spec.md §6) take a
// snapshot pointer so they never block on or observe an in-flight block.
type PlatformState struct {
	Version      PlatformVersion
	LastBlock    LastBlockInfo
	Masternodes  MasternodeListSnapshot
	FeeVersionLog []EpochFeeVersion
}

// PlatformStateHandle is the atomically-swapped holder for the current
// PlatformState, grounded in the teacher's singleton pattern (core.reg,
// core.idSvc) but using atomic.Pointer instead of a mutex so queries never
// block on block execution (spec.md §5 "Shared-resource policy").
type PlatformStateHandle struct {
	ptr atomic.Pointer[PlatformState]
}

// NewPlatformStateHandle seeds the handle with an initial state.
func NewPlatformStateHandle(initial PlatformState) *PlatformStateHandle {
	h := &PlatformStateHandle{}
	h.ptr.Store(&initial)
	return h
}

// Load returns the current committed snapshot. Safe for concurrent use
// without locking.
func (h *PlatformStateHandle) Load() PlatformState {
	return *h.ptr.Load()
}

// Swap atomically replaces the committed snapshot. Only the block executor
// calls this, and only at block-commit boundaries.
func (h *PlatformStateHandle) Swap(next PlatformState) {
	h.ptr.Store(&next)
}
