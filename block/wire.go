package block

import (
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/rlp"

	"synnergy-platform/core"
	"synnergy-platform/transitions"
)

// WireHeader is a committed block's RLP-encodable header, the durable
// counterpart to the fields ExecuteBlock takes as arguments (spec.md §6's
// "Wire format for state transitions" extended to the block envelope
// that carries them to disk).
type WireHeader struct {
	Height            uint64
	CoreHeight        uint32
	TimeMs            uint64
	Epoch             core.Epoch
	ProposerProTxHash core.Identifier
	AppHash           core.Hash
}

// WireBlock is one committed block's full durable record: header plus
// the ordered transition list that produced it, grounded on the
// teacher's core/ledger.go Block{Header, Body, Transactions} shape
// generalized from UTXO-style Transactions to typed transitions.Transition.
type WireBlock struct {
	Header      WireHeader
	Transitions []transitions.Transition
}

// EncodeBlockRLP RLP-encodes a committed block, mirroring the teacher's
// RLP wire format for blocks (core/ledger.go uses rlp.EncodeToBytes for
// the same Block type DecodeBlockRLP decodes).
func EncodeBlockRLP(b WireBlock) ([]byte, error) {
	return rlp.EncodeToBytes(b)
}

// DecodeBlockRLP decodes an RLP-encoded block, grounded on
// core/ledger.go's DecodeBlockRLP.
func DecodeBlockRLP(data []byte) (WireBlock, error) {
	var b WireBlock
	if err := rlp.DecodeBytes(data, &b); err != nil {
		return WireBlock{}, err
	}
	return b, nil
}

// WAL is an append-only log of committed blocks, RLP's self-delimiting
// stream encoding standing in for the teacher's newline-delimited JSON
// WAL (core/ledger.go's walFile) so replay doesn't need a length prefix
// of its own.
type WAL struct {
	file *os.File
}

// OpenWAL opens (creating if needed) the WAL file at path for appending
// and replay.
func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("block: open WAL: %w", err)
	}
	return &WAL{file: f}, nil
}

// Append durably records one committed block.
func (w *WAL) Append(b WireBlock) error {
	if err := rlp.Encode(w.file, &b); err != nil {
		return fmt.Errorf("block: append WAL entry: %w", err)
	}
	return w.file.Sync()
}

// ReplayAll reads every block recorded in the WAL, in append order, for
// crash-recovery reconstruction of in-memory state ahead of normal block
// execution resuming.
func (w *WAL) ReplayAll() ([]WireBlock, error) {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("block: seek WAL: %w", err)
	}
	stream := rlp.NewStream(w.file, 0)
	var out []WireBlock
	for {
		var b WireBlock
		if err := stream.Decode(&b); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("block: decode WAL entry: %w", err)
		}
		out = append(out, b)
	}
	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("block: seek WAL to end: %w", err)
	}
	return out, nil
}

// Close releases the underlying file handle.
func (w *WAL) Close() error { return w.file.Close() }
