package block

import (
	"path/filepath"
	"testing"

	"synnergy-platform/core"
	"synnergy-platform/transitions"
)

func TestEncodeDecodeBlockRLPRoundTrip(t *testing.T) {
	want := WireBlock{
		Header: WireHeader{
			Height:            7,
			CoreHeight:        42,
			TimeMs:            1000,
			Epoch:             core.Epoch(3),
			ProposerProTxHash: core.Identifier{9},
			AppHash:           core.Hash{1, 2, 3},
		},
		Transitions: []transitions.Transition{
			{Kind: transitions.KindTokenTransfer, IdentityID: core.Identifier{5}, Body: []byte(`{"x":1}`)},
		},
	}

	raw, err := EncodeBlockRLP(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeBlockRLP(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Header.Height != want.Header.Height {
		t.Fatalf("height = %d, want %d", got.Header.Height, want.Header.Height)
	}
	if len(got.Transitions) != 1 || string(got.Transitions[0].Body) != `{"x":1}` {
		t.Fatalf("transitions = %+v, want one item carrying the original body", got.Transitions)
	}
}

func TestWALAppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blocks.wal")
	wal, err := OpenWAL(path)
	if err != nil {
		t.Fatalf("open WAL: %v", err)
	}
	defer wal.Close()

	for h := uint64(1); h <= 3; h++ {
		b := WireBlock{Header: WireHeader{Height: h}}
		if err := wal.Append(b); err != nil {
			t.Fatalf("append block %d: %v", h, err)
		}
	}

	replayed, err := wal.ReplayAll()
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(replayed) != 3 {
		t.Fatalf("replayed %d blocks, want 3", len(replayed))
	}
	for i, b := range replayed {
		if b.Header.Height != uint64(i+1) {
			t.Fatalf("replayed[%d].Height = %d, want %d", i, b.Header.Height, i+1)
		}
	}

	if err := wal.Append(WireBlock{Header: WireHeader{Height: 4}}); err != nil {
		t.Fatalf("append after replay: %v", err)
	}
	replayed, err = wal.ReplayAll()
	if err != nil {
		t.Fatalf("replay after further append: %v", err)
	}
	if len(replayed) != 4 {
		t.Fatalf("replayed %d blocks, want 4", len(replayed))
	}
}
