// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func TestExtractMatchesSingleTransaction(t *testing.T) {
	tx := chainhash.Hash{0xaa}
	mb := &MsgMerkleBlock{
		Transactions: 1,
		Hashes:       []chainhash.Hash{tx},
		Flags:        []byte{0x01},
	}

	root, matched, err := mb.ExtractMatches()
	if err != nil {
		t.Fatalf("ExtractMatches: %v", err)
	}
	if root != tx {
		t.Errorf("root = %x, want %x (single-tx tree root is the tx hash)", root, tx)
	}
	if len(matched) != 1 || matched[0] != tx {
		t.Errorf("matched = %x, want [%x]", matched, tx)
	}
}

func TestExtractMatchesTwoTransactionsOneMatch(t *testing.T) {
	hash0 := chainhash.Hash{0x01}
	hash1 := chainhash.Hash{0x02}
	var buf [64]byte
	copy(buf[:32], hash0[:])
	copy(buf[32:], hash1[:])
	wantRoot := chainhash.DoubleHashH(buf[:])

	mb := &MsgMerkleBlock{
		Transactions: 2,
		Hashes:       []chainhash.Hash{hash0, hash1},
		Flags:        []byte{0x03}, // parent=1 (descend), leaf0=1 (match), leaf1=0
	}

	root, matched, err := mb.ExtractMatches()
	if err != nil {
		t.Fatalf("ExtractMatches: %v", err)
	}
	if root != wantRoot {
		t.Errorf("root = %x, want %x", root, wantRoot)
	}
	if len(matched) != 1 || matched[0] != hash0 {
		t.Errorf("matched = %x, want [%x]", matched, hash0)
	}
}

func TestExtractMatchesRejectsTruncatedFlags(t *testing.T) {
	mb := &MsgMerkleBlock{
		Transactions: 2,
		Hashes:       []chainhash.Hash{{0x01}, {0x02}},
		Flags:        []byte{},
	}
	if _, _, err := mb.ExtractMatches(); err == nil {
		t.Fatal("expected an error for a partial tree with no flag bits")
	}
}
