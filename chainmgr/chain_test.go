// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainmgr

import (
	"testing"
	"time"

	"github.com/coinlantern/spvwallet/chaincfg"
	"github.com/coinlantern/spvwallet/store"
	"github.com/coinlantern/spvwallet/store/leveldbstore"
	"github.com/coinlantern/spvwallet/wire"
)

func openTestStore(t *testing.T) *leveldbstore.Store {
	t.Helper()
	s, err := leveldbstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// easyParams uses the lowest possible difficulty (bits 0x207fffff) so
// test headers need no real mining to satisfy their own declared
// target.
func easyParams() *chaincfg.Params {
	p := chaincfg.TestNetParams
	p.PowLimit = compactToBig(0x207fffff)
	p.Checkpoints = nil
	return &p
}

func mustSeedGenesis(t *testing.T, s *leveldbstore.Store) *wire.BlockHeader {
	t.Helper()
	genesis := &wire.BlockHeader{
		Version:   1,
		Timestamp: time.Unix(1231006505, 0),
		Bits:      0x207fffff,
		Nonce:     0,
	}
	hash := genesis.BlockHash()
	if err := s.StoreHeader(&store.Header{Hash: hash, Header: *genesis, Height: 0, OnChain: true}); err != nil {
		t.Fatalf("seed genesis: %v", err)
	}
	if err := s.PutChainHead(&store.ChainHead{Hash: hash, Height: 0}); err != nil {
		t.Fatalf("seed chain head: %v", err)
	}
	return genesis
}

// child mines (trivially, given easyParams' near-zero difficulty) a
// header extending parent.
func child(parent *wire.BlockHeader, nonce uint32) *wire.BlockHeader {
	h := &wire.BlockHeader{
		Version:   1,
		PrevBlock: parent.BlockHash(),
		Timestamp: parent.Timestamp.Add(10 * time.Minute),
		Bits:      0x207fffff,
		Nonce:     nonce,
	}
	// Step in strides of 1<<16 so headers started from different
	// nonces never land on the same one.
	for checkProofOfWork(h.BlockHash(), h.Bits, compactToBig(0x207fffff)) != nil {
		h.Nonce += 1 << 16
	}
	return h
}

func TestBootstrapSeedsGenesisOnce(t *testing.T) {
	s := openTestStore(t)
	params := easyParams()
	e := New(s, params)

	if err := e.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	head, err := s.GetChainHead()
	if err != nil {
		t.Fatalf("GetChainHead: %v", err)
	}
	if head.Hash != params.GenesisHash {
		t.Fatalf("chain head = %v, want genesis %v", head.Hash, params.GenesisHash)
	}
	if head.Height != 0 {
		t.Fatalf("chain head height = %d, want 0", head.Height)
	}

	// A second call must not disturb an already-seeded store.
	if err := e.Bootstrap(); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	head2, err := s.GetChainHead()
	if err != nil {
		t.Fatalf("GetChainHead: %v", err)
	}
	if head2.Hash != head.Hash {
		t.Fatalf("second Bootstrap changed chain head")
	}
}

func TestConnectExtendsChain(t *testing.T) {
	s := openTestStore(t)
	genesis := mustSeedGenesis(t, s)
	e := New(s, easyParams())

	h1 := child(genesis, 1)
	if err := e.Connect(h1, nil); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	head, err := s.GetChainHead()
	if err != nil {
		t.Fatalf("GetChainHead: %v", err)
	}
	if head.Hash != h1.BlockHash() {
		t.Errorf("chain head = %x, want %x", head.Hash, h1.BlockHash())
	}
	if head.Height != 1 {
		t.Errorf("chain head height = %d, want 1", head.Height)
	}
}

func TestConnectQueuesOrphanUntilParentArrives(t *testing.T) {
	s := openTestStore(t)
	genesis := mustSeedGenesis(t, s)
	e := New(s, easyParams())

	h1 := child(genesis, 1)
	h2 := child(h1, 2)

	// h2 arrives before h1: its parent is unknown, so it is queued.
	if err := e.Connect(h2, nil); err != nil {
		t.Fatalf("Connect(h2): %v", err)
	}
	head, err := s.GetChainHead()
	if err != nil {
		t.Fatalf("GetChainHead: %v", err)
	}
	if head.Height != 0 {
		t.Fatalf("chain head height = %d, want 0 (orphan should not advance it)", head.Height)
	}

	if err := e.Connect(h1, nil); err != nil {
		t.Fatalf("Connect(h1): %v", err)
	}
	head, err = s.GetChainHead()
	if err != nil {
		t.Fatalf("GetChainHead: %v", err)
	}
	if head.Height != 2 {
		t.Errorf("chain head height = %d, want 2 once the orphan drains", head.Height)
	}
}

func TestConnectReorgsToHeavierChain(t *testing.T) {
	s := openTestStore(t)
	genesis := mustSeedGenesis(t, s)
	e := New(s, easyParams())

	a1 := child(genesis, 1)
	if err := e.Connect(a1, nil); err != nil {
		t.Fatalf("Connect(a1): %v", err)
	}

	b1 := child(genesis, 2)
	if err := e.Connect(b1, nil); err != nil {
		t.Fatalf("Connect(b1): %v", err)
	}
	head, err := s.GetChainHead()
	if err != nil {
		t.Fatalf("GetChainHead: %v", err)
	}
	if head.Hash != a1.BlockHash() {
		t.Fatalf("equal-work competing header should not replace first-seen head")
	}

	b2 := child(b1, 3)
	if err := e.Connect(b2, nil); err != nil {
		t.Fatalf("Connect(b2): %v", err)
	}
	head, err = s.GetChainHead()
	if err != nil {
		t.Fatalf("GetChainHead: %v", err)
	}
	if head.Hash != b2.BlockHash() {
		t.Errorf("chain head = %x, want the heavier b-chain tip %x", head.Hash, b2.BlockHash())
	}

	oldTip, err := s.GetHeader(a1.BlockHash())
	if err != nil {
		t.Fatalf("GetHeader(a1): %v", err)
	}
	if oldTip.OnChain {
		t.Error("a1 should be off-chain after the reorg to the b-chain")
	}
}
