// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainmgr implements the chain engine's single entry point,
// Connect: new-block detection, parent linking with orphan queueing,
// reorg-aware chain-head selection, and the junction segment's
// proof-of-work/checkpoint/timestamp verification (spec.md
// Section 4.8).
package chainmgr

import (
	"math/big"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/coinlantern/spvwallet/chaincfg"
	"github.com/coinlantern/spvwallet/store"
	"github.com/coinlantern/spvwallet/waltterr"
	"github.com/coinlantern/spvwallet/wire"
)

// maxFutureDrift bounds how far a header's timestamp may sit ahead of
// local time before the junction it belongs to is rejected (spec.md
// Section 4.8 step 4).
const maxFutureDrift = 2 * time.Hour

// Engine owns chain-head selection against the wallet's durable
// store. One Engine per running wallet; its orphan queue is in-memory
// only and is lost (harmlessly) on restart.
type Engine struct {
	store   store.Store
	params  *chaincfg.Params
	orphans map[chainhash.Hash][]*store.Header

	// RequestParent, if set, is called with a missing parent's hash so
	// the caller can schedule a block request for it (spec.md Section
	// 4.8 step 2). Connect still queues the orphan in memory even if
	// this is nil.
	RequestParent func(parent chainhash.Hash)
}

// New returns a chain engine backed by s, validating against params.
func New(s store.Store, params *chaincfg.Params) *Engine {
	return &Engine{
		store:   s,
		params:  params,
		orphans: make(map[chainhash.Hash][]*store.Header),
	}
}

// Bootstrap persists the network's genesis header as the chain head
// if the store doesn't already have one. It is a no-op on every run
// after the first.
func (e *Engine) Bootstrap() error {
	if _, err := e.store.GetChainHead(); err == nil {
		return nil
	}

	g := e.params.GenesisHeader
	header := &wire.BlockHeader{
		Version:    g.Version,
		PrevBlock:  g.PrevBlock,
		MerkleRoot: g.MerkleRoot,
		Timestamp:  time.Unix(int64(g.Timestamp), 0),
		Bits:       g.Bits,
		Nonce:      g.Nonce,
	}
	chainWork := addWork([32]byte{}, calcWork(header.Bits))
	genesis := &store.Header{
		Hash:      e.params.GenesisHash,
		Header:    *header,
		Height:    0,
		ChainWork: chainWork,
		OnChain:   true,
	}
	if err := e.store.StoreHeader(genesis); err != nil {
		return err
	}
	return e.store.PutChainHead(&store.ChainHead{
		Hash:      genesis.Hash,
		Height:    0,
		ChainWork: chainWork,
	})
}

// Connect is the chain engine's entry point. header is a decoded
// merkleblock header; matched is the set of transaction hashes the
// peer claimed belong to it.
func (e *Engine) Connect(header *wire.BlockHeader, matched []chainhash.Hash) error {
	hash := header.BlockHash()

	isNew, err := e.store.IsNewBlock(hash)
	if err != nil {
		return err
	}
	if !isNew {
		return e.store.UpdateMatches(hash, matched)
	}
	return e.connectNew(header, hash, matched)
}

func (e *Engine) connectNew(header *wire.BlockHeader, hash chainhash.Hash, matched []chainhash.Hash) error {
	parent, err := e.store.GetHeader(header.PrevBlock)
	if err != nil {
		if waltterr.Is(err, waltterr.BlockNotFound) {
			e.orphans[header.PrevBlock] = append(e.orphans[header.PrevBlock], &store.Header{
				Hash:    hash,
				Header:  *header,
				Matched: matched,
			})
			if e.RequestParent != nil {
				e.RequestParent(header.PrevBlock)
			}
			return nil
		}
		return err
	}

	work := calcWork(header.Bits)
	chainWork := addWork(parent.ChainWork, work)
	newHdr := &store.Header{
		Hash:      hash,
		Header:    *header,
		Height:    parent.Height + 1,
		ChainWork: chainWork,
		OnChain:   false,
		Matched:   matched,
	}
	if err := e.store.StoreHeader(newHdr); err != nil {
		return err
	}

	if err := e.maybeReorg(newHdr); err != nil {
		return err
	}

	return e.drainOrphans(hash)
}

// drainOrphans connects every queued orphan whose parent is parentHash,
// now that it is known, recursively draining their own children too.
func (e *Engine) drainOrphans(parentHash chainhash.Hash) error {
	pending, ok := e.orphans[parentHash]
	if !ok {
		return nil
	}
	delete(e.orphans, parentHash)
	for _, orphan := range pending {
		hdr := orphan.Header
		if err := e.Connect(&hdr, orphan.Matched); err != nil {
			return err
		}
	}
	return nil
}

// maybeReorg compares newHdr's cumulative work against the current
// chain head and, if strictly greater, verifies and switches to the
// chain through newHdr (spec.md Section 4.8 step 4). Ties keep the
// existing head: first-seen wins.
func (e *Engine) maybeReorg(newHdr *store.Header) error {
	head, err := e.store.GetChainHead()
	if err != nil {
		return err
	}
	if compareWork(newHdr.ChainWork, head.ChainWork) <= 0 {
		return nil
	}

	junction, err := e.store.GetJunction(newHdr.Hash)
	if err != nil {
		return err
	}
	if len(junction) == 0 {
		return waltterr.New(waltterr.Verification, "empty junction segment")
	}
	forkPoint := junction[0]

	if err := e.verifyJunction(junction); err != nil {
		return err
	}

	disconnected, err := e.collectDisconnected(head.Hash, forkPoint.Height)
	if err != nil {
		return err
	}
	if err := e.disconnect(disconnected); err != nil {
		return err
	}

	log.Infof("reorg: disconnecting %d header(s), new head %v at height %d",
		len(disconnected), newHdr.Hash, newHdr.Height)
	return e.store.SetChainHead(junction)
}

// verifyJunction checks every header above the fork point for
// proof-of-work, checkpoint agreement, and bounded timestamp drift
// (spec.md Section 4.8 step 4). junction[0] is the already-on-chain
// fork point and is not re-verified.
func (e *Engine) verifyJunction(junction []*store.Header) error {
	now := time.Now()
	for _, h := range junction[1:] {
		if err := checkProofOfWork(h.Hash, h.Header.Bits, e.params.PowLimit); err != nil {
			return err
		}
		if cp, ok := e.params.CheckpointByHeight(h.Height); ok && *cp.Hash != h.Hash {
			return waltterr.New(waltterr.Verification, "checkpoint mismatch")
		}
		if h.Header.Timestamp.After(now.Add(maxFutureDrift)) {
			return waltterr.New(waltterr.Verification, "header timestamp too far in the future")
		}
	}
	return nil
}

// collectDisconnected walks the current best chain backward from tip
// until it reaches forkHeight, returning the headers that are about
// to fall off the main chain.
func (e *Engine) collectDisconnected(tip chainhash.Hash, forkHeight int32) ([]*store.Header, error) {
	var out []*store.Header
	cur := tip
	for {
		h, err := e.store.GetHeader(cur)
		if err != nil {
			return nil, err
		}
		if h.Height <= forkHeight {
			break
		}
		out = append(out, h)
		cur = h.Header.PrevBlock
	}
	return out, nil
}

// disconnect flips each header off-chain and resets confirmation
// status (BlockHash) on any receive/send transactions it had
// confirmed (spec.md Section 4.8 step 4 "set onChain=false and reset
// confirmation on all receive/send transactions referring to it").
func (e *Engine) disconnect(headers []*store.Header) error {
	if len(headers) == 0 {
		return nil
	}
	stale := make(map[chainhash.Hash]bool, len(headers))
	for _, h := range headers {
		h.OnChain = false
		if err := e.store.StoreHeader(h); err != nil {
			return err
		}
		stale[h.Hash] = true
	}

	receives, err := e.store.GetReceiveTxList()
	if err != nil {
		return err
	}
	for _, r := range receives {
		if r.BlockHash != nil && stale[*r.BlockHash] {
			r.BlockHash = nil
			if err := e.store.StoreReceiveTx(r); err != nil {
				return err
			}
		}
	}

	sends, err := e.store.GetSendTxList()
	if err != nil {
		return err
	}
	for _, s := range sends {
		if s.BlockHash != nil && stale[*s.BlockHash] {
			s.BlockHash = nil
			if err := e.store.StoreSendTx(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// calcWork converts a header's compact difficulty bits into the
// amount of work (2^256 / (target+1)) that header represents.
func calcWork(bits uint32) *big.Int {
	target := compactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	denominator := new(big.Int).Add(target, big.NewInt(1))
	return new(big.Int).Div(oneLsh256, denominator)
}

var oneLsh256 = new(big.Int).Lsh(big.NewInt(1), 256)

// compactToBig expands the compact ("nBits") representation of a
// proof-of-work target into a big.Int, per Bitcoin's difficulty
// encoding.
func compactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}
	if compact&0x00800000 != 0 {
		bn = bn.Neg(bn)
	}
	return bn
}

// hashToBig reverses a hash's internal (wire, little-endian) bytes
// into display order and reads them as a big-endian integer, matching
// the way nBits targets are defined.
func hashToBig(h chainhash.Hash) *big.Int {
	var reversed chainhash.Hash
	for i := 0; i < len(h); i++ {
		reversed[i] = h[len(h)-1-i]
	}
	return new(big.Int).SetBytes(reversed[:])
}

// checkProofOfWork verifies hash satisfies the target encoded by bits
// and that the target itself does not exceed the network's PoW limit.
func checkProofOfWork(hash chainhash.Hash, bits uint32, powLimit *big.Int) error {
	target := compactToBig(bits)
	if target.Sign() <= 0 {
		return waltterr.New(waltterr.Verification, "target is non-positive")
	}
	if target.Cmp(powLimit) > 0 {
		return waltterr.New(waltterr.Verification, "target exceeds network proof-of-work limit")
	}
	if hashToBig(hash).Cmp(target) > 0 {
		return waltterr.New(waltterr.Verification, "hash does not meet declared target")
	}
	return nil
}

// compareWork orders two big-endian 256-bit cumulative work values.
func compareWork(a, b [32]byte) int {
	return new(big.Int).SetBytes(a[:]).Cmp(new(big.Int).SetBytes(b[:]))
}

// addWork adds an incremental amount of work to a big-endian 256-bit
// accumulator, returning the new accumulator.
func addWork(acc [32]byte, delta *big.Int) [32]byte {
	sum := new(big.Int).Add(new(big.Int).SetBytes(acc[:]), delta)
	var out [32]byte
	sum.FillBytes(out[:])
	return out
}
