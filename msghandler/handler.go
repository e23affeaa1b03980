// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package msghandler dispatches decoded wire messages to wallet
// state: handshake bookkeeping, address-book updates, inventory
// scheduling, merkleblock proof verification feeding the chain
// engine, and output/spend tracking from tx messages (spec.md
// Section 4.7).
package msghandler

import (
	"math/rand"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/coinlantern/spvwallet/addresses"
	"github.com/coinlantern/spvwallet/addrmgr"
	"github.com/coinlantern/spvwallet/bloom"
	"github.com/coinlantern/spvwallet/chaincfg"
	"github.com/coinlantern/spvwallet/chainmgr"
	"github.com/coinlantern/spvwallet/invreq"
	"github.com/coinlantern/spvwallet/keys"
	"github.com/coinlantern/spvwallet/store"
	"github.com/coinlantern/spvwallet/txscript"
	"github.com/coinlantern/spvwallet/waltterr"
	"github.com/coinlantern/spvwallet/wire"
)

// minBloomVersion is the lowest protocol version that supports bloom
// filtering; a peer below it cannot usefully serve an SPV wallet
// (spec.md Section 4.7 version handling).
const minBloomVersion = wire.BIP0037Version

// Peer is the subset of peer.Peer behavior the handler depends on,
// kept narrow to avoid an import cycle back to package peer.
type Peer interface {
	ID() string
	Queue(wire.Message)
	AdvanceHandshake()
	Established() bool
	AddBanScore(int32) bool
	RequestDisconnect()
	SetVersionInfo(pver uint32, services wire.ServiceFlag, height int32, userAgent string)
	GetRemoteHeight() int32
	HasService(wire.ServiceFlag) bool
	SetPendingPing(sent bool, nonce uint64)
	PendingPing() (bool, uint64)
	Touch()
}

// Handler owns the owned-key index and wires together the store, the
// chain engine, the inventory scheduler, and the address manager.
type Handler struct {
	store  store.Store
	chain  *chainmgr.Engine
	inv    *invreq.Scheduler
	addrs  *addrmgr.Manager
	params *chaincfg.Params

	ownedMu sync.Mutex
	owned   map[[20]byte]*keys.ECKey

	syncMu      sync.Mutex
	syncedPeers map[string]bool
}

// New returns a message handler backed by the given components. Call
// RefreshOwnedKeys once before handling any tx message.
func New(s store.Store, chain *chainmgr.Engine, inv *invreq.Scheduler, addrs *addrmgr.Manager, params *chaincfg.Params) *Handler {
	return &Handler{
		store:       s,
		chain:       chain,
		inv:         inv,
		addrs:       addrs,
		params:      params,
		owned:       make(map[[20]byte]*keys.ECKey),
		syncedPeers: make(map[string]bool),
	}
}

// RefreshOwnedKeys reloads the owned public-key-hash index from the
// store. Call it at startup and after generating a new key.
func (h *Handler) RefreshOwnedKeys() error {
	list, err := h.store.GetKeyList()
	if err != nil {
		return err
	}
	h.ownedMu.Lock()
	defer h.ownedMu.Unlock()
	h.owned = make(map[[20]byte]*keys.ECKey, len(list))
	for _, k := range list {
		h.owned[k.Hash160] = k
	}
	return nil
}

// Filter builds a bloom filter over every owned public-key hash, for
// the filterload sent once the handshake completes.
func (h *Handler) Filter() *bloom.Filter {
	h.ownedMu.Lock()
	n := uint32(len(h.owned))
	if n == 0 {
		n = 1
	}
	f := bloom.New(n, 0.0001, uint32(rand.Int31()))
	for hash160 := range h.owned {
		f.Add(hash160[:])
	}
	h.ownedMu.Unlock()
	return f
}

// Handle dispatches one decoded message from p (spec.md Section 4.7).
func (h *Handler) Handle(p Peer, msg wire.Message) error {
	p.Touch()
	switch m := msg.(type) {
	case *wire.MsgVersion:
		return h.handleVersion(p, m)
	case *wire.MsgVerAck:
		return h.handleVerAck(p)
	case *wire.MsgAddr:
		return h.handleAddr(m)
	case *wire.MsgInv:
		return h.handleInv(p, m)
	case *wire.MsgGetData:
		return h.handleGetData(p, m)
	case *wire.MsgGetBlocks:
		p.Queue(&wire.MsgInv{})
		return nil
	case *wire.MsgGetHeaders:
		p.Queue(&wire.MsgHeaders{})
		return nil
	case *wire.MsgHeaders:
		return nil // not expected in operation; ignored
	case *wire.MsgMerkleBlock:
		return h.handleMerkleBlock(p, m)
	case *wire.MsgTx:
		return h.handleTx(m)
	case *wire.MsgPing:
		p.Queue(&wire.MsgPong{Nonce: m.Nonce})
		return nil
	case *wire.MsgPong:
		return h.handlePong(p, m)
	case *wire.MsgReject:
		return h.handleReject(p, m)
	case *wire.MsgFilterLoad, *wire.MsgGetAddr:
		return nil // n/a to a client
	default:
		return nil // MsgUnknown and anything else: silently skipped
	}
}

func (h *Handler) handleVersion(p Peer, m *wire.MsgVersion) error {
	pver := wire.ProtocolVersion
	if uint32(m.ProtocolVersion) < pver {
		pver = uint32(m.ProtocolVersion)
	}
	if pver < minBloomVersion {
		p.RequestDisconnect()
		return waltterr.New(waltterr.Network, "peer protocol version lacks bloom filter support")
	}
	p.SetVersionInfo(pver, m.Services, m.LastBlock, m.UserAgent)
	p.AdvanceHandshake() // S1 -> S2
	p.Queue(&wire.MsgVerAck{})
	return nil
}

func (h *Handler) handleVerAck(p Peer) error {
	p.AdvanceHandshake() // S2 -> S3
	if !p.Established() {
		return nil
	}

	p.Queue(&wire.MsgGetAddr{})

	bits, hashFuncs, tweak := h.Filter().MsgFilterLoad()
	p.Queue(&wire.MsgFilterLoad{Filter: bits, HashFuncs: hashFuncs, Tweak: tweak})

	h.syncMu.Lock()
	alreadySynced := h.syncedPeers[p.ID()]
	h.syncedPeers[p.ID()] = true
	h.syncMu.Unlock()

	if alreadySynced {
		return nil
	}
	head, err := h.store.GetChainHead()
	if err != nil {
		return nil
	}
	if head.Height >= p.GetRemoteHeight() {
		return nil
	}
	p.Queue(&wire.MsgGetBlocks{
		ProtocolVersion:    wire.ProtocolVersion,
		BlockLocatorHashes: []chainhash.Hash{head.Hash},
	})
	return nil
}

func (h *Handler) handleAddr(m *wire.MsgAddr) error {
	h.addrs.AddFromWire(m.AddrList)
	return nil
}

func (h *Handler) handleInv(p Peer, m *wire.MsgInv) error {
	for _, iv := range m.InvList {
		var isNew bool
		var err error
		switch iv.Type {
		case wire.InvTypeTx:
			isNew, err = h.store.IsNewTransaction(iv.Hash)
		case wire.InvTypeBlock:
			isNew, err = h.store.IsNewBlock(iv.Hash)
		default:
			continue
		}
		if err != nil || !isNew {
			continue
		}
		h.inv.Announce(*iv, p)
	}
	return nil
}

func (h *Handler) handleGetData(p Peer, m *wire.MsgGetData) error {
	p.Queue(&wire.MsgNotFound{InvList: m.InvList})
	return nil
}

func (h *Handler) handleMerkleBlock(p Peer, m *wire.MsgMerkleBlock) error {
	root, matched, err := m.ExtractMatches()
	if err != nil {
		penalize(p, 20)
		return err
	}
	if root != m.Header.MerkleRoot {
		penalize(p, 20)
		return waltterr.New(waltterr.Verification, "merkle root does not match reconstructed partial tree")
	}

	header := m.Header
	if err := h.chain.Connect(&header, matched); err != nil {
		return err
	}
	h.inv.Resolve(wire.InvVect{Type: wire.InvTypeBlock, Hash: header.BlockHash()})
	return nil
}

func (h *Handler) handleTx(m *wire.MsgTx) error {
	hash := m.TxHash()
	normalized := normalizedTxHash(m)

	for _, in := range m.TxIn {
		_ = h.store.SetTxSpent(in.PreviousOutPoint.Hash, in.PreviousOutPoint.Index, true)
	}

	h.ownedMu.Lock()
	owned := h.owned
	h.ownedMu.Unlock()

	for i, out := range m.TxOut {
		hash160, ok := txscript.ExtractPKHash(out.PkScript)
		if !ok {
			continue
		}
		key, isOwned := owned[to20(hash160)]
		if !isOwned {
			continue
		}
		addr, err := addresses.New(hash160, h.params)
		if err != nil {
			continue
		}
		_ = h.store.StoreReceiveTx(&store.ReceiveOutput{
			TxHash:         hash,
			OutputIndex:    uint32(i),
			NormalizedHash: normalized,
			Address:        addr.String(),
			Value:          out.Value,
			TimeReceived:   time.Now(),
			IsChange:       key.IsChange,
		})
	}
	return nil
}

func (h *Handler) handlePong(p Peer, m *wire.MsgPong) error {
	sent, nonce := p.PendingPing()
	if sent && nonce == m.Nonce {
		p.SetPendingPing(false, 0)
	}
	return nil
}

func (h *Handler) handleReject(p Peer, m *wire.MsgReject) error {
	log.Debugf("reject from %s: code=%v", p.ID(), m.Code)
	switch m.Code {
	case wire.RejectCheckpoint, wire.RejectObsolete, wire.RejectInvalid:
		penalize(p, 10)
	}
	return nil
}

// penalize adds delta to p's ban score and disconnects it once the
// score crosses peer.BanScoreDisconnect (spec.md Section 4.4).
func penalize(p Peer, delta int32) {
	if p.AddBanScore(delta) {
		p.RequestDisconnect()
	}
}

func to20(b []byte) [20]byte {
	var out [20]byte
	copy(out[:], b)
	return out
}

// normalizedTxHash hashes tx with every input's signature script
// blanked, giving a malleability-resistant identifier stable across
// re-signings of the same logical spend.
func normalizedTxHash(tx *wire.MsgTx) chainhash.Hash {
	stripped := &wire.MsgTx{Version: tx.Version, LockTime: tx.LockTime}
	for _, in := range tx.TxIn {
		stripped.TxIn = append(stripped.TxIn, &wire.TxIn{
			PreviousOutPoint: in.PreviousOutPoint,
			Sequence:         in.Sequence,
		})
	}
	stripped.TxOut = tx.TxOut
	return stripped.TxHash()
}
