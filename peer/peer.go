// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer implements connection state for one remote node: I/O
// buffers, handshake state machine, ban score, and pending outbound
// queue (spec.md Section 3 Peer, Section 4.4).
package peer

import (
	"net"
	"sync"
	"time"

	"github.com/decred/dcrd/lru"

	"github.com/coinlantern/spvwallet/wire"
)

// HandshakeState is the explicit state machine spec.md Section 9
// calls for, replacing a bare counter that conflated multiple states
// in a single integer.
type HandshakeState int

const (
	// StateNew: no version traffic exchanged yet.
	StateNew HandshakeState = iota
	// StateVersionSent: our version message is on the wire.
	StateVersionSent
	// StateVersionReceived: the remote's version has arrived.
	StateVersionReceived
	// StateEstablished: verack seen; all message kinds are accepted.
	StateEstablished
)

// BanScoreDisconnect is the threshold at which a peer's accumulated
// ban score forces disconnection (spec.md Section 4.4).
const BanScoreDisconnect = 100

// knownInventoryCap bounds the peer's de-dup set of recently seen
// inventory hashes.
const knownInventoryCap = 5000

// Peer holds all per-connection state for one remote node. Its
// OutputQueue and handshake state are mutated only under the
// reactor's short-term global lock (spec.md Section 5); Peer itself
// additionally serializes its own field access with mu so callers
// outside the reactor (the message handler) can safely read/update
// counters without reaching into reactor internals.
type Peer struct {
	mu sync.Mutex

	Addr net.Addr

	Conn net.Conn

	Handshake       HandshakeState
	NegotiatedPver  uint32
	Services        wire.ServiceFlag
	RemoteHeight    int32
	UserAgent       string

	PendingPingSent bool
	PingNonce       uint64
	LastActivity    time.Time
	ConnectedAt     time.Time

	BanScore int32

	DisconnectRequested bool

	// OutputQueue holds messages waiting to be written. The reactor
	// drains it; any thread appending to it must wake the reactor.
	OutputQueue []wire.Message

	known *lru.Cache[string]
}

// New wraps an established connection in a Peer, ready for the
// version handshake.
func New(addr net.Addr, conn net.Conn) *Peer {
	now := time.Now()
	return &Peer{
		Addr:         addr,
		Conn:         conn,
		Handshake:    StateNew,
		LastActivity: now,
		ConnectedAt:  now,
		known:        lru.NewCache[string](knownInventoryCap),
	}
}

// Established reports whether the version/verack handshake has
// completed, at which point every other message kind is accepted.
func (p *Peer) Established() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Handshake == StateEstablished
}

// AdvanceHandshake moves the state machine forward by exactly one
// step, per spec.md Section 4.4: S0->S1 on sending version, S1->S2 on
// receiving remote version, S2->S3 on receiving verack.
func (p *Peer) AdvanceHandshake() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Handshake < StateEstablished {
		p.Handshake++
	}
}

// Queue appends msg to the peer's output queue. The caller is
// responsible for waking the reactor afterward.
func (p *Peer) Queue(msg wire.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.OutputQueue = append(p.OutputQueue, msg)
}

// PopOutput removes and returns the next queued output message, or
// nil if the queue is empty.
func (p *Peer) PopOutput() wire.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.OutputQueue) == 0 {
		return nil
	}
	msg := p.OutputQueue[0]
	p.OutputQueue = p.OutputQueue[1:]
	return msg
}

// HasQueuedOutput reports whether the output queue is non-empty.
func (p *Peer) HasQueuedOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.OutputQueue) > 0
}

// AddBanScore adds delta to the peer's ban score and reports whether
// the peer has now crossed BanScoreDisconnect.
func (p *Peer) AddBanScore(delta int32) (shouldDisconnect bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.BanScore += delta
	return p.BanScore >= BanScoreDisconnect
}

// Touch records network activity, resetting the silence timer used by
// the reactor's housekeeping pass.
func (p *Peer) Touch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LastActivity = time.Now()
}

// Silence returns how long it has been since the last observed
// activity from this peer.
func (p *Peer) Silence() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.LastActivity)
}

// KnowsInventory reports whether this peer is known to already have
// hash (previously seen in an inv from or to it), and records hash as
// known if not.
func (p *Peer) KnowsInventory(hash string) bool {
	if p.known.Contains(hash) {
		return true
	}
	p.known.Add(hash)
	return false
}

// RequestDisconnect marks the peer for removal at the reactor's next
// housekeeping pass.
func (p *Peer) RequestDisconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DisconnectRequested = true
}

func (p *Peer) ShouldDisconnect() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.DisconnectRequested
}

// ID uniquely identifies this peer for de-dup bookkeeping (the
// inventory scheduler's contacted-peer set), using its remote address.
func (p *Peer) ID() string {
	return p.String()
}

// SetVersionInfo records the remote's negotiated protocol version,
// services, advertised chain height, and user agent, taken from its
// version message (spec.md Section 4.7 version handling). pver is the
// minimum of our and the remote's protocol versions.
func (p *Peer) SetVersionInfo(pver uint32, services wire.ServiceFlag, height int32, userAgent string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NegotiatedPver = pver
	p.Services = services
	p.RemoteHeight = height
	p.UserAgent = userAgent
}

// GetRemoteHeight returns the chain height the peer last advertised.
func (p *Peer) GetRemoteHeight() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.RemoteHeight
}

// SetPendingPing records that a ping was just sent with nonce, or
// clears the pending flag when nonce is 0 and sent is false.
func (p *Peer) SetPendingPing(sent bool, nonce uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PendingPingSent = sent
	p.PingNonce = nonce
}

// PendingPing reports whether a ping is outstanding and, if so, its
// nonce.
func (p *Peer) PendingPing() (bool, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.PendingPingSent, p.PingNonce
}

// HasService reports whether the peer's negotiated service bits
// include every flag in s.
func (p *Peer) HasService(s wire.ServiceFlag) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Services.HasFlag(s)
}

// String identifies the peer by its remote address, for logging.
func (p *Peer) String() string {
	if p.Addr == nil {
		return "<unknown>"
	}
	return p.Addr.String()
}
