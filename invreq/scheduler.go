// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package invreq implements the Inventory Scheduler: the pending and
// inflight request queues that turn an `inv` announcement into a
// `getdata` sent to one concrete peer, with retry on timeout (spec.md
// Section 4.6).
package invreq

import (
	"math/rand"
	"sync"
	"time"

	"github.com/coinlantern/spvwallet/wire"
)

// InflightTimeout is how long a request may sit inflight before it is
// considered lost and returned to pending for retry.
const InflightTimeout = 30 * time.Second

// OriginPenalty is the ban-score penalty applied to a request's
// origin peer when no candidate peer remains to serve it.
const OriginPenalty = int32(2)

// Kind distinguishes the two inventory kinds this wallet tracks.
type Kind int

const (
	KindTx Kind = iota
	KindBlock
)

// Peer is the subset of peer.Peer the scheduler needs, kept narrow so
// this package has no import-cycle dependency on peer.
type Peer interface {
	ID() string
	Established() bool
	HasService(wire.ServiceFlag) bool
	Queue(wire.Message)
	AddBanScore(int32) bool
	RequestDisconnect()
}

// Request is one item of inventory awaiting retrieval.
type Request struct {
	Hash      wire.InvVect
	Origin    Peer
	contacted map[string]bool
	sentAt    time.Time
}

// Scheduler holds the pending and inflight queues described by
// spec.md Section 4.6, under the single lock Section 5 requires for
// this kind of shared mutable state.
type Scheduler struct {
	mu       sync.Mutex
	pending  []*Request
	inflight []*Request
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// Announce records a newly seen inventory hash from origin, to be
// requested on the next housekeeping pass.
func (s *Scheduler) Announce(inv wire.InvVect, origin Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, &Request{
		Hash:      inv,
		Origin:    origin,
		contacted: make(map[string]bool),
	})
}

// Resolve removes the matching inflight (or pending) entry when its
// tx, merkleblock, or notfound reply arrives.
func (s *Scheduler) Resolve(hash wire.InvVect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight = removeMatching(s.inflight, hash)
	s.pending = removeMatching(s.pending, hash)
}

func removeMatching(list []*Request, hash wire.InvVect) []*Request {
	out := list[:0]
	for _, r := range list {
		if r.Hash != hash {
			out = append(out, r)
		}
	}
	return out
}

// candidatePool supplies the set of currently connected peers a
// housekeeping pass may choose among.
type candidatePool interface {
	Connected() []Peer
}

// Tick runs one housekeeping pass: requeue stale inflight requests,
// then dispatch every pending request to a chosen peer (spec.md
// Section 4.6).
func (s *Scheduler) Tick(now time.Time, pool candidatePool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stillInflight []*Request
	for _, r := range s.inflight {
		if now.Sub(r.sentAt) > InflightTimeout {
			s.pending = append(s.pending, r)
			continue
		}
		stillInflight = append(stillInflight, r)
	}
	s.inflight = stillInflight

	connected := pool.Connected()

	// Every pending request this tick is either dispatched (moved to
	// inflight) or dropped for lack of a candidate peer; none remain
	// pending once the loop below finishes.
	for _, r := range s.pending {
		peer := s.choosePeer(r, connected)
		if peer == nil {
			if r.Origin != nil && r.Origin.AddBanScore(OriginPenalty) {
				r.Origin.RequestDisconnect()
			}
			log.Debugf("dropping inventory request %v: no candidate peer", r.Hash.Hash)
			continue // drop: no candidate
		}
		peer.Queue(&wire.MsgGetData{InvList: []*wire.InvVect{&r.Hash}})
		r.contacted[peer.ID()] = true
		r.sentAt = now
		s.inflight = append(s.inflight, r)
	}
	s.pending = nil
}

// choosePeer tries the origin peer first, then a random NODE_NETWORK
// peer not yet contacted for this request (spec.md Section 4.6).
func (s *Scheduler) choosePeer(r *Request, connected []Peer) Peer {
	if r.Origin != nil && r.Origin.Established() && !r.contacted[r.Origin.ID()] {
		return r.Origin
	}

	var candidates []Peer
	for _, p := range connected {
		if !p.Established() || !p.HasService(wire.SFNodeNetwork) {
			continue
		}
		if r.contacted[p.ID()] {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[rand.Intn(len(candidates))]
}

// PendingLen and InflightLen expose queue depth for diagnostics and
// tests.
func (s *Scheduler) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) InflightLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}
