// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package reactor drives the wallet's network I/O: dialing outbound
// peers, framing bytes on and off the wire, and the housekeeping
// passes that advance the handshake, the inventory scheduler, address
// eviction, and peer liveness (spec.md Section 4.5).
//
// spec.md Section 9 describes this component as a single-threaded
// cooperative event loop over an OS-level readiness selector. Go has
// no idiomatic equivalent to that selector; the idiomatic replacement
// used here is a mutex-guarded peer table shared by the reactor's
// goroutines, with per-connection reader/writer goroutines feeding
// decoded messages over a channel to a single message-handler
// goroutine that consumes them in order. This keeps spec.md Section 5's
// "message-handler thread", "reactor thread", and bounded-channel
// back-pressure properties without a literal select() loop.
package reactor

import (
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/coinlantern/spvwallet/addrmgr"
	"github.com/coinlantern/spvwallet/chaincfg"
	"github.com/coinlantern/spvwallet/invreq"
	"github.com/coinlantern/spvwallet/msghandler"
	"github.com/coinlantern/spvwallet/peer"
	"github.com/coinlantern/spvwallet/store"
	"github.com/coinlantern/spvwallet/wire"
)

// maxOutbound is the hard cap on simultaneous outbound connections
// (spec.md Section 4.5 item 6e; this wallet never listens inbound).
const maxOutbound = 4

const (
	outboundDialInterval = 60 * time.Second
	invTickInterval      = 30 * time.Second
	pingSweepInterval    = 5 * time.Minute
	addrEvictInterval    = 30 * time.Minute
	handshakeTimeout     = 5 * time.Minute
	pingTimeout          = 10 * time.Minute
	quietPingThreshold   = 5 * time.Minute
	dialTimeout          = 10 * time.Second
	userAgent            = "/spvwallet:0.1.0/"
)

// Dialer opens a connection to addr, optionally through a proxy
// (spec.md Section 4.5 outbound connect). DirectDialer and
// NewSocksDialer are the two concrete implementations.
type Dialer func(network, addr string) (net.Conn, error)

// DirectDialer dials TCP directly, with no proxy.
func DirectDialer(network, addr string) (net.Conn, error) {
	return net.DialTimeout(network, addr, dialTimeout)
}

// peerHandle wraps a *peer.Peer so that every call to Queue also
// wakes that peer's writer goroutine, without peer.Peer itself
// needing to know about the reactor's channels.
type peerHandle struct {
	*peer.Peer
	wake chan struct{}
}

func (h *peerHandle) Queue(msg wire.Message) {
	h.Peer.Queue(msg)
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// inboundMsg pairs a decoded message with the peer it arrived from,
// the unit of work handed to the single message-handler goroutine.
type inboundMsg struct {
	peer *peerHandle
	msg  wire.Message
}

// Reactor owns the peer table and every connection's I/O goroutines.
type Reactor struct {
	params  *chaincfg.Params
	store   store.Store
	inv     *invreq.Scheduler
	addrs   *addrmgr.Manager
	handler *msghandler.Handler
	dial    Dialer

	staticOnly bool

	mu    sync.Mutex
	peers map[string]*conn

	inbound chan inboundMsg
	quit    chan struct{}
	wg      sync.WaitGroup
}

// New returns a reactor wired to the given components. dial is used
// for every outbound connection; pass DirectDialer for a plain
// connection or a dialer built from github.com/btcsuite/go-socks to
// route through a SOCKS5 proxy. staticOnly skips DNS seeding and
// restricts outbound dialing to addresses already in addrs (spec.md
// Section 6: a configured connect= list "disables DNS discovery and
// restricts to these peers").
func New(params *chaincfg.Params, s store.Store, inv *invreq.Scheduler, addrs *addrmgr.Manager, handler *msghandler.Handler, dial Dialer, staticOnly bool) *Reactor {
	if dial == nil {
		dial = DirectDialer
	}
	return &Reactor{
		params:     params,
		store:      s,
		inv:        inv,
		addrs:      addrs,
		handler:    handler,
		dial:       dial,
		staticOnly: staticOnly,
		peers:      make(map[string]*conn),
		inbound:    make(chan inboundMsg, 64),
		quit:       make(chan struct{}),
	}
}

// Start seeds the address manager from DNS and launches the
// message-handler and housekeeping goroutines. It returns
// immediately; call Stop to shut down.
func (r *Reactor) Start() {
	if !r.staticOnly {
		r.addrs.SeedFromDNS(r.params)
	}
	r.wg.Add(2)
	go r.handlerLoop()
	go r.housekeepingLoop()
	log.Infof("reactor started for network %v", r.params.Name)
}

// Stop signals every goroutine to exit and waits up to two minutes
// for them to drain (spec.md Section 5 shutdown policy).
func (r *Reactor) Stop() {
	close(r.quit)

	r.mu.Lock()
	for _, c := range r.peers {
		c.close()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Minute):
		log.Warnf("reactor shutdown timed out waiting for workers")
	}
}

// handlerLoop is the single message-handler thread (spec.md Section
// 5): it dequeues decoded messages in arrival order and dispatches
// each to the wallet's message handler.
func (r *Reactor) handlerLoop() {
	defer r.wg.Done()
	for {
		select {
		case m := <-r.inbound:
			if err := r.handler.Handle(m.peer, m.msg); err != nil {
				log.Debugf("handling %s from %s: %v", m.msg.Command(), m.peer.ID(), err)
			}
			if m.peer.ShouldDisconnect() {
				r.removePeer(m.peer.ID())
			}
		case <-r.quit:
			return
		}
	}
}

// housekeepingLoop drives the periodic passes spec.md Section 4.5
// item 6 lists, each on its own ticker rather than nested inside a
// single fixed-period wakeup, since Go gives every goroutine its own
// accurate timer instead of one shared readiness wakeup.
func (r *Reactor) housekeepingLoop() {
	defer r.wg.Done()

	outboundTicker := time.NewTicker(outboundDialInterval)
	defer outboundTicker.Stop()
	invTicker := time.NewTicker(invTickInterval)
	defer invTicker.Stop()
	pingTicker := time.NewTicker(pingSweepInterval)
	defer pingTicker.Stop()
	evictTicker := time.NewTicker(addrEvictInterval)
	defer evictTicker.Stop()

	for {
		select {
		case <-outboundTicker.C:
			r.maybeDialOutbound()
		case <-invTicker.C:
			r.inv.Tick(time.Now(), connectedPool{r})
		case <-pingTicker.C:
			r.sweepQuietPeers()
		case <-evictTicker.C:
			r.addrs.Evict(time.Now())
		case <-r.quit:
			return
		}
	}
}

// maybeDialOutbound opens one more outbound connection if the peer
// table has room (spec.md Section 4.5 item 6e).
func (r *Reactor) maybeDialOutbound() {
	r.mu.Lock()
	n := len(r.peers)
	r.mu.Unlock()
	if n >= maxOutbound {
		return
	}

	addr, ok := r.addrs.PickOutbound(r.staticOnly)
	if !ok {
		log.Debugf("no outbound candidate available")
		return
	}

	target := net.JoinHostPort(addr.IP.String(), strconv.Itoa(int(addr.Port)))
	nc, err := r.dial("tcp", target)
	if err != nil {
		log.Debugf("dial %s: %v", target, err)
		return
	}
	r.addrs.SetConnected(addr.IP, addr.Port, true)
	r.addPeer(nc)
}

// addPeer registers a freshly dialed connection, starts its I/O
// goroutines, and sends the opening version message (spec.md Section
// 4.5 item 2, Section 4.4 handshake S0->S1).
func (r *Reactor) addPeer(nc net.Conn) {
	p := peer.New(nc.RemoteAddr(), nc)
	ph := &peerHandle{Peer: p, wake: make(chan struct{}, 1)}
	c := &conn{r: r, ph: ph, nc: nc, done: make(chan struct{})}

	r.mu.Lock()
	r.peers[ph.ID()] = c
	r.mu.Unlock()

	r.wg.Add(2)
	go c.runReader()
	go c.runWriter()

	ph.Queue(r.versionMessage(nc.RemoteAddr()))
	ph.AdvanceHandshake()
}

func (r *Reactor) removePeer(id string) {
	r.mu.Lock()
	c, ok := r.peers[id]
	if ok {
		delete(r.peers, id)
	}
	r.mu.Unlock()
	if ok {
		c.close()
	}
}

// versionMessage builds the opening version message advertising our
// chain tip, or height 0 if the chain head is not yet known.
func (r *Reactor) versionMessage(remote net.Addr) *wire.MsgVersion {
	var height int32
	if head, err := r.store.GetChainHead(); err == nil {
		height = head.Height
	}
	return &wire.MsgVersion{
		ProtocolVersion: int32(wire.ProtocolVersion),
		Services:        wire.SFNodeNetwork,
		Timestamp:       time.Now(),
		AddrRecv:        wire.NetAddress{IP: remoteIP(remote)},
		AddrFrom:        wire.NetAddress{IP: net.IPv4zero, Services: wire.SFNodeNetwork},
		Nonce:           rand.Uint64(),
		UserAgent:       userAgent,
		LastBlock:       height,
		Relay:           true,
	}
}

func remoteIP(addr net.Addr) net.IP {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return net.IPv4zero
	}
	return net.ParseIP(host)
}

// sweepQuietPeers enforces spec.md Section 4.4's liveness rules: a
// handshake that hasn't reached S3 within five minutes is fatal, ten
// minutes of total silence is fatal, and five minutes of silence with
// no ping outstanding triggers one.
func (r *Reactor) sweepQuietPeers() {
	r.mu.Lock()
	conns := make([]*conn, 0, len(r.peers))
	for _, c := range r.peers {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	now := time.Now()
	for _, c := range conns {
		p := c.ph
		if !p.Established() && now.Sub(p.ConnectedAt) > handshakeTimeout {
			log.Debugf("disconnecting %s: handshake timeout", p.ID())
			r.removePeer(p.ID())
			continue
		}
		if p.Silence() > pingTimeout {
			log.Debugf("disconnecting %s: silence timeout", p.ID())
			r.removePeer(p.ID())
			continue
		}
		if sent, _ := p.PendingPing(); !sent && p.Silence() > quietPingThreshold {
			nonce := rand.Uint64()
			p.SetPendingPing(true, nonce)
			p.Queue(&wire.MsgPing{Nonce: nonce})
		}
	}
}

// connectedPool adapts Reactor to invreq.candidatePool.
type connectedPool struct{ r *Reactor }

func (c connectedPool) Connected() []invreq.Peer {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	out := make([]invreq.Peer, 0, len(c.r.peers))
	for _, conn := range c.r.peers {
		out = append(out, conn.ph)
	}
	return out
}
