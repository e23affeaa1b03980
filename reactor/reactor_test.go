// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reactor

import (
	"net"
	"testing"
	"time"

	"github.com/coinlantern/spvwallet/addrmgr"
	"github.com/coinlantern/spvwallet/chaincfg"
	"github.com/coinlantern/spvwallet/chainmgr"
	"github.com/coinlantern/spvwallet/invreq"
	"github.com/coinlantern/spvwallet/msghandler"
	"github.com/coinlantern/spvwallet/store/leveldbstore"
	"github.com/coinlantern/spvwallet/wire"
)

func newTestReactor(t *testing.T) *Reactor {
	t.Helper()
	s, err := leveldbstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	params := &chaincfg.TestNetParams
	chain := chainmgr.New(s, params)
	inv := invreq.New()
	addrs := addrmgr.New()
	handler := msghandler.New(s, chain, inv, addrs, params)

	r := New(params, s, inv, addrs, handler, nil, false)
	r.Start()
	t.Cleanup(r.Stop)
	return r
}

func readMsg(t *testing.T, conn net.Conn, magic chaincfg.BitcoinNet) wire.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msg, err := wire.ReadMessage(conn, wire.ProtocolVersion, magic)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return msg
}

func writeMsg(t *testing.T, conn net.Conn, msg wire.Message, magic chaincfg.BitcoinNet) {
	t.Helper()
	if err := wire.WriteMessage(conn, msg, wire.ProtocolVersion, magic); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
}

func TestAddPeerSendsVersionAndCompletesHandshake(t *testing.T) {
	r := newTestReactor(t)
	ours, theirs := net.Pipe()
	defer theirs.Close()

	r.addPeer(ours)

	if _, ok := readMsg(t, theirs, r.params.Net).(*wire.MsgVersion); !ok {
		t.Fatal("expected the reactor to open with a version message")
	}

	writeMsg(t, theirs, &wire.MsgVersion{
		ProtocolVersion: int32(wire.ProtocolVersion),
		UserAgent:       "/test:1.0/",
	}, r.params.Net)
	if _, ok := readMsg(t, theirs, r.params.Net).(*wire.MsgVerAck); !ok {
		t.Fatal("expected a verack reply to our version")
	}

	writeMsg(t, theirs, &wire.MsgVerAck{}, r.params.Net)

	var sawGetAddr, sawFilterLoad bool
	for i := 0; i < 2; i++ {
		switch readMsg(t, theirs, r.params.Net).(type) {
		case *wire.MsgGetAddr:
			sawGetAddr = true
		case *wire.MsgFilterLoad:
			sawFilterLoad = true
		}
	}
	if !sawGetAddr || !sawFilterLoad {
		t.Errorf("sawGetAddr=%v sawFilterLoad=%v, want both true after verack", sawGetAddr, sawFilterLoad)
	}

	r.mu.Lock()
	n := len(r.peers)
	r.mu.Unlock()
	if n != 1 {
		t.Errorf("peer table has %d entries, want 1", n)
	}
}

func TestMaybeDialOutboundRespectsCap(t *testing.T) {
	r := newTestReactor(t)

	var dials int
	r.dial = func(network, addr string) (net.Conn, error) {
		dials++
		c1, c2 := net.Pipe()
		go discardReads(c2)
		return c1, nil
	}

	for i := 0; i < maxOutbound+2; i++ {
		ip := net.IPv4(127, 0, 0, byte(1+i))
		r.addrs.AddFromWire([]*wire.NetAddress{{IP: ip, Port: 18333, Timestamp: time.Now()}})
	}

	for i := 0; i < maxOutbound+2; i++ {
		r.maybeDialOutbound()
	}

	if dials != maxOutbound {
		t.Errorf("dialed %d times, want exactly %d (hard cap)", dials, maxOutbound)
	}
}

func discardReads(c net.Conn) {
	buf := make([]byte, 256)
	for {
		if _, err := c.Read(buf); err != nil {
			return
		}
	}
}

func TestSweepQuietPeersDisconnectsStalledHandshake(t *testing.T) {
	r := newTestReactor(t)
	ours, theirs := net.Pipe()
	defer theirs.Close()
	go discardReads(theirs)

	r.addPeer(ours)
	r.mu.Lock()
	for _, c := range r.peers {
		c.ph.ConnectedAt = time.Now().Add(-10 * time.Minute)
	}
	r.mu.Unlock()

	r.sweepQuietPeers()

	r.mu.Lock()
	n := len(r.peers)
	r.mu.Unlock()
	if n != 0 {
		t.Errorf("peer table has %d entries, want 0 after handshake timeout", n)
	}
}

func TestNewSocksDialerBuildsADialer(t *testing.T) {
	d := NewSocksDialer("127.0.0.1:9050", "", "")
	if d == nil {
		t.Fatal("expected a non-nil Dialer")
	}
}
