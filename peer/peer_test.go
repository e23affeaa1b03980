// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"net"
	"testing"

	"github.com/coinlantern/spvwallet/wire"
)

func newTestPeer() *Peer {
	addr, _ := net.ResolveTCPAddr("tcp", "127.0.0.1:8333")
	return New(addr, nil)
}

func TestHandshakeAdvancesThroughEstablished(t *testing.T) {
	p := newTestPeer()
	if p.Established() {
		t.Fatal("new peer should not be established")
	}
	p.AdvanceHandshake() // S0 -> S1
	p.AdvanceHandshake() // S1 -> S2
	if p.Established() {
		t.Fatal("peer at S2 should not yet be established")
	}
	p.AdvanceHandshake() // S2 -> S3
	if !p.Established() {
		t.Fatal("peer at S3 should be established")
	}
	p.AdvanceHandshake() // stays at S3
	if p.Handshake != StateEstablished {
		t.Errorf("handshake state = %v, want StateEstablished", p.Handshake)
	}
}

func TestBanScoreDisconnectThreshold(t *testing.T) {
	p := newTestPeer()
	if p.AddBanScore(50) {
		t.Error("50 ban score should not trigger disconnect")
	}
	if !p.AddBanScore(60) {
		t.Error("110 cumulative ban score should trigger disconnect")
	}
}

func TestOutputQueueFIFO(t *testing.T) {
	p := newTestPeer()
	p.Queue(&wire.MsgVerAck{})
	p.Queue(&wire.MsgGetAddr{})

	first := p.PopOutput()
	if _, ok := first.(*wire.MsgVerAck); !ok {
		t.Errorf("first popped message = %T, want *wire.MsgVerAck", first)
	}
	second := p.PopOutput()
	if _, ok := second.(*wire.MsgGetAddr); !ok {
		t.Errorf("second popped message = %T, want *wire.MsgGetAddr", second)
	}
	if p.PopOutput() != nil {
		t.Error("expected empty queue after draining both messages")
	}
}

func TestKnowsInventoryDedup(t *testing.T) {
	p := newTestPeer()
	if p.KnowsInventory("abc") {
		t.Error("first sighting should report unknown")
	}
	if !p.KnowsInventory("abc") {
		t.Error("second sighting should report known")
	}
}
