// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"net"
	"testing"
	"time"

	"github.com/coinlantern/spvwallet/wire"
)

func TestAddStaticSurvivesEviction(t *testing.T) {
	m := New()
	m.AddStatic(net.ParseIP("1.2.3.4"), 8333)

	m.Evict(time.Now().Add(EvictAfter * 10))

	if m.Count() != 1 {
		t.Fatalf("Count() = %d, want 1 static address to survive eviction", m.Count())
	}
}

func TestEvictRemovesStaleNonStatic(t *testing.T) {
	m := New()
	m.AddFromWire([]*wire.NetAddress{
		{IP: net.ParseIP("5.6.7.8"), Port: 8333, Timestamp: time.Now().Add(-time.Hour)},
	})
	if m.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", m.Count())
	}

	m.Evict(time.Now())

	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after evicting stale address", m.Count())
	}
}

func TestEvictKeepsFreshNonStatic(t *testing.T) {
	m := New()
	m.AddFromWire([]*wire.NetAddress{
		{IP: net.ParseIP("5.6.7.8"), Port: 8333, Timestamp: time.Now()},
	})

	m.Evict(time.Now())

	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1 for a recently seen address", m.Count())
	}
}

func TestPickOutboundSkipsConnectedAndIPv6(t *testing.T) {
	m := New()
	m.AddFromWire([]*wire.NetAddress{
		{IP: net.ParseIP("2001:db8::1"), Port: 8333, Timestamp: time.Now()},
		{IP: net.ParseIP("9.9.9.9"), Port: 8333, Timestamp: time.Now()},
	})
	m.SetConnected(net.ParseIP("9.9.9.9"), 8333, true)

	_, ok := m.PickOutbound(false)
	if ok {
		t.Error("expected no candidate: only address is IPv6 or already connected")
	}
}

func TestPickOutboundStaticOnly(t *testing.T) {
	m := New()
	m.AddFromWire([]*wire.NetAddress{
		{IP: net.ParseIP("9.9.9.9"), Port: 8333, Timestamp: time.Now()},
	})
	m.AddStatic(net.ParseIP("4.4.4.4"), 8333)

	a, ok := m.PickOutbound(true)
	if !ok {
		t.Fatal("expected a static candidate")
	}
	if !a.IsStatic {
		t.Errorf("picked non-static address %v in static-only mode", a)
	}
}

func TestPickOutboundNoCandidate(t *testing.T) {
	m := New()
	if _, ok := m.PickOutbound(false); ok {
		t.Error("expected no candidate from an empty manager")
	}
}
