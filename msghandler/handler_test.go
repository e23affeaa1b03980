// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package msghandler

import (
	"testing"

	"github.com/coinlantern/spvwallet/addrmgr"
	"github.com/coinlantern/spvwallet/chaincfg"
	"github.com/coinlantern/spvwallet/chainmgr"
	"github.com/coinlantern/spvwallet/invreq"
	"github.com/coinlantern/spvwallet/keys"
	"github.com/coinlantern/spvwallet/store/leveldbstore"
	"github.com/coinlantern/spvwallet/txscript"
	"github.com/coinlantern/spvwallet/wire"
)

type fakePeer struct {
	id           string
	established  bool
	services     wire.ServiceFlag
	queued       []wire.Message
	banScore     int32
	disconnected bool
	pver         uint32
	remoteHeight int32
	userAgent    string
	pingSent     bool
	pingNonce    uint64
}

func (f *fakePeer) ID() string          { return f.id }
func (f *fakePeer) Queue(m wire.Message) { f.queued = append(f.queued, m) }
func (f *fakePeer) AdvanceHandshake()    { f.established = true }
func (f *fakePeer) Established() bool   { return f.established }
func (f *fakePeer) AddBanScore(delta int32) bool {
	f.banScore += delta
	return f.banScore >= 100
}
func (f *fakePeer) RequestDisconnect() { f.disconnected = true }
func (f *fakePeer) SetVersionInfo(pver uint32, services wire.ServiceFlag, height int32, userAgent string) {
	f.pver = pver
	f.services = services
	f.remoteHeight = height
	f.userAgent = userAgent
}
func (f *fakePeer) GetRemoteHeight() int32                { return f.remoteHeight }
func (f *fakePeer) HasService(s wire.ServiceFlag) bool    { return f.services.HasFlag(s) }
func (f *fakePeer) SetPendingPing(sent bool, nonce uint64) { f.pingSent, f.pingNonce = sent, nonce }
func (f *fakePeer) PendingPing() (bool, uint64)           { return f.pingSent, f.pingNonce }
func (f *fakePeer) Touch()                                {}

func newTestHandler(t *testing.T) (*Handler, *leveldbstore.Store) {
	t.Helper()
	s, err := leveldbstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	params := &chaincfg.TestNetParams
	chain := chainmgr.New(s, params)
	sched := invreq.New()
	addrs := addrmgr.New()
	return New(s, chain, sched, addrs, params), s
}

func TestHandleVersionRejectsOldProtocol(t *testing.T) {
	h, _ := newTestHandler(t)
	p := &fakePeer{id: "p1", established: true}
	err := h.Handle(p, &wire.MsgVersion{ProtocolVersion: 60000})
	if err == nil {
		t.Fatal("expected an error disconnecting a pre-bloom-filter peer")
	}
	if !p.disconnected {
		t.Error("expected RequestDisconnect to have been called")
	}
}

func TestHandleVersionAdvancesHandshake(t *testing.T) {
	h, _ := newTestHandler(t)
	p := &fakePeer{id: "p1"}
	if err := h.Handle(p, &wire.MsgVersion{ProtocolVersion: int32(wire.ProtocolVersion), UserAgent: "/test/"}); err != nil {
		t.Fatalf("Handle(version): %v", err)
	}
	if len(p.queued) != 1 {
		t.Fatalf("queued %d messages, want 1 (verack)", len(p.queued))
	}
	if _, ok := p.queued[0].(*wire.MsgVerAck); !ok {
		t.Errorf("queued message = %T, want *wire.MsgVerAck", p.queued[0])
	}
}

func TestHandleVerAckSendsFilterAndGetAddr(t *testing.T) {
	h, _ := newTestHandler(t)
	p := &fakePeer{id: "p1", established: true}
	if err := h.Handle(p, &wire.MsgVerAck{}); err != nil {
		t.Fatalf("Handle(verack): %v", err)
	}
	var sawGetAddr, sawFilterLoad bool
	for _, m := range p.queued {
		switch m.(type) {
		case *wire.MsgGetAddr:
			sawGetAddr = true
		case *wire.MsgFilterLoad:
			sawFilterLoad = true
		}
	}
	if !sawGetAddr || !sawFilterLoad {
		t.Errorf("queued = %v, want getaddr and filterload", p.queued)
	}
}

func TestHandleGetDataRespondsNotFound(t *testing.T) {
	h, _ := newTestHandler(t)
	p := &fakePeer{id: "p1"}
	req := &wire.MsgGetData{InvList: []*wire.InvVect{{Type: wire.InvTypeTx}}}
	if err := h.Handle(p, req); err != nil {
		t.Fatalf("Handle(getdata): %v", err)
	}
	if len(p.queued) != 1 {
		t.Fatalf("queued %d, want 1", len(p.queued))
	}
	nf, ok := p.queued[0].(*wire.MsgNotFound)
	if !ok {
		t.Fatalf("queued message = %T, want *wire.MsgNotFound", p.queued[0])
	}
	if len(nf.InvList) != 1 {
		t.Errorf("notfound list length = %d, want 1", len(nf.InvList))
	}
}

func TestHandleTxRecordsOwnedOutput(t *testing.T) {
	h, s := newTestHandler(t)

	key, err := keys.Generate("passphrase", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := s.StoreKey(key); err != nil {
		t.Fatalf("StoreKey: %v", err)
	}
	if err := h.RefreshOwnedKeys(); err != nil {
		t.Fatalf("RefreshOwnedKeys: %v", err)
	}

	script, err := txscript.PayToAddrScript(key.Hash160[:])
	if err != nil {
		t.Fatalf("PayToAddrScript: %v", err)
	}

	tx := &wire.MsgTx{
		Version: 1,
		TxOut:   []*wire.TxOut{{Value: 50000, PkScript: script}},
	}
	if err := h.Handle(&fakePeer{id: "p1"}, tx); err != nil {
		t.Fatalf("Handle(tx): %v", err)
	}

	list, err := s.GetReceiveTxList()
	if err != nil {
		t.Fatalf("GetReceiveTxList: %v", err)
	}
	if len(list) != 1 || list[0].Value != 50000 {
		t.Errorf("receive list = %+v, want one 50000-satoshi output", list)
	}
}

func TestHandleRejectAddsBanScore(t *testing.T) {
	h, _ := newTestHandler(t)
	p := &fakePeer{id: "p1"}
	if err := h.Handle(p, &wire.MsgReject{Code: wire.RejectInvalid}); err != nil {
		t.Fatalf("Handle(reject): %v", err)
	}
	if p.banScore != 10 {
		t.Errorf("banScore = %d, want 10", p.banScore)
	}
	if p.disconnected {
		t.Error("a single reject should not cross BanScoreDisconnect")
	}
}

func TestHandleRejectDisconnectsOnceBanScoreCrossesThreshold(t *testing.T) {
	h, _ := newTestHandler(t)
	p := &fakePeer{id: "p1", banScore: 95}
	if err := h.Handle(p, &wire.MsgReject{Code: wire.RejectInvalid}); err != nil {
		t.Fatalf("Handle(reject): %v", err)
	}
	if !p.disconnected {
		t.Error("expected RequestDisconnect once banScore crosses BanScoreDisconnect")
	}
}
