// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"
	"time"

	"github.com/coinlantern/spvwallet/chaincfg"
)

func TestMessageRoundTrip(t *testing.T) {
	version := &MsgVersion{
		ProtocolVersion: int32(ProtocolVersion),
		Services:        SFNodeNetwork,
		Timestamp:       time.Unix(1700000000, 0),
		Nonce:           0xdeadbeef,
		UserAgent:       "/spvwallet:0.1.0/",
		LastBlock:       850000,
		Relay:           true,
	}

	var buf bytes.Buffer
	if err := WriteMessage(&buf, version, ProtocolVersion, chaincfg.MainNetParams.Net); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	got, err := ReadMessage(&buf, ProtocolVersion, chaincfg.MainNetParams.Net)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	gotVersion, ok := got.(*MsgVersion)
	if !ok {
		t.Fatalf("got %T, want *MsgVersion", got)
	}
	if gotVersion.Nonce != version.Nonce {
		t.Errorf("nonce mismatch: got %d, want %d", gotVersion.Nonce, version.Nonce)
	}
	if gotVersion.UserAgent != version.UserAgent {
		t.Errorf("user agent mismatch: got %q, want %q", gotVersion.UserAgent, version.UserAgent)
	}
	if gotVersion.LastBlock != version.LastBlock {
		t.Errorf("last block mismatch: got %d, want %d", gotVersion.LastBlock, version.LastBlock)
	}
}

func TestMessageRejectsWrongNetwork(t *testing.T) {
	verack := &MsgVerAck{}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, verack, ProtocolVersion, chaincfg.MainNetParams.Net); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	if _, err := ReadMessage(&buf, ProtocolVersion, chaincfg.TestNetParams.Net); err == nil {
		t.Error("expected network mismatch to be rejected")
	}
}

func TestMessageUnknownCommandSkipped(t *testing.T) {
	var payload bytes.Buffer
	payload.WriteString("hello")

	var header bytes.Buffer
	_ = writeUint32(&header, uint32(chaincfg.MainNetParams.Net))
	cmd := commandBytes("notacommand")
	header.Write(cmd[:])
	_ = writeUint32(&header, uint32(payload.Len()))
	cksum := checksum(payload.Bytes())
	header.Write(cksum[:])

	var wire bytes.Buffer
	wire.Write(header.Bytes())
	wire.Write(payload.Bytes())

	got, err := ReadMessage(&wire, ProtocolVersion, chaincfg.MainNetParams.Net)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	unknown, ok := got.(*MsgUnknown)
	if !ok {
		t.Fatalf("got %T, want *MsgUnknown", got)
	}
	if unknown.RawCommand != "notacommand" {
		t.Errorf("got command %q", unknown.RawCommand)
	}
}

func TestMessageRejectsBadChecksum(t *testing.T) {
	verack := &MsgVerAck{}
	var buf bytes.Buffer
	if err := WriteMessage(&buf, verack, ProtocolVersion, chaincfg.MainNetParams.Net); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xff
	if _, err := ReadMessage(bytes.NewReader(corrupted), ProtocolVersion, chaincfg.MainNetParams.Net); err == nil {
		t.Error("expected checksum mismatch to be rejected")
	}
}
