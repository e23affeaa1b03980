// Copyright (c) 2013-2024 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the Bitcoin peer-to-peer wire protocol: the
// framing envelope every message travels in, and the per-message-kind
// encoders/decoders listed in spec.md Section 4.3.
package wire

import (
	"strconv"
	"strings"
)

const (
	// ProtocolVersion is the latest protocol version this package
	// speaks.
	ProtocolVersion uint32 = 70016

	// BIP0037Version is the protocol version which added bloom
	// filtering and extended the version message with a relay flag
	// (pver >= BIP0037Version). A peer below this cannot serve an SPV
	// wallet and is disconnected on handshake (spec.md Section 4.7).
	BIP0037Version uint32 = 70001

	// BIP0111Version is the protocol version which added the
	// SFNodeBloom service flag.
	BIP0111Version uint32 = 70011
)

// MaxMessagePayload is the maximum payload any single message may
// declare (spec.md Section 4.3: decoder fails with INVALID above this).
const MaxMessagePayload = 2 * 1024 * 1024 // 2 MiB

// CommandSize is the fixed, null-padded width of the command field in
// the framing envelope.
const CommandSize = 12

// Command strings for every message kind this wallet speaks.
const (
	CmdVersion     = "version"
	CmdVerAck      = "verack"
	CmdAddr        = "addr"
	CmdInv         = "inv"
	CmdGetData     = "getdata"
	CmdNotFound    = "notfound"
	CmdGetBlocks   = "getblocks"
	CmdGetHeaders  = "getheaders"
	CmdHeaders     = "headers"
	CmdTx          = "tx"
	CmdBlock       = "block"
	CmdMerkleBlock = "merkleblock"
	CmdPing        = "ping"
	CmdPong        = "pong"
	CmdReject      = "reject"
	CmdFilterLoad  = "filterload"
	CmdGetAddr     = "getaddr"
	CmdAlert       = "alert"
)

// ServiceFlag identifies services supported by a peer.
type ServiceFlag uint64

const (
	// SFNodeNetwork indicates a peer is a full node.
	SFNodeNetwork ServiceFlag = 1 << iota

	// SFNodeGetUTXO indicates BIP 0064 support.
	SFNodeGetUTXO

	// SFNodeBloom indicates BIP 0037 bloom-filter support. A wallet
	// refuses to use a peer lacking this flag.
	SFNodeBloom

	// SFNodeWitness indicates BIP 0144 witness support.
	SFNodeWitness
)

// HasFlag reports whether f carries every bit of s.
func (f ServiceFlag) HasFlag(s ServiceFlag) bool { return f&s == s }

func (f ServiceFlag) String() string {
	if f == 0 {
		return "0x0"
	}
	names := []struct {
		flag ServiceFlag
		name string
	}{
		{SFNodeNetwork, "SFNodeNetwork"},
		{SFNodeGetUTXO, "SFNodeGetUTXO"},
		{SFNodeBloom, "SFNodeBloom"},
		{SFNodeWitness, "SFNodeWitness"},
	}
	var parts []string
	for _, n := range names {
		if f&n.flag == n.flag {
			parts = append(parts, n.name)
			f &^= n.flag
		}
	}
	if f != 0 {
		parts = append(parts, "0x"+strconv.FormatUint(uint64(f), 16))
	}
	return strings.Join(parts, "|")
}

// RejectCode is the machine-readable reason carried by a reject
// message (spec.md Section 4.7).
type RejectCode uint8

const (
	RejectMalformed  RejectCode = 0x01
	RejectInvalid    RejectCode = 0x10
	RejectObsolete   RejectCode = 0x11
	RejectCheckpoint RejectCode = 0x43
)
