// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coinlantern/spvwallet/waltterr"
)

// NetAddress describes a reachable Bitcoin peer: its address, port,
// advertised services, and when it was last seen (spec.md Section 3
// PeerAddress).
type NetAddress struct {
	Timestamp time.Time
	Services  ServiceFlag
	IP        net.IP
	Port      uint16
}

// ipv4InIPv6Prefix is prepended to an IPv4 address to form the
// 16-byte wire representation the protocol always uses.
var ipv4InIPv6Prefix = []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff}

func writeNetAddress(w io.Writer, na *NetAddress, includeTimestamp bool) error {
	if includeTimestamp {
		if err := writeUint32(w, uint32(na.Timestamp.Unix())); err != nil {
			return err
		}
	}
	if err := writeUint64(w, uint64(na.Services)); err != nil {
		return err
	}

	var ip [16]byte
	if v4 := na.IP.To4(); v4 != nil {
		copy(ip[:12], ipv4InIPv6Prefix)
		copy(ip[12:], v4)
	} else if v6 := na.IP.To16(); v6 != nil {
		copy(ip[:], v6)
	}
	if _, err := w.Write(ip[:]); err != nil {
		return err
	}

	var portBuf [2]byte
	binary.BigEndian.PutUint16(portBuf[:], na.Port)
	_, err := w.Write(portBuf[:])
	return err
}

func readNetAddress(r io.Reader, includeTimestamp bool) (*NetAddress, error) {
	na := &NetAddress{}

	if includeTimestamp {
		ts, err := readUint32(r)
		if err != nil {
			return nil, waltterr.Wrap(waltterr.Malformed, "read addr timestamp", err)
		}
		na.Timestamp = time.Unix(int64(ts), 0)
	}

	services, err := readUint64(r)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Malformed, "read addr services", err)
	}
	na.Services = ServiceFlag(services)

	var ip [16]byte
	if _, err := io.ReadFull(r, ip[:]); err != nil {
		return nil, waltterr.Wrap(waltterr.Malformed, "read addr ip", err)
	}
	na.IP = net.IP(append([]byte(nil), ip[:]...))

	var portBuf [2]byte
	if _, err := io.ReadFull(r, portBuf[:]); err != nil {
		return nil, waltterr.Wrap(waltterr.Malformed, "read addr port", err)
	}
	na.Port = binary.BigEndian.Uint16(portBuf[:])

	return na, nil
}

// InvType identifies the kind of object an inventory vector names.
type InvType uint32

const (
	InvTypeError InvType = 0
	InvTypeTx    InvType = 1
	InvTypeBlock InvType = 2
)

func (t InvType) String() string {
	switch t {
	case InvTypeTx:
		return "MSG_TX"
	case InvTypeBlock:
		return "MSG_BLOCK"
	default:
		return "MSG_ERROR"
	}
}

// InvVect is one entry of an inv/getdata/notfound message: a typed
// reference to a transaction or block by hash (spec.md Section 3
// PeerRequest is built from these).
type InvVect struct {
	Type InvType
	Hash chainhash.Hash
}

func writeInvVect(w io.Writer, iv *InvVect) error {
	if err := writeUint32(w, uint32(iv.Type)); err != nil {
		return err
	}
	return writeHash(w, &iv.Hash)
}

func readInvVect(r io.Reader) (InvVect, error) {
	var iv InvVect
	t, err := readUint32(r)
	if err != nil {
		return iv, waltterr.Wrap(waltterr.Malformed, "read inv type", err)
	}
	iv.Type = InvType(t)
	h, err := readHash(r)
	if err != nil {
		return iv, err
	}
	iv.Hash = h
	return iv, nil
}
