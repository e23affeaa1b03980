// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addresses implements the wallet's single supported address
// form: Base58Check-encoded pay-to-pubkey-hash, per spec.md Section 3
// Address and the wire's PubKeyHashAddrID network byte.
package addresses

import (
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coinlantern/spvwallet/chaincfg"
	"github.com/coinlantern/spvwallet/waltterr"
)

// addrChecksumLen is the length of the double-SHA-256 checksum
// appended to every Base58Check payload.
const addrChecksumLen = 4

// Address is a version byte plus a 20-byte hash160, together with an
// optional human-readable label the wallet store carries alongside
// it. The decoded version byte must match the active network's
// PubKeyHashAddrID (spec.md Section 3 invariant).
type Address struct {
	hash  [20]byte
	net   *chaincfg.Params
	Label string
}

// New builds an Address from a raw 20-byte hash160 for the given
// network.
func New(hash160 []byte, net *chaincfg.Params) (*Address, error) {
	if len(hash160) != 20 {
		return nil, waltterr.New(waltterr.Address, "hash160 must be 20 bytes")
	}
	a := &Address{net: net}
	copy(a.hash[:], hash160)
	return a, nil
}

// Hash160 returns the address's public key hash.
func (a *Address) Hash160() []byte { return a.hash[:] }

// Net returns the network this address was constructed for.
func (a *Address) Net() *chaincfg.Params { return a.net }

// String returns the Base58Check encoding: version || hash160 ||
// first-4-bytes(double-SHA-256(version || hash160)).
func (a *Address) String() string {
	payload := make([]byte, 0, 1+20+addrChecksumLen)
	payload = append(payload, a.net.PubKeyHashAddrID)
	payload = append(payload, a.hash[:]...)
	sum := chainhash.DoubleHashB(payload)
	payload = append(payload, sum[:addrChecksumLen]...)
	return base58.Encode(payload)
}

// Decode parses a Base58Check address string for the given network,
// rejecting a bad checksum or a version byte belonging to a different
// network.
func Decode(address string, net *chaincfg.Params) (*Address, error) {
	decoded := base58.Decode(address)
	if len(decoded) != 1+20+addrChecksumLen {
		return nil, waltterr.New(waltterr.Address, "wrong decoded length")
	}

	payload := decoded[:21]
	wantSum := decoded[21:]
	gotSum := chainhash.DoubleHashB(payload)
	for i := 0; i < addrChecksumLen; i++ {
		if wantSum[i] != gotSum[i] {
			return nil, waltterr.New(waltterr.Address, "bad checksum")
		}
	}

	if payload[0] != net.PubKeyHashAddrID {
		return nil, waltterr.New(waltterr.Address, "address version does not match active network")
	}

	return New(payload[1:], net)
}
