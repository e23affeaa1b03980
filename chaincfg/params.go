// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the network parameters the wallet needs to
// talk to a given Bitcoin network: magic bytes, DNS seeds, address
// version bytes, the genesis header, and the checkpoint table.
package chaincfg

import (
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BitcoinNet identifies which network a message belongs to. It is the
// 4-byte magic that opens every framed message (spec.md Section 4.3).
type BitcoinNet uint32

// Network magics, matching the values every Bitcoin Core-compatible
// node has used since genesis.
const (
	MainNet BitcoinNet = 0xd9b4bef9
	TestNet BitcoinNet = 0x0709110b
)

var bigOne = big.NewInt(1)

// mainPowLimit is the highest proof-of-work target value a Bitcoin
// mainnet block may have: 2^224 - 1.
var mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

var testNetPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

// Checkpoint is a hard-coded (height, hash) pair. A competing chain
// claiming this height with a different hash is rejected outright
// (spec.md Section 4.8 step 4, Section 8 scenario 3).
type Checkpoint struct {
	Height int32
	Hash   *chainhash.Hash
}

// GenesisHeader is the 80-byte header field set for a network's first
// block, serialized the same way any other header is (spec.md Section 3).
type GenesisHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// Params groups everything the reactor, chain manager, and address
// codec need to operate against one Bitcoin network.
type Params struct {
	Name             string
	Net              BitcoinNet
	DefaultPort      string
	DNSSeeds         []string
	PubKeyHashAddrID byte
	PowLimit         *big.Int
	PowLimitBits     uint32
	GenesisHeader    GenesisHeader
	GenesisHash      chainhash.Hash
	Checkpoints      []Checkpoint
}

func mustHash(s string) chainhash.Hash {
	h := hashPtr(s)
	return *h
}

// hashPtr parses a hex-encoded, display-order block hash into a
// chainhash.Hash. Called only at package-init time against literal
// constants below, so a malformed literal panics like any other
// programming error caught at init.
func hashPtr(s string) *chainhash.Hash {
	h, err := chainhash.NewHashFromStr(s)
	if err != nil {
		panic(err)
	}
	return h
}

// genesisMerkleRoot is the Merkle root of the single coinbase
// transaction in every network's genesis block.
const genesisMerkleRoot = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"

// MainNetParams are the parameters for the main Bitcoin network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         MainNet,
	DefaultPort: "8333",
	DNSSeeds: []string{
		"seed.bitcoin.sipa.be",
		"dnsseed.bluematt.me",
		"dnsseed.bitcoin.dashjr.org",
		"seed.bitcoinstats.com",
		"seed.btc.petertodd.org",
	},
	PubKeyHashAddrID: 0x00,
	PowLimit:         mainPowLimit,
	PowLimitBits:     0x1d00ffff,
	GenesisHeader: GenesisHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: mustHash(genesisMerkleRoot),
		Timestamp:  1231006505,
		Bits:       0x1d00ffff,
		Nonce:      2083236893,
	},
	GenesisHash: mustHash("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"),
	Checkpoints: []Checkpoint{
		{Height: 11111, Hash: hashPtr("0000000069e244f73d78e8fd29ba2fd2ed618bd6fa2ee92559f542fdb26e7c1d")},
		{Height: 33333, Hash: hashPtr("000000002dd5588a74784eaa7ab0507a18ad16a236e7b1ce69f00d7ddfb5d0a6")},
		{Height: 100000, Hash: hashPtr("000000000003ba27aa200b1cecaad478d2b00432346c3f1f3986da1afd33e506")},
	},
}

// TestNetParams are the parameters for testnet3.
var TestNetParams = Params{
	Name:        "testnet",
	Net:         TestNet,
	DefaultPort: "18333",
	DNSSeeds: []string{
		"testnet-seed.bitcoin.jonasschnelli.ch",
		"seed.tbtc.petertodd.org",
	},
	PubKeyHashAddrID: 0x6f,
	PowLimit:         testNetPowLimit,
	PowLimitBits:     0x1d00ffff,
	GenesisHeader: GenesisHeader{
		Version:    1,
		PrevBlock:  chainhash.Hash{},
		MerkleRoot: mustHash(genesisMerkleRoot),
		Timestamp:  1296688602,
		Bits:       0x1d00ffff,
		Nonce:      414098458,
	},
	GenesisHash: mustHash("000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943"),
	Checkpoints: []Checkpoint{},
}

// CheckpointByHeight returns the checkpoint at the given height, if
// any.
func (p *Params) CheckpointByHeight(height int32) (*Checkpoint, bool) {
	for i := range p.Checkpoints {
		if p.Checkpoints[i].Height == height {
			return &p.Checkpoints[i], true
		}
	}
	return nil, false
}

// ByName looks up a network's parameters by its command-line selector
// ("PROD" or "TEST", spec.md Section 6).
func ByName(name string) (*Params, bool) {
	switch name {
	case "PROD", "mainnet":
		return &MainNetParams, true
	case "TEST", "testnet":
		return &TestNetParams, true
	default:
		return nil, false
	}
}
