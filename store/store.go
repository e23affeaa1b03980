// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package store defines the wallet's durable storage contract (spec.md
// Section 4.2): chain head, headers, receive/send transactions,
// addresses, and keys. The reactor and message handler depend only on
// this interface; the concrete backend is chosen once at startup.
package store

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coinlantern/spvwallet/addresses"
	"github.com/coinlantern/spvwallet/keys"
	"github.com/coinlantern/spvwallet/wire"
)

// ChainHead is the current best header's identity and cumulative work.
type ChainHead struct {
	Hash       chainhash.Hash
	Height     int32
	ChainWork  [32]byte // big-endian 256-bit integer
}

// Header is a persisted block header augmented with the chain-engine
// bookkeeping fields from spec.md Section 3 BlockHeader.
type Header struct {
	Hash      chainhash.Hash
	Header    wire.BlockHeader
	Height    int32
	ChainWork [32]byte
	OnChain   bool
	Matched   []chainhash.Hash
}

// ReceiveOutput is spec.md Section 3 ReceiveOutput.
type ReceiveOutput struct {
	TxHash         chainhash.Hash
	OutputIndex    uint32
	NormalizedHash chainhash.Hash
	Address        string
	Value          int64
	BlockHash      *chainhash.Hash
	TimeReceived   time.Time
	IsSpent        bool
	InSafe         bool
	IsChange       bool
	IsCoinbase     bool
	IsDeleted      bool
}

// SendTransaction is spec.md Section 3 SendTransaction.
type SendTransaction struct {
	TxHash         chainhash.Hash
	NormalizedHash chainhash.Hash
	BlockHash      *chainhash.Hash
	TimeSent       time.Time
	Serialized     []byte
	Destination    string
	Value          int64
	Fee            int64
	IsDeleted      bool
}

// StoredAddress pairs a watched address with its label.
type StoredAddress struct {
	Address string
	Label   string
}

// Store is the wallet's durable storage contract. All write
// operations are serialized by a single store-wide mutex; reads may
// be concurrent (spec.md Section 4.2).
type Store interface {
	GetChainHead() (*ChainHead, error)
	PutChainHead(head *ChainHead) error

	IsNewBlock(hash chainhash.Hash) (bool, error)
	StoreHeader(h *Header) error
	UpdateMatches(hash chainhash.Hash, matched []chainhash.Hash) error
	GetHeader(hash chainhash.Hash) (*Header, error)
	GetChildHeader(parent chainhash.Hash) (*Header, error)
	GetBlockHash(height int32) (chainhash.Hash, error)
	GetChainList(startHeight int32, stopHash chainhash.Hash, max int) ([]*Header, error)
	GetRescanHeight(since time.Time) (int32, error)

	// GetJunction walks parent pointers from hash until it meets a
	// header with OnChain=true, returning the joining segment in
	// ascending (oldest-first) order. It fails with a BlockNotFound
	// kind waltterr.Error when a parent is missing.
	GetJunction(hash chainhash.Hash) ([]*Header, error)

	// SetChainHead atomically flips OnChain flags for segment and
	// rewrites confirmation status on affected receive/send outputs.
	SetChainHead(segment []*Header) error

	StoreReceiveTx(out *ReceiveOutput) error
	GetReceiveTxList() ([]*ReceiveOutput, error)

	StoreSendTx(tx *SendTransaction) error
	GetSendTxList() ([]*SendTransaction, error)
	GetSendTx(hash chainhash.Hash) (*SendTransaction, error)

	StoreAddress(addr *addresses.Address, label string) error
	GetAddressList() ([]StoredAddress, error)
	DeleteAddress(addr string) error
	SetAddressLabel(addr, label string) error

	StoreKey(k *keys.ECKey) error
	GetKeyList() ([]*keys.ECKey, error)
	SetKeyLabel(hash160 [20]byte, label string) error

	IsNewTransaction(hash chainhash.Hash) (bool, error)
	SetTxSpent(hash chainhash.Hash, index uint32, spent bool) error
	SetTxSafe(hash chainhash.Hash, index uint32, safe bool) error
	SetReceiveTxDelete(hash chainhash.Hash, index uint32, deleted bool) error
	SetSendTxDelete(hash chainhash.Hash, deleted bool) error

	// GetTxDepth returns currentHeight - blockHeight + 1, or 0 if the
	// transaction is unconfirmed or unknown.
	GetTxDepth(hash chainhash.Hash) (int32, error)

	Close() error
}
