// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txbuilder

import (
	"bytes"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/coinlantern/spvwallet/addresses"
	"github.com/coinlantern/spvwallet/chaincfg"
	"github.com/coinlantern/spvwallet/keys"
	"github.com/coinlantern/spvwallet/store"
	"github.com/coinlantern/spvwallet/store/leveldbstore"
	"github.com/coinlantern/spvwallet/waltterr"
	"github.com/coinlantern/spvwallet/wire"
)

const passphrase = "correct horse battery staple"

type fakeBroadcaster struct {
	announced []wire.InvVect
}

func (f *fakeBroadcaster) Broadcast(inv wire.InvVect) {
	f.announced = append(f.announced, inv)
}

// setUpWallet opens a fresh store and puts its chain head at height,
// so a receive output confirmed at confirmedHeight reaches the given
// depth.
func setUpWallet(t *testing.T, height int32) *leveldbstore.Store {
	t.Helper()
	s, err := leveldbstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.PutChainHead(&store.ChainHead{Height: height}))
	return s
}

// fundWallet stores an owned key and a spendable receive output worth
// value satoshis confirmed at confirmedHeight, returning the address
// the output pays.
func fundWallet(t *testing.T, s *leveldbstore.Store, params *chaincfg.Params, value int64, confirmedHeight int32) *addresses.Address {
	t.Helper()
	key, err := keys.Generate(passphrase, false)
	require.NoError(t, err)
	require.NoError(t, s.StoreKey(key))

	addr, err := addresses.New(key.Hash160[:], params)
	require.NoError(t, err)

	blockHash := chainhash.Hash{byte(confirmedHeight), 1, 2, 3}
	require.NoError(t, s.StoreHeader(&store.Header{
		Hash:    blockHash,
		Height:  confirmedHeight,
		OnChain: true,
	}))

	txHash := chainhash.Hash{byte(confirmedHeight), byte(value)}
	require.NoError(t, s.StoreReceiveTx(&store.ReceiveOutput{
		TxHash:       txHash,
		OutputIndex:  0,
		Address:      addr.String(),
		Value:        value,
		BlockHash:    &blockHash,
		TimeReceived: time.Now(),
	}))
	return addr
}

func TestSendBuildsSignsAndBroadcastsTransaction(t *testing.T) {
	params := &chaincfg.TestNetParams
	s := setUpWallet(t, 10)
	fundWallet(t, s, params, 1_000_000, 4) // depth 10-4+1=7, >= 6

	dest, err := keys.Generate(passphrase, false)
	require.NoError(t, err)
	destAddr, err := addresses.New(dest.Hash160[:], params)
	require.NoError(t, err)

	bcast := &fakeBroadcaster{}
	b := New(s, params, bcast)

	send, err := b.Send(destAddr.String(), 500_000, passphrase)
	require.NoError(t, err)
	require.Equal(t, int64(500_000), send.Value)
	require.True(t, send.Fee >= MinTxFee)
	require.Len(t, bcast.announced, 1)
	require.Equal(t, wire.InvTypeTx, bcast.announced[0].Type)
	require.Equal(t, send.TxHash, bcast.announced[0].Hash)

	var tx wire.MsgTx
	require.NoError(t, tx.BtcDecode(bytes.NewReader(send.Serialized), wire.ProtocolVersion))
	require.Len(t, tx.TxIn, 1)
	require.Len(t, tx.TxOut, 2) // recipient + change, change well above dust
	require.NotEmpty(t, tx.TxIn[0].SignatureScript)
}

func TestSendForPaymentDefersBroadcastUntilExplicit(t *testing.T) {
	params := &chaincfg.TestNetParams
	s := setUpWallet(t, 10)
	fundWallet(t, s, params, 1_000_000, 4)

	dest, err := keys.Generate(passphrase, false)
	require.NoError(t, err)
	destAddr, err := addresses.New(dest.Hash160[:], params)
	require.NoError(t, err)

	bcast := &fakeBroadcaster{}
	b := New(s, params, bcast)

	send, err := b.SendForPayment(destAddr.String(), 500_000, passphrase)
	require.NoError(t, err)
	require.Empty(t, bcast.announced)

	persisted, err := s.GetSendTx(send.TxHash)
	require.NoError(t, err)
	require.Equal(t, send.TxHash, persisted.TxHash)

	b.Broadcast(send)
	require.Len(t, bcast.announced, 1)
	require.Equal(t, send.TxHash, bcast.announced[0].Hash)
}

func TestSendFailsWhenCandidatePoolExhausted(t *testing.T) {
	params := &chaincfg.TestNetParams
	s := setUpWallet(t, 10)
	fundWallet(t, s, params, 1000, 4) // far short of amount + fee

	dest, err := keys.Generate(passphrase, false)
	require.NoError(t, err)
	destAddr, err := addresses.New(dest.Hash160[:], params)
	require.NoError(t, err)

	b := New(s, params, nil)
	_, err = b.Send(destAddr.String(), 500_000, passphrase)
	require.Error(t, err)
	require.True(t, waltterr.Is(err, waltterr.InsufficientFee))
}

func TestSendSkipsImmatureOutputs(t *testing.T) {
	params := &chaincfg.TestNetParams
	s := setUpWallet(t, 10)
	fundWallet(t, s, params, 1_000_000, 9) // depth 10-9+1=2, below minConfirmations

	dest, err := keys.Generate(passphrase, false)
	require.NoError(t, err)
	destAddr, err := addresses.New(dest.Hash160[:], params)
	require.NoError(t, err)

	b := New(s, params, nil)
	_, err = b.Send(destAddr.String(), 500_000, passphrase)
	require.Error(t, err)
	require.True(t, waltterr.Is(err, waltterr.InsufficientFee))
}

func TestSendOmitsChangeOutputBelowDust(t *testing.T) {
	params := &chaincfg.TestNetParams
	s := setUpWallet(t, 10)
	// value chosen so input - amount - fee lands under Dust at the
	// bootstrap fee, and the tx is small enough the fee never escalates.
	fundWallet(t, s, params, 500_000+MinTxFee+1000, 4)

	dest, err := keys.Generate(passphrase, false)
	require.NoError(t, err)
	destAddr, err := addresses.New(dest.Hash160[:], params)
	require.NoError(t, err)

	b := New(s, params, nil)
	send, err := b.Send(destAddr.String(), 500_000, passphrase)
	require.NoError(t, err)

	var tx wire.MsgTx
	require.NoError(t, tx.BtcDecode(bytes.NewReader(send.Serialized), wire.ProtocolVersion))
	require.Len(t, tx.TxOut, 1)
}
