// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txbuilder implements the Transaction Builder: coin
// selection, change output, fee escalation by serialized length, and
// per-input ECDSA signing (spec.md Section 4.9).
package txbuilder

import (
	"bytes"
	"sort"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/coinlantern/spvwallet/addresses"
	"github.com/coinlantern/spvwallet/chaincfg"
	"github.com/coinlantern/spvwallet/keys"
	"github.com/coinlantern/spvwallet/store"
	"github.com/coinlantern/spvwallet/txscript"
	"github.com/coinlantern/spvwallet/waltterr"
	"github.com/coinlantern/spvwallet/wire"
)

// MinTxFee is the fee-escalation bootstrap and per-kB rate (spec.md
// Section 4.9).
const MinTxFee = 10000

// Dust is the minimum change value worth paying out; anything smaller
// is folded into the fee instead of creating an output.
const Dust = 5460

// minConfirmations and coinbaseConfirmations are the candidate-input
// depth thresholds (spec.md Section 4.9).
const (
	minConfirmations      = 6
	coinbaseConfirmations = 120
)

// Broadcaster announces a newly sent transaction to the network. The
// reactor's *Reactor satisfies this.
type Broadcaster interface {
	Broadcast(wire.InvVect)
}

// Builder assembles, signs, and sends P2PKH transactions against a
// wallet store.
type Builder struct {
	store  store.Store
	params *chaincfg.Params
	bcast  Broadcaster
}

// New returns a transaction builder backed by s, targeting network
// params, announcing successful sends through bcast.
func New(s store.Store, params *chaincfg.Params, bcast Broadcaster) *Builder {
	return &Builder{store: s, params: params, bcast: bcast}
}

// candidate pairs a spendable receive output with the key that can
// sign for it.
type candidate struct {
	out *store.ReceiveOutput
	key *keys.ECKey
}

// Send builds, signs, persists, and broadcasts a transaction paying
// amount satoshis to dest, drawing change (if any) back to a freshly
// generated change key. passphrase decrypts the signing keys.
func (b *Builder) Send(dest string, amount int64, passphrase string) (*store.SendTransaction, error) {
	return b.send(dest, amount, passphrase, true)
}

// SendForPayment builds, signs, and persists a transaction exactly
// like Send but does not broadcast it. The BIP 70 payment flow must
// not let a transaction enter the broadcast path until the merchant's
// PaymentACK is received (spec.md Section 6); the caller broadcasts
// it afterward with Broadcast.
func (b *Builder) SendForPayment(dest string, amount int64, passphrase string) (*store.SendTransaction, error) {
	return b.send(dest, amount, passphrase, false)
}

// Broadcast announces an already-persisted send transaction to the
// network. Used after SendForPayment once a PaymentACK confirms the
// merchant accepted it.
func (b *Builder) Broadcast(send *store.SendTransaction) {
	if b.bcast != nil {
		b.bcast.Broadcast(wire.InvVect{Type: wire.InvTypeTx, Hash: send.TxHash})
	}
}

func (b *Builder) send(dest string, amount int64, passphrase string, broadcast bool) (*store.SendTransaction, error) {
	if amount <= 0 {
		return nil, waltterr.New(waltterr.Malformed, "amount must be positive")
	}
	destAddr, err := addresses.Decode(dest, b.params)
	if err != nil {
		return nil, err
	}
	destScript, err := txscript.PayToAddrScript(destAddr.Hash160())
	if err != nil {
		return nil, err
	}

	candidates, err := b.spendableCandidates()
	if err != nil {
		return nil, err
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].out.Value < candidates[j].out.Value
	})

	var changeKey *keys.ECKey
	var selected []candidate
	remaining := candidates
	fee := int64(MinTxFee)

	for {
		need := amount + fee
		sum := sumSelected(selected)
		for sum < need {
			if len(remaining) == 0 {
				return nil, waltterr.New(waltterr.InsufficientFee, "insufficient funds to reach required fee")
			}
			selected = append(selected, remaining[0])
			sum += remaining[0].out.Value
			remaining = remaining[1:]
		}

		changeValue := sum - amount - fee
		if changeValue >= Dust && changeKey == nil {
			changeKey, err = keys.Generate(passphrase, true)
			if err != nil {
				return nil, err
			}
			if err := b.store.StoreKey(changeKey); err != nil {
				return nil, err
			}
		}

		tx, err := b.buildTx(selected, destScript, amount, changeValue, changeKey)
		if err != nil {
			return nil, err
		}
		if err := b.signInputs(tx, selected, passphrase); err != nil {
			return nil, err
		}

		length := serializedLength(tx)
		required := int64((length+999)/1000) * MinTxFee
		if required <= fee {
			log.Debugf("send to %s: %d sat, fee %d sat, %d input(s)", dest, amount, fee, len(selected))
			return b.finish(tx, destAddr, amount, fee, broadcast)
		}
		log.Debugf("fee escalation: %d -> %d sat for %d-byte tx", fee, required, length)
		fee = required
	}
}

func sumSelected(selected []candidate) int64 {
	var sum int64
	for _, c := range selected {
		sum += c.out.Value
	}
	return sum
}

// spendableCandidates returns every receive output eligible for
// spending (spec.md Section 4.9 candidate filter), paired with the
// key that owns it.
func (b *Builder) spendableCandidates() ([]candidate, error) {
	outs, err := b.store.GetReceiveTxList()
	if err != nil {
		return nil, err
	}
	keyList, err := b.store.GetKeyList()
	if err != nil {
		return nil, err
	}
	byHash160 := make(map[[20]byte]*keys.ECKey, len(keyList))
	for _, k := range keyList {
		byHash160[k.Hash160] = k
	}

	var out []candidate
	for _, o := range outs {
		if o.IsSpent || o.IsDeleted || o.InSafe {
			continue
		}
		depth, err := b.store.GetTxDepth(o.TxHash)
		if err != nil {
			return nil, err
		}
		threshold := int32(minConfirmations)
		if o.IsCoinbase {
			threshold = coinbaseConfirmations
		}
		if depth < threshold {
			continue
		}
		addr, err := addresses.Decode(o.Address, b.params)
		if err != nil {
			continue
		}
		var hash160 [20]byte
		copy(hash160[:], addr.Hash160())
		key, ok := byHash160[hash160]
		if !ok {
			continue
		}
		out = append(out, candidate{out: o, key: key})
	}
	return out, nil
}

// buildTx assembles an unsigned transaction spending selected against
// destScript/amount, with a change output when changeKey is non-nil.
func (b *Builder) buildTx(selected []candidate, destScript []byte, amount, changeValue int64, changeKey *keys.ECKey) (*wire.MsgTx, error) {
	tx := &wire.MsgTx{Version: 1}
	for _, c := range selected {
		tx.TxIn = append(tx.TxIn, &wire.TxIn{
			PreviousOutPoint: wire.OutPoint{Hash: c.out.TxHash, Index: c.out.OutputIndex},
			Sequence:         0xffffffff,
		})
	}
	tx.TxOut = append(tx.TxOut, &wire.TxOut{Value: amount, PkScript: destScript})
	if changeKey != nil && changeValue >= Dust {
		changeScript, err := txscript.PayToAddrScript(changeKey.Hash160[:])
		if err != nil {
			return nil, err
		}
		tx.TxOut = append(tx.TxOut, &wire.TxOut{Value: changeValue, PkScript: changeScript})
	}
	return tx, nil
}

// signInputs produces a SIGHASH_ALL signature for every input in tx
// (spec.md Section 4.9 signing).
func (b *Builder) signInputs(tx *wire.MsgTx, selected []candidate, passphrase string) error {
	for i, c := range selected {
		addr, err := addresses.Decode(c.out.Address, b.params)
		if err != nil {
			return err
		}
		subscript, err := txscript.PayToAddrScript(addr.Hash160())
		if err != nil {
			return err
		}
		hash, err := txscript.CalcSignatureHash(tx, i, subscript, txscript.SigHashAll)
		if err != nil {
			return err
		}

		priv, err := c.key.Open(passphrase)
		if err != nil {
			return err
		}
		sig := ecdsa.Sign(priv, hash[:])
		priv.Zero()

		scriptSig, err := txscript.SignatureScript(sig.Serialize(), txscript.SigHashAll, c.key.PubKey.SerializeCompressed())
		if err != nil {
			return err
		}
		tx.TxIn[i].SignatureScript = scriptSig
	}
	return nil
}

func serializedLength(tx *wire.MsgTx) int {
	var buf bytes.Buffer
	_ = tx.BtcEncode(&buf, wire.ProtocolVersion)
	return buf.Len()
}

// finish persists tx as a SendTransaction and, when broadcast is
// true, announces its hash to established peers (spec.md Section 4.9
// "on success").
func (b *Builder) finish(tx *wire.MsgTx, dest *addresses.Address, amount, fee int64, broadcast bool) (*store.SendTransaction, error) {
	hash := tx.TxHash()

	var buf bytes.Buffer
	if err := tx.BtcEncode(&buf, wire.ProtocolVersion); err != nil {
		return nil, err
	}

	send := &store.SendTransaction{
		TxHash:         hash,
		NormalizedHash: normalizedHash(tx),
		TimeSent:       time.Now(),
		Serialized:     buf.Bytes(),
		Destination:    dest.String(),
		Value:          amount,
		Fee:            fee,
	}
	if err := b.store.StoreSendTx(send); err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "persist send transaction", err)
	}
	if broadcast {
		b.Broadcast(send)
	}
	return send, nil
}

// normalizedHash mirrors msghandler's malleability-resistant identity:
// the tx hash with every input's signature script blanked.
func normalizedHash(tx *wire.MsgTx) chainhash.Hash {
	stripped := &wire.MsgTx{Version: tx.Version, LockTime: tx.LockTime}
	for _, in := range tx.TxIn {
		stripped.TxIn = append(stripped.TxIn, &wire.TxIn{
			PreviousOutPoint: in.PreviousOutPoint,
			Sequence:         in.Sequence,
		})
	}
	stripped.TxOut = tx.TxOut
	return stripped.TxHash()
}
