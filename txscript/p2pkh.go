// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txscript builds and recognizes the one script pattern this
// wallet ever produces or spends: pay-to-pubkey-hash (spec.md Section
// 3 TransactionOutput).
package txscript

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coinlantern/spvwallet/waltterr"
	"github.com/coinlantern/spvwallet/wire"
)

// Opcodes used by the P2PKH pattern and its scriptSig.
const (
	OpDup         = 0x76
	OpHash160     = 0xa9
	OpData20      = 0x14
	OpEqualVerify = 0x88
	OpCheckSig    = 0xac
)

// SigHashAll is the only hash type this wallet signs with.
const SigHashAll = 0x01

// PayToAddrScript builds the standard P2PKH scriptPubKey: OP_DUP
// OP_HASH160 <20-byte push> OP_EQUALVERIFY OP_CHECKSIG.
func PayToAddrScript(hash160 []byte) ([]byte, error) {
	if len(hash160) != 20 {
		return nil, waltterr.New(waltterr.Malformed, "hash160 must be 20 bytes")
	}
	script := make([]byte, 0, 25)
	script = append(script, OpDup, OpHash160, OpData20)
	script = append(script, hash160...)
	script = append(script, OpEqualVerify, OpCheckSig)
	return script, nil
}

// ExtractPKHash recognizes a P2PKH scriptPubKey and returns the
// embedded hash160, or false if script is not in that form.
func ExtractPKHash(script []byte) (hash160 []byte, ok bool) {
	if len(script) != 25 {
		return nil, false
	}
	if script[0] != OpDup || script[1] != OpHash160 || script[2] != OpData20 {
		return nil, false
	}
	if script[23] != OpEqualVerify || script[24] != OpCheckSig {
		return nil, false
	}
	return script[3:23], true
}

// SignatureScript builds the scriptSig for a P2PKH input: a push of
// the DER signature (with the sighash-type byte appended) followed by
// a push of the compressed public key (spec.md Section 4.9).
func SignatureScript(sig []byte, hashType byte, pubKey []byte) ([]byte, error) {
	var buf bytes.Buffer
	sigWithType := append(append([]byte(nil), sig...), hashType)
	if err := addDataPush(&buf, sigWithType); err != nil {
		return nil, err
	}
	if err := addDataPush(&buf, pubKey); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// addDataPush writes the minimal-push encoding for data into buf.
// Signatures and compressed public keys are always well under the
// 0x4c (OP_PUSHDATA1) threshold, so only the direct-push form is
// needed.
func addDataPush(buf *bytes.Buffer, data []byte) error {
	if len(data) >= 0x4c {
		return waltterr.New(waltterr.Malformed, "push data too large for direct push encoding")
	}
	buf.WriteByte(byte(len(data)))
	buf.Write(data)
	return nil
}

// CalcSignatureHash computes the SIGHASH_ALL digest for signing input
// inputIdx of tx: every other input's signature script is emptied,
// the input being signed carries subscript, and the 4-byte hash type
// is appended before the final double-SHA-256 (spec.md Section 4.9).
func CalcSignatureHash(tx *wire.MsgTx, inputIdx int, subscript []byte, hashType byte) (chainhash.Hash, error) {
	if inputIdx < 0 || inputIdx >= len(tx.TxIn) {
		return chainhash.Hash{}, waltterr.New(waltterr.Malformed, "input index out of range")
	}

	txCopy := &wire.MsgTx{
		Version:  tx.Version,
		LockTime: tx.LockTime,
	}
	for i, in := range tx.TxIn {
		script := []byte(nil)
		if i == inputIdx {
			script = subscript
		}
		txCopy.TxIn = append(txCopy.TxIn, &wire.TxIn{
			PreviousOutPoint: in.PreviousOutPoint,
			SignatureScript:  script,
			Sequence:         in.Sequence,
		})
	}
	for _, out := range tx.TxOut {
		txCopy.TxOut = append(txCopy.TxOut, &wire.TxOut{
			Value:    out.Value,
			PkScript: out.PkScript,
		})
	}

	var buf bytes.Buffer
	if err := txCopy.BtcEncode(&buf, wire.ProtocolVersion); err != nil {
		return chainhash.Hash{}, err
	}
	htBytes := uint32ToLE(uint32(hashType))
	buf.Write(htBytes[:])

	return chainhash.DoubleHashH(buf.Bytes()), nil
}

func uint32ToLE(v uint32) [4]byte {
	return [4]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
