// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func TestMsgTxRoundTrip(t *testing.T) {
	tx := &MsgTx{
		Version: 1,
		TxIn: []*TxIn{
			{
				PreviousOutPoint: OutPoint{Hash: chainhash.Hash{1, 2, 3}, Index: 0},
				SignatureScript:  []byte{0x47, 0x30, 0x44},
				Sequence:         0xffffffff,
			},
		},
		TxOut: []*TxOut{
			{Value: 5000000000, PkScript: []byte{0x76, 0xa9, 0x14}},
		},
		LockTime: 0,
	}

	var buf bytes.Buffer
	if err := tx.BtcEncode(&buf, ProtocolVersion); err != nil {
		t.Fatalf("BtcEncode: %v", err)
	}
	if buf.Len() != tx.SerializeSize() {
		t.Errorf("SerializeSize() = %d, encoded %d bytes", tx.SerializeSize(), buf.Len())
	}

	var got MsgTx
	if err := got.BtcDecode(&buf, ProtocolVersion); err != nil {
		t.Fatalf("BtcDecode: %v", err)
	}
	if got.TxHash() != tx.TxHash() {
		t.Errorf("txid mismatch after round trip")
	}
	if len(got.TxIn) != 1 || got.TxIn[0].Sequence != 0xffffffff {
		t.Errorf("txin mismatch: %+v", got.TxIn)
	}
	if len(got.TxOut) != 1 || got.TxOut[0].Value != 5000000000 {
		t.Errorf("txout mismatch: %+v", got.TxOut)
	}
}

func TestMsgTxRejectsTooManyInputs(t *testing.T) {
	var buf bytes.Buffer
	_ = writeInt32(&buf, 1)
	_ = WriteVarInt(&buf, MaxTxInPerMessage+1)

	var tx MsgTx
	if err := tx.BtcDecode(&buf, ProtocolVersion); err == nil {
		t.Error("expected oversized input count to be rejected")
	}
}
