// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coinlantern/spvwallet/waltterr"
)

// MaxTxInPerMessage and MaxTxOutPerMessage bound a single transaction's
// input/output counts against a hostile VarInt length prefix.
const (
	MaxTxInPerMessage  = 1000000 / 41
	MaxTxOutPerMessage = 1000000 / 9
	maxScriptSize      = 10000
)

// OutPoint identifies a single previous output a TxIn spends.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

func writeOutPoint(w io.Writer, op *OutPoint) error {
	if err := writeHash(w, &op.Hash); err != nil {
		return err
	}
	return writeUint32(w, op.Index)
}

func readOutPoint(r io.Reader) (OutPoint, error) {
	var op OutPoint
	h, err := readHash(r)
	if err != nil {
		return op, err
	}
	op.Hash = h
	idx, err := readUint32(r)
	if err != nil {
		return op, err
	}
	op.Index = idx
	return op, nil
}

// TxIn spends a previous output via SignatureScript and participates
// in replace-by-fee policy via Sequence.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

func writeTxIn(w io.Writer, ti *TxIn) error {
	if err := writeOutPoint(w, &ti.PreviousOutPoint); err != nil {
		return err
	}
	if err := WriteVarBytes(w, ti.SignatureScript); err != nil {
		return err
	}
	return writeUint32(w, ti.Sequence)
}

func readTxIn(r io.Reader) (*TxIn, error) {
	ti := &TxIn{}
	op, err := readOutPoint(r)
	if err != nil {
		return nil, err
	}
	ti.PreviousOutPoint = op

	sigScript, err := ReadVarBytes(r, maxScriptSize, "signature script")
	if err != nil {
		return nil, err
	}
	ti.SignatureScript = sigScript

	seq, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	ti.Sequence = seq
	return ti, nil
}

// TxOut pays Value satoshis to whoever can satisfy PkScript.
type TxOut struct {
	Value    int64
	PkScript []byte
}

func writeTxOut(w io.Writer, to *TxOut) error {
	if err := writeInt64(w, to.Value); err != nil {
		return err
	}
	return WriteVarBytes(w, to.PkScript)
}

func readTxOut(r io.Reader) (*TxOut, error) {
	to := &TxOut{}
	v, err := readInt64(r)
	if err != nil {
		return nil, err
	}
	to.Value = v

	pkScript, err := ReadVarBytes(r, maxScriptSize, "pk script")
	if err != nil {
		return nil, err
	}
	to.PkScript = pkScript
	return to, nil
}

// MsgTx is a Bitcoin transaction, legacy-serialized (no segwit marker
// or witness data): the wallet only ever builds and signs plain P2PKH
// spends (spec.md Section 4.9).
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

func (m *MsgTx) Command() string { return CmdTx }

func (m *MsgTx) BtcEncode(w io.Writer, pver uint32) error {
	if err := writeInt32(w, m.Version); err != nil {
		return err
	}
	if err := WriteVarInt(w, uint64(len(m.TxIn))); err != nil {
		return err
	}
	for _, ti := range m.TxIn {
		if err := writeTxIn(w, ti); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, uint64(len(m.TxOut))); err != nil {
		return err
	}
	for _, to := range m.TxOut {
		if err := writeTxOut(w, to); err != nil {
			return err
		}
	}
	return writeUint32(w, m.LockTime)
}

func (m *MsgTx) BtcDecode(r io.Reader, pver uint32) error {
	v, err := readInt32(r)
	if err != nil {
		return err
	}
	m.Version = v

	inCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if inCount > MaxTxInPerMessage {
		return waltterr.New(waltterr.Malformed, "too many transaction inputs")
	}
	m.TxIn = make([]*TxIn, 0, inCount)
	for i := uint64(0); i < inCount; i++ {
		ti, err := readTxIn(r)
		if err != nil {
			return err
		}
		m.TxIn = append(m.TxIn, ti)
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if outCount > MaxTxOutPerMessage {
		return waltterr.New(waltterr.Malformed, "too many transaction outputs")
	}
	m.TxOut = make([]*TxOut, 0, outCount)
	for i := uint64(0); i < outCount; i++ {
		to, err := readTxOut(r)
		if err != nil {
			return err
		}
		m.TxOut = append(m.TxOut, to)
	}

	lockTime, err := readUint32(r)
	if err != nil {
		return err
	}
	m.LockTime = lockTime
	return nil
}

// TxHash returns the double-SHA-256 identity of the serialized
// transaction, used as the wire and display txid.
func (m *MsgTx) TxHash() chainhash.Hash {
	var buf bytes.Buffer
	_ = m.BtcEncode(&buf, 0)
	return chainhash.DoubleHashH(buf.Bytes())
}

// SerializeSize returns the byte length of the legacy serialization,
// computed from the field sizes without encoding the transaction.
func (m *MsgTx) SerializeSize() int {
	n := 4 + 4 // version + locktime
	n += VarIntSerializeSize(uint64(len(m.TxIn)))
	for _, ti := range m.TxIn {
		n += 36 + VarIntSerializeSize(uint64(len(ti.SignatureScript))) + len(ti.SignatureScript) + 4
	}
	n += VarIntSerializeSize(uint64(len(m.TxOut)))
	for _, to := range m.TxOut {
		n += 8 + VarIntSerializeSize(uint64(len(to.PkScript))) + len(to.PkScript)
	}
	return n
}
