// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bip70 implements the BIP 70 payment-request flow (spec.md
// Section 6): fetching a PaymentRequest, validating its PKI signature
// and expiry, and posting a signed Payment for a PaymentACK.
//
// The wire messages are protocol-buffers encoded, per BIP 70. Rather
// than depend on a generated pb.go, this package hand-rolls the small
// subset of the protobuf wire format BIP 70's six message types use:
// varint, and length-delimited (string/bytes/embedded-message) fields.
// This mirrors the rest of the wallet's own varint + length-delimited
// wire codec in package wire.
package bip70

import (
	"bytes"
	"io"

	"github.com/coinlantern/spvwallet/waltterr"
)

// Protobuf wire types used by BIP 70's messages.
const (
	wireVarint     = 0
	wireBytes      = 2
	tagShift       = 3
)

func putVarint(buf *bytes.Buffer, v uint64) {
	for v >= 0x80 {
		buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	buf.WriteByte(byte(v))
}

func getVarint(r *bytes.Reader) (uint64, error) {
	var v uint64
	for shift := uint(0); shift < 64; shift += 7 {
		b, err := r.ReadByte()
		if err != nil {
			return 0, waltterr.Wrap(waltterr.Malformed, "read protobuf varint", err)
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, waltterr.New(waltterr.Malformed, "protobuf varint too long")
}

func putTag(buf *bytes.Buffer, field int, wireType uint64) {
	putVarint(buf, uint64(field)<<tagShift|wireType)
}

func putUint64Field(buf *bytes.Buffer, field int, v uint64) {
	putTag(buf, field, wireVarint)
	putVarint(buf, v)
}

func putBytesField(buf *bytes.Buffer, field int, v []byte) {
	putTag(buf, field, wireBytes)
	putVarint(buf, uint64(len(v)))
	buf.Write(v)
}

func putStringField(buf *bytes.Buffer, field int, v string) {
	if v == "" {
		return
	}
	putBytesField(buf, field, []byte(v))
}

// rawField is one decoded (field number, wire type, payload) triple.
// varint payloads are returned pre-decoded in varint; length-delimited
// payloads are returned verbatim in bytes.
type rawField struct {
	num      int
	wireType uint64
	varint   uint64
	bytes    []byte
}

// decodeFields walks data as a flat sequence of protobuf fields. BIP
// 70's messages never nest a repeated group inside another repeated
// group at more than one level, so a flat walk plus per-field
// recursion on embedded messages is all this package ever needs.
func decodeFields(data []byte) ([]rawField, error) {
	r := bytes.NewReader(data)
	var out []rawField
	for r.Len() > 0 {
		tag, err := getVarint(r)
		if err != nil {
			return nil, err
		}
		field := rawField{num: int(tag >> tagShift), wireType: tag & 0x7}
		switch field.wireType {
		case wireVarint:
			v, err := getVarint(r)
			if err != nil {
				return nil, err
			}
			field.varint = v
		case wireBytes:
			n, err := getVarint(r)
			if err != nil {
				return nil, err
			}
			buf := make([]byte, n)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, waltterr.Wrap(waltterr.Malformed, "read protobuf length-delimited field", err)
			}
			field.bytes = buf
		default:
			return nil, waltterr.New(waltterr.Malformed, "unsupported protobuf wire type")
		}
		out = append(out, field)
	}
	return out, nil
}
