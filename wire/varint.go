// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/coinlantern/spvwallet/waltterr"
)

// VarIntSerializeSize returns the number of bytes WriteVarInt would
// encode n as.
func VarIntSerializeSize(n uint64) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	case n <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// WriteVarInt encodes n per spec.md Section 4.1: one byte for
// 0-0xFC; 0xFD plus a uint16 for n<=0xFFFF; 0xFE plus a uint32 for
// n<=0xFFFFFFFF; 0xFF plus a uint64 otherwise.
func WriteVarInt(w io.Writer, n uint64) error {
	switch {
	case n < 0xfd:
		_, err := w.Write([]byte{byte(n)})
		return err
	case n <= 0xffff:
		buf := make([]byte, 3)
		buf[0] = 0xfd
		binary.LittleEndian.PutUint16(buf[1:], uint16(n))
		_, err := w.Write(buf)
		return err
	case n <= 0xffffffff:
		buf := make([]byte, 5)
		buf[0] = 0xfe
		binary.LittleEndian.PutUint32(buf[1:], uint32(n))
		_, err := w.Write(buf)
		return err
	default:
		buf := make([]byte, 9)
		buf[0] = 0xff
		binary.LittleEndian.PutUint64(buf[1:], n)
		_, err := w.Write(buf)
		return err
	}
}

// ReadVarInt decodes a VarInt, rejecting any encoding that is not the
// minimal form for its value (spec.md Section 4.1: "Decoder must
// reject non-minimal encodings").
func ReadVarInt(r io.Reader) (uint64, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return 0, waltterr.Wrap(waltterr.Malformed, "read varint prefix", err)
	}

	switch prefix[0] {
	case 0xff:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, waltterr.Wrap(waltterr.Malformed, "read varint uint64", err)
		}
		n := binary.LittleEndian.Uint64(buf[:])
		if n <= 0xffffffff {
			return 0, waltterr.New(waltterr.Malformed, "non-minimal varint (uint64 form)")
		}
		return n, nil
	case 0xfe:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, waltterr.Wrap(waltterr.Malformed, "read varint uint32", err)
		}
		n := binary.LittleEndian.Uint32(buf[:])
		if uint64(n) <= 0xffff {
			return 0, waltterr.New(waltterr.Malformed, "non-minimal varint (uint32 form)")
		}
		return uint64(n), nil
	case 0xfd:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, waltterr.Wrap(waltterr.Malformed, "read varint uint16", err)
		}
		n := binary.LittleEndian.Uint16(buf[:])
		if n < 0xfd {
			return 0, waltterr.New(waltterr.Malformed, "non-minimal varint (uint16 form)")
		}
		return uint64(n), nil
	default:
		return uint64(prefix[0]), nil
	}
}

// WriteVarString writes s as a VarInt length prefix followed by its
// UTF-8 bytes.
func WriteVarString(w io.Writer, s string) error {
	if err := WriteVarInt(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// maxVarStringLen bounds string reads so a corrupt length prefix
// cannot force an enormous allocation.
const maxVarStringLen = MaxMessagePayload

// ReadVarString reads a VarInt-length-prefixed UTF-8 string.
func ReadVarString(r io.Reader) (string, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return "", err
	}
	if n > maxVarStringLen {
		return "", waltterr.New(waltterr.Malformed, fmt.Sprintf("var string too long: %d", n))
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", waltterr.Wrap(waltterr.Malformed, "read varstring body", err)
	}
	return string(buf), nil
}

// WriteVarBytes writes b as a VarInt length prefix followed by the
// raw bytes.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteVarInt(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadVarBytes reads a VarInt-length-prefixed byte string, bounded by
// maxAllowed (the caller's knowledge of the largest sane value for
// the field being decoded, e.g. a script).
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	if n > maxAllowed {
		return nil, waltterr.New(waltterr.Malformed, fmt.Sprintf("%s too long: %d > %d", fieldName, n, maxAllowed))
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, waltterr.Wrap(waltterr.Malformed, fmt.Sprintf("read %s body", fieldName), err)
	}
	return buf, nil
}
