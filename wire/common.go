// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/coinlantern/spvwallet/waltterr"
)

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, waltterr.Wrap(waltterr.Malformed, "read uint32", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeInt32(w io.Writer, v int32) error { return writeUint32(w, uint32(v)) }

func readInt32(r io.Reader) (int32, error) {
	v, err := readUint32(r)
	return int32(v), err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, waltterr.Wrap(waltterr.Malformed, "read uint64", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeInt64(w io.Writer, v int64) error { return writeUint64(w, uint64(v)) }

func readInt64(r io.Reader) (int64, error) {
	v, err := readUint64(r)
	return int64(v), err
}

// writeHash writes a hash in wire order. A chainhash.Hash already
// holds its bytes in wire (little-endian) order, the reverse of the
// big-endian display order its String method prints, so the bytes are
// written as they are.
func writeHash(w io.Writer, h *chainhash.Hash) error {
	_, err := w.Write(h[:])
	return err
}

func readHash(r io.Reader) (chainhash.Hash, error) {
	var h chainhash.Hash
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return h, waltterr.Wrap(waltterr.Malformed, "read hash", err)
	}
	return h, nil
}

// writeTimestamp4 writes a 32-bit Unix timestamp, the width used by
// block headers and pre-NetAddressTimeVersion addr entries.
func writeTimestamp4(w io.Writer, t time.Time) error {
	return writeUint32(w, uint32(t.Unix()))
}

func readTimestamp4(r io.Reader) (time.Time, error) {
	v, err := readUint32(r)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(v), 0), nil
}
