// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"
	"time"
)

func TestBlockHeaderRoundTrip(t *testing.T) {
	hdr := &BlockHeader{
		Version:   1,
		Timestamp: time.Unix(1231006505, 0),
		Bits:      0x1d00ffff,
		Nonce:     2083236893,
	}

	var buf bytes.Buffer
	if err := hdr.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if buf.Len() != BlockHeaderLen {
		t.Fatalf("serialized length = %d, want %d", buf.Len(), BlockHeaderLen)
	}

	var got BlockHeader
	if err := got.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got.BlockHash() != hdr.BlockHash() {
		t.Errorf("hash mismatch after round trip")
	}
	if got.Bits != hdr.Bits || got.Nonce != hdr.Nonce {
		t.Errorf("field mismatch: %+v", got)
	}
}
