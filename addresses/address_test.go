// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addresses

import (
	"testing"

	"github.com/coinlantern/spvwallet/chaincfg"
)

func TestAddressRoundTrip(t *testing.T) {
	hash160 := make([]byte, 20)
	for i := range hash160 {
		hash160[i] = byte(i)
	}

	addr, err := New(hash160, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	encoded := addr.String()

	t.Run("DecodeMatches", func(t *testing.T) {
		decoded, err := Decode(encoded, &chaincfg.MainNetParams)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if decoded.String() != encoded {
			t.Errorf("round trip mismatch: got %s, want %s", decoded.String(), encoded)
		}
	})

	t.Run("RejectsWrongNetwork", func(t *testing.T) {
		if _, err := Decode(encoded, &chaincfg.TestNetParams); err == nil {
			t.Error("expected version-byte mismatch to be rejected")
		}
	})

	t.Run("RejectsBadChecksum", func(t *testing.T) {
		corrupted := []byte(encoded)
		corrupted[len(corrupted)-1]++
		if _, err := Decode(string(corrupted), &chaincfg.MainNetParams); err == nil {
			t.Error("expected corrupted checksum to be rejected")
		}
	})
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	if _, err := Decode("1", &chaincfg.MainNetParams); err == nil {
		t.Error("expected short input to be rejected")
	}
}
