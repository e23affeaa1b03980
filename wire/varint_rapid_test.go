// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"pgregory.net/rapid"
)

// TestVarIntRoundTripProperty checks WriteVarInt/ReadVarInt against
// randomly drawn uint64 values, not just the boundary values
// TestVarIntRoundTrip enumerates by hand.
func TestVarIntRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.Uint64().Draw(rt, "v")

		var buf bytes.Buffer
		if err := WriteVarInt(&buf, v); err != nil {
			rt.Fatalf("WriteVarInt(%d): %v", v, err)
		}
		if buf.Len() != VarIntSerializeSize(v) {
			rt.Fatalf("VarIntSerializeSize(%d) = %d, wrote %d bytes", v, VarIntSerializeSize(v), buf.Len())
		}
		got, err := ReadVarInt(&buf)
		if err != nil {
			rt.Fatalf("ReadVarInt(%d): %v", v, err)
		}
		if got != v {
			rt.Fatalf("round trip %d got %d", v, got)
		}
	})
}
