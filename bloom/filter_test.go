// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bloom

import "testing"

func TestFilterMatchesInsertedElements(t *testing.T) {
	f := New(10, 0.001, 12345)

	elems := [][]byte{
		[]byte("hash160-one"),
		[]byte("hash160-two"),
		[]byte("hash160-three"),
	}
	for _, e := range elems {
		f.Add(e)
	}
	for _, e := range elems {
		if !f.Matches(e) {
			t.Errorf("filter did not match inserted element %q", e)
		}
	}
}

func TestFilterLoadRoundTrip(t *testing.T) {
	f := New(5, 0.01, 99)
	f.Add([]byte("owned-address-hash"))

	bits, hashFuncs, tweak := f.MsgFilterLoad()
	loaded, err := Load(bits, hashFuncs, tweak)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Matches([]byte("owned-address-hash")) {
		t.Error("reloaded filter lost a previously added element")
	}
}

func TestLoadRejectsOversizedFilter(t *testing.T) {
	bits := make([]byte, maxFilterBits/8+1)
	if _, err := Load(bits, 1, 0); err == nil {
		t.Error("expected oversized filter to be rejected")
	}
}

func TestLoadRejectsTooManyHashFuncs(t *testing.T) {
	if _, err := Load([]byte{0, 0}, maxHashFuncs+1, 0); err == nil {
		t.Error("expected too many hash functions to be rejected")
	}
}
