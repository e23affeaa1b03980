// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keys

import "testing"

func TestGenerateAndOpenRoundTrip(t *testing.T) {
	k, err := Generate("correct horse battery staple", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	priv, err := k.Open("correct horse battery staple")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer priv.Zero()

	if !priv.PubKey().IsEqual(k.PubKey) {
		t.Error("decrypted private key does not match stored public key")
	}
}

func TestOpenRejectsWrongPassphrase(t *testing.T) {
	k, err := Generate("right passphrase", false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := k.Open("wrong passphrase"); err == nil {
		t.Error("expected wrong passphrase to fail decryption")
	}
}

func TestHash160Length(t *testing.T) {
	k, err := Generate("passphrase", true)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(k.Hash160) != 20 {
		t.Errorf("hash160 length = %d, want 20", len(k.Hash160))
	}
	if !k.IsChange {
		t.Error("expected IsChange to be true")
	}
}
