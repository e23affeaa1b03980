// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bip70

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coinlantern/spvwallet/waltterr"
)

// selfSignedCert builds a throwaway self-signed RSA certificate for
// signature tests, sidestepping any system trust store dependency.
func selfSignedCert(t *testing.T) (der []byte, priv *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Test Merchant"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		IsCA:         true,
		BasicConstraintsValid: true,
	}
	der, err = x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	return der, priv
}

func TestValidateAcceptsUnsignedRequest(t *testing.T) {
	details := &PaymentDetails{Network: "main", Time: 1_700_000_000}
	pr := &PaymentRequest{PKIType: "none", SerializedDetails: details.Marshal()}

	v, err := Validate(pr, time.Unix(1_700_000_100, 0), nil)
	require.NoError(t, err)
	require.Empty(t, v.MerchantName)
	require.Equal(t, details.Network, v.Details.Network)
}

func TestValidateRejectsExpiredRequest(t *testing.T) {
	details := &PaymentDetails{Network: "main", Time: 1_700_000_000, Expires: 1_700_000_100}
	pr := &PaymentRequest{PKIType: "none", SerializedDetails: details.Marshal()}

	_, err := Validate(pr, time.Unix(1_700_000_200, 0), nil)
	require.Error(t, err)
	require.True(t, waltterr.Is(err, waltterr.Payment))
}

func TestValidateVerifiesX509Signature(t *testing.T) {
	der, priv := selfSignedCert(t)
	roots := trustedPool(t, der)

	details := &PaymentDetails{Network: "main", Time: 1_700_000_000}
	pr := &PaymentRequest{
		PKIType:           "x509+sha256",
		PKIData:           (&X509Certificates{Certificate: [][]byte{der}}).Marshal(),
		SerializedDetails: details.Marshal(),
	}

	digest := sha256.Sum256(pr.SignedBytes())
	sig, err := signPKCS1v15SHA256(priv, digest[:])
	require.NoError(t, err)
	pr.Signature = sig

	v, err := Validate(pr, time.Now(), roots)
	require.NoError(t, err)
	require.Contains(t, v.MerchantName, "Test Merchant")
}

func TestValidateRejectsTamperedSignature(t *testing.T) {
	der, priv := selfSignedCert(t)
	roots := trustedPool(t, der)

	details := &PaymentDetails{Network: "main", Time: 1_700_000_000}
	pr := &PaymentRequest{
		PKIType:           "x509+sha256",
		PKIData:           (&X509Certificates{Certificate: [][]byte{der}}).Marshal(),
		SerializedDetails: details.Marshal(),
	}
	digest := sha256.Sum256(pr.SignedBytes())
	sig, err := signPKCS1v15SHA256(priv, digest[:])
	require.NoError(t, err)
	sig[0] ^= 0xff
	pr.Signature = sig

	_, err = Validate(pr, time.Now(), roots)
	require.Error(t, err)
	require.True(t, waltterr.Is(err, waltterr.Payment))
}

// trustedPool builds a root pool containing der, so the self-signed
// test certificate verifies without touching the system trust store.
func trustedPool(t *testing.T, der []byte) *x509.CertPool {
	t.Helper()
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	pool := x509.NewCertPool()
	pool.AddCert(cert)
	return pool
}

func signPKCS1v15SHA256(priv *rsa.PrivateKey, digest []byte) ([]byte, error) {
	return rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest)
}
