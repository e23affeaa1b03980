// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bip70

import (
	"bytes"
	"context"
	"crypto/x509"
	"io"
	"net/http"
	"time"

	"github.com/coinlantern/spvwallet/waltterr"
)

const (
	mimePaymentRequest = "application/bitcoin-paymentrequest"
	mimePayment        = "application/bitcoin-payment"
	mimePaymentACK     = "application/bitcoin-paymentack"
)

// pkiAlgorithm maps a PaymentRequest's pki_type to the certificate
// signature algorithm used to verify its signature field (spec.md
// Section 6; BIP 70 defines only RSA-keyed PKI types).
var pkiAlgorithm = map[string]x509.SignatureAlgorithm{
	"x509+sha256": x509.SHA256WithRSA,
	"x509+sha1":   x509.SHA1WithRSA,
}

// Fetch retrieves and decodes the PaymentRequest served at requestURL
// (spec.md Section 6: GET with Accept: application/bitcoin-paymentrequest).
func Fetch(ctx context.Context, client *http.Client, requestURL string) (*PaymentRequest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Payment, "build payment request GET", err)
	}
	req.Header.Set("Accept", mimePaymentRequest)

	resp, err := client.Do(req)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Payment, "fetch payment request", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, waltterr.New(waltterr.Payment, "payment request server returned "+resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Payment, "read payment request body", err)
	}
	return UnmarshalPaymentRequest(body)
}

// Validated is the result of successfully validating a PaymentRequest:
// its payment details plus the signing certificate's subject (RFC
// 2253), empty when the request carries no PKI.
type Validated struct {
	Details      *PaymentDetails
	MerchantName string
}

// Validate decodes pr's payment details, rejects an expired request,
// and — when pr carries an x509 PKI type — verifies the certificate
// chain and the signature over pr's bytes with the signature field
// blanked (spec.md Section 6). roots is the trust anchor pool; a nil
// roots falls back to the system trust store, as x509.Verify does.
func Validate(pr *PaymentRequest, now time.Time, roots *x509.CertPool) (*Validated, error) {
	details, err := UnmarshalPaymentDetails(pr.SerializedDetails)
	if err != nil {
		return nil, err
	}
	if details.Expires != 0 && now.Unix() > details.Expires {
		return nil, waltterr.New(waltterr.Payment, "payment request has expired")
	}

	if pr.PKIType == "" || pr.PKIType == "none" {
		return &Validated{Details: details}, nil
	}

	algo, ok := pkiAlgorithm[pr.PKIType]
	if !ok {
		return nil, waltterr.New(waltterr.Payment, "unsupported pki_type "+pr.PKIType)
	}

	certs, err := UnmarshalX509Certificates(pr.PKIData)
	if err != nil || len(certs.Certificate) == 0 {
		return nil, waltterr.New(waltterr.Payment, "missing or malformed x509 certificate chain")
	}

	leaf, err := x509.ParseCertificate(certs.Certificate[0])
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Payment, "parse signing certificate", err)
	}
	intermediates := x509.NewCertPool()
	for _, der := range certs.Certificate[1:] {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, waltterr.Wrap(waltterr.Payment, "parse intermediate certificate", err)
		}
		intermediates.AddCert(cert)
	}

	// Revocation checking (CRL/OCSP) is out of scope, matching the
	// standard library's own Verify, which never consults either.
	if _, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   now,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}); err != nil {
		return nil, waltterr.Wrap(waltterr.Payment, "verify certificate chain", err)
	}

	if err := leaf.CheckSignature(algo, pr.SignedBytes(), pr.Signature); err != nil {
		return nil, waltterr.Wrap(waltterr.Payment, "verify payment request signature", err)
	}

	return &Validated{Details: details, MerchantName: leaf.Subject.String()}, nil
}

// Pay posts payment to paymentURL and returns the merchant's
// acknowledgment (spec.md Section 6). The caller must not broadcast
// any transaction in payment.Transactions until this returns
// successfully.
func Pay(ctx context.Context, client *http.Client, paymentURL string, payment *Payment) (*PaymentACK, error) {
	body := payment.Marshal()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, paymentURL, bytes.NewReader(body))
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Payment, "build payment POST", err)
	}
	req.Header.Set("Content-Type", mimePayment)
	req.Header.Set("Accept", mimePaymentACK)
	req.ContentLength = int64(len(body))

	resp, err := client.Do(req)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Payment, "post payment", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, waltterr.New(waltterr.Payment, "payment server returned "+resp.Status)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Payment, "read payment ack body", err)
	}
	return UnmarshalPaymentACK(respBody)
}
