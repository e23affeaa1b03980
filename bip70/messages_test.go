// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bip70

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaymentDetailsRoundTrip(t *testing.T) {
	want := &PaymentDetails{
		Network: "main",
		Outputs: []*Output{
			{Amount: 100_000, Script: []byte{0x76, 0xa9, 0x14}},
			{Amount: 50_000, Script: []byte{0x00, 0x01}},
		},
		Time:         1_700_000_000,
		Expires:      1_700_003_600,
		Memo:         "order #42",
		PaymentURL:   "https://merchant.example/pay/42",
		MerchantData: []byte(`{"order":42}`),
	}
	got, err := UnmarshalPaymentDetails(want.Marshal())
	require.NoError(t, err)
	require.Equal(t, want.Network, got.Network)
	require.Equal(t, want.Time, got.Time)
	require.Equal(t, want.Expires, got.Expires)
	require.Equal(t, want.Memo, got.Memo)
	require.Equal(t, want.PaymentURL, got.PaymentURL)
	require.Equal(t, want.MerchantData, got.MerchantData)
	require.Len(t, got.Outputs, 2)
	require.Equal(t, want.Outputs[0].Amount, got.Outputs[0].Amount)
	require.Equal(t, want.Outputs[0].Script, got.Outputs[0].Script)
	require.Equal(t, want.Outputs[1].Amount, got.Outputs[1].Amount)
}

func TestPaymentRequestRoundTripAndSignedBytes(t *testing.T) {
	details := &PaymentDetails{Network: "main", Time: 1_700_000_000}
	pr := &PaymentRequest{
		PaymentDetailsVersion: 1,
		PKIType:               "x509+sha256",
		PKIData:               []byte("cert-bytes"),
		SerializedDetails:     details.Marshal(),
		Signature:             []byte("sig-bytes"),
	}

	got, err := UnmarshalPaymentRequest(pr.Marshal())
	require.NoError(t, err)
	require.Equal(t, pr.PKIType, got.PKIType)
	require.Equal(t, pr.PKIData, got.PKIData)
	require.Equal(t, pr.SerializedDetails, got.SerializedDetails)
	require.Equal(t, pr.Signature, got.Signature)

	signed, err := UnmarshalPaymentRequest(pr.SignedBytes())
	require.NoError(t, err)
	require.Empty(t, signed.Signature)
	require.Equal(t, pr.SerializedDetails, signed.SerializedDetails)
}

func TestPaymentAndACKRoundTrip(t *testing.T) {
	payment := &Payment{
		MerchantData: []byte("merchant"),
		Transactions: [][]byte{{0x01, 0x02}, {0x03}},
		RefundTo:     []*Output{{Amount: 1000, Script: []byte{0xaa}}},
		Memo:         "thanks",
	}
	ack := &PaymentACK{Payment: payment, Memo: "received"}

	got, err := UnmarshalPaymentACK(ack.Marshal())
	require.NoError(t, err)
	require.Equal(t, ack.Memo, got.Memo)
	require.Equal(t, payment.MerchantData, got.Payment.MerchantData)
	require.Equal(t, payment.Transactions, got.Payment.Transactions)
	require.Len(t, got.Payment.RefundTo, 1)
	require.Equal(t, payment.Memo, got.Payment.Memo)
}

func TestX509CertificatesRoundTrip(t *testing.T) {
	want := &X509Certificates{Certificate: [][]byte{[]byte("leaf"), []byte("intermediate")}}
	got, err := UnmarshalX509Certificates(want.Marshal())
	require.NoError(t, err)
	require.Equal(t, want.Certificate, got.Certificate)
}
