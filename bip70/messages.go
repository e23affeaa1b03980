// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package bip70

import "bytes"

// Field numbers below match BIP 70's paymentrequest.proto exactly, so
// this package's wire bytes are interoperable with any conforming
// implementation despite not using generated code.

// Output is one payment destination: amount in satoshis and the
// scriptPubKey that claims it.
type Output struct {
	Amount int64
	Script []byte
}

func (o *Output) Marshal() []byte {
	var buf bytes.Buffer
	if o.Amount != 0 {
		putUint64Field(&buf, 1, uint64(o.Amount))
	}
	if len(o.Script) > 0 {
		putBytesField(&buf, 2, o.Script)
	}
	return buf.Bytes()
}

func unmarshalOutput(data []byte) (*Output, error) {
	fields, err := decodeFields(data)
	if err != nil {
		return nil, err
	}
	o := &Output{}
	for _, f := range fields {
		switch f.num {
		case 1:
			o.Amount = int64(f.varint)
		case 2:
			o.Script = f.bytes
		}
	}
	return o, nil
}

// PaymentDetails is the signed body of a PaymentRequest.
type PaymentDetails struct {
	Network      string
	Outputs      []*Output
	Time         int64
	Expires      int64
	Memo         string
	PaymentURL   string
	MerchantData []byte
}

func (d *PaymentDetails) Marshal() []byte {
	var buf bytes.Buffer
	putStringField(&buf, 1, d.Network)
	for _, o := range d.Outputs {
		putBytesField(&buf, 2, o.Marshal())
	}
	putUint64Field(&buf, 3, uint64(d.Time))
	if d.Expires != 0 {
		putUint64Field(&buf, 4, uint64(d.Expires))
	}
	putStringField(&buf, 5, d.Memo)
	putStringField(&buf, 6, d.PaymentURL)
	if len(d.MerchantData) > 0 {
		putBytesField(&buf, 7, d.MerchantData)
	}
	return buf.Bytes()
}

func UnmarshalPaymentDetails(data []byte) (*PaymentDetails, error) {
	fields, err := decodeFields(data)
	if err != nil {
		return nil, err
	}
	d := &PaymentDetails{}
	for _, f := range fields {
		switch f.num {
		case 1:
			d.Network = string(f.bytes)
		case 2:
			o, err := unmarshalOutput(f.bytes)
			if err != nil {
				return nil, err
			}
			d.Outputs = append(d.Outputs, o)
		case 3:
			d.Time = int64(f.varint)
		case 4:
			d.Expires = int64(f.varint)
		case 5:
			d.Memo = string(f.bytes)
		case 6:
			d.PaymentURL = string(f.bytes)
		case 7:
			d.MerchantData = f.bytes
		}
	}
	return d, nil
}

// PaymentRequest is the signed envelope a merchant serves over HTTP.
type PaymentRequest struct {
	PaymentDetailsVersion int64
	PKIType               string
	PKIData               []byte
	SerializedDetails     []byte
	Signature             []byte
}

// marshal serializes the request. When blankSignature is true the
// signature field is omitted, reproducing the bytes that were signed
// (spec.md Section 6: "verify signature... with the signature field
// blanked").
func (r *PaymentRequest) marshal(blankSignature bool) []byte {
	var buf bytes.Buffer
	if r.PaymentDetailsVersion != 0 {
		putUint64Field(&buf, 1, uint64(r.PaymentDetailsVersion))
	}
	putStringField(&buf, 2, r.PKIType)
	if len(r.PKIData) > 0 {
		putBytesField(&buf, 3, r.PKIData)
	}
	putBytesField(&buf, 4, r.SerializedDetails)
	if !blankSignature && len(r.Signature) > 0 {
		putBytesField(&buf, 5, r.Signature)
	}
	return buf.Bytes()
}

func (r *PaymentRequest) Marshal() []byte { return r.marshal(false) }

// SignedBytes returns the bytes the signature field signs: the
// message serialized with signature blanked.
func (r *PaymentRequest) SignedBytes() []byte { return r.marshal(true) }

func UnmarshalPaymentRequest(data []byte) (*PaymentRequest, error) {
	fields, err := decodeFields(data)
	if err != nil {
		return nil, err
	}
	r := &PaymentRequest{PaymentDetailsVersion: 1, PKIType: "none"}
	for _, f := range fields {
		switch f.num {
		case 1:
			r.PaymentDetailsVersion = int64(f.varint)
		case 2:
			r.PKIType = string(f.bytes)
		case 3:
			r.PKIData = f.bytes
		case 4:
			r.SerializedDetails = f.bytes
		case 5:
			r.Signature = f.bytes
		}
	}
	return r, nil
}

// X509Certificates is a PKIData payload for "x509+sha256"/"x509+sha1":
// a signing certificate followed by zero or more intermediates, each
// DER-encoded.
type X509Certificates struct {
	Certificate [][]byte
}

func (c *X509Certificates) Marshal() []byte {
	var buf bytes.Buffer
	for _, der := range c.Certificate {
		putBytesField(&buf, 1, der)
	}
	return buf.Bytes()
}

func UnmarshalX509Certificates(data []byte) (*X509Certificates, error) {
	fields, err := decodeFields(data)
	if err != nil {
		return nil, err
	}
	c := &X509Certificates{}
	for _, f := range fields {
		if f.num == 1 {
			c.Certificate = append(c.Certificate, f.bytes)
		}
	}
	return c, nil
}

// Payment is the customer's response: the signed transaction(s)
// satisfying a PaymentDetails, posted back to its payment_url.
type Payment struct {
	MerchantData []byte
	Transactions [][]byte
	RefundTo     []*Output
	Memo         string
}

func (p *Payment) Marshal() []byte {
	var buf bytes.Buffer
	if len(p.MerchantData) > 0 {
		putBytesField(&buf, 1, p.MerchantData)
	}
	for _, tx := range p.Transactions {
		putBytesField(&buf, 2, tx)
	}
	for _, o := range p.RefundTo {
		putBytesField(&buf, 3, o.Marshal())
	}
	putStringField(&buf, 4, p.Memo)
	return buf.Bytes()
}

func UnmarshalPayment(data []byte) (*Payment, error) {
	fields, err := decodeFields(data)
	if err != nil {
		return nil, err
	}
	p := &Payment{}
	for _, f := range fields {
		switch f.num {
		case 1:
			p.MerchantData = f.bytes
		case 2:
			p.Transactions = append(p.Transactions, f.bytes)
		case 3:
			o, err := unmarshalOutput(f.bytes)
			if err != nil {
				return nil, err
			}
			p.RefundTo = append(p.RefundTo, o)
		case 4:
			p.Memo = string(f.bytes)
		}
	}
	return p, nil
}

// PaymentACK is the merchant's acknowledgment of a received Payment.
type PaymentACK struct {
	Payment *Payment
	Memo    string
}

func (a *PaymentACK) Marshal() []byte {
	var buf bytes.Buffer
	putBytesField(&buf, 1, a.Payment.Marshal())
	putStringField(&buf, 2, a.Memo)
	return buf.Bytes()
}

func UnmarshalPaymentACK(data []byte) (*PaymentACK, error) {
	fields, err := decodeFields(data)
	if err != nil {
		return nil, err
	}
	a := &PaymentACK{}
	for _, f := range fields {
		switch f.num {
		case 1:
			p, err := UnmarshalPayment(f.bytes)
			if err != nil {
				return nil, err
			}
			a.Payment = p
		case 2:
			a.Memo = string(f.bytes)
		}
	}
	return a, nil
}
