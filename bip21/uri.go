// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bip21 parses BIP 21 payment URIs (spec.md Section 6):
// bitcoin:<address>?amount=...&label=...&message=...&r=...
package bip21

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/coinlantern/spvwallet/waltterr"
)

// scheme is the only URI scheme this wallet recognizes.
const scheme = "bitcoin:"

// satsPerBTC converts the URI's decimal-BTC amount parameter to
// satoshis.
const satsPerBTC = 1e8

// URI is a parsed BIP 21 payment request. Amount is zero if the
// amount parameter was absent. PaymentRequestURL holds the "r"
// parameter (a BIP 70 request URL), empty if absent.
type URI struct {
	Address           string
	Amount            int64
	Label             string
	Message           string
	PaymentRequestURL string
}

// Parse parses raw as a BIP 21 URI. It fails with a waltterr.URI
// error on a missing "bitcoin:" scheme, a missing "?" query
// separator, an empty parameter name, or a malformed percent
// encoding. Unknown parameters are ignored for forward compatibility
// (spec.md Section 6).
func Parse(raw string) (*URI, error) {
	if !strings.HasPrefix(raw, scheme) {
		return nil, waltterr.New(waltterr.URI, "missing bitcoin: scheme")
	}
	rest := raw[len(scheme):]

	sep := strings.IndexByte(rest, '?')
	if sep < 0 {
		return nil, waltterr.New(waltterr.URI, "missing '?' query separator")
	}
	address := rest[:sep]
	if address == "" {
		return nil, waltterr.New(waltterr.URI, "missing address")
	}

	u := &URI{Address: address}
	for _, pair := range strings.Split(rest[sep+1:], "&") {
		if pair == "" {
			continue
		}
		name, value, err := splitParam(pair)
		if err != nil {
			return nil, err
		}
		if err := u.apply(name, value); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func splitParam(pair string) (name, value string, err error) {
	rawName, rawValue, _ := strings.Cut(pair, "=")
	name, err = url.QueryUnescape(rawName)
	if err != nil {
		return "", "", waltterr.Wrap(waltterr.URI, "decode parameter name", err)
	}
	if name == "" {
		return "", "", waltterr.New(waltterr.URI, "empty parameter name")
	}
	value, err = url.QueryUnescape(rawValue)
	if err != nil {
		return "", "", waltterr.Wrap(waltterr.URI, "decode parameter value", err)
	}
	return name, value, nil
}

func (u *URI) apply(name, value string) error {
	switch name {
	case "amount":
		sat, err := parseAmount(value)
		if err != nil {
			return err
		}
		u.Amount = sat
	case "label":
		u.Label = value
	case "message":
		u.Message = value
	case "r":
		u.PaymentRequestURL = value
	}
	// Unknown parameters are ignored.
	return nil
}

// parseAmount converts a decimal-BTC string to satoshis.
func parseAmount(s string) (int64, error) {
	btc, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, waltterr.Wrap(waltterr.URI, "parse amount", err)
	}
	if btc < 0 {
		return 0, waltterr.New(waltterr.URI, "amount must not be negative")
	}
	return int64(math.Round(btc * satsPerBTC)), nil
}
