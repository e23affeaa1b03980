// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reactor

import (
	"net"

	"github.com/btcsuite/go-socks/socks"
)

// NewSocksDialer builds a Dialer that routes every outbound
// connection through a SOCKS5 proxy at proxyAddr (spec.md Section 4.5
// outbound connect, made optional for Tor/privacy-conscious users).
func NewSocksDialer(proxyAddr, user, pass string) Dialer {
	p := &socks.Proxy{Addr: proxyAddr, Username: user, Password: pass}
	return func(network, addr string) (net.Conn, error) {
		return p.Dial(network, addr)
	}
}
