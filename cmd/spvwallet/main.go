// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command spvwallet is the wallet's entry point (spec.md Section 6):
// it parses the command line and BitcoinWallet.conf, constructs the
// store, reactor, message handler, and transaction builder, and — when
// a bitcoin: URI was given — drives a send or a full BIP 70 payment
// to completion before exiting.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/coinlantern/spvwallet/addresses"
	"github.com/coinlantern/spvwallet/addrmgr"
	"github.com/coinlantern/spvwallet/bip70"
	"github.com/coinlantern/spvwallet/chainmgr"
	"github.com/coinlantern/spvwallet/internal/singleinstance"
	"github.com/coinlantern/spvwallet/invreq"
	"github.com/coinlantern/spvwallet/msghandler"
	"github.com/coinlantern/spvwallet/peer"
	"github.com/coinlantern/spvwallet/reactor"
	"github.com/coinlantern/spvwallet/store/leveldbstore"
	"github.com/coinlantern/spvwallet/txbuilder"
	"github.com/coinlantern/spvwallet/txscript"
	"github.com/coinlantern/spvwallet/waltterr"
	"github.com/coinlantern/spvwallet/walletcfg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "spvwallet:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, err := walletcfg.Load(os.Args[1:], "")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(ctx.DataDir, 0o700); err != nil {
		return err
	}

	lock, err := singleinstance.Acquire(filepath.Join(ctx.DataDir, "wallet.lock"))
	if err != nil {
		return err
	}
	defer lock.Release()

	closeLog, err := initLogging(ctx.DataDir)
	if err != nil {
		return err
	}
	defer closeLog()

	s, err := leveldbstore.Open(filepath.Join(ctx.DataDir, "wallet.db"))
	if err != nil {
		return err
	}
	defer s.Close()

	chain := chainmgr.New(s, ctx.Params)
	if err := chain.Bootstrap(); err != nil {
		return err
	}

	inv := invreq.New()
	addrs := addrmgr.New()
	staticOnly := len(ctx.Connect) > 0
	for _, hostport := range ctx.Connect {
		if err := addStaticPeer(addrs, hostport, ctx.Params.DefaultPort); err != nil {
			return err
		}
	}

	handler := msghandler.New(s, chain, inv, addrs, ctx.Params)
	if err := handler.RefreshOwnedKeys(); err != nil {
		return err
	}

	var dial reactor.Dialer
	if ctx.Proxy != "" {
		dial = reactor.NewSocksDialer(ctx.Proxy, "", "")
	}
	r := reactor.New(ctx.Params, s, inv, addrs, handler, dial, staticOnly)
	builder := txbuilder.New(s, ctx.Params, r)

	r.Start()
	defer r.Stop()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	if ctx.PaymentURI != nil {
		if err := pay(builder, ctx); err != nil {
			return err
		}
	}

	<-shutdown
	return nil
}

// addStaticPeer resolves a configured connect=host:port entry (adding
// defaultPort when port is omitted) and registers it with addrs.
func addStaticPeer(addrs *addrmgr.Manager, hostport, defaultPort string) error {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = hostport, defaultPort
	}
	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return waltterr.Wrap(waltterr.Network, "resolve connect= address "+hostport, err)
	}
	var p int
	if _, err := fmt.Sscanf(port, "%d", &p); err != nil {
		return waltterr.New(waltterr.Malformed, "bad port in connect= address "+hostport)
	}
	addrs.AddStatic(ips[0], uint16(p))
	return nil
}

// pay drives ctx.PaymentURI to completion: a plain BIP 21 send, or,
// when the URI carries a BIP 70 request URL, the full fetch/validate/
// pay/broadcast flow (spec.md Section 6).
func pay(builder *txbuilder.Builder, ctx *walletcfg.Context) error {
	u := ctx.PaymentURI
	if u.PaymentRequestURL == "" {
		_, err := builder.Send(u.Address, u.Amount, ctx.Passphrase)
		return err
	}

	hctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client := &http.Client{Timeout: 30 * time.Second}

	pr, err := bip70.Fetch(hctx, client, u.PaymentRequestURL)
	if err != nil {
		return err
	}
	validated, err := bip70.Validate(pr, time.Now(), nil)
	if err != nil {
		return err
	}
	if len(validated.Details.Outputs) == 0 {
		return waltterr.New(waltterr.Payment, "payment request carries no outputs")
	}

	out := validated.Details.Outputs[0]
	hash160, ok := txscript.ExtractPKHash(out.Script)
	if !ok {
		return waltterr.New(waltterr.Payment, "payment request output is not pay-to-pubkey-hash")
	}
	destAddr, err := addresses.New(hash160, ctx.Params)
	if err != nil {
		return err
	}

	send, err := builder.SendForPayment(destAddr.String(), out.Amount, ctx.Passphrase)
	if err != nil {
		return err
	}

	payment := &bip70.Payment{Transactions: [][]byte{send.Serialized}}
	if _, err := bip70.Pay(hctx, client, validated.Details.PaymentURL, payment); err != nil {
		return err
	}

	builder.Broadcast(send)
	return nil
}

// initLogging wires a rotating-file btclog backend into every
// package's subsystem logger and returns a func to close it cleanly.
func initLogging(dataDir string) (func(), error) {
	logPath := filepath.Join(dataDir, "wallet.log")
	r, err := rotator.New(logPath, 10*1024, false, 3)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "open log rotator", err)
	}

	backend := btclog.NewBackend(r)
	subLogger := func(tag string) btclog.Logger {
		l := backend.Logger(tag)
		l.SetLevel(btclog.LevelInfo)
		return l
	}
	peer.UseLogger(subLogger("pear"))
	invreq.UseLogger(subLogger("invq"))
	chainmgr.UseLogger(subLogger("chnm"))
	addrmgr.UseLogger(subLogger("rctr"))
	reactor.UseLogger(subLogger("rctr"))
	msghandler.UseLogger(subLogger("wallet"))
	leveldbstore.UseLogger(subLogger("stor"))
	txbuilder.UseLogger(subLogger("txbl"))

	return func() { r.Close() }, nil
}
