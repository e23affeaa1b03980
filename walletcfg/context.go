// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package walletcfg builds the Context value startup hands to every
// other component: the network parameters selected from the command
// line plus the operator overrides read from BitcoinWallet.conf
// (spec.md Section 9 replaces the source's process-wide Parameters
// global with exactly this kind of explicit, passed-by-reference
// value).
package walletcfg

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"

	"github.com/coinlantern/spvwallet/bip21"
	"github.com/coinlantern/spvwallet/chaincfg"
	"github.com/coinlantern/spvwallet/waltterr"
)

const (
	appName      = "spvwallet"
	confFileName = "BitcoinWallet.conf"
)

// Context is owned by the startup code and passed by reference into
// the reactor, message handler, builder, and store (spec.md Section
// 9). Network is a single immutable value selected once at startup.
type Context struct {
	Params     *chaincfg.Params
	DataDir    string
	Connect    []string
	Passphrase string
	Proxy      string
	PaymentURI *bip21.URI
}

// confOptions is the shape BitcoinWallet.conf's key=value lines are
// parsed into. Connect is repeatable; an unrecognised key in the file
// is a startup failure (spec.md Section 6).
type confOptions struct {
	Connect    []string `long:"connect" description:"restrict outbound connections to host:port, disabling DNS discovery"`
	Passphrase string   `long:"passphrase" description:"wallet passphrase (development use only)"`
	Proxy      string   `long:"proxy" description:"SOCKS5 proxy host:port routing every outbound connection"`
}

// Load builds a Context from argv (spec.md Section 6: "<prog>
// [PROD|TEST] [bitcoin:URI]") and dataDir's configuration file. An
// empty dataDir resolves to the platform's default application data
// directory for appName.
func Load(argv []string, dataDir string) (*Context, error) {
	network := "PROD"
	rest := argv
	if len(rest) > 0 {
		network = rest[0]
		rest = rest[1:]
	}
	var uriArg string
	if len(rest) > 0 {
		uriArg = rest[0]
	}

	params, ok := chaincfg.ByName(network)
	if !ok {
		return nil, waltterr.New(waltterr.Malformed, "unknown network selector "+network)
	}

	if dataDir == "" {
		dataDir = btcutil.AppDataDir(appName, false)
	}

	opts, err := loadConfFile(filepath.Join(dataDir, confFileName))
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		Params:     params,
		DataDir:    dataDir,
		Connect:    opts.Connect,
		Passphrase: opts.Passphrase,
		Proxy:      opts.Proxy,
	}

	if uriArg != "" {
		if !strings.HasPrefix(uriArg, "bitcoin:") {
			return nil, waltterr.New(waltterr.URI, "second argument must be a bitcoin: URI")
		}
		u, err := bip21.Parse(uriArg)
		if err != nil {
			return nil, err
		}
		ctx.PaymentURI = u
	}

	return ctx, nil
}

// loadConfFile parses path's recognised key=value lines into
// confOptions. A missing file is not an error — the wallet runs with
// defaults — but any key the struct above doesn't declare fails
// startup (spec.md Section 6: "Unknown key => startup failure").
func loadConfFile(path string) (*confOptions, error) {
	opts := &confOptions{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return opts, nil
	}

	parser := flags.NewParser(opts, flags.Options(0))
	ini := flags.NewIniParser(parser)
	if err := ini.ParseFile(path); err != nil {
		return nil, waltterr.Wrap(waltterr.Malformed, "parse "+confFileName, err)
	}
	return opts, nil
}
