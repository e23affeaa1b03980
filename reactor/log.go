// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reactor

import "github.com/btcsuite/btclog"

// log is this package's subsystem logger, "rctr" in the wallet's
// logging configuration.
var log btclog.Logger

// UseLogger sets the logger used by package reactor.
func UseLogger(logger btclog.Logger) {
	log = logger
}

func init() {
	DisableLog()
}

// DisableLog disables all logging for this package until UseLogger is called.
func DisableLog() {
	log = btclog.Disabled
}
