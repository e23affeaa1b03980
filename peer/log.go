// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import "github.com/btcsuite/btclog"

// log is this package's subsystem logger, "pear" in the wallet's
// logging configuration. It is disabled until UseLogger is called by
// the wallet's startup wiring.
var log btclog.Logger

// UseLogger sets the logger used by package peer. Called once at
// wallet startup after the log backend is constructed.
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
