// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package singleinstance holds the advisory file lock that keeps two
// copies of the wallet from opening the same data directory at once
// (spec.md Section 5: "best-effort advisory file lock held for process
// lifetime").
package singleinstance

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/coinlantern/spvwallet/waltterr"
)

// Lock is a held advisory lock on a file for the process's lifetime.
type Lock struct {
	file *os.File
}

// Acquire opens (creating if necessary) path and takes a non-blocking
// exclusive advisory lock on it. A second Acquire of the same path,
// from this process or another, fails while the first is held.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, waltterr.Wrap(waltterr.Store, "open single-instance lock file", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, waltterr.Wrap(waltterr.Store, "wallet data directory is already in use", err)
	}
	return &Lock{file: f}, nil
}

// Release drops the lock and closes the underlying file.
func (l *Lock) Release() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return waltterr.Wrap(waltterr.Store, "release single-instance lock", err)
	}
	return l.file.Close()
}
