// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reactor

import "github.com/coinlantern/spvwallet/wire"

// Broadcast queues an inv announcing hash to every established peer
// (spec.md Section 4.9: "broadcast as inv of the new transaction hash
// to all established peers" on a successful send).
func (r *Reactor) Broadcast(inv wire.InvVect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.peers {
		if !c.ph.Established() {
			continue
		}
		c.ph.Queue(&wire.MsgInv{InvList: []*wire.InvVect{&inv}})
	}
}
