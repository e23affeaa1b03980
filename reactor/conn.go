// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package reactor

import (
	"net"
	"sync"

	"github.com/coinlantern/spvwallet/wire"
)

// conn is one live connection's I/O state: the socket, the peer it
// belongs to, and the goroutines moving bytes on and off it (spec.md
// Section 4.5 items 3 and 4, recast as reader/writer goroutines
// instead of readiness-selector callbacks).
type conn struct {
	r    *Reactor
	ph   *peerHandle
	nc   net.Conn
	done chan struct{}

	closeOnce sync.Once
}

// close tears the connection down exactly once: closing the socket
// unblocks a reader stuck in ReadMessage, and closing done wakes a
// writer waiting for output.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.nc.Close()
		close(c.done)
	})
}

// runReader drains decoded messages into the reactor's inbound
// channel. A blocked send into that channel is this package's
// back-pressure mechanism: spec.md Section 4.5 item 3 drops the
// read-interest bit for a saturated peer; here the reader goroutine
// itself simply stops pulling bytes off that one socket until the
// handler catches up, which has the same effect without a selector.
func (c *conn) runReader() {
	defer c.r.wg.Done()
	defer c.r.removePeer(c.ph.ID())
	for {
		msg, err := wire.ReadMessage(c.nc, wire.ProtocolVersion, c.r.params.Net)
		if err != nil {
			log.Debugf("read from %s: %v", c.ph.ID(), err)
			return
		}
		c.ph.Touch()
		select {
		case c.r.inbound <- inboundMsg{peer: c.ph, msg: msg}:
		case <-c.done:
			return
		case <-c.r.quit:
			return
		}
	}
}

// runWriter drains the peer's output queue, blocking on wake when
// empty (spec.md Section 4.5 item 4).
func (c *conn) runWriter() {
	defer c.r.wg.Done()
	for {
		if msg := c.ph.PopOutput(); msg != nil {
			if err := wire.WriteMessage(c.nc, msg, wire.ProtocolVersion, c.r.params.Net); err != nil {
				log.Debugf("write to %s: %v", c.ph.ID(), err)
				c.r.removePeer(c.ph.ID())
				return
			}
			continue
		}
		select {
		case <-c.ph.wake:
		case <-c.done:
			return
		case <-c.r.quit:
			return
		}
	}
}
