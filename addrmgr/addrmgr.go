// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr tracks known peer addresses: DNS-seed bootstrap,
// insertion from addr messages, outbound-candidate selection, and
// silence-based eviction (spec.md Section 3 PeerAddress, Section 4.5).
package addrmgr

import (
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/coinlantern/spvwallet/chaincfg"
	"github.com/coinlantern/spvwallet/wire"
)

// EvictAfter is the silence window after which a non-static address
// is dropped during housekeeping (spec.md Section 4.5 item 6c).
const EvictAfter = 30 * time.Minute

// Addr is a known peer address plus the bookkeeping spec.md Section 3
// PeerAddress lists. Equality/hash is (IP, Port) only.
type Addr struct {
	IP          net.IP
	Port        uint16
	LastSeen    time.Time
	Services    wire.ServiceFlag
	IsStatic    bool
	IsConnected bool
}

func key(ip net.IP, port uint16) string {
	return ip.String() + ":" + portString(port)
}

func portString(port uint16) string {
	const digits = "0123456789"
	if port == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for port > 0 {
		i--
		buf[i] = digits[port%10]
		port /= 10
	}
	return string(buf[i:])
}

// Manager is the wallet's address book. Its internal map is one of
// the pieces of shared mutable state spec.md Section 5 requires to be
// guarded by one short-term global lock; Manager's mu plays that role
// for address-table operations.
type Manager struct {
	mu    sync.Mutex
	addrs map[string]*Addr
}

// New returns an empty address manager.
func New() *Manager {
	return &Manager{addrs: make(map[string]*Addr)}
}

// AddStatic registers a configured `connect=host:port` address that
// eviction must never remove.
func (m *Manager) AddStatic(ip net.IP, port uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addrs[key(ip, port)] = &Addr{IP: ip, Port: port, LastSeen: time.Now(), IsStatic: true}
}

// AddFromWire inserts or refreshes addresses received in an addr
// message, stamping LastSeen (spec.md Section 4.7 addr handling).
func (m *Manager) AddFromWire(list []*wire.NetAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, na := range list {
		k := key(na.IP, na.Port)
		existing, ok := m.addrs[k]
		if ok {
			existing.LastSeen = na.Timestamp
			existing.Services = na.Services
			continue
		}
		m.addrs[k] = &Addr{
			IP:       na.IP,
			Port:     na.Port,
			LastSeen: na.Timestamp,
			Services: na.Services,
		}
	}
}

// SeedFromDNS resolves the active network's DNS seeds and inserts the
// resulting IPv4/IPv6 addresses at the network's default port.
func (m *Manager) SeedFromDNS(params *chaincfg.Params) {
	port, err := strconv.ParseUint(params.DefaultPort, 10, 16)
	if err != nil {
		return
	}

	var found []net.IP
	for _, seed := range params.DNSSeeds {
		ips, err := net.LookupIP(seed)
		if err != nil {
			continue
		}
		found = append(found, ips...)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ip := range found {
		k := key(ip, uint16(port))
		if _, ok := m.addrs[k]; ok {
			continue
		}
		m.addrs[k] = &Addr{IP: ip, Port: uint16(port), LastSeen: time.Now()}
	}
}

// SetConnected marks the address matching (ip, port) as connected or
// not, used by outbound-selection to avoid dialing an already
// connected peer twice.
func (m *Manager) SetConnected(ip net.IP, port uint16, connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.addrs[key(ip, port)]; ok {
		a.IsConnected = connected
	}
}

// PickOutbound selects a candidate for a new outbound connection:
// uniformly random starting index into the address table, scanning
// forward (wrapping) for the first IPv4 address that is not already
// connected and, in staticOnly mode, carries the static flag (spec.md
// Section 4.5 "Outbound peer selection").
func (m *Manager) PickOutbound(staticOnly bool) (*Addr, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.addrs) == 0 {
		return nil, false
	}

	all := make([]*Addr, 0, len(m.addrs))
	for _, a := range m.addrs {
		all = append(all, a)
	}

	start := rand.Intn(len(all))
	for i := 0; i < len(all); i++ {
		a := all[(start+i)%len(all)]
		if a.IP.To4() == nil {
			continue
		}
		if a.IsConnected {
			continue
		}
		if staticOnly && !a.IsStatic {
			continue
		}
		return a, true
	}
	return nil, false
}

// Evict removes every non-static address not seen within EvictAfter,
// taking the manager's lock for the entire scan-and-remove pass so
// concurrent AddFromWire insertion cannot race with it (spec.md
// Section 9 open question).
func (m *Manager) Evict(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, a := range m.addrs {
		if a.IsStatic {
			continue
		}
		if now.Sub(a.LastSeen) > EvictAfter {
			log.Debugf("evicting stale address %s, last seen %s", k, a.LastSeen)
			delete(m.addrs, k)
		}
	}
}

// Count returns the number of known addresses.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.addrs)
}

// List returns a snapshot of all known addresses, for `getaddr`
// responses or diagnostics.
func (m *Manager) List() []*Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Addr, 0, len(m.addrs))
	for _, a := range m.addrs {
		out = append(out, a)
	}
	return out
}
