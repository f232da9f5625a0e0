// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package netdiscover enumerates local network interfaces and routes, ported
// from libtorrent's enum_net: which addresses this host can be reached on,
// and which of them have a usable default-route gateway.
package netdiscover

import (
	"errors"
	"net"
)

// ErrNotSupported is returned on platforms with no route-enumeration
// backend wired (anything but Linux, for now).
var ErrNotSupported = errors.New("netdiscover: not supported on this platform")

// Interface describes one local network interface address.
type Interface struct {
	Name      string
	Address   net.IP
	Netmask   net.IPMask
	Preferred bool
}

// Route describes one routing table entry.
type Route struct {
	Destination net.IP
	Netmask     net.IPMask
	Gateway     net.IP
	SourceHint  net.IP
	Name        string
	MTU         int
}

// BuildNetmask constructs the netmask for a prefixBits-bit prefix over an
// address family matched by exampleIP (v4 vs v6), mirroring enum_net.cpp's
// build_netmask.
func BuildNetmask(prefixBits int, exampleIP net.IP) net.IPMask {
	if v4 := exampleIP.To4(); v4 != nil {
		return net.CIDRMask(prefixBits, 32)
	}
	return net.CIDRMask(prefixBits, 128)
}

// MatchAddrMask reports whether a1 and a2 are equal under mask, per
// enum_net.cpp's match_addr_mask. Addresses of differing families never
// match.
func MatchAddrMask(a1, a2 net.IP, mask net.IPMask) bool {
	v4a, v4b := a1.To4(), a2.To4()
	if (v4a == nil) != (v4b == nil) {
		return false
	}
	if v4a != nil {
		return v4a.Mask(mask).Equal(v4b.Mask(mask))
	}
	v6a, v6b := a1.To16(), a2.To16()
	if v6a == nil || v6b == nil {
		return false
	}
	return v6a.Mask(mask).Equal(v6b.Mask(mask))
}
