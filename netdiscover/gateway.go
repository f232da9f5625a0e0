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

package netdiscover

import "net"

func isUnspecified(ip net.IP) bool {
	return ip == nil || ip.IsUnspecified()
}

func isLocal(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

func sameFamily(a, b net.IP) bool {
	return (a.To4() != nil) == (b.To4() != nil)
}

// GetGateway returns the default-route gateway usable from iface, per
// enum_net.cpp's get_gateway: a route with an unspecified destination,
// matching address family, a non-unspecified gateway, a source hint that
// either matches iface's address or is itself unspecified, and the same
// interface name. Local (link-local/loopback) IPv6 addresses never have a
// usable gateway.
func GetGateway(iface Interface, routes []Route) (net.IP, bool) {
	if iface.Address.To4() == nil && isLocal(iface.Address) {
		return nil, false
	}
	for _, r := range routes {
		if !isUnspecified(r.Destination) {
			continue
		}
		if !sameFamily(r.Destination, iface.Address) {
			continue
		}
		if isUnspecified(r.Gateway) {
			continue
		}
		if !isUnspecified(r.SourceHint) && !r.SourceHint.Equal(iface.Address) {
			continue
		}
		if r.Name != iface.Name {
			continue
		}
		return r.Gateway, true
	}
	return nil, false
}

// HasDefaultRoute reports whether device carries a default (unspecified
// destination) route for the given address family among routes, per
// enum_net.cpp's has_default_route. v4 selects the IPv4 family when true
// and IPv6 when false.
func HasDefaultRoute(device string, v4 bool, routes []Route) bool {
	for _, r := range routes {
		if !isUnspecified(r.Destination) {
			continue
		}
		if (r.Destination.To4() != nil) != v4 {
			continue
		}
		if r.Name == device {
			return true
		}
	}
	return false
}
