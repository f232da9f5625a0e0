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

//go:build linux

package netdiscover

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// rtMsgFamilyOffset/rtMsgDstLenOffset index into the kernel's on-wire rtmsg
// struct (all-uint8 fields up to rtm_flags), matching parse_route's netlink
// branch in enum_net.cpp.
const (
	rtMsgFamilyOffset = 0
	rtMsgDstLenOffset = 1
	rtMsgSize         = 12
)

// EnumerateRoutes dumps the kernel routing table via an RTM_GETROUTE
// netlink request, the Linux backend of enum_net.cpp's enum_routes
// (TORRENT_USE_NETLINK branch).
func EnumerateRoutes() ([]Route, error) {
	data, err := unix.NetlinkRIB(unix.RTM_GETROUTE, unix.AF_UNSPEC)
	if err != nil {
		return nil, fmt.Errorf("netdiscover: netlink route dump: %w", err)
	}
	msgs, err := unix.ParseNetlinkMessage(data)
	if err != nil {
		return nil, fmt.Errorf("netdiscover: parse netlink message: %w", err)
	}

	var routes []Route
	for _, m := range msgs {
		if m.Header.Type != unix.RTM_NEWROUTE {
			continue
		}
		if r, ok := parseRouteMessage(m); ok {
			routes = append(routes, r)
		}
	}
	return routes, nil
}

// parseRouteMessage extracts the RTA_DST/RTA_GATEWAY/RTA_OIF/RTA_PREFSRC
// attributes of a route message, mirroring parse_route's netlink branch.
func parseRouteMessage(m unix.NetlinkMessage) (Route, bool) {
	if len(m.Data) < rtMsgSize {
		return Route{}, false
	}
	family := m.Data[rtMsgFamilyOffset]
	dstLen := m.Data[rtMsgDstLenOffset]
	if family != unix.AF_INET && family != unix.AF_INET6 {
		return Route{}, false
	}

	attrs, err := unix.ParseNetlinkRouteAttr(&m)
	if err != nil {
		return Route{}, false
	}

	r := Route{}
	var ifIndex int
	for _, a := range attrs {
		switch a.Attr.Type {
		case unix.RTA_DST:
			r.Destination = bytesToIP(a.Value, family)
		case unix.RTA_GATEWAY:
			r.Gateway = bytesToIP(a.Value, family)
		case unix.RTA_PREFSRC:
			r.SourceHint = bytesToIP(a.Value, family)
		case unix.RTA_OIF:
			if len(a.Value) >= 4 {
				ifIndex = int(binary.LittleEndian.Uint32(a.Value))
			}
		}
	}
	if r.Destination == nil {
		r.Destination = zeroIP(family)
	}
	if r.Gateway == nil {
		r.Gateway = zeroIP(family)
	}
	r.Netmask = BuildNetmask(int(dstLen), r.Destination)
	if ifIndex > 0 {
		if iface, err := net.InterfaceByIndex(ifIndex); err == nil {
			r.Name = iface.Name
		}
	}
	return r, true
}

func zeroIP(family byte) net.IP {
	if family == unix.AF_INET6 {
		return net.IPv6zero
	}
	return net.IPv4zero
}

func bytesToIP(b []byte, family byte) net.IP {
	if family == unix.AF_INET6 {
		ip := make(net.IP, net.IPv6len)
		copy(ip, b)
		return ip
	}
	ip := make(net.IP, net.IPv4len)
	copy(ip, b)
	return ip
}
