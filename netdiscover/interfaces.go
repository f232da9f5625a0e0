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

// EnumerateInterfaces lists every up interface's addresses, the Go
// stdlib equivalent of enum_net.cpp's enum_net_interfaces (which branches
// over ifaddrs/ifconf/netlink/GetAdaptersAddresses per platform; net.Interfaces
// already abstracts that same branch inside the runtime).
func EnumerateInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			out = append(out, Interface{
				Name:      iface.Name,
				Address:   ipnet.IP,
				Netmask:   ipnet.Mask,
				Preferred: true,
			})
		}
	}
	return out, nil
}

// DeviceForAddress returns the name of the interface whose address equals
// addr, or "" if none matches, per enum_net.cpp's device_for_address.
func DeviceForAddress(addr net.IP) (string, error) {
	ifaces, err := EnumerateInterfaces()
	if err != nil {
		return "", err
	}
	for _, iface := range ifaces {
		if iface.Address.Equal(addr) {
			return iface.Name, nil
		}
	}
	return "", nil
}
