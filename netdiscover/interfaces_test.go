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

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnumerateInterfacesReturnsLoopback(t *testing.T) {
	ifaces, err := EnumerateInterfaces()
	require.NoError(t, err)

	var sawLoopback bool
	for _, iface := range ifaces {
		require.NotEmpty(t, iface.Name)
		require.NotNil(t, iface.Address)
		if iface.Address.IsLoopback() {
			sawLoopback = true
		}
	}
	require.True(t, sawLoopback, "expected at least one loopback address among up interfaces")
}

func TestDeviceForAddressFindsLoopback(t *testing.T) {
	ifaces, err := EnumerateInterfaces()
	require.NoError(t, err)

	var loopback Interface
	for _, iface := range ifaces {
		if iface.Address.IsLoopback() {
			loopback = iface
			break
		}
	}
	require.NotEmpty(t, loopback.Name)

	name, err := DeviceForAddress(loopback.Address)
	require.NoError(t, err)
	require.Equal(t, loopback.Name, name)
}

func TestDeviceForAddressUnknownReturnsEmpty(t *testing.T) {
	name, err := DeviceForAddress(net.ParseIP("203.0.113.77"))
	require.NoError(t, err)
	require.Empty(t, name)
}
