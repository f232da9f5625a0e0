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
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEnumerateRoutesOnLinux(t *testing.T) {
	routes, err := EnumerateRoutes()
	require.NoError(t, err)

	for _, r := range routes {
		require.NotNil(t, r.Destination)
		require.NotNil(t, r.Gateway)
	}
}

func TestZeroIPFamilies(t *testing.T) {
	require.True(t, zeroIP(unix.AF_INET).Equal(net.IPv4zero))
	require.True(t, zeroIP(unix.AF_INET6).Equal(net.IPv6zero))
}
