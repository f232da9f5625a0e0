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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddrStateDedupesSameAddress(t *testing.T) {
	s := newAddrState()
	require.True(t, s.update(1, "192.168.1.5"))
	require.False(t, s.update(1, "192.168.1.5"))
	require.True(t, s.update(1, "192.168.1.6"))
}

func TestAddrStateTracksPerInterface(t *testing.T) {
	s := newAddrState()
	require.True(t, s.update(1, "192.168.1.5"))
	require.True(t, s.update(2, "192.168.1.5"))
}
