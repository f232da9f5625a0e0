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

import "errors"

// ErrNotifierCanceled is delivered to an AsyncWait callback whose wait was
// aborted by Cancel.
var ErrNotifierCanceled = errors.New("netdiscover: wait canceled")

// Notifier delivers a single-shot notification when the host's local IP
// address set changes, mirroring enum_net.cpp's ip_change_notifier: arm one
// wait at a time with AsyncWait, cancel it early with Cancel, release
// resources with Close.
type Notifier interface {
	// AsyncWait arms the next notification: cb runs exactly once, from a
	// background goroutine, when the local address set changes or when
	// Cancel is called (cb then receives ErrNotifierCanceled). A second
	// AsyncWait call while one is outstanding replaces it.
	AsyncWait(cb func(error))

	// Cancel aborts any outstanding AsyncWait.
	Cancel()

	// Close releases the notifier's underlying resources. Cancel is implied.
	Close() error
}

// addrState dedupes RTM_NEWADDR-equivalent updates per interface index, as
// ip_change_notifier_impl::m_state does: a change is only pertinent if the
// advertised local address differs from the last one seen for that index.
type addrState struct {
	seen map[uint32]string
}

func newAddrState() *addrState {
	return &addrState{seen: make(map[uint32]string)}
}

// update records addr for ifIndex and reports whether it differs from the
// last value recorded for that index.
func (s *addrState) update(ifIndex uint32, addr string) bool {
	if s.seen[ifIndex] == addr {
		return false
	}
	s.seen[ifIndex] = addr
	return true
}
