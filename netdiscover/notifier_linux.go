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
	"sync"

	"golang.org/x/sys/unix"
)

// ifAddrMsgIndexOffset/ifAddrMsgFamilyOffset index into the kernel's
// on-wire ifaddrmsg struct (family, prefixlen, flags, scope, index),
// matching parse_route's netlink branch in enum_net.cpp's sibling
// ip_notifier.cpp.
const (
	ifAddrMsgFamilyOffset = 0
	ifAddrMsgIndexOffset  = 4
	ifAddrMsgSize         = 8
)

// netlinkNotifier is the Linux backend of ip_change_notifier_impl: a route
// socket subscribed to RTMGRP_IPV4_IFADDR|RTMGRP_IPV6_IFADDR, delivering one
// notification per AsyncWait once a RTM_NEWADDR carries an IFA_LOCAL address
// that differs from the last one seen for that interface index.
type netlinkNotifier struct {
	fd int

	mu      sync.Mutex
	state   *addrState
	waiting bool
	gen     uint64 // bumped on Cancel/Close to invalidate in-flight reads
}

// NewNotifier opens a netlink route socket for address-change notification.
func NewNotifier() (Notifier, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW, unix.NETLINK_ROUTE)
	if err != nil {
		return nil, fmt.Errorf("netdiscover: open netlink socket: %w", err)
	}
	addr := &unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: unix.RTMGRP_IPV4_IFADDR | unix.RTMGRP_IPV6_IFADDR,
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netdiscover: bind netlink socket: %w", err)
	}
	return &netlinkNotifier{fd: fd, state: newAddrState()}, nil
}

func (n *netlinkNotifier) AsyncWait(cb func(error)) {
	n.mu.Lock()
	if n.waiting {
		n.gen++ // replace the outstanding wait; its callback gets ErrNotifierCanceled
	}
	n.waiting = true
	gen := n.gen
	n.mu.Unlock()

	go n.readLoop(gen, cb)
}

// pollIntervalMillis bounds how long Cancel can take to land: readLoop polls
// the socket instead of blocking directly on it so a canceled generation is
// never read from past this interval.
const pollIntervalMillis = 200

func (n *netlinkNotifier) readLoop(gen uint64, cb func(error)) {
	buf := make([]byte, 4096)
	fds := []unix.PollFd{{Fd: int32(n.fd), Events: unix.POLLIN}}
	for {
		n.mu.Lock()
		canceled := gen != n.gen
		n.mu.Unlock()
		if canceled {
			cb(ErrNotifierCanceled)
			return
		}

		fds[0].Revents = 0
		nready, err := unix.Poll(fds, pollIntervalMillis)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			cb(fmt.Errorf("netdiscover: poll netlink socket: %w", err))
			return
		}
		if nready == 0 {
			continue // timed out; re-check cancellation above
		}

		nr, _, err := unix.Recvfrom(n.fd, buf, 0)
		if err != nil {
			cb(fmt.Errorf("netdiscover: netlink read: %w", err))
			return
		}

		msgs, err := unix.ParseNetlinkMessage(buf[:nr])
		if err != nil {
			cb(fmt.Errorf("netdiscover: parse netlink message: %w", err))
			return
		}

		if n.pertinent(msgs) {
			n.mu.Lock()
			n.waiting = false
			n.mu.Unlock()
			cb(nil)
			return
		}
		// No pertinent change in this batch: keep reading, matching
		// on_notify's re-arm-on-no-op-update behavior.
	}
}

// pertinent reports whether msgs carries a RTM_NEWADDR whose IFA_LOCAL
// address differs from the last one recorded for its interface index.
func (n *netlinkNotifier) pertinent(msgs []unix.NetlinkMessage) bool {
	found := false
	for _, m := range msgs {
		if m.Header.Type != unix.RTM_NEWADDR {
			continue
		}
		if len(m.Data) < ifAddrMsgSize {
			continue
		}
		family := m.Data[ifAddrMsgFamilyOffset]
		ifIndex := binary.LittleEndian.Uint32(m.Data[ifAddrMsgIndexOffset:])

		attrs, err := unix.ParseNetlinkRouteAttr(&m)
		if err != nil {
			continue
		}
		for _, a := range attrs {
			if a.Attr.Type != unix.IFA_LOCAL {
				continue
			}
			key := fmt.Sprintf("%d:%x", family, a.Value)
			if n.state.update(ifIndex, key) {
				found = true
			}
		}
	}
	return found
}

func (n *netlinkNotifier) Cancel() {
	n.mu.Lock()
	if n.waiting {
		n.gen++
		n.waiting = false
	}
	n.mu.Unlock()
}

func (n *netlinkNotifier) Close() error {
	n.Cancel()
	return unix.Close(n.fd)
}
