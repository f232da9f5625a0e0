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

//go:build !linux

package netdiscover

// unsupportedNotifier is the non-Linux backend: every AsyncWait resolves
// immediately with ErrNotSupported, matching enum_net.cpp's simulator
// branch (post a not_supported error instead of ever actually watching).
type unsupportedNotifier struct{}

// NewNotifier returns a Notifier with no real backend on this platform.
func NewNotifier() (Notifier, error) {
	return unsupportedNotifier{}, nil
}

func (unsupportedNotifier) AsyncWait(cb func(error)) {
	go cb(ErrNotSupported)
}

func (unsupportedNotifier) Cancel() {}

func (unsupportedNotifier) Close() error { return nil }
