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

// EnumerateRoutes has no backend on this platform (only Linux's netlink
// path is wired), matching enum_net.cpp's "don't know how to enumerate
// network routes on this platform" #error branch, made a runtime error
// instead since Go can't conditionally fail the build per target.
func EnumerateRoutes() ([]Route, error) {
	return nil, ErrNotSupported
}
