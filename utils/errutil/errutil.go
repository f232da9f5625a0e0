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

// Package errutil provides helpers for aggregating errors from operations
// that keep going after an individual failure, such as deleting several
// files and wanting to report every failure rather than just the first.
package errutil

import "strings"

// MultiError joins the Error() strings of errs with ", ". A nil/empty errs
// produces an empty string.
type MultiError []error

func (m MultiError) Error() string {
	msgs := make([]string, len(m))
	for i, err := range m {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, ", ")
}

// Join returns nil if errs is empty, errs[0] if it holds exactly one error,
// or a MultiError combining all of them otherwise.
func Join(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return MultiError(errs)
	}
}
