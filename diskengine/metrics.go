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

package diskengine

import (
	"github.com/uber-go/tally"
)

type metrics struct {
	jobsCompleted tally.Counter
	jobsFailed    tally.Counter
	jobsCanceled  tally.Counter
	queueDepth    tally.Gauge
}

func newMetrics(s tally.Scope) *metrics {
	if s == nil {
		s = tally.NoopScope
	}
	return &metrics{
		jobsCompleted: s.Counter("jobs_completed"),
		jobsFailed:    s.Counter("jobs_failed"),
		jobsCanceled:  s.Counter("jobs_canceled"),
		queueDepth:    s.Gauge("queue_depth"),
	}
}

func (m *metrics) recordResult(res *Result) {
	switch {
	case res.Canceled:
		m.jobsCanceled.Inc(1)
	case res.Err != nil:
		m.jobsFailed.Inc(1)
	default:
		m.jobsCompleted.Inc(1)
	}
}
