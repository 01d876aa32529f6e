// Copyright (c) 2018 DDN. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hsi

import (
	"fmt"
	"time"

	"github.com/rcrowley/go-metrics"
)

// SessionStats collects per-client command statistics. The underlying
// metrics are shared through the default registry so external reporters
// can pick them up.
type SessionStats struct {
	commands  metrics.Counter
	failures  metrics.Counter
	restarts  metrics.Counter
	completed metrics.Timer
}

func newSessionStats() *SessionStats {
	return &SessionStats{
		commands:  metrics.GetOrRegisterCounter("hsi.commands", nil),
		failures:  metrics.GetOrRegisterCounter("hsi.failures", nil),
		restarts:  metrics.GetOrRegisterCounter("hsi.restarts", nil),
		completed: metrics.GetOrRegisterTimer("hsi.completed", nil),
	}
}

// Completed records one finished command.
func (s *SessionStats) Completed(start time.Time, err error) {
	s.commands.Inc(1)
	if err != nil {
		s.failures.Inc(1)
	}
	s.completed.UpdateSince(start)
}

// Restarted records a replacement of a dead hsi process.
func (s *SessionStats) Restarted() {
	s.restarts.Inc(1)
}

func (s *SessionStats) String() string {
	return fmt.Sprintf("commands:%d failures:%d restarts:%d mean:%s",
		s.commands.Count(), s.failures.Count(), s.restarts.Count(),
		time.Duration(s.completed.Mean()))
}
