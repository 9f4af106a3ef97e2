// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Spacegraph Contributors

// Package health checks the stores a process depends on.
package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Check tests one dependency. A nil error means it is reachable.
type Check func(ctx context.Context) error

// Component is the point-in-time state of one dependency, safe to
// serialize to JSON.
type Component struct {
	Name      string    `json:"name"`
	Available bool      `json:"available"`
	Error     string    `json:"error,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
}

// Report aggregates component states. Status is StatusDegraded when any
// component is unavailable.
type Report struct {
	Status     string      `json:"status"`
	Components []Component `json:"components"`
}

// Run executes checks concurrently, each bounded by timeout, and returns
// the components sorted by name.
func Run(ctx context.Context, timeout time.Duration, checks map[string]Check) Report {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make([]Component, 0, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := runCheck(ctx, timeout, name, check)
			mu.Lock()
			out = append(out, c)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	report := Report{Status: StatusOK, Components: out}
	for _, c := range out {
		if !c.Available {
			report.Status = StatusDegraded
		}
	}
	return report
}

func runCheck(ctx context.Context, timeout time.Duration, name string, check Check) Component {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := check(ctx)
	c := Component{
		Name:      name,
		Available: err == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		CheckedAt: start.UTC(),
	}
	if err != nil {
		c.Error = err.Error()
	}
	return c
}
