// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
)

// PingChecker wraps a ping function of a backing store. A failing critical
// store is unhealthy; a failing advisory store (the result cache) is only
// degraded.
type PingChecker struct {
	name     string
	ping     func(ctx context.Context) error
	critical bool
}

// NewPingChecker creates a checker around ping.
func NewPingChecker(name string, critical bool, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping, critical: critical}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.ping(ctx); err != nil {
		status := StatusDegraded
		if c.critical {
			status = StatusUnhealthy
		}
		return CheckResult{Status: status, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}

// BreakerChecker reports the provider chain as degraded while some breakers
// are open and unhealthy when every provider is short-circuited.
type BreakerChecker struct {
	states func() []string
}

// NewBreakerChecker creates a checker over the current breaker states.
func NewBreakerChecker(states func() []string) *BreakerChecker {
	return &BreakerChecker{states: states}
}

func (c *BreakerChecker) Name() string { return "providers" }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	states := c.states()
	open := 0
	for _, s := range states {
		if s == "open" {
			open++
		}
	}
	msg := fmt.Sprintf("%d of %d providers short-circuited", open, len(states))
	switch {
	case len(states) == 0:
		return CheckResult{Status: StatusUnhealthy, Message: "no providers configured"}
	case open == len(states):
		return CheckResult{Status: StatusUnhealthy, Message: msg}
	case open > 0:
		return CheckResult{Status: StatusDegraded, Message: msg}
	}
	return CheckResult{Status: StatusHealthy, Message: msg}
}
