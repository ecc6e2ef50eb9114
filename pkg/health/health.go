// Package health probes the dependencies of a running build or ranking job
// and reports them on the metrics server.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
)

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Check probes one dependency; a nil error means it is usable.
type Check func(ctx context.Context) error

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// Checker runs registered checks concurrently. Optional checks that fail do
// not take the overall status down.
type Checker struct {
	mu       sync.RWMutex
	checks   map[string]Check
	optional map[string]bool
	timeout  time.Duration
	logger   *slog.Logger
}

func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		checks:   make(map[string]Check),
		optional: make(map[string]bool),
		timeout:  timeout,
		logger:   slog.Default().With("component", "health"),
	}
}

func (c *Checker) Register(name string, check Check) {
	c.register(name, check, false)
}

// RegisterOptional adds a check whose failure only degrades a feature, such
// as the rank cache.
func (c *Checker) RegisterOptional(name string, check Check) {
	c.register(name, check, true)
}

func (c *Checker) register(name string, check Check, optional bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
	c.optional[name] = optional
}

func (c *Checker) Run(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)

	results := make([]ComponentHealth, len(names))
	var wg conc.WaitGroup
	for i, name := range names {
		i := i
		c.mu.RLock()
		check := c.checks[name]
		c.mu.RUnlock()
		wg.Go(func() {
			start := time.Now()
			res := ComponentHealth{Status: StatusUp}
			if err := check(ctx); err != nil {
				res.Status = StatusDown
				res.Message = err.Error()
			}
			res.Latency = time.Since(start).Round(time.Millisecond).String()
			results[i] = res
		})
	}
	wg.Wait()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(names)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for i, name := range names {
		report.Components[name] = results[i]
		if results[i].Status == StatusDown {
			c.logger.Warn("health check failed", "check", name, "error", results[i].Message)
			c.mu.RLock()
			optional := c.optional[name]
			c.mu.RUnlock()
			if !optional {
				report.Status = StatusDown
			}
		}
	}
	return report
}

// Handler serves the report as JSON, answering 503 while any required check
// fails.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUp {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
