// Copyright 2025 AgentDesk
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

// Package ratelimit implements the sliding-window rate limiter guarding
// model API calls. Three timestamp queues (minute, hour, day) are
// trimmed continuously rather than reset on fixed boundaries, plus a
// minimum inter-request interval gate and an optional content
// compliance check before approval.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"agentdesk/platform/orchestrator/compliance"
	"agentdesk/platform/shared/logger"
)

const (
	// maxTotalWait caps how long WaitIfNeeded blocks overall.
	maxTotalWait = 5 * time.Minute

	// maxIterationWait caps a single sleep inside the wait loop.
	maxIterationWait = 30 * time.Second
)

// Config holds the limiter thresholds. All windows are independent.
type Config struct {
	RequestsPerMinute  int
	RequestsPerHour    int
	RequestsPerDay     int
	MinRequestInterval time.Duration

	// EnableComplianceCheck runs the content validator as the last
	// gate of CanMakeRequest.
	EnableComplianceCheck bool

	// DisableWindowChecks turns off the interval and window gates,
	// leaving only the compliance screen. Set when rate limiting is
	// switched off by configuration; usage is still recorded.
	DisableWindowChecks bool
}

// DefaultConfig returns the conservative production thresholds.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute:     10,
		RequestsPerHour:       100,
		RequestsPerDay:        1000,
		MinRequestInterval:    6 * time.Second,
		EnableComplianceCheck: true,
	}
}

// Metrics tracks cumulative API usage for compliance monitoring.
type Metrics struct {
	RequestsPerMinute  int        `json:"requests_per_minute"`
	RequestsPerHour    int        `json:"requests_per_hour"`
	RequestsPerDay     int        `json:"requests_per_day"`
	TotalRequests      int        `json:"total_requests"`
	FailedRequests     int        `json:"failed_requests"`
	QuotaExceededCount int        `json:"quota_exceeded_count"`
	LastRequestTime    *time.Time `json:"last_request_time,omitempty"`
	DailyResetTime     time.Time  `json:"daily_reset_time"`
}

// UsageStats is the snapshot returned by UsageStats: current window
// occupancy, configured limits, cumulative totals, and recent
// compliance violations.
type UsageStats struct {
	CurrentUsage WindowUsage     `json:"current_usage"`
	Limits       ConfiguredLimit `json:"limits"`
	Totals       Metrics         `json:"totals"`
	Compliance   ComplianceStats `json:"compliance"`
}

// WindowUsage is the live occupancy of the three sliding windows.
type WindowUsage struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	RequestsPerHour   int `json:"requests_per_hour"`
	RequestsPerDay    int `json:"requests_per_day"`
}

// ConfiguredLimit echoes the configured thresholds.
type ConfiguredLimit struct {
	RequestsPerMinute  int     `json:"requests_per_minute"`
	RequestsPerHour    int     `json:"requests_per_hour"`
	RequestsPerDay     int     `json:"requests_per_day"`
	MinIntervalSeconds float64 `json:"min_interval_seconds"`
}

// ComplianceStats summarizes validator outcomes observed by the limiter.
type ComplianceStats struct {
	ViolationsDetected int      `json:"violations_detected"`
	RequestsBlocked    int      `json:"requests_blocked"`
	RecentViolations   []string `json:"recent_violations"`
}

// decision is the typed outcome of a limit check. Retryable rejections
// may be waited out; non-retryable ones (compliance) are final.
type decision struct {
	Allowed   bool
	Reason    string
	Retryable bool
	// Wait is the suggested sleep before the next attempt; zero means
	// the caller should use its default backoff.
	Wait time.Duration
}

// Limiter is a sliding-window rate limiter for model API calls.
// A single mutex guards the three window queues and the metrics
// struct; concurrent callers are serialized, not parallel.
type Limiter struct {
	cfg       Config
	validator *compliance.Validator
	log       *logger.Logger

	mu             sync.Mutex
	minuteRequests []time.Time
	hourRequests   []time.Time
	dayRequests    []time.Time
	lastRequest    time.Time
	metrics        Metrics

	violations      []string
	blockedRequests int

	// shared, when set, coordinates the minute window across replicas.
	shared SharedChecker

	// now and sleep are replaceable in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a limiter. A zero Config falls back to DefaultConfig.
// The validator may be nil when compliance checking is disabled.
func New(cfg Config, validator *compliance.Validator, log *logger.Logger) *Limiter {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.New("ratelimit")
	}

	l := &Limiter{
		cfg:       cfg,
		validator: validator,
		log:       log,
		now:       time.Now,
		sleep:     sleepContext,
	}

	midnight := time.Now().Truncate(24 * time.Hour)
	l.metrics.DailyResetTime = midnight.AddDate(0, 0, 1)

	log.Info("", "", "Rate limiter initialized", map[string]interface{}{
		"requests_per_minute": cfg.RequestsPerMinute,
		"requests_per_hour":   cfg.RequestsPerHour,
		"requests_per_day":    cfg.RequestsPerDay,
		"min_interval":        cfg.MinRequestInterval.String(),
	})
	return l
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CanMakeRequest checks whether a request may proceed. The checks run
// in a fixed order: minimum interval, window eviction, per-minute,
// per-hour, per-day, then content compliance. The returned reason is
// human-readable; an approval reads "Request approved".
func (l *Limiter) CanMakeRequest(content string) (bool, string) {
	d := l.check(content)
	return d.Allowed, d.Reason
}

func (l *Limiter) check(content string) decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if !l.cfg.DisableWindowChecks {
		// Minimum interval between requests
		if !l.lastRequest.IsZero() {
			if elapsed := now.Sub(l.lastRequest); elapsed < l.cfg.MinRequestInterval {
				remaining := l.cfg.MinRequestInterval - elapsed
				return decision{
					Reason:    fmt.Sprintf("Rate limit: Wait %.1fs before next request", remaining.Seconds()),
					Retryable: true,
					Wait:      remaining,
				}
			}
		}

		l.evictStale(now)

		if len(l.minuteRequests) >= l.cfg.RequestsPerMinute {
			return decision{
				Reason:    fmt.Sprintf("Rate limit: Exceeded %d requests per minute", l.cfg.RequestsPerMinute),
				Retryable: true,
			}
		}

		if len(l.hourRequests) >= l.cfg.RequestsPerHour {
			return decision{
				Reason:    fmt.Sprintf("Rate limit: Exceeded %d requests per hour", l.cfg.RequestsPerHour),
				Retryable: true,
			}
		}

		if len(l.dayRequests) >= l.cfg.RequestsPerDay {
			return decision{
				Reason:    fmt.Sprintf("Rate limit: Exceeded %d requests per day", l.cfg.RequestsPerDay),
				Retryable: true,
			}
		}
	} else {
		l.evictStale(now)
	}

	if l.cfg.EnableComplianceCheck && content != "" && l.validator != nil {
		if compliant, violations := l.validator.ValidateContent(content); !compliant {
			l.violations = append(l.violations, violations...)
			l.blockedRequests++
			l.log.Warn("", "", "Request blocked for compliance violations", map[string]interface{}{
				"violations": violations,
			})
			return decision{
				Reason:    "Content compliance violation: " + joinViolations(violations),
				Retryable: false,
			}
		}
	}

	return decision{Allowed: true, Reason: "Request approved"}
}

// RecordRequest appends the current time to all three windows and
// updates the cumulative counters. Call it once per attempted model
// call, after the fact.
func (l *Limiter) RecordRequest(success, quotaExceeded bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.lastRequest = now
	t := now
	l.metrics.LastRequestTime = &t

	l.minuteRequests = append(l.minuteRequests, now)
	l.hourRequests = append(l.hourRequests, now)
	l.dayRequests = append(l.dayRequests, now)

	l.metrics.TotalRequests++
	if !success {
		l.metrics.FailedRequests++
	}
	if quotaExceeded {
		l.metrics.QuotaExceededCount++
	}

	l.evictStale(now)
	l.refreshWindowCounts()

	l.log.Debug("", "", "Request recorded", map[string]interface{}{
		"per_minute": l.metrics.RequestsPerMinute,
		"per_hour":   l.metrics.RequestsPerHour,
		"per_day":    l.metrics.RequestsPerDay,
	})
}

// evictStale drops queue entries older than their window. Caller must
// hold l.mu.
func (l *Limiter) evictStale(now time.Time) {
	l.minuteRequests = trimBefore(l.minuteRequests, now.Add(-time.Minute))
	l.hourRequests = trimBefore(l.hourRequests, now.Add(-time.Hour))
	l.dayRequests = trimBefore(l.dayRequests, now.Add(-24*time.Hour))
}

// refreshWindowCounts keeps the metrics window counts equal to the
// queue lengths. Caller must hold l.mu.
func (l *Limiter) refreshWindowCounts() {
	l.metrics.RequestsPerMinute = len(l.minuteRequests)
	l.metrics.RequestsPerHour = len(l.hourRequests)
	l.metrics.RequestsPerDay = len(l.dayRequests)
}

func trimBefore(queue []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(queue) && queue[idx].Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return queue
	}
	return append(queue[:0], queue[idx:]...)
}

// SharedChecker coordinates a request window across service replicas.
// Implementations must fail open: coordination problems should never
// take the service down.
type SharedChecker interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SetSharedWindow attaches a cross-replica window consulted after the
// local checks pass. Passing nil detaches it.
func (l *Limiter) SetSharedWindow(s SharedChecker) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shared = s
}

func (l *Limiter) sharedWindow() SharedChecker {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shared
}

// WaitIfNeeded blocks until a request may proceed. It returns true on
// approval. Compliance rejections return false immediately and must
// not be retried. Rate-limit rejections are waited out with bounded
// sleeps until the total wait budget is exhausted or the context is
// canceled.
func (l *Limiter) WaitIfNeeded(ctx context.Context, content string) bool {
	ok, _ := l.WaitForSlot(ctx, content)
	return ok
}

// WaitForSlot is WaitIfNeeded with the rejection reason attached, so
// callers can report why a request was blocked without re-screening
// the content.
func (l *Limiter) WaitForSlot(ctx context.Context, content string) (bool, string) {
	start := l.now()
	reason := "Rate limit: maximum wait time exceeded"

	for l.now().Sub(start) < maxTotalWait {
		d := l.check(content)

		if d.Allowed {
			shared := l.sharedWindow()
			if shared == nil {
				return true, ""
			}
			ok, err := shared.Allow(ctx, "model")
			if err != nil || ok {
				return true, ""
			}
			d = decision{
				Reason:    fmt.Sprintf("Rate limit: Exceeded %d requests per minute", l.cfg.RequestsPerMinute),
				Retryable: true,
			}
		}
		reason = d.Reason

		if !d.Retryable {
			l.log.Error("", "", "Request permanently blocked", map[string]interface{}{
				"reason": d.Reason,
			})
			return false, d.Reason
		}

		wait := d.Wait + time.Second
		if d.Wait == 0 || wait > maxIterationWait {
			wait = maxIterationWait
		}
		// Never sleep past the total budget.
		if remaining := maxTotalWait - l.now().Sub(start); wait > remaining {
			wait = remaining
		}
		if wait <= 0 {
			break
		}

		l.log.Info("", "", "Rate limit reached, waiting", map[string]interface{}{
			"wait_seconds": wait.Seconds(),
			"reason":       d.Reason,
		})

		if err := l.sleep(ctx, wait); err != nil {
			l.log.Warn("", "", "Rate limit wait canceled", map[string]interface{}{
				"error": err.Error(),
			})
			return false, d.Reason
		}
	}

	l.log.Error("", "", "Max wait time exceeded, request blocked", nil)
	return false, reason
}

// UsageStats returns the current usage snapshot. The last ten recorded
// compliance violations are included.
func (l *Limiter) UsageStats() UsageStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictStale(l.now())
	l.refreshWindowCounts()

	recent := l.violations
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	recentCopy := make([]string, len(recent))
	copy(recentCopy, recent)

	return UsageStats{
		CurrentUsage: WindowUsage{
			RequestsPerMinute: len(l.minuteRequests),
			RequestsPerHour:   len(l.hourRequests),
			RequestsPerDay:    len(l.dayRequests),
		},
		Limits: ConfiguredLimit{
			RequestsPerMinute:  l.cfg.RequestsPerMinute,
			RequestsPerHour:    l.cfg.RequestsPerHour,
			RequestsPerDay:     l.cfg.RequestsPerDay,
			MinIntervalSeconds: l.cfg.MinRequestInterval.Seconds(),
		},
		Totals: l.metrics,
		Compliance: ComplianceStats{
			ViolationsDetected: len(l.violations),
			RequestsBlocked:    l.blockedRequests,
			RecentViolations:   recentCopy,
		},
	}
}

// IsComplianceRejection reports whether a rejection reason from
// CanMakeRequest denotes a content violation, which callers must treat
// as fatal for the request rather than retryable.
func IsComplianceRejection(reason string) bool {
	return strings.HasPrefix(reason, "Content compliance violation")
}

func joinViolations(violations []string) string {
	return strings.Join(violations, "; ")
}
