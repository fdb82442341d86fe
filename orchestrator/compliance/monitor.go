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

package compliance

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"agentdesk/platform/shared/logger"
)

// Event types recorded by the monitor.
const (
	EventAPIRequest       = "api_request"
	EventRateLimitHit     = "rate_limit_hit"
	EventContentViolation = "content_violation"
	EventQuotaExceeded    = "quota_exceeded"
)

// maxRecentEvents bounds the in-memory event buffer.
const maxRecentEvents = 1000

// Event is a single immutable compliance audit record. One is created
// per API attempt and appended to the daily JSONL log.
type Event struct {
	Timestamp        time.Time              `json:"timestamp"`
	EventType        string                 `json:"event_type"`
	AgentType        string                 `json:"agent_type"`
	SessionID        string                 `json:"session_id,omitempty"`
	ContentLength    int                    `json:"content_length"`
	Success          bool                   `json:"success"`
	ErrorMessage     string                 `json:"error_message,omitempty"`
	ViolationDetails string                 `json:"violation_details,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// DailySummary aggregates one calendar day of compliance events.
type DailySummary struct {
	TotalRequests      int    `json:"total_requests"`
	SuccessfulRequests int    `json:"successful_requests"`
	FailedRequests     int    `json:"failed_requests"`
	RateLimitHits      int    `json:"rate_limit_hits"`
	ContentViolations  int    `json:"content_violations"`
	QuotaExceeded      int    `json:"quota_exceeded"`
	Date               string `json:"date,omitempty"`
}

// ReportPeriod describes the date range a report covers.
type ReportPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      int    `json:"days"`
}

// ReportSummary is the aggregate section of a compliance report.
type ReportSummary struct {
	DailySummary
	SuccessRate float64 `json:"success_rate"`
}

// Report is the output of GenerateReport.
type Report struct {
	ReportPeriod    ReportPeriod   `json:"report_period"`
	Summary         ReportSummary  `json:"summary"`
	DailyBreakdown  []DailySummary `json:"daily_breakdown"`
	Recommendations []string       `json:"recommendations"`
}

// Monitor records compliance events for audit purposes: a bounded
// in-memory buffer of recent events, rolling daily counters, and an
// append-only JSONL file per calendar day. Durability across restarts
// relies entirely on the log files; the in-memory buffer is lost.
type Monitor struct {
	logDir string
	log    *logger.Logger

	mu           sync.Mutex
	recentEvents []Event
	dailyStats   DailySummary
	statsDay     string

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewMonitor creates a compliance monitor writing daily JSONL logs
// under logDir. The directory is created if missing.
func NewMonitor(logDir string, log *logger.Logger) (*Monitor, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create compliance log directory %s: %w", logDir, err)
	}

	if log == nil {
		log = logger.New("compliance")
	}

	m := &Monitor{
		logDir: logDir,
		log:    log,
		now:    time.Now,
	}
	m.statsDay = m.now().Format("2006-01-02")

	log.Info("", "", "Compliance monitor initialized", map[string]interface{}{
		"log_directory": logDir,
	})
	return m, nil
}

// LogEvent records one compliance event: buffers it, updates the daily
// counters, appends a JSON line to the day's log file, and checks
// alert conditions. The event's timestamp is set here.
func (m *Monitor) LogEvent(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.Timestamp = m.now()
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}

	m.recentEvents = append(m.recentEvents, e)
	if len(m.recentEvents) > maxRecentEvents {
		m.recentEvents = m.recentEvents[1:]
	}

	m.updateDailyStats(e)
	m.writeEventToFile(e)
	m.checkAlertConditions(e)
}

func (m *Monitor) updateDailyStats(e Event) {
	today := m.now().Format("2006-01-02")

	// Reset counters when the wall-clock date rolls over.
	if m.statsDay != today {
		m.dailyStats = DailySummary{}
		m.statsDay = today
	}

	switch e.EventType {
	case EventAPIRequest:
		m.dailyStats.TotalRequests++
		if e.Success {
			m.dailyStats.SuccessfulRequests++
		} else {
			m.dailyStats.FailedRequests++
		}
	case EventRateLimitHit:
		m.dailyStats.RateLimitHits++
	case EventContentViolation:
		m.dailyStats.ContentViolations++
	case EventQuotaExceeded:
		m.dailyStats.QuotaExceeded++
	}
}

func (m *Monitor) writeEventToFile(e Event) {
	path := m.logFilePath(e.Timestamp)

	data, err := json.Marshal(e)
	if err != nil {
		m.log.ErrorWithErr("", "", "Failed to marshal compliance event", err, nil)
		return
	}

	// Open in append mode per event; no persistent handle is held, so
	// concurrent writers are safe at OS append granularity.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		m.log.ErrorWithErr("", "", "Failed to open compliance log file", err, map[string]interface{}{
			"file": path,
		})
		return
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.Write(append(data, '\n')); err != nil {
		m.log.ErrorWithErr("", "", "Failed to write compliance event", err, map[string]interface{}{
			"file": path,
		})
	}
}

func (m *Monitor) checkAlertConditions(e Event) {
	if e.EventType == EventContentViolation {
		m.log.Warn(e.SessionID, "", "COMPLIANCE ALERT: Content violation detected", map[string]interface{}{
			"violation_details": e.ViolationDetails,
			"agent_type":        e.AgentType,
		})
	}

	if e.EventType == EventQuotaExceeded {
		m.log.Error(e.SessionID, "", "COMPLIANCE ALERT: API quota exceeded", map[string]interface{}{
			"error_message": e.ErrorMessage,
		})
	}

	// 80% failure rate across the last 10 events.
	if len(m.recentEvents) >= 10 {
		failures := 0
		for _, recent := range m.recentEvents[len(m.recentEvents)-10:] {
			if !recent.Success {
				failures++
			}
		}
		if failures >= 8 {
			m.log.Warn("", "", "COMPLIANCE ALERT: High failure rate detected", map[string]interface{}{
				"recent_failures": failures,
				"window":          10,
			})
		}
	}
}

// DailySummaryFor returns the summary for the given date. Today's
// summary comes from the in-memory counters; past dates are re-derived
// by replaying that day's log file.
func (m *Monitor) DailySummaryFor(date time.Time) DailySummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := date.Format("2006-01-02")
	if day == m.now().Format("2006-01-02") && day == m.statsDay {
		s := m.dailyStats
		s.Date = day
		return s
	}
	return m.loadDailySummaryFromFile(date)
}

// loadDailySummaryFromFile replays one day's JSONL log. A missing file
// yields an all-zero summary.
func (m *Monitor) loadDailySummaryFromFile(date time.Time) DailySummary {
	day := date.Format("2006-01-02")
	summary := DailySummary{Date: day}

	f, err := os.Open(m.logFilePath(date))
	if err != nil {
		return summary
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			m.log.Warn("", "", "Skipping malformed compliance log line", map[string]interface{}{
				"file": m.logFilePath(date),
			})
			continue
		}

		switch e.EventType {
		case EventAPIRequest:
			summary.TotalRequests++
			if e.Success {
				summary.SuccessfulRequests++
			} else {
				summary.FailedRequests++
			}
		case EventRateLimitHit:
			summary.RateLimitHits++
		case EventContentViolation:
			summary.ContentViolations++
		case EventQuotaExceeded:
			summary.QuotaExceeded++
		}
	}

	return summary
}

// GenerateReport aggregates the given number of consecutive daily
// summaries ending today and derives recommendations from the totals.
func (m *Monitor) GenerateReport(days int) *Report {
	if days <= 0 {
		days = 7
	}

	end := m.now()
	start := end.AddDate(0, 0, -(days - 1))

	report := &Report{
		ReportPeriod: ReportPeriod{
			StartDate: start.Format(time.RFC3339),
			EndDate:   end.Format(time.RFC3339),
			Days:      days,
		},
		DailyBreakdown:  make([]DailySummary, 0, days),
		Recommendations: []string{},
	}

	for i := 0; i < days; i++ {
		daily := m.DailySummaryFor(start.AddDate(0, 0, i))
		report.DailyBreakdown = append(report.DailyBreakdown, daily)

		report.Summary.TotalRequests += daily.TotalRequests
		report.Summary.SuccessfulRequests += daily.SuccessfulRequests
		report.Summary.FailedRequests += daily.FailedRequests
		report.Summary.RateLimitHits += daily.RateLimitHits
		report.Summary.ContentViolations += daily.ContentViolations
		report.Summary.QuotaExceeded += daily.QuotaExceeded
	}

	if report.Summary.TotalRequests > 0 {
		report.Summary.SuccessRate =
			float64(report.Summary.SuccessfulRequests) / float64(report.Summary.TotalRequests)
	}

	report.Recommendations = generateRecommendations(report.Summary)
	return report
}

func generateRecommendations(s ReportSummary) []string {
	var recommendations []string

	if s.RateLimitHits > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Reduce API request frequency - %d rate limit violations detected", s.RateLimitHits))
	}

	if s.ContentViolations > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Review content filtering - %d content violations detected", s.ContentViolations))
	}

	if s.QuotaExceeded > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("Monitor API quota usage - %d quota exceeded events", s.QuotaExceeded))
	}

	// No traffic means no negative signals, so the zero success rate
	// on an idle day is not flagged.
	if s.TotalRequests > 0 && s.SuccessRate < 0.9 {
		recommendations = append(recommendations,
			fmt.Sprintf("Improve error handling - success rate is %.1f%%", s.SuccessRate*100))
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations,
			"Compliance status is good - continue current practices")
	}

	return recommendations
}

// ExportDocument is the JSON document produced by Export.
type ExportDocument struct {
	ExportMetadata ExportMetadata    `json:"export_metadata"`
	Events         []json.RawMessage `json:"events"`
}

// ExportMetadata describes one export run.
type ExportMetadata struct {
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	ExportTimestamp string `json:"export_timestamp"`
	TotalEvents     int    `json:"total_events"`
}

// Export concatenates all daily log files in the inclusive date range
// into a single JSON document and returns it. Missing days are skipped.
func (m *Monitor) Export(start, end time.Time) (*ExportDocument, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("export end date %s precedes start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	doc := &ExportDocument{
		ExportMetadata: ExportMetadata{
			StartDate:       start.Format(time.RFC3339),
			EndDate:         end.Format(time.RFC3339),
			ExportTimestamp: m.now().Format(time.RFC3339),
		},
		Events: []json.RawMessage{},
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		f, err := os.Open(m.logFilePath(day))
		if err != nil {
			continue
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			if !json.Valid(line) {
				continue
			}
			doc.Events = append(doc.Events, line)
		}
		_ = f.Close()
	}

	doc.ExportMetadata.TotalEvents = len(doc.Events)
	return doc, nil
}

// ExportToFile writes the export document for the date range to
// outputFile as indented JSON.
func (m *Monitor) ExportToFile(start, end time.Time, outputFile string) error {
	doc, err := m.Export(start, end)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal export document: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write export file %s: %w", outputFile, err)
	}

	m.log.Info("", "", "Compliance data exported", map[string]interface{}{
		"output_file":  outputFile,
		"total_events": doc.ExportMetadata.TotalEvents,
	})
	return nil
}

// RecentEvents returns a copy of the in-memory event buffer, newest last.
func (m *Monitor) RecentEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, len(m.recentEvents))
	copy(out, m.recentEvents)
	return out
}

func (m *Monitor) logFilePath(date time.Time) string {
	return filepath.Join(m.logDir, fmt.Sprintf("compliance_%s.jsonl", date.Format("2006-01-02")))
}
