// Copyright 2025 AgentDesk
// SPDX-License-Identifier: Apache-2.0
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdesk/platform/orchestrator/compliance"
	"agentdesk/platform/orchestrator/llm"
	"agentdesk/platform/orchestrator/ratelimit"
	"agentdesk/platform/shared/logger"
)

func newQuietLogger() *logger.Logger {
	log := logger.New("test")
	log.SetOutput(io.Discard)
	return log
}

func newTestMonitor(t *testing.T) *compliance.Monitor {
	t.Helper()
	m, err := compliance.NewMonitor(t.TempDir(), newQuietLogger())
	require.NoError(t, err)
	return m
}

// newOpenLimiter builds a limiter whose windows never fill in tests.
func newOpenLimiter(enableCompliance bool) *ratelimit.Limiter {
	var v *compliance.Validator
	if enableCompliance {
		v = compliance.NewValidator(compliance.ValidatorConfig{})
	}
	return ratelimit.New(ratelimit.Config{
		RequestsPerMinute:     1000,
		RequestsPerHour:       10000,
		RequestsPerDay:        100000,
		EnableComplianceCheck: enableCompliance,
	}, v, newQuietLogger())
}

func TestAnalysisAgentEmptyInput(t *testing.T) {
	agent := NewAnalysisAgent(llm.NewStubProvider(), newOpenLimiter(false), newTestMonitor(t), newQuietLogger())

	resp := agent.Process(context.Background(), "   ", nil)

	assert.False(t, resp.Success)
	assert.Equal(t, "Please provide a valid analysis request.", resp.Content)
	assert.Equal(t, string(AgentDataAnalysis), resp.AgentType)
}

func TestAnalysisAgentSuccess(t *testing.T) {
	agent := NewAnalysisAgent(llm.NewStubProvider(), newOpenLimiter(false), newTestMonitor(t), newQuietLogger())

	resp := agent.Process(context.Background(), "analyze my monthly sales trends", nil)

	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Content)
	assert.Empty(t, resp.ErrorMessage)
}

// Acknowledgments must never reach the model: a provider wired to
// fail every call proves the short-circuit.
func TestCustomerServiceAcknowledgmentSkipsModel(t *testing.T) {
	provider := llm.NewStubProvider()
	provider.Err = errors.New("model must not be called")
	agent := NewCustomerServiceAgent(provider, newOpenLimiter(false), newTestMonitor(t), newQuietLogger())

	tests := []struct {
		input string
		want  string
	}{
		{"thank you so much", "You're very welcome! I'm glad I could help. If you have any other questions or need assistance with anything else, feel free to ask."},
		{"ok", "Perfect! Let me know if you need anything else or have any questions."},
		{"awesome", "I'm glad you're satisfied! Is there anything else I can help you with today?"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			resp := agent.Process(context.Background(), tt.input, nil)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.want, resp.Content)
			assert.Less(t, resp.ExecutionTime, 1.0)
		})
	}
}

func TestAutomationAgentThanksShortCircuit(t *testing.T) {
	provider := llm.NewStubProvider()
	provider.Err = errors.New("model must not be called")
	agent := NewAutomationAgent(provider, newOpenLimiter(false), newTestMonitor(t), newQuietLogger())

	resp := agent.Process(context.Background(), "thanks, that worked", nil)

	assert.True(t, resp.Success)
	assert.Equal(t, "You're welcome! If you have any more automation or workflow optimization needs, feel free to ask.", resp.Content)
}

func TestAgentComplianceRejection(t *testing.T) {
	limiter := newOpenLimiter(true)
	monitor := newTestMonitor(t)
	agent := NewAnalysisAgent(llm.NewStubProvider(), limiter, monitor, newQuietLogger())

	resp := agent.Process(context.Background(), "analyze the data for SSN 123-45-6789", nil)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage, "Content compliance violation")
	assert.Contains(t, resp.Content, "prohibited content")

	// One rejected request is screened once and counted once.
	stats := limiter.UsageStats()
	assert.Equal(t, 1, stats.Compliance.RequestsBlocked)

	// The logged event carries the rejection reason itself.
	events := monitor.RecentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, compliance.EventContentViolation, events[0].EventType)
	assert.Contains(t, events[0].ErrorMessage, "Content compliance violation")
}

func TestAgentModelErrorBecomesFailedResponse(t *testing.T) {
	provider := llm.NewStubProvider()
	provider.Err = errors.New("upstream exploded")
	limiter := newOpenLimiter(false)
	agent := NewCustomerServiceAgent(provider, limiter, newTestMonitor(t), newQuietLogger())

	resp := agent.Process(context.Background(), "my invoice looks wrong, please fix the billing problem", nil)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage, "upstream exploded")
	assert.Contains(t, resp.Content, "I encountered an error")

	stats := limiter.UsageStats()
	assert.Equal(t, 1, stats.Totals.FailedRequests)
}

func TestAgentRecordsPerformanceMetrics(t *testing.T) {
	agent := NewAnalysisAgent(llm.NewStubProvider(), newOpenLimiter(false), newTestMonitor(t), newQuietLogger())

	for i := 0; i < 3; i++ {
		agent.Process(context.Background(), "analyze quarterly revenue", nil)
	}

	perf := agent.Performance()
	assert.Equal(t, 3, perf.TotalRequests)
	assert.Equal(t, 3, perf.SuccessfulRequests)
	assert.Equal(t, 0, perf.FailedRequests)
	assert.GreaterOrEqual(t, perf.AverageResponseTime, 0.0)
}

func TestBuildMessagesFiltersHistory(t *testing.T) {
	history := []ChatMessage{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "user", Content: ""},
		{Role: "assistant", Content: "Note: AgentDesk can make mistakes. Verify important info."},
		{Role: "system", Content: "ignored role"},
	}

	messages := buildMessages(history, "current question")

	require.Len(t, messages, 3)
	assert.Equal(t, llm.RoleUser, messages[0].Role)
	assert.Equal(t, "first question", messages[0].Content)
	assert.Equal(t, llm.RoleAssistant, messages[1].Role)
	assert.Equal(t, "current question", messages[2].Content)
	assert.Equal(t, llm.RoleUser, messages[2].Role)
}

func TestAgentUsageRecordedWithMonitor(t *testing.T) {
	monitor := newTestMonitor(t)
	agent := NewAnalysisAgent(llm.NewStubProvider(), newOpenLimiter(false), monitor, newQuietLogger())

	agent.Process(context.Background(), "analyze the churn metrics", nil)

	events := monitor.RecentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, compliance.EventAPIRequest, events[0].EventType)
	assert.Equal(t, string(AgentDataAnalysis), events[0].AgentType)
	assert.True(t, events[0].Success)
}
