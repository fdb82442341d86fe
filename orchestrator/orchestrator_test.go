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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdesk/platform/orchestrator/llm"
)

func newTestOrchestrator(t *testing.T, provider llm.Provider) *Orchestrator {
	t.Helper()
	return New(provider, newOpenLimiter(true), newTestMonitor(t), nil, newQuietLogger())
}

func TestRouteRequestEndToEnd(t *testing.T) {
	orch := newTestOrchestrator(t, llm.NewStubProvider())

	resp := orch.RouteRequest(context.Background(), "Write a blog post about remote work", "", "", nil)

	assert.True(t, resp.Success)
	assert.Equal(t, string(AgentContentCreation), resp.AgentType)
	assert.NotEmpty(t, resp.Content)
}

func TestRouteRequestAnalysisClassification(t *testing.T) {
	orch := newTestOrchestrator(t, llm.NewStubProvider())

	resp := orch.RouteRequest(context.Background(), "analyze this sales data and show correlation", "", "", nil)

	assert.True(t, resp.Success)
	assert.Equal(t, string(AgentDataAnalysis), resp.AgentType)
}

// "thank you" must never invoke the model path: a provider that fails
// every call proves it.
func TestRouteRequestAcknowledgmentNeverCallsModel(t *testing.T) {
	provider := llm.NewStubProvider()
	provider.Err = errors.New("model must not be called")
	orch := newTestOrchestrator(t, provider)

	resp := orch.RouteRequest(context.Background(), "thank you", "", "", nil)

	assert.True(t, resp.Success)
	assert.Equal(t, string(AgentCustomerService), resp.AgentType)
	assert.NotEmpty(t, resp.Content)
	assert.Less(t, resp.ExecutionTime, 1.0)
}

func TestRouteRequestEmptyInput(t *testing.T) {
	orch := newTestOrchestrator(t, llm.NewStubProvider())

	for _, input := range []string{"", "   ", "\n\t"} {
		resp := orch.RouteRequest(context.Background(), input, "", "", nil)
		assert.False(t, resp.Success)
		assert.Equal(t, "Please provide a valid request.", resp.Content)
		assert.Equal(t, "Empty request provided", resp.ErrorMessage)
	}
}

func TestRouteRequestPinnedAgentType(t *testing.T) {
	orch := newTestOrchestrator(t, llm.NewStubProvider())

	// Classification would pick content creation; pinning overrides it.
	resp := orch.RouteRequest(context.Background(), "Write a blog post about remote work", AgentDataAnalysis, "", nil)

	assert.True(t, resp.Success)
	assert.Equal(t, string(AgentDataAnalysis), resp.AgentType)
}

func TestRouteRequestUnknownAgent(t *testing.T) {
	orch := newTestOrchestrator(t, llm.NewStubProvider())
	delete(orch.agents, AgentAutomation)

	resp := orch.RouteRequest(context.Background(), "automate my pipeline", AgentAutomation, "", nil)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage, "is not available")
}

type panickingAgent struct{}

func (panickingAgent) Type() AgentType { return AgentAutomation }
func (panickingAgent) Process(context.Context, string, []ChatMessage) AgentResponse {
	panic("boom")
}

func TestRouteRequestRecoversFromAgentPanic(t *testing.T) {
	orch := newTestOrchestrator(t, llm.NewStubProvider())
	orch.agents[AgentAutomation] = panickingAgent{}

	resp := orch.RouteRequest(context.Background(), "automate everything", AgentAutomation, "", nil)

	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage, "agent panic")
	assert.Contains(t, resp.ErrorMessage, "boom")
}

func TestGetAvailableAgents(t *testing.T) {
	orch := newTestOrchestrator(t, llm.NewStubProvider())

	agents := orch.GetAvailableAgents()

	require.Len(t, agents, 4)
	assert.Equal(t, []string{
		string(AgentDataAnalysis),
		string(AgentCustomerService),
		string(AgentAutomation),
		string(AgentContentCreation),
	}, agents)
}

func TestHealthCheck(t *testing.T) {
	orch := newTestOrchestrator(t, llm.NewStubProvider())

	health := orch.HealthCheck(context.Background())

	assert.Equal(t, "healthy", health["system_status"])
	assert.Equal(t, "unavailable", health["database"])
	agents, ok := health["agents"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, agents, 4)
}

func TestPerformanceReport(t *testing.T) {
	orch := newTestOrchestrator(t, llm.NewStubProvider())

	orch.RouteRequest(context.Background(), "analyze revenue trends in the data", "", "", nil)

	report := orch.PerformanceReport()
	require.Contains(t, report, string(AgentDataAnalysis))
	assert.Equal(t, 1, report[string(AgentDataAnalysis)].TotalRequests)
}

func TestRouteRequestWithoutStoreSucceeds(t *testing.T) {
	orch := newTestOrchestrator(t, llm.NewStubProvider())

	resp := orch.RouteRequest(context.Background(), "please help with my account issue", "", "session-1", nil)
	assert.True(t, resp.Success)

	history, err := orch.GetChatHistory(context.Background(), "session-1", 50, "")
	require.NoError(t, err)
	assert.Empty(t, history)
}
