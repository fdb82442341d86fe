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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentdesk/platform/orchestrator/llm"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	orch := newTestOrchestrator(t, llm.NewStubProvider())
	return NewServer(orch, nil, newQuietLogger())
}

func doRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestServer(t).Routes("")

	rec := doRequest(router, "GET", "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["system_status"])
}

func TestChatEndpoint(t *testing.T) {
	router := newTestServer(t).Routes("")

	rec := doRequest(router, "POST", "/api/v1/chat", ChatRequest{
		Message: "Write a blog post about remote work",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.True(t, resp.Response.Success)
	assert.Equal(t, string(AgentContentCreation), resp.Response.AgentType)
	assert.NotEmpty(t, resp.Response.Content)
}

func TestChatEndpointKeepsSessionID(t *testing.T) {
	router := newTestServer(t).Routes("")

	rec := doRequest(router, "POST", "/api/v1/chat", ChatRequest{
		Message:   "thanks",
		SessionID: "session-42",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "session-42", resp.SessionID)
}

func TestChatEndpointRejectsBadInput(t *testing.T) {
	router := newTestServer(t).Routes("")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/chat", bytes.NewBufferString("{not json"))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, "POST", "/api/v1/chat", ChatRequest{
		Message:   "hello",
		AgentType: "time_travel",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unknown agent_type")
}

func TestUsageEndpoint(t *testing.T) {
	router := newTestServer(t).Routes("")

	rec := doRequest(router, "GET", "/api/v1/usage", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Contains(t, stats, "current_usage")
	assert.Contains(t, stats, "limits")
	assert.Contains(t, stats, "compliance")
}

func TestAgentsEndpoint(t *testing.T) {
	router := newTestServer(t).Routes("")

	rec := doRequest(router, "GET", "/api/v1/agents", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Agents []string `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Agents, 4)
}

func TestComplianceReportEndpoint(t *testing.T) {
	router := newTestServer(t).Routes("")

	rec := doRequest(router, "GET", "/api/v1/compliance/report?days=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Contains(t, report, "summary")
	assert.Contains(t, report, "recommendations")

	rec = doRequest(router, "GET", "/api/v1/compliance/report?days=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, "GET", "/api/v1/compliance/report?days=banana", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComplianceSummaryEndpoint(t *testing.T) {
	router := newTestServer(t).Routes("")

	rec := doRequest(router, "GET", "/api/v1/compliance/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, "GET", "/api/v1/compliance/summary?date=not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComplianceExportEndpoint(t *testing.T) {
	server := newTestServer(t)
	router := server.Routes("")

	// Generate one event so the export has content.
	server.orch.RouteRequest(httptest.NewRequest("GET", "/", nil).Context(),
		"analyze the data", "", "", nil)

	today := time.Now().Format("2006-01-02")
	rec := doRequest(router, "POST", "/api/v1/compliance/export", exportRequest{
		StartDate: today,
		EndDate:   today,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp exportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Events)
	require.NotNil(t, resp.Export)

	// Inverted range rejected.
	rec = doRequest(router, "POST", "/api/v1/compliance/export", exportRequest{
		StartDate: "2025-06-02",
		EndDate:   "2025-06-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Archiving without an archiver configured.
	rec = doRequest(router, "POST", "/api/v1/compliance/export", exportRequest{
		StartDate: today,
		EndDate:   today,
		Archive:   true,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSessionHistoryEndpoint(t *testing.T) {
	router := newTestServer(t).Routes("")

	rec := doRequest(router, "GET", "/api/v1/sessions/session-1/history", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "session-1", resp["session_id"])
}

func TestAuthMiddlewareEnforced(t *testing.T) {
	const secret = "test-secret"
	router := newTestServer(t).Routes(secret)

	// No token: rejected.
	rec := doRequest(router, "GET", "/api/v1/agents", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token: rejected.
	req := httptest.NewRequest("GET", "/api/v1/agents", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token: accepted.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-1",
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	req = httptest.NewRequest("GET", "/api/v1/agents", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open even with auth enabled.
	rec = doRequest(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
