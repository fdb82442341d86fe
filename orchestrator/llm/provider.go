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

// Package llm defines the capability interface for model providers.
// Agents depend on this interface only; the concrete vendor client and
// the stub used without credentials are interchangeable implementations.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Message roles. The vendor-side "model" role is normalized to
// "assistant" at the provider boundary.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a request for a model completion over a message
// history.
type CompletionRequest struct {
	Messages     []Message
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Model        string
}

// CompletionResponse is the provider-neutral completion result.
type CompletionResponse struct {
	Content    string
	Model      string
	StopReason string
	Usage      UsageStats
	Latency    time.Duration
}

// UsageStats contains token usage statistics.
type UsageStats struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Provider is the capability contract for model backends.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Name returns the provider identifier used in logs and metrics.
	Name() string

	// Complete generates a completion for the given request. The
	// context carries cancellation and timeout.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsHealthy reports whether the provider is currently usable.
	IsHealthy() bool
}

// IsQuotaExceeded reports whether an error from Complete denotes a
// vendor-side quota exhaustion. Typed provider errors are consulted
// first; untyped errors fall back to a substring heuristic over the
// message, which is an integration point rather than a contract.
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}

	var classifier interface{ IsQuotaExceededError() bool }
	if errors.As(err, &classifier) {
		return classifier.IsQuotaExceededError()
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate") ||
		strings.Contains(msg, "429")
}

// IsRateLimited reports whether an error from Complete denotes a
// vendor-side rate limit response.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}

	var classifier interface{ IsRateLimitError() bool }
	if errors.As(err, &classifier) {
		return classifier.IsRateLimitError()
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "429")
}
