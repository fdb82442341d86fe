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

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StubProvider satisfies Provider without any external credentials.
// It is selected via configuration when no vendor API key is present,
// so the rest of the pipeline (classification, rate limiting,
// compliance logging, persistence) behaves exactly as in production.
type StubProvider struct {
	// ModelName is reported in responses. Defaults to "stub-model".
	ModelName string

	// Respond, when set, overrides the canned response logic.
	Respond func(req CompletionRequest) string

	// Err, when set, is returned by every Complete call. Used to
	// exercise failure paths.
	Err error

	// Delay simulates model latency.
	Delay time.Duration
}

// NewStubProvider creates a stub provider with default behavior.
func NewStubProvider() *StubProvider {
	return &StubProvider{}
}

// Name returns the provider identifier.
func (s *StubProvider) Name() string {
	return "stub"
}

// IsHealthy always reports true; the stub has no external dependency.
func (s *StubProvider) IsHealthy() bool {
	return true
}

// Complete returns a canned completion derived from the last user
// message, after an optional simulated delay.
func (s *StubProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if s.Err != nil {
		return nil, s.Err
	}

	model := s.ModelName
	if model == "" {
		model = "stub-model"
	}

	var content string
	if s.Respond != nil {
		content = s.Respond(req)
	} else {
		content = cannedResponse(req)
	}

	return &CompletionResponse{
		Content:    content,
		Model:      model,
		StopReason: "stop",
		Usage: UsageStats{
			InputTokens:  estimateTokens(req),
			OutputTokens: len(content) / 4,
			TotalTokens:  estimateTokens(req) + len(content)/4,
		},
		Latency: time.Since(start),
	}, nil
}

func cannedResponse(req CompletionRequest) string {
	prompt := lastUserMessage(req.Messages)
	if prompt == "" {
		return "I'm running in offline mode. Configure a model API key for live responses."
	}

	summary := prompt
	if len(summary) > 80 {
		summary = summary[:80] + "..."
	}

	return fmt.Sprintf(
		"[offline mode] I received your request: %q. Configure a model API key to get a live response.",
		summary)
}

func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

func estimateTokens(req CompletionRequest) int {
	total := len(req.SystemPrompt)
	for _, m := range req.Messages {
		total += len(m.Content)
	}
	return total / 4
}
