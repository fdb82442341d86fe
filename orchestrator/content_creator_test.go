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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"agentdesk/platform/orchestrator/llm"
)

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		input string
		want  ContentType
	}{
		{"Write a blog post about remote work", ContentBlogPost},
		{"Create a social media post for our launch", ContentSocialMedia},
		{"tweet about the new release", ContentSocialMedia},
		{"Write an article about climate policy", ContentArticle},
		{"create marketing copy about our app", ContentMarketing},
		{"write a product description for the X200 headset", ContentProductDesc},
		{"draft an email about the outage", ContentEmail},
		{"write a newsletter for subscribers", ContentEmail},
		{"something creative please", ContentGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContentType(tt.input))
		})
	}
}

func TestExtractContentTopic(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		contentType ContentType
		want        string
	}{
		{
			name:        "blog prefix stripped",
			input:       "Write a blog post about remote work",
			contentType: ContentBlogPost,
			want:        "remote work",
		},
		{
			name:        "prefix match is case insensitive",
			input:       "WRITE A BLOG POST ABOUT remote work",
			contentType: ContentBlogPost,
			want:        "remote work",
		},
		{
			name:        "leading on stripped",
			input:       "blog post on kubernetes cost control",
			contentType: ContentBlogPost,
			want:        "kubernetes cost control",
		},
		{
			name:        "no prefix leaves topic unchanged",
			input:       "remote work culture",
			contentType: ContentBlogPost,
			want:        "remote work culture",
		},
		{
			name:        "email prefix stripped",
			input:       "write an email about the maintenance window",
			contentType: ContentEmail,
			want:        "the maintenance window",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractContentTopic(tt.input, tt.contentType))
		})
	}
}

func TestIsGuidanceRequest(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"how to create a landing page", true},
		{"How do I write a press release?", true},
		{"HOW TO write better headlines", true},
		{"best practices for cold emails", true},
		{"Write a blog post about remote work", false},
		{"draft the launch announcement", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, isGuidanceRequest(tt.input))
		})
	}
}

func TestContentCreatorProcess(t *testing.T) {
	provider := llm.NewStubProvider()
	provider.Respond = func(req llm.CompletionRequest) string {
		return "Generated body text."
	}
	agent := NewContentCreatorAgent(provider, newOpenLimiter(false), newTestMonitor(t), newQuietLogger())

	resp := agent.Process(context.Background(), "Write a blog post about remote work", nil)

	assert.True(t, resp.Success)
	assert.Contains(t, resp.Content, "## Content Type: Blog Post")
	assert.Contains(t, resp.Content, "Generated body text.")
	assert.Contains(t, resp.Content, "Generated by AgentDesk Content Creation Agent")
}

func TestContentCreatorGuidancePath(t *testing.T) {
	var capturedSystem string
	provider := llm.NewStubProvider()
	provider.Respond = func(req llm.CompletionRequest) string {
		capturedSystem = req.SystemPrompt
		return "Step one: plan the outline."
	}
	agent := NewContentCreatorAgent(provider, newOpenLimiter(false), newTestMonitor(t), newQuietLogger())

	resp := agent.Process(context.Background(), "how do I write a product launch post?", nil)

	assert.True(t, resp.Success)
	assert.Contains(t, resp.Content, "## Guidance on Content Creation")
	assert.Contains(t, resp.Content, "Guidance by AgentDesk Content Creation Agent")
	assert.Contains(t, capturedSystem, "content strategist")
}

func TestContentCreatorEmptyInput(t *testing.T) {
	agent := NewContentCreatorAgent(llm.NewStubProvider(), newOpenLimiter(false), newTestMonitor(t), newQuietLogger())

	resp := agent.Process(context.Background(), "", nil)

	assert.False(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Content, "Please provide a specific content creation request"))
}

func TestContentTypeTitle(t *testing.T) {
	assert.Equal(t, "Blog Post", contentTypeTitle(ContentBlogPost))
	assert.Equal(t, "Product Description", contentTypeTitle(ContentProductDesc))
	assert.Equal(t, "General", contentTypeTitle(ContentGeneral))
}
