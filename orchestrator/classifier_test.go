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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  AgentType
	}{
		{
			name:  "analysis request",
			input: "analyze this sales data and show correlation",
			want:  AgentDataAnalysis,
		},
		{
			name:  "content request",
			input: "Write a blog post about remote work",
			want:  AgentContentCreation,
		},
		{
			name:  "automation request",
			input: "automate the weekly report pipeline with a schedule",
			want:  AgentAutomation,
		},
		{
			name:  "support request",
			input: "I have an issue with my account, please help",
			want:  AgentCustomerService,
		},
		{
			name:  "no keyword match defaults to customer service",
			input: "zzz qqq xyz",
			want:  AgentCustomerService,
		},
		{
			name:  "case insensitive",
			input: "ANALYZE THE QUARTERLY METRICS",
			want:  AgentDataAnalysis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, scores := Classify(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Len(t, scores, 4)
		})
	}
}

func TestClassifyReturnsScores(t *testing.T) {
	_, scores := Classify("analyze this data and write a report")

	assert.Greater(t, scores[AgentDataAnalysis], 0)
	assert.Greater(t, scores[AgentContentCreation], 0)
}

// Ties resolve by the fixed order of AllAgentTypes: analysis comes
// first, so an input matching exactly one keyword from analysis and
// one from content creation lands on analysis.
func TestClassifyTieBreakIsDeterministic(t *testing.T) {
	input := "chart draft" // one analysis keyword, one content keyword
	_, scores := Classify(input)
	assert.Equal(t, scores[AgentDataAnalysis], scores[AgentContentCreation])

	for i := 0; i < 50; i++ {
		got, _ := Classify(input)
		assert.Equal(t, AgentDataAnalysis, got)
	}
}

func TestClassifyIsPure(t *testing.T) {
	first, firstScores := Classify("analyze my data")
	second, secondScores := Classify("analyze my data")

	assert.Equal(t, first, second)
	assert.Equal(t, firstScores, secondScores)
}

func TestIsAcknowledgment(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"thank you", true},
		{"Thanks!", true},
		{"ok", true},
		{"got it", true},
		{"bye", true},
		{"Goodbye", true},
		{"  perfect  ", true},
		{"analyze this dataset", false},
		{"write a blog post", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAcknowledgment(tt.input))
		})
	}
}
