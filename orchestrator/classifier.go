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

package orchestrator

import "strings"

// Keyword sets scored by the request classifier. Matching is
// case-insensitive substring containment, one point per keyword.
var (
	analysisKeywords = []string{
		"analyze", "data", "report", "chart", "sql", "query", "insights",
		"metrics", "statistics", "dashboard", "visualization", "trend",
		"calculate", "compute", "process data",
	}
	customerServiceKeywords = []string{
		"help", "support", "issue", "problem", "question", "customer",
		"service", "chat", "talk", "discuss", "explain", "how to",
		"what is", "can you", "please help",
	}
	automationKeywords = []string{
		"file", "process", "schedule", "trigger", "pipeline", "automate",
		"workflow", "batch", "upload", "download", "automation",
		"script", "task",
	}
	contentKeywords = []string{
		"write", "create content", "generate", "draft", "blog post",
		"email", "social media", "article", "content", "copy",
		"marketing", "product description", "newsletter",
	}
)

// acknowledgmentPhrases short-circuit classification entirely: these
// requests get a canned reply and never reach a model.
var acknowledgmentPhrases = []string{
	"thank you", "thanks", "appreciate it", "ok", "okay", "got it",
	"understood", "perfect", "great", "awesome", "nice", "good",
	"bye", "goodbye", "see you", "later", "end", "stop",
}

// IsAcknowledgment reports whether text is a simple acknowledgment or
// closing phrase rather than a work request.
func IsAcknowledgment(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range acknowledgmentPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Classify scores text against each agent's keyword set and returns
// the winning agent type plus the full score map. Ties are broken by
// the fixed order of AllAgentTypes, and an all-zero score defaults to
// the customer service agent. The function is pure: same input, same
// answer, no shared state.
func Classify(text string) (AgentType, map[AgentType]int) {
	lower := strings.ToLower(strings.TrimSpace(text))

	scores := map[AgentType]int{
		AgentDataAnalysis:    countMatches(lower, analysisKeywords),
		AgentCustomerService: countMatches(lower, customerServiceKeywords),
		AgentAutomation:      countMatches(lower, automationKeywords),
		AgentContentCreation: countMatches(lower, contentKeywords),
	}

	best := AgentCustomerService
	bestScore := 0
	for _, t := range AllAgentTypes {
		if scores[t] > bestScore {
			best = t
			bestScore = scores[t]
		}
	}
	return best, scores
}

func countMatches(lower string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}
