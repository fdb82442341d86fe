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

import "time"

// AgentType identifies one of the specialist agents.
type AgentType string

const (
	AgentContentCreation AgentType = "content_creation_and_generation"
	AgentDataAnalysis    AgentType = "data_analysis_and_insights"
	AgentCustomerService AgentType = "customer_service_and_engagement"
	AgentAutomation      AgentType = "automation_of_complex_processes"
)

// AllAgentTypes is the canonical ordering used for initialization and
// for deterministic classification tie-breaks.
var AllAgentTypes = []AgentType{
	AgentDataAnalysis,
	AgentCustomerService,
	AgentAutomation,
	AgentContentCreation,
}

// Valid reports whether t names a known agent.
func (t AgentType) Valid() bool {
	switch t {
	case AgentContentCreation, AgentDataAnalysis, AgentCustomerService, AgentAutomation:
		return true
	}
	return false
}

// AgentResponse is the uniform result of processing one request.
// Success=false responses still carry usable Content where a fallback
// message exists; ErrorMessage holds the operator-facing detail.
type AgentResponse struct {
	Content       string                 `json:"content"`
	Success       bool                   `json:"success"`
	Error         string                 `json:"error,omitempty"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	AgentType     string                 `json:"agent_type,omitempty"`
	ExecutionTime float64                `json:"execution_time"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message   string        `json:"message"`
	AgentType string        `json:"agent_type,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	History   []ChatMessage `json:"history,omitempty"`
}

// ChatMessage is one prior turn of a conversation, as submitted by
// the client.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the body returned by POST /api/v1/chat.
type ChatResponse struct {
	SessionID string        `json:"session_id"`
	Response  AgentResponse `json:"response"`
	Timestamp time.Time     `json:"timestamp"`
}
