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

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"agentdesk/platform/orchestrator/compliance"
	"agentdesk/platform/orchestrator/llm"
	"agentdesk/platform/orchestrator/ratelimit"
	"agentdesk/platform/shared/logger"
)

// disclaimerMarker appears in UI-injected system notices that must
// not be replayed into the model as conversation history.
const disclaimerMarker = "AgentDesk can make mistakes"

// Agent is the contract every specialist agent fulfills. Process
// never returns an error: failures are reported through the response
// with Success=false and an ErrorMessage.
type Agent interface {
	Type() AgentType
	Process(ctx context.Context, input string, history []ChatMessage) AgentResponse
}

// PerformanceMetrics is the per-agent rolling performance snapshot.
type PerformanceMetrics struct {
	TotalRequests       int     `json:"total_requests"`
	SuccessfulRequests  int     `json:"successful_requests"`
	FailedRequests      int     `json:"failed_requests"`
	AverageResponseTime float64 `json:"average_response_time"`
}

// baseAgent carries the shared request pipeline: compliance check and
// rate limiting through the limiter, the model call, usage recording,
// and per-agent performance metrics.
type baseAgent struct {
	agentType AgentType
	provider  llm.Provider
	limiter   *ratelimit.Limiter
	monitor   *compliance.Monitor
	log       *logger.Logger

	mu   sync.Mutex
	perf PerformanceMetrics
}

func newBaseAgent(agentType AgentType, provider llm.Provider, limiter *ratelimit.Limiter, monitor *compliance.Monitor, log *logger.Logger) baseAgent {
	return baseAgent{
		agentType: agentType,
		provider:  provider,
		limiter:   limiter,
		monitor:   monitor,
		log:       log,
	}
}

func (b *baseAgent) Type() AgentType {
	return b.agentType
}

// Performance returns a copy of the agent's rolling metrics.
func (b *baseAgent) Performance() PerformanceMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.perf
}

func (b *baseAgent) recordPerformance(success bool, elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.perf.TotalRequests++
	if success {
		b.perf.SuccessfulRequests++
	} else {
		b.perf.FailedRequests++
	}
	total := float64(b.perf.TotalRequests)
	b.perf.AverageResponseTime = (b.perf.AverageResponseTime*(total-1) + elapsed.Seconds()) / total
}

// completeWithModel runs the guarded model call: the limiter screens
// the prompt for compliance violations and throttles, the provider is
// invoked with the conversation history, and the outcome is recorded
// with the limiter and the compliance monitor. On failure it returns
// a user-facing fallback message alongside the error.
func (b *baseAgent) waitForSlot(ctx context.Context, content string) (bool, string) {
	if b.limiter == nil {
		return true, ""
	}
	return b.limiter.WaitForSlot(ctx, content)
}

func (b *baseAgent) completeWithModel(ctx context.Context, sessionID, systemPrompt, userPrompt string, history []ChatMessage) (string, error) {
	start := time.Now()

	if ok, reason := b.waitForSlot(ctx, userPrompt); !ok {
		eventType := compliance.EventRateLimitHit
		if ratelimit.IsComplianceRejection(reason) {
			eventType = compliance.EventContentViolation
			promComplianceViolations.Inc()
		} else {
			promRateLimitRejections.Inc()
		}
		b.logUsage(compliance.Event{
			EventType:     eventType,
			SessionID:     sessionID,
			ContentLength: len(userPrompt),
			Success:       false,
			ErrorMessage:  reason,
		})
		b.recordPerformance(false, time.Since(start))
		return rejectionFallback(reason), fmt.Errorf("request rejected: %s", reason)
	}

	req := llm.CompletionRequest{
		Messages:     buildMessages(history, userPrompt),
		SystemPrompt: systemPrompt,
	}

	resp, err := b.provider.Complete(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		quotaExceeded := llm.IsQuotaExceeded(err)
		if b.limiter != nil {
			b.limiter.RecordRequest(false, quotaExceeded)
		}
		eventType := compliance.EventAPIRequest
		if quotaExceeded {
			eventType = compliance.EventQuotaExceeded
		}
		b.logUsage(compliance.Event{
			EventType:     eventType,
			SessionID:     sessionID,
			ContentLength: len(userPrompt),
			Success:       false,
			ErrorMessage:  err.Error(),
		})
		b.recordPerformance(false, elapsed)
		return modelErrorFallback(err), err
	}

	if b.limiter != nil {
		b.limiter.RecordRequest(true, false)
	}
	b.logUsage(compliance.Event{
		EventType:     compliance.EventAPIRequest,
		SessionID:     sessionID,
		ContentLength: len(userPrompt),
		Success:       true,
		Metadata: map[string]interface{}{
			"model":       resp.Model,
			"stop_reason": resp.StopReason,
		},
	})
	b.recordPerformance(true, elapsed)
	return strings.TrimSpace(resp.Content), nil
}

func (b *baseAgent) logUsage(e compliance.Event) {
	if b.monitor == nil {
		return
	}
	e.AgentType = string(b.agentType)
	b.monitor.LogEvent(e)
}

// buildMessages converts client-supplied history into model messages,
// dropping empty turns and UI disclaimer notices, and appends the
// current prompt as the final user turn.
func buildMessages(history []ChatMessage, userPrompt string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Content == "" || strings.Contains(m.Content, disclaimerMarker) {
			continue
		}
		switch m.Role {
		case llm.RoleUser:
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case llm.RoleAssistant:
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		}
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: userPrompt})
}

func rejectionFallback(reason string) string {
	if ratelimit.IsComplianceRejection(reason) {
		return "Your request could not be processed because it appears to contain prohibited content. Please remove any sensitive information and try again."
	}
	return "The service is receiving too many requests right now. Please wait a moment and try again."
}

func modelErrorFallback(err error) string {
	if llm.IsQuotaExceeded(err) || llm.IsRateLimited(err) {
		return "I've reached the API rate limit. Please wait a moment and try again, or consider upgrading your API quota."
	}
	return fmt.Sprintf("I encountered an error while processing your request: %v. Please try again or rephrase your question.", err)
}

func failedResponse(agentType AgentType, content, errorMessage string, start time.Time) AgentResponse {
	return AgentResponse{
		Content:       content,
		Success:       false,
		ErrorMessage:  errorMessage,
		AgentType:     string(agentType),
		ExecutionTime: time.Since(start).Seconds(),
	}
}

func successResponse(agentType AgentType, content string, start time.Time) AgentResponse {
	return AgentResponse{
		Content:       content,
		Success:       true,
		AgentType:     string(agentType),
		ExecutionTime: time.Since(start).Seconds(),
	}
}

// AnalysisAgent handles data analysis and insight requests.
type AnalysisAgent struct {
	baseAgent
}

// NewAnalysisAgent builds the data analysis agent.
func NewAnalysisAgent(provider llm.Provider, limiter *ratelimit.Limiter, monitor *compliance.Monitor, log *logger.Logger) *AnalysisAgent {
	return &AnalysisAgent{baseAgent: newBaseAgent(AgentDataAnalysis, provider, limiter, monitor, log)}
}

const analysisSystemPrompt = `You are a professional data analyst with expertise in business intelligence, statistical analysis, and data visualization. Provide specific, actionable advice that can be implemented immediately.`

func (a *AnalysisAgent) Process(ctx context.Context, input string, history []ChatMessage) AgentResponse {
	start := time.Now()

	if strings.TrimSpace(input) == "" {
		return failedResponse(a.agentType, "Please provide a valid analysis request.", "empty request", start)
	}

	prompt := fmt.Sprintf(`Analyze the following data analysis request and provide actionable insights.

REQUEST: %s

Cover data understanding, key metrics, trends and patterns, statistical insights, visualization recommendations, actionable recommendations, and next steps. Format your response with clear sections and bullet points. If the request mentions specific data types (sales, customer, financial, etc.), tailor your analysis accordingly.`, input)

	content, err := a.completeWithModel(ctx, "", analysisSystemPrompt, prompt, history)
	if err != nil {
		return failedResponse(a.agentType, content, fmt.Sprintf("Analysis error: %v", err), start)
	}
	return successResponse(a.agentType, content, start)
}

// CustomerServiceAgent handles support conversations and answers
// simple acknowledgments without touching the model.
type CustomerServiceAgent struct {
	baseAgent
}

// NewCustomerServiceAgent builds the customer service agent.
func NewCustomerServiceAgent(provider llm.Provider, limiter *ratelimit.Limiter, monitor *compliance.Monitor, log *logger.Logger) *CustomerServiceAgent {
	return &CustomerServiceAgent{baseAgent: newBaseAgent(AgentCustomerService, provider, limiter, monitor, log)}
}

const customerServiceSystemPrompt = `You are an expert customer service representative with deep knowledge of product support, billing, account management, technical support, returns and refunds, order tracking, and general inquiries. Acknowledge the customer's concern with empathy, provide specific actionable solutions, offer step-by-step guidance when applicable, suggest escalation options when needed, and always end with a clear next step or an offer of additional assistance.`

func (a *CustomerServiceAgent) Process(ctx context.Context, input string, history []ChatMessage) AgentResponse {
	start := time.Now()

	if strings.TrimSpace(input) == "" {
		return failedResponse(a.agentType, "Please provide a customer service request or question.", "empty request", start)
	}

	if IsAcknowledgment(input) {
		return successResponse(a.agentType, acknowledgmentReply(input), start)
	}

	prompt := fmt.Sprintf("CUSTOMER REQUEST: %s", input)

	content, err := a.completeWithModel(ctx, "", customerServiceSystemPrompt, prompt, history)
	if err != nil {
		return failedResponse(a.agentType, content, fmt.Sprintf("Customer service error: %v", err), start)
	}
	return successResponse(a.agentType, content, start)
}

// acknowledgmentReply picks a canned response matched to the flavor
// of acknowledgment the user sent.
func acknowledgmentReply(input string) string {
	lower := strings.ToLower(input)
	switch {
	case strings.Contains(lower, "thank"):
		return "You're very welcome! I'm glad I could help. If you have any other questions or need assistance with anything else, feel free to ask."
	case strings.Contains(lower, "ok") || strings.Contains(lower, "okay") ||
		strings.Contains(lower, "got it") || strings.Contains(lower, "understood"):
		return "Perfect! Let me know if you need anything else or have any questions."
	case strings.Contains(lower, "great") || strings.Contains(lower, "awesome") ||
		strings.Contains(lower, "nice") || strings.Contains(lower, "good") ||
		strings.Contains(lower, "perfect"):
		return "I'm glad you're satisfied! Is there anything else I can help you with today?"
	default:
		return "Thank you! How else can I assist you?"
	}
}

// AutomationAgent handles workflow and process automation requests.
type AutomationAgent struct {
	baseAgent
}

// NewAutomationAgent builds the automation agent.
func NewAutomationAgent(provider llm.Provider, limiter *ratelimit.Limiter, monitor *compliance.Monitor, log *logger.Logger) *AutomationAgent {
	return &AutomationAgent{baseAgent: newBaseAgent(AgentAutomation, provider, limiter, monitor, log)}
}

const automationSystemPrompt = `You are an expert automation engineer and workflow optimization specialist with expertise in business process automation, RPA, workflow design, scripting, system integration, ETL, and reporting automation. Provide process analysis, technology recommendations, step-by-step implementation guidance, code examples where applicable, integration points, error handling, monitoring advice, and ROI considerations. Format your response with clear sections and code blocks where appropriate.`

var automationThanksPhrases = []string{"thank you", "thanks", "appreciate it", "ok", "okay", "got it"}

func (a *AutomationAgent) Process(ctx context.Context, input string, history []ChatMessage) AgentResponse {
	start := time.Now()

	if strings.TrimSpace(input) == "" {
		return failedResponse(a.agentType, "Please provide a specific automation request or workflow optimization need.", "empty request", start)
	}

	lower := strings.ToLower(input)
	for _, phrase := range automationThanksPhrases {
		if strings.Contains(lower, phrase) {
			return successResponse(a.agentType,
				"You're welcome! If you have any more automation or workflow optimization needs, feel free to ask.", start)
		}
	}

	prompt := fmt.Sprintf("AUTOMATION REQUEST: %s", input)

	content, err := a.completeWithModel(ctx, "", automationSystemPrompt, prompt, history)
	if err != nil {
		return failedResponse(a.agentType, content, fmt.Sprintf("Automation error: %v", err), start)
	}
	return successResponse(a.agentType, content, start)
}
