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
	"time"

	"github.com/google/uuid"

	"agentdesk/platform/orchestrator/compliance"
	"agentdesk/platform/orchestrator/llm"
	"agentdesk/platform/orchestrator/ratelimit"
	"agentdesk/platform/shared/logger"
	"agentdesk/platform/store"
)

// performanceReporter is implemented by agents that track rolling
// metrics. All built-in agents do through baseAgent.
type performanceReporter interface {
	Performance() PerformanceMetrics
}

// Orchestrator owns the agent set, classifies incoming requests, and
// dispatches them. Persistence is best-effort: a dead store never
// fails a request.
type Orchestrator struct {
	agents  map[AgentType]Agent
	store   *store.ChatStore
	limiter *ratelimit.Limiter
	monitor *compliance.Monitor
	log     *logger.Logger
}

// New builds an orchestrator with the four standard agents, all
// sharing a single provider, limiter, and compliance monitor.
func New(provider llm.Provider, limiter *ratelimit.Limiter, monitor *compliance.Monitor, chatStore *store.ChatStore, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.New("orchestrator")
	}

	agents := map[AgentType]Agent{
		AgentDataAnalysis:    NewAnalysisAgent(provider, limiter, monitor, log),
		AgentCustomerService: NewCustomerServiceAgent(provider, limiter, monitor, log),
		AgentAutomation:      NewAutomationAgent(provider, limiter, monitor, log),
		AgentContentCreation: NewContentCreatorAgent(provider, limiter, monitor, log),
	}

	return &Orchestrator{
		agents:  agents,
		store:   chatStore,
		limiter: limiter,
		monitor: monitor,
		log:     log,
	}
}

// RouteRequest classifies the request (unless agentType pins it),
// dispatches to the chosen agent, and persists the interaction. It
// never returns an error to the caller: every failure mode becomes a
// Success=false response.
func (o *Orchestrator) RouteRequest(ctx context.Context, request string, agentType AgentType, sessionID string, history []ChatMessage) AgentResponse {
	start := time.Now()
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if isBlank(request) {
		return AgentResponse{
			Content:       "Please provide a valid request.",
			Success:       false,
			ErrorMessage:  "Empty request provided",
			ExecutionTime: time.Since(start).Seconds(),
		}
	}

	if agentType == "" {
		if IsAcknowledgment(request) {
			// Acknowledgments skip scoring entirely; the customer
			// service agent answers them without a model call.
			agentType = AgentCustomerService
			o.log.Info(sessionID, "", "Detected acknowledgment", nil)
		} else {
			detected, scores := Classify(request)
			agentType = detected
			o.log.Info(sessionID, "", "Classified request", map[string]interface{}{
				"agent_type": string(agentType),
				"score":      scores[agentType],
			})
		}
	}

	agent, ok := o.agents[agentType]
	if !ok {
		response := AgentResponse{
			Success:       false,
			AgentType:     string(agentType),
			ErrorMessage:  fmt.Sprintf("Agent %s is not available", agentType),
			ExecutionTime: time.Since(start).Seconds(),
		}
		o.saveInteraction(ctx, sessionID, request, response)
		return response
	}

	response := o.dispatch(ctx, agent, request, history)
	response.AgentType = string(agentType)
	response.ExecutionTime = time.Since(start).Seconds()

	o.saveInteraction(ctx, sessionID, request, response)

	o.log.InfoWithDuration(sessionID, "", "Request processed",
		float64(time.Since(start).Milliseconds()), map[string]interface{}{
			"agent_type":     string(agentType),
			"success":        response.Success,
			"content_length": len(response.Content),
		})
	return response
}

// dispatch shields the caller from agent panics: a panicking agent
// yields a failed response, not a dead request.
func (o *Orchestrator) dispatch(ctx context.Context, agent Agent, request string, history []ChatMessage) (response AgentResponse) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("", "", "Agent panicked while processing request", map[string]interface{}{
				"agent_type": string(agent.Type()),
				"panic":      fmt.Sprint(r),
			})
			response = AgentResponse{
				Success:      false,
				AgentType:    string(agent.Type()),
				ErrorMessage: fmt.Sprintf("Routing error: agent panic: %v", r),
			}
		}
	}()
	return agent.Process(ctx, request, history)
}

func (o *Orchestrator) saveInteraction(ctx context.Context, sessionID, request string, response AgentResponse) {
	if o.store == nil {
		return
	}

	responseDoc := map[string]interface{}{
		"content":        response.Content,
		"success":        response.Success,
		"agent_type":     response.AgentType,
		"execution_time": response.ExecutionTime,
		"error":          firstNonEmpty(response.ErrorMessage, response.Error),
	}
	metadata := map[string]interface{}{
		"request_length":  len(request),
		"response_length": len(response.Content),
	}

	if _, err := o.store.SaveChatHistory(ctx, sessionID, request, responseDoc, response.AgentType, metadata); err != nil {
		o.log.ErrorWithErr(sessionID, "", "Failed to save interaction", err, nil)
	}
}

// GetChatHistory returns persisted turns for a session, newest first.
func (o *Orchestrator) GetChatHistory(ctx context.Context, sessionID string, limit int, startAfter string) ([]store.ChatRecord, error) {
	if o.store == nil {
		return []store.ChatRecord{}, nil
	}
	return o.store.GetChatHistory(ctx, sessionID, limit, startAfter)
}

// GetAgentStats aggregates persisted outcomes, either for one agent
// type or for all of them.
func (o *Orchestrator) GetAgentStats(ctx context.Context, agentType string, startDate, endDate *time.Time) (map[string]store.AgentStats, error) {
	stats := map[string]store.AgentStats{}
	if o.store == nil {
		return stats, nil
	}

	if agentType != "" {
		s, err := o.store.GetAgentStats(ctx, agentType, startDate, endDate)
		if err != nil {
			return nil, err
		}
		stats[agentType] = s
		return stats, nil
	}

	for t := range o.agents {
		s, err := o.store.GetAgentStats(ctx, string(t), startDate, endDate)
		if err != nil {
			return nil, err
		}
		stats[string(t)] = s
	}
	return stats, nil
}

// GetActiveSessions lists recent active sessions.
func (o *Orchestrator) GetActiveSessions(ctx context.Context, agentType string, limit int) ([]store.SessionRecord, error) {
	if o.store == nil {
		return []store.SessionRecord{}, nil
	}
	return o.store.GetActiveSessions(ctx, agentType, limit)
}

// GetAvailableAgents returns the agent type names in canonical order.
func (o *Orchestrator) GetAvailableAgents() []string {
	names := make([]string, 0, len(o.agents))
	for _, t := range AllAgentTypes {
		if _, ok := o.agents[t]; ok {
			names = append(names, string(t))
		}
	}
	return names
}

// UsageStats exposes the shared limiter's current usage snapshot.
func (o *Orchestrator) UsageStats() ratelimit.UsageStats {
	if o.limiter == nil {
		return ratelimit.UsageStats{}
	}
	return o.limiter.UsageStats()
}

// Monitor exposes the compliance monitor for reporting endpoints.
func (o *Orchestrator) Monitor() *compliance.Monitor {
	return o.monitor
}

// PerformanceReport returns the rolling in-process metrics for every
// agent that tracks them.
func (o *Orchestrator) PerformanceReport() map[string]PerformanceMetrics {
	report := map[string]PerformanceMetrics{}
	for t, agent := range o.agents {
		if pr, ok := agent.(performanceReporter); ok {
			report[string(t)] = pr.Performance()
		}
	}
	return report
}

// HealthCheck reports orchestrator, agent, and store health. The
// system degrades rather than fails: a missing store or an empty
// agent set lowers the status but the endpoint still answers.
func (o *Orchestrator) HealthCheck(ctx context.Context) map[string]interface{} {
	agents := map[string]interface{}{}
	for t := range o.agents {
		agents[string(t)] = map[string]interface{}{"status": "healthy"}
	}

	database := "unavailable"
	if o.store != nil && o.store.Online() {
		database = "available"
	}

	status := "healthy"
	if len(o.agents) == 0 {
		status = "degraded"
	}

	health := map[string]interface{}{
		"system_status": status,
		"agents":        agents,
		"database":      database,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}

	if o.store != nil && o.store.Online() {
		for t := range o.agents {
			if err := o.store.UpdateAgentStatus(ctx, string(t), "healthy", nil); err != nil {
				o.log.ErrorWithErr("", "", "Failed to update agent status", err, map[string]interface{}{
					"agent_type": string(t),
				})
			}
		}
	}
	return health
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
