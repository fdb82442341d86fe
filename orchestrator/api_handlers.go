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
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agentdesk/platform/shared/logger"
)

// Server exposes the orchestrator over HTTP.
type Server struct {
	orch     *Orchestrator
	archiver *ExportArchiver
	log      *logger.Logger
}

// NewServer builds the HTTP layer. archiver may be nil; exports then
// stay local only.
func NewServer(orch *Orchestrator, archiver *ExportArchiver, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New("api")
	}
	return &Server{orch: orch, archiver: archiver, log: log}
}

// Routes builds the request router. jwtSecret enables bearer-token
// authentication on the /api/v1 subtree when non-empty.
func (s *Server) Routes(jwtSecret string) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.Handle("/prometheus", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(jwtSecret))

	api.HandleFunc("/chat", s.chatHandler).Methods("POST")
	api.HandleFunc("/usage", s.usageHandler).Methods("GET")
	api.HandleFunc("/compliance/report", s.complianceReportHandler).Methods("GET")
	api.HandleFunc("/compliance/summary", s.complianceSummaryHandler).Methods("GET")
	api.HandleFunc("/compliance/export", s.complianceExportHandler).Methods("POST")
	api.HandleFunc("/sessions", s.activeSessionsHandler).Methods("GET")
	api.HandleFunc("/sessions/{id}/history", s.sessionHistoryHandler).Methods("GET")
	api.HandleFunc("/agents", s.agentsHandler).Methods("GET")
	api.HandleFunc("/agents/stats", s.agentStatsHandler).Methods("GET")
	api.HandleFunc("/agents/performance", s.agentPerformanceHandler).Methods("GET")

	return r
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	agentType := AgentType(req.AgentType)
	if req.AgentType != "" && !agentType.Valid() {
		s.sendError(w, "Unknown agent_type: "+req.AgentType, http.StatusBadRequest)
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	response := s.orch.RouteRequest(r.Context(), req.Message, agentType, sessionID, req.History)

	status := "success"
	if !response.Success {
		status = "failed"
	}
	promRequestsTotal.WithLabelValues(response.AgentType, status).Inc()
	promRequestDuration.WithLabelValues(response.AgentType).
		Observe(float64(time.Since(start).Milliseconds()))

	s.sendJSON(w, http.StatusOK, ChatResponse{
		SessionID: sessionID,
		Response:  response,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) usageHandler(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.orch.UsageStats())
}

func (s *Server) complianceReportHandler(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			s.sendError(w, "days must be an integer between 1 and 365", http.StatusBadRequest)
			return
		}
		days = n
	}
	s.sendJSON(w, http.StatusOK, s.orch.Monitor().GenerateReport(days))
}

func (s *Server) complianceSummaryHandler(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.sendError(w, "date must be formatted YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}
	summary := s.orch.Monitor().DailySummaryFor(date)
	summary.Date = date.Format("2006-01-02")
	s.sendJSON(w, http.StatusOK, summary)
}

type exportRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Archive   bool   `json:"archive,omitempty"`
}

type exportResponse struct {
	Export     *json.RawMessage `json:"export,omitempty"`
	ArchiveKey string           `json:"archive_key,omitempty"`
	Events     int              `json:"total_events"`
}

func (s *Server) complianceExportHandler(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		s.sendError(w, "start_date must be formatted YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		s.sendError(w, "end_date must be formatted YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	doc, err := s.orch.Monitor().Export(start, end)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := exportResponse{Events: doc.ExportMetadata.TotalEvents}

	if req.Archive {
		if s.archiver == nil {
			s.sendError(w, "Export archiving is not configured", http.StatusConflict)
			return
		}
		key, err := s.archiver.Archive(r.Context(), doc)
		if err != nil {
			s.log.ErrorWithErr("", "", "Failed to archive compliance export", err, nil)
			s.sendError(w, "Failed to archive export", http.StatusBadGateway)
			return
		}
		resp.ArchiveKey = key
	} else {
		data, err := json.Marshal(doc)
		if err != nil {
			s.sendError(w, "Failed to encode export", http.StatusInternalServerError)
			return
		}
		raw := json.RawMessage(data)
		resp.Export = &raw
	}

	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) activeSessionsHandler(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 100)
	agentType := r.URL.Query().Get("agent_type")

	sessions, err := s.orch.GetActiveSessions(r.Context(), agentType, limit)
	if err != nil {
		s.sendError(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (s *Server) sessionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	limit := parseIntQuery(r, "limit", 50)
	startAfter := r.URL.Query().Get("start_after")

	history, err := s.orch.GetChatHistory(r.Context(), sessionID, limit, startAfter)
	if err != nil {
		s.sendError(w, "Failed to load chat history", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"history":    history,
	})
}

func (s *Server) agentsHandler(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]interface{}{
		"agents": s.orch.GetAvailableAgents(),
	})
}

func (s *Server) agentStatsHandler(w http.ResponseWriter, r *http.Request) {
	var startDate, endDate *time.Time
	if v := r.URL.Query().Get("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.sendError(w, "start_date must be formatted YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		startDate = &t
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			s.sendError(w, "end_date must be formatted YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		endDate = &t
	}

	stats, err := s.orch.GetAgentStats(r.Context(), r.URL.Query().Get("agent_type"), startDate, endDate)
	if err != nil {
		s.sendError(w, "Failed to load agent stats", http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, http.StatusOK, stats)
}

func (s *Server) agentPerformanceHandler(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.orch.PerformanceReport())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.orch.HealthCheck(r.Context()))
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.ErrorWithErr("", "", "Error encoding response", err, nil)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, status int) {
	s.sendJSON(w, status, map[string]string{"error": message})
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
