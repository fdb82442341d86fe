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
	"net/http"

	"github.com/rs/cors"

	"agentdesk/platform/config"
	"agentdesk/platform/orchestrator/compliance"
	"agentdesk/platform/orchestrator/llm"
	"agentdesk/platform/orchestrator/llm/gemini"
	"agentdesk/platform/orchestrator/ratelimit"
	"agentdesk/platform/shared/logger"
	"agentdesk/platform/store"
)

// Run is the exported entry point for the chat service.
//
// It loads configuration, wires the compliance validator, rate
// limiter, monitor, model provider, store, and agents together, sets
// up HTTP routes, and blocks serving requests.
//
// Environment variables used:
//   - PORT: HTTP server port (default: 8080)
//   - GEMINI_API_KEY: Gemini API key (stub provider when unset)
//   - MONGO_URI: MongoDB connection string (offline mode when unset)
//   - JWT_SECRET: enables bearer-token auth on /api/v1 when set
//   - COMPLIANCE_EXPORT_BUCKET: enables S3 export archiving when set
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New("orchestrator")
	log.Info("", "", "Starting AgentDesk orchestrator", map[string]interface{}{
		"environment": cfg.Environment,
		"port":        cfg.Port,
	})

	ctx := context.Background()

	validator := compliance.NewValidator(compliance.ValidatorConfig{
		MaxContentLength: cfg.Compliance.MaxContentLength,
	})

	monitor, err := compliance.NewMonitor(cfg.ComplianceLogDir, logger.New("compliance"))
	if err != nil {
		return fmt.Errorf("failed to initialize compliance monitor: %w", err)
	}

	var limiterValidator *compliance.Validator
	if cfg.Compliance.EnableContentFiltering {
		limiterValidator = validator
	}
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerMinute:     cfg.RateLimit.RequestsPerMinute,
		RequestsPerHour:       cfg.RateLimit.RequestsPerHour,
		RequestsPerDay:        cfg.RateLimit.RequestsPerDay,
		MinRequestInterval:    cfg.RateLimit.MinRequestInterval,
		EnableComplianceCheck: cfg.Compliance.EnableContentFiltering,
		DisableWindowChecks:   !cfg.RateLimit.Enabled,
	}, limiterValidator, logger.New("ratelimit"))
	if !cfg.RateLimit.Enabled {
		log.Warn("", "", "Rate limiting disabled by configuration", nil)
	}

	// Shared minute window across replicas when Redis is configured.
	if cfg.RateLimit.Enabled && cfg.RedisURL != "" {
		shared, err := ratelimit.NewSharedWindow(cfg.RedisURL, cfg.RateLimit.RequestsPerMinute, logger.New("ratelimit"))
		if err != nil {
			log.Warn("", "", "Shared rate limit window unavailable, using local windows only", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer func() {
				_ = shared.Close()
			}()
			limiter.SetSharedWindow(shared)
			log.Info("", "", "Shared rate limit window enabled", nil)
		}
	}

	provider := buildProvider(cfg, log)
	log.Info("", "", "Model provider initialized", map[string]interface{}{
		"provider": provider.Name(),
	})

	chatStore := store.NewChatStore(ctx, cfg.MongoURI, cfg.MongoDatabase, logger.New("store"))
	defer func() {
		_ = chatStore.Close(ctx)
	}()

	orch := New(provider, limiter, monitor, chatStore, log)

	var archiver *ExportArchiver
	if cfg.ExportBucket != "" {
		archiver, err = NewExportArchiver(ctx, cfg.ExportBucket, cfg.ExportRegion, logger.New("export-archiver"))
		if err != nil {
			log.Warn("", "", "Export archiving unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			archiver = nil
		}
	}

	server := NewServer(orch, archiver, logger.New("api"))
	router := server.Routes(cfg.JWTSecret)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info("", "", "AgentDesk orchestrator listening", map[string]interface{}{
		"addr": addr,
	})
	return http.ListenAndServe(addr, c.Handler(router))
}

// buildProvider selects the model backend: Gemini when an API key is
// configured, otherwise the offline stub so the service still answers.
func buildProvider(cfg *config.Config, log *logger.Logger) llm.Provider {
	if cfg.GeminiAPIKey == "" {
		log.Warn("", "", "GEMINI_API_KEY not set, using stub model provider", nil)
		return llm.NewStubProvider()
	}

	provider, err := gemini.NewProvider(gemini.Config{
		APIKey:         cfg.GeminiAPIKey,
		Model:          cfg.GeminiModel,
		MaxRetries:     cfg.Retry.MaxRetries,
		RetryBaseDelay: cfg.Retry.BaseDelay,
		RetryMaxDelay:  cfg.Retry.MaxDelay,
	})
	if err != nil {
		log.Warn("", "", "Failed to initialize Gemini provider, using stub", map[string]interface{}{
			"error": err.Error(),
		})
		return llm.NewStubProvider()
	}
	return provider
}
