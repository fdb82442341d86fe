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

/*
Package orchestrator routes chat requests to specialized AI agents and
enforces the platform guardrails around every model call.

# Overview

The orchestrator receives a chat message, decides which agent should
handle it, and runs that agent's model pipeline:

  - Keyword-based classification into analysis, customer service,
    automation, and content creation agents
  - Acknowledgment detection so "thanks" and friends get a canned
    reply without a model call
  - Rate limiting with sliding minute, hour, and day windows plus an
    optional Redis-backed window shared across replicas
  - Content compliance screening with violation logging and daily
    JSONL audit files
  - Best-effort chat persistence to MongoDB; persistence failures
    never fail a request

# Architecture

	Client -> HTTP API -> Orchestrator -> Agent -> llm.Provider
	                          |             |
	                          |             +-> ratelimit.Limiter
	                          |             +-> compliance.Monitor
	                          +-> store.ChatStore (best effort)

Agents share one Limiter and one Monitor so usage and compliance are
accounted for globally, not per agent. Model access goes through the
llm.Provider interface; production uses the Gemini provider and tests
use llm.StubProvider.

# HTTP API

Routes are defined in Server.Routes. The /api/v1 subtree is protected
by bearer-token auth when a JWT secret is configured. Prometheus
metrics are served on /prometheus and a health summary on /health.

# Usage

	provider, err := gemini.NewProvider(gemini.Config{APIKey: key})
	// handle err
	limiter := ratelimit.New(ratelimit.DefaultConfig(), validator, log)
	monitor, err := compliance.NewMonitor(logDir, log)
	// handle err
	orch := orchestrator.New(provider, limiter, monitor, chatStore, log)

	resp := orch.RouteRequest(ctx, "Write a blog post about Go", "", sessionID, nil)

Run wires all of the above from environment configuration and starts
the HTTP server; cmd/server is a thin wrapper around it.
*/
package orchestrator
