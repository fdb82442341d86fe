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

// Package main is the entry point for the AgentDesk chat service.
//
// The service routes free-text requests to specialist agents (content
// creation, data analysis, customer service, automation), screens
// request content for compliance violations, rate limits upstream
// model calls, and persists chat history.
//
// Usage:
//
//	./server
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	GEMINI_API_KEY - Gemini API key (stub provider when unset)
//	MONGO_URI - MongoDB connection string (offline mode when unset)
//	REDIS_URL - shared rate limit window (optional)
//	JWT_SECRET - enables bearer-token auth on /api/v1 (optional)
//	COMPLIANCE_EXPORT_BUCKET - S3 bucket for export archiving (optional)
package main

import (
	"log"

	"agentdesk/platform/orchestrator"
)

func main() {
	if err := orchestrator.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
