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

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics
var (
	promRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentdesk_orchestrator_requests_total",
			Help: "Total number of chat requests processed by the orchestrator",
		},
		[]string{"agent_type", "status"},
	)
	promRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentdesk_orchestrator_request_duration_milliseconds",
			Help:    "Request duration in milliseconds",
			Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000},
		},
		[]string{"agent_type"},
	)
	promRateLimitRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agentdesk_orchestrator_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
	promComplianceViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agentdesk_orchestrator_compliance_violations_total",
			Help: "Total number of requests rejected for compliance violations",
		},
	)
)

func init() {
	prometheus.MustRegister(promRequestsTotal)
	prometheus.MustRegister(promRequestDuration)
	prometheus.MustRegister(promRateLimitRejections)
	prometheus.MustRegister(promComplianceViolations)
}
