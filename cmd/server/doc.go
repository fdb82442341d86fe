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

/*
Command server runs the AgentDesk chat service.

The service classifies each incoming request into one of four
specialist agents, screens content for prohibited patterns, rate
limits upstream model calls across sliding minute, hour, and day
windows, and records every interaction for compliance reporting.

# Usage

	server

# Environment Variables

Optional:
  - PORT: HTTP server port (default: 8080)
  - ENVIRONMENT: production or development (default: production)
  - GEMINI_API_KEY: Gemini API key; the offline stub provider answers
    when unset
  - MONGO_URI: MongoDB connection string; persistence degrades to
    no-ops when unset
  - REDIS_URL: Redis URL for a shared rate limit window across replicas
  - JWT_SECRET: enables bearer-token authentication on /api/v1
  - COMPLIANCE_LOG_DIR: directory for daily compliance JSONL files
  - COMPLIANCE_EXPORT_BUCKET: S3 bucket for archived exports

# Example

	export GEMINI_API_KEY="..."
	export MONGO_URI="mongodb://localhost:27017"
	./server
*/
package main
