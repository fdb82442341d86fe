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

// Package config loads AgentDesk service configuration from environment
// variables, with an optional YAML file overlay. Every knob has a
// conservative hard-coded default so the service starts with no
// configuration at all (stub model, offline store, strict limits).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment profiles. Development relaxes the rate limits for local
// iteration; production keeps them well under typical vendor quotas.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the root configuration for the AgentDesk service.
type Config struct {
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`

	// Model vendor settings.
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
	ProjectID    string `yaml:"project_id"`

	// Persistence and shared-state backends. Empty values mean the
	// corresponding integration runs in offline / local mode.
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
	RedisURL      string `yaml:"redis_url"`

	// API auth. When JWTSecret is empty the API is unauthenticated.
	JWTSecret string `yaml:"jwt_secret"`

	// Compliance audit log directory and optional S3 archive bucket
	// for exported compliance documents.
	ComplianceLogDir string `yaml:"compliance_log_dir"`
	ExportBucket     string `yaml:"export_bucket"`
	ExportRegion     string `yaml:"export_region"`

	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Compliance ComplianceConfig `yaml:"compliance"`
	Retry      RetryConfig      `yaml:"retry"`
}

// RateLimitConfig holds the sliding-window limits applied to model calls.
type RateLimitConfig struct {
	RequestsPerMinute  int           `yaml:"requests_per_minute"`
	RequestsPerHour    int           `yaml:"requests_per_hour"`
	RequestsPerDay     int           `yaml:"requests_per_day"`
	MinRequestInterval time.Duration `yaml:"min_request_interval"`
	Enabled            bool          `yaml:"enabled"`
}

// ComplianceConfig holds content-filtering and usage-logging knobs.
type ComplianceConfig struct {
	MaxContentLength       int  `yaml:"max_content_length"`
	MaxPromptLength        int  `yaml:"max_prompt_length"`
	EnableContentFiltering bool `yaml:"enable_content_filtering"`
	EnableUsageLogging     bool `yaml:"enable_usage_logging"`
	EnableQuotaMonitoring  bool `yaml:"enable_quota_monitoring"`
}

// RetryConfig bounds retries of the underlying model call.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// Default limit profiles. Production stays conservative relative to
// vendor free-tier quotas; development is looser for local work.
var (
	productionLimits = RateLimitConfig{
		RequestsPerMinute:  10,
		RequestsPerHour:    100,
		RequestsPerDay:     1000,
		MinRequestInterval: 2 * time.Second,
		Enabled:            true,
	}

	developmentLimits = RateLimitConfig{
		RequestsPerMinute:  30,
		RequestsPerHour:    500,
		RequestsPerDay:     5000,
		MinRequestInterval: 500 * time.Millisecond,
		Enabled:            true,
	}
)

// Load builds the configuration from the environment. If CONFIG_FILE is
// set, that YAML file is read first and environment variables override
// its values.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	// Environment profile decides limits only where the operator did
	// not set them explicitly.
	if cfg.Environment == EnvDevelopment && !limitsOverridden() {
		cfg.RateLimit = developmentLimits
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Environment:      EnvProduction,
		Port:             8080,
		GeminiModel:      "gemini-2.0-flash",
		MongoDatabase:    "agentdesk",
		ComplianceLogDir: "compliance_logs",
		RateLimit:        productionLimits,
		Compliance: ComplianceConfig{
			MaxContentLength:       50000,
			MaxPromptLength:        10000,
			EnableContentFiltering: true,
			EnableUsageLogging:     true,
			EnableQuotaMonitoring:  true,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
		},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Environment, "ENVIRONMENT")
	setInt(&cfg.Port, "PORT")

	setString(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.GeminiModel, "GEMINI_MODEL")
	setString(&cfg.ProjectID, "PROJECT_ID")

	setString(&cfg.MongoURI, "MONGO_URI")
	setString(&cfg.MongoDatabase, "MONGO_DATABASE")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.JWTSecret, "JWT_SECRET")

	setString(&cfg.ComplianceLogDir, "COMPLIANCE_LOG_DIR")
	setString(&cfg.ExportBucket, "COMPLIANCE_EXPORT_BUCKET")
	setString(&cfg.ExportRegion, "COMPLIANCE_EXPORT_REGION")

	setInt(&cfg.RateLimit.RequestsPerMinute, "API_REQUESTS_PER_MINUTE")
	setInt(&cfg.RateLimit.RequestsPerHour, "API_REQUESTS_PER_HOUR")
	setInt(&cfg.RateLimit.RequestsPerDay, "API_REQUESTS_PER_DAY")
	setDuration(&cfg.RateLimit.MinRequestInterval, "API_MIN_INTERVAL")
	setBool(&cfg.RateLimit.Enabled, "ENABLE_RATE_LIMITING")

	setInt(&cfg.Compliance.MaxContentLength, "MAX_CONTENT_LENGTH")
	setInt(&cfg.Compliance.MaxPromptLength, "MAX_PROMPT_LENGTH")
	setBool(&cfg.Compliance.EnableContentFiltering, "ENABLE_CONTENT_FILTERING")
	setBool(&cfg.Compliance.EnableUsageLogging, "ENABLE_USAGE_LOGGING")
	setBool(&cfg.Compliance.EnableQuotaMonitoring, "ENABLE_QUOTA_MONITORING")

	setInt(&cfg.Retry.MaxRetries, "MAX_RETRIES")
	setDuration(&cfg.Retry.BaseDelay, "RETRY_BASE_DELAY")
	setDuration(&cfg.Retry.MaxDelay, "RETRY_MAX_DELAY")

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
}

// limitsOverridden reports whether any rate-limit env var is set,
// in which case the environment profile must not clobber it.
func limitsOverridden() bool {
	for _, key := range []string{
		"API_REQUESTS_PER_MINUTE",
		"API_REQUESTS_PER_HOUR",
		"API_REQUESTS_PER_DAY",
		"API_MIN_INTERVAL",
	} {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive, got %d", c.RateLimit.RequestsPerMinute)
	}
	if c.RateLimit.RequestsPerHour < c.RateLimit.RequestsPerMinute {
		return fmt.Errorf("requests_per_hour (%d) must be >= requests_per_minute (%d)",
			c.RateLimit.RequestsPerHour, c.RateLimit.RequestsPerMinute)
	}
	if c.RateLimit.RequestsPerDay < c.RateLimit.RequestsPerHour {
		return fmt.Errorf("requests_per_day (%d) must be >= requests_per_hour (%d)",
			c.RateLimit.RequestsPerDay, c.RateLimit.RequestsPerHour)
	}
	if c.Compliance.MaxContentLength <= 0 {
		return fmt.Errorf("max_content_length must be positive, got %d", c.Compliance.MaxContentLength)
	}
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("unknown environment %q (expected %q or %q)",
			c.Environment, EnvDevelopment, EnvProduction)
	}
	return nil
}

// IsDevelopment reports whether the service runs with the development profile.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// setDuration accepts Go duration strings ("2s", "500ms") and, for
// compatibility with older deployments, bare numbers meaning seconds.
func setDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(f * float64(time.Second))
	}
}
