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

package compliance

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ViolationType categorizes the prohibited content classes the
// validator screens for before any model call.
type ViolationType string

const (
	ViolationSSN           ViolationType = "ssn"
	ViolationCreditCard    ViolationType = "credit_card"
	ViolationEmail         ViolationType = "email"
	ViolationIPAddress     ViolationType = "ip_address"
	ViolationCredential    ViolationType = "credential"
	ViolationHarmfulIntent ViolationType = "harmful_intent"
	ViolationMaliciousTerm ViolationType = "malicious_term"
	ViolationSpam          ViolationType = "spam"
	ViolationLength        ViolationType = "excessive_length"
)

// DefaultMaxContentLength is the content length above which a request
// is flagged regardless of its text.
const DefaultMaxContentLength = 50000

// contentPattern is one compiled screen applied to incoming content.
// Validator, when set, filters regex matches to cut false positives
// and returns (isValid, confidence).
type contentPattern struct {
	Type        ViolationType
	Pattern     *regexp.Regexp
	Description string
	Validator   func(match string) (bool, float64)
}

// Validator is a stateless content classifier. It scans a request
// string against a fixed set of prohibited patterns and reports every
// match as a human-readable violation. Safe for concurrent use.
type Validator struct {
	patterns         []*contentPattern
	maxContentLength int
}

// ValidatorConfig configures the content validator.
type ValidatorConfig struct {
	// MaxContentLength flags content longer than this many characters.
	// Zero means DefaultMaxContentLength.
	MaxContentLength int
}

// NewValidator creates a content validator with the full pattern set.
func NewValidator(cfg ValidatorConfig) *Validator {
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = DefaultMaxContentLength
	}
	return &Validator{
		patterns:         loadContentPatterns(),
		maxContentLength: cfg.MaxContentLength,
	}
}

func loadContentPatterns() []*contentPattern {
	return []*contentPattern{
		// US Social Security Number
		{
			Type:        ViolationSSN,
			Pattern:     regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			Description: "SSN-like number sequence",
			Validator:   validateSSN,
		},
		// Bare 16-digit sequence, Luhn-checked so random ids pass
		{
			Type:        ViolationCreditCard,
			Pattern:     regexp.MustCompile(`\b\d{16}\b|\b\d{4}[- ]\d{4}[- ]\d{4}[- ]\d{4}\b`),
			Description: "credit-card-like 16-digit number",
			Validator:   validateCardNumber,
		},
		// Email address
		{
			Type:        ViolationEmail,
			Pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`),
			Description: "email address",
		},
		// IPv4 address
		{
			Type:        ViolationIPAddress,
			Pattern:     regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
			Description: "IPv4 address",
		},
		// Credential-looking key=value pairs
		{
			Type:        ViolationCredential,
			Pattern:     regexp.MustCompile(`(?i)\b(?:password|passwd|api[_\-]?key|secret|token|auth)\s*[=:]\s*\S+`),
			Description: "credential-like key/value pair",
		},
		// Violent or hateful keywords
		{
			Type:        ViolationHarmfulIntent,
			Pattern:     regexp.MustCompile(`(?i)\b(?:hate|nazi|terrorist|kill|murder|bomb|weapon)\b`),
			Description: "violent or hateful keyword",
		},
		// Malicious-intent keywords
		{
			Type:        ViolationMaliciousTerm,
			Pattern:     regexp.MustCompile(`(?i)\b(?:hack|exploit|vulnerability|malware|virus)\b`),
			Description: "security-sensitive keyword",
		},
		// Spam trigger phrases
		{
			Type:        ViolationSpam,
			Pattern:     regexp.MustCompile(`(?i)\b(?:buy now|click here|limited time offer|act now|winner!+|100% free|make money fast)\b`),
			Description: "spam trigger phrase",
		},
	}
}

// ValidateContent checks content against the prohibited pattern table.
// It returns true with an empty violation list when the content is
// clean. Pure function over the input and the static pattern table.
func (v *Validator) ValidateContent(content string) (bool, []string) {
	var violations []string

	if content == "" {
		return true, nil
	}

	for _, p := range v.patterns {
		matches := p.Pattern.FindAllString(content, -1)
		for _, match := range matches {
			if p.Validator != nil {
				if ok, _ := p.Validator(match); !ok {
					continue
				}
			}
			violations = append(violations,
				fmt.Sprintf("Potential prohibited content detected: %s (%s)", p.Description, p.Type))
			break
		}
	}

	if len(content) > v.maxContentLength {
		violations = append(violations, "Request content exceeds recommended length")
	}

	return len(violations) == 0, violations
}

// HasViolation quickly checks whether content matches any prohibited
// pattern, without building the violation list.
func (v *Validator) HasViolation(content string) bool {
	ok, _ := v.ValidateContent(content)
	return !ok
}

// validateSSN screens SSN-shaped matches. Any match is treated as an
// SSN; a structurally issuable number raises confidence. Area 000,
// 666 and 900-999 are never issued, nor are all-zero group or serial
// parts.
func validateSSN(match string) (bool, float64) {
	clean := digitsOnly(match)
	if len(clean) != 9 {
		return false, 0
	}

	area := clean[0:3]
	group := clean[3:5]
	serial := clean[5:9]

	if area == "000" || area == "666" || area[0] == '9' ||
		group == "00" || serial == "0000" {
		return true, 0.6
	}

	return true, 0.9
}

// validateCardNumber screens 16-digit matches. Any 16-digit sequence
// is treated as card-like; a passing Luhn checksum raises confidence.
func validateCardNumber(match string) (bool, float64) {
	clean := digitsOnly(match)
	if len(clean) != 16 {
		return false, 0
	}

	sum := 0
	double := false
	for i := len(clean) - 1; i >= 0; i-- {
		digit := int(clean[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	if sum%10 == 0 {
		return true, 0.95
	}
	return true, 0.6
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
