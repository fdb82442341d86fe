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
	"time"

	"agentdesk/platform/orchestrator/compliance"
	"agentdesk/platform/orchestrator/llm"
	"agentdesk/platform/orchestrator/ratelimit"
	"agentdesk/platform/shared/logger"
)

// ContentType is the detected flavor of a content creation request.
type ContentType string

const (
	ContentBlogPost    ContentType = "blog_post"
	ContentSocialMedia ContentType = "social_media"
	ContentArticle     ContentType = "article"
	ContentMarketing   ContentType = "marketing_copy"
	ContentProductDesc ContentType = "product_description"
	ContentEmail       ContentType = "email_content"
	ContentGeneral     ContentType = "general"
)

// guidancePatterns mark requests asking how to create content rather
// than asking for the content itself.
var guidancePatterns = []string{
	"how to create", "how to write", "guide on", "steps to create",
	"steps to write", "tell me about creating", "how do i create",
	"how do i write", "what are the steps", "guide me through",
	"explain how to", "tutorial on", "tips for creating",
	"best practices for",
}

// topicPrefixes are the request framings stripped off when extracting
// the actual topic to write about.
var topicPrefixes = map[ContentType][]string{
	ContentBlogPost:    {"write a blog post about", "create a blog post about", "blog post on"},
	ContentSocialMedia: {"create a social media post about", "write a social media post for", "social media content for"},
	ContentArticle:     {"write an article about", "create an article on", "article on"},
	ContentMarketing:   {"create marketing copy about", "write marketing copy for", "marketing copy for"},
	ContentProductDesc: {"write a product description for", "create a product description for", "product description for"},
	ContentEmail:       {"write an email about", "create an email for", "email content for"},
	ContentGeneral:     {"create content about", "write about", "generate content on"},
}

// contentPrompts map each content type to the generation brief sent
// alongside the extracted topic.
var contentPrompts = map[ContentType]string{
	ContentBlogPost: `Create a comprehensive, engaging blog post on the topic. Do NOT deviate from this topic. Include a compelling SEO-optimized headline, an engaging introduction that hooks the reader, 5 to 7 key points with supporting evidence and examples, clear H2 and H3 subheadings, actionable tips, and a conclusion with a call to action. Target 800-1200 words in a professional yet engaging tone. Format with proper markdown.`,
	ContentSocialMedia: `Create an engaging social media post about the topic. Start with an attention-grabbing hook, keep it concise, use emojis and line breaks for readability, include 3-5 relevant hashtags, and end with a call to action. Use a conversational tone.`,
	ContentArticle: `Write a detailed article about the topic. Include a compelling headline, an executive summary, clear subheadings, in-depth analysis with examples, relevant statistics, and actionable takeaways. Target 1500-2000 words in a professional tone, optimized for SEO. Format with proper markdown structure.`,
	ContentMarketing: `Create compelling marketing copy about the topic. Focus on benefits and value proposition, use persuasive language, include social proof elements, create urgency without being pushy, and use clear calls to action. Keep it concise and optimized for conversion.`,
	ContentProductDesc: `Write a detailed product description for the topic. Start with a compelling overview, highlight key features and benefits, include technical specifications, focus on customer value and use cases, and end with a clear call to action. Use scannable formatting with bullet points.`,
	ContentEmail: `Create an effective email about the topic. Write an attention-grabbing subject line, use a personalized greeting, keep the message clear and focused on a single main point, include a clear call to action, and end with a professional sign-off. Optimize for mobile reading.`,
	ContentGeneral: `Create engaging content about the topic. Use clear language, structure the content logically, include relevant examples, maintain a consistent tone, and finish with a clear conclusion. Optimize for readability.`,
}

// ContentCreatorAgent generates written content and routes "how do I
// write X" questions to a guidance response instead.
type ContentCreatorAgent struct {
	baseAgent
}

// NewContentCreatorAgent builds the content creation agent.
func NewContentCreatorAgent(provider llm.Provider, limiter *ratelimit.Limiter, monitor *compliance.Monitor, log *logger.Logger) *ContentCreatorAgent {
	return &ContentCreatorAgent{baseAgent: newBaseAgent(AgentContentCreation, provider, limiter, monitor, log)}
}

const contentSystemPrompt = `You are a professional content writer and SEO expert.`

const guidanceSystemPrompt = `You are an expert content strategist and a helpful guide. Explain the process, best practices, and key considerations for creating the requested type of content rather than creating the content itself. Cover planning, structure, key elements, tone and style, recommended tools and tips, and optimization.`

func (a *ContentCreatorAgent) Process(ctx context.Context, input string, history []ChatMessage) AgentResponse {
	start := time.Now()

	if strings.TrimSpace(input) == "" {
		return failedResponse(a.agentType,
			"Please provide a specific content creation request (e.g., 'Write a blog post about AI trends', 'Create social media content for a product launch', 'Draft an email newsletter').",
			"empty request", start)
	}

	if isGuidanceRequest(input) {
		a.log.Info("", "", "Detected content guidance request", map[string]interface{}{
			"request": truncate(input, 100),
		})
		prompt := fmt.Sprintf("Provide step-by-step guidance on how to fulfill the following content creation request:\n\n%s", input)
		content, err := a.completeWithModel(ctx, "", guidanceSystemPrompt, prompt, history)
		if err != nil {
			return failedResponse(a.agentType, content, fmt.Sprintf("Content generation error: %v", err), start)
		}
		return successResponse(a.agentType,
			fmt.Sprintf("## Guidance on Content Creation\n\n%s\n\n---\n*Guidance by AgentDesk Content Creation Agent*", content), start)
	}

	contentType := DetectContentType(input)
	topic := ExtractContentTopic(input, contentType)
	a.log.Info("", "", "Detected content type", map[string]interface{}{
		"content_type": string(contentType),
		"topic":        truncate(topic, 100),
	})

	prompt := fmt.Sprintf("TOPIC: %s\n\n%s", topic, contentPrompts[contentType])

	content, err := a.completeWithModel(ctx, "", contentSystemPrompt, prompt, history)
	if err != nil {
		return failedResponse(a.agentType, content, fmt.Sprintf("Content generation error: %v", err), start)
	}

	enhanced := fmt.Sprintf("## Content Type: %s\n\n%s\n\n---\n*Generated by AgentDesk Content Creation Agent*",
		contentTypeTitle(contentType), content)
	return successResponse(a.agentType, enhanced, start)
}

// DetectContentType infers what kind of content a request is asking
// for from keyword cues, defaulting to general content.
func DetectContentType(request string) ContentType {
	lower := strings.ToLower(request)

	switch {
	case containsAny(lower, "blog", "blog post", "article post"):
		return ContentBlogPost
	case containsAny(lower, "social media", "tweet", "facebook", "instagram", "linkedin"):
		return ContentSocialMedia
	case containsAny(lower, "article", "news", "report"):
		return ContentArticle
	case containsAny(lower, "marketing", "advertisement", "ad copy", "sales"):
		return ContentMarketing
	case containsAny(lower, "product", "description", "feature"):
		return ContentProductDesc
	case containsAny(lower, "email", "newsletter", "message"):
		return ContentEmail
	default:
		return ContentGeneral
	}
}

// ExtractContentTopic strips the request framing ("write a blog post
// about ...") and leading filler so the model receives the bare topic.
func ExtractContentTopic(request string, contentType ContentType) string {
	lower := strings.ToLower(request)
	topic := request

	for _, prefix := range topicPrefixes[contentType] {
		if strings.HasPrefix(lower, prefix) {
			topic = strings.TrimSpace(request[len(prefix):])
			break
		}
	}

	for _, filler := range []string{"about ", "on "} {
		if strings.HasPrefix(strings.ToLower(topic), filler) {
			topic = strings.TrimSpace(topic[len(filler):])
		}
	}
	return topic
}

func isGuidanceRequest(input string) bool {
	if strings.HasPrefix(strings.TrimSpace(input), "HOW TO") {
		return true
	}
	lower := strings.ToLower(strings.TrimSpace(input))
	for _, pattern := range guidancePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func contentTypeTitle(t ContentType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
