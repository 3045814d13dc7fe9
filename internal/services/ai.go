package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/collabspace/server/internal/config"
	"github.com/collabspace/server/pkg/logger"
)

// AIMention is the trigger token that routes a room message to the assistant.
const AIMention = "@ai"

const maxBackoff = 30 * time.Second

const chatSystemPrompt = `You are a helpful assistant inside a collaborative workspace.
Respond with a single JSON object: {"type":"chat","text":"<your reply>"}.
Keep replies concise and conversational. Output only the JSON object.`

const explanationSystemPrompt = `You are a technical assistant inside a collaborative workspace.
Respond with a single JSON object: {"type":"explanation","text":"<your explanation>"}.
Explain clearly, step by step where that helps. Output only the JSON object.`

const codeSystemPrompt = `You are a code-generation assistant inside a collaborative workspace.
Respond with a single JSON object of this shape:
{"type":"code","text":"<summary of what you built>","fileTree":{"<path>":{"contents":"<full file contents>"}},"buildCommand":"<command>","startCommand":"<command>"}
Every fileTree entry must contain the complete file. Output only the JSON object.`

var codeIntentRegex = regexp.MustCompile(`(?i)\b(write|generate|create|build|implement|scaffold|code|program|script|function|class|component|app|application|api|endpoint)\b`)

var explainIntentRegex = regexp.MustCompile(`(?i)\b(explain|why|how does|how do|what is|what are|describe|understand|difference between|meaning of)\b`)

// AIService turns a prompt into a validated Envelope, trying the primary
// provider with retries before falling back to the secondary.
type AIService struct {
	primary   ProviderClient
	secondary ProviderClient

	maxAttempts int
	backoffBase time.Duration
	timeout     time.Duration

	configSvc *SystemConfigService

	// wait is swapped out in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewAIService builds the orchestrator from configuration. configSvc may be
// nil; when present, runtime settings override the static knobs per request.
func NewAIService(cfg *config.AIConfig, configSvc *SystemConfigService) (*AIService, error) {
	primary, err := NewProviderClient(&cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("primary provider: %w", err)
	}
	secondary, err := NewProviderClient(&cfg.Secondary)
	if err != nil {
		return nil, fmt.Errorf("secondary provider: %w", err)
	}

	return &AIService{
		primary:     primary,
		secondary:   secondary,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: time.Duration(cfg.BackoffBaseMS) * time.Millisecond,
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		configSvc:   configSvc,
		wait:        waitBackoff,
	}, nil
}

// NewAIServiceWithProviders wires the orchestrator around already-built
// provider clients. Either client may be nil.
func NewAIServiceWithProviders(primary, secondary ProviderClient, maxAttempts int, backoffBase, timeout time.Duration) *AIService {
	return &AIService{
		primary:     primary,
		secondary:   secondary,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		timeout:     timeout,
		wait:        waitBackoff,
	}
}

// waitBackoff blocks for the backoff delay, waking early when the caller's
// context expires so a cancelled request never sits out a long delay.
func waitBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// mentionRegex matches the trigger as a standalone token, so an email like
// bob@aicorp.com does not summon the assistant.
var mentionRegex = regexp.MustCompile(`(?i)(^|[^\w])@ai\b`)

var mentionTokenRegex = regexp.MustCompile(`(?i)@ai\b`)

// ContainsMention reports whether the message addresses the assistant.
func ContainsMention(message string) bool {
	return mentionRegex.MatchString(message)
}

// ExtractPrompt removes every mention token and returns the remaining prompt.
func ExtractPrompt(message string) string {
	cleaned := mentionTokenRegex.ReplaceAllString(message, " ")
	return strings.TrimSpace(strings.Join(strings.Fields(cleaned), " "))
}

// Timeout is the per-request budget the caller should apply around Ask.
func (s *AIService) Timeout() time.Duration {
	return s.timeout
}

// Ask resolves a prompt into an envelope. It never returns an error: every
// failure mode degrades to a well-formed envelope so the room always gets a
// message back.
func (s *AIService) Ask(ctx context.Context, prompt string) *Envelope {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return &Envelope{
			Type: EnvelopeChat,
			Text: "Hi! Mention me with a question, or ask me to explain something or generate code.",
		}
	}

	if s.primary == nil && s.secondary == nil {
		return errorEnvelope(AIErrorConfig, "No AI provider is configured. Ask an administrator to set one up.")
	}

	systemPrompt := s.systemPromptFor(prompt)

	maxAttempts, backoffBase := s.runtimeKnobs()

	var lastErr error
	var lastErrType string
	for _, provider := range []ProviderClient{s.primary, s.secondary} {
		if provider == nil {
			continue
		}

		raw, err := s.askProvider(ctx, provider, systemPrompt, prompt, maxAttempts, backoffBase)
		if err == nil {
			return s.parseOrDegrade(raw)
		}

		lastErr = err
		lastErrType = classifyAIError(err)
		logger.Warnf("[AI] Provider %s failed (%s): %v", provider.Name(), lastErrType, err)
	}

	logger.Errorf("[AI] All providers exhausted: %v", lastErr)
	text := friendlyErrorText(lastErrType)
	if lastErrType == AIErrorUnknown && lastErr != nil {
		// Unknown failures surface the upstream message for diagnostics.
		text = fmt.Sprintf("%s (upstream: %s)", text, lastErr.Error())
	}
	return errorEnvelope(lastErrType, text)
}

// askProvider runs one provider with retry and backoff. Quota and network
// errors are retried; auth errors abort immediately since retrying a bad
// credential cannot help.
func (s *AIService) askProvider(ctx context.Context, provider ProviderClient, systemPrompt, prompt string, maxAttempts int, backoffBase time.Duration) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := provider.Complete(ctx, systemPrompt, prompt)
		if err == nil {
			return raw, nil
		}

		lastErr = err
		errType := classifyAIError(err)
		if errType == AIErrorAuth || errType == AIErrorConfig {
			return "", err
		}
		if errType == AIErrorUnknown {
			// Not a transient class, move on to the next provider.
			return "", err
		}
		if attempt == maxAttempts {
			break
		}

		delay := backoffDelay(err, backoffBase, attempt)
		logger.Warnf("[AI] %s attempt %d/%d failed, retrying in %s: %v",
			provider.Name(), attempt, maxAttempts, delay, err)

		if waitErr := s.wait(ctx, delay); waitErr != nil {
			return "", waitErr
		}
	}
	return "", lastErr
}

// parseOrDegrade validates provider output into an envelope. Unparseable
// output still reaches the room verbatim as a chat message.
func (s *AIService) parseOrDegrade(raw string) *Envelope {
	env, err := ParseEnvelope(raw)
	if err == nil {
		return env
	}

	logger.Warnf("[AI] Response failed envelope validation, degrading to chat: %v", err)
	return &Envelope{
		Type: EnvelopeChat,
		Text: strings.TrimSpace(raw),
		Note: "response could not be parsed as structured output",
	}
}

// systemPromptFor picks the response shape from keywords in the prompt.
// Code beats explanation when both match; chat is the default.
func (s *AIService) systemPromptFor(prompt string) string {
	switch {
	case codeIntentRegex.MatchString(prompt):
		return codeSystemPrompt
	case explainIntentRegex.MatchString(prompt):
		return explanationSystemPrompt
	default:
		return chatSystemPrompt
	}
}

// runtimeKnobs reads retry settings from the runtime config store, falling
// back to the static configuration.
func (s *AIService) runtimeKnobs() (int, time.Duration) {
	maxAttempts := s.maxAttempts
	backoffBase := s.backoffBase

	if s.configSvc != nil {
		if v := s.configSvc.GetWithDefault("ai_max_attempts", ""); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				maxAttempts = n
			}
		}
		if v := s.configSvc.GetWithDefault("ai_backoff_base_ms", ""); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				backoffBase = time.Duration(n) * time.Millisecond
			}
		}
	}

	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	return maxAttempts, backoffBase
}

var retryAfterRegex = regexp.MustCompile(`(?i)retry.{0,10}?(\d+(?:\.\d+)?)\s*s`)

// backoffDelay computes the wait before the next attempt: exponential from
// the base, capped, but a server-provided retry-after hint wins.
func backoffDelay(err error, base time.Duration, attempt int) time.Duration {
	if m := retryAfterRegex.FindStringSubmatch(err.Error()); m != nil {
		if secs, parseErr := strconv.ParseFloat(m[1], 64); parseErr == nil && secs > 0 {
			hinted := time.Duration(secs * float64(time.Second))
			if hinted > maxBackoff {
				return maxBackoff
			}
			return hinted
		}
	}

	delay := base << (attempt - 1)
	if delay > maxBackoff || delay <= 0 {
		return maxBackoff
	}
	return delay
}

// classifyAIError buckets a provider error for retry and reporting decisions.
func classifyAIError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted") ||
		strings.Contains(msg, "overloaded"):
		return AIErrorQuota
	case strings.Contains(msg, "api key") ||
		strings.Contains(msg, "api_key") ||
		strings.Contains(msg, "401") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "permission"):
		return AIErrorAuth
	case strings.Contains(msg, "network") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "fetch failed") ||
		strings.Contains(msg, "eof"):
		return AIErrorNetwork
	default:
		return AIErrorUnknown
	}
}

func errorEnvelope(errType, text string) *Envelope {
	if errType == "" {
		errType = AIErrorUnknown
	}
	return &Envelope{
		Type:      EnvelopeChat,
		Text:      text,
		Error:     true,
		ErrorType: errType,
	}
}

func friendlyErrorText(errType string) string {
	switch errType {
	case AIErrorQuota:
		return "The AI service is over its usage limit right now. Please try again in a little while."
	case AIErrorAuth:
		return "The AI service rejected our credentials. Ask an administrator to check the API key."
	case AIErrorNetwork:
		return "Could not reach the AI service. Please try again shortly."
	case AIErrorConfig:
		return "No AI provider is configured. Ask an administrator to set one up."
	default:
		return "Something went wrong while generating a response. Please try again."
	}
}
