package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeProvider struct {
	name  string
	calls int
	// reply wins when err is nil for that call
	err   error
	reply string
	// failFirst makes the provider fail this many calls before succeeding
	failFirst int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.failFirst > 0 && f.calls <= f.failFirst {
		return "", f.err
	}
	if f.failFirst == 0 && f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newTestAIService(primary, secondary ProviderClient) *AIService {
	return &AIService{
		primary:     primary,
		secondary:   secondary,
		maxAttempts: 3,
		backoffBase: time.Millisecond,
		timeout:     time.Second,
		wait:        func(context.Context, time.Duration) error { return nil },
	}
}

func TestContainsMention(t *testing.T) {
	tests := []struct {
		message  string
		expected bool
	}{
		{"hey @ai what is a mutex", true},
		{"hey @AI what is a mutex", true},
		{"@Ai build me a server", true},
		{"no assistant here", false},
		{"email me at bob@aicorp.com", false},
		{"@aid the wounded", false},
		{"(@ai) in parens", true},
		{"", false},
	}

	for _, tt := range tests {
		if got := ContainsMention(tt.message); got != tt.expected {
			t.Errorf("ContainsMention(%q) = %v, expected %v", tt.message, got, tt.expected)
		}
	}
}

func TestExtractPrompt(t *testing.T) {
	tests := []struct {
		message  string
		expected string
	}{
		{"@ai what is a mutex", "what is a mutex"},
		{"hey @AI   explain   channels", "hey explain channels"},
		{"@ai", ""},
		{"  @ai   ", ""},
	}

	for _, tt := range tests {
		if got := ExtractPrompt(tt.message); got != tt.expected {
			t.Errorf("ExtractPrompt(%q) = %q, expected %q", tt.message, got, tt.expected)
		}
	}
}

func TestAsk_EmptyPromptSkipsProviders(t *testing.T) {
	primary := &fakeProvider{name: "p", reply: `{"type":"chat","text":"hi"}`}
	svc := newTestAIService(primary, nil)

	env := svc.Ask(context.Background(), "   ")

	if env.Type != EnvelopeChat || env.Text == "" {
		t.Errorf("empty prompt should yield a canned chat envelope, got %+v", env)
	}
	if primary.calls != 0 {
		t.Errorf("provider called %d times for an empty prompt", primary.calls)
	}
}

func TestAsk_NoProvidersConfigured(t *testing.T) {
	svc := newTestAIService(nil, nil)

	env := svc.Ask(context.Background(), "hello")

	if !env.Error || env.ErrorType != AIErrorConfig {
		t.Errorf("expected config error envelope, got %+v", env)
	}
}

func TestAsk_PrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "p", reply: `{"type":"chat","text":"hello!"}`}
	secondary := &fakeProvider{name: "s", reply: `{"type":"chat","text":"fallback"}`}
	svc := newTestAIService(primary, secondary)

	env := svc.Ask(context.Background(), "say hello")

	if env.Error {
		t.Fatalf("unexpected error envelope: %+v", env)
	}
	if env.Text != "hello!" {
		t.Errorf("Text = %q", env.Text)
	}
	if secondary.calls != 0 {
		t.Error("secondary should not be consulted when primary succeeds")
	}
}

func TestAsk_QuotaRetriesThenFallsBack(t *testing.T) {
	primary := &fakeProvider{name: "p", err: errors.New("API error: 429 rate limit exceeded"), failFirst: 99}
	secondary := &fakeProvider{name: "s", reply: `{"type":"chat","text":"from secondary"}`}
	svc := newTestAIService(primary, secondary)

	env := svc.Ask(context.Background(), "hello")

	if primary.calls != 3 {
		t.Errorf("primary called %d times, expected maxAttempts=3", primary.calls)
	}
	if env.Error || env.Text != "from secondary" {
		t.Errorf("expected secondary's reply, got %+v", env)
	}
}

func TestAsk_QuotaRecoversOnRetry(t *testing.T) {
	primary := &fakeProvider{
		name:      "p",
		err:       errors.New("quota exceeded"),
		failFirst: 1,
		reply:     `{"type":"chat","text":"second attempt"}`,
	}
	svc := newTestAIService(primary, nil)

	env := svc.Ask(context.Background(), "hello")

	if primary.calls != 2 {
		t.Errorf("primary called %d times, expected 2", primary.calls)
	}
	if env.Text != "second attempt" {
		t.Errorf("Text = %q", env.Text)
	}
}

func TestAsk_AuthErrorIsTerminalPerProvider(t *testing.T) {
	primary := &fakeProvider{name: "p", err: errors.New("invalid API key")}
	secondary := &fakeProvider{name: "s", reply: `{"type":"chat","text":"backup"}`}
	svc := newTestAIService(primary, secondary)

	env := svc.Ask(context.Background(), "hello")

	if primary.calls != 1 {
		t.Errorf("auth failure should not be retried, primary called %d times", primary.calls)
	}
	if env.Text != "backup" {
		t.Errorf("expected fallback to secondary, got %+v", env)
	}
}

func TestAsk_AllProvidersFail(t *testing.T) {
	primary := &fakeProvider{name: "p", err: errors.New("connection refused")}
	secondary := &fakeProvider{name: "s", err: errors.New("connection refused")}
	svc := newTestAIService(primary, secondary)

	env := svc.Ask(context.Background(), "hello")

	if !env.Error {
		t.Fatal("expected an error envelope")
	}
	if env.ErrorType != AIErrorNetwork {
		t.Errorf("ErrorType = %q, expected network", env.ErrorType)
	}
	if env.Type != EnvelopeChat || env.Text == "" {
		t.Errorf("error envelope must still be a readable chat message, got %+v", env)
	}
}

func TestAsk_UnknownErrorCarriesUpstreamMessage(t *testing.T) {
	primary := &fakeProvider{name: "p", err: errors.New("model output was weird")}
	svc := newTestAIService(primary, nil)

	env := svc.Ask(context.Background(), "hello")

	if !env.Error || env.ErrorType != AIErrorUnknown {
		t.Fatalf("expected unknown error envelope, got %+v", env)
	}
	if !strings.Contains(env.Text, "model output was weird") {
		t.Errorf("unknown errors must surface the upstream message, got %q", env.Text)
	}
}

func TestAsk_CancelledContextCutsBackoffShort(t *testing.T) {
	primary := &fakeProvider{name: "p", err: errors.New("429 rate limit"), failFirst: 99}
	svc := newTestAIService(primary, nil)
	svc.wait = waitBackoff
	svc.backoffBase = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	env := svc.Ask(ctx, "hello")

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Ask held a cancelled context for %v", elapsed)
	}
	if primary.calls != 1 {
		t.Errorf("primary called %d times, backoff should abort after the first failure", primary.calls)
	}
	if !env.Error {
		t.Errorf("expected an error envelope, got %+v", env)
	}
}

func TestWaitBackoff_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := waitBackoff(ctx, time.Hour)

	if time.Since(start) > time.Second {
		t.Error("waitBackoff slept through a cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, expected context.Canceled", err)
	}
}

func TestAsk_DegradesUnparseableOutput(t *testing.T) {
	primary := &fakeProvider{name: "p", reply: "Sure! A mutex is a lock."}
	svc := newTestAIService(primary, nil)

	env := svc.Ask(context.Background(), "what is a mutex")

	if env.Error {
		t.Errorf("degraded output is not an error, got %+v", env)
	}
	if env.Type != EnvelopeChat {
		t.Errorf("Type = %q, expected chat", env.Type)
	}
	if env.Text != "Sure! A mutex is a lock." {
		t.Errorf("degraded text must be verbatim, got %q", env.Text)
	}
	if env.Note == "" {
		t.Error("degraded envelope should carry a note")
	}
}

func TestSystemPromptFor(t *testing.T) {
	svc := newTestAIService(nil, nil)

	tests := []struct {
		prompt   string
		expected string
	}{
		{"write a web server in Go", codeSystemPrompt},
		{"explain how channels work", explanationSystemPrompt},
		{"good morning", chatSystemPrompt},
		{"explain then implement a parser", codeSystemPrompt}, // code wins
	}

	for _, tt := range tests {
		if got := svc.systemPromptFor(tt.prompt); got != tt.expected {
			t.Errorf("systemPromptFor(%q) picked the wrong prompt", tt.prompt)
		}
	}
}

func TestClassifyAIError(t *testing.T) {
	tests := []struct {
		msg      string
		expected string
	}{
		{"429 Too Many Requests", AIErrorQuota},
		{"quota exceeded for project", AIErrorQuota},
		{"rate limit reached", AIErrorQuota},
		{"invalid API key provided", AIErrorAuth},
		{"401 Unauthorized", AIErrorAuth},
		{"403 permission denied", AIErrorAuth},
		{"dial tcp: connection refused", AIErrorNetwork},
		{"context deadline exceeded", AIErrorNetwork},
		{"no such host", AIErrorNetwork},
		{"model output was weird", AIErrorUnknown},
	}

	for _, tt := range tests {
		if got := classifyAIError(errors.New(tt.msg)); got != tt.expected {
			t.Errorf("classifyAIError(%q) = %q, expected %q", tt.msg, got, tt.expected)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	base := time.Second
	plain := errors.New("429 rate limit")

	if got := backoffDelay(plain, base, 1); got != time.Second {
		t.Errorf("attempt 1 delay = %v, expected 1s", got)
	}
	if got := backoffDelay(plain, base, 2); got != 2*time.Second {
		t.Errorf("attempt 2 delay = %v, expected 2s", got)
	}
	if got := backoffDelay(plain, base, 3); got != 4*time.Second {
		t.Errorf("attempt 3 delay = %v, expected 4s", got)
	}
	if got := backoffDelay(plain, base, 20); got != maxBackoff {
		t.Errorf("large attempt should cap at %v, got %v", maxBackoff, got)
	}

	hinted := errors.New("rate limited, retry after 7s")
	if got := backoffDelay(hinted, base, 1); got != 7*time.Second {
		t.Errorf("retry-after hint should win, got %v", got)
	}
}
