// Package relevancegate implements the optional, opaque LLM-based relevance
// gate: a capability the Processor may consult on top of the lexical
// Scorer, never a replacement for it. The gate is disabled unless
// explicitly configured, and a circuit-breaker failure degrades to "no
// opinion" rather than aborting the crawl.
package relevancegate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ErrCircuitBreakerOpen is returned while the breaker is tripped; callers
// treat it as "gate unavailable", not as a crawl-fatal error.
var ErrCircuitBreakerOpen = errors.New("relevance gate: circuit breaker is open")

// ErrMaxCallsExceeded is returned once a run's call budget is spent.
var ErrMaxCallsExceeded = errors.New("relevance gate: max calls per run exceeded")

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = time.Minute
	rateLimiterRPS          = 2
	rateLimiterBurst        = 2
	requestTimeout          = 20 * time.Second

	systemPrompt = `You are a relevance classifier for a curated web research corpus. ` +
		`Given a page's title and excerpt, decide whether it belongs in the corpus. ` +
		`Respond only with a JSON object: {"relevant": boolean, "confidence": number between 0 and 1}.`
)

// Result is the gate's opinion on one Expression.
type Result struct {
	Relevant   bool    `json:"relevant"`
	Confidence float64 `json:"confidence"`
}

// Gate is the opaque capability the Processor may consult. A nil *Gate
// means the gate is disabled; callers check for nil before calling Check.
type Gate struct {
	client   *openai.Client
	model    string
	textCap  int
	maxCalls int
	logger   *zerolog.Logger

	rateLimiter *rate.Limiter

	mu                  sync.Mutex
	consecutiveFailures int
	circuitOpenUntil    time.Time
	callsThisRun        int
}

// New constructs a Gate talking to an OpenAI-compatible endpoint. baseURL
// may be empty to use the default OpenAI API.
func New(apiKey, baseURL, model string, maxCallsPerRun, textCap int, logger *zerolog.Logger) *Gate {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Gate{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		textCap:     textCap,
		maxCalls:    maxCallsPerRun,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimiterRPS), rateLimiterBurst),
	}
}

// ResetRun clears the per-run call counter. Nothing in this module calls
// it, so max_calls_per_run counts every Check call made through one Gate
// since it was constructed.
func (g *Gate) ResetRun() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.callsThisRun = 0
}

func (g *Gate) checkCircuit() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if time.Now().Before(g.circuitOpenUntil) {
		return fmt.Errorf("%w until %v", ErrCircuitBreakerOpen, g.circuitOpenUntil)
	}

	if g.maxCalls > 0 && g.callsThisRun >= g.maxCalls {
		return ErrMaxCallsExceeded
	}

	g.callsThisRun++

	return nil
}

func (g *Gate) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.consecutiveFailures = 0
}

func (g *Gate) recordFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.consecutiveFailures++
	if g.consecutiveFailures >= circuitBreakerThreshold {
		g.circuitOpenUntil = time.Now().Add(circuitBreakerTimeout)
		g.logger.Warn().
			Int("consecutive_failures", g.consecutiveFailures).
			Time("open_until", g.circuitOpenUntil).
			Msg("relevance gate circuit breaker opened")
	}
}

// Check asks the gate whether title/excerpt is relevant to land's subject
// described by prompt (typically the land's name and description). A
// non-nil error means no opinion was obtained; callers must fall back to
// the lexical Scorer's verdict alone.
func (g *Gate) Check(ctx context.Context, prompt, title, excerpt string) (Result, error) {
	if err := g.checkCircuit(); err != nil {
		return Result{}, err
	}

	if err := g.rateLimiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("relevance gate: rate limiter: %w", err)
	}

	if len(excerpt) > g.textCap {
		excerpt = excerpt[:g.textCap]
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	userContent := fmt.Sprintf("Corpus subject: %s\n\nTitle: %s\n\nExcerpt:\n%s", prompt, title, excerpt)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userContent},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		g.recordFailure()

		return Result{}, fmt.Errorf("relevance gate: chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		g.recordFailure()

		return Result{}, fmt.Errorf("relevance gate: empty response")
	}

	g.recordSuccess()

	var result Result
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return Result{}, fmt.Errorf("relevance gate: parse response: %w", err)
	}

	return result, nil
}
