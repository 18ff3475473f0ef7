// Package analysis generates neutral analysis paragraphs for a story with an
// OpenAI-compatible chat completion endpoint.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"
)

const (
	DefaultModel         = "gpt-4o-mini"
	DefaultRatePerMinute = 30

	temperature   = 0.3
	maxParagraphs = 2
)

const systemPrompt = "You write brief, neutral synthesis and analysis. No bias, no persuasion, no 'you should'. " +
	"Output 1-2 short paragraphs (2-4 sentences total). Label as analysis/synthesis. Be factual and balanced."

const userPrompt = "Based on these article snippets, provide 1-2 brief neutral analysis paragraphs " +
	"(why it matters / what's unclear / what to watch next). Keep tone neutral.\n\n"

// ErrEmptyResponse is returned when the model answers without usable text.
var ErrEmptyResponse = errors.New("empty analysis response")

var paragraphBreak = regexp.MustCompile(`\n\n+`)

// Config configures an Analyzer.
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	RatePerMinute int
	MaxRetries    int
}

// Analyzer calls the chat completion API, at most RatePerMinute times a
// minute across all callers.
type Analyzer struct {
	client  openai.Client
	model   string
	limiter *rate.Limiter
}

// New creates an Analyzer. An empty APIKey is accepted; requests will then
// fail with an authentication error from the endpoint.
func New(cfg Config) *Analyzer {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, option.WithMaxRetries(max(0, cfg.MaxRetries)))

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = DefaultRatePerMinute
	}

	return &Analyzer{
		client:  openai.NewClient(opts...),
		model:   model,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Analyze asks the model for up to two short neutral paragraphs about text.
func (a *Analyzer) Analyze(ctx context.Context, text string, maxTokens int) ([]string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt + text),
		},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	paragraphs := SplitParagraphs(resp.Choices[0].Message.Content)
	if len(paragraphs) == 0 {
		return nil, ErrEmptyResponse
	}
	return paragraphs, nil
}

// SplitParagraphs splits text on blank lines and keeps the first two
// non-empty paragraphs.
func SplitParagraphs(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(strings.TrimSpace(text), -1) {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		out = append(out, p)
		if len(out) == maxParagraphs {
			break
		}
	}
	return out
}
