package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

// AnthropicConfig configures the Anthropic-backed Summarizer.
type AnthropicConfig struct {
	APIKey string
	Model  string
	// MaxTokens bounds each response; a truncated response is treated as a
	// task failure by the caller, never a partially written cache (spec.md §7).
	MaxTokens int64
	// RequestsPerSecond throttles outbound calls independently of the
	// execution engine's concurrency limit.
	RequestsPerSecond float64
	// BaseURL overrides the Anthropic API endpoint. Empty uses the SDK's
	// default; tests point this at an httptest server.
	BaseURL string
}

// DefaultAnthropicConfig returns sensible defaults for the analysis model.
func DefaultAnthropicConfig(apiKey string) AnthropicConfig {
	return AnthropicConfig{
		APIKey:            apiKey,
		Model:             "claude-sonnet-4-5-20250929",
		MaxTokens:         4096,
		RequestsPerSecond: 2,
	}
}

// anthropicSummarizer is the production Summarizer, backed by the Anthropic
// Messages API.
type anthropicSummarizer struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	limiter   *rate.Limiter
}

// NewAnthropicSummarizer builds a Summarizer that calls the Anthropic API
// directly. The returned Summarizer is safe for concurrent use by multiple
// execution workers; the rate limiter serializes outbound request timing.
func NewAnthropicSummarizer(cfg AnthropicConfig) Summarizer {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &anthropicSummarizer{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// AnalyzeFile implements Summarizer.
func (s *anthropicSummarizer) AnalyzeFile(ctx context.Context, conversationID, filePath, content string) (string, error) {
	prompt := fmt.Sprintf(
		"Analyze the following source file and produce a concise technical summary covering its purpose, "+
			"key types or functions, and notable dependencies.\n\nFile: %s\n\n%s",
		filePath, content,
	)
	return s.complete(ctx, conversationID, prompt)
}

// SummarizeDirectory implements Summarizer.
func (s *anthropicSummarizer) SummarizeDirectory(ctx context.Context, conversationID, dirPath string, childAnalyses, childKBs []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the directory %s from its children's analyses and subdirectory summaries below. "+
		"Produce a cohesive overview, not a list restatement.\n\n", dirPath)
	for i, a := range childAnalyses {
		fmt.Fprintf(&b, "--- File analysis %d ---\n%s\n\n", i+1, a)
	}
	for i, kb := range childKBs {
		fmt.Fprintf(&b, "--- Subdirectory summary %d ---\n%s\n\n", i+1, kb)
	}
	return s.complete(ctx, conversationID, b.String())
}

func (s *anthropicSummarizer) complete(ctx context.Context, conversationID, prompt string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	message, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Metadata: anthropic.MetadataParam{
			UserID: anthropic.String(conversationID),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed (conversation %s): %w", conversationID, err)
	}
	if message.StopReason == anthropic.MessageStopReasonMaxTokens {
		return "", fmt.Errorf("anthropic response truncated at max_tokens (conversation %s)", conversationID)
	}

	var out strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			out.WriteString(text.Text)
		}
	}
	return out.String(), nil
}
