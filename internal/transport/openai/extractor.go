package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/wildpath/naturescout/internal/domain"
	"github.com/wildpath/naturescout/internal/metrics"
)

const extractionSystemPrompt = "You are a location extraction expert. " +
	"Extract specific place names from the text and respond with a JSON array of strings only. " +
	"Return [] if no places are mentioned. Do not include commentary."

// categoryHints steer extraction toward the requested category.
var categoryHints = map[string]string{
	"hiking_spots": "Focus on trails, parks, peaks, preserves, and other hikeable outdoor areas.",
	"viewpoints":   "Focus on overlooks, summits, vista points, and other scenic viewing spots.",
	"dog_parks":    "Focus on dog parks, off-leash areas, and dog-friendly outdoor spaces.",
}

// Extractor pulls location names out of discussion text via an
// OpenAI-compatible chat API.
type Extractor struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// Config holds the extraction provider settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Logger    *zap.Logger
}

// NewExtractor creates an OpenAI-compatible location extractor.
func NewExtractor(cfg *Config) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Extractor{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}
}

// ExtractLocations returns the place names mentioned in text, scoped to a
// category. An empty slice is a valid outcome, not an error.
func (e *Extractor) ExtractLocations(ctx context.Context, text, category string) ([]string, error) {
	hint := categoryHints[category]
	if hint == "" {
		hint = fmt.Sprintf("Focus on places matching the category %q.", category)
	}

	req := openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0.1,
		MaxTokens:   e.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt + " " + hint},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
		return nil, parseAPIError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "error").Inc()
		return nil, fmt.Errorf("empty completion response: %w", domain.ErrExtractionFailed)
	}

	metrics.ExtractionRequestsTotal.WithLabelValues(e.model, "success").Inc()
	metrics.ExtractionRequestDuration.WithLabelValues(e.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ExtractionTokensTotal.WithLabelValues(e.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.ExtractionTokensTotal.WithLabelValues(e.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	names, err := parseLocations(resp.Choices[0].Message.Content)
	if err != nil {
		e.logger.Warn("unparseable extraction output",
			zap.String("model", e.model),
			zap.String("content", resp.Choices[0].Message.Content),
		)
		return nil, err
	}
	return names, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Extractor) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// arrayPattern grabs the first bracketed span when the model wraps its
// answer in prose instead of returning bare JSON.
var arrayPattern = regexp.MustCompile(`\[(.*?)\]`)

// quotedPattern pulls quoted names out of a malformed array body.
var quotedPattern = regexp.MustCompile(`"([^"]+)"`)

// parseLocations decodes the model output. Strict JSON first, then a
// regex salvage pass over the first bracketed span.
func parseLocations(content string) ([]string, error) {
	content = strings.TrimSpace(content)

	var names []string
	if err := json.Unmarshal([]byte(content), &names); err == nil {
		return cleanNames(names), nil
	}

	m := arrayPattern.FindString(content)
	if m == "" {
		return nil, fmt.Errorf("%w: no array in output", domain.ErrExtractionFailed)
	}
	if err := json.Unmarshal([]byte(m), &names); err == nil {
		return cleanNames(names), nil
	}

	matches := quotedPattern.FindAllStringSubmatch(m, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: unparseable array in output", domain.ErrExtractionFailed)
	}
	names = make([]string, 0, len(matches))
	for _, q := range matches {
		names = append(names, q[1])
	}
	return cleanNames(names), nil
}

func cleanNames(names []string) []string {
	out := names[:0]
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// parseAPIError wraps provider failures with domain sentinels so the retry
// layer can classify them.
func parseAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrExtractionUnavailable)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("completion API error %d: %w",
			reqErr.HTTPStatusCode, domain.ErrExtractionUnavailable)
	}

	return fmt.Errorf("completion request failed: %w", domain.ErrExtractionUnavailable)
}
