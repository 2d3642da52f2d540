package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/wildpath/naturescout/internal/domain"
)

const summarySystemPrompt = "You write short, warm, encouraging descriptions of outdoor spots " +
	"for people planning a visit. Two sentences, no lists, no hashtags."

// Summarizer generates visitor-facing location summaries.
type Summarizer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewSummarizer creates a summary generator sharing the extraction provider settings.
func NewSummarizer(cfg *Config, model string) *Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Summarizer{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: cfg.Logger,
	}
}

// Summarize produces a short description of a ranked location. On provider
// failure it falls back to a deterministic template so detail reads never
// fail on a summary.
func (s *Summarizer) Summarize(ctx context.Context, loc domain.RankedLocation, city string) string {
	prompt := fmt.Sprintf("Describe %s in %s for a visitor.", loc.Name, city)
	if loc.Rating > 0 {
		prompt += fmt.Sprintf(" Locals rate it %.1f stars across %d reviews.", loc.Rating, loc.ReviewCount)
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0.7,
		MaxTokens:   150,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		s.logger.Warn("summary generation failed, using fallback",
			zap.String("location", loc.Name),
			zap.Error(err),
		)
		return fallbackSummary(loc, city)
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return fallbackSummary(loc, city)
	}
	return summary
}

func fallbackSummary(loc domain.RankedLocation, city string) string {
	if loc.Rating > 0 {
		return fmt.Sprintf("%s is a favorite spot in %s, rated %.1f stars by %d visitors.",
			loc.Name, city, loc.Rating, loc.ReviewCount)
	}
	return fmt.Sprintf("%s is a local favorite in %s worth checking out.", loc.Name, city)
}
