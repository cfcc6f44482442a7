package summarization

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"reefwatch/types"
)

// Summarizer produces a short narrative for a freshly created alert using
// OpenAI chat completions. It implements alerts.Summarizer.
type Summarizer struct {
	Client *openai.Client
}

// SummarizeAlert requests a 2-3 sentence narrative of the alert's cluster
// statistics. Callers treat an error as non-fatal: an alert without a
// narrative is still a valid alert.
func (s *Summarizer) SummarizeAlert(ctx context.Context, alert *types.Alert) (string, error) {
	if s.Client == nil {
		return "", fmt.Errorf("openai client not configured")
	}

	prompt := fmt.Sprintf(
		"A coral bleaching alert was raised near %s (%.4f, %.4f). "+
			"%d bleached or partially bleached corals were detected out of %d analyzed images, "+
			"with an average bleaching of %.1f%%. The alert severity is %s. "+
			"Write a concise narrative (2-3 sentences maximum) describing the situation for marine conservation staff:",
		alert.LocationName, alert.Lat, alert.Long,
		alert.BleachedCount, alert.TotalImagesAnalyzed,
		alert.AvgBleaching, alert.Severity,
	)

	resp, err := s.Client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4oMini,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "You are an assistant that summarizes coral reef bleaching alerts concisely for conservation staff.",
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   150,
			N:           1,
			Temperature: 0.5,
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai returned empty response or choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
