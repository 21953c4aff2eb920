package ai

import (
	"Go2WlanSpectra/internal/config"
	"Go2WlanSpectra/internal/model"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"
)

const reportPrompt = "You are a wireless network engineer reviewing a dense Wi-Fi deployment experiment. " +
	"Several BSSs share the channel and some run OBSS-PD spatial reuse. " +
	"From the report below, explain how throughput is shared between the cells and between the 802.11ax and legacy stations, " +
	"point out starved cells or unusual packet loss, and suggest which parameter to change next. " +
	"Answer in short markdown.\n\n" +
	"--- Run Report ---\n%s\n--- End of Run Report ---"

// ReportAnalyzer comments experiment reports through an OpenAI-compatible API.
type ReportAnalyzer struct {
	cfg    *config.AIConfig
	client *openai.Client
}

var _ model.Analyzer = (*ReportAnalyzer)(nil)

// NewReportAnalyzer creates a new instance of ReportAnalyzer.
func NewReportAnalyzer(cfg *config.AIConfig) (*ReportAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI API key is not configured")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	return &ReportAnalyzer{cfg: cfg, client: client}, nil
}

func (a *ReportAnalyzer) request(report string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:     a.cfg.Model,
		MaxTokens: 2048,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(reportPrompt, report),
			},
		},
		Stream: stream,
	}
}

// AnalyzeReport returns the model's commentary on a rendered run report.
func (a *ReportAnalyzer) AnalyzeReport(ctx context.Context, report string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, a.request(report, false))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("AI request timeout: %w", err)
		}
		if errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("AI request canceled by client: %w", err)
		}
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI API returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// StreamReport is AnalyzeReport delivered chunk by chunk.
func (a *ReportAnalyzer) StreamReport(ctx context.Context, report string, sendChunk func(string) error) error {
	stream, err := a.client.CreateChatCompletionStream(ctx, a.request(report, true))
	if err != nil {
		return fmt.Errorf("failed to create chat completion stream: %w", err)
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}
		if len(response.Choices) == 0 {
			continue
		}
		if err := sendChunk(response.Choices[0].Delta.Content); err != nil {
			return fmt.Errorf("failed to send chunk: %w", err)
		}
	}
}
