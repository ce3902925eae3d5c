package news

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const chatCompletionsPath = "/v1/chat/completions"

// SummarizerOptions parameterise the chat-completions summarizer.
type SummarizerOptions struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ChatSummarizer condenses headlines through an OpenAI-compatible
// chat-completions endpoint.
type ChatSummarizer struct {
	opts    SummarizerOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewChatSummarizer constructs a summarizer client.
func NewChatSummarizer(opts SummarizerOptions, logger zerolog.Logger) *ChatSummarizer {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ChatSummarizer{
		opts:    opts,
		logger:  logger.With().Str("component", "news_summarizer").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// Summarize 把新闻标题压缩成一两句中文摘要。
func (s *ChatSummarizer) Summarize(ctx context.Context, headlines []string) (string, error) {
	if len(headlines) == 0 {
		return "", nil
	}
	if s.baseURL == "" || s.opts.APIKey == "" {
		return "", errors.New("summarizer not configured")
	}

	prompt := "用一到两句中文概括以下财经新闻标题的要点：\n" + strings.Join(headlines, "\n")
	payload := map[string]any{
		"model": s.opts.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal summarizer payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+chatCompletionsPath, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("create summarizer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send summarizer request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarizer api (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode summarizer response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("summarizer returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

var _ Summarizer = (*ChatSummarizer)(nil)
