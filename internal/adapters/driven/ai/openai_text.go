package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

var (
	_ driven.Translator = (*OpenAIText)(nil)
	_ driven.Summarizer = (*OpenAIText)(nil)
)

const defaultOpenAIChatModel = "gpt-4o-mini"

// OpenAIText translates and summarizes through an OpenAI-compatible chat
// completions endpoint.
type OpenAIText struct {
	apiKey   string
	model    string
	baseURL  string
	client   *http.Client
	limiters *Limiters
}

// OpenAITextConfig configures an OpenAIText.
type OpenAITextConfig struct {
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	Limiters *Limiters
}

// NewOpenAIText creates a chat-completions client.
func NewOpenAIText(cfg OpenAITextConfig) (*OpenAIText, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIChatModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	return &OpenAIText{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
		limiters: cfg.Limiters,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Translate implements driven.Translator.
func (o *OpenAIText) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	system := fmt.Sprintf("Translate the user's text into the language with ISO 639-1 code %q. "+
		"Reply with the translation only, keeping paragraph breaks.", targetLanguage)
	return o.complete(ctx, OperationTranslate, system, text)
}

// Summarize implements driven.Summarizer.
func (o *OpenAIText) Summarize(ctx context.Context, text string, maxLen int) (string, error) {
	system := fmt.Sprintf("Summarize the user's text in at most %d characters. "+
		"Reply with the summary only, in the language of the text.", maxLen)
	summary, err := o.complete(ctx, OperationSummarize, system, text)
	if err != nil {
		return "", err
	}
	return truncateRunes(summary, maxLen), nil
}

func (o *OpenAIText) complete(ctx context.Context, operation, system, user string) (string, error) {
	if err := o.limiters.Wait(ctx, LimiterKey{Provider: ProviderOpenAI, Operation: operation}); err != nil {
		return "", err
	}

	req := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	var resp chatResponse
	err := postJSON(ctx, o.client, o.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + o.apiKey}, req, &resp)
	if err != nil {
		return "", fmt.Errorf("openai %s: %w", operation, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai %s: no choices returned", operation)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Close releases idle connections.
func (o *OpenAIText) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}
