package openai_compat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"aistudio/internal/providers"
)

type Config = providers.TransportConfig

// Client is a text backend for any server speaking the OpenAI
// chat-completions protocol.
type Client struct {
	http *resty.Client
}

const chatCompletionsPath = "/chat/completions"

// New accepts a base URL either with or without the /chat/completions suffix.
func New(cfg Config) *Client {
	cfg.BaseURL = baseWithoutEndpoint(cfg.BaseURL)
	return &Client{http: providers.NewRESTClient(cfg)}
}

var _ providers.TextGenerator = (*Client)(nil)

func (c *Client) GenerateText(ctx context.Context, req providers.TextRequest) (string, error) {
	body, err := buildPayload(req)
	if err != nil {
		return "", err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(chatCompletionsPath)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	if err := providers.CheckStatus(resp); err != nil {
		return "", err
	}
	return parseChatCompletions(resp.Body())
}

func buildPayload(req providers.TextRequest) ([]byte, error) {
	payload := map[string]any{
		"model": req.Model,
		"messages": []map[string]string{
			{"role": "user", "content": req.Prompt},
		},
	}
	if req.MaxNewTokens > 0 {
		payload["max_tokens"] = req.MaxNewTokens
	}
	if req.Temperature > 0 {
		payload["temperature"] = req.Temperature
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat completion payload: %w", err)
	}
	return b, nil
}

func baseWithoutEndpoint(base string) string {
	base = strings.TrimSuffix(strings.TrimSpace(base), "/")
	return strings.TrimSuffix(base, chatCompletionsPath)
}

func parseChatCompletions(body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &providers.DecodeError{Reason: "decode chat completion response", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &providers.DecodeError{Reason: "empty choices in chat completion response"}
	}
	if resp.Choices[0].Text != "" {
		return resp.Choices[0].Text, nil
	}
	if content := anyToText(resp.Choices[0].Message.Content); strings.TrimSpace(content) != "" {
		return content, nil
	}
	return "", &providers.DecodeError{Reason: "missing message content in chat completion response"}
}

func anyToText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				if txt, ok := m["text"].(string); ok {
					parts = append(parts, txt)
				}
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}
