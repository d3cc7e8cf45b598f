package custom_http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-resty/resty/v2"

	"aistudio/internal/providers"
)

// Config extends the shared transport settings with an optional request
// body template. The template sees .Model, .Prompt, .MaxNewTokens,
// .Temperature, .DoSample and .APIKey, and a "json" func for quoting.
type Config struct {
	providers.TransportConfig
	BodyTemplate string
}

// Client posts chat prompts to an arbitrary JSON endpoint at BaseURL, for
// self-hosted servers that speak neither the Hugging Face nor the OpenAI
// protocol.
type Client struct {
	http   *resty.Client
	tpl    *template.Template
	apiKey string
}

func New(cfg Config) (*Client, error) {
	c := &Client{
		http:   providers.NewRESTClient(cfg.TransportConfig),
		apiKey: cfg.APIKey,
	}
	if strings.TrimSpace(cfg.BodyTemplate) != "" {
		tpl, err := template.New("custom_http_body").
			Option("missingkey=zero").
			Funcs(template.FuncMap{"json": toJSON}).
			Parse(cfg.BodyTemplate)
		if err != nil {
			return nil, fmt.Errorf("parse body template: %w", err)
		}
		c.tpl = tpl
	}
	return c, nil
}

var _ providers.TextGenerator = (*Client)(nil)

func (c *Client) GenerateText(ctx context.Context, req providers.TextRequest) (string, error) {
	body, err := c.renderBody(req)
	if err != nil {
		return "", err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("")
	if err != nil {
		return "", fmt.Errorf("custom request failed: %w", err)
	}
	if err := providers.CheckStatus(resp); err != nil {
		return "", err
	}
	return extractText(resp.Body())
}

func (c *Client) renderBody(req providers.TextRequest) ([]byte, error) {
	if c.tpl == nil {
		b, err := json.Marshal(map[string]any{
			"model":       req.Model,
			"prompt":      req.Prompt,
			"max_tokens":  req.MaxNewTokens,
			"temperature": req.Temperature,
			"do_sample":   req.DoSample,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal custom payload: %w", err)
		}
		return b, nil
	}

	var buf bytes.Buffer
	if err := c.tpl.Execute(&buf, map[string]any{
		"Model":        req.Model,
		"Prompt":       req.Prompt,
		"MaxNewTokens": req.MaxNewTokens,
		"Temperature":  req.Temperature,
		"DoSample":     req.DoSample,
		"APIKey":       c.apiKey,
	}); err != nil {
		return nil, fmt.Errorf("execute body template: %w", err)
	}
	return buf.Bytes(), nil
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

// extractText accepts the common reply shapes: a bare string body, a flat
// object with a text-like key, OpenAI choices, or a Hugging Face
// generated_text array.
func extractText(body []byte) (string, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
			return trimmed, nil
		}
		return "", &providers.DecodeError{Reason: "decode custom response", Err: err}
	}

	switch v := doc.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return v, nil
		}
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				if text := stringField(first, "generated_text"); text != "" {
					return text, nil
				}
			}
		}
	case map[string]any:
		for _, key := range []string{"text", "response", "answer", "output_text", "generated_text"} {
			if text := stringField(v, key); text != "" {
				return text, nil
			}
		}
		if choices, ok := v["choices"].([]any); ok && len(choices) > 0 {
			if c0, ok := choices[0].(map[string]any); ok {
				if msg, ok := c0["message"].(map[string]any); ok {
					if text := stringField(msg, "content"); text != "" {
						return text, nil
					}
				}
				if text := stringField(c0, "text"); text != "" {
					return text, nil
				}
			}
		}
	}
	return "", &providers.DecodeError{Reason: "custom response does not contain a text field"}
}

func stringField(m map[string]any, key string) string {
	s, ok := m[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
