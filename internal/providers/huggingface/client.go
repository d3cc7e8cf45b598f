package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"aistudio/internal/providers"
)

const DefaultBaseURL = "https://api-inference.huggingface.co/models"

type Config = providers.TransportConfig

// Client talks to the Hugging Face serverless inference API. Each model has
// its own endpoint under the base URL.
type Client struct {
	http *resty.Client
}

func New(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{http: providers.NewRESTClient(cfg)}
}

var (
	_ providers.TextGenerator  = (*Client)(nil)
	_ providers.ImageGenerator = (*Client)(nil)
)

type textParameters struct {
	MaxNewTokens int     `json:"max_new_tokens"`
	Temperature  float64 `json:"temperature"`
	DoSample     bool    `json:"do_sample"`
}

type imageParameters struct {
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
}

type inferenceRequest[P any] struct {
	Inputs     string `json:"inputs"`
	Parameters P      `json:"parameters"`
}

func (c *Client) GenerateText(ctx context.Context, req providers.TextRequest) (string, error) {
	body := inferenceRequest[textParameters]{
		Inputs: req.Prompt,
		Parameters: textParameters{
			MaxNewTokens: req.MaxNewTokens,
			Temperature:  req.Temperature,
			DoSample:     req.DoSample,
		},
	}
	resp, err := c.post(ctx, req.Model, body)
	if err != nil {
		return "", err
	}
	return parseGeneratedText(resp.Body())
}

func (c *Client) GenerateImage(ctx context.Context, req providers.ImageRequest) ([]byte, error) {
	body := inferenceRequest[imageParameters]{
		Inputs: req.Prompt,
		Parameters: imageParameters{
			NumInferenceSteps: req.NumInferenceSteps,
			GuidanceScale:     req.GuidanceScale,
		},
	}
	resp, err := c.post(ctx, req.Model, body)
	if err != nil {
		return nil, err
	}
	img := resp.Body()
	if len(img) == 0 {
		return nil, &providers.DecodeError{Reason: "empty image response"}
	}
	return img, nil
}

func (c *Client) post(ctx context.Context, model string, body any) (*resty.Response, error) {
	model = strings.Trim(strings.TrimSpace(model), "/")
	if model == "" {
		return nil, errors.New("model id is empty")
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/" + model)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	if err := providers.CheckStatus(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func parseGeneratedText(body []byte) (string, error) {
	var out []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &providers.DecodeError{Reason: "decode text generation response", Err: err}
	}
	if len(out) == 0 {
		return "", &providers.DecodeError{Reason: "empty text generation response"}
	}
	if out[0].GeneratedText == "" {
		return "", &providers.DecodeError{Reason: "missing generated_text in response"}
	}
	return out[0].GeneratedText, nil
}
