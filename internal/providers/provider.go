package providers

import (
	"context"
	"fmt"
)

type TextRequest struct {
	Model        string
	Prompt       string
	MaxNewTokens int
	Temperature  float64
	DoSample     bool
}

type ImageRequest struct {
	Model             string
	Prompt            string
	NumInferenceSteps int
	GuidanceScale     float64
}

type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// ImageGenerator returns the encoded image bytes exactly as the backend sent them.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) ([]byte, error)
}

// StatusError reports a non-2xx reply from a backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider status %d: %s", e.StatusCode, e.Body)
}

// DecodeError reports a 2xx reply whose body did not have the expected shape.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
