package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"aistudio/internal/metrics"
	"aistudio/internal/providers"
	"aistudio/internal/providers/registry"
)

var ErrImageGeneration = errors.New("image generation failed")

const imageDataURIPrefix = "data:image/jpeg;base64,"

// Params are the fixed generation parameters sent with every upstream call.
type Params struct {
	MaxNewTokens   int
	Temperature    float64
	DoSample       bool
	InferenceSteps int
	GuidanceScale  float64
}

func DefaultParams() Params {
	return Params{
		MaxNewTokens:   50,
		Temperature:    0.7,
		DoSample:       true,
		InferenceSteps: 20,
		GuidanceScale:  7.5,
	}
}

type Options struct {
	Text        providers.TextGenerator
	Image       providers.ImageGenerator
	ChatModels  registry.ModelTable
	ImageModels registry.ModelTable
	Params      Params
	// Fallback defaults to NewFallback(nil).
	Fallback *Fallback
	Logger   zerolog.Logger
	Metrics  *metrics.Metrics
}

// Service turns user input into assistant replies and images using the
// remote inference backends.
type Service struct {
	text        providers.TextGenerator
	image       providers.ImageGenerator
	chatModels  registry.ModelTable
	imageModels registry.ModelTable
	params      Params
	fallback    *Fallback
	log         zerolog.Logger
	metrics     *metrics.Metrics
}

func NewService(opts Options) *Service {
	if opts.Fallback == nil {
		opts.Fallback = NewFallback(nil)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Global()
	}
	return &Service{
		text:        opts.Text,
		image:       opts.Image,
		chatModels:  opts.ChatModels,
		imageModels: opts.ImageModels,
		params:      opts.Params,
		fallback:    opts.Fallback,
		log:         opts.Logger,
		metrics:     opts.Metrics,
	}
}

func (s *Service) ChatModels() registry.ModelTable  { return s.chatModels }
func (s *Service) ImageModels() registry.ModelTable { return s.imageModels }

// ChatReply always returns a non-empty reply. Upstream failures are absorbed
// by the local fallback.
func (s *Service) ChatReply(ctx context.Context, message, alias string) string {
	model, known := s.chatModels.Resolve(alias)
	if !known {
		s.log.Warn().Str("alias", alias).Str("model", model).Msg("unknown chat model alias, using default")
	}

	timer := prometheus.NewTimer(s.metrics.UpstreamDuration.WithLabelValues("text"))
	generated, err := s.text.GenerateText(ctx, providers.TextRequest{
		Model:        model,
		Prompt:       message,
		MaxNewTokens: s.params.MaxNewTokens,
		Temperature:  s.params.Temperature,
		DoSample:     s.params.DoSample,
	})
	timer.ObserveDuration()

	if err != nil {
		reason := failureReason(err)
		s.log.Warn().Err(err).Str("model", model).Str("reason", reason).Msg("text generation failed, using fallback")
		return s.fallbackReply(message, alias, reason)
	}

	reply := strings.TrimSpace(strings.TrimPrefix(generated, message))
	if reply == "" {
		s.log.Debug().Str("model", model).Msg("empty generation after echo strip, using fallback")
		return s.fallbackReply(message, alias, "empty")
	}
	s.metrics.ChatReplies.WithLabelValues("remote").Inc()
	return reply
}

func (s *Service) fallbackReply(message, alias, reason string) string {
	s.metrics.FallbackReplies.WithLabelValues(reason).Inc()
	s.metrics.ChatReplies.WithLabelValues("fallback").Inc()
	return s.fallback.Reply(message, alias)
}

// GenerateImage returns the generated image as a JPEG data URI.
func (s *Service) GenerateImage(ctx context.Context, prompt, alias string) (string, error) {
	model, known := s.imageModels.Resolve(alias)
	if !known {
		s.log.Warn().Str("alias", alias).Str("model", model).Msg("unknown image model alias, using default")
	}

	timer := prometheus.NewTimer(s.metrics.UpstreamDuration.WithLabelValues("image"))
	data, err := s.image.GenerateImage(ctx, providers.ImageRequest{
		Model:             model,
		Prompt:            prompt,
		NumInferenceSteps: s.params.InferenceSteps,
		GuidanceScale:     s.params.GuidanceScale,
	})
	timer.ObserveDuration()

	if err != nil {
		s.metrics.ImageFailures.Inc()
		return "", fmt.Errorf("%w: model %s: %w", ErrImageGeneration, model, err)
	}
	if len(data) == 0 {
		s.metrics.ImageFailures.Inc()
		return "", fmt.Errorf("%w: model %s returned no data", ErrImageGeneration, model)
	}
	s.metrics.ImagesGenerated.Inc()
	return imageDataURIPrefix + base64.StdEncoding.EncodeToString(data), nil
}

func failureReason(err error) string {
	var statusErr *providers.StatusError
	var decodeErr *providers.DecodeError
	switch {
	case errors.As(err, &statusErr):
		return "status"
	case errors.As(err, &decodeErr):
		return "decode"
	default:
		return "transport"
	}
}
