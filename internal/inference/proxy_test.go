package inference

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aistudio/internal/metrics"
	"aistudio/internal/providers"
	"aistudio/internal/providers/registry"
)

type fakeText struct {
	reply string
	err   error
	calls []providers.TextRequest
}

func (f *fakeText) GenerateText(_ context.Context, req providers.TextRequest) (string, error) {
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

type fakeImage struct {
	data  []byte
	err   error
	calls []providers.ImageRequest
}

func (f *fakeImage) GenerateImage(_ context.Context, req providers.ImageRequest) ([]byte, error) {
	f.calls = append(f.calls, req)
	return f.data, f.err
}

func newTestService(text *fakeText, image *fakeImage) *Service {
	return NewService(Options{
		Text:  text,
		Image: image,
		ChatModels: registry.NewModelTable("gpt2", map[string]string{
			"llama3":    "gpt2",
			"mistral":   "gpt2",
			"codellama": "gpt2",
		}),
		ImageModels: registry.NewModelTable("stabilityai/stable-diffusion-2-1", map[string]string{
			"sd2.1": "stabilityai/stable-diffusion-2-1",
			"sd1.5": "runwayml/stable-diffusion-v1-5",
			"sdxl":  "stabilityai/stable-diffusion-xl-base-1.0",
		}),
		Params:   DefaultParams(),
		Fallback: NewFallback(func(int) int { return 0 }),
		Logger:   zerolog.Nop(),
	})
}

func TestChatReplySendsConfiguredParameters(t *testing.T) {
	text := &fakeText{reply: "a fine answer"}
	svc := newTestService(text, &fakeImage{})

	got := svc.ChatReply(context.Background(), "what is go?", "codellama")
	assert.Equal(t, "a fine answer", got)

	require.Len(t, text.calls, 1)
	assert.Equal(t, providers.TextRequest{
		Model:        "gpt2",
		Prompt:       "what is go?",
		MaxNewTokens: 50,
		Temperature:  0.7,
		DoSample:     true,
	}, text.calls[0])
}

func TestChatReplyStripsEcho(t *testing.T) {
	text := &fakeText{reply: "what is go?  It is a language.\n"}
	svc := newTestService(text, &fakeImage{})

	assert.Equal(t, "It is a language.", svc.ChatReply(context.Background(), "what is go?", "llama3"))
}

func TestChatReplyTrimsWithoutEcho(t *testing.T) {
	text := &fakeText{reply: "  Sure thing. "}
	svc := newTestService(text, &fakeImage{})

	assert.Equal(t, "Sure thing.", svc.ChatReply(context.Background(), "question", "llama3"))
}

func TestChatReplyFallsBackOnPureEcho(t *testing.T) {
	m := metrics.Global()
	before := testutil.ToFloat64(m.FallbackReplies.WithLabelValues("empty"))

	text := &fakeText{reply: "hi"}
	svc := newTestService(text, &fakeImage{})

	assert.Equal(t, "Hi there! I'm Mistral. How can I assist you?", svc.ChatReply(context.Background(), "hi", "mistral"))
	assert.Equal(t, before+1, testutil.ToFloat64(m.FallbackReplies.WithLabelValues("empty")))
}

func TestChatReplyFallsBackOnUpstreamError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reason string
	}{
		{"transport", errors.New("dial tcp: connection refused"), "transport"},
		{"status", &providers.StatusError{StatusCode: 503, Body: "loading"}, "status"},
		{"decode", &providers.DecodeError{Reason: "bad shape"}, "decode"},
	}
	m := metrics.Global()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := testutil.ToFloat64(m.FallbackReplies.WithLabelValues(tc.reason))
			svc := newTestService(&fakeText{err: tc.err}, &fakeImage{})

			got := svc.ChatReply(context.Background(), "hello", "llama3")
			assert.Equal(t, "Hello! I'm Llama, an AI assistant. How can I help you today?", got)
			assert.Equal(t, before+1, testutil.ToFloat64(m.FallbackReplies.WithLabelValues(tc.reason)))
		})
	}
}

func TestChatReplyUnknownAliasUsesDefaultModel(t *testing.T) {
	text := &fakeText{err: errors.New("down")}
	svc := newTestService(text, &fakeImage{})

	got := svc.ChatReply(context.Background(), "hello", "gpt-9")
	assert.Equal(t, "Hi there! I'm Mistral. How can I assist you?", got)
	require.Len(t, text.calls, 1)
	assert.Equal(t, "gpt2", text.calls[0].Model)
}

func TestChatReplyNeverEmpty(t *testing.T) {
	for _, reply := range []string{"", "   ", "\n\t"} {
		svc := newTestService(&fakeText{reply: reply}, &fakeImage{})
		assert.NotEmpty(t, svc.ChatReply(context.Background(), "tell me about rivers", "mistral"))
	}
}

func TestGenerateImageReturnsDataURI(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
	image := &fakeImage{data: raw}
	svc := newTestService(&fakeText{}, image)

	uri, err := svc.GenerateImage(context.Background(), "a lighthouse at dusk", "sdxl")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	require.Len(t, image.calls, 1)
	assert.Equal(t, providers.ImageRequest{
		Model:             "stabilityai/stable-diffusion-xl-base-1.0",
		Prompt:            "a lighthouse at dusk",
		NumInferenceSteps: 20,
		GuidanceScale:     7.5,
	}, image.calls[0])
}

func TestGenerateImageUnknownAliasUsesDefault(t *testing.T) {
	image := &fakeImage{data: []byte("jpeg")}
	svc := newTestService(&fakeText{}, image)

	_, err := svc.GenerateImage(context.Background(), "cat", "dalle")
	require.NoError(t, err)
	require.Len(t, image.calls, 1)
	assert.Equal(t, "stabilityai/stable-diffusion-2-1", image.calls[0].Model)
}

func TestGenerateImageFailure(t *testing.T) {
	m := metrics.Global()
	before := testutil.ToFloat64(m.ImageFailures)

	upstream := &providers.StatusError{StatusCode: 500}
	svc := newTestService(&fakeText{}, &fakeImage{err: upstream})

	uri, err := svc.GenerateImage(context.Background(), "cat", "sd1.5")
	require.Error(t, err)
	assert.Empty(t, uri)
	assert.ErrorIs(t, err, ErrImageGeneration)

	var statusErr *providers.StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, before+1, testutil.ToFloat64(m.ImageFailures))

	svc = newTestService(&fakeText{}, &fakeImage{})
	_, err = svc.GenerateImage(context.Background(), "cat", "sd1.5")
	assert.ErrorIs(t, err, ErrImageGeneration)
}
