package registry

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"aistudio/internal/providers"
	"aistudio/internal/providers/custom_http"
	"aistudio/internal/providers/huggingface"
	"aistudio/internal/providers/openai_compat"
)

// ModelTable maps user-facing model aliases to backend model identifiers.
type ModelTable struct {
	Default string
	Aliases map[string]string
}

func NewModelTable(defaultID string, aliases map[string]string) ModelTable {
	cp := make(map[string]string, len(aliases))
	for k, v := range aliases {
		cp[k] = v
	}
	return ModelTable{Default: defaultID, Aliases: cp}
}

// Resolve returns the backend id for alias. Unknown aliases resolve to the
// table default with known=false so callers can report the substitution.
func (t ModelTable) Resolve(alias string) (id string, known bool) {
	if id, ok := t.Aliases[alias]; ok {
		return id, true
	}
	return t.Default, false
}

func (t ModelTable) Known(alias string) bool {
	_, ok := t.Aliases[alias]
	return ok
}

// Names lists the aliases in lexical order.
func (t ModelTable) Names() []string {
	names := lo.Keys(t.Aliases)
	slices.Sort(names)
	return names
}

type BuildOptions struct {
	Kind         string
	BaseURL      string
	APIKey       string
	Headers      map[string]string
	HTTPClient   *http.Client
	Timeout      time.Duration
	MaxRetries   int
	BackoffBase  time.Duration
	Logger       zerolog.Logger
	BodyTemplate string // custom_http only
}

// BuildText constructs the chat text backend named by opts.Kind.
func BuildText(opts BuildOptions) (providers.TextGenerator, error) {
	cfg := providers.TransportConfig{
		BaseURL:     opts.BaseURL,
		APIKey:      opts.APIKey,
		Headers:     opts.Headers,
		Timeout:     opts.Timeout,
		MaxRetries:  opts.MaxRetries,
		BackoffBase: opts.BackoffBase,
		HTTPClient:  opts.HTTPClient,
		Logger:      opts.Logger,
	}
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "huggingface", "hugging_face", "hf":
		return huggingface.New(cfg), nil
	case "openai_compat", "openai-compatible", "openai":
		return openai_compat.New(cfg), nil
	case "custom_http", "custom-http", "custom":
		c, err := custom_http.New(custom_http.Config{TransportConfig: cfg, BodyTemplate: opts.BodyTemplate})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported provider kind %q", opts.Kind)
	}
}
