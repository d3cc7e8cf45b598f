package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	ProviderHuggingFace  = "huggingface"
	ProviderOpenAICompat = "openai_compat"
	ProviderCustomHTTP   = "custom_http"
)

var (
	ErrInvalidStoreDriver  = errors.New("STORE_DRIVER must be 'memory' or 'sqlite'")
	ErrInvalidChatProvider = errors.New("CHAT_PROVIDER must be 'huggingface', 'openai_compat' or 'custom_http'")
	ErrEmptyChatModels     = errors.New("CHAT_MODELS must name at least one alias")
	ErrEmptyImageModels    = errors.New("IMAGE_MODELS must name at least one alias")
)

type Config struct {
	HTTP      HTTPConfig
	Store     StoreConfig
	Inference InferenceConfig
	Chat      ChatConfig
	Image     ImageConfig
	Log       LogConfig
}

type HTTPConfig struct {
	ListenAddr      string        `env:"LISTEN_ADDR" envDefault:":5000"`
	HealthPath      string        `env:"HEALTH_PATH" envDefault:"/healthz"`
	MetricsPath     string        `env:"METRICS_PATH" envDefault:"/metrics"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER" envDefault:"memory"`
}

// InferenceConfig holds the remote inference API settings shared by the
// chat and image clients.
type InferenceConfig struct {
	BaseURL     string        `env:"HF_API_BASE_URL" envDefault:"https://api-inference.huggingface.co/models"`
	APIKey      string        `env:"HUGGINGFACE_API_KEY"`
	HFToken     string        `env:"HF_TOKEN"`
	Timeout     time.Duration `env:"HF_TIMEOUT" envDefault:"60s"`
	MaxRetries  int           `env:"HF_MAX_RETRIES" envDefault:"0"`
	BackoffBase time.Duration `env:"HF_BACKOFF_BASE" envDefault:"400ms"`
}

type ChatConfig struct {
	Provider     string            `env:"CHAT_PROVIDER" envDefault:"huggingface"`
	BaseURL      string            `env:"CHAT_BASE_URL"`
	APIKey       string            `env:"CHAT_API_KEY"`
	Headers      map[string]string `env:"CHAT_HEADERS" envKeyValSeparator:"="`
	BodyTemplate string            `env:"CHAT_BODY_TEMPLATE"`
	Models       map[string]string `env:"CHAT_MODELS" envDefault:"llama3=gpt2,mistral=gpt2,codellama=gpt2" envKeyValSeparator:"="`
	DefaultModel string            `env:"CHAT_DEFAULT_MODEL" envDefault:"gpt2"`
	MaxNewTokens int               `env:"CHAT_MAX_NEW_TOKENS" envDefault:"50"`
	Temperature  float64           `env:"CHAT_TEMPERATURE" envDefault:"0.7"`
	DoSample     bool              `env:"CHAT_DO_SAMPLE" envDefault:"true"`
}

type ImageConfig struct {
	Models         map[string]string `env:"IMAGE_MODELS" envDefault:"sd2.1=stabilityai/stable-diffusion-2-1,sd1.5=runwayml/stable-diffusion-v1-5,sdxl=stabilityai/stable-diffusion-xl-base-1.0" envKeyValSeparator:"="`
	DefaultModel   string            `env:"IMAGE_DEFAULT_MODEL" envDefault:"stabilityai/stable-diffusion-2-1"`
	DefaultAlias   string            `env:"IMAGE_DEFAULT_ALIAS" envDefault:"sd2.1"`
	InferenceSteps int               `env:"IMAGE_INFERENCE_STEPS" envDefault:"20"`
	GuidanceScale  float64           `env:"IMAGE_GUIDANCE_SCALE" envDefault:"7.5"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Chat.Provider = strings.ToLower(strings.TrimSpace(c.Chat.Provider))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))

	if c.Inference.APIKey == "" {
		c.Inference.APIKey = c.Inference.HFToken
	}
	if c.Chat.BaseURL == "" {
		c.Chat.BaseURL = c.Inference.BaseURL
	}
	if c.Chat.APIKey == "" {
		c.Chat.APIKey = c.Inference.APIKey
	}
	if c.Inference.MaxRetries < 0 {
		c.Inference.MaxRetries = 0
	}
	c.Chat.Models = trimAliases(c.Chat.Models)
	c.Image.Models = trimAliases(c.Image.Models)
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidStoreDriver, c.Store.Driver)
	}
	switch c.Chat.Provider {
	case ProviderHuggingFace, ProviderOpenAICompat, ProviderCustomHTTP:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidChatProvider, c.Chat.Provider)
	}
	if len(c.Chat.Models) == 0 {
		return ErrEmptyChatModels
	}
	if len(c.Image.Models) == 0 {
		return ErrEmptyImageModels
	}
	if _, ok := c.Image.Models[c.Image.DefaultAlias]; !ok {
		return fmt.Errorf("IMAGE_DEFAULT_ALIAS=%q does not exist in IMAGE_MODELS", c.Image.DefaultAlias)
	}
	return nil
}

func trimAliases(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for alias, id := range in {
		alias, id = strings.TrimSpace(alias), strings.TrimSpace(id)
		if alias == "" || id == "" {
			continue
		}
		out[alias] = id
	}
	return out
}
