package providers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

type TransportConfig struct {
	BaseURL     string
	APIKey      string
	Headers     map[string]string
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// NewRESTClient builds the resty client shared by the remote inference
// clients. Retries fire only on transport errors, 5xx and 429.
func NewRESTClient(cfg TransportConfig) *resty.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 400 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	var c *resty.Client
	if cfg.HTTPClient != nil {
		c = resty.NewWithClient(cfg.HTTPClient)
	} else {
		c = resty.New()
	}
	c.SetBaseURL(strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetLogger(restyLogger{log: cfg.Logger}).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.BackoffBase).
		SetRetryMaxWaitTime(cfg.BackoffBase * 8).
		AddRetryCondition(retryable)

	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		c.SetAuthToken(key)
	}
	for k, v := range cfg.Headers {
		c.SetHeader(k, strings.ReplaceAll(v, "{{api_key}}", cfg.APIKey))
	}
	return c
}

func retryable(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	code := resp.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests
}

// CheckStatus turns a non-2xx resty response into a StatusError.
func CheckStatus(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	body := strings.TrimSpace(resp.String())
	if len(body) > 512 {
		body = body[:512]
	}
	return &StatusError{StatusCode: resp.StatusCode(), Body: body}
}

type restyLogger struct {
	log zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error().Str("component", "resty").Msgf(format, v...)
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn().Str("component", "resty").Msgf(format, v...)
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug().Str("component", "resty").Msgf(format, v...)
}
