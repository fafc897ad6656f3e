// Package llmclient builds OpenAI SDK clients for any OpenAI-compatible
// chat-completions provider (OpenAI, DeepSeek, OpenRouter).
package llmclient

import (
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"gpt-3.5-turbo"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"300"`
	Temperature        float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.7"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

// Enabled reports whether a credential is configured. Without one the
// completion adapter runs in canned-reply mode.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("completion model is required when an api key is set")
	}
	if c.MaxCompletionToken <= 0 {
		return fmt.Errorf("max completion token must be > 0, got %d", c.MaxCompletionToken)
	}
	return nil
}

// NewClient creates an OpenAI SDK client for cfg, or nil when no API key is
// configured. SDK retries are disabled; the request timeout bounds each call.
func NewClient(cfg Config, extra ...option.RequestOption) *openaisdk.Client {
	if !cfg.Enabled() {
		return nil
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(0),
	}

	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed+"/"))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	// OpenRouter attribution headers; ignored by other providers.
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	opts = append(opts, extra...)

	client := openaisdk.NewClient(opts...)
	return &client
}
