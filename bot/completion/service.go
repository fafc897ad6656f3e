// Package completion answers free text through an OpenAI-compatible
// chat-completions endpoint using the InmoBot persona.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	contractx "github.com/inmobot/inmobot/bot/contract"
	promptx "github.com/inmobot/inmobot/bot/prompt"
	"github.com/inmobot/inmobot/pkg/llmclient"
	"github.com/inmobot/inmobot/pkg/metrics"
	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"
)

var ErrEmptyCompletion = errors.New("completion returned no content")

// Service implements contract.Completer. A nil SDK client puts it in
// degraded mode: every call returns the canned reply without network I/O.
type Service struct {
	client      *openaisdk.Client
	persona     string
	model       string
	maxTokens   int
	temperature float64
	metrics     *metrics.DialogueMetrics
}

type Option func(*Service)

func WithMetrics(m *metrics.DialogueMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(client *openaisdk.Client, cfg llmclient.Config, persona string, opts ...Option) *Service {
	s := &Service{
		client:      client,
		persona:     strings.TrimSpace(persona),
		model:       strings.TrimSpace(cfg.Model),
		maxTokens:   cfg.MaxCompletionToken,
		temperature: cfg.Temperature,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Degraded reports whether no credential was configured.
func (s *Service) Degraded() bool {
	return s.client == nil
}

// Reply sends [persona, userText] and returns the first choice. On failure it
// returns the fallback text for the failure kind together with the error.
func (s *Service) Reply(ctx context.Context, userText string, userID int64) (string, error) {
	if s.Degraded() {
		s.metrics.ObserveCompletion("degraded")
		return promptx.CompletionDegraded, nil
	}

	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(s.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(s.persona),
			openaisdk.UserMessage(userText),
		},
		Temperature: openaisdk.Float(s.temperature),
		User:        openaisdk.String(strconv.FormatInt(userID, 10)),
	}
	if s.maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(s.maxTokens))
	}

	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return s.fail(userID, classify(err))
	}
	if len(resp.Choices) == 0 {
		return s.fail(userID, contractx.NewKindError(contractx.FailureUnavailable, "completion", ErrEmptyCompletion))
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return s.fail(userID, contractx.NewKindError(contractx.FailureUnavailable, "completion", ErrEmptyCompletion))
	}

	s.metrics.ObserveCompletion("ok")
	return content, nil
}

func (s *Service) fail(userID int64, err error) (string, error) {
	kind := contractx.KindOf(err)
	log.Error().
		Err(err).
		Int64("user_id", userID).
		Str("op", "completion").
		Str("kind", string(kind)).
		Msg("completion request failed")
	s.metrics.ObserveCompletion(string(kind))
	return FallbackFor(kind), err
}

// FallbackFor returns the user-facing text for a completion failure kind.
func FallbackFor(kind contractx.FailureKind) string {
	switch kind {
	case contractx.FailureAuth:
		return promptx.CompletionAuthError
	case contractx.FailureRateLimit:
		return promptx.CompletionRateLimit
	default:
		return promptx.CompletionFallback
	}
}

func classify(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		return contractx.NewKindError(contractx.KindFromStatus(apiErr.StatusCode), "completion", err)
	}
	return contractx.NewKindError(contractx.FailureUnavailable, "completion", fmt.Errorf("request: %w", err))
}

var _ contractx.Completer = (*Service)(nil)
