package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	contractx "github.com/inmobot/inmobot/bot/contract"
)

const (
	defaultStoreKeyPrefix = "inmobot:session:"
	maxResponseSizeBytes  = 1 << 20
)

// UpstashRedisConfig is read from UPSTASH_REDIS_*.
type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" required:"true"`
	Token   string        `envconfig:"TOKEN" required:"true"`
	TTL     time.Duration `envconfig:"TTL" default:"24h"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

// StoreOption customizes UpstashRedisStore.
type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashRedisStore persists sessions in Upstash Redis through its REST API.
// Every save refreshes the key TTL so abandoned intakes expire.
type UpstashRedisStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}
	if cfg.TTL < 0 {
		return nil, errors.New("ttl must be >= 0")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashRedisStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultStoreKeyPrefix,
		ttl:        cfg.TTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, chatID int64) (*Session, error) {
	key, err := s.redisKey(chatID)
	if err != nil {
		return nil, err
	}

	resp, err := s.exec(ctx, "load", []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrStateNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(encoded), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return &sess, nil
}

func (s *UpstashRedisStore) Save(ctx context.Context, sess *Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now().UTC()
	}

	key, err := s.redisKey(sess.ChatID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	cmd := []any{"SET", key, string(payload)}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}
	_, err = s.exec(ctx, "save", cmd)
	return err
}

func (s *UpstashRedisStore) Delete(ctx context.Context, chatID int64) error {
	key, err := s.redisKey(chatID)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, "delete", []any{"DEL", key})
	return err
}

func (s *UpstashRedisStore) redisKey(chatID int64) (string, error) {
	if chatID == 0 {
		return "", ErrInvalidSession
	}
	return s.keyPrefix + strconv.FormatInt(chatID, 10), nil
}

func (s *UpstashRedisStore) exec(ctx context.Context, op string, command []any) (*redisRESTResponse, error) {
	op = "session " + op

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, contractx.NewKindError(contractx.FailureUnavailable, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, contractx.NewKindError(contractx.FailureUnavailable, op, fmt.Errorf("read redis response: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, contractx.NewKindError(contractx.KindFromStatus(resp.StatusCode), op,
			fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw)))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, contractx.NewKindError(contractx.FailureUnavailable, op, fmt.Errorf("decode redis response: %w", err))
	}
	if parsed.Error != "" {
		return nil, contractx.NewKindError(contractx.FailureUnavailable, op, errors.New(parsed.Error))
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
