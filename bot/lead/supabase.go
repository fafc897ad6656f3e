package lead

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
	defaultTable         = "leads"
	maxResponseSizeBytes = 2 << 20
)

type SupabaseConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Key     string        `envconfig:"KEY" split_words:"true" required:"true"`
	Table   string        `envconfig:"TABLE" split_words:"true" default:"leads"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func (c SupabaseConfig) Validate() error {
	if _, err := url.ParseRequestURI(strings.TrimSpace(c.URL)); err != nil {
		return fmt.Errorf("invalid supabase url: %w", err)
	}
	if strings.TrimSpace(c.Key) == "" {
		return errors.New("supabase key is required")
	}
	return nil
}

// SupabaseOption customizes SupabaseStore.
type SupabaseOption func(*SupabaseStore)

func WithHTTPClient(client *http.Client) SupabaseOption {
	return func(s *SupabaseStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

func WithSupabaseClock(now func() time.Time) SupabaseOption {
	return func(s *SupabaseStore) {
		if now != nil {
			s.now = now
		}
	}
}

// SupabaseStore talks to the leads table through Supabase's PostgREST API.
type SupabaseStore struct {
	baseURL    string
	key        string
	table      string
	httpClient *http.Client
	now        func() time.Time
}

var _ Store = (*SupabaseStore)(nil)

func NewSupabaseStore(cfg SupabaseConfig, opts ...SupabaseOption) (*SupabaseStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = defaultTable
	}

	store := &SupabaseStore{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		key:     strings.TrimSpace(cfg.Key),
		table:   table,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *SupabaseStore) Create(ctx context.Context, l Lead) (*Lead, error) {
	if l.TelegramID == 0 {
		return nil, ErrMissingTelegramID
	}
	l.stamp(s.now())

	rows, err := s.exec(ctx, "lead.create", http.MethodPost, nil, "return=representation", l)
	if err != nil {
		return nil, err
	}
	return firstRow("lead.create", rows)
}

func (s *SupabaseStore) Read(ctx context.Context, telegramID int64) (*Lead, error) {
	query := idFilter(telegramID)
	query.Set("select", "*")
	query.Set("limit", "1")

	rows, err := s.exec(ctx, "lead.read", http.MethodGet, query, "", nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrLeadNotFound
	}
	return &rows[0], nil
}

func (s *SupabaseStore) Update(ctx context.Context, telegramID int64, patch Patch) (*Lead, error) {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil, ErrEmptyPatch
	}
	cols["updated_at"] = s.now().UTC()

	rows, err := s.exec(ctx, "lead.update", http.MethodPatch, idFilter(telegramID), "return=representation", cols)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrLeadNotFound
	}
	return &rows[0], nil
}

func (s *SupabaseStore) Delete(ctx context.Context, telegramID int64) error {
	_, err := s.exec(ctx, "lead.delete", http.MethodDelete, idFilter(telegramID), "return=minimal", nil)
	return err
}

// Upsert inserts l with both timestamps stamped. When telegram_id is already
// taken the insert is ignored and the non-empty fields are merged into the
// existing row instead; the merge never sends created_at.
func (s *SupabaseStore) Upsert(ctx context.Context, l Lead) (*Lead, error) {
	if l.TelegramID == 0 {
		return nil, ErrMissingTelegramID
	}
	l.UpdatedAt = s.now().UTC()
	l.stamp(l.UpdatedAt)

	query := url.Values{}
	query.Set("on_conflict", "telegram_id")

	rows, err := s.exec(ctx, "lead.upsert", http.MethodPost, query, "resolution=ignore-duplicates,return=representation", l)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return &rows[0], nil
	}

	body := upsertColumns(l)
	body["telegram_id"] = l.TelegramID

	rows, err = s.exec(ctx, "lead.upsert", http.MethodPost, query, "resolution=merge-duplicates,return=representation", body)
	if err != nil {
		return nil, err
	}
	return firstRow("lead.upsert", rows)
}

func idFilter(telegramID int64) url.Values {
	query := url.Values{}
	query.Set("telegram_id", "eq."+strconv.FormatInt(telegramID, 10))
	return query
}

func firstRow(op string, rows []Lead) (*Lead, error) {
	if len(rows) == 0 {
		return nil, contractx.NewKindError(contractx.FailureUnavailable, op, errors.New("empty representation returned"))
	}
	return &rows[0], nil
}

func (s *SupabaseStore) exec(
	ctx context.Context,
	op string,
	method string,
	query url.Values,
	prefer string,
	payload any,
) ([]Lead, error) {
	if s == nil {
		return nil, errors.New("nil supabase store")
	}

	endpoint := s.baseURL + "/rest/v1/" + s.table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal payload: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, contractx.NewKindError(contractx.FailureUnavailable, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, contractx.NewKindError(contractx.FailureUnavailable, op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, contractx.NewKindError(
			contractx.KindFromStatus(resp.StatusCode),
			op,
			fmt.Errorf("supabase http status=%d body=%s", resp.StatusCode, string(raw)),
		)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var rows []restLead
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, contractx.NewKindError(contractx.FailureUnavailable, op, fmt.Errorf("decode response: %w", err))
	}
	leads := make([]Lead, 0, len(rows))
	for _, row := range rows {
		l := row.Lead
		l.CreatedAt = time.Time(row.CreatedAt)
		l.UpdatedAt = time.Time(row.UpdatedAt)
		leads = append(leads, l)
	}
	return leads, nil
}

// restLead decodes a PostgREST row. Its timestamps shadow the embedded
// Lead's so columns without a zone still parse.
type restLead struct {
	Lead
	CreatedAt restTime `json:"created_at"`
	UpdatedAt restTime `json:"updated_at"`
}

// restTime accepts RFC 3339 values and the zoneless form PostgREST emits for
// "timestamp without time zone" columns, which are read as UTC.
type restTime time.Time

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *restTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = restTime{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*t = restTime{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		*t = restTime(parsed)
		return nil
	}
	for _, layout := range zonelessLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			*t = restTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", raw)
}
