package lead

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	contractx "github.com/inmobot/inmobot/bot/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN         string        `envconfig:"DSN" required:"true"`
	AutoMigrate bool          `split_words:"true" default:"false"`
	DialTimeout time.Duration `split_words:"true" default:"5s"`
}

// OpenPostgres opens a bun handle over pgdriver for cfg.DSN.
func OpenPostgres(cfg PostgresConfig) *bun.DB {
	opts := []pgdriver.Option{pgdriver.WithDSN(strings.TrimSpace(cfg.DSN))}
	if cfg.DialTimeout > 0 {
		opts = append(opts, pgdriver.WithDialTimeout(cfg.DialTimeout))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	return bun.NewDB(sqldb, pgdialect.New())
}

// PostgresStore keeps leads in a Postgres table through bun.
type PostgresStore struct {
	db  bun.IDB
	now func() time.Time
}

var _ Store = (*PostgresStore)(nil)

type PostgresOption func(*PostgresStore)

func WithPostgresClock(now func() time.Time) PostgresOption {
	return func(s *PostgresStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewPostgresStore(db bun.IDB, opts ...PostgresOption) *PostgresStore {
	if db == nil {
		panic("lead: bun db required")
	}
	s := &PostgresStore{db: db, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Migrate creates the leads table when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Lead)(nil)).IfNotExists().Exec(ctx); err != nil {
		return pgKindError("lead.migrate", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, l Lead) (*Lead, error) {
	if l.TelegramID == 0 {
		return nil, ErrMissingTelegramID
	}
	l.stamp(s.now())

	if _, err := s.db.NewInsert().Model(&l).Returning("*").Exec(ctx); err != nil {
		return nil, pgKindError("lead.create", err)
	}
	return &l, nil
}

func (s *PostgresStore) Read(ctx context.Context, telegramID int64) (*Lead, error) {
	var l Lead
	err := s.db.NewSelect().
		Model(&l).
		Where("telegram_id = ?", telegramID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, pgKindError("lead.read", err)
	}
	return &l, nil
}

func (s *PostgresStore) Update(ctx context.Context, telegramID int64, patch Patch) (*Lead, error) {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil, ErrEmptyPatch
	}

	var l Lead
	q := s.db.NewUpdate().
		Model(&l).
		Where("telegram_id = ?", telegramID).
		Returning("*")
	for _, name := range sortedKeys(cols) {
		q = q.Set("? = ?", bun.Ident(name), cols[name])
	}
	q = q.Set("updated_at = ?", s.now().UTC())

	res, err := q.Exec(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, pgKindError("lead.update", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrLeadNotFound
	}
	return &l, nil
}

func (s *PostgresStore) Delete(ctx context.Context, telegramID int64) error {
	_, err := s.db.NewDelete().
		Model((*Lead)(nil)).
		Where("telegram_id = ?", telegramID).
		Exec(ctx)
	if err != nil {
		return pgKindError("lead.delete", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, l Lead) (*Lead, error) {
	if l.TelegramID == 0 {
		return nil, ErrMissingTelegramID
	}
	l.stamp(s.now())
	l.UpdatedAt = s.now().UTC()

	q := s.db.NewInsert().
		Model(&l).
		On("CONFLICT (telegram_id) DO UPDATE").
		Returning("*")
	cols := upsertColumns(l)
	for _, name := range sortedKeys(cols) {
		q = q.Set("? = EXCLUDED.?", bun.Ident(name), bun.Ident(name))
	}

	if _, err := q.Exec(ctx); err != nil {
		return nil, pgKindError("lead.upsert", err)
	}
	return &l, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// pgKindError classifies Postgres errors by SQLSTATE: class 28 is an
// authorization failure, 53300 is too_many_connections.
func pgKindError(op string, err error) error {
	var coded interface{ Field(byte) string }
	if errors.As(err, &coded) {
		code := coded.Field('C')
		switch {
		case strings.HasPrefix(code, "28"):
			return contractx.NewKindError(contractx.FailureAuth, op, err)
		case code == "53300":
			return contractx.NewKindError(contractx.FailureRateLimit, op, err)
		}
	}
	return contractx.NewKindError(contractx.FailureUnavailable, op, fmt.Errorf("postgres: %w", err))
}
