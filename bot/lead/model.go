package lead

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

var (
	ErrLeadNotFound      = errors.New("lead not found")
	ErrMissingTelegramID = errors.New("lead telegram_id is required")
	ErrEmptyPatch        = errors.New("lead patch has no fields")
)

// ClientType is the intake category chosen from the start menu. The values
// double as button payloads and stored column values.
type ClientType string

const (
	ClientBuyer    ClientType = "comprador"
	ClientInvestor ClientType = "inversor"
	ClientAdvisory ClientType = "asesoria"
)

var clientTypes = []ClientType{ClientBuyer, ClientInvestor, ClientAdvisory}

// ParseClientType reports whether s is a known client type payload.
func ParseClientType(s string) (ClientType, bool) {
	for _, ct := range clientTypes {
		if string(ct) == s {
			return ct, true
		}
	}
	return "", false
}

// Lead is one row of the leads table, keyed by the Telegram user id.
type Lead struct {
	bun.BaseModel `bun:"table:leads,alias:l" json:"-"`

	ID         int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	TelegramID int64      `bun:"telegram_id,notnull,unique" json:"telegram_id"`
	Username   string     `bun:"username" json:"username,omitempty"`
	FirstName  string     `bun:"first_name" json:"first_name,omitempty"`
	LastName   string     `bun:"last_name" json:"last_name,omitempty"`
	ClientType ClientType `bun:"client_type" json:"client_type,omitempty"`
	FullName   string     `bun:"full_name" json:"full_name,omitempty"`
	Phone      string     `bun:"phone" json:"phone,omitempty"`
	Email      string     `bun:"email" json:"email,omitempty"`
	Location   string     `bun:"location" json:"location,omitempty"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// stamp fills missing bootstrap timestamps.
func (l *Lead) stamp(now time.Time) {
	now = now.UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = now
	}
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Username   *string
	FirstName  *string
	LastName   *string
	ClientType *ClientType
	FullName   *string
	Phone      *string
	Email      *string
	Location   *string
}

func (p Patch) IsEmpty() bool {
	return len(p.Columns()) == 0
}

// Columns returns the set fields keyed by column name.
func (p Patch) Columns() map[string]any {
	cols := make(map[string]any, 8)
	setString := func(name string, v *string) {
		if v != nil {
			cols[name] = *v
		}
	}
	setString("username", p.Username)
	setString("first_name", p.FirstName)
	setString("last_name", p.LastName)
	if p.ClientType != nil {
		cols["client_type"] = string(*p.ClientType)
	}
	setString("full_name", p.FullName)
	setString("phone", p.Phone)
	setString("email", p.Email)
	setString("location", p.Location)
	return cols
}

// Apply merges the patch into l.
func (p Patch) Apply(l *Lead) {
	if p.Username != nil {
		l.Username = *p.Username
	}
	if p.FirstName != nil {
		l.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		l.LastName = *p.LastName
	}
	if p.ClientType != nil {
		l.ClientType = *p.ClientType
	}
	if p.FullName != nil {
		l.FullName = *p.FullName
	}
	if p.Phone != nil {
		l.Phone = *p.Phone
	}
	if p.Email != nil {
		l.Email = *p.Email
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
}

// upsertColumns lists the columns an upsert overwrites on conflict: every
// non-empty profile field plus updated_at. created_at is never overwritten.
func upsertColumns(l Lead) map[string]any {
	cols := Patch{
		Username:  nonEmpty(l.Username),
		FirstName: nonEmpty(l.FirstName),
		LastName:  nonEmpty(l.LastName),
		FullName:  nonEmpty(l.FullName),
		Phone:     nonEmpty(l.Phone),
		Email:     nonEmpty(l.Email),
		Location:  nonEmpty(l.Location),
	}.Columns()
	if l.ClientType != "" {
		cols["client_type"] = string(l.ClientType)
	}
	cols["updated_at"] = l.UpdatedAt
	return cols
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Str is a helper for building patches.
func Str(s string) *string {
	return &s
}
