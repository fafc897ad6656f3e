package lead

import (
	"context"
	"time"
)

// Store is the persistence contract for leads. Implementations return
// ErrLeadNotFound for missing rows and contract.KindError for remote failures.
type Store interface {
	Create(ctx context.Context, l Lead) (*Lead, error)
	Read(ctx context.Context, telegramID int64) (*Lead, error)
	Update(ctx context.Context, telegramID int64, patch Patch) (*Lead, error)
	Delete(ctx context.Context, telegramID int64) error
	Upsert(ctx context.Context, l Lead) (*Lead, error)
}

// Register creates the bootstrap row for a chat user, stamping both
// timestamps with registeredAt.
func Register(
	ctx context.Context,
	store Store,
	userID int64,
	username string,
	firstName string,
	lastName string,
	registeredAt time.Time,
) (*Lead, error) {
	return store.Create(ctx, Lead{
		TelegramID: userID,
		Username:   username,
		FirstName:  firstName,
		LastName:   lastName,
		CreatedAt:  registeredAt.UTC(),
		UpdatedAt:  registeredAt.UTC(),
	})
}
