package usecase

import (
	"context"
	"time"

	"go-shorturl/internal/urlservice/domain"
)

// RedirectStore is the source of truth for entries.
//
// Implementations wrap backend failures with domain.ErrStorageUnavailable.
type RedirectStore interface {
	// FindByCode returns a copy of the entry or domain.ErrNotFound.
	FindByCode(ctx context.Context, code string) (*domain.Entry, error)

	// Insert stores a new entry. The backend enforces code uniqueness at
	// write time and reports a taken code as domain.ErrCodeConflict.
	Insert(ctx context.Context, entry *domain.Entry) error

	// Update runs mutate against the current entry and commits the result as
	// one unit serialized per code. If mutate fails nothing is written and
	// its error is returned as is. Missing codes yield domain.ErrNotFound.
	Update(ctx context.Context, code string, mutate func(*domain.Entry) error) (*domain.Entry, error)

	// DeleteExpired physically removes entries that expired before the cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// CodeGenerator produces candidate short codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// ClickEnricher derives analytics fields for a click event.
type ClickEnricher interface {
	Enrich(event domain.ClickEvent, userAgent string) domain.ClickEvent
}
