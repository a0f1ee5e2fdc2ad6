// Package sqlstore implements the RedirectStore on database/sql for SQLite
// and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go-shorturl/internal/urlservice/domain"
	"go-shorturl/internal/urlservice/usecase"

	"github.com/samber/lo"
)

const (
	selectEntry   = `SELECT code, target, created_at, expires_at, click_count FROM entries WHERE code = ?`
	selectClicks  = `SELECT id, clicked_at, referrer, origin, source, device FROM clicks WHERE code = ? ORDER BY seq`
	insertEntry   = `INSERT INTO entries (code, target, created_at, expires_at, click_count) VALUES (?, ?, ?, ?, ?)`
	insertClick   = `INSERT INTO clicks (id, code, seq, clicked_at, referrer, origin, source, device) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	updateCount   = `UPDATE entries SET click_count = ? WHERE code = ?`
	deleteClicks  = `DELETE FROM clicks WHERE code IN (SELECT code FROM entries WHERE expires_at < ?)`
	deleteEntries = `DELETE FROM entries WHERE expires_at < ?`
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store persists entries in an "entries" table and their click log in "clicks".
type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ usecase.RedirectStore = (*Store)(nil)

// New wraps an already migrated database.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}

func (s *Store) FindByCode(ctx context.Context, code string) (*domain.Entry, error) {
	var entry *domain.Entry
	err := s.withTx(ctx, s.dialect.readTx, func(tx *sql.Tx) error {
		var err error
		entry, err = s.load(ctx, tx, code, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) Insert(ctx context.Context, entry *domain.Entry) error {
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(insertEntry),
		entry.Code,
		entry.Target,
		entry.CreatedAt.UnixMicro(),
		entry.ExpiresAt.UnixMicro(),
		entry.ClickCount,
	)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrCodeConflict, entry.Code)
		}
		return unavailable(err)
	}
	return nil
}

// Update locks the entry row, applies mutate, then inserts the appended
// click events and the new counter in the same transaction.
func (s *Store) Update(ctx context.Context, code string, mutate func(*domain.Entry) error) (*domain.Entry, error) {
	var entry *domain.Entry
	err := s.withTx(ctx, nil, func(tx *sql.Tx) error {
		var err error
		entry, err = s.load(ctx, tx, code, s.dialect.lockRow)
		if err != nil {
			return err
		}

		before := len(entry.ClickLog)
		if err := mutate(entry); err != nil {
			return err
		}
		if len(entry.ClickLog) < before {
			return fmt.Errorf("click log of %s shrank from %d to %d", code, before, len(entry.ClickLog))
		}

		for i, ev := range entry.ClickLog[before:] {
			if _, err := tx.ExecContext(ctx, s.dialect.rebind(insertClick),
				ev.ID, code, before+i, ev.Time.UnixMicro(), ev.Referrer, ev.Origin, ev.Source, ev.Device,
			); err != nil {
				return unavailable(err)
			}
		}

		if _, err := tx.ExecContext(ctx, s.dialect.rebind(updateCount), entry.ClickCount, code); err != nil {
			return unavailable(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := s.withTx(ctx, nil, func(tx *sql.Tx) error {
		cutoff := before.UnixMicro()
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(deleteClicks), cutoff); err != nil {
			return unavailable(err)
		}
		res, err := tx.ExecContext(ctx, s.dialect.rebind(deleteEntries), cutoff)
		if err != nil {
			return unavailable(err)
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return unavailable(err)
		}
		return nil
	})
	return removed, err
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, rolling back on error or panic.
func (s *Store) withTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return unavailable(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, q querier, code, suffix string) (*domain.Entry, error) {
	var (
		entry              domain.Entry
		createdAt, expires int64
	)
	err := q.QueryRowContext(ctx, s.dialect.rebind(selectEntry+suffix), code).
		Scan(&entry.Code, &entry.Target, &createdAt, &expires, &entry.ClickCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, code)
		}
		return nil, unavailable(err)
	}
	entry.CreatedAt = time.UnixMicro(createdAt).UTC()
	entry.ExpiresAt = time.UnixMicro(expires).UTC()

	rows, err := q.QueryContext(ctx, s.dialect.rebind(selectClicks), code)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	type clickRow struct {
		domain.ClickEvent
		at int64
	}
	var clicks []clickRow
	for rows.Next() {
		var c clickRow
		if err := rows.Scan(&c.ID, &c.at, &c.Referrer, &c.Origin, &c.Source, &c.Device); err != nil {
			return nil, unavailable(err)
		}
		clicks = append(clicks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}

	entry.ClickLog = lo.Map(clicks, func(c clickRow, _ int) domain.ClickEvent {
		c.Time = time.UnixMicro(c.at).UTC()
		return c.ClickEvent
	})
	return &entry, nil
}
