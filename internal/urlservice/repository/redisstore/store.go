// Package redisstore implements the RedirectStore on Redis.
//
// An entry lives in the hash shorturl:{code} and its click log in the list
// shorturl:{code}:clicks. Writes use WATCH/MULTI so a concurrent writer on the
// same code aborts the transaction, which is then retried.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go-shorturl/internal/urlservice/domain"
	"go-shorturl/internal/urlservice/usecase"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "shorturl:"
	maxTxRetries = 100

	fieldTarget     = "target"
	fieldCreatedAt  = "created_at"
	fieldExpiresAt  = "expires_at"
	fieldClickCount = "click_count"
)

// Store keeps entries in Redis. Physical removal is left to key expiry.
type Store struct {
	rdb       *redis.Client
	retention time.Duration
}

var _ usecase.RedirectStore = (*Store)(nil)

// NewStore returns a store whose keys vanish retention after an entry expires.
func NewStore(rdb *redis.Client, retention time.Duration) *Store {
	return &Store{rdb: rdb, retention: retention}
}

func entryKey(code string) string {
	return keyPrefix + code
}

func clicksKey(code string) string {
	return keyPrefix + code + ":clicks"
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
}

// storedClick is the JSON form of a click list element.
type storedClick struct {
	ID       string `json:"id"`
	Time     int64  `json:"t"`
	Referrer string `json:"referrer,omitempty"`
	Origin   string `json:"origin,omitempty"`
	Source   string `json:"source,omitempty"`
	Device   string `json:"device,omitempty"`
}

func (s *Store) FindByCode(ctx context.Context, code string) (*domain.Entry, error) {
	// MULTI keeps the hash and the list in step with concurrent updates
	var (
		hash   *redis.MapStringStringCmd
		clicks *redis.StringSliceCmd
	)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		hash = pipe.HGetAll(ctx, entryKey(code))
		clicks = pipe.LRange(ctx, clicksKey(code), 0, -1)
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return decode(code, hash.Val(), clicks.Val())
}

func (s *Store) Insert(ctx context.Context, entry *domain.Entry) error {
	key := entryKey(entry.Code)
	err := s.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return unavailable(err)
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", domain.ErrCodeConflict, entry.Code)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, clicksKey(entry.Code))
			pipe.HSet(ctx, key,
				fieldTarget, entry.Target,
				fieldCreatedAt, entry.CreatedAt.UnixMicro(),
				fieldExpiresAt, entry.ExpiresAt.UnixMicro(),
				fieldClickCount, entry.ClickCount,
			)
			pipe.PExpireAt(ctx, key, entry.ExpiresAt.Add(s.retention))
			return nil
		})
		return execErr(err)
	}, key)
	return err
}

// Update retries on contention until the WATCHed keys commit untouched.
func (s *Store) Update(ctx context.Context, code string, mutate func(*domain.Entry) error) (*domain.Entry, error) {
	key, listKey := entryKey(code), clicksKey(code)

	var result *domain.Entry
	err := s.watch(ctx, func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return unavailable(err)
		}
		raw, err := tx.LRange(ctx, listKey, 0, -1).Result()
		if err != nil {
			return unavailable(err)
		}
		entry, err := decode(code, fields, raw)
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

		appended := make([]interface{}, 0, len(entry.ClickLog)-before)
		for _, ev := range entry.ClickLog[before:] {
			data, err := json.Marshal(storedClick{
				ID:       ev.ID,
				Time:     ev.Time.UnixMicro(),
				Referrer: ev.Referrer,
				Origin:   ev.Origin,
				Source:   ev.Source,
				Device:   ev.Device,
			})
			if err != nil {
				return fmt.Errorf("failed to encode click: %w", err)
			}
			appended = append(appended, data)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(appended) > 0 {
				pipe.RPush(ctx, listKey, appended...)
				pipe.PExpireAt(ctx, listKey, entry.ExpiresAt.Add(s.retention))
			}
			pipe.HSet(ctx, key, fieldClickCount, entry.ClickCount)
			return nil
		})
		if err != nil {
			return execErr(err)
		}
		result = entry
		return nil
	}, key, listKey)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteExpired is a no-op: keys carry a PEXPIREAT set at insert time.
func (s *Store) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return 0, ctx.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

// watch runs fn under WATCH keys, retrying when another client wins the race.
// Errors returned by fn pass through untouched.
func (s *Store) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		ran := false
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			ran = true
			return fn(tx)
		}, keys...)
		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case err != nil && !ran:
			return unavailable(err)
		}
		return err
	}
	return unavailable(fmt.Errorf("transaction on %v aborted %d times", keys, maxTxRetries))
}

// execErr keeps redis.TxFailedErr visible to watch.
func execErr(err error) error {
	if err == nil || errors.Is(err, redis.TxFailedErr) {
		return err
	}
	return unavailable(err)
}

func decode(code string, fields map[string]string, rawClicks []string) (*domain.Entry, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, code)
	}

	createdAt, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, unavailable(fmt.Errorf("corrupt %s of %s: %w", fieldCreatedAt, code, err))
	}
	expiresAt, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, unavailable(fmt.Errorf("corrupt %s of %s: %w", fieldExpiresAt, code, err))
	}
	clickCount, err := strconv.ParseInt(fields[fieldClickCount], 10, 64)
	if err != nil {
		return nil, unavailable(fmt.Errorf("corrupt %s of %s: %w", fieldClickCount, code, err))
	}

	log := make([]domain.ClickEvent, 0, len(rawClicks))
	for _, raw := range rawClicks {
		var c storedClick
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, unavailable(fmt.Errorf("corrupt click of %s: %w", code, err))
		}
		log = append(log, domain.ClickEvent{
			ID:       c.ID,
			Time:     time.UnixMicro(c.Time).UTC(),
			Referrer: c.Referrer,
			Origin:   c.Origin,
			Source:   c.Source,
			Device:   c.Device,
		})
	}

	return &domain.Entry{
		Code:       code,
		Target:     fields[fieldTarget],
		CreatedAt:  time.UnixMicro(createdAt).UTC(),
		ExpiresAt:  time.UnixMicro(expiresAt).UTC(),
		ClickCount: clickCount,
		ClickLog:   log,
	}, nil
}
