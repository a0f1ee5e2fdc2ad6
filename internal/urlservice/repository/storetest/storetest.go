// Package storetest holds behaviour checks shared by every RedirectStore.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-shorturl/internal/urlservice/domain"
	"go-shorturl/internal/urlservice/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) usecase.RedirectStore

// Run exercises the RedirectStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("InsertThenFind", func(t *testing.T) { testInsertThenFind(t, newStore(t)) })
	t.Run("FindMissing", func(t *testing.T) { testFindMissing(t, newStore(t)) })
	t.Run("InsertDuplicate", func(t *testing.T) { testInsertDuplicate(t, newStore(t)) })
	t.Run("ConcurrentInsertSameCode", func(t *testing.T) { testConcurrentInsert(t, newStore(t)) })
	t.Run("UpdateAppendsClicks", func(t *testing.T) { testUpdateAppends(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("UpdateMutateErrorWritesNothing", func(t *testing.T) { testUpdateMutateError(t, newStore(t)) })
	t.Run("ConcurrentUpdatesLoseNothing", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
	t.Run("SweepRacesUpdates", func(t *testing.T) { testSweepRacesUpdates(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newStore(t).Ping(context.Background())) })
}

// RunSweep checks DeleteExpired for stores that remove entries physically.
func RunSweep(t *testing.T, newStore Factory) {
	t.Run("DeleteExpired", func(t *testing.T) { testDeleteExpired(t, newStore(t)) })
}

// NewEntry builds an entry created now with the given lifetime.
func NewEntry(code string, ttl time.Duration) *domain.Entry {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return domain.NewEntry(code, "https://example.com/"+code, now, now.Add(ttl))
}

func click(origin string) func(*domain.Entry) error {
	return func(e *domain.Entry) error {
		at := time.Now().UTC().Truncate(time.Microsecond)
		event := domain.NewClickEvent(at, "https://referrer.example.com", origin)
		event.Source = "Referral"
		event.Device = "Desktop"
		domain.NewClickRecorder().Record(e, event)
		return nil
	}
}

// liveClick records a click only while the entry has not expired.
func liveClick(origin string) func(*domain.Entry) error {
	return func(e *domain.Entry) error {
		if e.IsExpired(time.Now()) {
			return fmt.Errorf("%w: %s", domain.ErrExpired, e.Code)
		}
		return click(origin)(e)
	}
}

func testInsertThenFind(t *testing.T, store usecase.RedirectStore) {
	ctx := context.Background()
	entry := NewEntry("find1", time.Hour)

	require.NoError(t, store.Insert(ctx, entry))

	got, err := store.FindByCode(ctx, "find1")
	require.NoError(t, err)
	assert.Equal(t, entry.Code, got.Code)
	assert.Equal(t, entry.Target, got.Target)
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", entry.CreatedAt, got.CreatedAt)
	assert.True(t, entry.ExpiresAt.Equal(got.ExpiresAt), "expires_at %s != %s", entry.ExpiresAt, got.ExpiresAt)
	assert.Zero(t, got.ClickCount)
	assert.Empty(t, got.ClickLog)
}

func testFindMissing(t *testing.T, store usecase.RedirectStore) {
	_, err := store.FindByCode(context.Background(), "nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func testInsertDuplicate(t *testing.T, store usecase.RedirectStore) {
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, NewEntry("dup", time.Hour)))

	other := NewEntry("dup", time.Hour)
	other.Target = "https://other.example.com"
	err := store.Insert(ctx, other)

	assert.True(t, errors.Is(err, domain.ErrCodeConflict), "got %v", err)
	got, err := store.FindByCode(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/dup", got.Target)
}

func testConcurrentInsert(t *testing.T, store usecase.RedirectStore) {
	ctx := context.Background()
	const workers = 8

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry := NewEntry("race", time.Hour)
			entry.Target = fmt.Sprintf("https://example.com/%d", i)
			err := store.Insert(ctx, entry)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, domain.ErrCodeConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())
}

func testUpdateAppends(t *testing.T, store usecase.RedirectStore) {
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, NewEntry("upd", time.Hour)))

	first, err := store.Update(ctx, "upd", click("10.0.0.1"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ClickCount)

	second, err := store.Update(ctx, "upd", click("10.0.0.2"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ClickCount)

	got, err := store.FindByCode(ctx, "upd")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ClickCount)
	require.Len(t, got.ClickLog, 2)
	assert.Equal(t, "10.0.0.1", got.ClickLog[0].Origin)
	assert.Equal(t, "10.0.0.2", got.ClickLog[1].Origin)
	assert.Equal(t, "https://referrer.example.com", got.ClickLog[0].Referrer)
	assert.Equal(t, "Referral", got.ClickLog[0].Source)
	assert.Equal(t, "Desktop", got.ClickLog[0].Device)
	assert.Equal(t, first.ClickLog[0].ID, got.ClickLog[0].ID)
	assert.True(t, first.ClickLog[0].Time.Equal(got.ClickLog[0].Time))
}

func testUpdateMissing(t *testing.T, store usecase.RedirectStore) {
	_, err := store.Update(context.Background(), "ghost", click("10.0.0.1"))
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func testUpdateMutateError(t *testing.T, store usecase.RedirectStore) {
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, NewEntry("fail", time.Hour)))

	sentinel := errors.New("stop")
	_, err := store.Update(ctx, "fail", func(e *domain.Entry) error {
		_ = click("10.0.0.1")(e)
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	got, err := store.FindByCode(ctx, "fail")
	require.NoError(t, err)
	assert.Zero(t, got.ClickCount)
	assert.Empty(t, got.ClickLog)
}

func testConcurrentUpdates(t *testing.T, store usecase.RedirectStore) {
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, NewEntry("hot", time.Hour)))

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Update(ctx, "hot", click(fmt.Sprintf("10.0.0.%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.FindByCode(ctx, "hot")
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.ClickCount)
	assert.Len(t, got.ClickLog, n)
}

func testDeleteExpired(t *testing.T, store usecase.RedirectStore) {
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, NewEntry("live", time.Hour)))

	dead := NewEntry("dead", time.Minute)
	dead.CreatedAt = dead.CreatedAt.Add(-time.Hour)
	dead.ExpiresAt = dead.ExpiresAt.Add(-time.Hour)
	require.NoError(t, store.Insert(ctx, dead))
	_, err := store.Update(ctx, "dead", click("10.0.0.1"))
	require.NoError(t, err)

	removed, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.FindByCode(ctx, "dead")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
	_, err = store.FindByCode(ctx, "live")
	assert.NoError(t, err)

	require.NoError(t, store.Insert(ctx, NewEntry("dead", time.Hour)), "code is reusable after removal")
	got, err := store.FindByCode(ctx, "dead")
	require.NoError(t, err)
	assert.Empty(t, got.ClickLog)
}

// testSweepRacesUpdates sweeps in a loop while clicks hit a dead and a live
// entry. Stores without a physical sweep still have to report the dead entry
// as expired.
func testSweepRacesUpdates(t *testing.T, store usecase.RedirectStore) {
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, NewEntry("alive", time.Hour)))

	dead := NewEntry("gone", time.Minute)
	dead.CreatedAt = dead.CreatedAt.Add(-time.Hour)
	dead.ExpiresAt = dead.ExpiresAt.Add(-time.Hour)
	require.NoError(t, store.Insert(ctx, dead))

	stop := make(chan struct{})
	swept := make(chan struct{})
	go func() {
		defer close(swept)
		for {
			select {
			case <-stop:
				return
			default:
			}
			_, err := store.DeleteExpired(ctx, time.Now())
			assert.NoError(t, err)
			time.Sleep(time.Millisecond)
		}
	}()

	const n = 20
	var (
		wg     sync.WaitGroup
		liveOK atomic.Int64
	)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := store.Update(ctx, "alive", liveClick(fmt.Sprintf("10.0.1.%d", i)))
			if assert.NoError(t, err) {
				liveOK.Add(1)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := store.Update(ctx, "gone", liveClick(fmt.Sprintf("10.0.2.%d", i)))
			assert.True(t, errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrExpired),
				"dead entry update returned %v", err)
		}(i)
	}
	wg.Wait()
	close(stop)
	<-swept

	got, err := store.FindByCode(ctx, "alive")
	require.NoError(t, err)
	assert.Equal(t, liveOK.Load(), got.ClickCount)
	assert.Len(t, got.ClickLog, int(liveOK.Load()))

	gone, err := store.FindByCode(ctx, "gone")
	if err == nil {
		assert.Zero(t, gone.ClickCount)
		assert.Empty(t, gone.ClickLog)
	} else {
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
}
