package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-shorturl/internal/urlservice/domain"
	"go-shorturl/internal/urlservice/enrichment"
	"go-shorturl/internal/urlservice/repository/memory"
	"go-shorturl/internal/urlservice/testutil/mocks"
	"go-shorturl/internal/urlservice/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc   *usecase.ResolutionService
	store *memory.Store
	gen   *mocks.MockCodeGenerator
	clock *fixedClock
}

func newFixture(t *testing.T, cfg usecase.Config) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		gen:   mocks.NewMockCodeGenerator(t),
		clock: &fixedClock{now: t0},
	}
	cfg.Clock = f.clock.Now
	f.svc = usecase.NewResolutionService(f.store, f.gen, enrichment.NewEnricher(), zap.NewNop(), cfg)
	return f
}

func ptr[T any](v T) *T { return &v }

func TestCreate_CustomCode_RoundTrip(t *testing.T) {
	f := newFixture(t, usecase.Config{})
	ctx := context.Background()
	expiry := t0.Add(2 * time.Hour)

	created, err := f.svc.Create(ctx, usecase.CreateInput{
		Original:  "https://example.com/x",
		ShortCode: "abc",
		Expiry:    &expiry,
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", created.Code)
	assert.Equal(t, "https://example.com/x", created.Target)
	assert.Equal(t, t0, created.CreatedAt)
	assert.Equal(t, expiry, created.ExpiresAt)
	assert.Zero(t, created.ClickCount)
	assert.Empty(t, created.ClickLog)

	stats, err := f.svc.Stats(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, created, stats)
}

func TestCreate_GeneratedCode_DefaultTTL(t *testing.T) {
	f := newFixture(t, usecase.Config{})
	f.gen.EXPECT().Generate().Return("Xy_9", nil).Once()

	created, err := f.svc.Create(context.Background(), usecase.CreateInput{Original: "https://example.com"})

	require.NoError(t, err)
	assert.Equal(t, "Xy_9", created.Code)
	assert.Equal(t, t0.Add(domain.DefaultTTL), created.ExpiresAt)
}

func TestCreate_ConfiguredTTL(t *testing.T) {
	f := newFixture(t, usecase.Config{DefaultTTL: time.Hour})

	created, err := f.svc.Create(context.Background(), usecase.CreateInput{
		Original:  "https://example.com",
		ShortCode: "ttl",
	})

	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), created.ExpiresAt)
}

func TestCreate_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   usecase.CreateInput
		wantErr error
	}{
		{
			name:    "missing original",
			input:   usecase.CreateInput{ShortCode: "abc"},
			wantErr: domain.ErrMissingField,
		},
		{
			name:    "not a url",
			input:   usecase.CreateInput{Original: "not-a-valid-url"},
			wantErr: domain.ErrInvalidURL,
		},
		{
			name:    "ftp scheme",
			input:   usecase.CreateInput{Original: "ftp://example.com/file"},
			wantErr: domain.ErrInvalidURL,
		},
		{
			name:    "expiry in the past",
			input:   usecase.CreateInput{Original: "https://example.com", Expiry: ptr(t0.Add(-time.Minute))},
			wantErr: domain.ErrInvalidExpiry,
		},
		{
			name:    "expiry equal to now",
			input:   usecase.CreateInput{Original: "https://example.com", Expiry: ptr(t0)},
			wantErr: domain.ErrInvalidExpiry,
		},
		{
			name:    "custom code with slash",
			input:   usecase.CreateInput{Original: "https://example.com", ShortCode: "a/b"},
			wantErr: domain.ErrInvalidCode,
		},
		{
			name:    "reserved custom code",
			input:   usecase.CreateInput{Original: "https://example.com", ShortCode: "shorturls"},
			wantErr: domain.ErrInvalidCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, usecase.Config{})

			got, err := f.svc.Create(context.Background(), tt.input)

			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.store.Len())
		})
	}
}

func TestCreate_CustomCodeTaken(t *testing.T) {
	f := newFixture(t, usecase.Config{})
	ctx := context.Background()

	_, err := f.svc.Create(ctx, usecase.CreateInput{Original: "https://first.example.com", ShortCode: "abc"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, usecase.CreateInput{Original: "https://second.example.com", ShortCode: "abc"})
	require.ErrorIs(t, err, domain.ErrCodeConflict)

	stats, err := f.svc.Stats(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://first.example.com", stats.Target)
}

func TestCreate_ConcurrentSameCustomCode_OneWinner(t *testing.T) {
	f := newFixture(t, usecase.Config{})
	const n = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), usecase.CreateInput{
				Original:  fmt.Sprintf("https://example.com/%d", i),
				ShortCode: "race",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrCodeConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, f.store.Len())
}

func TestCreate_RetryPolicy_RegeneratesOnCollision(t *testing.T) {
	f := newFixture(t, usecase.Config{CollisionPolicy: usecase.CollisionRetry})
	ctx := context.Background()
	require.NoError(t, f.store.Insert(ctx, domain.NewEntry("AAAA", "https://taken.example.com", t0, t0.Add(time.Hour))))

	f.gen.EXPECT().Generate().Return("AAAA", nil).Once()
	f.gen.EXPECT().Generate().Return("BBBB", nil).Once()

	created, err := f.svc.Create(ctx, usecase.CreateInput{Original: "https://example.com"})

	require.NoError(t, err)
	assert.Equal(t, "BBBB", created.Code)
}

func TestCreate_RetryPolicy_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, usecase.Config{CollisionPolicy: usecase.CollisionRetry, MaxAttempts: 3})
	ctx := context.Background()
	require.NoError(t, f.store.Insert(ctx, domain.NewEntry("AAAA", "https://taken.example.com", t0, t0.Add(time.Hour))))

	f.gen.EXPECT().Generate().Return("AAAA", nil).Times(3)

	_, err := f.svc.Create(ctx, usecase.CreateInput{Original: "https://example.com"})

	assert.ErrorIs(t, err, domain.ErrCodeConflict)
}

func TestCreate_RejectPolicy_FailsOnFirstCollision(t *testing.T) {
	f := newFixture(t, usecase.Config{CollisionPolicy: usecase.CollisionReject})
	ctx := context.Background()
	require.NoError(t, f.store.Insert(ctx, domain.NewEntry("AAAA", "https://taken.example.com", t0, t0.Add(time.Hour))))

	f.gen.EXPECT().Generate().Return("AAAA", nil).Once()

	_, err := f.svc.Create(ctx, usecase.CreateInput{Original: "https://example.com"})

	assert.ErrorIs(t, err, domain.ErrCodeConflict)
}

func TestCreate_GeneratorFailure(t *testing.T) {
	f := newFixture(t, usecase.Config{})
	f.gen.EXPECT().Generate().Return("", errors.New("entropy exhausted")).Once()

	_, err := f.svc.Create(context.Background(), usecase.CreateInput{Original: "https://example.com"})

	assert.ErrorContains(t, err, "entropy exhausted")
	assert.Zero(t, f.store.Len())
}

func TestResolve_RecordsClick(t *testing.T) {
	f := newFixture(t, usecase.Config{})
	ctx := context.Background()
	_, err := f.svc.Create(ctx, usecase.CreateInput{Original: "https://example.com/x", ShortCode: "abc"})
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	entry, err := f.svc.Resolve(ctx, usecase.ResolveInput{
		Code:      "abc",
		Referrer:  "https://www.google.com/search?q=x",
		Origin:    "10.0.0.1",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
	})

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/x", entry.Target)
	assert.Equal(t, int64(1), entry.ClickCount)
	require.Len(t, entry.ClickLog, 1)

	click := entry.ClickLog[0]
	assert.Equal(t, t0.Add(time.Second), click.Time)
	assert.Equal(t, "https://www.google.com/search?q=x", click.Referrer)
	assert.Equal(t, "10.0.0.1", click.Origin)
	assert.Equal(t, enrichment.SourceSearch, click.Source)
	assert.Equal(t, enrichment.DeviceMobile, click.Device)
	assert.NotEmpty(t, click.ID)
}

func TestResolve_TwiceCountsTwice(t *testing.T) {
	f := newFixture(t, usecase.Config{})
	ctx := context.Background()
	_, err := f.svc.Create(ctx, usecase.CreateInput{Original: "https://example.com", ShortCode: "abc"})
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, usecase.ResolveInput{Code: "abc", Origin: "10.0.0.1"})
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, usecase.ResolveInput{Code: "abc", Origin: "10.0.0.2"})
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ClickCount)
	require.Len(t, stats.ClickLog, 2)
	assert.Equal(t, "10.0.0.1", stats.ClickLog[0].Origin)
	assert.Equal(t, "10.0.0.2", stats.ClickLog[1].Origin)
	assert.Equal(t, enrichment.SourceDirect, stats.ClickLog[0].Source)
}

func TestResolve_ConcurrentClicksAreAllCounted(t *testing.T) {
	f := newFixture(t, usecase.Config{})
	ctx := context.Background()
	_, err := f.svc.Create(ctx, usecase.CreateInput{Original: "https://example.com", ShortCode: "hot"})
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Resolve(ctx, usecase.ResolveInput{Code: "hot", Origin: fmt.Sprintf("10.0.0.%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stats, err := f.svc.Stats(ctx, "hot")
	require.NoError(t, err)
	assert.Equal(t, int64(n), stats.ClickCount)
	assert.Len(t, stats.ClickLog, n)
}

func TestResolve_NotFound(t *testing.T) {
	f := newFixture(t, usecase.Config{})

	_, err := f.svc.Resolve(context.Background(), usecase.ResolveInput{Code: "nope"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_Expired_RecordsNothing(t *testing.T) {
	f := newFixture(t, usecase.Config{})
	ctx := context.Background()
	_, err := f.svc.Create(ctx, usecase.CreateInput{
		Original:  "https://example.com",
		ShortCode: "old",
		Expiry:    ptr(t0.Add(time.Second)),
	})
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.svc.Resolve(ctx, usecase.ResolveInput{Code: "old"})
	require.NoError(t, err, "an entry is still live at its exact expiry instant")

	f.clock.Advance(time.Millisecond)
	_, err = f.svc.Resolve(ctx, usecase.ResolveInput{Code: "old"})
	require.ErrorIs(t, err, domain.ErrExpired)

	stats, err := f.svc.Stats(ctx, "old")
	require.NoError(t, err, "stats still report expired entries")
	assert.Equal(t, int64(1), stats.ClickCount)
}

func TestStats_NotFound(t *testing.T) {
	f := newFixture(t, usecase.Config{})

	_, err := f.svc.Stats(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStorageUnavailable_Propagates(t *testing.T) {
	down := fmt.Errorf("%w: connection refused", domain.ErrStorageUnavailable)
	ctx := context.Background()

	store := mocks.NewMockRedirectStore(t)
	store.EXPECT().FindByCode(mock.Anything, "abc").Return(nil, down).Twice()
	store.EXPECT().Update(mock.Anything, "abc", mock.Anything).Return(nil, down).Once()
	svc := usecase.NewResolutionService(store, mocks.NewMockCodeGenerator(t), nil, zap.NewNop(), usecase.Config{})

	_, err := svc.Create(ctx, usecase.CreateInput{Original: "https://example.com", ShortCode: "abc"})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = svc.Resolve(ctx, usecase.ResolveInput{Code: "abc"})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	_, err = svc.Stats(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestCreate_InsertConflictAfterLookup(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMockRedirectStore(t)
	store.EXPECT().FindByCode(mock.Anything, "abc").Return(nil, domain.ErrNotFound).Once()
	store.EXPECT().Insert(mock.Anything, mock.MatchedBy(func(e *domain.Entry) bool {
		return e.Code == "abc" && e.Target == "https://example.com"
	})).Return(fmt.Errorf("%w: abc", domain.ErrCodeConflict)).Once()
	svc := usecase.NewResolutionService(store, mocks.NewMockCodeGenerator(t), nil, zap.NewNop(), usecase.Config{})

	_, err := svc.Create(ctx, usecase.CreateInput{Original: "https://example.com", ShortCode: "abc"})

	assert.ErrorIs(t, err, domain.ErrCodeConflict)
}

func TestCreate_CanceledContext(t *testing.T) {
	f := newFixture(t, usecase.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Create(ctx, usecase.CreateInput{Original: "https://example.com"})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogging_ComponentNames(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	clock := &fixedClock{now: t0}
	svc := usecase.NewResolutionService(memory.NewStore(), mocks.NewMockCodeGenerator(t), nil,
		zap.New(core).Named("backend"), usecase.Config{Clock: clock.Now})
	ctx := context.Background()

	_, err := svc.Create(ctx, usecase.CreateInput{Original: "nope"})
	require.ErrorIs(t, err, domain.ErrInvalidURL)
	_, err = svc.Create(ctx, usecase.CreateInput{Original: "https://example.com", ShortCode: "abc"})
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, usecase.ResolveInput{Code: "abc"})
	require.NoError(t, err)

	byName := func(name, msg string) []observer.LoggedEntry {
		return logs.Filter(func(e observer.LoggedEntry) bool {
			return e.LoggerName == name && e.Message == msg
		}).All()
	}

	invalid := byName("backend.middleware", "invalid url format")
	require.Len(t, invalid, 1)
	assert.Equal(t, zapcore.WarnLevel, invalid[0].Level)

	assert.Len(t, byName("backend.middleware", "URL validation passed"), 1)
	assert.Len(t, byName("backend.handler", "short URL created"), 1)
	assert.Len(t, byName("backend.service", "click stats updated"), 1)

	redirect := byName("backend.handler", "successful redirect")
	require.Len(t, redirect, 1)
	assert.Equal(t, "abc", redirect[0].ContextMap()["shortcode"])
}

// gatedStore holds the first Update until released, standing in for a
// request that waits on the per-code lock.
type gatedStore struct {
	*memory.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		Store:   memory.NewStore(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) Update(ctx context.Context, code string, mutate func(*domain.Entry) error) (*domain.Entry, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.Store.Update(ctx, code, mutate)
}

func TestResolve_ClickTimeTakenUnderLock(t *testing.T) {
	store := newGatedStore()
	clock := &fixedClock{now: t0}
	svc := usecase.NewResolutionService(store, mocks.NewMockCodeGenerator(t), nil, zap.NewNop(), usecase.Config{Clock: clock.Now})
	ctx := context.Background()
	_, err := svc.Create(ctx, usecase.CreateInput{Original: "https://example.com", ShortCode: "abc"})
	require.NoError(t, err)

	slow := make(chan error, 1)
	go func() {
		_, err := svc.Resolve(ctx, usecase.ResolveInput{Code: "abc", Origin: "slow"})
		slow <- err
	}()
	<-store.entered

	clock.Advance(time.Second)
	_, err = svc.Resolve(ctx, usecase.ResolveInput{Code: "abc", Origin: "fast"})
	require.NoError(t, err)

	clock.Advance(time.Second)
	close(store.release)
	require.NoError(t, <-slow)

	stats, err := svc.Stats(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, stats.ClickLog, 2)
	assert.Equal(t, "fast", stats.ClickLog[0].Origin)
	assert.Equal(t, t0.Add(time.Second), stats.ClickLog[0].Time)
	assert.Equal(t, "slow", stats.ClickLog[1].Origin)
	assert.Equal(t, t0.Add(2*time.Second), stats.ClickLog[1].Time)
	for i := 1; i < len(stats.ClickLog); i++ {
		assert.False(t, stats.ClickLog[i].Time.Before(stats.ClickLog[i-1].Time), "click log out of order at %d", i)
	}
}

func TestResolve_ExpiresWhileWaitingForLock(t *testing.T) {
	store := newGatedStore()
	clock := &fixedClock{now: t0}
	svc := usecase.NewResolutionService(store, mocks.NewMockCodeGenerator(t), nil, zap.NewNop(), usecase.Config{Clock: clock.Now})
	ctx := context.Background()
	_, err := svc.Create(ctx, usecase.CreateInput{
		Original:  "https://example.com",
		ShortCode: "brief",
		Expiry:    ptr(t0.Add(time.Second)),
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Resolve(ctx, usecase.ResolveInput{Code: "brief"})
		done <- err
	}()
	<-store.entered

	clock.Advance(2 * time.Second)
	close(store.release)

	assert.ErrorIs(t, <-done, domain.ErrExpired)
	stats, err := svc.Stats(ctx, "brief")
	require.NoError(t, err)
	assert.Zero(t, stats.ClickCount)
	assert.Empty(t, stats.ClickLog)
}
