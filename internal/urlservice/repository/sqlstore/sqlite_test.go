package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-shorturl/internal/urlservice/database"
	"go-shorturl/internal/urlservice/domain"
	"go-shorturl/internal/urlservice/repository/sqlstore"
	"go-shorturl/internal/urlservice/repository/storetest"
	"go-shorturl/internal/urlservice/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *sqlstore.Store {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	err = database.RunMigrations(db, database.DriverSQLite)
	require.NoError(t, err)

	return sqlstore.New(db, sqlstore.SQLite)
}

func TestSQLiteStore_Contract(t *testing.T) {
	factory := func(t *testing.T) usecase.RedirectStore { return setupSQLite(t) }
	storetest.Run(t, factory)
	storetest.RunSweep(t, factory)
}

func TestSQLiteStore_OnDisk_SurvivesReopen(t *testing.T) {
	path := t.TempDir() + "/data/shorturl.db"
	ctx := context.Background()

	db, err := database.OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, database.DriverSQLite))
	store := sqlstore.New(db, sqlstore.SQLite)
	require.NoError(t, store.Insert(ctx, storetest.NewEntry("disk", time.Hour)))
	_, err = store.Update(ctx, "disk", func(e *domain.Entry) error {
		domain.NewClickRecorder().Record(e, domain.NewClickEvent(time.Now(), "", "10.0.0.1"))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	db, err = database.OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db, database.DriverSQLite), "second run is a no-op")
	store = sqlstore.New(db, sqlstore.SQLite)
	t.Cleanup(func() { store.Close() })

	got, err := store.FindByCode(ctx, "disk")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ClickCount)
	require.Len(t, got.ClickLog, 1)
	assert.Equal(t, "10.0.0.1", got.ClickLog[0].Origin)
}

func TestSQLiteStore_ClosedDB_ReportsUnavailable(t *testing.T) {
	store := setupSQLite(t)
	require.NoError(t, store.Close())

	_, err := store.FindByCode(context.Background(), "any")
	assert.True(t, errors.Is(err, domain.ErrStorageUnavailable), "got %v", err)

	err = store.Insert(context.Background(), storetest.NewEntry("any", time.Hour))
	assert.True(t, errors.Is(err, domain.ErrStorageUnavailable), "got %v", err)

	assert.Error(t, store.Ping(context.Background()))
}

func TestSQLiteStore_Insert_RejectsNonPositiveLifetime(t *testing.T) {
	store := setupSQLite(t)
	entry := storetest.NewEntry("bad", time.Hour)
	entry.ExpiresAt = entry.CreatedAt

	err := store.Insert(context.Background(), entry)

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrCodeConflict))
}
