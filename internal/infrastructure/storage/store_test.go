package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"billing-ledger/internal/database"
	"billing-ledger/internal/domain"
	"billing-ledger/internal/infrastructure/storage"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// failingStore rejects every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk unavailable")
}
func (failingStore) Put(context.Context, string, []byte) error { return errors.New("disk full") }
func (failingStore) Delete(context.Context, string) error      { return errors.New("disk full") }
func (failingStore) Keys(context.Context) ([]string, error) {
	return nil, errors.New("disk unavailable")
}

func TestReadWriteMemory(t *testing.T) {
	exerciseStore(t, storage.NewMemoryStore())
}

func TestReadWriteSQLite(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "ledger.db")

	db, err := database.New(ctx, database.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema(ctx))

	exerciseStore(t, storage.NewSQLStore(db.DB()))

	health := db.Health(ctx)
	assert.Equal(t, "up", health["status"])
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "ledger.db")

	db, err := database.New(ctx, database.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, db.InitSchema(ctx))
	require.NoError(t, storage.Write(ctx, storage.NewSQLStore(db.DB()), "k", record{Name: "kept", Count: 3}))
	require.NoError(t, db.Close())

	reopened, err := database.New(ctx, database.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })
	require.NoError(t, reopened.InitSchema(ctx))

	got := storage.Read(ctx, storage.NewSQLStore(reopened.DB()), "k", record{})
	assert.Equal(t, record{Name: "kept", Count: 3}, got)
}

func TestReadWritePostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("ledger"),
		postgres.WithUsername("ledger"),
		postgres.WithPassword("ledger"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.New(ctx, database.DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema(ctx))

	exerciseStore(t, storage.NewSQLStore(db.DB()))
}

func exerciseStore(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("Missing key yields default", func(t *testing.T) {
		got := storage.Read(ctx, s, "absent", []record{{Name: "default"}})
		assert.Equal(t, []record{{Name: "default"}}, got)
	})

	t.Run("Write then read", func(t *testing.T) {
		require.NoError(t, storage.Write(ctx, s, "records", []record{{Name: "a", Count: 1}}))
		got := storage.Read[[]record](ctx, s, "records", nil)
		assert.Equal(t, []record{{Name: "a", Count: 1}}, got)
	})

	t.Run("Write replaces the whole value", func(t *testing.T) {
		require.NoError(t, storage.Write(ctx, s, "records", []record{{Name: "b", Count: 2}}))
		got := storage.Read[[]record](ctx, s, "records", nil)
		assert.Equal(t, []record{{Name: "b", Count: 2}}, got)
	})

	t.Run("Malformed value yields default", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "broken", []byte(`{not json`)))
		got := storage.Read(ctx, s, "broken", []record{})
		assert.Empty(t, got)
	})

	t.Run("Keys and clear", func(t *testing.T) {
		require.NoError(t, storage.Write(ctx, s, storage.KeyOrders, []record{}))
		keys, err := s.Keys(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, storage.KeyOrders)

		require.NoError(t, storage.Clear(ctx, s))
		_, err = s.Get(ctx, storage.KeyOrders)
		assert.ErrorIs(t, err, storage.ErrKeyNotFound)
	})
}

func TestReadDegradesOnStoreFailure(t *testing.T) {
	got := storage.Read(context.Background(), failingStore{}, "records", []record{})
	assert.Empty(t, got)
}

func TestWritePropagatesStoreFailure(t *testing.T) {
	err := storage.Write(context.Background(), failingStore{}, "records", []record{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()

	t.Run("Missing key yields default", func(t *testing.T) {
		got, err := storage.Load(ctx, s, "absent", []record{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Stored value", func(t *testing.T) {
		require.NoError(t, storage.Write(ctx, s, "records", []record{{Name: "a", Count: 1}}))
		got, err := storage.Load[[]record](ctx, s, "records", nil)
		require.NoError(t, err)
		assert.Equal(t, []record{{Name: "a", Count: 1}}, got)
	})

	t.Run("Fail on store failure", func(t *testing.T) {
		_, err := storage.Load(ctx, failingStore{}, "records", []record{})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrStorage)
	})
}

func TestReadText(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()

	require.NoError(t, storage.Write(ctx, s, "encoded", "list every item"))
	assert.Equal(t, "list every item", storage.ReadText(ctx, s, "encoded"))

	require.NoError(t, s.Put(ctx, "raw", []byte("list every item")))
	assert.Equal(t, "list every item", storage.ReadText(ctx, s, "raw"))

	assert.Empty(t, storage.ReadText(ctx, s, "absent"))
	assert.Empty(t, storage.ReadText(ctx, failingStore{}, "raw"))
}
