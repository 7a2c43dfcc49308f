package cache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	require.NoError(t, EnsureSchema(context.Background(), db))
	return db
}

func TestMemoryStore_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "a", []byte("one"), time.Minute))
	require.NoError(t, store.Set(ctx, "b", []byte("two"), 0))

	val, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("one"), val)

	now = now.Add(2 * time.Minute)

	_, ok, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "entry should have expired")

	_, ok, _ = store.Get(ctx, "b")
	assert.True(t, ok, "entry without ttl never expires")

	deleted, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k", value, 0))
	value[0] = 'x'

	got, _, _ := store.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'y'
	again, _, _ := store.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestStores_RejectEmptyKey(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	for _, store := range []Store{NewMemoryStore(), NewSQLiteStore(db)} {
		_, _, err := store.Get(ctx, "")
		assert.ErrorIs(t, err, ErrKeyEmpty, store.Name())
		assert.ErrorIs(t, store.Set(ctx, "", nil, 0), ErrKeyEmpty, store.Name())
		assert.ErrorIs(t, store.Delete(ctx, ""), ErrKeyEmpty, store.Name())
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	store := NewSQLiteStore(db)

	require.NoError(t, store.Set(ctx, "fresh", []byte{1, 2, 3}, time.Hour))
	require.NoError(t, store.Set(ctx, "forever", []byte{4}, 0))

	val, ok, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, val)

	// Overwrite keeps a single row
	require.NoError(t, store.Set(ctx, "fresh", []byte{9}, time.Hour))
	val, _, _ = store.Get(ctx, "fresh")
	assert.Equal(t, []byte{9}, val)

	// Insert an already expired row directly
	_, err = db.Exec("INSERT INTO engine_cache (key, data, expires_at) VALUES (?, ?, ?)",
		"stale", []byte{7}, time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)

	_, ok, err = store.Get(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, ok, _ = store.Get(ctx, "forever")
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "forever"))
	_, ok, _ = store.Get(ctx, "forever")
	assert.False(t, ok)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "lottolab:")

	t.Run("hit", func(t *testing.T) {
		mock.ExpectGet("lottolab:k").SetVal("value")

		val, ok, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("value"), val)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet("lottolab:missing").RedisNil()

		val, ok, err := store.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, val)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		mock.ExpectGet("lottolab:boom").SetErr(redis.TxFailedErr)

		_, _, err := store.Get(ctx, "boom")
		assert.Error(t, err)
	})

	t.Run("set and delete", func(t *testing.T) {
		mock.ExpectSet("lottolab:k", []byte("v"), time.Hour).SetVal("OK")
		mock.ExpectDel("lottolab:k").SetVal(1)

		require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))
		require.NoError(t, store.Delete(ctx, "k"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBadgerStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewBadgerStore("", "test")
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Hour))
	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestCleanupJob(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	memory := NewMemoryStore()
	past := time.Now().Add(-time.Hour)
	memory.now = func() time.Time { return past }
	require.NoError(t, memory.Set(ctx, "old", []byte("x"), time.Minute))
	memory.now = time.Now

	sqliteStore := NewSQLiteStore(db)
	_, err := db.Exec("INSERT INTO engine_cache (key, data, expires_at) VALUES ('old', x'00', ?)", past.Unix())
	require.NoError(t, err)

	redisClient, _ := redismock.NewClientMock()
	job := NewCleanupJob(zerolog.Nop(), memory, sqliteStore, NewRedisStore(redisClient, ""))

	assert.Equal(t, "cache_cleanup", job.Name())
	require.NoError(t, job.Run())

	assert.Equal(t, 0, memory.Len())
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM engine_cache").Scan(&count))
	assert.Equal(t, 0, count)
}
