package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/s3sig/internal/registry"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(context.Background(), DefaultConfig(":memory:"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func TestRegisterAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := registry.Record{
		UploadID:  "upload-1",
		Bucket:    "my-bucket",
		Key:       "my-key",
		PartCount: 0,
		State:     registry.StateOpen,
		CreatedAt: time.Date(2023, 7, 30, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Register(ctx, rec))

	got, err := store.Get(ctx, "upload-1")
	require.NoError(t, err)
	assert.Equal(t, rec.Bucket, got.Bucket)
	assert.Equal(t, registry.StateOpen, got.State)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, registry.ErrNotFound)
}

func TestMarkStateAndListByState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Register(ctx, registry.Record{
			UploadID: id, Bucket: "bucket", Key: id, State: registry.StateOpen, CreatedAt: time.Now().UTC(),
		}))
	}
	require.NoError(t, store.MarkState(ctx, "b", registry.StateAborted))

	open, err := store.ListByState(ctx, registry.StateOpen)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	aborted, err := store.ListByState(ctx, registry.StateAborted)
	require.NoError(t, err)
	require.Len(t, aborted, 1)
	assert.Equal(t, "b", aborted[0].UploadID)
}

func TestUpdatePartCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, registry.Record{
		UploadID: "upload-1", Bucket: "b", Key: "k", State: registry.StateOpen, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.UpdatePartCount(ctx, "upload-1", 5))

	got, err := store.Get(ctx, "upload-1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.PartCount)
}
