package multipart

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	mu    sync.Mutex
	sizes map[int]int
	fail  map[int]error
}

func newRecordingUploader() *recordingUploader {
	return &recordingUploader{sizes: map[int]int{}, fail: map[int]error{}}
}

func (u *recordingUploader) UploadPart(_ context.Context, partNumber int, data []byte) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err, ok := u.fail[partNumber]; ok {
		return "", err
	}
	u.sizes[partNumber] = len(data)
	return fmt.Sprintf("etag-%d", partNumber), nil
}

type recordingCompleter struct {
	mu          sync.Mutex
	parts       []Part
	aborted     bool
	completeErr error
}

func (c *recordingCompleter) Complete(_ context.Context, parts []Part) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completeErr != nil {
		return "", c.completeErr
	}
	c.parts = append([]Part(nil), parts...)
	return "final-etag", nil
}

func (c *recordingCompleter) Abort(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aborted = true
	return nil
}

// S5 — 20 MiB input with an 8 MiB part size yields parts of 8/8/4 MiB
// numbered 1, 2, 3.
func TestStreamPartSlicing(t *testing.T) {
	uploader := newRecordingUploader()
	completer := &recordingCompleter{}
	stream := New(Config{PartSize: 8 * 1024 * 1024, MaxInflight: 2}, uploader, completer, nil)

	data := make([]byte, 20*1024*1024)
	require.NoError(t, stream.Write(context.Background(), data))

	etag, err := stream.End(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "final-etag", etag)

	assert.Equal(t, 8*1024*1024, uploader.sizes[1])
	assert.Equal(t, 8*1024*1024, uploader.sizes[2])
	assert.Equal(t, 4*1024*1024, uploader.sizes[3])

	require.Len(t, completer.parts, 3)
	assert.Equal(t, 1, completer.parts[0].Number)
	assert.Equal(t, 2, completer.parts[1].Number)
	assert.Equal(t, 3, completer.parts[2].Number)
}

// Property 5 — part numbers are strictly ascending regardless of write
// chunking granularity.
func TestPartNumbersMonotonic(t *testing.T) {
	uploader := newRecordingUploader()
	completer := &recordingCompleter{}
	stream := New(Config{PartSize: 1024, MaxInflight: 4}, uploader, completer, nil)

	chunk := make([]byte, 300)
	for i := 0; i < 20; i++ {
		require.NoError(t, stream.Write(context.Background(), chunk))
	}
	_, err := stream.End(context.Background())
	require.NoError(t, err)

	last := 0
	for _, p := range completer.parts {
		assert.Greater(t, p.Number, last)
		last = p.Number
	}
}

// Property 6 — total bytes uploaded equal total bytes written, byte for byte.
func TestByteConservation(t *testing.T) {
	uploader := newRecordingUploader()
	completer := &recordingCompleter{}
	stream := New(Config{PartSize: 4096, MaxInflight: 3}, uploader, completer, nil)

	total := 0
	for i := 0; i < 50; i++ {
		chunk := make([]byte, 137)
		total += len(chunk)
		require.NoError(t, stream.Write(context.Background(), chunk))
	}
	_, err := stream.End(context.Background())
	require.NoError(t, err)

	sum := 0
	for _, n := range uploader.sizes {
		sum += n
	}
	assert.Equal(t, total, sum)
}

func TestEndWithNoWritesFails(t *testing.T) {
	uploader := newRecordingUploader()
	completer := &recordingCompleter{}
	stream := New(Config{}, uploader, completer, nil)

	_, err := stream.End(context.Background())
	require.Error(t, err)
	assert.False(t, completer.aborted, "aborting is the caller's decision, not the stream's")
	assert.Equal(t, StateFailed, stream.State())
}

// A failed part upload surfaces through End without the stream
// aborting server-side; deciding whether to abort is left to the caller.
func TestFailedPartLeavesAbortToCaller(t *testing.T) {
	uploader := newRecordingUploader()
	uploader.fail[1] = assert.AnError
	completer := &recordingCompleter{}
	stream := New(Config{PartSize: 10, MaxInflight: 1}, uploader, completer, nil)

	_ = stream.Write(context.Background(), make([]byte, 10))

	_, err := stream.End(context.Background())
	require.Error(t, err)
	assert.False(t, completer.aborted, "aborting is the caller's decision, not the stream's")
	assert.Equal(t, StateFailed, stream.State())
}

func TestWriteAfterCloseFails(t *testing.T) {
	uploader := newRecordingUploader()
	completer := &recordingCompleter{}
	stream := New(Config{PartSize: 10, MaxInflight: 1}, uploader, completer, nil)

	require.NoError(t, stream.Write(context.Background(), make([]byte, 10)))
	_, err := stream.End(context.Background())
	require.NoError(t, err)

	err = stream.Write(context.Background(), []byte("late"))
	require.ErrorIs(t, err, ErrClosed)
}

func TestConfigDefaultsClampPartSize(t *testing.T) {
	cfg := Config{PartSize: 1}.WithDefaults()
	assert.Equal(t, int64(MinPartSize), cfg.PartSize)

	cfg = Config{PartSize: MaxPartSize * 2}.WithDefaults()
	assert.Equal(t, int64(MaxPartSize), cfg.PartSize)

	cfg = Config{}.WithDefaults()
	assert.Equal(t, int64(DefaultPartSize), cfg.PartSize)
	assert.Equal(t, DefaultMaxInflight, cfg.MaxInflight)
}
