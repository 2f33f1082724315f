package redis

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-upload-api/internal/application/ports"
)

type FakeCommands struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func NewFakeCommands() *FakeCommands { return &FakeCommands{data: map[string][]byte{}} }

func (f *FakeCommands) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, f.err)
}

func (f *FakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	b, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(b), nil)
}

func (f *FakeCommands) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = append([]byte(nil), value.([]byte)...)
	return redis.NewStatusResult("OK", nil)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	rdb := NewFakeCommands()
	s := New(rdb, "fu:")

	ok, err := s.Exists(ctx, "avatar/1/image-abc.png")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Read(ctx, "avatar/1/image-abc.png")
	assert.ErrorIs(t, err, ports.ErrBlobNotFound)

	require.NoError(t, s.Write(ctx, "avatar/1/image-abc.png", []byte{0x89, 'P', 'N', 'G'}, "image/png"))
	assert.Contains(t, rdb.data, "fu:avatar/1/image-abc.png")

	ok, err = s.Exists(ctx, "avatar/1/image-abc.png")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, size, err := s.Open(ctx, "avatar/1/image-abc.png")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, b)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	rdb := NewFakeCommands()
	rdb.err = errors.New("connection refused")
	s := New(rdb, "")

	_, err := s.Exists(ctx, "k")
	assert.Error(t, err)

	_, err = s.Read(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrBlobNotFound)

	assert.Error(t, s.Write(ctx, "k", []byte("x"), ""))
}
