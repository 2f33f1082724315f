package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-upload-api/internal/domain/alias"
	"file-upload-api/internal/domain/file"
	"file-upload-api/internal/infrastructure/mq"
)

func TestFiles_LazyDelete(t *testing.T) {
	e := newEnv(t, true)
	s := NewFiles(e.deps, e.repo, e.events)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }
	ctx := context.Background()

	e.stored(t, imageFile(5), []byte("png"))

	require.NoError(t, s.LazyDelete(ctx, 5))
	got, err := s.Get(ctx, 5)
	require.NoError(t, err)
	assert.True(t, got.Deleted)
	require.NotNil(t, got.DeletedAt)
	assert.Equal(t, at, *got.DeletedAt)

	s.now = func() time.Time { return at.Add(time.Hour) }
	require.NoError(t, s.LazyDelete(ctx, 5))
	got, err = s.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, at, *got.DeletedAt, "second delete keeps the first timestamp")

	require.Len(t, e.events.events, 1)
	assert.Equal(t, mq.FileDeleted, e.events.events[0].Action)
	assert.Equal(t, int64(5), e.events.events[0].FileID)

	assert.ErrorIs(t, s.LazyDelete(ctx, 404), ErrNotFound)
	_, err = s.Get(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFiles_Confirm(t *testing.T) {
	e := newEnv(t, true)
	s := NewFiles(e.deps, e.repo, e.events)
	ctx := context.Background()

	e.repo.add(&file.File{ID: 1, Alias: "avatar"})
	e.repo.add(&file.File{ID: 2, Alias: "avatar"})
	e.repo.add(&file.File{ID: 3, Alias: "docs"})
	e.repo.add(&file.File{ID: 4, Alias: "avatar", OwnerID: ptr(int64(9))})

	n, err := s.Confirm(ctx, "avatar", 7, []int64{1, 2, 3, 4, 99})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, id := range []int64{1, 2} {
		f, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, f.Confirmed)
		assert.Equal(t, int64(7), *f.OwnerID)
	}
	f, err := s.Get(ctx, 3)
	require.NoError(t, err)
	assert.False(t, f.Confirmed)

	_, err = s.Confirm(ctx, "nope", 7, []int64{1})
	assert.ErrorIs(t, err, alias.ErrUnknownAlias)
}

func TestFiles_ListOwnerFiles(t *testing.T) {
	e := newEnv(t, true)
	s := NewFiles(e.deps, e.repo, e.events)
	ctx := context.Background()
	now := time.Now()

	add := func(f file.File) { e.repo.add(&f) }
	add(file.File{ID: 1, Alias: "avatar", OwnerID: ptr(int64(7)), Confirmed: true, Priority: ptr(2), UpdatedAt: now.Add(-48 * time.Hour)})
	add(file.File{ID: 2, Alias: "avatar", OwnerID: ptr(int64(7)), Confirmed: true, Priority: ptr(1), UpdatedAt: now})
	add(file.File{ID: 3, Alias: "avatar", UpdatedAt: now.Add(-time.Minute)})
	add(file.File{ID: 4, Alias: "avatar", UpdatedAt: now.Add(-3 * time.Hour)})
	add(file.File{ID: 5, Alias: "avatar", OwnerID: ptr(int64(7)), Confirmed: true, Deleted: true, UpdatedAt: now})
	add(file.File{ID: 6, Alias: "avatar", OwnerID: ptr(int64(8)), Confirmed: true, UpdatedAt: now})
	add(file.File{ID: 7, Alias: "docs", OwnerID: ptr(int64(7)), Confirmed: true, UpdatedAt: now})

	got, err := s.ListOwnerFiles(ctx, "avatar", 7)
	require.NoError(t, err)

	ids := make([]int64, 0, len(got))
	for _, f := range got {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []int64{2, 1, 3}, ids)

	_, err = s.ListOwnerFiles(ctx, "nope", 7)
	assert.ErrorIs(t, err, alias.ErrUnknownAlias)
}
