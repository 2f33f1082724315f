package services

import (
	"bytes"
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-upload-api/internal/application/ports"
	"file-upload-api/internal/domain/file"
)

var (
	_ ports.FileManager      = (*FileManager)(nil)
	_ ports.UploadService    = (*Upload)(nil)
	_ ports.RetrievalService = (*Retrieval)(nil)
	_ ports.FileService      = (*Files)(nil)
)

func TestUploadThenRetrieveResized(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	r := NewRetrieval(e.manager, e.repo)

	content := pngBytes(t, 60, 60)
	require.Greater(t, len(content), 8<<10)

	res := e.upload().UploadMultipart(ctx, "avatar", ptr(int64(42)), fileHeader(t, "avatar.png", content))
	require.Nil(t, res.Failure)
	require.Len(t, res.Files, 1)

	f := res.Files[0]
	assert.Equal(t, file.TypeImage, f.Type)
	assert.False(t, f.Confirmed)
	assert.Equal(t, int64(42), *f.OwnerID)
	assert.Equal(t, 1, e.owners.calls)

	first, err := r.Retrieve(ctx, f.ID, "image_100_100")
	require.NoError(t, err)
	firstBytes := readAsset(t, first)

	assert.Equal(t, 1, e.probe.count())
	require.Len(t, e.probe.specs, 1)
	assert.Equal(t, 100, e.probe.specs[0].Width)
	assert.Equal(t, 100, e.probe.specs[0].Height)

	img, _, err := image.Decode(bytes.NewReader(firstBytes))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), img.Bounds())

	second, err := r.Retrieve(ctx, f.ID, "image_100_100")
	require.NoError(t, err)
	assert.Equal(t, firstBytes, readAsset(t, second))
	assert.Equal(t, 1, e.probe.count())
}
