package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"file-upload-api/internal/domain/file"
	"file-upload-api/internal/domain/format"
	"file-upload-api/internal/infrastructure/metrics"
	dto "file-upload-api/internal/interface/api/rest/dto/file"
)

// Thumbnail size of image items in upload and listing responses.
const thumbnailSize = 100

// FileManager resolves derived asset paths and builds the public links of files.
type FileManager struct {
	deps   Deps
	assets *assetBuilder
}

func NewFileManager(d Deps) *FileManager {
	return &FileManager{deps: d, assets: newAssetBuilder(d)}
}

// ResolvePath returns the cache key of f in the given format, building the asset
// if needed. Errors are returned as is.
func (m *FileManager) ResolvePath(ctx context.Context, f *file.File, formatName string, params *format.Params) (string, error) {
	if !f.Saved() {
		return "", ErrUnsavedFile
	}
	return m.assets.ensure(ctx, f, formatName, params)
}

// FilePath is ResolvePath with the failure policy applied: ok is false for nil or
// unsaved files, and for any failure in silent mode. Outside silent mode failures
// come back as *FormatError.
func (m *FileManager) FilePath(ctx context.Context, f *file.File, formatName string, params *format.Params) (string, bool, error) {
	if !f.Saved() {
		return "", false, nil
	}

	key, err := m.assets.ensure(ctx, f, formatName, params)
	if err != nil {
		if m.deps.Config.Silent {
			m.deps.Counter.WithLabelValues(metrics.SilentFailures).Inc()
			m.deps.Logger.Warn("file path resolution failed",
				zap.Int64("file_id", f.ID),
				zap.String("format", formatName),
				zap.Error(err),
			)
			return "", false, nil
		}
		return "", false, &FormatError{FileID: f.ID, Format: formatName, Err: err}
	}

	return key, true, nil
}

func (m *FileManager) FileURL(ctx context.Context, f *file.File, formatName string, params *format.Params) (string, error) {
	key, ok, err := m.FilePath(ctx, f, formatName, params)
	if err != nil || !ok {
		return m.NotFoundURL(typeOf(f)), err
	}
	return m.cacheURL(key), nil
}

func (m *FileManager) FileAbsoluteURL(ctx context.Context, f *file.File, formatName string, params *format.Params) (string, error) {
	u, err := m.FileURL(ctx, f, formatName, params)
	return m.absolute(u), err
}

// ImageURL falls back to notFoundURL, or to the image placeholder when it is empty.
func (m *FileManager) ImageURL(ctx context.Context, f *file.File, formatName string, params *format.Params, notFoundURL string) (string, error) {
	key, ok, err := m.FilePath(ctx, f, formatName, params)
	if err != nil || !ok {
		if notFoundURL == "" {
			notFoundURL = m.NotFoundURL(file.TypeImage)
		}
		return notFoundURL, err
	}

	u := m.cacheURL(key)
	if m.deps.Config.AppendTimestamp && !f.UpdatedAt.IsZero() {
		u += "?" + strconv.FormatInt(f.UpdatedAt.Unix(), 10)
	}
	return u, nil
}

func (m *FileManager) ImageAbsoluteURL(ctx context.Context, f *file.File, formatName string, params *format.Params, notFoundURL string) (string, error) {
	u, err := m.ImageURL(ctx, f, formatName, params, notFoundURL)
	return m.absolute(u), err
}

func (m *FileManager) NotFoundURL(t file.Type) string {
	if t == file.TypeImage {
		return m.deps.Config.NotFoundImageURL
	}
	return m.deps.Config.NotFoundFileURL
}

// UploadURL is base/alias[/id].
func (m *FileManager) UploadURL(aliasName string, ownerID *int64) string {
	parts := []string{strings.TrimRight(m.deps.Config.UploadBaseURL, "/"), url.PathEscape(aliasName)}
	if ownerID != nil {
		parts = append(parts, strconv.FormatInt(*ownerID, 10))
	}
	return strings.Join(parts, "/")
}

// DownloadURL links the retrieval endpoint for f in the given format token.
func (m *FileManager) DownloadURL(f *file.File, token string) string {
	if !f.Saved() {
		return m.NotFoundURL(typeOf(f))
	}
	q := url.Values{}
	q.Set("id", strconv.FormatInt(f.ID, 10))
	q.Set("fileType", token)
	q.Set("fileName", f.FullName())
	q.Set("hash", f.Hash)
	return m.deps.Config.DownloadURL + "?" + q.Encode()
}

// FileData describes f for upload and listing responses.
func (m *FileManager) FileData(ctx context.Context, f *file.File) (dto.Item, error) {
	item := dto.Item{
		File:        dto.ToResponseFile(*f),
		DownloadURL: m.DownloadURL(f, format.NameFile),
		DeleteURL:   strings.TrimRight(m.deps.Config.FilesBaseURL, "/") + "/" + strconv.FormatInt(f.ID, 10),
	}

	var err error
	if item.URL, err = m.FileURL(ctx, f, format.NameFile, nil); err != nil {
		return item, err
	}
	if f.IsImage() {
		params := &format.Params{Width: thumbnailSize, Height: thumbnailSize}
		if item.ThumbnailURL, err = m.ImageURL(ctx, f, format.NameImage, params, ""); err != nil {
			return item, err
		}
	}

	return item, nil
}

func (m *FileManager) FileDataList(ctx context.Context, fs file.Files) (dto.Items, error) {
	items := make(dto.Items, 0, len(fs))
	for _, f := range fs {
		item, err := m.FileData(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("file %d: %w", f.ID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *FileManager) cacheURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(m.deps.Config.CacheBaseURL, "/") + "/" + strings.Join(segments, "/")
}

func (m *FileManager) absolute(u string) string {
	if parsed, err := url.Parse(u); err == nil && parsed.IsAbs() {
		return u
	}
	base := strings.TrimRight(m.deps.Config.PublicURL, "/")
	if strings.HasPrefix(u, "/") {
		return base + u
	}
	return base + "/" + u
}

func typeOf(f *file.File) file.Type {
	if f == nil {
		return file.TypeFile
	}
	return f.Type
}
