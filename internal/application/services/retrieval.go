package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"

	"file-upload-api/internal/application/ports"
	"file-upload-api/internal/domain/file"
	"file-upload-api/internal/domain/format"
	"file-upload-api/internal/infrastructure/metrics"
)

// Retrieval serves original files and derived assets.
type Retrieval struct {
	deps   Deps
	files  file.Repository
	assets *assetBuilder
}

// NewRetrieval shares the asset builder of m, so concurrent misses from URL
// building and serving collapse into one transform.
func NewRetrieval(m *FileManager, files file.Repository) *Retrieval {
	return &Retrieval{deps: m.deps, files: files, assets: m.assets}
}

// Retrieve returns ErrNotFound for unknown or deleted records and for records
// whose original content is gone. Any other failure is returned as is.
func (r *Retrieval) Retrieve(ctx context.Context, id int64, token string) (*ports.Asset, error) {
	f, err := r.files.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil || f.Deleted {
		return nil, ErrNotFound
	}

	policy, err := r.deps.Aliases.Resolve(f.Alias)
	if err != nil {
		return nil, fmt.Errorf("file %d: %w", f.ID, err)
	}

	tok := format.ParseToken(token, func(name string) bool {
		return r.deps.Aliases.Permits(f.Alias, name)
	})

	contentKey := policy.ContentKey(f)
	ok, err := r.deps.Content.Exists(ctx, contentKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	if tok.IsOriginal() {
		body, size, err := r.deps.Content.Open(ctx, contentKey)
		if err != nil {
			if errors.Is(err, ports.ErrBlobNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		r.deps.Counter.WithLabelValues(metrics.Downloads).Inc()

		return &ports.Asset{
			File:        f,
			ContentType: f.MimeType,
			Disposition: ports.DispositionAttachment,
			FileName:    f.FullName(),
			Size:        size,
			Body:        body,
		}, nil
	}

	data, err := r.assets.bytes(ctx, f, tok.Format, tok.Params)
	if err != nil {
		if errors.Is(err, ErrContentMissing) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.deps.Counter.WithLabelValues(metrics.Downloads).Inc()

	return &ports.Asset{
		File:        f,
		ContentType: f.MimeType,
		Disposition: ports.DispositionInline,
		FileName:    f.FullName(),
		Size:        int64(len(data)),
		Body:        io.NopCloser(bytes.NewReader(data)),
	}, nil
}

// Asset streams a cached derived asset by its cache key.
func (r *Retrieval) Asset(ctx context.Context, key string) (*ports.Asset, error) {
	if key == "" || path.Clean("/" + key)[1:] != key {
		return nil, ErrNotFound
	}

	body, size, err := r.deps.Cache.Open(ctx, key)
	if err != nil {
		if errors.Is(err, ports.ErrBlobNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ct := mime.TypeByExtension(path.Ext(key))
	if ct == "" {
		ct = "application/octet-stream"
	}

	return &ports.Asset{
		ContentType: ct,
		Disposition: ports.DispositionInline,
		FileName:    path.Base(key),
		Size:        size,
		Body:        body,
	}, nil
}
