package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"file-upload-api/internal/application/ports"
	"file-upload-api/internal/domain/alias"
	"file-upload-api/internal/domain/file"
	"file-upload-api/internal/domain/format"
	"file-upload-api/internal/infrastructure/metrics"
)

// buildTimeout bounds a shared derivation once it is detached from its caller.
const buildTimeout = time.Minute

// assetBuilder fills the cache store with derived assets. Concurrent misses on
// one cache key share a single transform.
type assetBuilder struct {
	deps  Deps
	group singleflight.Group
}

type derivation struct {
	policy    alias.Policy
	formatter format.Formatter
	key       string
}

func newAssetBuilder(d Deps) *assetBuilder {
	return &assetBuilder{deps: d}
}

func (b *assetBuilder) resolve(f *file.File, formatName string, params *format.Params) (derivation, error) {
	policy, err := b.deps.Aliases.Resolve(f.Alias)
	if err != nil {
		return derivation{}, err
	}
	if !b.deps.Aliases.Permits(f.Alias, formatName) {
		return derivation{}, fmt.Errorf("%w: %q is not enabled for alias %q", format.ErrUnknownFormat, formatName, f.Alias)
	}

	fm, spec, err := b.deps.Formats.Build(formatName, f, params)
	if err != nil {
		return derivation{}, err
	}

	return derivation{
		policy:    policy,
		formatter: fm,
		key:       policy.CacheKey(f, formatName, spec.Fingerprint()),
	}, nil
}

// ensure makes sure the derived asset is cached and returns its cache key.
func (b *assetBuilder) ensure(ctx context.Context, f *file.File, formatName string, params *format.Params) (string, error) {
	d, err := b.resolve(f, formatName, params)
	if err != nil {
		return "", err
	}

	ok, err := b.deps.Cache.Exists(ctx, d.key)
	if err != nil {
		return "", err
	}
	if ok {
		b.deps.Counter.WithLabelValues(metrics.CacheHits).Inc()
		return d.key, nil
	}

	if _, err = b.build(ctx, f, d); err != nil {
		return "", err
	}
	return d.key, nil
}

// bytes returns the derived asset, building it on a cache miss.
func (b *assetBuilder) bytes(ctx context.Context, f *file.File, formatName string, params *format.Params) ([]byte, error) {
	d, err := b.resolve(f, formatName, params)
	if err != nil {
		return nil, err
	}

	data, err := b.deps.Cache.Read(ctx, d.key)
	if err == nil {
		b.deps.Counter.WithLabelValues(metrics.CacheHits).Inc()
		return data, nil
	}
	if !errors.Is(err, ports.ErrBlobNotFound) {
		return nil, err
	}

	return b.build(ctx, f, d)
}

// build runs one derivation per cache key. The work is shared by every waiter,
// so it runs detached from the caller that started it; each caller stops
// waiting when its own context ends.
func (b *assetBuilder) build(ctx context.Context, f *file.File, d derivation) ([]byte, error) {
	ch := b.group.DoChan(d.key, func() (interface{}, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()
		return b.derive(bctx, f, d)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *assetBuilder) derive(ctx context.Context, f *file.File, d derivation) ([]byte, error) {
	b.deps.Counter.WithLabelValues(metrics.CacheMisses).Inc()

	contentKey := d.policy.ContentKey(f)
	ok, err := b.deps.Content.Exists(ctx, contentKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: file %d at %s", ErrContentMissing, f.ID, contentKey)
	}

	src, err := b.deps.Content.Read(ctx, contentKey)
	if err != nil {
		return nil, err
	}

	out, err := d.formatter.Apply(src)
	if err != nil {
		return nil, err
	}
	b.deps.Counter.WithLabelValues(metrics.Transforms).Inc()

	if err = b.deps.Cache.Write(ctx, d.key, out, f.MimeType); err != nil {
		return nil, err
	}

	b.deps.Logger.Debug("derived asset cached",
		zap.Int64("file_id", f.ID), zap.String("key", d.key), zap.Int("size", len(out)))

	return out, nil
}
