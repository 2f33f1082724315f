package recordcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"

	"file-upload-api/internal/domain/file"
	"file-upload-api/internal/infrastructure/metrics"
)

// Repository caches FindByID lookups of the wrapped repository. Writes through
// this repository invalidate the affected ids.
type Repository struct {
	file.Repository
	cache    *expirable.LRU[int64, file.File]
	mCounter *prometheus.CounterVec
}

func New(next file.Repository, size int, ttl time.Duration, mCounter *prometheus.CounterVec) *Repository {
	return &Repository{
		Repository: next,
		cache:      expirable.NewLRU[int64, file.File](size, nil, ttl),
		mCounter:   mCounter,
	}
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*file.File, error) {
	if cached, ok := r.cache.Get(id); ok {
		r.mCounter.WithLabelValues(metrics.RecordCacheHits).Inc()
		return &cached, nil
	}

	f, err := r.Repository.FindByID(ctx, id)
	if err != nil || f == nil {
		return f, err
	}
	r.cache.Add(id, *f)

	return f, nil
}

func (r *Repository) Create(ctx context.Context, f *file.File) (*file.File, error) {
	created, err := r.Repository.Create(ctx, f)
	if err != nil {
		return nil, err
	}
	r.cache.Remove(created.ID)
	return created, nil
}

// MarkDeleted drops the id again after the update, a lookup running
// concurrently with the update may have cached the old row.
func (r *Repository) MarkDeleted(ctx context.Context, id int64, at time.Time) (bool, error) {
	r.cache.Remove(id)
	defer r.cache.Remove(id)
	return r.Repository.MarkDeleted(ctx, id, at)
}

func (r *Repository) Confirm(ctx context.Context, alias string, ownerID int64, ids []int64) (int64, error) {
	r.forget(ids)
	defer r.forget(ids)
	return r.Repository.Confirm(ctx, alias, ownerID, ids)
}

func (r *Repository) forget(ids []int64) {
	for _, id := range ids {
		r.cache.Remove(id)
	}
}
