package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"file-upload-api/internal/application/ports"
	"file-upload-api/internal/domain/file"
	"file-upload-api/internal/infrastructure/metrics"
	"file-upload-api/internal/infrastructure/mq"
	dto "file-upload-api/internal/interface/api/rest/dto/file"
)

// Files covers the record lifecycle after upload.
type Files struct {
	deps   Deps
	files  file.Repository
	events ports.EventPublisher
	now    func() time.Time
}

func NewFiles(d Deps, files file.Repository, events ports.EventPublisher) *Files {
	return &Files{deps: d, files: files, events: events, now: time.Now}
}

func (s *Files) Get(ctx context.Context, id int64) (*file.File, error) {
	f, err := s.files.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNotFound
	}
	return f, nil
}

// LazyDelete soft deletes the record. Deleting a deleted record succeeds and
// leaves it untouched.
func (s *Files) LazyDelete(ctx context.Context, id int64) error {
	f, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if f.Deleted {
		return nil
	}

	at := s.now()
	changed, err := s.files.MarkDeleted(ctx, id, at)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	f.MarkDeleted(at)

	s.deps.Counter.WithLabelValues(metrics.FilesDeleted).Inc()
	s.events.Publish(ctx, mq.NewEvent(mq.FileDeleted, dto.ToResponseFile(*f)))
	s.deps.Logger.Info("file deleted", zap.Int64("file_id", id))

	return nil
}

// Confirm binds uploaded files to a saved owner and makes them actual.
func (s *Files) Confirm(ctx context.Context, aliasName string, ownerID int64, ids []int64) (int64, error) {
	if _, err := s.deps.Aliases.Resolve(aliasName); err != nil {
		return 0, err
	}

	n, err := s.files.Confirm(ctx, aliasName, ownerID, ids)
	if err != nil {
		return 0, err
	}
	s.deps.Counter.WithLabelValues(metrics.FilesConfirmed).Add(float64(n))

	return n, nil
}

// ListOwnerFiles returns what an owner form shows: the owner's files plus its
// recent unbound uploads, by priority.
func (s *Files) ListOwnerFiles(ctx context.Context, aliasName string, ownerID int64) (file.Files, error) {
	if _, err := s.deps.Aliases.Resolve(aliasName); err != nil {
		return nil, err
	}

	q := file.NewQuery().
		ByModel(aliasName, ownerID, true).
		WithDeleted(false).
		WithMaxAge(file.MaxAge).
		ByPriority()

	return s.files.Find(ctx, q)
}
