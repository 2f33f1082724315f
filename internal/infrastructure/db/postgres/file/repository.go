package file

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	domain "file-upload-api/internal/domain/file"
	"file-upload-api/internal/infrastructure/db/postgres"
)

type Repository struct {
	db  postgres.DBTX
	now func() time.Time
}

func NewRepository(db postgres.DBTX) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.QueryRow(ctx, SelectNextID).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) Create(ctx context.Context, req *domain.File) (*domain.File, error) {
	id := req.ID
	if id == 0 {
		var err error
		if id, err = r.NextID(ctx); err != nil {
			return nil, err
		}
	}

	f := new(File)
	err := scanFile(r.db.QueryRow(
		ctx,
		InsertFile,
		id, req.Alias, req.OwnerID, req.Name, req.Extension, req.Size, req.MimeType,
		int16(req.Type), req.Hash, priorityArg(req.Priority), req.Confirmed, req.Deleted,
	), f)
	if err != nil {
		return nil, err
	}

	return fromDBModel(f), nil
}

func (r *Repository) FindByID(ctx context.Context, id int64) (*domain.File, error) {
	f := new(File)
	if err := scanFile(r.db.QueryRow(ctx, SelectFileByID, id), f); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return fromDBModel(f), nil
}

func (r *Repository) Find(ctx context.Context, q domain.Query) (domain.Files, error) {
	sql, args := buildFind(q, r.now())

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fs Files
	for rows.Next() {
		f := new(File)
		if err = scanFile(rows, f); err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	return fromDBModels(fs), nil
}

func (r *Repository) MarkDeleted(ctx context.Context, id int64, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, MarkDeletedByID, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) Confirm(ctx context.Context, alias string, ownerID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, ConfirmFiles, alias, ownerID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanFile(row pgx.Row, f *File) error {
	return row.Scan(
		&f.ID,
		&f.Alias,
		&f.OwnerID,
		&f.Name,
		&f.Extension,
		&f.Size,
		&f.MimeType,
		&f.Type,
		&f.Hash,
		&f.Priority,

		&f.Confirmed,
		&f.Deleted,

		&f.CreatedAt,
		&f.UpdatedAt,
		&f.DeletedAt,
	)
}
