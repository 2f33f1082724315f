package ports

import (
	"context"
	"mime/multipart"

	"file-upload-api/internal/domain/file"
	"file-upload-api/internal/domain/format"
	dto "file-upload-api/internal/interface/api/rest/dto/file"
)

type FileManager interface {
	ResolvePath(ctx context.Context, f *file.File, formatName string, params *format.Params) (string, error)
	FilePath(ctx context.Context, f *file.File, formatName string, params *format.Params) (string, bool, error)
	FileURL(ctx context.Context, f *file.File, formatName string, params *format.Params) (string, error)
	FileAbsoluteURL(ctx context.Context, f *file.File, formatName string, params *format.Params) (string, error)
	ImageURL(ctx context.Context, f *file.File, formatName string, params *format.Params, notFoundURL string) (string, error)
	ImageAbsoluteURL(ctx context.Context, f *file.File, formatName string, params *format.Params, notFoundURL string) (string, error)
	NotFoundURL(t file.Type) string
	UploadURL(aliasName string, ownerID *int64) string
	DownloadURL(f *file.File, token string) string
	FileData(ctx context.Context, f *file.File) (dto.Item, error)
	FileDataList(ctx context.Context, fs file.Files) (dto.Items, error)
}

type UploadService interface {
	UploadMultipart(ctx context.Context, aliasName string, ownerID *int64, fh *multipart.FileHeader) UploadResult
	UploadFromURL(ctx context.Context, aliasName string, ownerID *int64, rawURL string) UploadResult
}

// UploadResult carries either the stored files or the reason the upload failed.
type UploadResult struct {
	Files   file.Files
	Failure *UploadFailure
}

type UploadFailure struct {
	Name  string
	Size  int64
	Error string
}

type RetrievalService interface {
	Retrieve(ctx context.Context, id int64, token string) (*Asset, error)
	Asset(ctx context.Context, key string) (*Asset, error)
}

type FileService interface {
	Get(ctx context.Context, id int64) (*file.File, error)
	LazyDelete(ctx context.Context, id int64) error
	Confirm(ctx context.Context, aliasName string, ownerID int64, ids []int64) (int64, error)
	ListOwnerFiles(ctx context.Context, aliasName string, ownerID int64) (file.Files, error)
}
