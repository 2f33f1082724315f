package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"file-upload-api/internal/application/ports"
	"file-upload-api/internal/domain/file"
	"file-upload-api/internal/infrastructure/metrics"
	"file-upload-api/internal/infrastructure/mq"
	dto "file-upload-api/internal/interface/api/rest/dto/file"
)

const (
	DefaultErrorMessage = "Error occurred during file uploading."
	ownerNotFoundFormat = "Owner model with id `%d` not found."
	tooLargeFormat      = "File exceeds the maximum size of %d bytes."
)

// Upload stores new files. It never fails: problems are reported in the result.
type Upload struct {
	deps    Deps
	files   file.Repository
	owners  ports.OwnerResolver
	events  ports.EventPublisher
	client  *http.Client
	maxSize int64
}

func NewUpload(
	d Deps,
	files file.Repository,
	owners ports.OwnerResolver,
	events ports.EventPublisher,
	client *http.Client,
	maxSize int64,
) *Upload {
	return &Upload{
		deps:    d,
		files:   files,
		owners:  owners,
		events:  events,
		client:  client,
		maxSize: maxSize,
	}
}

type ownerNotFoundError struct{ id int64 }

func (e *ownerNotFoundError) Error() string { return fmt.Sprintf("owner %d not found", e.id) }
func (e *ownerNotFoundError) Unwrap() error { return ErrOwnerNotFound }

func (u *Upload) UploadMultipart(ctx context.Context, aliasName string, ownerID *int64, fh *multipart.FileHeader) ports.UploadResult {
	if fh == nil {
		return u.fail(ctx, "", 0, ErrNoFile)
	}
	if fh.Size > u.maxSize {
		return u.fail(ctx, fh.Filename, fh.Size, ErrTooLarge)
	}

	src, err := fh.Open()
	if err != nil {
		return u.fail(ctx, fh.Filename, fh.Size, err)
	}
	defer src.Close()

	data, err := u.readLimited(src)
	if err != nil {
		return u.fail(ctx, fh.Filename, fh.Size, err)
	}

	return u.store(ctx, aliasName, ownerID, fh.Filename, fh.Header.Get("Content-Type"), data)
}

func (u *Upload) UploadFromURL(ctx context.Context, aliasName string, ownerID *int64, rawURL string) ports.UploadResult {
	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return u.fail(ctx, rawURL, 0, fmt.Errorf("invalid file url %q", rawURL))
	}
	name := path.Base(target.Path)
	if name == "/" || name == "." {
		name = ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return u.fail(ctx, name, 0, err)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return u.fail(ctx, name, 0, fmt.Errorf("fetch %s: %w", target.Redacted(), err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return u.fail(ctx, name, 0, fmt.Errorf("fetch %s: status %d", target.Redacted(), resp.StatusCode))
	}
	if resp.ContentLength > u.maxSize {
		return u.fail(ctx, name, resp.ContentLength, ErrTooLarge)
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}

	data, err := u.readLimited(resp.Body)
	if err != nil {
		return u.fail(ctx, name, int64(len(data)), err)
	}

	return u.store(ctx, aliasName, ownerID, name, resp.Header.Get("Content-Type"), data)
}

func (u *Upload) store(ctx context.Context, aliasName string, ownerID *int64, original, declared string, data []byte) ports.UploadResult {
	f, err := u.save(ctx, aliasName, ownerID, original, declared, data)
	if err != nil {
		return u.fail(ctx, original, int64(len(data)), err)
	}

	u.deps.Counter.WithLabelValues(metrics.FilesUploaded).Inc()
	u.events.Publish(ctx, mq.NewEvent(mq.FileUploaded, dto.ToResponseFile(*f)))
	u.deps.Logger.Info("file uploaded",
		zap.Int64("file_id", f.ID),
		zap.String("alias", f.Alias),
		zap.String("hash", f.Hash),
		zap.Int64("size", f.Size),
	)

	return ports.UploadResult{Files: file.Files{f}}
}

func (u *Upload) save(ctx context.Context, aliasName string, ownerID *int64, original, declared string, data []byte) (*file.File, error) {
	policy, err := u.deps.Aliases.Resolve(aliasName)
	if err != nil {
		return nil, err
	}

	if ownerID != nil && policy.Owner != "" {
		ok, err := u.owners.OwnerExists(ctx, policy.Owner, *ownerID)
		if err != nil {
			return nil, fmt.Errorf("check owner: %w", err)
		}
		if !ok {
			return nil, &ownerNotFoundError{id: *ownerID}
		}
	}

	sum := md5.Sum(data)
	name, ext := file.SplitName(original)
	mimeType, detectedExt := detectMIME(data, declared)
	if ext == nil && detectedExt != "" {
		ext = &detectedExt
	}

	id, err := u.files.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve id: %w", err)
	}

	f := &file.File{
		ID:        id,
		Alias:     policy.Name,
		OwnerID:   ownerID,
		Name:      name,
		Extension: ext,
		Size:      int64(len(data)),
		MimeType:  mimeType,
		Type:      inferType(mimeType),
		Hash:      hex.EncodeToString(sum[:]),
	}

	key := policy.ContentKey(f)
	exists, err := u.deps.Content.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		u.deps.Counter.WithLabelValues(metrics.DedupHits).Inc()
	} else if err = u.deps.Content.Write(ctx, key, data, mimeType); err != nil {
		return nil, err
	}

	created, err := u.files.Create(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("create file record: %w", err)
	}

	return created, nil
}

func (u *Upload) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.maxSize+1))
	if err != nil {
		return data, err
	}
	if int64(len(data)) > u.maxSize {
		return data, ErrTooLarge
	}
	return data, nil
}

func (u *Upload) fail(ctx context.Context, name string, size int64, err error) ports.UploadResult {
	u.deps.Counter.WithLabelValues(metrics.UploadFailures).Inc()
	u.deps.Logger.Warn("upload failed", zap.String("name", name), zap.Int64("size", size), zap.Error(err))

	return ports.UploadResult{Failure: &ports.UploadFailure{
		Name:  name,
		Size:  size,
		Error: u.message(err),
	}}
}

func (u *Upload) message(err error) string {
	var owner *ownerNotFoundError
	switch {
	case errors.As(err, &owner):
		return fmt.Sprintf(ownerNotFoundFormat, owner.id)
	case errors.Is(err, ErrTooLarge):
		return fmt.Sprintf(tooLargeFormat, u.maxSize)
	default:
		return DefaultErrorMessage
	}
}

// detectMIME sniffs the content and falls back to the declared type when the
// bytes say nothing specific.
func detectMIME(data []byte, declared string) (string, string) {
	m := mimetype.Detect(data)
	if m.Is("application/octet-stream") {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt, ""
		}
	}
	return m.String(), strings.TrimPrefix(m.Extension(), ".")
}

func inferType(mimeType string) file.Type {
	if strings.HasPrefix(mimeType, "image/") {
		return file.TypeImage
	}
	return file.TypeFile
}
