package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"file-upload-api/config"
	"file-upload-api/internal/application/ports"
)

// Object is the part of the minio client the store relies on.
type Object interface {
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (*minio.Object, error)
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Client struct {
	logger *zap.Logger
	api    Object
	bucket string
}

// NewMinio connects to the endpoint and makes sure every listed bucket exists.
func NewMinio(ctx context.Context, logger *zap.Logger, cfg config.S3, buckets ...string) (*minio.Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	for _, b := range buckets {
		ok, err := mc.BucketExists(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", b, err)
		}
		if !ok {
			if err = mc.MakeBucket(ctx, b, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", b, err)
			}
			logger.Info("s3 bucket created", zap.String("bucket", b))
		}
	}

	logger.Info("s3 connected successfully", zap.String("endpoint", cfg.Endpoint))

	return mc, nil
}

func New(logger *zap.Logger, api Object, bucket string) *Client {
	return &Client{
		logger: logger,
		api:    api,
		bucket: bucket,
	}
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.api.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

func (c *Client) Read(ctx context.Context, key string) ([]byte, error) {
	rc, _, err := c.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ports.ErrBlobNotFound, key)
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", key, err)
	}
	// GetObject is lazy, Stat surfaces a missing key.
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNotFound(err) {
			return nil, 0, fmt.Errorf("%w: %s", ports.ErrBlobNotFound, key)
		}
		return nil, 0, fmt.Errorf("stat %s: %w", key, err)
	}
	return obj, info.Size, nil
}

func (c *Client) Write(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.api.PutObject(ctx,
		c.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: contentType,
		},
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	c.logger.Debug("s3 object stored", zap.String("bucket", c.bucket), zap.String("key", key))

	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey"
}
