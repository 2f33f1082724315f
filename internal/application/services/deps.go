package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"file-upload-api/internal/application/ports"
	"file-upload-api/internal/domain/alias"
	"file-upload-api/internal/domain/format"
)

// ManagerConfig is the URL and failure policy of the file manager.
type ManagerConfig struct {
	UploadBaseURL string
	// CacheBaseURL prefixes cache keys to form public asset URLs.
	CacheBaseURL string
	DownloadURL  string
	FilesBaseURL string
	PublicURL    string

	NotFoundImageURL string
	NotFoundFileURL  string

	Silent          bool
	AppendTimestamp bool
}

// Deps is everything the file pipelines share. It is assembled once at startup.
type Deps struct {
	Content ports.BlobStore
	Cache   ports.BlobStore
	Aliases *alias.Registry
	Formats *format.Registry
	Config  ManagerConfig
	Logger  *zap.Logger
	Counter *prometheus.CounterVec
}
