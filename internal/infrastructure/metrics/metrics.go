package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Values of the "result" label.
const (
	FilesUploaded   = "files_uploaded_total"
	UploadFailures  = "upload_failures_total"
	DedupHits       = "dedup_hits_total"
	CacheHits       = "asset_cache_hits_total"
	CacheMisses     = "asset_cache_misses_total"
	Transforms      = "asset_transforms_total"
	Downloads       = "downloads_total"
	FilesDeleted    = "files_deleted_total"
	FilesConfirmed  = "files_confirmed_total"
	SilentFailures  = "silent_format_failures_total"
	RequestsTotal   = "app_requests_total"
	RecordCacheHits = "record_cache_hits_total"
)

func NewCounter() *prometheus.CounterVec {
	return promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fileupload",
			Name:      "general_counters",
		},
		[]string{"result"})
}

// NewTestCounter is an unregistered counter for tests.
func NewTestCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fileupload",
			Name:      "general_counters",
		},
		[]string{"result"})
}
