package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Storage backends.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendRedis = "redis"
)

type (
	APP struct {
		Name      string
		Host      string
		Port      string
		Env       string
		JWTSecret string
		// PublicURL is the scheme and host used for absolute links.
		PublicURL string
	}
	DB struct {
		User     string
		Password string
		Name     string
		Host     string
		Port     string
		Migrate  bool
	}
	S3 struct {
		Endpoint        string
		Region          string
		AccessKeyID     string
		SecretAccessKey string
		UseSSL          bool
		BucketContent   string
		BucketCache     string
	}
	Redis struct {
		Addr      string
		Password  string
		DB        int
		KeyPrefix string
	}
	MQ struct {
		User          string
		Password      string
		Vhost         string
		Host          string
		AmqpPort      string
		Exchange      string
		ExchangeType  string
		QueueName     string
		ConsumerQueue string
	}
	Storage struct {
		ContentBackend string
		CacheBackend   string
		ContentDir     string
		CacheDir       string
	}
	Files struct {
		UploadBaseURL    string
		CacheBasePath    string
		DownloadPath     string
		NotFoundImageURL string
		NotFoundFileURL  string
		Silent           bool
		AppendTimestamp  bool
		MaxUploadSize    int64
		FetchTimeout     time.Duration
		PolicyFile       string
		RecordCacheSize  int
		RecordCacheTTL   time.Duration
	}

	Config struct {
		App     APP
		DB      DB
		S3      S3
		Redis   Redis
		MQ      MQ
		Storage Storage
		Files   Files
	}
)

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, def.String()))
	if err != nil {
		return def
	}
	return v
}

func Load() Config {
	app := APP{
		Name:      getEnv("SERVICE_NAME", "fileuploadapi"),
		Host:      getEnv("SERVICE_HOST", ""),
		Port:      getEnv("SERVICE_PORT", "8080"),
		Env:       getEnv("SERVICE_ENV", ""),
		JWTSecret: getEnv("SERVICE_JWT_SECRET", ""),
		PublicURL: getEnv("SERVICE_PUBLIC_URL", "http://localhost:8080"),
	}
	db := DB{
		User:     getEnv("POSTGRES_USER", ""),
		Password: getEnv("POSTGRES_PASSWORD", ""),
		Name:     getEnv("POSTGRES_DB", ""),
		Host:     getEnv("POSTGRES_HOST", ""),
		Port:     getEnv("POSTGRES_PORT", "5432"),
		Migrate:  getBool("POSTGRES_MIGRATE", true),
	}
	s3 := S3{
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		Region:          getEnv("S3_REGION", ""),
		AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		UseSSL:          getBool("S3_USE_SSL", true),
		BucketContent:   getEnv("S3_BUCKET_CONTENT", ""),
		BucketCache:     getEnv("S3_BUCKET_CACHE", ""),
	}
	rds := Redis{
		Addr:      getEnv("REDIS_ADDR", ""),
		Password:  getEnv("REDIS_PASSWORD", ""),
		DB:        getInt("REDIS_DB", 0),
		KeyPrefix: getEnv("REDIS_KEY_PREFIX", "fileupload:"),
	}
	mq := MQ{
		User:          getEnv("RABBITMQ_USER", ""),
		Password:      getEnv("RABBITMQ_PASSWORD", ""),
		Vhost:         getEnv("RABBITMQ_VHOST", ""),
		Host:          getEnv("RABBITMQ_HOST", ""),
		AmqpPort:      getEnv("RABBITMQ_AMQP_PORT", "5672"),
		Exchange:      getEnv("RABBITMQ_EXCHANGE", "files"),
		ExchangeType:  getEnv("RABBITMQ_EXCHANGE_TYPE", "topic"),
		QueueName:     getEnv("RABBITMQ_QUEUE_NAME", "files.events"),
		ConsumerQueue: getEnv("RABBITMQ_CONSUMER_QUEUE", "files.owner-saved"),
	}
	storage := Storage{
		ContentBackend: getEnv("STORAGE_CONTENT_BACKEND", BackendLocal),
		CacheBackend:   getEnv("STORAGE_CACHE_BACKEND", BackendLocal),
		ContentDir:     getEnv("STORAGE_CONTENT_DIR", "./data/content"),
		CacheDir:       getEnv("STORAGE_CACHE_DIR", "./data/cache"),
	}
	files := Files{
		UploadBaseURL:    getEnv("FILES_UPLOAD_BASE_URL", "/upload"),
		CacheBasePath:    getEnv("FILES_CACHE_BASE_PATH", "/cache"),
		DownloadPath:     getEnv("FILES_DOWNLOAD_PATH", "/get"),
		NotFoundImageURL: getEnv("FILES_NOT_FOUND_IMAGE_URL", "/static/not-found.png"),
		NotFoundFileURL:  getEnv("FILES_NOT_FOUND_FILE_URL", "/static/not-found"),
		Silent:           getBool("FILES_SILENT", true),
		AppendTimestamp:  getBool("FILES_APPEND_TIMESTAMP", true),
		MaxUploadSize:    int64(getInt("FILES_MAX_UPLOAD_SIZE", 32<<20)),
		FetchTimeout:     getDuration("FILES_FETCH_TIMEOUT", 15*time.Second),
		PolicyFile:       getEnv("FILES_POLICY_FILE", "./files.yaml"),
		RecordCacheSize:  getInt("FILES_RECORD_CACHE_SIZE", 1024),
		RecordCacheTTL:   getDuration("FILES_RECORD_CACHE_TTL", time.Minute),
	}

	return Config{
		App:     app,
		DB:      db,
		S3:      s3,
		Redis:   rds,
		MQ:      mq,
		Storage: storage,
		Files:   files,
	}
}

func (c Config) DBDSN() (string, error) {
	if c.DB.User == "" || c.DB.Name == "" || c.DB.Host == "" || c.DB.Port == "" {
		return "", fmt.Errorf("incomplete DB config")
	}
	return fmt.Sprintf(
		"postgres://%s@%s:%s/%s",
		url.UserPassword(c.DB.User, c.DB.Password).String(),
		c.DB.Host,
		c.DB.Port,
		c.DB.Name,
	), nil
}

// MigrateDSN is the DSN in the form the golang-migrate pgx/v5 driver expects.
func (c Config) MigrateDSN() (string, error) {
	dsn, err := c.DBDSN()
	if err != nil {
		return "", err
	}
	return "pgx5" + dsn[len("postgres"):], nil
}

// MQEnabled reports whether a broker is configured. Without one events are discarded.
func (c Config) MQEnabled() bool { return c.MQ.Host != "" }

func (c Config) AMQPDSN() (string, error) {
	if c.MQ.User == "" || c.MQ.Host == "" || c.MQ.AmqpPort == "" {
		return "", fmt.Errorf("invalid MQ config: user, host and amqp port are required")
	}

	return fmt.Sprintf(
		"%s://%s@%s:%s/%s",
		"amqp",
		url.UserPassword(c.MQ.User, c.MQ.Password).String(),
		c.MQ.Host,
		c.MQ.AmqpPort,
		url.PathEscape(c.MQ.Vhost),
	), nil
}
