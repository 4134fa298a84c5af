package storage

import (
	"strings"

	appconfig "github.com/timmy/trendpipe/internal/config"
)

// NewStorage creates an ObjectStorage instance based on the configuration.
// When remote storage is disabled or no endpoint is set, the local
// filesystem backend is used so artifact publishing works without any
// cloud credentials.
// Parameters:
//   - cfg: storage configuration including endpoint, credentials, and bucket.
// Returns:
//   - ObjectStorage: initialized storage client implementation.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(cfg *appconfig.StorageConfig) (ObjectStorage, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return NewLocalStorage("./data/artifacts")
	}

	s3cfg := &S3Config{
		Type:      detectStorageType(cfg.Endpoint),
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		PublicURL: cfg.PublicURL,
	}
	return NewS3Storage(s3cfg)
}

// detectStorageType attempts to detect the storage type from the endpoint
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
