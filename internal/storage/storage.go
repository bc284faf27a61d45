// Package storage archives uploaded documents in object storage.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/pathakanu/healthGenie/internal/config"
	"github.com/sirupsen/logrus"
)

// Store writes an object and returns the key it was stored under.
type Store interface {
	Put(ctx context.Context, sessionID, fileName, contentType string, data []byte) (string, error)
}

// None is used when no archive is configured. Put stores nothing and returns
// an empty key.
type None struct{}

func (None) Put(context.Context, string, string, string, []byte) (string, error) { return "", nil }

// New returns the store selected by cfg.DocumentStore.
func New(ctx context.Context, cfg *config.Config, log *logrus.Logger) (Store, error) {
	switch cfg.DocumentStore {
	case "", "none":
		return None{}, nil
	case "minio":
		store, err := NewMinIO(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
		if err != nil {
			return nil, fmt.Errorf("storage: minio: %w", err)
		}
		log.Infof("storage: archiving documents to minio bucket %s", cfg.MinIOBucket)
		return store, nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("storage: S3_BUCKET is required for the s3 store")
		}
		store, err := NewS3(ctx, cfg.S3Bucket)
		if err != nil {
			return nil, fmt.Errorf("storage: s3: %w", err)
		}
		log.Infof("storage: archiving documents to s3 bucket %s", cfg.S3Bucket)
		return store, nil
	default:
		return nil, fmt.Errorf("storage: unknown DOCUMENT_STORE %q", cfg.DocumentStore)
	}
}

var nonSafe = regexp.MustCompile(`[^a-z0-9\-_.]+`)

// sanitizeFileName keeps only [a-z0-9-_.].
func sanitizeFileName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")
	name = nonSafe.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-_.")
	if name == "" {
		name = "file"
	}
	return name
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// objectKey builds "<session>/<stem>-<random><ext>".
func objectKey(sessionID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	stem := sanitizeFileName(strings.TrimSuffix(path.Base(fileName), path.Ext(fileName)))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%s-%s%s", sanitizeFileName(sessionID), stem, randomHex(4), ext)
}
