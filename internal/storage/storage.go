// Package storage resolves file references (diagram images, uploaded sheets)
// to bytes. Backends are the local filesystem and S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned when a reference points to nothing.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidRef is returned for empty references or ones escaping the root.
	ErrInvalidRef = errors.New("storage: invalid reference")
)

// Reader fetches bytes by reference.
type Reader interface {
	ReadFile(ctx context.Context, ref string) ([]byte, error)
}

// Writer stores bytes under a reference.
type Writer interface {
	WriteFile(ctx context.Context, ref string, data []byte) error
}

// ReadWriter is both.
type ReadWriter interface {
	Reader
	Writer
}

// Config selects and parameterizes a backend. Keys match the CLI flags.
type Config struct {
	Backend  string `mapstructure:"storage-backend"` // "local" (default) or "s3"
	Root     string `mapstructure:"storage-root"`
	Bucket   string `mapstructure:"s3-bucket"`
	Prefix   string `mapstructure:"s3-prefix"`
	Region   string `mapstructure:"s3-region"`
	Endpoint string `mapstructure:"s3-endpoint"`
}

// New builds the backend described by cfg.
func New(cfg Config) (ReadWriter, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocalDir(cfg.Root), nil
	case "s3":
		return NewS3(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// cleanRef turns a reference into a slash-separated relative key. Leading "/"
// and "./" are stripped; anything resolving above the root is rejected.
func cleanRef(ref string) (string, error) {
	r := strings.TrimSpace(strings.ReplaceAll(ref, "\\", "/"))
	for strings.HasPrefix(r, "./") || strings.HasPrefix(r, "/") {
		r = strings.TrimPrefix(strings.TrimPrefix(r, "./"), "/")
	}
	if r == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidRef)
	}
	p := path.Clean(r)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return p, nil
}
