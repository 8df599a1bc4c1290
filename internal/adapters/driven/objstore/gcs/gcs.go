package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/knowbase-labs/knowbase-cli/internal/core/domain"
	"github.com/knowbase-labs/knowbase-cli/internal/core/ports/driven"
)

// Config holds Google Cloud Storage settings.
type Config struct {
	// Bucket is the bucket name, without a gs:// prefix.
	Bucket string

	// Prefix is prepended to every object name, e.g. "indexes/prod".
	Prefix string

	// CredentialsFile is an optional service account JSON key path.
	// When empty, application default credentials are used.
	CredentialsFile string
}

// Store implements driven.ObjectStorage on top of a GCS bucket.
type Store struct {
	service *storage.Service
	bucket  string
	prefix  string
}

var _ driven.ObjectStorage = (*Store)(nil)

// New creates a GCS-backed object store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: GCS bucket name is required", domain.ErrNotConfigured)
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	service, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage service: %w", err)
	}

	return &Store{
		service: service,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Upload copies a local file to the given remote object name.
func (s *Store) Upload(ctx context.Context, localPath, objectName string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	object := &storage.Object{Name: s.objectName(objectName)}
	_, err = s.service.Objects.Insert(s.bucket, object).Media(f).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("uploading %s: %w", objectName, mapError(err))
	}
	return nil
}

// Download copies a remote object to the given local path. The write goes
// through a temp file so a failed download never truncates an existing copy.
func (s *Store) Download(ctx context.Context, objectName, localPath string) error {
	resp, err := s.service.Objects.Get(s.bucket, s.objectName(objectName)).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("downloading %s: %w", objectName, mapError(err))
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(path.Dir(localPath), ".knowbase-download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", localPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return fmt.Errorf("replacing %s: %w", localPath, err)
	}
	return nil
}

func (s *Store) objectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// mapError translates googleapi errors to domain errors where a caller can
// act on the distinction.
func mapError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch {
	case gerr.Code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, gerr.Message)
	case gerr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, gerr.Message)
	case gerr.Code >= 500:
		return fmt.Errorf("%w: GCS returned %d", domain.ErrUnavailable, gerr.Code)
	default:
		return err
	}
}
