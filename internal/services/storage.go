package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sharmaji2007/student-counsellor-system/internal/clients/gcp"
	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/utils"
)

// StorageService persists uploaded files and hands back an opaque URI
// (gs:// or file://) that is stored on the submission row.
type StorageService interface {
	Save(ctx context.Context, originalName, contentType string, file io.Reader) (string, error)
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
	Delete(ctx context.Context, uri string) error
}

// objectKey builds the dated upload path. The uuid prefix keeps
// same-named files from colliding.
func objectKey(now time.Time, originalName string) string {
	name := filepath.Base(strings.TrimSpace(originalName))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload"
	}
	return fmt.Sprintf("uploads/%s/%s_%s", now.UTC().Format("2006/01/02"), uuid.New(), name)
}

type gcsStorageService struct {
	log    *logger.Logger
	bucket gcp.BucketService
}

func NewGCSStorageService(baseLog *logger.Logger, bucket gcp.BucketService) StorageService {
	serviceLog := baseLog.With("service", "GCSStorageService")
	return &gcsStorageService{log: serviceLog, bucket: bucket}
}

func (gs *gcsStorageService) Save(ctx context.Context, originalName, contentType string, file io.Reader) (string, error) {
	key := objectKey(time.Now(), originalName)
	if err := gs.bucket.UploadFile(ctx, key, file, contentType); err != nil {
		return "", err
	}
	return gs.bucket.ObjectURI(key), nil
}

func (gs *gcsStorageService) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	key, err := gcsKey(uri)
	if err != nil {
		return nil, err
	}
	return gs.bucket.DownloadFile(ctx, key)
}

func (gs *gcsStorageService) Delete(ctx context.Context, uri string) error {
	key, err := gcsKey(uri)
	if err != nil {
		return err
	}
	return gs.bucket.DeleteFile(ctx, key)
}

func gcsKey(uri string) (string, error) {
	trimmed := strings.TrimPrefix(uri, "gs://")
	if trimmed == uri {
		return "", fmt.Errorf("not a gs:// uri: %q: %w", uri, pkgerrors.ErrInvalidArgument)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("malformed gs:// uri: %q: %w", uri, pkgerrors.ErrInvalidArgument)
	}
	return parts[1], nil
}

type localStorageService struct {
	log     *logger.Logger
	baseDir string
}

// NewLocalStorageService writes under UPLOAD_LOCAL_DIR. Used when no
// GCS bucket is configured.
func NewLocalStorageService(baseLog *logger.Logger) StorageService {
	serviceLog := baseLog.With("service", "LocalStorageService")
	baseDir := utils.GetEnv("UPLOAD_LOCAL_DIR", ".", serviceLog)
	return &localStorageService{log: serviceLog, baseDir: baseDir}
}

func (ls *localStorageService) Save(ctx context.Context, originalName, contentType string, file io.Reader) (string, error) {
	key := objectKey(time.Now(), originalName)
	fullPath := filepath.Join(ls.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	out, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return "file://" + key, nil
}

func (ls *localStorageService) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	key, err := localKey(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(ls.baseDir, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (ls *localStorageService) Delete(ctx context.Context, uri string) error {
	key, err := localKey(uri)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(ls.baseDir, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func localKey(uri string) (string, error) {
	trimmed := strings.TrimPrefix(uri, "file://")
	if trimmed == uri || trimmed == "" {
		return "", fmt.Errorf("not a file:// uri: %q: %w", uri, pkgerrors.ErrInvalidArgument)
	}
	// Reject traversal out of the upload root.
	clean := filepath.ToSlash(filepath.Clean(trimmed))
	if strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", fmt.Errorf("invalid file path: %q: %w", uri, pkgerrors.ErrInvalidArgument)
	}
	return clean, nil
}
