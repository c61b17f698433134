package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
)

func TestObjectKey_DatedPathWithSanitizedName(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)

	key := objectKey(now, "my essay draft.pdf")
	if !strings.HasPrefix(key, "uploads/2026/03/07/") {
		t.Fatalf("unexpected prefix: %q", key)
	}
	if !strings.HasSuffix(key, "_my_essay_draft.pdf") {
		t.Fatalf("expected underscored name, got %q", key)
	}
}

func TestObjectKey_StripsDirectoryComponents(t *testing.T) {
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)

	key := objectKey(now, "../../etc/passwd")
	if strings.Contains(key, "..") {
		t.Fatalf("traversal survived sanitization: %q", key)
	}
	if !strings.HasSuffix(key, "_passwd") {
		t.Fatalf("expected base name only, got %q", key)
	}
}

func TestGcsKey_ParsesBucketURI(t *testing.T) {
	key, err := gcsKey("gs://my-bucket/uploads/2026/03/07/abc_file.pdf")
	if err != nil {
		t.Fatalf("gcsKey: %v", err)
	}
	if key != "uploads/2026/03/07/abc_file.pdf" {
		t.Fatalf("unexpected key: %q", key)
	}
}

func TestGcsKey_RejectsForeignURIs(t *testing.T) {
	for _, uri := range []string{"file://x", "gs://bucket-only", "http://x/y"} {
		if _, err := gcsKey(uri); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
			t.Fatalf("uri %q: expected ErrInvalidArgument, got %v", uri, err)
		}
	}
}

func TestLocalKey_RejectsTraversal(t *testing.T) {
	for _, uri := range []string{"file://../secret", "file:///etc/passwd", "file://uploads/../../x"} {
		if _, err := localKey(uri); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
			t.Fatalf("uri %q: expected ErrInvalidArgument, got %v", uri, err)
		}
	}
}

func TestLocalStorage_SaveOpenDeleteRoundTrip(t *testing.T) {
	t.Setenv("UPLOAD_LOCAL_DIR", t.TempDir())
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	storage := NewLocalStorageService(log)
	ctx := context.Background()

	uri, err := storage.Save(ctx, "notes.txt", "text/plain", bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(uri, "file://uploads/") {
		t.Fatalf("unexpected uri: %q", uri)
	}

	reader, err := storage.Open(ctx, uri)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	_ = reader.Close()
	if string(data) != "hello" {
		t.Fatalf("unexpected content: %q", data)
	}

	if err := storage.Delete(ctx, uri); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := storage.Open(ctx, uri); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
