package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

// memoryStorage keeps uploads in a map so submission tests never touch
// disk or a bucket.
type memoryStorage struct {
	files map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string][]byte)}
}

func (m *memoryStorage) Save(ctx context.Context, originalName, contentType string, file io.Reader) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	uri := "mem://" + uuid.New().String() + "/" + originalName
	m.files[uri] = data
	return uri, nil
}

func (m *memoryStorage) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	data, ok := m.files[uri]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (m *memoryStorage) Delete(ctx context.Context, uri string) error {
	delete(m.files, uri)
	return nil
}

type assignmentFixture struct {
	db          *gorm.DB
	storage     *memoryStorage
	submissions repos.SubmissionRepo
	service     AssignmentService
	teacherID   uuid.UUID
}

func newAssignmentFixture(t *testing.T) *assignmentFixture {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(&types.Assignment{}, &types.Submission{}, &types.QuizQuestion{}, &types.JobRun{}, &types.AuditLog{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	f := &assignmentFixture{
		db:          gdb,
		storage:     newMemoryStorage(),
		submissions: repos.NewSubmissionRepo(gdb, log),
		teacherID:   uuid.New(),
	}
	f.service = NewAssignmentService(
		gdb,
		log,
		repos.NewAssignmentRepo(gdb, log),
		f.submissions,
		repos.NewQuizQuestionRepo(gdb, log),
		repos.NewJobRunRepo(gdb, log),
		repos.NewAuditLogRepo(gdb, log),
		f.storage,
	)
	return f
}

func (f *assignmentFixture) createAssignment(t *testing.T) *types.Assignment {
	t.Helper()
	assignment, err := f.service.Create(context.Background(), f.teacherID, &CreateAssignmentInput{
		Title:   "Essay on ecosystems",
		Subject: "Biology",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return assignment
}

func (f *assignmentFixture) submit(t *testing.T, assignmentID uuid.UUID) *types.Submission {
	t.Helper()
	submission, err := f.service.Submit(context.Background(), assignmentID, uuid.New(), &SubmitInput{
		FileName:    "essay.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 fake"),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return submission
}

func TestCreateAssignment_RequiresTitle(t *testing.T) {
	f := newAssignmentFixture(t)

	_, err := f.service.Create(context.Background(), f.teacherID, &CreateAssignmentInput{Title: "  "})
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSubmit_StoresFileAndEnqueuesOCR(t *testing.T) {
	f := newAssignmentFixture(t)
	assignment := f.createAssignment(t)

	submission := f.submit(t, assignment.ID)
	if submission.FilePath == "" {
		t.Fatalf("expected stored file uri")
	}
	if _, ok := f.storage.files[submission.FilePath]; !ok {
		t.Fatalf("file not in storage: %q", submission.FilePath)
	}

	var jobCount int64
	if err := f.db.Model(&types.JobRun{}).Where("job_type = ?", JobTypeOCRExtract).Count(&jobCount).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if jobCount != 1 {
		t.Fatalf("expected 1 ocr job, got %d", jobCount)
	}
}

func TestSubmit_NormalizesContentTypeParams(t *testing.T) {
	f := newAssignmentFixture(t)
	assignment := f.createAssignment(t)

	submission, err := f.service.Submit(context.Background(), assignment.ID, uuid.New(), &SubmitInput{
		FileName:    "scan.jpg",
		ContentType: "Image/JPEG; charset=binary",
		Data:        []byte{0xff, 0xd8, 0xff},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if submission.ContentType != "image/jpeg" {
		t.Fatalf("expected normalized content type, got %q", submission.ContentType)
	}
}

func TestSubmit_RejectsUnsupportedTypeAndOversize(t *testing.T) {
	f := newAssignmentFixture(t)
	assignment := f.createAssignment(t)

	_, err := f.service.Submit(context.Background(), assignment.ID, uuid.New(), &SubmitInput{
		FileName:    "notes.txt",
		ContentType: "text/plain",
		Data:        []byte("plain text"),
	})
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for text/plain, got %v", err)
	}

	_, err = f.service.Submit(context.Background(), assignment.ID, uuid.New(), &SubmitInput{
		FileName:    "huge.pdf",
		ContentType: "application/pdf",
		Data:        make([]byte, maxUploadBytes+1),
	})
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for oversize file, got %v", err)
	}
}

func TestSubmit_RejectsDuplicateSubmission(t *testing.T) {
	f := newAssignmentFixture(t)
	assignment := f.createAssignment(t)
	studentID := uuid.New()

	input := &SubmitInput{FileName: "essay.pdf", ContentType: "application/pdf", Data: []byte("data")}
	if _, err := f.service.Submit(context.Background(), assignment.ID, studentID, input); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := f.service.Submit(context.Background(), assignment.ID, studentID, input); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
}

func TestSubmit_UnknownAssignment(t *testing.T) {
	f := newAssignmentFixture(t)

	_, err := f.service.Submit(context.Background(), uuid.New(), uuid.New(), &SubmitInput{
		FileName:    "essay.pdf",
		ContentType: "application/pdf",
		Data:        []byte("data"),
	})
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGrade_ValidatesRange(t *testing.T) {
	f := newAssignmentFixture(t)
	assignment := f.createAssignment(t)
	submission := f.submit(t, assignment.ID)

	if _, err := f.service.Grade(context.Background(), submission.ID, &GradeInput{Grade: 101}); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for grade 101, got %v", err)
	}
	if _, err := f.service.Grade(context.Background(), submission.ID, &GradeInput{Grade: -1}); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for grade -1, got %v", err)
	}

	graded, err := f.service.Grade(context.Background(), submission.ID, &GradeInput{Grade: 87.5, Feedback: " well argued "})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if graded.Grade == nil || *graded.Grade != 87.5 {
		t.Fatalf("unexpected grade: %+v", graded.Grade)
	}
	if graded.Feedback != "well argued" {
		t.Fatalf("expected trimmed feedback, got %q", graded.Feedback)
	}

	var auditCount int64
	if err := f.db.Model(&types.AuditLog{}).Where("action = ?", "submission.grade").Count(&auditCount).Error; err != nil {
		t.Fatalf("count audit: %v", err)
	}
	if auditCount != 1 {
		t.Fatalf("expected grade audit entry, got %d", auditCount)
	}
}

func TestRequestQuiz_RequiresExtractedText(t *testing.T) {
	f := newAssignmentFixture(t)
	assignment := f.createAssignment(t)
	submission := f.submit(t, assignment.ID)

	err := f.service.RequestQuiz(context.Background(), submission.ID, 5)
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument before OCR, got %v", err)
	}

	if err := f.submissions.UpdateFields(context.Background(), nil, submission.ID, map[string]any{
		"ocr_text": "Extracted essay text.",
	}); err != nil {
		t.Fatalf("seed ocr text: %v", err)
	}

	if err := f.service.RequestQuiz(context.Background(), submission.ID, 5); err != nil {
		t.Fatalf("RequestQuiz: %v", err)
	}
	var jobCount int64
	if err := f.db.Model(&types.JobRun{}).Where("job_type = ?", JobTypeQuizGenerate).Count(&jobCount).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if jobCount != 1 {
		t.Fatalf("expected 1 quiz job, got %d", jobCount)
	}
}

func TestRequestQuiz_ValidatesQuestionCount(t *testing.T) {
	f := newAssignmentFixture(t)

	if err := f.service.RequestQuiz(context.Background(), uuid.New(), 0); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := f.service.RequestQuiz(context.Background(), uuid.New(), 11); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
