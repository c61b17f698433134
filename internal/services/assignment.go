package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/requestdata"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

const (
	JobTypeOCRExtract   = "ocr_extract"
	JobTypeQuizGenerate = "quiz_generate"

	maxUploadBytes = 10 << 20
)

// allowedUploadTypes are the only content types accepted for
// submissions. The OCR pipeline only understands these.
var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"application/pdf": true,
}

type CreateAssignmentInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Subject     string     `json:"subject"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type SubmitInput struct {
	FileName    string
	ContentType string
	Data        []byte
}

type GradeInput struct {
	Grade    float64 `json:"grade"`
	Feedback string  `json:"feedback"`
}

type AssignmentService interface {
	Create(ctx context.Context, teacherID uuid.UUID, input *CreateAssignmentInput) (*types.Assignment, error)
	Get(ctx context.Context, assignmentID uuid.UUID) (*types.Assignment, error)
	List(ctx context.Context) ([]*types.Assignment, error)

	Submit(ctx context.Context, assignmentID, studentID uuid.UUID, input *SubmitInput) (*types.Submission, error)
	GetSubmission(ctx context.Context, submissionID uuid.UUID) (*types.Submission, error)
	Grade(ctx context.Context, submissionID uuid.UUID, input *GradeInput) (*types.Submission, error)

	RequestQuiz(ctx context.Context, submissionID uuid.UUID, numQuestions int) error
	ListQuiz(ctx context.Context, submissionID uuid.UUID) ([]*types.QuizQuestion, error)
}

type assignmentService struct {
	db          *gorm.DB
	log         *logger.Logger
	assignments repos.AssignmentRepo
	submissions repos.SubmissionRepo
	questions   repos.QuizQuestionRepo
	jobs        repos.JobRunRepo
	audit       repos.AuditLogRepo
	storage     StorageService
}

func NewAssignmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	assignments repos.AssignmentRepo,
	submissions repos.SubmissionRepo,
	questions repos.QuizQuestionRepo,
	jobs repos.JobRunRepo,
	audit repos.AuditLogRepo,
	storage StorageService,
) AssignmentService {
	serviceLog := baseLog.With("service", "AssignmentService")
	return &assignmentService{
		db:          db,
		log:         serviceLog,
		assignments: assignments,
		submissions: submissions,
		questions:   questions,
		jobs:        jobs,
		audit:       audit,
		storage:     storage,
	}
}

func (s *assignmentService) Create(ctx context.Context, teacherID uuid.UUID, input *CreateAssignmentInput) (*types.Assignment, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", pkgerrors.ErrInvalidArgument)
	}
	assignment := &types.Assignment{
		ID:          uuid.New(),
		TeacherID:   teacherID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Subject:     strings.TrimSpace(input.Subject),
		DueDate:     input.DueDate,
	}
	if _, err := s.assignments.Create(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	s.log.Info("Assignment created", "assignment_id", assignment.ID.String(), "teacher_id", teacherID.String())
	return assignment, nil
}

func (s *assignmentService) Get(ctx context.Context, assignmentID uuid.UUID) (*types.Assignment, error) {
	return s.assignments.GetByID(ctx, nil, assignmentID)
}

func (s *assignmentService) List(ctx context.Context) ([]*types.Assignment, error) {
	return s.assignments.List(ctx, nil)
}

func (s *assignmentService) Submit(ctx context.Context, assignmentID, studentID uuid.UUID, input *SubmitInput) (*types.Submission, error) {
	if len(input.Data) == 0 {
		return nil, fmt.Errorf("file is required: %w", pkgerrors.ErrInvalidArgument)
	}
	if len(input.Data) > maxUploadBytes {
		return nil, fmt.Errorf("file exceeds %d byte limit: %w", maxUploadBytes, pkgerrors.ErrInvalidArgument)
	}
	contentType := strings.TrimSpace(strings.ToLower(input.ContentType))
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if !allowedUploadTypes[contentType] {
		return nil, fmt.Errorf("unsupported content type %q: %w", contentType, pkgerrors.ErrInvalidArgument)
	}

	if _, err := s.assignments.GetByID(ctx, nil, assignmentID); err != nil {
		return nil, err
	}
	exists, err := s.submissions.Exists(ctx, nil, assignmentID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("assignment already submitted: %w", pkgerrors.ErrInvalidArgument)
	}

	uri, err := s.storage.Save(ctx, input.FileName, contentType, bytes.NewReader(input.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	submission := &types.Submission{
		ID:           uuid.New(),
		AssignmentID: assignmentID,
		StudentID:    studentID,
		FilePath:     uri,
		FileName:     input.FileName,
		ContentType:  contentType,
	}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, cErr := s.submissions.Create(ctx, tx, submission); cErr != nil {
			return cErr
		}
		_, jErr := s.jobs.Enqueue(ctx, tx, &types.JobRun{
			ID:      uuid.New(),
			JobType: JobTypeOCRExtract,
			Payload: datatypes.JSONMap{
				"submission_id": submission.ID.String(),
			},
		})
		return jErr
	}); err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}

	s.log.Info("Submission received",
		"submission_id", submission.ID.String(),
		"assignment_id", assignmentID.String(),
		"student_id", studentID.String(),
	)
	return submission, nil
}

func (s *assignmentService) GetSubmission(ctx context.Context, submissionID uuid.UUID) (*types.Submission, error) {
	return s.submissions.GetByID(ctx, nil, submissionID)
}

func (s *assignmentService) Grade(ctx context.Context, submissionID uuid.UUID, input *GradeInput) (*types.Submission, error) {
	if input.Grade < 0 || input.Grade > 100 {
		return nil, fmt.Errorf("grade must be between 0 and 100: %w", pkgerrors.ErrInvalidArgument)
	}
	if err := s.submissions.UpdateFields(ctx, nil, submissionID, map[string]any{
		"grade":    input.Grade,
		"feedback": strings.TrimSpace(input.Feedback),
	}); err != nil {
		return nil, err
	}
	if s.audit != nil {
		actorID := uuid.Nil
		if rd := requestdata.GetRequestData(ctx); rd != nil {
			actorID = rd.UserID
		}
		entry := &types.AuditLog{
			ID:       uuid.New(),
			ActorID:  actorID,
			Action:   "submission.grade",
			Entity:   "submission",
			EntityID: submissionID,
			Details:  datatypes.JSONMap{"grade": input.Grade},
		}
		if err := s.audit.Create(ctx, nil, entry); err != nil {
			s.log.Warn("Failed to write audit entry", "action", "submission.grade", "error", err)
		}
	}
	return s.submissions.GetByID(ctx, nil, submissionID)
}

func (s *assignmentService) RequestQuiz(ctx context.Context, submissionID uuid.UUID, numQuestions int) error {
	if numQuestions < minQuizQuestions || numQuestions > maxQuizQuestions {
		return fmt.Errorf("num_questions must be between %d and %d: %w",
			minQuizQuestions, maxQuizQuestions, pkgerrors.ErrInvalidArgument)
	}
	submission, err := s.submissions.GetByID(ctx, nil, submissionID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(submission.OCRText) == "" {
		return fmt.Errorf("submission has no extracted text yet: %w", pkgerrors.ErrInvalidArgument)
	}
	_, err = s.jobs.Enqueue(ctx, nil, &types.JobRun{
		ID:      uuid.New(),
		JobType: JobTypeQuizGenerate,
		Payload: datatypes.JSONMap{
			"submission_id": submissionID.String(),
			"num_questions": numQuestions,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue quiz job: %w", err)
	}
	return nil
}

func (s *assignmentService) ListQuiz(ctx context.Context, submissionID uuid.UUID) ([]*types.QuizQuestion, error) {
	if _, err := s.submissions.GetByID(ctx, nil, submissionID); err != nil {
		return nil, err
	}
	return s.questions.ListBySubmission(ctx, nil, submissionID)
}
