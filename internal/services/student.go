package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

const (
	dashboardRecentSubmissions = 5
	dashboardRecentAttendance  = 10
	dashboardRecentTests       = 5
)

type CreateProfileInput struct {
	UserID        uuid.UUID `json:"user_id"`
	StudentNumber string    `json:"student_number"`
	ClassName     string    `json:"class_name"`
	Grade         string    `json:"grade"`
	GuardianName  string    `json:"guardian_name"`
	GuardianPhone string    `json:"guardian_phone"`
	GuardianEmail string    `json:"guardian_email"`
}

type AttendanceInput struct {
	Date    time.Time `json:"date"`
	Present bool      `json:"present"`
}

type TestRecordInput struct {
	Subject  string    `json:"subject"`
	TestName string    `json:"test_name"`
	Score    float64   `json:"score"`
	MaxScore float64   `json:"max_score"`
	TestDate time.Time `json:"test_date"`
}

type FeeRecordInput struct {
	Amount   float64    `json:"amount"`
	DueDate  time.Time  `json:"due_date"`
	PaidDate *time.Time `json:"paid_date,omitempty"`
	IsPaid   bool       `json:"is_paid"`
}

// StudentDashboard is the aggregate view a student sees after login.
type StudentDashboard struct {
	Profile           *types.StudentProfile     `json:"profile"`
	RecentSubmissions []*types.Submission       `json:"recent_submissions"`
	RecentAttendance  []*types.AttendanceRecord `json:"recent_attendance"`
	RecentTests       []*types.TestRecord       `json:"recent_tests"`
	PendingFees       []*types.FeeRecord        `json:"pending_fees"`
	LatestRisk        *types.RiskScore          `json:"latest_risk,omitempty"`
}

type StudentService interface {
	CreateProfile(ctx context.Context, input *CreateProfileInput) (*types.StudentProfile, error)
	GetProfile(ctx context.Context, profileID uuid.UUID) (*types.StudentProfile, error)
	GetProfileByUser(ctx context.Context, userID uuid.UUID) (*types.StudentProfile, error)
	ListProfiles(ctx context.Context) ([]*types.StudentProfile, error)
	UpdateProfile(ctx context.Context, profileID uuid.UUID, updates map[string]any) (*types.StudentProfile, error)

	RecordAttendance(ctx context.Context, profileID uuid.UUID, input *AttendanceInput) (*types.AttendanceRecord, error)
	ListAttendance(ctx context.Context, profileID uuid.UUID, limit int) ([]*types.AttendanceRecord, error)
	RecordTest(ctx context.Context, profileID uuid.UUID, input *TestRecordInput) (*types.TestRecord, error)
	ListTests(ctx context.Context, profileID uuid.UUID, limit int) ([]*types.TestRecord, error)
	RecordFee(ctx context.Context, profileID uuid.UUID, input *FeeRecordInput) (*types.FeeRecord, error)
	ListFees(ctx context.Context, profileID uuid.UUID) ([]*types.FeeRecord, error)

	Dashboard(ctx context.Context, userID uuid.UUID) (*StudentDashboard, error)
}

type studentService struct {
	db          *gorm.DB
	log         *logger.Logger
	users       repos.UserRepo
	profiles    repos.StudentProfileRepo
	attendance  repos.AttendanceRepo
	tests       repos.TestRecordRepo
	fees        repos.FeeRecordRepo
	submissions repos.SubmissionRepo
	scores      repos.RiskScoreRepo
}

func NewStudentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	profiles repos.StudentProfileRepo,
	attendance repos.AttendanceRepo,
	tests repos.TestRecordRepo,
	fees repos.FeeRecordRepo,
	submissions repos.SubmissionRepo,
	scores repos.RiskScoreRepo,
) StudentService {
	serviceLog := baseLog.With("service", "StudentService")
	return &studentService{
		db:          db,
		log:         serviceLog,
		users:       users,
		profiles:    profiles,
		attendance:  attendance,
		tests:       tests,
		fees:        fees,
		submissions: submissions,
		scores:      scores,
	}
}

func (ss *studentService) CreateProfile(ctx context.Context, input *CreateProfileInput) (*types.StudentProfile, error) {
	studentNumber := strings.TrimSpace(input.StudentNumber)
	if studentNumber == "" {
		return nil, fmt.Errorf("student_number is required: %w", pkgerrors.ErrInvalidArgument)
	}

	user, err := ss.users.GetByID(ctx, nil, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", input.UserID, err)
	}
	if user.Role != types.RoleStudent {
		return nil, fmt.Errorf("user %s is not a student: %w", input.UserID, pkgerrors.ErrInvalidArgument)
	}
	if _, err := ss.profiles.GetByUserID(ctx, nil, input.UserID); err == nil {
		return nil, fmt.Errorf("profile already exists for user %s: %w", input.UserID, pkgerrors.ErrInvalidArgument)
	} else if err != pkgerrors.ErrNotFound {
		return nil, fmt.Errorf("failed to check existing profile: %w", err)
	}

	profile := &types.StudentProfile{
		ID:            uuid.New(),
		UserID:        input.UserID,
		StudentNumber: studentNumber,
		ClassName:     strings.TrimSpace(input.ClassName),
		Grade:         strings.TrimSpace(input.Grade),
		GuardianName:  strings.TrimSpace(input.GuardianName),
		GuardianPhone: strings.TrimSpace(input.GuardianPhone),
		GuardianEmail: strings.TrimSpace(input.GuardianEmail),
	}
	if err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, cErr := ss.profiles.Create(ctx, tx, profile)
		return cErr
	}); err != nil {
		return nil, fmt.Errorf("failed to create student profile: %w", err)
	}
	ss.log.Info("Student profile created", "profile_id", profile.ID.String(), "student_number", profile.StudentNumber)
	return profile, nil
}

func (ss *studentService) GetProfile(ctx context.Context, profileID uuid.UUID) (*types.StudentProfile, error) {
	return ss.profiles.GetByID(ctx, nil, profileID)
}

func (ss *studentService) GetProfileByUser(ctx context.Context, userID uuid.UUID) (*types.StudentProfile, error) {
	return ss.profiles.GetByUserID(ctx, nil, userID)
}

func (ss *studentService) ListProfiles(ctx context.Context) ([]*types.StudentProfile, error) {
	return ss.profiles.List(ctx, nil)
}

var updatableProfileFields = map[string]bool{
	"class_name":     true,
	"grade":          true,
	"guardian_name":  true,
	"guardian_phone": true,
	"guardian_email": true,
}

func (ss *studentService) UpdateProfile(ctx context.Context, profileID uuid.UUID, updates map[string]any) (*types.StudentProfile, error) {
	filtered := map[string]any{}
	for k, v := range updates {
		if updatableProfileFields[k] {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("no updatable fields provided: %w", pkgerrors.ErrInvalidArgument)
	}
	if _, err := ss.profiles.GetByID(ctx, nil, profileID); err != nil {
		return nil, err
	}
	if err := ss.profiles.UpdateFields(ctx, nil, profileID, filtered); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return ss.profiles.GetByID(ctx, nil, profileID)
}

func (ss *studentService) RecordAttendance(ctx context.Context, profileID uuid.UUID, input *AttendanceInput) (*types.AttendanceRecord, error) {
	if input.Date.IsZero() {
		return nil, fmt.Errorf("date is required: %w", pkgerrors.ErrInvalidArgument)
	}
	if _, err := ss.profiles.GetByID(ctx, nil, profileID); err != nil {
		return nil, err
	}
	record := &types.AttendanceRecord{
		ID:        uuid.New(),
		StudentID: profileID,
		Date:      input.Date,
		Present:   input.Present,
	}
	return ss.attendance.Create(ctx, nil, record)
}

func (ss *studentService) ListAttendance(ctx context.Context, profileID uuid.UUID, limit int) ([]*types.AttendanceRecord, error) {
	return ss.attendance.ListByStudent(ctx, nil, profileID, limit)
}

func (ss *studentService) RecordTest(ctx context.Context, profileID uuid.UUID, input *TestRecordInput) (*types.TestRecord, error) {
	if strings.TrimSpace(input.Subject) == "" || strings.TrimSpace(input.TestName) == "" {
		return nil, fmt.Errorf("subject and test_name are required: %w", pkgerrors.ErrInvalidArgument)
	}
	if input.MaxScore <= 0 {
		return nil, fmt.Errorf("max_score must be positive: %w", pkgerrors.ErrInvalidArgument)
	}
	if input.Score < 0 || input.Score > input.MaxScore {
		return nil, fmt.Errorf("score must be between 0 and max_score: %w", pkgerrors.ErrInvalidArgument)
	}
	if input.TestDate.IsZero() {
		return nil, fmt.Errorf("test_date is required: %w", pkgerrors.ErrInvalidArgument)
	}
	if _, err := ss.profiles.GetByID(ctx, nil, profileID); err != nil {
		return nil, err
	}
	record := &types.TestRecord{
		ID:        uuid.New(),
		StudentID: profileID,
		Subject:   strings.TrimSpace(input.Subject),
		TestName:  strings.TrimSpace(input.TestName),
		Score:     input.Score,
		MaxScore:  input.MaxScore,
		TestDate:  input.TestDate,
	}
	return ss.tests.Create(ctx, nil, record)
}

func (ss *studentService) ListTests(ctx context.Context, profileID uuid.UUID, limit int) ([]*types.TestRecord, error) {
	return ss.tests.ListByStudent(ctx, nil, profileID, limit)
}

func (ss *studentService) RecordFee(ctx context.Context, profileID uuid.UUID, input *FeeRecordInput) (*types.FeeRecord, error) {
	if input.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", pkgerrors.ErrInvalidArgument)
	}
	if input.DueDate.IsZero() {
		return nil, fmt.Errorf("due_date is required: %w", pkgerrors.ErrInvalidArgument)
	}
	if _, err := ss.profiles.GetByID(ctx, nil, profileID); err != nil {
		return nil, err
	}
	record := &types.FeeRecord{
		ID:        uuid.New(),
		StudentID: profileID,
		Amount:    input.Amount,
		DueDate:   input.DueDate,
		PaidDate:  input.PaidDate,
		IsPaid:    input.IsPaid,
	}
	return ss.fees.Create(ctx, nil, record)
}

func (ss *studentService) ListFees(ctx context.Context, profileID uuid.UUID) ([]*types.FeeRecord, error) {
	return ss.fees.ListByStudent(ctx, nil, profileID)
}

func (ss *studentService) Dashboard(ctx context.Context, userID uuid.UUID) (*StudentDashboard, error) {
	profile, err := ss.profiles.GetByUserID(ctx, nil, userID)
	if err != nil {
		if err == pkgerrors.ErrNotFound {
			return nil, fmt.Errorf("no profile found for user %s: %w", userID, pkgerrors.ErrNotFound)
		}
		return nil, err
	}

	submissions, err := ss.submissions.ListRecentByStudent(ctx, nil, userID, dashboardRecentSubmissions)
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}
	attendance, err := ss.attendance.ListByStudent(ctx, nil, profile.ID, dashboardRecentAttendance)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	tests, err := ss.tests.ListByStudent(ctx, nil, profile.ID, dashboardRecentTests)
	if err != nil {
		return nil, fmt.Errorf("failed to load tests: %w", err)
	}
	pendingFees, err := ss.fees.ListPending(ctx, nil, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fees: %w", err)
	}

	latestRisk, err := ss.scores.GetLatestForStudent(ctx, nil, profile.ID)
	if err != nil && err != pkgerrors.ErrNotFound {
		return nil, fmt.Errorf("failed to load latest risk score: %w", err)
	}

	return &StudentDashboard{
		Profile:           profile,
		RecentSubmissions: submissions,
		RecentAttendance:  attendance,
		RecentTests:       tests,
		PendingFees:       pendingFees,
		LatestRisk:        latestRisk,
	}, nil
}
