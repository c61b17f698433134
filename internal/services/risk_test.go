package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

type stubUserRepo struct {
	users  map[uuid.UUID]*types.User
	active []*types.User
}

func (s *stubUserRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) (*types.User, error) {
	return user, nil
}

func (s *stubUserRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	if user, ok := s.users[userID]; ok {
		return user, nil
	}
	return nil, pkgerrors.ErrNotFound
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	return nil, pkgerrors.ErrNotFound
}

func (s *stubUserRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	return false, nil
}

func (s *stubUserRepo) ListActiveByRole(ctx context.Context, tx *gorm.DB, role string) ([]*types.User, error) {
	return s.active, nil
}

type stubProfileRepo struct {
	byUser map[uuid.UUID]*types.StudentProfile
}

func (s *stubProfileRepo) Create(ctx context.Context, tx *gorm.DB, profile *types.StudentProfile) (*types.StudentProfile, error) {
	return profile, nil
}

func (s *stubProfileRepo) GetByID(ctx context.Context, tx *gorm.DB, profileID uuid.UUID) (*types.StudentProfile, error) {
	return nil, pkgerrors.ErrNotFound
}

func (s *stubProfileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.StudentProfile, error) {
	if profile, ok := s.byUser[userID]; ok {
		return profile, nil
	}
	return nil, pkgerrors.ErrNotFound
}

func (s *stubProfileRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.StudentProfile, error) {
	return nil, nil
}

func (s *stubProfileRepo) UpdateFields(ctx context.Context, tx *gorm.DB, profileID uuid.UUID, updates map[string]any) error {
	return nil
}

type stubAttendanceRepo struct {
	stats repos.AttendanceStats
}

func (s *stubAttendanceRepo) Create(ctx context.Context, tx *gorm.DB, record *types.AttendanceRecord) (*types.AttendanceRecord, error) {
	return record, nil
}

func (s *stubAttendanceRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, limit int) ([]*types.AttendanceRecord, error) {
	return nil, nil
}

func (s *stubAttendanceRepo) StatsSince(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, since time.Time) (*repos.AttendanceStats, error) {
	stats := s.stats
	return &stats, nil
}

type stubTestRepo struct {
	records []*types.TestRecord
}

func (s *stubTestRepo) Create(ctx context.Context, tx *gorm.DB, record *types.TestRecord) (*types.TestRecord, error) {
	return record, nil
}

func (s *stubTestRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, limit int) ([]*types.TestRecord, error) {
	return s.records, nil
}

func (s *stubTestRepo) ListSince(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, since time.Time) ([]*types.TestRecord, error) {
	return s.records, nil
}

type stubFeeRepo struct {
	stats repos.FeeStats
}

func (s *stubFeeRepo) Create(ctx context.Context, tx *gorm.DB, record *types.FeeRecord) (*types.FeeRecord, error) {
	return record, nil
}

func (s *stubFeeRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.FeeRecord, error) {
	return nil, nil
}

func (s *stubFeeRepo) ListPending(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.FeeRecord, error) {
	return nil, nil
}

func (s *stubFeeRepo) Stats(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, now time.Time) (*repos.FeeStats, error) {
	stats := s.stats
	return &stats, nil
}

type stubChatRepo struct {
	stats repos.ChatStats
}

func (s *stubChatRepo) Create(ctx context.Context, tx *gorm.DB, message *types.ChatMessage) (*types.ChatMessage, error) {
	return message, nil
}

func (s *stubChatRepo) GetByID(ctx context.Context, tx *gorm.DB, messageID uuid.UUID) (*types.ChatMessage, error) {
	return nil, pkgerrors.ErrNotFound
}

func (s *stubChatRepo) ListBySender(ctx context.Context, tx *gorm.DB, senderID uuid.UUID, now time.Time) ([]*types.ChatMessage, error) {
	return nil, nil
}

func (s *stubChatRepo) ListPublic(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.ChatMessage, error) {
	return nil, nil
}

func (s *stubChatRepo) StatsSince(ctx context.Context, tx *gorm.DB, senderID uuid.UUID, since time.Time) (*repos.ChatStats, error) {
	stats := s.stats
	return &stats, nil
}

func (s *stubChatRepo) DeleteExpiredUnflagged(ctx context.Context, tx *gorm.DB, now time.Time) (int64, error) {
	return 0, nil
}

type stubIncidentRepo struct {
	hasIncident bool
}

func (s *stubIncidentRepo) Create(ctx context.Context, tx *gorm.DB, incident *types.SafetyIncident) (*types.SafetyIncident, error) {
	return incident, nil
}

func (s *stubIncidentRepo) GetByID(ctx context.Context, tx *gorm.DB, incidentID uuid.UUID) (*types.SafetyIncident, error) {
	return nil, pkgerrors.ErrNotFound
}

func (s *stubIncidentRepo) List(ctx context.Context, tx *gorm.DB, status string) ([]*types.SafetyIncident, error) {
	return nil, nil
}

func (s *stubIncidentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, incidentID uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubIncidentRepo) ExistsForStudentSince(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, since time.Time) (bool, error) {
	return s.hasIncident, nil
}

type stubScoreRepo struct {
	mu        sync.Mutex
	created   []*types.RiskScore
	latest    []*types.RiskScore
	lastLevel string
}

func (s *stubScoreRepo) Create(ctx context.Context, tx *gorm.DB, score *types.RiskScore) (*types.RiskScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, score)
	return score, nil
}

func (s *stubScoreRepo) GetLatestForStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) (*types.RiskScore, error) {
	return nil, pkgerrors.ErrNotFound
}

func (s *stubScoreRepo) ListLatest(ctx context.Context, tx *gorm.DB, level string) ([]*types.RiskScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLevel = level
	return s.latest, nil
}

type riskFixture struct {
	userID    uuid.UUID
	profileID uuid.UUID
	users     *stubUserRepo
	profiles  *stubProfileRepo
	attend    *stubAttendanceRepo
	tests     *stubTestRepo
	fees      *stubFeeRepo
	chat      *stubChatRepo
	incidents *stubIncidentRepo
	scores    *stubScoreRepo
	service   RiskService
}

func newRiskFixture(t *testing.T) *riskFixture {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	userID := uuid.New()
	profileID := uuid.New()
	f := &riskFixture{
		userID:    userID,
		profileID: profileID,
		users: &stubUserRepo{users: map[uuid.UUID]*types.User{
			userID: {ID: userID, Role: types.RoleStudent, IsActive: true},
		}},
		profiles: &stubProfileRepo{byUser: map[uuid.UUID]*types.StudentProfile{
			userID: {ID: profileID, UserID: userID},
		}},
		attend:    &stubAttendanceRepo{},
		tests:     &stubTestRepo{},
		fees:      &stubFeeRepo{},
		chat:      &stubChatRepo{},
		incidents: &stubIncidentRepo{},
		scores:    &stubScoreRepo{},
	}
	f.service = NewRiskService(nil, log, f.users, f.profiles, f.attend, f.tests, f.fees, f.chat, f.incidents, f.scores)
	return f
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeRisk_AllComponentsHealthy(t *testing.T) {
	f := newRiskFixture(t)
	f.attend.stats = repos.AttendanceStats{Total: 20, Present: 20}
	f.tests.records = []*types.TestRecord{{Score: 90, MaxScore: 100}}
	f.fees.stats = repos.FeeStats{Total: 2, Overdue: 0}
	f.chat.stats = repos.ChatStats{Total: 10, Flagged: 0}

	score, err := f.service.ComputeRisk(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("ComputeRisk: %v", err)
	}
	if !almostEqual(score.OverallScore, 0.0) {
		t.Fatalf("expected overall 0.0, got %v", score.OverallScore)
	}
	if score.RiskLevel != types.RiskLevelLow {
		t.Fatalf("expected low, got %q", score.RiskLevel)
	}
	if score.StudentID != f.profileID {
		t.Fatalf("snapshot keyed by user, want profile %s got %s", f.profileID, score.StudentID)
	}
	if len(f.scores.created) != 1 {
		t.Fatalf("expected snapshot persisted, got %d", len(f.scores.created))
	}
}

func TestComputeRisk_NoDataDefaults(t *testing.T) {
	f := newRiskFixture(t)
	// All stats zero: attendance 0.5, tests 0.5, fees 0.0, chat 0.3.

	score, err := f.service.ComputeRisk(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("ComputeRisk: %v", err)
	}
	if !almostEqual(score.AttendanceScore, 0.5) || !almostEqual(score.TestPerformanceScore, 0.5) {
		t.Fatalf("unexpected no-data defaults: %+v", score)
	}
	if !almostEqual(score.FeePaymentScore, 0.0) || !almostEqual(score.ChatBehaviorScore, 0.3) {
		t.Fatalf("unexpected no-data defaults: %+v", score)
	}
	want := 0.5*0.30 + 0.5*0.25 + 0.0*0.20 + 0.3*0.25
	if !almostEqual(score.OverallScore, want) {
		t.Fatalf("expected overall %v, got %v", want, score.OverallScore)
	}
	if score.RiskLevel != types.RiskLevelLow {
		t.Fatalf("expected low, got %q", score.RiskLevel)
	}
}

func TestComputeRisk_IncidentForcesMaxChatScore(t *testing.T) {
	f := newRiskFixture(t)
	f.attend.stats = repos.AttendanceStats{Total: 20, Present: 20}
	f.tests.records = []*types.TestRecord{{Score: 95, MaxScore: 100}}
	f.fees.stats = repos.FeeStats{Total: 1, Overdue: 0}
	f.chat.stats = repos.ChatStats{Total: 100, Flagged: 0}
	f.incidents.hasIncident = true

	score, err := f.service.ComputeRisk(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("ComputeRisk: %v", err)
	}
	if !almostEqual(score.ChatBehaviorScore, 1.0) {
		t.Fatalf("expected chat score 1.0, got %v", score.ChatBehaviorScore)
	}
	if !almostEqual(score.OverallScore, 0.25) {
		t.Fatalf("expected overall 0.25, got %v", score.OverallScore)
	}
}

func TestComputeRisk_EverythingFailingIsHigh(t *testing.T) {
	f := newRiskFixture(t)
	f.attend.stats = repos.AttendanceStats{Total: 20, Present: 10}
	f.tests.records = []*types.TestRecord{{Score: 30, MaxScore: 100}}
	f.fees.stats = repos.FeeStats{Total: 4, Overdue: 4}
	f.chat.stats = repos.ChatStats{Total: 10, Flagged: 5}

	score, err := f.service.ComputeRisk(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("ComputeRisk: %v", err)
	}
	if !almostEqual(score.OverallScore, 1.0) {
		t.Fatalf("expected overall 1.0, got %v", score.OverallScore)
	}
	if score.RiskLevel != types.RiskLevelHigh {
		t.Fatalf("expected high, got %q", score.RiskLevel)
	}
}

func TestComputeRisk_UnknownStudent(t *testing.T) {
	f := newRiskFixture(t)

	_, err := f.service.ComputeRisk(context.Background(), uuid.New())
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestComputeRisk_MissingProfile(t *testing.T) {
	f := newRiskFixture(t)
	orphanID := uuid.New()
	f.users.users[orphanID] = &types.User{ID: orphanID, Role: types.RoleStudent, IsActive: true}

	_, err := f.service.ComputeRisk(context.Background(), orphanID)
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRiskTables_Breakpoints(t *testing.T) {
	cases := []struct {
		rate float64
		want float64
	}{
		{1.00, 0.0},
		{0.95, 0.0},
		{0.90, 0.2},
		{0.80, 0.4},
		{0.70, 0.7},
		{0.50, 1.0},
	}
	for _, tc := range cases {
		if got := riskFromRate(tc.rate, attendanceBreakpoints); !almostEqual(got, tc.want) {
			t.Fatalf("attendance rate %v: expected %v, got %v", tc.rate, tc.want, got)
		}
	}

	ratioCases := []struct {
		ratio float64
		want  float64
	}{
		{0.0, 0.0},
		{0.1, 0.3},
		{0.2, 0.3},
		{0.4, 0.6},
		{0.9, 1.0},
	}
	for _, tc := range ratioCases {
		if got := riskFromRatio(tc.ratio, feeBreakpoints); !almostEqual(got, tc.want) {
			t.Fatalf("fee ratio %v: expected %v, got %v", tc.ratio, tc.want, got)
		}
	}
}

func TestBandForScore(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.0, types.RiskLevelLow},
		{0.39, types.RiskLevelLow},
		{0.4, types.RiskLevelMedium},
		{0.69, types.RiskLevelMedium},
		{0.7, types.RiskLevelHigh},
		{1.0, types.RiskLevelHigh},
	}
	for _, tc := range cases {
		if got := BandForScore(tc.score); got != tc.want {
			t.Fatalf("score %v: expected %q, got %q", tc.score, tc.want, got)
		}
	}
}

func TestComputeAll_CollectsPerStudentErrors(t *testing.T) {
	f := newRiskFixture(t)
	orphanID := uuid.New()
	orphan := &types.User{ID: orphanID, Role: types.RoleStudent, IsActive: true}
	f.users.users[orphanID] = orphan
	f.users.active = []*types.User{f.users.users[f.userID], orphan}

	result, err := f.service.ComputeAll(context.Background())
	if err != nil {
		t.Fatalf("ComputeAll: %v", err)
	}
	if result.TotalStudents != 2 {
		t.Fatalf("expected 2 students, got %d", result.TotalStudents)
	}
	if result.CalculatedCount != 1 {
		t.Fatalf("expected 1 calculated, got %d", result.CalculatedCount)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", result.Errors)
	}
}

func TestListScores_RejectsUnknownLevel(t *testing.T) {
	f := newRiskFixture(t)

	_, err := f.service.ListScores(context.Background(), "extreme")
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestListScores_FilterIsCaseInsensitive(t *testing.T) {
	f := newRiskFixture(t)

	for _, level := range []string{"Low", "MEDIUM", " high "} {
		if _, err := f.service.ListScores(context.Background(), level); err != nil {
			t.Fatalf("ListScores(%q): %v", level, err)
		}
	}
	if f.scores.lastLevel != "high" {
		t.Fatalf("expected normalized level %q, got %q", "high", f.scores.lastLevel)
	}
}

func TestExplanation_FactorsAndRecommendations(t *testing.T) {
	f := newRiskFixture(t)
	f.attend.stats = repos.AttendanceStats{Total: 20, Present: 10}
	f.tests.records = []*types.TestRecord{{Score: 90, MaxScore: 100}}
	f.fees.stats = repos.FeeStats{Total: 1, Overdue: 0}
	f.incidents.hasIncident = true

	out, err := f.service.Explanation(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("Explanation: %v", err)
	}
	if !almostEqual(out.ComponentScores["attendance"], 1.0) {
		t.Fatalf("expected attendance 1.0, got %v", out.ComponentScores["attendance"])
	}
	wantFactors := map[string]bool{
		"Poor attendance pattern detected":  false,
		"Concerning chat messages detected": false,
	}
	for _, factor := range out.RiskFactors {
		if _, ok := wantFactors[factor]; ok {
			wantFactors[factor] = true
		}
	}
	for factor, seen := range wantFactors {
		if !seen {
			t.Fatalf("missing factor %q in %v", factor, out.RiskFactors)
		}
	}
	foundIntervention := false
	for _, rec := range out.Recommendations {
		if rec == "Immediate counselor intervention required" {
			foundIntervention = true
		}
	}
	if !foundIntervention {
		t.Fatalf("expected counselor intervention recommendation, got %v", out.Recommendations)
	}
}

func TestDashboardSummary_CountsByLevel(t *testing.T) {
	f := newRiskFixture(t)
	f.scores.latest = []*types.RiskScore{
		{RiskLevel: types.RiskLevelHigh, OverallScore: 0.9},
		{RiskLevel: types.RiskLevelMedium, OverallScore: 0.5},
		{RiskLevel: types.RiskLevelLow, OverallScore: 0.1},
		{RiskLevel: types.RiskLevelHigh, OverallScore: 0.8},
	}

	summary, err := f.service.DashboardSummary(context.Background())
	if err != nil {
		t.Fatalf("DashboardSummary: %v", err)
	}
	if summary.TotalTracked != 4 {
		t.Fatalf("expected 4 tracked, got %d", summary.TotalTracked)
	}
	if summary.Counts[types.RiskLevelHigh] != 2 || summary.Counts[types.RiskLevelMedium] != 1 || summary.Counts[types.RiskLevelLow] != 1 {
		t.Fatalf("unexpected counts: %v", summary.Counts)
	}
	if len(summary.TopHighRisk) != 2 {
		t.Fatalf("expected 2 high risk entries, got %d", len(summary.TopHighRisk))
	}
}
