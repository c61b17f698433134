package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	pkgerrors "github.com/sharmaji2007/student-counsellor-system/internal/pkg/errors"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/repos"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

// Component weights. Must sum to 1.0.
const (
	weightAttendance      = 0.30
	weightTestPerformance = 0.25
	weightFeePayment      = 0.20
	weightChatBehavior    = 0.25
)

const (
	attendanceWindow = 30 * 24 * time.Hour
	testWindow       = 60 * 24 * time.Hour
	chatWindow       = 30 * 24 * time.Hour
)

// ratioBreakpoint maps an observed ratio to a risk contribution. Tables are
// ordered; the first matching row wins.
type ratioBreakpoint struct {
	Threshold float64
	Risk      float64
}

// Rate tables: first row whose Threshold <= rate wins (higher rate, lower risk).
var attendanceBreakpoints = []ratioBreakpoint{
	{0.95, 0.0},
	{0.85, 0.2},
	{0.75, 0.4},
	{0.60, 0.7},
}

var testBreakpoints = []ratioBreakpoint{
	{0.85, 0.0},
	{0.75, 0.2},
	{0.60, 0.4},
	{0.45, 0.7},
}

// Ratio tables: first row whose Threshold >= ratio wins (higher ratio, higher risk).
var feeBreakpoints = []ratioBreakpoint{
	{0.0, 0.0},
	{0.2, 0.3},
	{0.5, 0.6},
}

var chatBreakpoints = []ratioBreakpoint{
	{0.0, 0.0},
	{0.1, 0.4},
	{0.3, 0.7},
}

var riskBands = []struct {
	Min   float64
	Level string
}{
	{0.7, types.RiskLevelHigh},
	{0.4, types.RiskLevelMedium},
}

func riskFromRate(rate float64, table []ratioBreakpoint) float64 {
	for _, bp := range table {
		if rate >= bp.Threshold {
			return bp.Risk
		}
	}
	return 1.0
}

func riskFromRatio(ratio float64, table []ratioBreakpoint) float64 {
	for _, bp := range table {
		if ratio <= bp.Threshold {
			return bp.Risk
		}
	}
	return 1.0
}

// BandForScore maps an overall score to a risk band. Monotonic: a higher
// score never yields a lower band.
func BandForScore(overall float64) string {
	for _, band := range riskBands {
		if overall >= band.Min {
			return band.Level
		}
	}
	return types.RiskLevelLow
}

func ValidRiskLevel(level string) bool {
	switch level {
	case types.RiskLevelLow, types.RiskLevelMedium, types.RiskLevelHigh:
		return true
	}
	return false
}

type BatchRiskResult struct {
	CalculatedCount int      `json:"calculated_count"`
	TotalStudents   int      `json:"total_students"`
	Errors          []string `json:"errors"`
}

type RiskExplanation struct {
	RiskFactors     []string           `json:"risk_factors"`
	ComponentScores map[string]float64 `json:"component_scores"`
	Recommendations []string           `json:"recommendations"`
}

type RiskDashboardSummary struct {
	Counts       map[string]int     `json:"counts"`
	TopHighRisk  []*types.RiskScore `json:"top_high_risk"`
	GeneratedAt  time.Time          `json:"generated_at"`
	TotalTracked int                `json:"total_tracked"`
}

type RiskService interface {
	// ComputeRisk computes and persists a snapshot for one student user.
	ComputeRisk(ctx context.Context, userID uuid.UUID) (*types.RiskScore, error)
	// ComputeAll runs ComputeRisk for every active student. Per-student
	// failures are collected, never aborting the batch.
	ComputeAll(ctx context.Context) (*BatchRiskResult, error)
	LatestForStudent(ctx context.Context, userID uuid.UUID) (*types.RiskScore, error)
	ListScores(ctx context.Context, level string) ([]*types.RiskScore, error)
	Explanation(ctx context.Context, userID uuid.UUID) (*RiskExplanation, error)
	DashboardSummary(ctx context.Context) (*RiskDashboardSummary, error)
}

type riskService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	profileRepo  repos.StudentProfileRepo
	attendance   repos.AttendanceRepo
	tests        repos.TestRecordRepo
	fees         repos.FeeRecordRepo
	chatMessages repos.ChatMessageRepo
	incidents    repos.SafetyIncidentRepo
	scores       repos.RiskScoreRepo
	batchWorkers int
}

func NewRiskService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	profileRepo repos.StudentProfileRepo,
	attendance repos.AttendanceRepo,
	tests repos.TestRecordRepo,
	fees repos.FeeRecordRepo,
	chatMessages repos.ChatMessageRepo,
	incidents repos.SafetyIncidentRepo,
	scores repos.RiskScoreRepo,
) RiskService {
	serviceLog := baseLog.With("service", "RiskService")
	return &riskService{
		db:           db,
		log:          serviceLog,
		userRepo:     userRepo,
		profileRepo:  profileRepo,
		attendance:   attendance,
		tests:        tests,
		fees:         fees,
		chatMessages: chatMessages,
		incidents:    incidents,
		scores:       scores,
		batchWorkers: 4,
	}
}

func (rs *riskService) attendanceRisk(ctx context.Context, profileID uuid.UUID, now time.Time) (float64, error) {
	stats, err := rs.attendance.StatsSince(ctx, nil, profileID, now.Add(-attendanceWindow))
	if err != nil {
		return 0, fmt.Errorf("attendance stats: %w", err)
	}
	if stats.Total == 0 {
		return 0.5, nil
	}
	rate := float64(stats.Present) / float64(stats.Total)
	return riskFromRate(rate, attendanceBreakpoints), nil
}

func (rs *riskService) testPerformanceRisk(ctx context.Context, profileID uuid.UUID, now time.Time) (float64, error) {
	records, err := rs.tests.ListSince(ctx, nil, profileID, now.Add(-testWindow))
	if err != nil {
		return 0, fmt.Errorf("test records: %w", err)
	}
	if len(records) == 0 {
		return 0.5, nil
	}
	var sum float64
	n := 0
	for _, record := range records {
		if record.MaxScore <= 0 {
			continue
		}
		sum += record.Score / record.MaxScore
		n++
	}
	if n == 0 {
		return 0.5, nil
	}
	return riskFromRate(sum/float64(n), testBreakpoints), nil
}

func (rs *riskService) feePaymentRisk(ctx context.Context, profileID uuid.UUID, now time.Time) (float64, error) {
	stats, err := rs.fees.Stats(ctx, nil, profileID, now)
	if err != nil {
		return 0, fmt.Errorf("fee stats: %w", err)
	}
	// Absence of fee records is not risk.
	if stats.Total == 0 {
		return 0.0, nil
	}
	ratio := float64(stats.Overdue) / float64(stats.Total)
	return riskFromRatio(ratio, feeBreakpoints), nil
}

func (rs *riskService) chatBehaviorRisk(ctx context.Context, userID uuid.UUID, now time.Time) (float64, error) {
	since := now.Add(-chatWindow)
	hasIncident, err := rs.incidents.ExistsForStudentSince(ctx, nil, userID, since)
	if err != nil {
		return 0, fmt.Errorf("incident lookup: %w", err)
	}
	if hasIncident {
		return 1.0, nil
	}
	stats, err := rs.chatMessages.StatsSince(ctx, nil, userID, since)
	if err != nil {
		return 0, fmt.Errorf("chat stats: %w", err)
	}
	// Silence can indicate withdrawal.
	if stats.Total == 0 {
		return 0.3, nil
	}
	ratio := float64(stats.Flagged) / float64(stats.Total)
	return riskFromRatio(ratio, chatBreakpoints), nil
}

func (rs *riskService) componentScores(ctx context.Context, userID, profileID uuid.UUID, now time.Time) (attendance, test, fee, chat float64, err error) {
	if attendance, err = rs.attendanceRisk(ctx, profileID, now); err != nil {
		return
	}
	if test, err = rs.testPerformanceRisk(ctx, profileID, now); err != nil {
		return
	}
	if fee, err = rs.feePaymentRisk(ctx, profileID, now); err != nil {
		return
	}
	chat, err = rs.chatBehaviorRisk(ctx, userID, now)
	return
}

func (rs *riskService) ComputeRisk(ctx context.Context, userID uuid.UUID) (*types.RiskScore, error) {
	user, err := rs.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, fmt.Errorf("student %s: %w", userID, pkgerrors.ErrNotFound)
		}
		return nil, err
	}
	profile, err := rs.profileRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return nil, fmt.Errorf("no profile found for student %s: %w", user.ID, pkgerrors.ErrNotFound)
		}
		return nil, err
	}

	now := time.Now().UTC()
	attendance, test, fee, chat, err := rs.componentScores(ctx, user.ID, profile.ID, now)
	if err != nil {
		return nil, err
	}

	overall := attendance*weightAttendance +
		test*weightTestPerformance +
		fee*weightFeePayment +
		chat*weightChatBehavior

	snapshot := &types.RiskScore{
		ID:                   uuid.New(),
		StudentID:            profile.ID,
		AttendanceScore:      attendance,
		TestPerformanceScore: test,
		FeePaymentScore:      fee,
		ChatBehaviorScore:    chat,
		OverallScore:         overall,
		RiskLevel:            BandForScore(overall),
		CalculatedAt:         now,
	}
	if _, err := rs.scores.Create(ctx, nil, snapshot); err != nil {
		return nil, fmt.Errorf("persist risk snapshot: %w", err)
	}

	rs.log.Debug("Risk snapshot computed",
		"student_id", profile.ID,
		"overall", overall,
		"risk_level", snapshot.RiskLevel,
	)
	return snapshot, nil
}

func (rs *riskService) ComputeAll(ctx context.Context) (*BatchRiskResult, error) {
	students, err := rs.userRepo.ListActiveByRole(ctx, nil, types.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	result := &BatchRiskResult{
		TotalStudents: len(students),
		Errors:        []string{},
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rs.batchWorkers)
	for _, student := range students {
		student := student
		g.Go(func() error {
			_, err := rs.ComputeRisk(gctx, student.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// A failed student never aborts the batch.
				result.Errors = append(result.Errors, err.Error())
				return nil
			}
			result.CalculatedCount++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(result.Errors)
	return result, nil
}

func (rs *riskService) LatestForStudent(ctx context.Context, userID uuid.UUID) (*types.RiskScore, error) {
	profile, err := rs.profileRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	return rs.scores.GetLatestForStudent(ctx, nil, profile.ID)
}

func (rs *riskService) ListScores(ctx context.Context, level string) ([]*types.RiskScore, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level != "" && !ValidRiskLevel(level) {
		return nil, fmt.Errorf("invalid risk level. use: low, medium, or high: %w", pkgerrors.ErrInvalidArgument)
	}
	return rs.scores.ListLatest(ctx, nil, level)
}

func (rs *riskService) Explanation(ctx context.Context, userID uuid.UUID) (*RiskExplanation, error) {
	user, err := rs.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	profile, err := rs.profileRepo.GetByUserID(ctx, nil, user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	attendance, test, fee, chat, err := rs.componentScores(ctx, user.ID, profile.ID, now)
	if err != nil {
		return nil, err
	}

	var factors []string
	switch {
	case attendance >= 0.7:
		factors = append(factors, "Poor attendance pattern detected")
	case attendance >= 0.4:
		factors = append(factors, "Irregular attendance noted")
	}
	switch {
	case test >= 0.7:
		factors = append(factors, "Declining academic performance")
	case test >= 0.4:
		factors = append(factors, "Below-average test scores")
	}
	switch {
	case fee >= 0.6:
		factors = append(factors, "Multiple overdue fee payments")
	case fee >= 0.3:
		factors = append(factors, "Some overdue payments")
	}
	switch {
	case chat >= 0.7:
		factors = append(factors, "Concerning chat messages detected")
	case chat >= 0.4:
		factors = append(factors, "Some flagged communications")
	}

	return &RiskExplanation{
		RiskFactors: factors,
		ComponentScores: map[string]float64{
			"attendance":       attendance,
			"test_performance": test,
			"fee_payment":      fee,
			"chat_behavior":    chat,
		},
		Recommendations: riskRecommendations(factors),
	}, nil
}

func riskRecommendations(factors []string) []string {
	has := func(f string) bool {
		for _, candidate := range factors {
			if candidate == f {
				return true
			}
		}
		return false
	}

	var recommendations []string
	if has("Poor attendance pattern detected") {
		recommendations = append(recommendations, "Schedule meeting with student and parents about attendance")
	}
	if has("Declining academic performance") {
		recommendations = append(recommendations, "Arrange additional academic support or tutoring")
	}
	if has("Multiple overdue fee payments") {
		recommendations = append(recommendations, "Contact parents about fee payment arrangements")
	}
	if has("Concerning chat messages detected") {
		recommendations = append(recommendations, "Immediate counselor intervention required")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations, "Continue regular monitoring and support")
	}
	return recommendations
}

func (rs *riskService) DashboardSummary(ctx context.Context) (*RiskDashboardSummary, error) {
	latest, err := rs.scores.ListLatest(ctx, nil, "")
	if err != nil {
		return nil, err
	}

	summary := &RiskDashboardSummary{
		Counts: map[string]int{
			types.RiskLevelLow:    0,
			types.RiskLevelMedium: 0,
			types.RiskLevelHigh:   0,
		},
		TopHighRisk:  []*types.RiskScore{},
		GeneratedAt:  time.Now().UTC(),
		TotalTracked: len(latest),
	}
	for _, score := range latest {
		summary.Counts[score.RiskLevel]++
		if score.RiskLevel == types.RiskLevelHigh && len(summary.TopHighRisk) < 10 {
			summary.TopHighRisk = append(summary.TopHighRisk, score)
		}
	}
	return summary, nil
}
