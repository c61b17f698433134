package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

// AttendanceStats is the aggregate the risk engine reads for one student.
type AttendanceStats struct {
	Total   int64
	Present int64
}

type AttendanceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.AttendanceRecord) (*types.AttendanceRecord, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, limit int) ([]*types.AttendanceRecord, error)
	StatsSince(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, since time.Time) (*AttendanceStats, error)
}

type attendanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttendanceRepo(db *gorm.DB, baseLog *logger.Logger) AttendanceRepo {
	repoLog := baseLog.With("repo", "AttendanceRepo")
	return &attendanceRepo{db: db, log: repoLog}
}

func (ar *attendanceRepo) Create(ctx context.Context, tx *gorm.DB, record *types.AttendanceRecord) (*types.AttendanceRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (ar *attendanceRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, limit int) ([]*types.AttendanceRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var results []*types.AttendanceRecord
	q := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("date desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *attendanceRepo) StatsSince(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, since time.Time) (*AttendanceStats, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	stats := &AttendanceStats{}
	if err := transaction.WithContext(ctx).
		Model(&types.AttendanceRecord{}).
		Where("student_id = ? AND date >= ?", studentID, since).
		Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).
		Model(&types.AttendanceRecord{}).
		Where("student_id = ? AND date >= ? AND present = ?", studentID, since, true).
		Count(&stats.Present).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

type TestRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.TestRecord) (*types.TestRecord, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, limit int) ([]*types.TestRecord, error)
	ListSince(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, since time.Time) ([]*types.TestRecord, error)
}

type testRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTestRecordRepo(db *gorm.DB, baseLog *logger.Logger) TestRecordRepo {
	repoLog := baseLog.With("repo", "TestRecordRepo")
	return &testRecordRepo{db: db, log: repoLog}
}

func (tr *testRecordRepo) Create(ctx context.Context, tx *gorm.DB, record *types.TestRecord) (*types.TestRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (tr *testRecordRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, limit int) ([]*types.TestRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var results []*types.TestRecord
	q := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("test_date desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *testRecordRepo) ListSince(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, since time.Time) ([]*types.TestRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}
	var results []*types.TestRecord
	if err := transaction.WithContext(ctx).
		Where("student_id = ? AND test_date >= ?", studentID, since).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// FeeStats counts all fee rows and the overdue subset (unpaid, past due).
type FeeStats struct {
	Total   int64
	Overdue int64
}

type FeeRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.FeeRecord) (*types.FeeRecord, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.FeeRecord, error)
	ListPending(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.FeeRecord, error)
	Stats(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, now time.Time) (*FeeStats, error)
}

type feeRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeeRecordRepo(db *gorm.DB, baseLog *logger.Logger) FeeRecordRepo {
	repoLog := baseLog.With("repo", "FeeRecordRepo")
	return &feeRecordRepo{db: db, log: repoLog}
}

func (fr *feeRecordRepo) Create(ctx context.Context, tx *gorm.DB, record *types.FeeRecord) (*types.FeeRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (fr *feeRecordRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.FeeRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var results []*types.FeeRecord
	if err := transaction.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("due_date asc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (fr *feeRecordRepo) ListPending(ctx context.Context, tx *gorm.DB, studentID uuid.UUID) ([]*types.FeeRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var results []*types.FeeRecord
	if err := transaction.WithContext(ctx).
		Where("student_id = ? AND is_paid = ?", studentID, false).
		Order("due_date asc").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (fr *feeRecordRepo) Stats(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, now time.Time) (*FeeStats, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	stats := &FeeStats{}
	if err := transaction.WithContext(ctx).
		Model(&types.FeeRecord{}).
		Where("student_id = ?", studentID).
		Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := transaction.WithContext(ctx).
		Model(&types.FeeRecord{}).
		Where("student_id = ? AND is_paid = ? AND due_date < ?", studentID, false, now).
		Count(&stats.Overdue).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
