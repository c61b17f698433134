package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/utils"
)

// NewSQLiteDB opens a file-backed sqlite database for local development
// (DB_DRIVER=sqlite). Postgres-only column defaults do not apply here, so
// callers must assign IDs before insert.
func NewSQLiteDB(logg *logger.Logger) (*gorm.DB, error) {
	path := utils.GetEnv("SQLITE_PATH", "counsellor.db", logg)
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return gdb, nil
}
