package db

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

// The sqlite driver must be able to create every table: model tags may
// not carry Postgres-only DDL such as uuid_generate_v4() or now().
func TestAutoMigrateAll_SQLite(t *testing.T) {
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

	if err := AutoMigrateAll(gdb); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}

	user := &types.User{
		ID:       uuid.New(),
		Email:    "migrate@example.com",
		Password: "hashed",
		FullName: "Migrate Check",
		Role:     types.RoleStudent,
		IsActive: true,
	}
	if err := gdb.Create(user).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	var stored types.User
	if err := gdb.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.CreatedAt.IsZero() {
		t.Fatalf("expected created_at populated")
	}
}
