package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"unigig/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) database.User {
	t.Helper()
	user := database.User{Email: email, PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestResolve_StudentProfile(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "alice@uni.edu")
	if err := db.Create(&database.StudentProfile{UserID: user.ID, FullName: "Alice Zhang"}).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	resolver := NewResolver(db)
	unified, err := resolver.Resolve(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if unified.Role != RoleStudent {
		t.Fatalf("expected student role, got %s", unified.Role)
	}
	if unified.DisplayName != "Alice Zhang" {
		t.Fatalf("expected display name from profile, got %q", unified.DisplayName)
	}
	if unified.Email != "alice@uni.edu" {
		t.Fatalf("expected email from account row, got %q", unified.Email)
	}
}

func TestResolve_EmployerProfile(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "hr@acme.com")
	if err := db.Create(&database.EmployerProfile{UserID: user.ID, CompanyName: "Acme"}).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	resolver := NewResolver(db)
	unified, err := resolver.Resolve(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if unified.Role != RoleEmployer {
		t.Fatalf("expected employer role, got %s", unified.Role)
	}
	if unified.DisplayName != "Acme" {
		t.Fatalf("expected company name as display name, got %q", unified.DisplayName)
	}
}

func TestResolve_NoProfile(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "ghost@uni.edu")

	resolver := NewResolver(db)
	if _, err := resolver.Resolve(context.Background(), user.ID); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestResolve_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)
	if _, err := resolver.Resolve(context.Background(), 42); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

// 一个账号同时持有两种 profile 属于数据异常，解析结果固定为学生。
func TestResolve_BothProfilesStudentWins(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "dual@uni.edu")
	if err := db.Create(&database.StudentProfile{UserID: user.ID, FullName: "Dual Person"}).Error; err != nil {
		t.Fatalf("seed student profile: %v", err)
	}
	if err := db.Create(&database.EmployerProfile{UserID: user.ID, CompanyName: "Dual Corp"}).Error; err != nil {
		t.Fatalf("seed employer profile: %v", err)
	}

	resolver := NewResolver(db)
	unified, err := resolver.Resolve(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if unified.Role != RoleStudent {
		t.Fatalf("student profile must win, got role %s", unified.Role)
	}
	if unified.DisplayName != "Dual Person" {
		t.Fatalf("expected student display name, got %q", unified.DisplayName)
	}
}

func TestCheckConsistency(t *testing.T) {
	db := newTestDB(t)
	resolver := NewResolver(db)
	ctx := context.Background()

	clean := seedUser(t, db, "clean@uni.edu")
	if err := db.Create(&database.StudentProfile{UserID: clean.ID, FullName: "Clean"}).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	if err := resolver.CheckConsistency(ctx, clean.ID); err != nil {
		t.Fatalf("expected clean account to pass, got %v", err)
	}

	orphan := seedUser(t, db, "orphan@uni.edu")
	if err := resolver.CheckConsistency(ctx, orphan.ID); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	dual := seedUser(t, db, "dual@corp.com")
	if err := db.Create(&database.StudentProfile{UserID: dual.ID, FullName: "Dual"}).Error; err != nil {
		t.Fatalf("seed student profile: %v", err)
	}
	if err := db.Create(&database.EmployerProfile{UserID: dual.ID, CompanyName: "Dual Corp"}).Error; err != nil {
		t.Fatalf("seed employer profile: %v", err)
	}
	if err := resolver.CheckConsistency(ctx, dual.ID); !errors.Is(err, ErrProfileConflict) {
		t.Fatalf("expected ErrProfileConflict, got %v", err)
	}
}
