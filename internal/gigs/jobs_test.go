package gigs

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

func intPtr(v int) *int { return &v }

func validFields() JobFields {
	return JobFields{
		Title:       "Campus ambassador",
		Description: "Promote events on campus",
		JobType:     "part-time",
	}
}

func TestCreateJob_DefaultsToOpen(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)

	job, err := jobs.Create(context.Background(), 1, validFields())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.Status != JobStatusOpen {
		t.Fatalf("expected open status, got %q", job.Status)
	}
	if job.EmployerID != 1 {
		t.Fatalf("expected employer 1, got %d", job.EmployerID)
	}
}

func TestCreateJob_BudgetValidation(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)

	f := validFields()
	f.BudgetMin = intPtr(500)
	f.BudgetMax = intPtr(100)
	if _, err := jobs.Create(context.Background(), 1, f); !errors.Is(err, ErrInvalidBudget) {
		t.Fatalf("expected ErrInvalidBudget, got %v", err)
	}

	f.BudgetMin = intPtr(100)
	f.BudgetMax = intPtr(500)
	job, err := jobs.Create(context.Background(), 1, f)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if *job.BudgetMin != 100 || *job.BudgetMax != 500 {
		t.Fatalf("budget did not round-trip: min=%v max=%v", job.BudgetMin, job.BudgetMax)
	}
}

// 非归属雇主的更新不能命中任何行，职位字段保持原样。
func TestUpdateJob_OwnershipEnforced(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	ctx := context.Background()

	job, err := jobs.Create(ctx, 1, validFields())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f := validFields()
	f.Title = "Hijacked title"
	if _, err := jobs.Update(ctx, job.ID, 2, f); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	var reloaded database.Job
	if err := db.First(&reloaded, job.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Title != "Campus ambassador" {
		t.Fatalf("job was modified by a non-owner: %q", reloaded.Title)
	}

	f.Title = "Updated by owner"
	updated, err := jobs.Update(ctx, job.ID, 1, f)
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Title != "Updated by owner" {
		t.Fatalf("expected updated title, got %q", updated.Title)
	}
}

func TestUpdateJob_NotFound(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)

	if _, err := jobs.Update(context.Background(), 99, 1, validFields()); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestDeleteJob_OwnershipEnforced(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	ctx := context.Background()

	job, err := jobs.Create(ctx, 1, validFields())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := jobs.Delete(ctx, job.ID, 2); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := jobs.Delete(ctx, job.ID, 1); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := jobs.Delete(ctx, job.ID, 1); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound after delete, got %v", err)
	}
}

// 浏览职位时公司名与行业从雇主 profile 两段式合并进来。
func TestListOpen_MergesEmployerInfo(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	ctx := context.Background()

	if err := db.Create(&database.EmployerProfile{UserID: 1, CompanyName: "Acme", Industry: "Logistics"}).Error; err != nil {
		t.Fatalf("seed employer profile: %v", err)
	}
	if _, err := jobs.Create(ctx, 1, validFields()); err != nil {
		t.Fatalf("create open job: %v", err)
	}
	closed := validFields()
	closed.Title = "Closed role"
	closed.Status = JobStatusClosed
	if _, err := jobs.Create(ctx, 1, closed); err != nil {
		t.Fatalf("create closed job: %v", err)
	}

	items, err := jobs.ListOpen(ctx, OpenJobsFilter{})
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected only open jobs, got %d", len(items))
	}
	if items[0].CompanyName != "Acme" || items[0].Industry != "Logistics" {
		t.Fatalf("employer info missing: %+v", items[0])
	}
}

func TestListOpen_Filters(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	ctx := context.Background()

	first := validFields()
	first.Title = "Flyer design for orientation week"
	first.JobType = "project"
	if _, err := jobs.Create(ctx, 1, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	second := validFields()
	second.Title = "Library assistant"
	if _, err := jobs.Create(ctx, 1, second); err != nil {
		t.Fatalf("create: %v", err)
	}

	bySearch, err := jobs.ListOpen(ctx, OpenJobsFilter{Search: "FLYER"})
	if err != nil {
		t.Fatalf("list by search: %v", err)
	}
	if len(bySearch) != 1 || bySearch[0].Title != "Flyer design for orientation week" {
		t.Fatalf("search filter failed: %+v", bySearch)
	}

	byType, err := jobs.ListOpen(ctx, OpenJobsFilter{JobType: "project"})
	if err != nil {
		t.Fatalf("list by type: %v", err)
	}
	if len(byType) != 1 || byType[0].JobType != "project" {
		t.Fatalf("type filter failed: %+v", byType)
	}
}

func TestFormatBudget(t *testing.T) {
	cases := []struct {
		min, max *int
		want     string
	}{
		{intPtr(100), intPtr(500), "$100 - $500"},
		{intPtr(100), nil, "$100+"},
		{nil, intPtr(500), "Up to $500"},
		{nil, nil, "Not specified"},
	}
	for _, tc := range cases {
		if got := FormatBudget(tc.min, tc.max); got != tc.want {
			t.Fatalf("FormatBudget(%v, %v) = %q, want %q", tc.min, tc.max, got, tc.want)
		}
	}
}
