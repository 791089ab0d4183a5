package gigs

import (
	"context"
	"errors"
	"testing"

	"unigig/internal/database"
	"unigig/internal/notify"
)

type fakeNotifier struct {
	published []struct {
		UserID  uint
		Message any
	}
}

func (f *fakeNotifier) Publish(_ context.Context, userID uint, message any) error {
	f.published = append(f.published, struct {
		UserID  uint
		Message any
	}{userID, message})
	return nil
}

func TestApply(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	applications := NewApplications(db, nil)
	ctx := context.Background()

	job, err := jobs.Create(ctx, 1, validFields())
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	app, err := applications.Apply(ctx, job.ID, 10, "I am very interested")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if app.Status != ApplicationStatusPending {
		t.Fatalf("expected pending status, got %q", app.Status)
	}
	if app.AppliedAt.IsZero() {
		t.Fatal("expected applied_at to be set")
	}
}

func TestApply_Duplicate(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	applications := NewApplications(db, nil)
	ctx := context.Background()

	job, err := jobs.Create(ctx, 1, validFields())
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := applications.Apply(ctx, job.ID, 10, "first"); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	if _, err := applications.Apply(ctx, job.ID, 10, "second"); !errors.Is(err, ErrAlreadyApplied) {
		t.Fatalf("expected ErrAlreadyApplied, got %v", err)
	}

	var count int64
	if err := db.Model(&database.JobApplication{}).
		Where("job_id = ? AND student_id = ?", job.ID, 10).
		Count(&count).Error; err != nil {
		t.Fatalf("count applications: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one application row, got %d", count)
	}

	// 同一个学生可以投递其他职位。
	other, err := jobs.Create(ctx, 1, validFields())
	if err != nil {
		t.Fatalf("create other job: %v", err)
	}
	if _, err := applications.Apply(ctx, other.ID, 10, ""); err != nil {
		t.Fatalf("apply to other job: %v", err)
	}
}

func TestApply_ClosedJob(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	applications := NewApplications(db, nil)
	ctx := context.Background()

	f := validFields()
	f.Status = JobStatusClosed
	job, err := jobs.Create(ctx, 1, f)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	if _, err := applications.Apply(ctx, job.ID, 10, ""); !errors.Is(err, ErrJobClosed) {
		t.Fatalf("expected ErrJobClosed, got %v", err)
	}
	if _, err := applications.Apply(ctx, 999, 10, ""); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestListByStudent_MergesJobInfo(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	applications := NewApplications(db, nil)
	ctx := context.Background()

	if err := db.Create(&database.EmployerProfile{UserID: 1, CompanyName: "Acme"}).Error; err != nil {
		t.Fatalf("seed employer profile: %v", err)
	}
	f := validFields()
	f.BudgetMin = intPtr(100)
	f.BudgetMax = intPtr(500)
	job, err := jobs.Create(ctx, 1, f)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := applications.Apply(ctx, job.ID, 10, "hi"); err != nil {
		t.Fatalf("apply: %v", err)
	}

	items, err := applications.ListByStudent(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one application, got %d", len(items))
	}
	got := items[0]
	if got.JobTitle != "Campus ambassador" || got.CompanyName != "Acme" {
		t.Fatalf("job info missing: %+v", got)
	}
	if got.BudgetMin == nil || *got.BudgetMin != 100 {
		t.Fatalf("budget missing: %+v", got)
	}
}

func TestListForEmployerJobs_MergesStudentInfo(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	applications := NewApplications(db, nil)
	ctx := context.Background()

	if err := db.Create(&database.StudentProfile{
		UserID:     10,
		FullName:   "Alice Zhang",
		University: "State University",
		Major:      "Computer Science",
	}).Error; err != nil {
		t.Fatalf("seed student profile: %v", err)
	}
	job, err := jobs.Create(ctx, 1, validFields())
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if _, err := applications.Apply(ctx, job.ID, 10, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}

	items, err := applications.ListForEmployerJobs(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one application, got %d", len(items))
	}
	got := items[0]
	if got.StudentName != "Alice Zhang" || got.StudentUniversity != "State University" {
		t.Fatalf("student info missing: %+v", got)
	}

	// 其他雇主看不到这些投递。
	other, err := applications.ListForEmployerJobs(ctx, 2)
	if err != nil {
		t.Fatalf("list for other employer: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no applications for other employer, got %d", len(other))
	}
}

func TestUpdateStatus_OwnershipEnforced(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	applications := NewApplications(db, nil)
	ctx := context.Background()

	job, err := jobs.Create(ctx, 1, validFields())
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	app, err := applications.Apply(ctx, job.ID, 10, "")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if _, err := applications.UpdateStatus(ctx, app.ID, 2, ApplicationStatusAccepted); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	var reloaded database.JobApplication
	if err := db.First(&reloaded, app.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != ApplicationStatusPending {
		t.Fatalf("status changed by non-owner: %q", reloaded.Status)
	}
}

// accepted/rejected 是终态，没有回到 pending 的路径。
func TestUpdateStatus_StateMachine(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobs(db)
	notifier := &fakeNotifier{}
	applications := NewApplications(db, notifier)
	ctx := context.Background()

	job, err := jobs.Create(ctx, 1, validFields())
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	app, err := applications.Apply(ctx, job.ID, 10, "")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	updated, err := applications.UpdateStatus(ctx, app.ID, 1, ApplicationStatusAccepted)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if updated.Status != ApplicationStatusAccepted {
		t.Fatalf("expected accepted, got %q", updated.Status)
	}

	if _, err := applications.UpdateStatus(ctx, app.ID, 1, ApplicationStatusRejected); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from accepted, got %v", err)
	}
	if _, err := applications.UpdateStatus(ctx, app.ID, 1, ApplicationStatusPending); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition back to pending, got %v", err)
	}

	if len(notifier.published) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.published))
	}
	if notifier.published[0].UserID != 10 {
		t.Fatalf("notification must target the student, got user %d", notifier.published[0].UserID)
	}
	event, ok := notifier.published[0].Message.(notify.ApplicationStatusEvent)
	if !ok {
		t.Fatalf("expected ApplicationStatusEvent, got %T", notifier.published[0].Message)
	}
	if event.Status != ApplicationStatusAccepted || event.JobID != job.ID {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	db := newTestDB(t)
	applications := NewApplications(db, nil)

	if _, err := applications.UpdateStatus(context.Background(), 99, 1, ApplicationStatusAccepted); !errors.Is(err, ErrApplicationNotFound) {
		t.Fatalf("expected ErrApplicationNotFound, got %v", err)
	}
}
