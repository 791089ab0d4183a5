package gigs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"unigig/internal/database"
	"unigig/internal/metrics"
	"unigig/internal/notify"
)

const (
	ApplicationStatusPending  = "pending"
	ApplicationStatusAccepted = "accepted"
	ApplicationStatusRejected = "rejected"
)

var (
	// ErrAlreadyApplied 表示该学生已投递过该职位。
	ErrAlreadyApplied = errors.New("already applied to this job")
	// ErrJobClosed 表示职位已不接受投递。
	ErrJobClosed = errors.New("job is not open for applications")
	// ErrApplicationNotFound 表示投递记录不存在。
	ErrApplicationNotFound = errors.New("application not found")
	// ErrInvalidTransition 表示不允许的状态流转。
	// pending 只能流向 accepted 或 rejected，二者均为终态。
	ErrInvalidTransition = errors.New("invalid application status transition")
)

// Notifier 发布面向单个用户的事件。
type Notifier interface {
	Publish(ctx context.Context, userID uint, message any) error
}

// Applications 是投递网关。
type Applications struct {
	db       *gorm.DB
	notifier Notifier
}

// NewApplications 构造投递网关。notifier 可为 nil。
func NewApplications(db *gorm.DB, notifier Notifier) *Applications {
	return &Applications{db: db, notifier: notifier}
}

// Apply 以学生身份投递职位。重复投递返回 ErrAlreadyApplied：
// 先做存在性检查给出友好错误，(job_id, student_id) 唯一索引
// 兜底并发下的竞态。
func (a *Applications) Apply(ctx context.Context, jobID, studentID uint, coverLetter string) (*database.JobApplication, error) {
	var job database.Job
	if err := a.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("load job %d: %w", jobID, err)
	}
	if job.Status != JobStatusOpen {
		return nil, ErrJobClosed
	}

	var existing database.JobApplication
	err := a.db.WithContext(ctx).
		Where("job_id = ? AND student_id = ?", jobID, studentID).
		First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyApplied
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check existing application: %w", err)
	}

	app := database.JobApplication{
		JobID:       jobID,
		StudentID:   studentID,
		CoverLetter: coverLetter,
		Status:      ApplicationStatusPending,
		AppliedAt:   time.Now().UTC(),
	}
	if err := a.db.WithContext(ctx).Create(&app).Error; err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	metrics.ApplicationsSubmitted.Inc()
	return &app, nil
}

// StudentApplication 是学生视角的投递视图，带职位与雇主信息。
type StudentApplication struct {
	database.JobApplication
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description"`
	JobType        string `json:"job_type"`
	BudgetMin      *int   `json:"budget_min"`
	BudgetMax      *int   `json:"budget_max"`
	CompanyName    string `json:"company_name"`
}

// ListByStudent 返回学生的全部投递，最近投递在前。
// 职位与雇主信息通过两段式查询在本层合并。
func (a *Applications) ListByStudent(ctx context.Context, studentID uint) ([]StudentApplication, error) {
	var apps []database.JobApplication
	if err := a.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("applied_at DESC").
		Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("list applications for student %d: %w", studentID, err)
	}
	if len(apps) == 0 {
		return []StudentApplication{}, nil
	}

	jobIDs := make([]uint, 0, len(apps))
	for _, app := range apps {
		jobIDs = append(jobIDs, app.JobID)
	}
	var jobs []database.Job
	if err := a.db.WithContext(ctx).Where("id IN ?", jobIDs).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	jobByID := make(map[uint]database.Job, len(jobs))
	employerIDs := make([]uint, 0, len(jobs))
	for _, job := range jobs {
		jobByID[job.ID] = job
		employerIDs = append(employerIDs, job.EmployerID)
	}

	var profiles []database.EmployerProfile
	if err := a.db.WithContext(ctx).
		Where("user_id IN ?", employerIDs).
		Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("load employer profiles: %w", err)
	}
	companyByEmployer := make(map[uint]string, len(profiles))
	for _, p := range profiles {
		companyByEmployer[p.UserID] = p.CompanyName
	}

	result := make([]StudentApplication, 0, len(apps))
	for _, app := range apps {
		item := StudentApplication{JobApplication: app}
		if job, ok := jobByID[app.JobID]; ok {
			item.JobTitle = job.Title
			item.JobDescription = job.Description
			item.JobType = job.JobType
			item.BudgetMin = job.BudgetMin
			item.BudgetMax = job.BudgetMax
			item.CompanyName = companyByEmployer[job.EmployerID]
		}
		result = append(result, item)
	}
	return result, nil
}

// EmployerApplication 是雇主视角的投递视图，带投递学生的信息。
type EmployerApplication struct {
	database.JobApplication
	JobTitle          string `json:"job_title"`
	StudentName       string `json:"student_name"`
	StudentUniversity string `json:"student_university"`
	StudentMajor      string `json:"student_major"`
}

// ListForEmployerJobs 返回雇主全部职位收到的投递，最近投递在前。
func (a *Applications) ListForEmployerJobs(ctx context.Context, employerID uint) ([]EmployerApplication, error) {
	var jobs []database.Job
	if err := a.db.WithContext(ctx).
		Where("employer_id = ?", employerID).
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs for employer %d: %w", employerID, err)
	}
	if len(jobs) == 0 {
		return []EmployerApplication{}, nil
	}

	jobIDs := make([]uint, 0, len(jobs))
	titleByJob := make(map[uint]string, len(jobs))
	for _, job := range jobs {
		jobIDs = append(jobIDs, job.ID)
		titleByJob[job.ID] = job.Title
	}

	var apps []database.JobApplication
	if err := a.db.WithContext(ctx).
		Where("job_id IN ?", jobIDs).
		Order("applied_at DESC").
		Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	if len(apps) == 0 {
		return []EmployerApplication{}, nil
	}

	studentIDs := make([]uint, 0, len(apps))
	seen := make(map[uint]bool, len(apps))
	for _, app := range apps {
		if !seen[app.StudentID] {
			seen[app.StudentID] = true
			studentIDs = append(studentIDs, app.StudentID)
		}
	}
	var profiles []database.StudentProfile
	if err := a.db.WithContext(ctx).
		Where("user_id IN ?", studentIDs).
		Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("load student profiles: %w", err)
	}
	profileByStudent := make(map[uint]database.StudentProfile, len(profiles))
	for _, p := range profiles {
		profileByStudent[p.UserID] = p
	}

	result := make([]EmployerApplication, 0, len(apps))
	for _, app := range apps {
		item := EmployerApplication{
			JobApplication: app,
			JobTitle:       titleByJob[app.JobID],
		}
		if p, ok := profileByStudent[app.StudentID]; ok {
			item.StudentName = p.FullName
			item.StudentUniversity = p.University
			item.StudentMajor = p.Major
		}
		result = append(result, item)
	}
	return result, nil
}

// UpdateStatus 由职位归属雇主变更投递状态。
// 非归属雇主返回 ErrNotOwner 且状态保持不变。
func (a *Applications) UpdateStatus(ctx context.Context, applicationID, employerID uint, newStatus string) (*database.JobApplication, error) {
	var app database.JobApplication
	if err := a.db.WithContext(ctx).First(&app, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("load application %d: %w", applicationID, err)
	}

	var job database.Job
	if err := a.db.WithContext(ctx).First(&job, app.JobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("load job %d: %w", app.JobID, err)
	}
	if job.EmployerID != employerID {
		return nil, ErrNotOwner
	}

	if !allowedTransition(app.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	if err := a.db.WithContext(ctx).
		Model(&app).
		Update("status", newStatus).Error; err != nil {
		return nil, fmt.Errorf("update application %d status: %w", applicationID, err)
	}
	app.Status = newStatus

	metrics.ApplicationsDecided.WithLabelValues(newStatus).Inc()
	if a.notifier != nil {
		event := notify.ApplicationStatusEvent{
			Type:          "application_status",
			ApplicationID: app.ID,
			JobID:         job.ID,
			JobTitle:      job.Title,
			Status:        newStatus,
		}
		// 通知失败不影响主流程。
		_ = a.notifier.Publish(ctx, app.StudentID, event)
	}
	return &app, nil
}

// allowedTransition 实现投递状态机：pending 为初态，
// accepted/rejected 为终态，没有回到 pending 的路径。
func allowedTransition(from, to string) bool {
	if from != ApplicationStatusPending {
		return false
	}
	return to == ApplicationStatusAccepted || to == ApplicationStatusRejected
}
