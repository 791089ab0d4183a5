// Package gigs 实现职位与投递的数据网关：所有归属校验都发生在
// 查询条件里，所有跨表拼装都集中在本包，页面层不做合并。
package gigs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"unigig/internal/database"
	"unigig/internal/metrics"
)

const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"
	JobStatusFilled = "filled"
)

var (
	// ErrJobNotFound 表示职位不存在。
	ErrJobNotFound = errors.New("job not found")
	// ErrNotOwner 表示调用方不是资源归属的雇主。
	ErrNotOwner = errors.New("caller does not own this resource")
	// ErrInvalidBudget 表示预算下限大于上限。
	ErrInvalidBudget = errors.New("budget min must not exceed budget max")
)

var jobTypes = map[string]bool{
	"part-time":  true,
	"full-time":  true,
	"project":    true,
	"internship": true,
}

var jobStatuses = map[string]bool{
	JobStatusOpen:   true,
	JobStatusClosed: true,
	JobStatusFilled: true,
}

// JobFields 描述雇主可编辑的职位字段。
type JobFields struct {
	Title          string
	Description    string
	Requirements   string
	SkillsRequired []string
	BudgetMin      *int
	BudgetMax      *int
	Deadline       *time.Time
	JobType        string
	Status         string
}

func (f JobFields) validate() error {
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Description) == "" {
		return errors.New("title and description are required")
	}
	if f.BudgetMin != nil && f.BudgetMax != nil && *f.BudgetMin > *f.BudgetMax {
		return ErrInvalidBudget
	}
	if f.JobType != "" && !jobTypes[f.JobType] {
		return fmt.Errorf("invalid job type %q", f.JobType)
	}
	if f.Status != "" && !jobStatuses[f.Status] {
		return fmt.Errorf("invalid job status %q", f.Status)
	}
	return nil
}

// Jobs 是职位网关。
type Jobs struct {
	db *gorm.DB
}

// NewJobs 构造职位网关。
func NewJobs(db *gorm.DB) *Jobs {
	return &Jobs{db: db}
}

// Create 以指定雇主身份发布职位，默认状态 open。
func (j *Jobs) Create(ctx context.Context, employerID uint, f JobFields) (*database.Job, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	status := f.Status
	if status == "" {
		status = JobStatusOpen
	}

	job := database.Job{
		EmployerID:     employerID,
		Title:          strings.TrimSpace(f.Title),
		Description:    f.Description,
		Requirements:   f.Requirements,
		SkillsRequired: f.SkillsRequired,
		BudgetMin:      f.BudgetMin,
		BudgetMax:      f.BudgetMax,
		Deadline:       f.Deadline,
		JobType:        f.JobType,
		Status:         status,
	}
	if err := j.db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	metrics.JobsPosted.Inc()
	return &job, nil
}

// Update 修改职位。归属校验在 WHERE 条件里完成：
// 非归属雇主的更新不会命中任何行。
func (j *Jobs) Update(ctx context.Context, jobID, employerID uint, f JobFields) (*database.Job, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"title":           strings.TrimSpace(f.Title),
		"description":     f.Description,
		"requirements":    f.Requirements,
		"skills_required": datatypes.JSONSlice[string](f.SkillsRequired),
		"budget_min":      f.BudgetMin,
		"budget_max":      f.BudgetMax,
		"deadline":        f.Deadline,
		"job_type":        f.JobType,
	}
	if f.Status != "" {
		updates["status"] = f.Status
	}

	res := j.db.WithContext(ctx).
		Model(&database.Job{}).
		Where("id = ? AND employer_id = ?", jobID, employerID).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update job %d: %w", jobID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, j.ownershipError(ctx, jobID)
	}

	var job database.Job
	if err := j.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		return nil, fmt.Errorf("reload job %d: %w", jobID, err)
	}
	return &job, nil
}

// Delete 删除职位，同样只在归属匹配时生效。
func (j *Jobs) Delete(ctx context.Context, jobID, employerID uint) error {
	res := j.db.WithContext(ctx).
		Where("id = ? AND employer_id = ?", jobID, employerID).
		Delete(&database.Job{})
	if res.Error != nil {
		return fmt.Errorf("delete job %d: %w", jobID, res.Error)
	}
	if res.RowsAffected == 0 {
		return j.ownershipError(ctx, jobID)
	}
	return nil
}

// ownershipError 区分"职位不存在"与"职位存在但归属他人"。
func (j *Jobs) ownershipError(ctx context.Context, jobID uint) error {
	var count int64
	if err := j.db.WithContext(ctx).
		Model(&database.Job{}).
		Where("id = ?", jobID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check job %d: %w", jobID, err)
	}
	if count == 0 {
		return ErrJobNotFound
	}
	return ErrNotOwner
}

// OpenJobsFilter 描述职位浏览的可选过滤条件。
type OpenJobsFilter struct {
	Search  string
	JobType string
}

// OpenJob 是带雇主信息的职位视图。
type OpenJob struct {
	database.Job
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry"`
}

// ListOpen 返回所有 open 状态的职位，并以两段式查询合并雇主
// 公司名与行业（存储层不做关联查询）。
func (j *Jobs) ListOpen(ctx context.Context, filter OpenJobsFilter) ([]OpenJob, error) {
	query := j.db.WithContext(ctx).
		Where("status = ?", JobStatusOpen).
		Order("created_at DESC")
	if filter.JobType != "" {
		query = query.Where("job_type = ?", filter.JobType)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var jobs []database.Job
	if err := query.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list open jobs: %w", err)
	}
	if len(jobs) == 0 {
		return []OpenJob{}, nil
	}

	employerIDs := make([]uint, 0, len(jobs))
	seen := make(map[uint]bool, len(jobs))
	for _, job := range jobs {
		if !seen[job.EmployerID] {
			seen[job.EmployerID] = true
			employerIDs = append(employerIDs, job.EmployerID)
		}
	}

	var profiles []database.EmployerProfile
	if err := j.db.WithContext(ctx).
		Where("user_id IN ?", employerIDs).
		Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("load employer profiles: %w", err)
	}
	byEmployer := make(map[uint]database.EmployerProfile, len(profiles))
	for _, p := range profiles {
		byEmployer[p.UserID] = p
	}

	result := make([]OpenJob, 0, len(jobs))
	for _, job := range jobs {
		item := OpenJob{Job: job}
		if p, ok := byEmployer[job.EmployerID]; ok {
			item.CompanyName = p.CompanyName
			item.Industry = p.Industry
		}
		result = append(result, item)
	}
	return result, nil
}

// ListByEmployer 返回指定雇主的全部职位，新发布在前。
func (j *Jobs) ListByEmployer(ctx context.Context, employerID uint) ([]database.Job, error) {
	var jobs []database.Job
	if err := j.db.WithContext(ctx).
		Where("employer_id = ?", employerID).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("list jobs for employer %d: %w", employerID, err)
	}
	return jobs, nil
}

// FormatBudget 渲染预算区间，与前端展示约定一致。
func FormatBudget(min, max *int) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("$%d - $%d", *min, *max)
	case min != nil:
		return fmt.Sprintf("$%d+", *min)
	case max != nil:
		return fmt.Sprintf("Up to $%d", *max)
	default:
		return "Not specified"
	}
}
