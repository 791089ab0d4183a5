package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"unigig/internal/api/middleware"
	"unigig/internal/errcode"
	"unigig/internal/gigs"
)

// JobHandler 处理职位的发布、编辑与浏览。
type JobHandler struct {
	jobs   *gigs.Jobs
	logger *slog.Logger
}

// NewJobHandler 构造职位处理器。
func NewJobHandler(jobs *gigs.Jobs, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: logger}
}

type jobRequest struct {
	Title          string   `json:"title" binding:"required,min=1,max=255"`
	Description    string   `json:"description" binding:"required"`
	Requirements   string   `json:"requirements"`
	SkillsRequired []string `json:"skills_required"`
	BudgetMin      *int     `json:"budget_min" binding:"omitempty,min=0"`
	BudgetMax      *int     `json:"budget_max" binding:"omitempty,min=0"`
	Deadline       *string  `json:"deadline"`
	JobType        string   `json:"job_type" binding:"omitempty,oneof=part-time full-time project internship"`
	Status         string   `json:"status" binding:"omitempty,oneof=open closed filled"`
}

func (r jobRequest) toFields() (gigs.JobFields, error) {
	fields := gigs.JobFields{
		Title:          r.Title,
		Description:    r.Description,
		Requirements:   r.Requirements,
		SkillsRequired: r.SkillsRequired,
		BudgetMin:      r.BudgetMin,
		BudgetMax:      r.BudgetMax,
		JobType:        r.JobType,
		Status:         r.Status,
	}
	if r.Deadline != nil && *r.Deadline != "" {
		deadline, err := time.Parse(time.RFC3339, *r.Deadline)
		if err != nil {
			return gigs.JobFields{}, errors.New("deadline must be RFC3339")
		}
		fields.Deadline = &deadline
	}
	return fields, nil
}

// CreateJob 以当前雇主身份发布职位。
func (h *JobHandler) CreateJob(c *gin.Context) {
	employerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	fields, err := req.toFields()
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	logger := h.loggerFromContext(c).With(slog.Uint64("employer_id", uint64(employerID)))

	job, err := h.jobs.Create(c.Request.Context(), employerID, fields)
	if err != nil {
		if errors.Is(err, gigs.ErrInvalidBudget) {
			ErrorCode(c, http.StatusBadRequest, errcode.Validation, err.Error())
			return
		}
		logger.Error("create job failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	logger.Info("job posted", slog.Uint64("job_id", uint64(job.ID)))
	c.JSON(http.StatusCreated, job)
}

// ListOpenJobs 返回所有开放职位，支持搜索与类型过滤。
func (h *JobHandler) ListOpenJobs(c *gin.Context) {
	filter := gigs.OpenJobsFilter{
		Search:  c.Query("search"),
		JobType: c.Query("job_type"),
	}

	jobs, err := h.jobs.ListOpen(c.Request.Context(), filter)
	if err != nil {
		h.loggerFromContext(c).Error("list open jobs failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": jobs})
}

// ListMyJobs 返回当前雇主发布的全部职位。
func (h *JobHandler) ListMyJobs(c *gin.Context) {
	employerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	jobs, err := h.jobs.ListByEmployer(c.Request.Context(), employerID)
	if err != nil {
		h.loggerFromContext(c).Error("list employer jobs failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": jobs})
}

// UpdateJob 编辑职位，仅归属雇主可操作。
func (h *JobHandler) UpdateJob(c *gin.Context) {
	employerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	fields, err := req.toFields()
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	job, err := h.jobs.Update(c.Request.Context(), jobID, employerID, fields)
	if err != nil {
		h.jobMutationError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// DeleteJob 删除职位，仅归属雇主可操作。
func (h *JobHandler) DeleteJob(c *gin.Context) {
	employerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	if err := h.jobs.Delete(c.Request.Context(), jobID, employerID); err != nil {
		h.jobMutationError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

func (h *JobHandler) jobIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid job id")
		return 0, false
	}
	return uint(id), true
}

func (h *JobHandler) jobMutationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gigs.ErrJobNotFound):
		NotFound(c, "job not found")
	case errors.Is(err, gigs.ErrNotOwner):
		OwnershipViolation(c)
	case errors.Is(err, gigs.ErrInvalidBudget):
		ErrorCode(c, http.StatusBadRequest, errcode.Validation, err.Error())
	default:
		h.loggerFromContext(c).Error("job mutation failed", slog.Any("error", err))
		Internal(c, "internal error")
	}
}

func (h *JobHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
