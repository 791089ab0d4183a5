package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"unigig/internal/api/middleware"
	"unigig/internal/errcode"
	"unigig/internal/gigs"
)

// ApplicationHandler 处理投递与录用决策。
type ApplicationHandler struct {
	applications *gigs.Applications
	logger       *slog.Logger
}

// NewApplicationHandler 构造投递处理器。
func NewApplicationHandler(applications *gigs.Applications, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, logger: logger}
}

type applyRequest struct {
	CoverLetter string `json:"cover_letter" binding:"max=5000"`
}

// Apply 学生投递指定职位。
func (h *ApplicationHandler) Apply(c *gin.Context) {
	studentID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	jobID, ok := h.jobIDParam(c)
	if !ok {
		return
	}

	// 求职信可以省略，空请求体视为无求职信。
	var req applyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}

	logger := h.loggerFromContext(c).With(
		slog.Uint64("student_id", uint64(studentID)),
		slog.Uint64("job_id", uint64(jobID)),
	)

	application, err := h.applications.Apply(c.Request.Context(), jobID, studentID, req.CoverLetter)
	if err != nil {
		switch {
		case errors.Is(err, gigs.ErrJobNotFound):
			NotFound(c, "job not found")
		case errors.Is(err, gigs.ErrJobClosed):
			ErrorCode(c, http.StatusConflict, errcode.Validation, "job is no longer open")
		case errors.Is(err, gigs.ErrAlreadyApplied):
			ErrorCode(c, http.StatusConflict, errcode.AlreadyApplied, "already applied to this job")
		default:
			logger.Error("apply failed", slog.Any("error", err))
			Internal(c, "internal error")
		}
		return
	}

	logger.Info("application submitted", slog.Uint64("application_id", uint64(application.ID)))
	c.JSON(http.StatusCreated, application)
}

// ListMine 返回当前学生的全部投递记录。
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	studentID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	applications, err := h.applications.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		h.loggerFromContext(c).Error("list student applications failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": applications})
}

// ListReceived 返回当前雇主名下所有职位收到的投递。
func (h *ApplicationHandler) ListReceived(c *gin.Context) {
	employerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	applications, err := h.applications.ListForEmployerJobs(c.Request.Context(), employerID)
	if err != nil {
		h.loggerFromContext(c).Error("list received applications failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": applications})
}

type decisionRequest struct {
	Status string `json:"status" binding:"required,oneof=accepted rejected"`
}

// Decide 雇主对投递作出录用或拒绝决定。
func (h *ApplicationHandler) Decide(c *gin.Context) {
	employerID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	applicationID, ok := h.applicationIDParam(c)
	if !ok {
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	logger := h.loggerFromContext(c).With(
		slog.Uint64("employer_id", uint64(employerID)),
		slog.Uint64("application_id", uint64(applicationID)),
	)

	application, err := h.applications.UpdateStatus(c.Request.Context(), applicationID, employerID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, gigs.ErrApplicationNotFound):
			NotFound(c, "application not found")
		case errors.Is(err, gigs.ErrNotOwner):
			OwnershipViolation(c)
		case errors.Is(err, gigs.ErrInvalidTransition):
			ErrorCode(c, http.StatusConflict, errcode.InvalidTransition, "application already decided")
		default:
			logger.Error("decide application failed", slog.Any("error", err))
			Internal(c, "internal error")
		}
		return
	}

	logger.Info("application decided", slog.String("status", application.Status))
	c.JSON(http.StatusOK, application)
}

func (h *ApplicationHandler) jobIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid job id")
		return 0, false
	}
	return uint(id), true
}

func (h *ApplicationHandler) applicationIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, "invalid application id")
		return 0, false
	}
	return uint(id), true
}

func (h *ApplicationHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
