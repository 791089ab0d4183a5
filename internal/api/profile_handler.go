package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"unigig/internal/api/middleware"
	"unigig/internal/database"
	"unigig/internal/identity"
)

// ResumeStore 抽象简历对象操作，生产实现为 storage.Client。
type ResumeStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// ProfileHandler 处理学生/雇主资料的读写与简历上传。
type ProfileHandler struct {
	db        *gorm.DB
	storage   ResumeStore
	logger    *slog.Logger
	clamdAddr string
	maxBytes  int64
}

// NewProfileHandler 构造资料处理器。
func NewProfileHandler(db *gorm.DB, store ResumeStore, logger *slog.Logger, clamdAddr string, maxBytes int64) *ProfileHandler {
	return &ProfileHandler{
		db:        db,
		storage:   store,
		logger:    logger,
		clamdAddr: clamdAddr,
		maxBytes:  maxBytes,
	}
}

// GetProfile 按角色返回当前用户的 profile。
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	role, ok := roleFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()

	switch role {
	case identity.RoleStudent:
		var profile database.StudentProfile
		if err := h.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
			h.profileLookupError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	case identity.RoleEmployer:
		var profile database.EmployerProfile
		if err := h.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
			h.profileLookupError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

type updateStudentProfileRequest struct {
	FullName    string   `json:"full_name" binding:"required,min=1,max=255"`
	Bio         string   `json:"bio"`
	Phone       string   `json:"phone" binding:"max=32"`
	University  string   `json:"university" binding:"max=255"`
	Major       string   `json:"major" binding:"max=255"`
	YearOfStudy int      `json:"year_of_study" binding:"min=0,max=10"`
	Skills      []string `json:"skills"`
}

type updateEmployerProfileRequest struct {
	CompanyName        string `json:"company_name" binding:"required,min=1,max=255"`
	CompanyDescription string `json:"company_description"`
	Website            string `json:"website" binding:"max=512"`
	Industry           string `json:"industry" binding:"max=255"`
	ContactPerson      string `json:"contact_person" binding:"max=255"`
	Phone              string `json:"phone" binding:"max=32"`
}

// UpdateProfile 按角色更新当前用户的 profile。
// 并发编辑是后写覆盖，不做乐观锁。
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	role, ok := roleFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := h.loggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	switch role {
	case identity.RoleStudent:
		var req updateStudentProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
		res := h.db.WithContext(ctx).
			Model(&database.StudentProfile{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"full_name":     req.FullName,
				"bio":           req.Bio,
				"phone":         req.Phone,
				"university":    req.University,
				"major":         req.Major,
				"year_of_study": req.YearOfStudy,
				"skills":        datatypes.JSONSlice[string](req.Skills),
			})
		if res.Error != nil {
			logger.Error("update student profile failed", slog.Any("error", res.Error))
			Internal(c, "internal error")
			return
		}
		if res.RowsAffected == 0 {
			NotFound(c, "profile not found")
			return
		}
	case identity.RoleEmployer:
		var req updateEmployerProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
		res := h.db.WithContext(ctx).
			Model(&database.EmployerProfile{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"company_name":        req.CompanyName,
				"company_description": req.CompanyDescription,
				"website":             req.Website,
				"industry":            req.Industry,
				"contact_person":      req.ContactPerson,
				"phone":               req.Phone,
			})
		if res.Error != nil {
			logger.Error("update employer profile failed", slog.Any("error", res.Error))
			Internal(c, "internal error")
			return
		}
		if res.RowsAffected == 0 {
			NotFound(c, "profile not found")
			return
		}
	}

	c.Status(http.StatusOK)
}

// UploadResume 上传学生简历：先病毒扫描，再写入对象存储，
// 最后把对象 Key 记到 profile 上（同名覆盖旧简历）。
func (h *ProfileHandler) UploadResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	logger := h.loggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if h.maxBytes > 0 && file.Size > h.maxBytes {
		BadRequest(c, "file too large")
		return
	}

	if h.clamdAddr != "" {
		fileReader, err := file.Open()
		if err != nil {
			Internal(c, "failed to open file")
			return
		}

		clamdClient := clamd.NewClamd(h.clamdAddr)
		abortChan := make(chan bool)
		scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
		fileReader.Close()
		if err != nil {
			logger.Error("scan file", slog.String("error", err.Error()))
			Internal(c, "failed to scan file")
			return
		}
		defer close(abortChan)

		for result := range scanChan {
			if result.Status != clamd.RES_OK {
				BadRequest(c, "malicious file detected")
				return
			}
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to reopen file")
		return
	}
	defer fileReader.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objectKey := fmt.Sprintf("resumes/%d/%s.pdf", userID, uuid.NewString())

	ctx := c.Request.Context()
	if _, err := h.storage.UploadFile(ctx, objectKey, fileReader, file.Size, contentType); err != nil {
		logger.Error("upload resume", slog.String("error", err.Error()))
		Internal(c, "failed to upload file")
		return
	}

	var profile database.StudentProfile
	if err := h.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		h.profileLookupError(c, err)
		return
	}
	oldKey := profile.ResumeKey

	if err := h.db.WithContext(ctx).
		Model(&profile).
		Update("resume_key", objectKey).Error; err != nil {
		logger.Error("record resume key", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if oldKey != "" && oldKey != objectKey {
		if err := h.storage.DeleteObject(ctx, oldKey); err != nil {
			logger.Error("delete old resume", slog.String("objectKey", oldKey), slog.Any("error", err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{"objectKey": objectKey})
}

// GetResumeLink 返回当前学生简历的限时下载链接。
func (h *ProfileHandler) GetResumeLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()

	var profile database.StudentProfile
	if err := h.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		h.profileLookupError(c, err)
		return
	}
	if profile.ResumeKey == "" {
		NotFound(c, "no resume uploaded")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(ctx, profile.ResumeKey, 15*time.Minute)
	if err != nil {
		h.loggerFromContext(c).Error("generate presigned url", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

func (h *ProfileHandler) profileLookupError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		NotFound(c, "profile not found")
		return
	}
	h.loggerFromContext(c).Error("profile lookup failed", slog.Any("error", err))
	Internal(c, "internal error")
}

func (h *ProfileHandler) loggerFromContext(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
