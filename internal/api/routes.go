package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"unigig/internal/api/middleware"
	"unigig/internal/auth"
	"unigig/internal/config"
	"unigig/internal/gigs"
	"unigig/internal/identity"
	"unigig/internal/notify"
	"unigig/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
) {
	publisher := notify.NewPublisher(redisClient)
	resolver := identity.NewResolver(db)
	identityService := identity.NewService(db, resolver, publisher)
	jobs := gigs.NewJobs(db)
	applications := gigs.NewApplications(db, publisher)

	authHandler := NewAuthHandler(
		identityService,
		resolver,
		authService,
		redisClient,
		logger,
		cfg.Auth.LoginRateLimitPerHour,
		cfg.Auth.LoginLockThreshold,
		cfg.Auth.LoginLockTTL,
		cfg.Auth.CookieDomain,
	)
	profileHandler := NewProfileHandler(db, storageClient, logger, cfg.Uploads.ClamdAddr, cfg.Uploads.MaxBytes)
	jobHandler := NewJobHandler(jobs, logger)
	applicationHandler := NewApplicationHandler(applications, logger)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.AllowedOrigins)

	authMiddleware := middleware.AuthMiddleware(authService)
	studentOnly := middleware.RequireRole(string(identity.RoleStudent))
	employerOnly := middleware.RequireRole(string(identity.RoleEmployer))

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.GET("/me", authMiddleware, authHandler.Me)
		}

		profileGroup := v1.Group("/profile")
		profileGroup.Use(authMiddleware)
		{
			profileGroup.GET("", profileHandler.GetProfile)
			profileGroup.PUT("", profileHandler.UpdateProfile)
			profileGroup.POST("/resume", studentOnly, profileHandler.UploadResume)
			profileGroup.GET("/resume-link", studentOnly, profileHandler.GetResumeLink)
		}

		jobGroup := v1.Group("/jobs")
		{
			jobGroup.GET("", jobHandler.ListOpenJobs)
			jobGroup.POST("", authMiddleware, employerOnly, jobHandler.CreateJob)
			jobGroup.GET("/mine", authMiddleware, employerOnly, jobHandler.ListMyJobs)
			jobGroup.PUT("/:id", authMiddleware, employerOnly, jobHandler.UpdateJob)
			jobGroup.DELETE("/:id", authMiddleware, employerOnly, jobHandler.DeleteJob)
			jobGroup.POST("/:id/apply", authMiddleware, studentOnly, applicationHandler.Apply)
		}

		applicationGroup := v1.Group("/applications")
		applicationGroup.Use(authMiddleware)
		{
			applicationGroup.GET("/mine", studentOnly, applicationHandler.ListMine)
			applicationGroup.GET("/review", employerOnly, applicationHandler.ListReceived)
			applicationGroup.PATCH("/:id/status", employerOnly, applicationHandler.Decide)
		}
	}
}
