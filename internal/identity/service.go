package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"unigig/internal/auth"
	"unigig/internal/database"
	"unigig/internal/notify"
)

// Notifier 发布面向单个用户的事件（会话变更等）。
type Notifier interface {
	Publish(ctx context.Context, userID uint, message any) error
}

// Service 实现注册与登录：账号行与角色 profile 行的创建在同一个
// 数据库事务内完成，profile 写入失败时账号不会被留下。
type Service struct {
	db       *gorm.DB
	resolver *Resolver
	notifier Notifier
}

// NewService 构造身份服务。notifier 可为 nil（例如测试中）。
func NewService(db *gorm.DB, resolver *Resolver, notifier Notifier) *Service {
	return &Service{db: db, resolver: resolver, notifier: notifier}
}

// SignUpInput 描述注册参数。DisplayName 对学生是姓名，对雇主是公司名。
type SignUpInput struct {
	Email       string
	Password    string
	Role        Role
	DisplayName string
}

// SignUp 创建账号与对应角色的 profile，并返回统一用户视图。
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*UnifiedUser, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	displayName := strings.TrimSpace(in.DisplayName)

	if email == "" || in.Password == "" || displayName == "" {
		return nil, errors.New("email, password and display name are required")
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("invalid role %q", in.Role)
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := database.User{
		Email:        email,
		PasswordHash: hashed,
		UserType:     string(in.Role),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing database.User
		if err := tx.Where("email = ?", email).First(&existing).Error; err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup email: %w", err)
		}

		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		switch in.Role {
		case RoleStudent:
			profile := database.StudentProfile{UserID: user.ID, FullName: displayName}
			if err := tx.Create(&profile).Error; err != nil {
				return fmt.Errorf("create student profile: %w", err)
			}
		case RoleEmployer:
			profile := database.EmployerProfile{UserID: user.ID, CompanyName: displayName}
			if err := tx.Create(&profile).Error; err != nil {
				return fmt.Errorf("create employer profile: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	unified := &UnifiedUser{
		ID:          user.ID,
		Email:       email,
		Role:        in.Role,
		DisplayName: displayName,
	}
	s.publishSession(ctx, unified, notify.SessionSignedIn)
	return unified, nil
}

// SignIn 校验口令并解析角色，返回统一用户视图。
// 口令错误与账号不存在统一返回 ErrInvalidCredentials；
// 认证通过但没有 profile 时返回 ErrProfileNotFound。
func (s *Service) SignIn(ctx context.Context, email, password string) (*UnifiedUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user database.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	unified, err := s.resolver.Resolve(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.publishSession(ctx, unified, notify.SessionSignedIn)
	return unified, nil
}

// SignOut 发布登出事件。令牌吊销由 HTTP 层处理。
func (s *Service) SignOut(ctx context.Context, user *UnifiedUser) {
	s.publishSession(ctx, user, notify.SessionSignedOut)
}

func (s *Service) publishSession(ctx context.Context, user *UnifiedUser, event string) {
	if s.notifier == nil || user == nil {
		return
	}
	msg := notify.SessionEvent{
		Type:       "session",
		Event:      event,
		UserID:     user.ID,
		Role:       string(user.Role),
		OccurredAt: time.Now().UTC(),
	}
	// 通知失败不影响主流程。
	_ = s.notifier.Publish(ctx, user.ID, msg)
}
