package identity

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"unigig/internal/database"
)

// Resolver 根据账号 ID 解析统一用户视图。
//
// 解析顺序是对外可观察的行为：先查学生 profile，命中即返回；
// 否则查雇主 profile。一个账号若同时持有两种 profile（数据异常），
// Resolve 始终按学生返回；该优先级由测试固定，不要调整。
type Resolver struct {
	db *gorm.DB
}

// NewResolver 构造 Resolver。
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve 查找账号的角色 profile 并组装 UnifiedUser。
// "没有 profile"（ErrProfileNotFound）与存储层错误严格区分，
// 调用方不应把二者混为一谈。
func (r *Resolver) Resolve(ctx context.Context, userID uint) (*UnifiedUser, error) {
	var user database.User
	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	var student database.StudentProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&student).Error
	switch {
	case err == nil:
		return &UnifiedUser{
			ID:          user.ID,
			Email:       user.Email,
			Role:        RoleStudent,
			DisplayName: student.FullName,
		}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("lookup student profile for user %d: %w", userID, err)
	}

	var employer database.EmployerProfile
	err = r.db.WithContext(ctx).Where("user_id = ?", userID).First(&employer).Error
	switch {
	case err == nil:
		return &UnifiedUser{
			ID:          user.ID,
			Email:       user.Email,
			Role:        RoleEmployer,
			DisplayName: employer.CompanyName,
		}, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("lookup employer profile for user %d: %w", userID, err)
	}

	return nil, ErrProfileNotFound
}

// CheckConsistency 校验账号的 profile 状态。
// 同时存在两种 profile 时返回 ErrProfileConflict；一个都没有时返回
// ErrProfileNotFound。唯一索引使正常写入路径不会产生冲突，这里只负责
// 发现历史脏数据，从不自动修复。
func (r *Resolver) CheckConsistency(ctx context.Context, userID uint) error {
	var studentCount int64
	if err := r.db.WithContext(ctx).
		Model(&database.StudentProfile{}).
		Where("user_id = ?", userID).
		Count(&studentCount).Error; err != nil {
		return fmt.Errorf("count student profiles for user %d: %w", userID, err)
	}

	var employerCount int64
	if err := r.db.WithContext(ctx).
		Model(&database.EmployerProfile{}).
		Where("user_id = ?", userID).
		Count(&employerCount).Error; err != nil {
		return fmt.Errorf("count employer profiles for user %d: %w", userID, err)
	}

	switch {
	case studentCount > 0 && employerCount > 0:
		return ErrProfileConflict
	case studentCount == 0 && employerCount == 0:
		return ErrProfileNotFound
	}
	return nil
}
