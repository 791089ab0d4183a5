package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。UserType 记录注册时声明的角色；
// 角色解析以 profile 行为准（见 identity 包）。
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;size:255"`
	PasswordHash string `gorm:"size:255"`
	UserType     string `gorm:"size:16"`
}

// StudentProfile 与 User 一对一，user_id 上有唯一索引。
type StudentProfile struct {
	gorm.Model
	UserID      uint                        `gorm:"uniqueIndex"`
	FullName    string                      `gorm:"size:255"`
	Bio         string                      `gorm:"type:text"`
	Phone       string                      `gorm:"size:32"`
	University  string                      `gorm:"size:255"`
	Major       string                      `gorm:"size:255"`
	YearOfStudy int                         `gorm:"default:0"`
	Skills      datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	ResumeKey   string                      `gorm:"size:512"`
}

// EmployerProfile 与 User 一对一，user_id 上有唯一索引。
type EmployerProfile struct {
	gorm.Model
	UserID             uint   `gorm:"uniqueIndex"`
	CompanyName        string `gorm:"size:255"`
	CompanyDescription string `gorm:"type:text"`
	Website            string `gorm:"size:512"`
	Industry           string `gorm:"size:255"`
	ContactPerson      string `gorm:"size:255"`
	Phone              string `gorm:"size:32"`
}

// Job 由一个雇主发布。Deadline 仅作展示，不触发任何自动状态流转。
type Job struct {
	gorm.Model
	EmployerID     uint                        `gorm:"index"`
	Title          string                      `gorm:"size:255"`
	Description    string                      `gorm:"type:text"`
	Requirements   string                      `gorm:"type:text"`
	SkillsRequired datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	BudgetMin      *int
	BudgetMax      *int
	Deadline       *time.Time
	JobType        string `gorm:"size:32"`
	Status         string `gorm:"size:32;index"`
}

// JobApplication 关联一个 Job 与一个学生账号。
// (job_id, student_id) 唯一索引在存储层阻止重复投递。
type JobApplication struct {
	gorm.Model
	JobID       uint   `gorm:"index;uniqueIndex:idx_job_student"`
	StudentID   uint   `gorm:"index;uniqueIndex:idx_job_student"`
	CoverLetter string `gorm:"type:text"`
	Status      string `gorm:"size:32"`
	AppliedAt   time.Time
}
