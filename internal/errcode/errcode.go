package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复错误，由页面内联展示
// - 5xxx：系统错误
const (
	OK                 = 0
	InvalidCredentials = 4001
	EmailTaken         = 4002
	Validation         = 4003
	ProfileNotFound    = 4004
	ProfileConflict    = 4005
	OwnershipViolation = 4030
	AlreadyApplied     = 4091
	InvalidTransition  = 4092
	ResourceMissing    = 4040
	SystemError        = 5000
)
