package service

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable 数据库访问失败
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrProfileNotFound 设备不存在
	ErrProfileNotFound = errors.New("profile not found")
	// ErrDependencyFailed 所依赖的行未写入，无法绑定外键
	ErrDependencyFailed = errors.New("dependency not written")
	// ErrUnreferenced 行已写入，但引用它的行写入失败，已被删除
	ErrUnreferenced = errors.New("row removed: no referencing row written")
)

// AuthFailure 鉴权失败原因
type AuthFailure string

const (
	AuthMissingApiKey     AuthFailure = "missing_api_key"
	AuthInvalidApiKey     AuthFailure = "invalid_api_key"
	AuthProfileNotFound   AuthFailure = "profile_not_found"
	AuthMissingProfileKey AuthFailure = "missing_profile_key"
	AuthInvalidProfileKey AuthFailure = "invalid_profile_key"
	AuthMissingReadKey    AuthFailure = "missing_read_key"
	AuthInvalidReadKey    AuthFailure = "invalid_read_key"
)

// AuthError 鉴权失败
type AuthError struct {
	Reason AuthFailure
}

func (e *AuthError) Error() string {
	return "authentication failed: " + string(e.Reason)
}

// ValidationFailure 请求体校验失败原因
type ValidationFailure string

const (
	ValidationMalformedBody   ValidationFailure = "malformed_body"
	ValidationEncodingError   ValidationFailure = "encoding_error"
	ValidationCounterOverflow ValidationFailure = "counter_overflow"
)

// ValidationError 请求体校验失败
type ValidationError struct {
	Reason ValidationFailure
	Field  string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := "validation failed: " + string(e.Reason)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// PersistenceFailure 写入失败原因
type PersistenceFailure string

const (
	RootWriteFailed  PersistenceFailure = "root_write_failed"
	ChildWriteFailed PersistenceFailure = "child_write_failed"
	PlanAborted      PersistenceFailure = "plan_aborted"
)

// PersistenceError 快照写入失败
type PersistenceError struct {
	Reason PersistenceFailure
	Kind   EntityKind
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Reason, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsClientError 是否属于调用方错误（鉴权或校验失败）
func IsClientError(err error) bool {
	var authErr *AuthError
	var validationErr *ValidationError
	return errors.As(err, &authErr) || errors.As(err, &validationErr)
}
