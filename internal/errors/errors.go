package errors

import (
	stdErrors "errors"
	"fmt"
	"log/slog"
)

// Code 表示系统内的统一错误码。
type Code string

// Severity 描述错误的严重程度，用于日志分级。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Level 将严重程度映射为日志级别。
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Attributes 为错误码提供默认行为。
type Attributes struct {
	Message  string
	Severity Severity
}

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConfig          Code = "CONFIG_INVALID"
	CodeNetwork         Code = "NETWORK_FAILURE"
	CodeProtocol        Code = "PROTOCOL_FAILURE"
	CodeValidation      Code = "VALIDATION_FAILED"
	CodeExecution       Code = "EXECUTION_FAILED"
	CodeTimeout         Code = "TIMEOUT"
	CodeClock           Code = "CLOCK_FAILURE"
	CodeIncomplete      Code = "TXN_INCOMPLETE"
	CodeExpired         Code = "TXN_EXPIRED"
	CodeFunding         Code = "FUNDING_FAILED"
	CodeJournal         Code = "JOURNAL_FAILURE"
)

// MetadataOperation 是记录失败操作名称的元数据键。
const MetadataOperation = "operation"

var registry = map[Code]Attributes{
	CodeUnknown:         {Message: "unknown error", Severity: SeverityCritical},
	CodeInvalidArgument: {Message: "invalid argument", Severity: SeverityInfo},
	CodeNotFound:        {Message: "resource not found", Severity: SeverityInfo},
	CodeConfig:          {Message: "invalid configuration", Severity: SeverityCritical},
	CodeNetwork:         {Message: "remote node unreachable", Severity: SeverityWarning},
	CodeProtocol:        {Message: "malformed response from remote node", Severity: SeverityCritical},
	CodeValidation:      {Message: "transaction rejected by remote node", Severity: SeverityWarning},
	CodeExecution:       {Message: "transaction aborted on chain", Severity: SeverityWarning},
	CodeTimeout:         {Message: "operation timed out", Severity: SeverityWarning},
	CodeClock:           {Message: "system clock unavailable", Severity: SeverityCritical},
	CodeIncomplete:      {Message: "transaction envelope incomplete", Severity: SeverityInfo},
	CodeExpired:         {Message: "transaction expired before inclusion", Severity: SeverityWarning},
	CodeFunding:         {Message: "account funding failed", Severity: SeverityWarning},
	CodeJournal:         {Message: "journal write failed", Severity: SeverityWarning},
}

// AttributesOf 返回错误码对应的属性。若未注册则返回 UNKNOWN 的属性。
func AttributesOf(code Code) Attributes {
	if attr, ok := registry[code]; ok {
		return attr
	}
	return registry[CodeUnknown]
}

// Error 是系统内统一的错误类型。
type Error struct {
	code     Code
	message  string
	cause    error
	metadata map[string]string
}

// Option 定义可选配置。
type Option func(*Error)

// WithMetadata 附加额外信息。
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithOperation 记录出错的操作名称。
func WithOperation(op string) Option {
	return WithMetadata(MetadataOperation, op)
}

// New 创建一个新的错误实例。
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = AttributesOf(code).Message
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap 在已有错误外包裹统一错误类型。
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	prefix := fmt.Sprintf("[%s]", e.code)
	if op := e.metadata[MetadataOperation]; op != "" {
		prefix = fmt.Sprintf("[%s] %s", e.code, op)
		if e.message != "" {
			prefix += ":"
		}
	}
	if e.cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.message)
}

// Unwrap 实现 errors.Unwrap。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 允许通过 errors.Is 判断是否相同错误码。
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code 返回错误码。
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Operation 返回出错的操作名称。
func (e *Error) Operation() string {
	if e == nil {
		return ""
	}
	return e.metadata[MetadataOperation]
}

// Metadata 返回附加信息。
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// Severity 返回错误严重程度。
func (e *Error) Severity() Severity {
	if e == nil {
		return SeverityInfo
	}
	return AttributesOf(e.code).Severity
}

// From 尝试从 error 中解析统一错误类型。
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf 返回错误对应的错误码。
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// Has 判断错误链上是否存在指定错误码。
func Has(err error, code Code) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.code == code {
			return true
		}
		err = stdErrors.Unwrap(err)
	}
	return false
}

// SeverityOf 返回错误严重程度。
func SeverityOf(err error) Severity {
	if e, ok := From(err); ok {
		return e.Severity()
	}
	return AttributesOf(CodeUnknown).Severity
}
