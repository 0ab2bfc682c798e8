// Package remoteerr классифицирует ошибки удаленного сервиса и локальной валидации
// в фиксированный набор видов (Kind). Это единственный словарь ошибок, который
// пересекает границу store -> presentation.
//
// Использование:
//
//	// В gateway - возвращаем классифицированную ошибку
//	return model.Note{}, remoteerr.NotFound("note not found")
//
//	// В store и presentation - проверяем вид через errors.Is
//	if errors.Is(err, remoteerr.ErrNotFound) {
//	    ...
//	}
package remoteerr

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Kind вид ошибки (не тип реализации)
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindNetwork
	KindTimeout
	KindConnection
	KindServer
	KindRateLimit
	KindConflict
)

// String возвращает человекочитаемое имя вида
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindAuthentication:
		return "AuthenticationError"
	case KindUnauthorized:
		return "UnauthorizedError"
	case KindForbidden:
		return "ForbiddenError"
	case KindNotFound:
		return "NotFoundError"
	case KindNetwork:
		return "NetworkError"
	case KindTimeout:
		return "TimeoutError"
	case KindConnection:
		return "ConnectionError"
	case KindServer:
		return "ServerError"
	case KindRateLimit:
		return "RateLimitError"
	case KindConflict:
		return "ConflictError"
	default:
		return "UnknownError"
	}
}

// Code возвращает машинный код по умолчанию для вида
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return CodeValidation
	case KindAuthentication:
		return CodeInvalidCredentials
	case KindUnauthorized:
		return CodeUnauthorized
	case KindForbidden:
		return CodeForbidden
	case KindNotFound:
		return CodeNotFound
	case KindNetwork:
		return CodeNetwork
	case KindTimeout:
		return CodeTimeout
	case KindConnection:
		return CodeConnection
	case KindServer:
		return CodeServer
	case KindRateLimit:
		return CodeRateLimited
	case KindConflict:
		return CodeConflict
	default:
		return CodeUnknown
	}
}

// Error классифицированная ошибка с сообщением и машинными кодами
type Error struct {
	Kind       Kind              // Вид ошибки
	Message    string            // Сообщение для отображения пользователю
	Codes      []string          // Машинные коды (INVALID_EMAIL, NOT_FOUND, ...)
	Fields     map[string]string // Сообщения по полям (для ValidationError)
	StatusCode int               // HTTP статус (0 если ошибка не от сервера)
	RetryAfter time.Duration     // Рекомендуемая пауза (для RateLimitError)
	cause      error
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap возвращает исходную ошибку
func (e *Error) Unwrap() error {
	return e.cause
}

// Is сравнивает ошибки по виду: errors.Is(err, remoteerr.ErrTimeout)
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// HasCode проверяет наличие машинного кода
func (e *Error) HasCode(code string) bool {
	return slices.Contains(e.Codes, code)
}

// WithCodes возвращает копию ошибки с дополнительными кодами
func (e *Error) WithCodes(codes ...string) *Error {
	c := e.clone()
	for _, code := range codes {
		if !slices.Contains(c.Codes, code) {
			c.Codes = append(c.Codes, code)
		}
	}
	return c
}

// WithFields возвращает копию ошибки с сообщениями по полям
func (e *Error) WithFields(fields map[string]string) *Error {
	c := e.clone()
	if c.Fields == nil {
		c.Fields = make(map[string]string, len(fields))
	}
	maps.Copy(c.Fields, fields)
	return c
}

// WithCause возвращает копию ошибки с исходной причиной
func (e *Error) WithCause(err error) *Error {
	c := e.clone()
	c.cause = err
	return c
}

// Clone возвращает глубокую копию (для снапшотов состояния)
func (e *Error) Clone() *Error {
	if e == nil {
		return nil
	}
	return e.clone()
}

func (e *Error) clone() *Error {
	return &Error{
		Kind:       e.Kind,
		Message:    e.Message,
		Codes:      slices.Clone(e.Codes),
		Fields:     maps.Clone(e.Fields),
		StatusCode: e.StatusCode,
		RetryAfter: e.RetryAfter,
		cause:      e.cause,
	}
}

// Sentinel ошибки для errors.Is()
var (
	ErrUnknown        = &Error{Kind: KindUnknown, Message: "unknown error"}
	ErrValidation     = &Error{Kind: KindValidation, Message: "validation error"}
	ErrAuthentication = &Error{Kind: KindAuthentication, Message: "authentication failed"}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrForbidden      = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound       = &Error{Kind: KindNotFound, Message: "not found"}
	ErrNetwork        = &Error{Kind: KindNetwork, Message: "network error"}
	ErrTimeout        = &Error{Kind: KindTimeout, Message: "request timed out"}
	ErrConnection     = &Error{Kind: KindConnection, Message: "connection failed"}
	ErrServer         = &Error{Kind: KindServer, Message: "server error"}
	ErrRateLimit      = &Error{Kind: KindRateLimit, Message: "rate limit exceeded"}
	ErrConflict       = &Error{Kind: KindConflict, Message: "conflict"}
)

// New создает ошибку указанного вида с кодом по умолчанию
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Codes: []string{kind.Code()}}
}

// Newf создает ошибку указанного вида с форматированным сообщением
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap оборачивает ошибку с видом и сообщением
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Codes: []string{kind.Code()}, cause: err}
}

// Validation создает ошибку валидации с машинными кодами.
// Если коды не переданы, используется VALIDATION_ERROR.
func Validation(msg string, codes ...string) *Error {
	if len(codes) == 0 {
		codes = []string{CodeValidation}
	}
	return &Error{Kind: KindValidation, Message: msg, Codes: codes}
}

// Authentication создает ошибку неверных учетных данных
func Authentication(msg string) *Error { return New(KindAuthentication, msg) }

// Unauthorized создает ошибку отсутствующей или истекшей сессии
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }

// Forbidden создает ошибку доступа
func Forbidden(msg string) *Error { return New(KindForbidden, msg) }

// NotFound создает ошибку "не найдено"
func NotFound(msg string) *Error { return New(KindNotFound, msg) }

// NotFoundf создает ошибку "не найдено" с форматированным сообщением
func NotFoundf(format string, args ...any) *Error { return Newf(KindNotFound, format, args...) }

// Conflict создает ошибку конфликта (дубликат email/username)
func Conflict(msg string, codes ...string) *Error {
	e := New(KindConflict, msg)
	return e.WithCodes(codes...)
}

// Server создает ошибку сервера с HTTP статусом
func Server(statusCode int, msg string) *Error {
	e := New(KindServer, msg)
	e.StatusCode = statusCode
	return e
}

// RateLimit создает ошибку превышения лимита запросов
func RateLimit(msg string, retryAfter time.Duration) *Error {
	e := New(KindRateLimit, msg)
	e.RetryAfter = retryAfter
	return e
}
