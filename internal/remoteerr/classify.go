package remoteerr

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MetadataCodesKey ключ в ErrorInfo.Metadata со списком дополнительных кодов через запятую
const MetadataCodesKey = "codes"

// FromHTTPStatus классифицирует ответ сервера только по HTTP статусу
// (тело ответа не является google.rpc.Status)
func FromHTTPStatus(statusCode int, msg string) *Error {
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	var kind Kind
	switch {
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		kind = KindValidation
	case statusCode == http.StatusUnauthorized:
		kind = KindUnauthorized
	case statusCode == http.StatusForbidden:
		kind = KindForbidden
	case statusCode == http.StatusNotFound:
		kind = KindNotFound
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		kind = KindTimeout
	case statusCode == http.StatusConflict:
		kind = KindConflict
	case statusCode == http.StatusTooManyRequests:
		kind = KindRateLimit
	case statusCode >= 500 && statusCode < 600:
		kind = KindServer
	default:
		kind = KindUnknown
	}

	e := New(kind, msg)
	e.StatusCode = statusCode
	return e
}

// FromStatus классифицирует gRPC статус, пришедший в теле REST ответа
// (формат grpc-gateway: {"code": 5, "message": "...", "details": [...]}).
// Детали BadRequest, ErrorInfo и RetryInfo переносятся в Fields, Codes и RetryAfter.
func FromStatus(st *status.Status, httpStatus int) *Error {
	if st == nil {
		return FromHTTPStatus(httpStatus, "")
	}

	kind := kindFromCode(st.Code())
	msg := st.Message()
	if msg == "" {
		msg = kind.String()
	}

	e := &Error{Kind: kind, Message: msg, StatusCode: httpStatus}

	var reasonCodes []string
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.BadRequest:
			if e.Fields == nil {
				e.Fields = make(map[string]string, len(d.GetFieldViolations()))
			}
			for _, fv := range d.GetFieldViolations() {
				e.Fields[fv.GetField()] = fv.GetDescription()
			}
		case *errdetails.ErrorInfo:
			if reason := d.GetReason(); reason != "" {
				reasonCodes = append(reasonCodes, reason)
			}
			if extra := d.GetMetadata()[MetadataCodesKey]; extra != "" {
				for _, code := range strings.Split(extra, ",") {
					if code = strings.TrimSpace(code); code != "" {
						reasonCodes = append(reasonCodes, code)
					}
				}
			}
		case *errdetails.RetryInfo:
			if d.GetRetryDelay() != nil {
				e.RetryAfter = d.GetRetryDelay().AsDuration()
			}
		}
	}

	// Unauthenticated с причиной INVALID_CREDENTIALS - это неудачный логин, а не истекшая сессия
	if kind == KindUnauthorized && containsCode(reasonCodes, CodeInvalidCredentials) {
		e.Kind = KindAuthentication
	}

	if len(reasonCodes) > 0 {
		e.Codes = dedup(reasonCodes)
	} else {
		e.Codes = []string{e.Kind.Code()}
	}
	return e
}

// kindFromCode сопоставляет gRPC код виду ошибки
func kindFromCode(code codes.Code) Kind {
	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return KindValidation
	case codes.Unauthenticated:
		return KindUnauthorized
	case codes.PermissionDenied:
		return KindForbidden
	case codes.NotFound:
		return KindNotFound
	case codes.AlreadyExists, codes.Aborted:
		return KindConflict
	case codes.ResourceExhausted:
		return KindRateLimit
	case codes.DeadlineExceeded:
		return KindTimeout
	case codes.Unavailable:
		return KindConnection
	case codes.Internal, codes.DataLoss, codes.Unimplemented, codes.Unknown:
		return KindServer
	case codes.Canceled:
		return KindNetwork
	default:
		return KindUnknown
	}
}

// From приводит произвольную ошибку к *Error.
// Уже классифицированные ошибки возвращаются как есть.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	if errors.Is(err, context.Canceled) {
		return Wrap(err, KindNetwork, "request canceled").WithCodes(CodeCanceled)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(err, KindTimeout, "request timed out")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(err, KindTimeout, "request timed out")
	}

	if isConnectionFailure(err) {
		return Wrap(err, KindConnection, "cannot connect to server")
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || netErr != nil ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) {
		return Wrap(err, KindNetwork, "network error")
	}

	return Wrap(err, KindUnknown, "unexpected error")
}

// isConnectionFailure распознает ошибки установления соединения
func isConnectionFailure(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// Retryable сообщает, имеет ли смысл повторять запрос.
// Сам store никогда не повторяет запросы, флаг нужен транспорту событий и UI.
func Retryable(err error) bool {
	e := From(err)
	if e == nil {
		return false
	}
	switch e.Kind {
	case KindNetwork, KindTimeout, KindConnection, KindServer, KindRateLimit:
		return !e.HasCode(CodeCanceled)
	default:
		return false
	}
}

// Codes возвращает машинные коды ошибки (пусто для nil)
func Codes(err error) []string {
	e := From(err)
	if e == nil {
		return nil
	}
	return e.Codes
}

func containsCode(list []string, code string) bool {
	for _, c := range list {
		if c == code {
			return true
		}
	}
	return false
}

func dedup(list []string) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		if !containsCode(out, c) {
			out = append(out, c)
		}
	}
	return out
}
