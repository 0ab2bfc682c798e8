package remoteerr

import (
	"net/http"
	"slices"
	"strings"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/durationpb"
)

// ErrorDomain домен ErrorInfo в ответах dev-сервера
const ErrorDomain = "notes.local"

// ToStatus преобразует ошибку в gRPC статус с деталями ErrorInfo, BadRequest и RetryInfo.
// FromStatus(ToStatus(err)) сохраняет коды, поля и RetryAfter; вид сохраняется
// для всех видов, кроме Network (станет Connection) и Unknown (станет Server).
func ToStatus(err error) *status.Status {
	e := From(err)
	if e == nil {
		return status.New(codes.OK, "")
	}

	st := status.New(codeFromKind(e.Kind), e.Message)

	var details []protoadapt.MessageV1
	if len(e.Codes) > 0 {
		details = append(details, &errdetails.ErrorInfo{
			Reason:   e.Codes[0],
			Domain:   ErrorDomain,
			Metadata: map[string]string{MetadataCodesKey: strings.Join(e.Codes, ",")},
		})
	}
	if len(e.Fields) > 0 {
		fields := make([]string, 0, len(e.Fields))
		for f := range e.Fields {
			fields = append(fields, f)
		}
		slices.Sort(fields)

		br := &errdetails.BadRequest{}
		for _, f := range fields {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       f,
				Description: e.Fields[f],
			})
		}
		details = append(details, br)
	}
	if e.RetryAfter > 0 {
		details = append(details, &errdetails.RetryInfo{RetryDelay: durationpb.New(e.RetryAfter)})
	}

	if len(details) == 0 {
		return st
	}
	withDetails, detailErr := st.WithDetails(details...)
	if detailErr != nil {
		return st
	}
	return withDetails
}

// HTTPStatus возвращает HTTP статус, соответствующий виду ошибки
func HTTPStatus(err error) int {
	e := From(err)
	if e == nil {
		return http.StatusOK
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication, KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindConnection, KindNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeFromKind(kind Kind) codes.Code {
	switch kind {
	case KindValidation:
		return codes.InvalidArgument
	case KindAuthentication, KindUnauthorized:
		return codes.Unauthenticated
	case KindForbidden:
		return codes.PermissionDenied
	case KindNotFound:
		return codes.NotFound
	case KindConflict:
		return codes.AlreadyExists
	case KindRateLimit:
		return codes.ResourceExhausted
	case KindTimeout:
		return codes.DeadlineExceeded
	case KindConnection, KindNetwork:
		return codes.Unavailable
	case KindServer:
		return codes.Internal
	default:
		return codes.Unknown
	}
}
