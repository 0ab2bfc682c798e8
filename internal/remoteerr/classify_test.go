package remoteerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   Kind
	}{
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindForbidden},
		{http.StatusNotFound, KindNotFound},
		{http.StatusRequestTimeout, KindTimeout},
		{http.StatusGatewayTimeout, KindTimeout},
		{http.StatusConflict, KindConflict},
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusInternalServerError, KindServer},
		{http.StatusBadGateway, KindServer},
		{http.StatusTeapot, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			e := FromHTTPStatus(tt.status, "")
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, []string{tt.kind.Code()}, e.Codes)
			assert.NotEmpty(t, e.Message)
		})
	}
}

func TestFromStatus_BadRequestDetails(t *testing.T) {
	st := status.New(codes.InvalidArgument, "note is invalid")
	st, err := st.WithDetails(
		&errdetails.BadRequest{FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: "title", Description: "is required"},
		}},
		&errdetails.ErrorInfo{
			Reason:   CodeValidation,
			Metadata: map[string]string{MetadataCodesKey: CodeTitleRequired + ", " + CodeContentRequired},
		},
	)
	require.NoError(t, err)

	e := FromStatus(st, http.StatusBadRequest)

	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t, "note is invalid", e.Message)
	assert.Equal(t, map[string]string{"title": "is required"}, e.Fields)
	assert.Equal(t, []string{CodeValidation, CodeTitleRequired, CodeContentRequired}, e.Codes)
	assert.True(t, errors.Is(e, ErrValidation))
}

func TestFromStatus_InvalidCredentialsIsAuthentication(t *testing.T) {
	st, err := status.New(codes.Unauthenticated, "invalid email or password").
		WithDetails(&errdetails.ErrorInfo{Reason: CodeInvalidCredentials})
	require.NoError(t, err)

	e := FromStatus(st, http.StatusUnauthorized)

	assert.Equal(t, KindAuthentication, e.Kind)
	assert.True(t, e.HasCode(CodeInvalidCredentials))
}

func TestFromStatus_RetryInfo(t *testing.T) {
	st, err := status.New(codes.ResourceExhausted, "slow down").
		WithDetails(&errdetails.RetryInfo{RetryDelay: durationpb.New(3 * time.Second)})
	require.NoError(t, err)

	e := FromStatus(st, http.StatusTooManyRequests)

	assert.Equal(t, KindRateLimit, e.Kind)
	assert.Equal(t, 3*time.Second, e.RetryAfter)
	assert.Equal(t, []string{CodeRateLimited}, e.Codes)
}

func TestFromStatus_CodeMapping(t *testing.T) {
	tests := map[codes.Code]Kind{
		codes.NotFound:           KindNotFound,
		codes.AlreadyExists:      KindConflict,
		codes.PermissionDenied:   KindForbidden,
		codes.Unauthenticated:    KindUnauthorized,
		codes.DeadlineExceeded:   KindTimeout,
		codes.Unavailable:        KindConnection,
		codes.Internal:           KindServer,
		codes.FailedPrecondition: KindValidation,
		codes.Canceled:           KindNetwork,
	}

	for code, kind := range tests {
		e := FromStatus(status.New(code, ""), 0)
		assert.Equal(t, kind, e.Kind, "code %s", code)
		assert.NotEmpty(t, e.Message, "code %s", code)
	}
}

func TestFrom(t *testing.T) {
	t.Run("passes classified errors through", func(t *testing.T) {
		orig := NotFound("note not found")
		wrapped := fmt.Errorf("update: %w", orig)
		assert.Same(t, orig, From(wrapped))
	})

	t.Run("deadline is timeout", func(t *testing.T) {
		e := From(context.DeadlineExceeded)
		assert.Equal(t, KindTimeout, e.Kind)
		assert.True(t, errors.Is(e, context.DeadlineExceeded))
	})

	t.Run("canceled is not retryable", func(t *testing.T) {
		e := From(context.Canceled)
		assert.Equal(t, KindNetwork, e.Kind)
		assert.True(t, e.HasCode(CodeCanceled))
		assert.False(t, Retryable(e))
	})

	t.Run("connection refused", func(t *testing.T) {
		err := &url.Error{Op: "Get", URL: "http://localhost:1", Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}
		e := From(err)
		assert.Equal(t, KindConnection, e.Kind)
		assert.True(t, Retryable(e))
	})

	t.Run("other url errors are network", func(t *testing.T) {
		err := &url.Error{Op: "Get", URL: "http://localhost", Err: errors.New("tls: bad certificate")}
		assert.Equal(t, KindNetwork, From(err).Kind)
	})

	t.Run("plain errors are unknown", func(t *testing.T) {
		e := From(errors.New("boom"))
		assert.Equal(t, KindUnknown, e.Kind)
		assert.Equal(t, []string{CodeUnknown}, e.Codes)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, From(nil))
	})
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Server(http.StatusInternalServerError, "boom")))
	assert.True(t, Retryable(RateLimit("slow down", time.Second)))
	assert.False(t, Retryable(Validation("bad")))
	assert.False(t, Retryable(Unauthorized("expired")))
	assert.False(t, Retryable(nil))
}

func TestError_CopiesAreIndependent(t *testing.T) {
	base := Validation("bad input", CodeInvalidEmail)
	withFields := base.WithFields(map[string]string{"email": "must be a valid email address"})
	withCodes := base.WithCodes(CodePasswordTooShort, CodeInvalidEmail)

	assert.Nil(t, base.Fields)
	assert.Equal(t, []string{CodeInvalidEmail}, base.Codes)
	assert.Equal(t, []string{CodeInvalidEmail, CodePasswordTooShort}, withCodes.Codes)
	assert.Equal(t, "must be a valid email address", withFields.Fields["email"])

	clone := withFields.Clone()
	clone.Fields["email"] = "changed"
	assert.Equal(t, "must be a valid email address", withFields.Fields["email"])
}
