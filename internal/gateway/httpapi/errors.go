package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"

	"notes-client/internal/remoteerr"
)

var statusUnmarshaler = protojson.UnmarshalOptions{DiscardUnknown: true}

// decodeError классифицирует неуспешный ответ. Тело в формате google.rpc.Status
// (как у grpc-gateway) разбирается с деталями; иначе используется HTTP статус
// и текст тела как сообщение.
func decodeError(resp *http.Response) *remoteerr.Error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var st spb.Status
	if len(data) > 0 && statusUnmarshaler.Unmarshal(data, &st) == nil && (st.GetCode() != 0 || st.GetMessage() != "") {
		return remoteerr.FromStatus(status.FromProto(&st), resp.StatusCode)
	}

	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 || strings.HasPrefix(msg, "<") {
		msg = ""
	}
	e := remoteerr.FromHTTPStatus(resp.StatusCode, msg)
	if e.Kind == remoteerr.KindRateLimit {
		e.RetryAfter = retryAfter(resp.Header.Get("Retry-After"))
	}
	return e
}

// retryAfter разбирает Retry-After в секундах
func retryAfter(v string) time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
