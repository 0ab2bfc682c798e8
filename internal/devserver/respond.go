package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"

	"notes-client/internal/model"
	"notes-client/internal/remoteerr"
)

const (
	// authorizationHeader - имя заголовка для авторизации
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "

	maxBodyBytes = 1 << 20
)

// caller аутентифицированный запрос
type caller struct {
	token string
	user  model.User
}

type authedHandler func(w http.ResponseWriter, r *http.Request, params map[string]string, sess caller)

// authed проверяет наличие и валидность токена в заголовке Authorization
// в формате "Bearer <token>". Без токена запрос отклоняется с Unauthenticated.
func (s *Server) authed(h authedHandler) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		header := r.Header.Get(authorizationHeader)
		if header == "" {
			s.writeError(w, r, remoteerr.Unauthorized("authorization header not provided"))
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			s.writeError(w, r, remoteerr.Unauthorized("invalid authorization header format"))
			return
		}

		token := strings.TrimPrefix(header, bearerPrefix)
		user, err := s.accounts.Authenticate(token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		h(w, r, params, caller{token: token, user: user})
	}
}

// decodeJSON разбирает тело запроса; любая ошибка разбора - ValidationError
func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return remoteerr.Validation("request body too large")
		}
		return remoteerr.Validation("invalid request body").WithCause(err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError отдает ошибку в формате grpc-gateway (google.rpc.Status с деталями)
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := remoteerr.From(err)
	if e.Kind == remoteerr.KindServer || e.Kind == remoteerr.KindUnknown {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		s.log.Debug().Err(err).Str("path", r.URL.Path).Strs("codes", e.Codes).Msg("request rejected")
	}

	_, outbound := runtime.MarshalerForRequest(s.gw, r)
	runtime.HTTPError(r.Context(), s.gw, outbound, w, r, remoteerr.ToStatus(e).Err())
}
