package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"notes-client/internal/remoteerr"
)

const (
	// authorizationHeader имя заголовка авторизации
	authorizationHeader = "Authorization"
	// bearerPrefix префикс токена в заголовке
	bearerPrefix = "Bearer "
)

// bearerTransport добавляет токен сессии в заголовок Authorization ("Bearer <token>").
// Если токена нет, запрос уходит без заголовка.
type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenStore
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokens.Load()
	if err != nil || token == "" {
		return t.base.RoundTrip(req)
	}

	// RoundTripper не должен менять исходный запрос
	r := req.Clone(req.Context())
	r.Header.Set(authorizationHeader, bearerPrefix+token)
	return t.base.RoundTrip(r)
}

// rateLimitTransport ограничивает частоту исходящих запросов (token bucket).
// Ожидание токена прерывается отменой контекста запроса.
type rateLimitTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, remoteerr.RateLimit("client rate limit exceeded", 0).WithCause(err)
	}
	return t.base.RoundTrip(req)
}

// loggingTransport логирует запросы с информацией о времени выполнения
type loggingTransport struct {
	base http.RoundTripper
	log  zerolog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	t.log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Msg("http request")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.log.Debug().Err(err).Str("method", req.Method).Str("path", req.URL.Path).
			Dur("duration", time.Since(start)).Msg("http request failed")
		return nil, err
	}

	t.log.Debug().Str("method", req.Method).Str("path", req.URL.Path).
		Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("http response")
	return resp, nil
}
