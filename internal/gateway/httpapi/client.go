// Package httpapi REST клиент удаленного сервиса заметок: реализации
// gateway.AuthGateway и gateway.NotesGateway поверх HTTP/JSON.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"notes-client/internal/remoteerr"
)

const (
	// DefaultTimeout таймаут обычного запроса
	DefaultTimeout = 15 * time.Second

	maxErrorBody = 64 << 10
)

// Client общий HTTP клиент для шлюзов: базовый URL, цепочка транспортов и токен сессии
type Client struct {
	base   *url.URL
	tokens TokenStore
	log    zerolog.Logger

	http   *http.Client // обычные запросы с таймаутом
	stream *http.Client // долгоживущий поток событий без таймаута

	timeout   time.Duration
	limiter   *rate.Limiter
	debug     bool
	transport http.RoundTripper
}

// Option настраивает Client
type Option func(*Client)

// WithTokenStore задает хранилище токена сессии
func WithTokenStore(ts TokenStore) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithLogger задает логгер
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithTimeout задает таймаут обычных запросов
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit включает клиентский token bucket
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithDebug включает логирование каждого запроса на уровне debug
func WithDebug(enabled bool) Option {
	return func(c *Client) {
		c.debug = enabled
	}
}

// WithTransport подменяет базовый транспорт (например, для httptest)
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// NewClient создает клиент для сервиса по адресу baseURL
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:      u,
		tokens:    NewMemoryTokenStore(""),
		log:       zerolog.Nop(),
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Цепочка (внешний слой первым): bearer -> rate limit -> debug logging -> base
	var rt = c.transport
	if c.debug {
		rt = &loggingTransport{base: rt, log: c.log}
	}
	if c.limiter != nil {
		rt = &rateLimitTransport{base: rt, limiter: c.limiter}
	}
	rt = &bearerTransport{base: rt, tokens: c.tokens}

	c.http = &http.Client{Transport: rt, Timeout: c.timeout}
	c.stream = &http.Client{Transport: rt}
	return c, nil
}

// Tokens возвращает хранилище токена
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// do выполняет JSON запрос. in кодируется в тело (если не nil), out заполняется
// из тела успешного ответа (если не nil). Ошибки всегда *remoteerr.Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	resp, err := c.send(ctx, c.http, method, path, query, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return remoteerr.Wrap(err, remoteerr.KindServer, "malformed response body")
	}
	return nil
}

// send строит и отправляет запрос; транспортные ошибки классифицируются
func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, query url.Values, in any) (*http.Response, error) {
	u := *c.base
	u.Path = c.base.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, remoteerr.Wrap(err, remoteerr.KindValidation, "cannot encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, remoteerr.Wrap(err, remoteerr.KindUnknown, "cannot build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, remoteerr.From(err)
	}
	return resp, nil
}
