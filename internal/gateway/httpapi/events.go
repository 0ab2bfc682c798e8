package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"notes-client/internal/gateway"
	"notes-client/internal/remoteerr"
)

var (
	errStreamClosed = errors.New("event stream closed by server")
	errSessionEnded = errors.New("session ended")
)

// startWatchLocked запускает горутину потока событий, если она еще не запущена
func (a *Auth) startWatchLocked() {
	if !a.watchEvents || a.watchCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.watchCancel, a.watchDone = cancel, done

	go func() {
		defer close(done)
		defer cancel()

		a.watch(ctx)

		a.mu.Lock()
		if a.watchDone == done {
			a.watchCancel, a.watchDone = nil, nil
		}
		a.mu.Unlock()
	}()
}

// stopWatch останавливает поток и дожидается завершения горутины.
// Нельзя вызывать из самой горутины потока.
func (a *Auth) stopWatch() {
	a.mu.Lock()
	cancel, done := a.watchCancel, a.watchDone
	a.watchCancel, a.watchDone = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// watch держит поток открытым, переподключаясь с экспоненциальной паузой.
// Завершается при отмене ctx, закрытии сессии и неповторяемых ошибках.
func (a *Auth) watch(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.reconnectInitial
	b.MaxInterval = a.reconnectMax
	b.MaxElapsedTime = 0

	op := func() error {
		err := a.readEvents(ctx, b)
		switch {
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case errors.Is(err, errSessionEnded):
			return backoff.Permanent(err)
		case errors.Is(err, errStreamClosed), remoteerr.Retryable(err):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	notifyFn := func(err error, next time.Duration) {
		a.log.Debug().Err(err).Dur("retry_in", next).Msg("event stream reconnect")
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notifyFn)
	if err == nil || ctx.Err() != nil || errors.Is(err, errSessionEnded) {
		return
	}

	a.log.Warn().Err(err).Msg("event stream stopped")
	var e *remoteerr.Error
	if errors.As(err, &e) && e.Kind == remoteerr.KindUnauthorized {
		a.expire()
	}
}

// readEvents читает NDJSON поток до его закрытия
func (a *Auth) readEvents(ctx context.Context, b *backoff.ExponentialBackOff) error {
	resp, err := a.c.send(ctx, a.c.stream, http.MethodGet, "/v1/auth/events", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	b.Reset()
	a.log.Debug().Msg("event stream connected")

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev gateway.AuthEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			a.log.Warn().Err(err).Msg("malformed session event")
			continue
		}
		if !a.applyEvent(ev) {
			return errSessionEnded
		}
	}
	if err := sc.Err(); err != nil {
		return remoteerr.From(err)
	}
	return errStreamClosed
}

// applyEvent обновляет локальную сессию и публикует событие подписчикам.
// Возвращает false, если сессия закрыта и поток нужно остановить.
func (a *Auth) applyEvent(ev gateway.AuthEvent) bool {
	a.mu.Lock()
	if a.user == nil {
		a.mu.Unlock()
		return false
	}
	if !ev.SessionValid {
		a.user = nil
	} else if ev.User != nil {
		u := *ev.User
		a.user = &u
	}
	a.mu.Unlock()

	if !ev.SessionValid {
		if err := a.c.tokens.Clear(); err != nil {
			a.log.Warn().Err(err).Msg("failed to clear session token")
		}
	}
	a.events.Publish(ev)
	return ev.SessionValid
}
