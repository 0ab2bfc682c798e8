package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/encoding/protojson"

	"notes-client/internal/remoteerr"
)

// RateLimit ограничивает количество запросов (rate limiting)
// rps - запросов в секунду, burst - разрешает кратковременные всплески.
// Отказ - 429 с телом google.rpc.Status и RetryInfo, как у grpc-gateway.
func RateLimit(next http.Handler, rps float64, burst int, log zerolog.Logger) http.Handler {
	// Значения по умолчанию если не указаны
	if rps <= 0 {
		rps = 100
	}
	if burst <= 0 {
		burst = 10
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			log.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("rate limit exceeded")
			writeRateLimited(w, delay)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeRateLimited(w http.ResponseWriter, delay time.Duration) {
	retry := max(delay.Round(time.Second), time.Second)
	st := remoteerr.ToStatus(remoteerr.RateLimit("too many requests", retry))

	body, err := protojson.Marshal(st.Proto())
	if err != nil {
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write(body)
}
