package server

import (
	"bufio"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notes-client/internal/config"
)

func testConfig() *config.ConfigDevServer {
	cfg := config.Default().DevServer
	cfg.Port = 0
	cfg.GracefulShutdownTimeout = 2
	return cfg
}

func localURL(t *testing.T, s *Server) string {
	t.Helper()
	_, port, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)
	return "http://127.0.0.1:" + port
}

func TestServer_StartServeShutdown(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	s := New(testConfig(), h, zerolog.Nop())

	errs, err := s.Start()
	require.NoError(t, err)

	resp, err := http.Get(localURL(t, s))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	require.NoError(t, s.Shutdown())
	select {
	case err := <-errs:
		t.Fatalf("unexpected server error: %v", err)
	default:
	}
}

func TestServer_ShutdownEndsStreams(t *testing.T) {
	started := make(chan struct{})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	})
	s := New(testConfig(), h, zerolog.Nop())

	_, err := s.Start()
	require.NoError(t, err)

	resp, err := http.Get(localURL(t, s))
	require.NoError(t, err)
	defer resp.Body.Close()
	<-started

	begin := time.Now()
	require.NoError(t, s.Shutdown())
	assert.Less(t, time.Since(begin), time.Second)

	_, err = bufio.NewReader(resp.Body).ReadByte()
	assert.Error(t, err)
}
