package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hhttp "monitoring-app/internal/handler/http"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestLoadServerConfig_Defaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("APP_SHUTDOWN_TIMEOUT", "")
	t.Setenv("VERSION", "")

	cfg := loadServerConfig()

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "dev", cfg.Version)
}

func TestLoadServerConfig_FromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "8081")
	t.Setenv("APP_SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("VERSION", "v0.3.0")

	cfg := loadServerConfig()

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "v0.3.0", cfg.Version)
}

func TestLoadServerConfig_ShutdownTimeoutOutOfRange(t *testing.T) {
	t.Setenv("APP_SHUTDOWN_TIMEOUT", "5m")

	assert.Equal(t, 5*time.Second, loadServerConfig().ShutdownTimeout)
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, logger, serverConfig{Port: port, ShutdownTimeout: time.Second, Version: "test"})
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && len(body) > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_NotReadyWhileDraining(t *testing.T) {
	created := make(chan *hhttp.Readiness, 1)
	orig := newReadiness
	newReadiness = func() *hhttp.Readiness {
		r := orig()
		created <- r
		return r
	}
	t.Cleanup(func() { newReadiness = orig })

	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, logger, serverConfig{Port: port, ShutdownTimeout: 3 * time.Second, Version: "test"})
	}()

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/ready")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
	readiness := <-created
	assert.True(t, readiness.IsReady())

	// A request whose headers are not finished keeps Shutdown waiting.
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = io.WriteString(conn, "GET / HTTP/1.1\r\nHost: "+addr+"\r\n")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return !readiness.IsReady() }, 2*time.Second, 10*time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("run returned before the in-flight request finished: %v", err)
	default:
	}

	_, err = io.WriteString(conn, "\r\n")
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.False(t, readiness.IsReady())
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
