package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staticStatus implements StatusSource with a fixed answer.
type staticStatus struct {
	status Status
	err    error
}

func (s staticStatus) Status(context.Context) (Status, error) {
	return s.status, s.err
}

// echoStream stands in for the websocket handler.
var echoStream = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "stream")
})

func newTestServer(status StatusSource, assets fs.FS, title string) *Server {
	return NewServer(status, echoStream, "/ws", 0, assets, title, testLogger())
}

// --- Status Tests ---

func TestHandleStatus_JSON(t *testing.T) {
	lastErr := "read /dev/ttyUSB0: input/output error"
	srv := newTestServer(staticStatus{status: Status{
		Source: SourceStatus{
			Device:    "/dev/ttyUSB0",
			BaudRate:  115200,
			State:     "listening",
			Chunks:    10,
			Samples:   8,
			LastError: &lastErr,
		},
		Subscriber: SubscriberStatus{
			Connected:   true,
			ID:          "3f2c",
			Connections: 2,
			Published:   7,
			Dropped:     1,
		},
	}}, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "listening", got["source"]["state"])
	assert.Equal(t, float64(115200), got["source"]["baud_rate"])
	assert.Equal(t, lastErr, got["source"]["last_error"])
	assert.Equal(t, true, got["subscriber"]["connected"])
	assert.Equal(t, float64(7), got["subscriber"]["published"])
}

func TestHandleStatus_EmptySubscriberOmitsID(t *testing.T) {
	srv := newTestServer(staticStatus{}, nil, "")

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"id"`)
	assert.Contains(t, rec.Body.String(), `"last_error":null`)
}

func TestHandleStatus_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(staticStatus{}, nil, "")

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodPost, "/api/status", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleStatus_Unavailable(t *testing.T) {
	srv := newTestServer(staticStatus{err: errors.New("stopped")}, nil, "")

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// --- Server Start Tests ---

func TestStart_ServesRoutes(t *testing.T) {
	srv := newTestServer(staticStatus{}, &mockFS{content: "<title>{{.Title}}</title>"}, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, srv.Start(ctx))

	base := fmt.Sprintf("http://127.0.0.1:%d", srv.Addr().(*net.TCPAddr).Port)

	for path, want := range map[string]string{
		"/ws":         "stream",
		"/api/status": `"source"`,
		"/":           "<title>ADC Live Plotter</title>",
	} {
		resp, err := http.Get(base + path)
		require.NoError(t, err, path)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Contains(t, string(body), want, path)
	}
}

func TestStart_ShutdownOnCancel(t *testing.T) {
	srv := newTestServer(staticStatus{}, nil, "")

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))
	addr := fmt.Sprintf("127.0.0.1:%d", srv.Addr().(*net.TCPAddr).Port)

	cancel()

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err != nil {
			return true
		}
		conn.Close()
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestDone_ClosedAfterListenerReleased(t *testing.T) {
	srv := newTestServer(staticStatus{}, nil, "")

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))
	port := srv.Addr().(*net.TCPAddr).Port

	select {
	case <-srv.Done():
		t.Fatal("Done closed while serving")
	default:
	}

	cancel()
	select {
	case <-srv.Done():
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Done not closed after cancel")
	}

	// the port is free again as soon as Done fires
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	require.NoError(t, err)
	_ = ln.Close()
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	// occupy a port
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	port := ln.Addr().(*net.TCPAddr).Port

	srv := NewServer(staticStatus{}, echoStream, "/ws", port, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = srv.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to bind")
	assert.Nil(t, srv.Addr())
}

func TestStart_InvalidPort_ReturnsError(t *testing.T) {
	srv := NewServer(staticStatus{}, echoStream, "/ws", -1, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.Error(t, srv.Start(ctx))
}

// --- Plotter Page Tests ---

// mockFS implements fs.ReadFileFS for testing page rendering.
type mockFS struct {
	content string
}

func (m *mockFS) Open(name string) (fs.File, error) {
	return nil, fs.ErrNotExist
}

func (m *mockFS) ReadFile(name string) ([]byte, error) {
	if name == "assets/index.html" {
		return []byte(m.content), nil
	}
	return nil, fs.ErrNotExist
}

func TestHandleDashboard_CustomTitle(t *testing.T) {
	mockAssets := &mockFS{content: "<title>{{.Title}}</title><h1>{{.Title}}</h1>"}
	srv := newTestServer(staticStatus{}, mockAssets, "Bench ADC")

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	assert.Contains(t, body, "<title>Bench ADC</title>")
	assert.Contains(t, body, "<h1>Bench ADC</h1>")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestHandleDashboard_DefaultTitle(t *testing.T) {
	mockAssets := &mockFS{content: "<title>{{.Title}}</title>"}
	srv := newTestServer(staticStatus{}, mockAssets, "")

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, rec.Body.String(), "<title>ADC Live Plotter</title>")
}

func TestHandleDashboard_StreamPath(t *testing.T) {
	mockAssets := &mockFS{content: `<body data-stream-path="{{.StreamPath}}">`}
	srv := NewServer(staticStatus{}, echoStream, "/live/adc", 0, mockAssets, "", testLogger())

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, rec.Body.String(), `data-stream-path="/live/adc"`)
}

func TestHandleDashboard_NoAssets(t *testing.T) {
	srv := newTestServer(staticStatus{}, nil, "Custom Title")

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleDashboard_NonRootPath(t *testing.T) {
	srv := newTestServer(staticStatus{}, &mockFS{content: "x"}, "")

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/other", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDashboard_TitleWithHTMLChars(t *testing.T) {
	mockAssets := &mockFS{content: "<title>{{.Title}}</title>"}
	srv := newTestServer(staticStatus{}, mockAssets, "<script>alert('xss')</script>")

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	assert.NotContains(t, body, "<script>", "title should be HTML-escaped to prevent XSS")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestHandleDashboard_TitleWithAmpersand(t *testing.T) {
	mockAssets := &mockFS{content: "<title>{{.Title}}</title>"}
	srv := newTestServer(staticStatus{}, mockAssets, "Volts & Amps")

	rec := httptest.NewRecorder()
	srv.handleDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, rec.Body.String(), "Volts &amp; Amps")
}
