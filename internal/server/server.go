package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "ADC Live Plotter"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"

	// streamPathPlaceholder is replaced with the websocket path so the page
	// knows where to connect.
	streamPathPlaceholder = "{{.StreamPath}}"
)

// Server handles HTTP requests for the plotter page, the status API and
// the real-time stream.
//
// Server provides three endpoints:
//   - GET /: Serves the embedded plotter HTML
//   - GET /api/status: Returns the bridge status as JSON
//   - <streamPath>: Hands the request to the stream handler (websocket upgrade)
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	status     StatusSource
	stream     http.Handler
	streamPath string
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger

	mu   sync.Mutex
	addr net.Addr
	done chan struct{}
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - status: Source of the /api/status document
//   - stream: Handler mounted at streamPath (the websocket publisher)
//   - streamPath: Path of the real-time endpoint, e.g. "/ws"
//   - port: TCP port to listen on (0 picks a free port)
//   - assets: Embedded filesystem containing the plotter page (may be nil)
//   - title: Page title (defaults to "ADC Live Plotter" if empty)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(status StatusSource, stream http.Handler, streamPath string, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	return &Server{
		status:     status,
		stream:     stream,
		streamPath: streamPath,
		port:       port,
		assets:     assets,
		title:      title,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.Handle(s.streamPath, s.stream)

	// serve plotter page
	if s.assets != nil {
		mux.HandleFunc("/", s.handleDashboard)
	}

	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// Hijacked websocket connections are not closed by Shutdown, so their
		// handlers watch the request context to end on cancellation.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Serve closes ln when it returns
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		defer close(s.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
		<-served
	}()

	s.logger.Info("websocket server listening", "addr", ln.Addr().String(), "path", s.streamPath)
	return nil
}

// Done returns a channel that is closed once a started server has shut down
// and released its listener. It is never closed if Start failed.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Addr returns the address the server is listening on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// handleDashboard serves the plotter page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Plotter not found", http.StatusInternalServerError)
		return
	}

	// read index.html from embedded assets
	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Plotter not found", http.StatusInternalServerError)
		return
	}

	// apply substitutions with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.NewReplacer(
		titlePlaceholder, html.EscapeString(title),
		streamPathPlaceholder, html.EscapeString(s.streamPath),
	).Replace(string(content))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write plotter response", "error", err)
	}
}

// handleStatus returns the bridge status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, err := s.status.Status(r.Context())
	if err != nil {
		http.Error(w, "Status unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("failed to encode status response", "error", err)
	}
}
