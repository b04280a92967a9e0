package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/ledger"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services/llm"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/workbench"
)

const (
	maxUploadSize   = "20M"
	requestIDHeader = "X-Request-ID"
)

// History lists recorded runs. *ledger.Store satisfies it.
type History interface {
	ListRuns(ctx context.Context, limit int) ([]ledger.Run, error)
}

// Options wires the server's collaborators. Only Session is required.
type Options struct {
	Bind     string
	Session  *workbench.Session
	Provider llm.Provider
	History  History
	Hub      *logging.StreamHub
	Logger   *slog.Logger
}

// Server is the HTTP front end for one workbench session.
type Server struct {
	bind     string
	logger   *slog.Logger
	session  *workbench.Session
	provider llm.Provider
	history  History
	hub      *logging.StreamHub

	echo     *echo.Echo
	listener net.Listener
}

// New builds the server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Session == nil {
		return nil, errors.New("api: session is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		bind:     strings.TrimSpace(opts.Bind),
		logger:   logging.NewComponentLogger(logger, "api-server"),
		session:  opts.Session,
		provider: opts.Provider,
		history:  opts.History,
		hub:      opts.Hub,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.IdleTimeout = 60 * time.Second
	e.Use(middleware.Recover())
	e.Use(s.requestID)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelDebug
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			s.logger.Log(c.Request().Context(), level, "api request",
				logging.String("method", v.Method),
				logging.String("uri", v.URI),
				logging.Int("status", v.Status),
				logging.Duration("latency", v.Latency),
				logging.String(logging.FieldCorrelationID, v.RequestID),
			)
			return nil
		},
	}))

	g := e.Group("/api")
	g.POST("/files", s.handleUpload, middleware.BodyLimit(maxUploadSize))
	g.POST("/analyze", s.handleAnalyze)
	g.POST("/fix", s.handleFix)
	g.POST("/optimize", s.handleOptimize)
	g.POST("/translate", s.handleTranslate)
	g.POST("/cancel", s.handleCancel)
	g.GET("/status", s.handleStatus)
	g.GET("/download", s.handleDownload)
	g.POST("/title", s.handleTitle)
	g.GET("/health", s.handleHealth)
	g.GET("/history", s.handleHistory)
	g.GET("/logs", s.handleLogs)

	s.echo = e
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured bind address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return services.Wrap(services.ErrConfiguration, "api", "start", "server.bind is empty", nil)
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.echo.Listener = listener

	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.echo.Shutdown(shutdownCtx)
}

// requestID tags each request context with a correlation id, reusing the
// caller's X-Request-ID when present.
func (s *Server) requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		id := strings.TrimSpace(req.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
			req.Header.Set(requestIDHeader, id)
		}
		c.Response().Header().Set(requestIDHeader, id)
		c.SetRequest(req.WithContext(services.WithRequestID(req.Context(), id)))
		return next(c)
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := services.HTTPStatus(err)
	message := err.Error()
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		message = fmt.Sprint(httpErr.Message)
	} else if errors.Is(err, llm.ErrQuota) || errors.Is(err, llm.ErrAuth) || errors.Is(err, llm.ErrNetwork) {
		status = http.StatusBadGateway
		message = llm.UserMessage(err)
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logging.ErrorWithContext(s.logger, "api request failed", "api_request_failed",
			logging.String("uri", c.Request().RequestURI),
			logging.Error(err),
		)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	if writeErr := c.JSON(status, ErrorResponse{Error: message}); writeErr != nil {
		s.logger.Error("failed to encode response", logging.Error(writeErr))
	}
}
