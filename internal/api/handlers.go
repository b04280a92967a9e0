package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/fileutil"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/logging"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services"
	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/services/llm"
)

const (
	defaultLogLimit     = 200
	defaultHistoryLimit = 50
	healthProbeTimeout  = 30 * time.Second
)

func (s *Server) handleUpload(c echo.Context) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return services.Wrap(services.ErrValidation, "api", "upload", "read request body", err)
	}
	name := strings.TrimSpace(c.QueryParam("name"))
	result, err := s.session.Load(name, fileutil.DecodeText(data))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, LoadResponse(result))
}

func (s *Server) handleAnalyze(c echo.Context) error {
	analysis, err := s.session.Analyze()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AnalyzeResponse{Analysis: analysis})
}

func (s *Server) handleFix(c echo.Context) error {
	report, err := s.session.FixLocal(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, FixResponse{Report: report})
}

func (s *Server) handleOptimize(c echo.Context) error {
	run, err := s.session.StartOptimize()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, RunResponse{Run: FromRunStatus(run)})
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req TitleRequest
	if err := c.Bind(&req); err != nil {
		return services.Wrap(services.ErrValidation, "api", "translate", "invalid request body", err)
	}
	run, err := s.session.StartTranslate(req.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, RunResponse{Run: FromRunStatus(run)})
}

func (s *Server) handleCancel(c echo.Context) error {
	return c.JSON(http.StatusOK, CancelResponse{Canceled: s.session.Cancel()})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, FromStatus(s.session.Status()))
}

func (s *Server) handleDownload(c echo.Context) error {
	name, content, err := s.session.Download()
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, contentDisposition(name))
	return c.Blob(http.StatusOK, "application/x-subrip; charset=utf-8", []byte(content))
}

func (s *Server) handleTitle(c echo.Context) error {
	var req TitleRequest
	if err := c.Bind(&req); err != nil {
		return services.Wrap(services.ErrValidation, "api", "title", "invalid request body", err)
	}
	if strings.TrimSpace(req.Title) == "" {
		return services.Wrap(services.ErrValidation, "api", "title", "title is required", nil)
	}
	analysis, err := s.session.AnalyzeTitle(c.Request().Context(), req.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TitleResponse{Analysis: analysis})
}

// handleHealth reports readiness. With probe=true it also sends a tiny
// request to the provider.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", AIEnabled: s.provider != nil}
	if s.provider != nil {
		resp.Provider = s.provider.Name()
		resp.Model = s.provider.Model()
	}
	probe, _ := strconv.ParseBool(c.QueryParam("probe"))
	if !probe {
		return c.JSON(http.StatusOK, resp)
	}

	resp.Probed = true
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthProbeTimeout)
	defer cancel()
	if err := llm.HealthCheck(ctx, s.provider); err != nil {
		resp.Status = "degraded"
		resp.Error = llm.UserMessage(err)
		logging.WarnWithContext(s.logger, "provider health probe failed", "provider_health_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, resp.Error),
		)
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.history == nil {
		return c.JSON(http.StatusOK, HistoryResponse{Runs: []HistoryEntry{}})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	runs, err := s.history.ListRuns(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	entries := make([]HistoryEntry, 0, len(runs))
	for _, run := range runs {
		entries = append(entries, FromRun(run))
	}
	return c.JSON(http.StatusOK, HistoryResponse{Runs: entries})
}

// handleLogs pages through the in-memory log stream. follow=true long-polls
// until new events arrive; tail=true returns the newest events.
func (s *Server) handleLogs(c echo.Context) error {
	if s.hub == nil {
		return c.JSON(http.StatusOK, LogStreamResponse{})
	}
	since, _ := strconv.ParseUint(c.QueryParam("since"), 10, 64)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = defaultLogLimit
	}
	follow, _ := strconv.ParseBool(c.QueryParam("follow"))
	tail, _ := strconv.ParseBool(c.QueryParam("tail"))
	component := strings.TrimSpace(c.QueryParam("component"))
	runID := strings.TrimSpace(c.QueryParam("run"))

	var (
		events []LogEvent
		next   uint64
	)
	if tail && since == 0 && !follow {
		raw, cursor := s.hub.Tail(limit)
		events, next = convertLogEvents(raw), cursor
	} else {
		raw, cursor, err := s.hub.Fetch(c.Request().Context(), since, limit, follow)
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		events, next = convertLogEvents(raw), cursor
	}

	filtered := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		if runID != "" && evt.RunID != runID {
			continue
		}
		filtered = append(filtered, evt)
	}
	return c.JSON(http.StatusOK, LogStreamResponse{Events: filtered, Next: next})
}

func contentDisposition(name string) string {
	ascii := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	return `attachment; filename="` + ascii + `"; filename*=UTF-8''` + url.PathEscape(name)
}
