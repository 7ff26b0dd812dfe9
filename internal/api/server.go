// Package api serves the generated dataset over HTTP and lets an operator
// trigger a refresh.
package api

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/david/eventfeed/internal/ingest"
	"github.com/david/eventfeed/internal/logger"
	"github.com/david/eventfeed/internal/models"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// RefreshFunc runs the pipeline and rewrites the dataset file.
type RefreshFunc func(ctx context.Context) (ingest.Report, error)

type Server struct {
	Store   *Store
	Echo    *echo.Echo
	Refresh RefreshFunc
	Log     logger.Logger

	adminSecret string

	refreshMu  sync.Mutex
	refreshing *refreshJob
}

type refreshJob struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

// ItemsPage is the response of GET /api/v1/items.
type ItemsPage struct {
	Items  []models.Item `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type SourceCount struct {
	Source string `json:"source"`
	Items  int    `json:"items"`
}

// RefreshSummary is returned by POST /api/v1/refresh.
type RefreshSummary struct {
	RunID      string           `json:"run_id"`
	Items      int              `json:"items"`
	Collected  int              `json:"collected"`
	Rejected   int              `json:"rejected"`
	Duplicates int              `json:"duplicates"`
	Truncated  int              `json:"truncated"`
	AllFailed  bool             `json:"all_failed"`
	Failures   []ingest.Failure `json:"failures"`
}

// NewServer wires routes. An empty adminSecret is replaced by a random one
// for the lifetime of the process, so refresh stays closed by default.
func NewServer(store *Store, refresh RefreshFunc, adminSecret string, log logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if adminSecret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		adminSecret = base64.RawURLEncoding.EncodeToString(buf)
		log.Warn("ADMIN_SECRET is not set; refresh endpoint uses an ephemeral secret")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogMethod:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Duration("duration", v.Latency),
			)
			return nil
		},
	}))

	s := &Server{
		Store:       store,
		Echo:        e,
		Refresh:     refresh,
		Log:         log,
		adminSecret: adminSecret,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")
	api.GET("/dataset", s.handleDataset)
	api.GET("/items", s.handleListItems)
	api.GET("/sources", s.handleSources)

	admin := api.Group("")
	admin.Use(s.adminMiddleware)
	admin.POST("/refresh", s.handleRefresh)
}

func (s *Server) Start(addr string) error {
	return s.Echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) datasetError(c echo.Context, err error) error {
	if errors.Is(err, ErrNoDataset) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	}
	s.Log.Error("load dataset", logger.Error(err))
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
}

func (s *Server) handleDataset(c echo.Context) error {
	ds, err := s.Store.Dataset()
	if err != nil {
		return s.datasetError(c, err)
	}
	return c.JSON(http.StatusOK, ds)
}

func (s *Server) handleListItems(c echo.Context) error {
	ds, err := s.Store.Dataset()
	if err != nil {
		return s.datasetError(c, err)
	}

	limit := defaultLimit
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= maxLimit {
		limit = l
	}
	offset := 0
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}

	matched := filterItems(ds.Items, itemQuery{
		Sources: splitCSV(c.QueryParam("source")),
		Tags:    splitCSV(c.QueryParam("tag")),
		Text:    strings.ToLower(strings.TrimSpace(c.QueryParam("q"))),
	})

	page := ItemsPage{Items: []models.Item{}, Total: len(matched), Limit: limit, Offset: offset}
	if offset < len(matched) {
		end := min(offset+limit, len(matched))
		page.Items = matched[offset:end]
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleSources(c echo.Context) error {
	ds, err := s.Store.Dataset()
	if err != nil {
		return s.datasetError(c, err)
	}

	var counts []SourceCount
	index := map[string]int{}
	for _, it := range ds.Items {
		i, ok := index[it.Source]
		if !ok {
			i = len(counts)
			index[it.Source] = i
			counts = append(counts, SourceCount{Source: it.Source})
		}
		counts[i].Items++
	}
	if counts == nil {
		counts = []SourceCount{}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"generatedAt": ds.Meta.GeneratedAt,
		"sources":     ds.Meta.Sources,
		"counts":      counts,
	})
}

func (s *Server) handleRefresh(c echo.Context) error {
	if s.Refresh == nil {
		return c.JSON(http.StatusNotImplemented, map[string]string{"error": "refresh is not configured"})
	}

	s.refreshMu.Lock()
	if s.refreshing != nil {
		job := s.refreshing
		s.refreshMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]any{
			"error":      "A refresh is already running",
			"job_id":     job.ID,
			"started_at": job.StartedAt,
		})
	}
	job := &refreshJob{ID: strconv.FormatInt(time.Now().UnixNano(), 36), StartedAt: time.Now()}
	s.refreshing = job
	s.refreshMu.Unlock()

	defer func() {
		s.refreshMu.Lock()
		s.refreshing = nil
		s.refreshMu.Unlock()
	}()

	report, err := s.Refresh(c.Request().Context())
	if err != nil {
		s.Log.Error("refresh failed", logger.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	s.Store.Invalidate()

	failures := report.Failures
	if failures == nil {
		failures = []ingest.Failure{}
	}
	return c.JSON(http.StatusOK, RefreshSummary{
		RunID:      report.RunID,
		Items:      report.Items,
		Collected:  report.Collected,
		Rejected:   report.Rejected,
		Duplicates: report.Duplicates,
		Truncated:  report.Truncated,
		AllFailed:  report.AllFailed(),
		Failures:   failures,
	})
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Check X-Admin-Secret header or Bearer token
		if s.secretMatches(c.Request().Header.Get("X-Admin-Secret")) {
			return next(c)
		}
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") && s.secretMatches(authHeader[7:]) {
			return next(c)
		}
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized admin access"})
	}
}

func (s *Server) secretMatches(candidate string) bool {
	if candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.adminSecret)) == 1
}
