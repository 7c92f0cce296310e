// Package web exposes the dashboard HTTP surface: the engine endpoints, the
// aggregated snapshot, the GO watcher trigger and the SSE market stream.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/smzlabs/zonedash/internal/services/alerts"
	"github.com/smzlabs/zonedash/internal/services/dashboard"
	"github.com/smzlabs/zonedash/internal/services/engine/wave"
	"github.com/smzlabs/zonedash/internal/services/market"
	"github.com/smzlabs/zonedash/internal/services/zones"
	"github.com/smzlabs/zonedash/internal/storage/alerthistory"
	"github.com/smzlabs/zonedash/pkg/metrics"
)

// Server is the HTTP edge of the dashboard backend.
type Server struct {
	addr     string
	symbol   string
	echo     *echo.Echo
	logger   *zap.Logger
	handlers *Handlers
}

// NewServer wires routes and middleware over the given handlers.
func NewServer(addr, symbol string, h *Handlers, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	e.Use(requestMetrics())

	api := e.Group("/api/v1")
	api.GET("/engine5-context", h.Engine5Context)
	api.GET("/reaction-score", h.ReactionScore)
	api.POST("/trade-permission", h.TradePermission)
	api.GET("/trade-permission", h.TradePermissionQuery)
	api.GET("/dashboard-snapshot", h.DashboardSnapshot)
	api.GET("/fib-levels", h.FibLevels)
	api.POST("/alerts/check-go", h.CheckGo)
	api.GET("/alerts/history", h.AlertHistory)
	api.GET("/stream", h.MarketStream)

	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return &Server{addr: addr, symbol: symbol, echo: e, logger: logger, handlers: h}
}

// Start runs the server until ctx is cancelled, then shuts it down.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", zap.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handlers carries the endpoint dependencies.
type Handlers struct {
	symbol     string
	atrPeriod  int
	zoneStore  *zones.Store
	bars       market.Provider
	fibs       *wave.Catalog
	aggregator *dashboard.Aggregator
	watcher    *alerts.Watcher
	history    *alerthistory.WALStore
	stream     *market.Stream
	logger     *zap.Logger
}

// NewHandlers bundles the endpoint collaborators. watcher, history and
// stream may be nil when the corresponding feature is disabled.
func NewHandlers(symbol string, zoneStore *zones.Store, bars market.Provider, fibs *wave.Catalog, aggregator *dashboard.Aggregator, watcher *alerts.Watcher, history *alerthistory.WALStore, stream *market.Stream, logger *zap.Logger) *Handlers {
	return &Handlers{
		symbol:     symbol,
		atrPeriod:  14,
		zoneStore:  zoneStore,
		bars:       bars,
		fibs:       fibs,
		aggregator: aggregator,
		watcher:    watcher,
		history:    history,
		stream:     stream,
		logger:     logger,
	}
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Debug("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("took", time.Since(start)))
			return err
		}
	}
}

func requestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			status := c.Response().Status
			metrics.HTTPRequests.WithLabelValues(c.Path(), fmt.Sprintf("%dxx", status/100)).Inc()
			return err
		}
	}
}

// invalidResponse is the 4xx input-error envelope.
type invalidResponse struct {
	OK          bool     `json:"ok"`
	Invalid     bool     `json:"invalid"`
	ReasonCodes []string `json:"reasonCodes"`
}

func badRequest(c echo.Context, codes ...string) error {
	return c.JSON(http.StatusBadRequest, invalidResponse{Invalid: true, ReasonCodes: codes})
}

// symbolAndTF validates the two required query params. The bool reports
// whether the request was already answered.
func (h *Handlers) symbolAndTF(c echo.Context) (string, string, bool) {
	symbol := c.QueryParam("symbol")
	tf := c.QueryParam("tf")
	if symbol == "" || tf == "" {
		_ = badRequest(c, "MISSING_SYMBOL_OR_TF")
		return "", "", false
	}
	if symbol != h.symbol {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "SYMBOL_NOT_SUPPORTED_YET"})
		return "", "", false
	}
	return symbol, tf, true
}

func queryBool(c echo.Context, name string) bool {
	v, _ := strconv.ParseBool(c.QueryParam(name))
	return v
}

func queryFloat(c echo.Context, name string) (float64, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// guardSymbolOnly validates just the symbol (for endpoints without tf).
func (h *Handlers) guardSymbolOnly(c echo.Context) (string, bool) {
	symbol := c.QueryParam("symbol")
	if symbol == "" {
		symbol = h.symbol
	}
	if symbol != h.symbol {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "SYMBOL_NOT_SUPPORTED_YET"})
		return "", false
	}
	return symbol, true
}
