package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const sseHeartbeat = 15 * time.Second

// MarketStream relays live minute aggregates to the browser over SSE.
func (h *Handlers) MarketStream(c echo.Context) error {
	if h.stream == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"ok": false, "error": "stream_disabled"})
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	events, cancel := h.stream.Subscribe()
	defer cancel()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case ev, open := <-events:
			if !open {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("sse encode failed", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(res, "event: bar\ndata: %s\n\n", data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
