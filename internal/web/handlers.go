package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/smzlabs/zonedash/internal/domain"
	"github.com/smzlabs/zonedash/internal/services/engine/location"
	"github.com/smzlabs/zonedash/internal/services/engine/permission"
	"github.com/smzlabs/zonedash/internal/services/engine/reaction"
	"github.com/smzlabs/zonedash/internal/services/market/indicators"
	"github.com/smzlabs/zonedash/pkg/metrics"
)

// Engine5Context serves the location-context engine output.
func (h *Handlers) Engine5Context(c echo.Context) error {
	symbol, _, ok := h.symbolAndTF(c)
	if !ok {
		return nil
	}

	catalog, err := h.zoneStore.LoadZones(c.Request().Context(), symbol)
	if err != nil {
		h.logger.Error("zone catalog load failed", zap.Error(err))
		metrics.UpstreamErrors.WithLabelValues("zones").Inc()
		return c.JSON(http.StatusBadGateway, echo.Map{"ok": false, "error": "upstream_error"})
	}

	metrics.EngineEvaluations.WithLabelValues("engine1").Inc()
	result := location.Evaluate(symbol, catalog, time.Now().UTC())
	return c.JSON(http.StatusOK, struct {
		OK bool `json:"ok"`
		location.Result
	}{OK: true, Result: result})
}

// zoneRef identifies the band a reaction score was computed against.
type zoneRef struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Lo     float64 `json:"lo"`
	Hi     float64 `json:"hi"`
}

type reactionResponse struct {
	OK bool `json:"ok"`
	reaction.Result
	Zone zoneRef `json:"zone"`
}

// ReactionScore serves the reaction-quality engine for one zone.
func (h *Handlers) ReactionScore(c echo.Context) error {
	symbol, tf, ok := h.symbolAndTF(c)
	if !ok {
		return nil
	}
	ctx := c.Request().Context()

	mode := domain.Mode(c.QueryParam("mode"))
	if mode == "" {
		if card, found := domain.CardByID(c.QueryParam("strategyId")); found {
			mode = card.Mode
		} else {
			mode = domain.ModeScalp
		}
	}

	zone, found, err := h.resolveZone(c, symbol)
	if err != nil {
		h.logger.Error("zone resolve failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"ok": false, "error": "upstream_error"})
	}
	if !found {
		return c.JSON(http.StatusOK, echo.Map{"ok": false, "reason": "NO_ANCHORS"})
	}

	bars, err := h.bars.GetBars(ctx, symbol, tf, 150)
	if err != nil {
		h.logger.Warn("bar fetch failed", zap.String("tf", tf), zap.Error(err))
		metrics.UpstreamErrors.WithLabelValues("bars").Inc()
		return c.JSON(http.StatusBadGateway, echo.Map{"ok": false, "error": "upstream_error"})
	}

	atr, atrOK := indicators.LatestATR(bars, h.atrPeriod)
	input := reaction.Input{
		Bars:      bars,
		Zone:      reaction.Band{Lo: zone.Lo, Hi: zone.Hi, Side: c.QueryParam("side")},
		ATR:       atr,
		Mode:      mode,
		PrevStage: domain.Stage(c.QueryParam("prevStage")),
	}
	if !atrOK {
		return c.JSON(http.StatusOK, emptyReaction(mode, zone, "ATR_UNAVAILABLE"))
	}

	metrics.EngineEvaluations.WithLabelValues("engine3").Inc()
	result, err := reaction.Evaluate(input)
	switch {
	case err == nil:
	case errors.Is(err, reaction.ErrATRUnavailable):
		return c.JSON(http.StatusOK, emptyReaction(mode, zone, "ATR_UNAVAILABLE"))
	case errors.Is(err, reaction.ErrBarsUnavailable):
		return c.JSON(http.StatusOK, emptyReaction(mode, zone, "BARS_UNAVAILABLE"))
	case errors.Is(err, reaction.ErrUnknownMode):
		return badRequest(c, "UNKNOWN_MODE")
	default:
		h.logger.Error("reaction engine failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"ok": false, "error": "REACTION_SCORE_ERROR", "detail": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, reactionResponse{OK: true, Result: result, Zone: zone})
}

// emptyReaction is the safe all-zero shape for normal data-absence states.
func emptyReaction(mode domain.Mode, zone zoneRef, reasonCode string) reactionResponse {
	return reactionResponse{
		OK: true,
		Result: reaction.Result{
			StructureState: domain.StructureHold,
			Stage:          domain.StageIdle,
			Mode:           mode,
			ReasonCodes:    []string{reasonCode},
		},
		Zone: zone,
	}
}

// resolveZone picks the band from explicit lo/hi params or from the zone
// catalog by id.
func (h *Handlers) resolveZone(c echo.Context, symbol string) (zoneRef, bool, error) {
	lo, loOK := queryFloat(c, "lo")
	hi, hiOK := queryFloat(c, "hi")
	if loOK && hiOK {
		cLo, cHi, ok := domain.CanonicalBand(lo, hi)
		if !ok {
			return zoneRef{}, false, nil
		}
		return zoneRef{ID: c.QueryParam("zoneId"), Source: "query", Lo: cLo, Hi: cHi}, true, nil
	}

	zoneID := c.QueryParam("zoneId")
	if zoneID == "" {
		return zoneRef{}, false, nil
	}

	catalog, err := h.zoneStore.LoadZones(c.Request().Context(), symbol)
	if err != nil {
		return zoneRef{}, false, err
	}
	for _, group := range []struct {
		source string
		zones  []domain.Zone
	}{
		{"sticky", catalog.Negotiated},
		{"sticky", catalog.Institutional},
		{"shelves", catalog.Shelves},
	} {
		for _, z := range group.zones {
			if z.ID == zoneID {
				return zoneRef{ID: z.ID, Source: group.source, Lo: z.Lo, Hi: z.Hi}, true, nil
			}
		}
	}
	return zoneRef{}, false, nil
}

// permissionRequest is the trade-permission input envelope.
type permissionRequest struct {
	Symbol      string             `json:"symbol"`
	TF          string             `json:"tf"`
	Engine5     domain.Engine5     `json:"engine5"`
	MarketMeter domain.MarketMeter `json:"marketMeter"`
	ZoneContext domain.ZoneContext `json:"zoneContext"`
	Intent      domain.Intent      `json:"intent"`
}

type permissionResponse struct {
	OK          bool              `json:"ok"`
	Engine      string            `json:"engine"`
	Symbol      string            `json:"symbol"`
	TF          string            `json:"tf"`
	AsOf        string            `json:"asOf"`
	Permission  domain.Permission `json:"permission"`
	ReasonCodes []string          `json:"reasonCodes"`
	Downgrade   *domain.Downgrade `json:"downgrade,omitempty"`
}

// TradePermission serves Engine 6 over a JSON body.
func (h *Handlers) TradePermission(c echo.Context) error {
	var req permissionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "BAD_JSON")
	}
	return h.decidePermission(c, req)
}

// TradePermissionQuery serves Engine 6 over a flat query echo of the input.
func (h *Handlers) TradePermissionQuery(c echo.Context) error {
	total, _ := queryFloat(c, "engine5Total")
	req := permissionRequest{
		Symbol: c.QueryParam("symbol"),
		TF:     c.QueryParam("tf"),
		Engine5: domain.Engine5{
			Invalid: queryBool(c, "engine5Invalid"),
			Total:   total,
			Bias:    c.QueryParam("engine5Bias"),
		},
		MarketMeter: domain.MarketMeter{
			EOD: domain.MeterReading{Risk: c.QueryParam("eodRisk")},
		},
		ZoneContext: domain.ZoneContext{
			ZoneType:   domain.ZoneKind(strings.ToUpper(c.QueryParam("zoneType"))),
			ZoneID:     c.QueryParam("zoneId"),
			WithinZone: queryBool(c, "withinZone"),
			Flags: domain.ZoneContextFlags{
				Degraded:       queryBool(c, "degraded"),
				LiquidityFail:  queryBool(c, "liquidityFail"),
				ReactionFailed: queryBool(c, "reactionFailed"),
			},
		},
		Intent: domain.Intent{Action: domain.IntentAction(c.QueryParam("action"))},
	}
	return h.decidePermission(c, req)
}

func (h *Handlers) decidePermission(c echo.Context, req permissionRequest) error {
	if req.Symbol == "" {
		req.Symbol = h.symbol
	}
	if req.Symbol != h.symbol {
		return c.JSON(http.StatusBadRequest, echo.Map{"ok": false, "error": "SYMBOL_NOT_SUPPORTED_YET"})
	}
	if req.Intent.Action == "" {
		req.Intent.Action = domain.ActionNewEntry
	}
	if req.ZoneContext.ZoneType == "" {
		req.ZoneContext.ZoneType = domain.ZoneNone
	}

	metrics.EngineEvaluations.WithLabelValues("engine6").Inc()
	verdict := permission.Decide(permission.Input{
		Engine5:     req.Engine5,
		MarketMeter: req.MarketMeter,
		ZoneContext: req.ZoneContext,
		Intent:      req.Intent,
	})

	return c.JSON(http.StatusOK, permissionResponse{
		OK:          true,
		Engine:      "engine6.tradePermission",
		Symbol:      req.Symbol,
		TF:          req.TF,
		AsOf:        time.Now().UTC().Format(time.RFC3339),
		Permission:  verdict.Permission,
		ReasonCodes: verdict.ReasonCodes,
		Downgrade:   verdict.Downgrade,
	})
}

// DashboardSnapshot serves the aggregated per-strategy snapshot.
func (h *Handlers) DashboardSnapshot(c echo.Context) error {
	if _, ok := h.guardSymbolOnly(c); !ok {
		return nil
	}

	includeContext := queryBool(c, "includeContext")
	snap := h.aggregator.Snapshot(c.Request().Context(), includeContext)
	return c.JSON(http.StatusOK, snap)
}

// FibLevels serves one filtered item from the fib catalog.
func (h *Handlers) FibLevels(c echo.Context) error {
	symbol, tf, ok := h.symbolAndTF(c)
	if !ok {
		return nil
	}

	waveKey := c.QueryParam("wave")
	if waveKey == "" {
		waveKey = "W1"
	}
	if waveKey != "W1" && waveKey != "W4" {
		return badRequest(c, "BAD_WAVE")
	}

	item, exists, err := h.fibs.Find(symbol, tf, c.QueryParam("degree"), waveKey)
	if err != nil {
		h.logger.Error("fib catalog read failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"ok": false, "error": "upstream_error"})
	}
	if !exists {
		return c.JSON(http.StatusOK, echo.Map{"ok": false, "reason": "NOT_BUILT_YET"})
	}
	if item == nil {
		return c.JSON(http.StatusOK, echo.Map{"ok": false, "reason": "NO_MATCH"})
	}
	return c.JSON(http.StatusOK, item)
}

// CheckGo runs one GO watcher tick.
func (h *Handlers) CheckGo(c echo.Context) error {
	if h.watcher == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"ok": false, "error": "watcher_disabled"})
	}
	result := h.watcher.Tick(c.Request().Context())
	outcome := result.Why
	if result.Sent {
		outcome = "sent"
	}
	if outcome != "" {
		metrics.AlertOutcomes.WithLabelValues(outcome).Inc()
	}
	return c.JSON(http.StatusOK, result)
}

// AlertHistory serves the alert audit trail after a WAL index.
func (h *Handlers) AlertHistory(c echo.Context) error {
	if h.history == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"ok": false, "error": "history_disabled"})
	}
	after, _ := strconv.ParseUint(c.QueryParam("after"), 10, 64)
	records, err := h.history.EventsAfter(after)
	if err != nil {
		h.logger.Error("alert history read failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"ok": false, "error": "history_read_failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "records": records})
}
