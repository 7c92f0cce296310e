// Package dashboard joins the per-strategy engine outputs into the single
// snapshot response that drives the strategy cards.
package dashboard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/smzlabs/zonedash/internal/domain"
	"github.com/smzlabs/zonedash/internal/services/engine/confluence"
	"github.com/smzlabs/zonedash/internal/services/engine/location"
	"github.com/smzlabs/zonedash/internal/services/engine/permission"
	"github.com/smzlabs/zonedash/internal/services/engine/wave"
	"github.com/smzlabs/zonedash/internal/services/market"
	"github.com/smzlabs/zonedash/internal/services/zones"
)

// ErrorSlot is the degraded placeholder for one failed dependency. A failed
// slot never fails the whole snapshot.
type ErrorSlot struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// PermissionResult is the engine6 slice of a card.
type PermissionResult struct {
	OK          bool                    `json:"ok"`
	Engine      string                  `json:"engine"`
	Symbol      string                  `json:"symbol"`
	TF          string                  `json:"tf"`
	AsOf        string                  `json:"asOf"`
	Permission  domain.Permission       `json:"permission"`
	ReasonCodes []string                `json:"reasonCodes"`
	Downgrade   *domain.Downgrade       `json:"downgrade,omitempty"`
}

// Card is one strategy slot of the snapshot.
type Card struct {
	Confluence any `json:"confluence"`
	Permission any `json:"permission"`
	Engine2    any `json:"engine2"`
	Context    any `json:"context,omitempty"`
}

// Snapshot is the aggregated dashboard response.
type Snapshot struct {
	OK             bool            `json:"ok"`
	Symbol         string          `json:"symbol"`
	Now            string          `json:"now"`
	IncludeContext bool            `json:"includeContext"`
	Strategies     map[string]Card `json:"strategies"`
}

// Aggregator fans the engines out across the three strategy cards.
type Aggregator struct {
	symbol     string
	confluence confluence.Provider
	zoneStore  *zones.Store
	bars       market.Provider
	fibs       *wave.Catalog
	logger     *zap.Logger
}

// NewAggregator wires the aggregator over its collaborators.
func NewAggregator(symbol string, conf confluence.Provider, zoneStore *zones.Store, bars market.Provider, fibs *wave.Catalog, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		symbol:     symbol,
		confluence: conf,
		zoneStore:  zoneStore,
		bars:       bars,
		fibs:       fibs,
		logger:     logger,
	}
}

// Snapshot evaluates all strategy cards in parallel. Per-card dependencies
// are fetched concurrently; Engine 6 runs once the confluence result is in.
func (a *Aggregator) Snapshot(ctx context.Context, includeContext bool) Snapshot {
	snap := Snapshot{
		OK:             true,
		Symbol:         a.symbol,
		Now:            time.Now().UTC().Format(time.RFC3339),
		IncludeContext: includeContext,
		Strategies:     make(map[string]Card, len(domain.StrategyCards)),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, card := range domain.StrategyCards {
		g.Go(func() error {
			result := a.evaluateCard(ctx, card, includeContext)
			mu.Lock()
			snap.Strategies[card.ID] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return snap
}

func (a *Aggregator) evaluateCard(ctx context.Context, card domain.StrategyCard, includeContext bool) Card {
	var (
		wg       sync.WaitGroup
		confResp confluence.Response
		confErr  error
		e2Block  wave.Block
		e2Err    error
		e1Result location.Result
		e1Err    error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		confResp, confErr = a.confluence.Fetch(ctx, a.symbol, card.TF, card.ID)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e2Block, e2Err = a.engine2(ctx, card)
	}()

	if includeContext {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var catalog domain.ZoneCatalog
			catalog, e1Err = a.zoneStore.LoadZones(ctx, a.symbol)
			if e1Err == nil {
				e1Result = location.Evaluate(a.symbol, catalog, time.Now().UTC())
			}
		}()
	}
	wg.Wait()

	var result Card

	if confErr != nil {
		a.logger.Warn("confluence slot degraded", zap.String("strategy", card.ID), zap.Error(confErr))
		result.Confluence = ErrorSlot{Error: "upstream_error"}
		result.Permission = ErrorSlot{Error: "upstream_error"}
	} else {
		result.Confluence = confResp
		verdict := permission.Decide(permission.Input{
			Engine5:     confResp.Engine5,
			MarketMeter: confResp.Meter,
			ZoneContext: confResp.Zone,
			Intent:      domain.Intent{Action: domain.ActionNewEntry},
		})
		result.Permission = PermissionResult{
			OK:          true,
			Engine:      "engine6.tradePermission",
			Symbol:      a.symbol,
			TF:          card.TF,
			AsOf:        time.Now().UTC().Format(time.RFC3339),
			Permission:  verdict.Permission,
			ReasonCodes: verdict.ReasonCodes,
			Downgrade:   verdict.Downgrade,
		}
	}

	if e2Err != nil {
		a.logger.Warn("engine2 slot degraded", zap.String("strategy", card.ID), zap.Error(e2Err))
		result.Engine2 = ErrorSlot{Error: "upstream_error"}
	} else {
		result.Engine2 = e2Block
	}

	if includeContext {
		if e1Err != nil {
			a.logger.Warn("context slot degraded", zap.String("strategy", card.ID), zap.Error(e1Err))
			result.Context = ErrorSlot{Error: "upstream_error"}
		} else {
			result.Context = e1Result
		}
	}

	return result
}

// engine2 builds the card's Elliott block from the fib catalog and the last
// bar time of the card's display timeframe.
func (a *Aggregator) engine2(ctx context.Context, card domain.StrategyCard) (wave.Block, error) {
	w1, _, err := a.fibs.Find(a.symbol, card.WaveTF, card.WaveDegree, "W1")
	if err != nil {
		return wave.Block{}, err
	}
	w4, _, err := a.fibs.Find(a.symbol, card.WaveTF, card.WaveDegree, "W4")
	if err != nil {
		return wave.Block{}, err
	}

	var lastBarSec int64
	bars, err := a.bars.GetBars(ctx, a.symbol, card.WaveTF, 2)
	if err == nil && len(bars) > 0 {
		lastBarSec = bars[len(bars)-1].Time
	} else if err != nil {
		a.logger.Debug("engine2 bar time unavailable", zap.String("strategy", card.ID), zap.Error(err))
	}

	return wave.Summarize(w1, w4, lastBarSec), nil
}

// GoStatus polls the confluence side for the scalp card's GO signal. Used by
// the alert watcher.
func (a *Aggregator) GoStatus(ctx context.Context) (domain.GoSignal, string, error) {
	card := domain.StrategyCards[0]
	resp, err := a.confluence.Fetch(ctx, a.symbol, card.TF, card.ID)
	if err != nil {
		return domain.GoSignal{}, card.ID, err
	}
	if resp.Go == nil {
		return domain.GoSignal{}, card.ID, nil
	}
	return *resp.Go, card.ID, nil
}
