// Package market fetches OHLCV bars from the upstream aggregator and
// derives N-minute series from the raw 1-minute feed.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/smzlabs/zonedash/internal/domain"
	"github.com/smzlabs/zonedash/pkg/retrier"
)

// Provider returns an ordered bar sequence for (symbol, timeframe).
type Provider interface {
	GetBars(ctx context.Context, symbol, tf string, limit int) (domain.Bars, error)
}

// TimeframeMinutes parses a timeframe label ("1m", "10m", "1h", "4h", "1d")
// into minutes.
func TimeframeMinutes(tf string) (int, error) {
	tf = strings.ToLower(strings.TrimSpace(tf))
	if tf == "" {
		return 0, errors.New("empty timeframe")
	}
	unit := tf[len(tf)-1]
	n, err := strconv.Atoi(tf[:len(tf)-1])
	if err != nil || n <= 0 {
		return 0, errors.Errorf("bad timeframe %q", tf)
	}
	switch unit {
	case 'm':
		return n, nil
	case 'h':
		return n * 60, nil
	case 'd':
		return n * 60 * 24, nil
	default:
		return 0, errors.Errorf("bad timeframe unit %q", tf)
	}
}

type aggsResult struct {
	T int64   `json:"t"` // start ms
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

type aggsResponse struct {
	Status  string       `json:"status"`
	Results []aggsResult `json:"results"`
}

// AggregatesClient fetches minute aggregates over the aggregator REST API
// and bucketizes them to the requested timeframe.
type AggregatesClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   *retrier.Retrier
	logger  *zap.Logger
}

// NewAggregatesClient creates a REST bar provider with an explicit timeout.
func NewAggregatesClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *AggregatesClient {
	return &AggregatesClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		retry:   retrier.New(retrier.WithMaxRetries(2), retrier.WithInitialInterval(250*time.Millisecond)),
		logger:  logger,
	}
}

// GetBars returns the last limit bars for (symbol, tf), bucketized from the
// upstream 1-minute feed.
func (c *AggregatesClient) GetBars(ctx context.Context, symbol, tf string, limit int) (domain.Bars, error) {
	minutes, err := TimeframeMinutes(tf)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	to := time.Now().UTC()
	// pad the window so partially filled edge buckets do not starve the tail
	from := to.Add(-time.Duration((limit+2)*minutes) * time.Minute)

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/minute/%d/%d?adjusted=true&sort=asc&limit=50000&apiKey=%s",
		c.baseURL, strings.ToUpper(symbol), from.UnixMilli(), to.UnixMilli(), c.apiKey)

	body, err := retrier.DoWithData(c.retry, ctx, func(ctx context.Context) (*aggsResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, errors.Wrap(err, "build aggregates request")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, errors.Wrap(err, "fetch aggregates")
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, errors.Errorf("aggregates returned status %d", resp.StatusCode)
		}
		var out aggsResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, errors.Wrap(err, "decode aggregates")
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}

	minuteBars := make(domain.Bars, 0, len(body.Results))
	for _, r := range body.Results {
		minuteBars = append(minuteBars, domain.Bar{
			Time:   r.T / 1000,
			Open:   r.O,
			High:   r.H,
			Low:    r.L,
			Close:  r.C,
			Volume: r.V,
		})
	}

	bars := Bucketize(minuteBars, minutes)
	c.logger.Debug("fetched bars",
		zap.String("symbol", symbol),
		zap.String("tf", tf),
		zap.Int("minute_bars", len(minuteBars)),
		zap.Int("bars", len(bars)))
	return bars.Tail(limit), nil
}

// Bucketize folds 1-minute bars into n-minute buckets aligned to epoch
// boundaries. Input order does not matter; output is ascending by time.
func Bucketize(minuteBars domain.Bars, n int) domain.Bars {
	if n <= 1 {
		out := append(domain.Bars(nil), minuteBars...)
		sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
		return out
	}

	span := int64(n) * 60
	buckets := make(map[int64]*domain.Bar)
	order := make([]int64, 0, len(minuteBars)/n+1)

	sorted := append(domain.Bars(nil), minuteBars...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	for _, b := range sorted {
		start := b.Time - b.Time%span
		agg, ok := buckets[start]
		if !ok {
			clone := b
			clone.Time = start
			buckets[start] = &clone
			order = append(order, start)
			continue
		}
		if b.High > agg.High {
			agg.High = b.High
		}
		if b.Low < agg.Low {
			agg.Low = b.Low
		}
		agg.Close = b.Close
		agg.Volume += b.Volume
	}

	out := make(domain.Bars, 0, len(order))
	for _, start := range order {
		out = append(out, *buckets[start])
	}
	return out
}
