// Package confluence consumes the external confluence engine (E5). Only the
// shape of its response is owned here; the score itself is computed upstream.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/smzlabs/zonedash/internal/domain"
)

// Response is the consumed confluence contract: the composite score plus
// the market meter and zone context snapshots it was computed against.
type Response struct {
	OK      bool               `json:"ok"`
	Engine5 domain.Engine5     `json:"engine5"`
	Meter   domain.MarketMeter `json:"meter"`
	Zone    domain.ZoneContext `json:"zone"`
	Go      *domain.GoSignal   `json:"go,omitempty"`
}

// Provider fetches the confluence snapshot for one strategy card.
type Provider interface {
	Fetch(ctx context.Context, symbol, tf, strategyID string) (Response, error)
}

// Client is the HTTP confluence provider.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a confluence client with an explicit per-call timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Fetch calls the confluence endpoint for (symbol, tf, strategyId).
func (c *Client) Fetch(ctx context.Context, symbol, tf, strategyID string) (Response, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("tf", tf)
	q.Set("strategyId", strategyID)

	endpoint := fmt.Sprintf("%s/api/v1/confluence?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Response{}, errors.Wrap(err, "build confluence request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, errors.Wrap(err, "call confluence")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, errors.Errorf("confluence returned status %d", resp.StatusCode)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, errors.Wrap(err, "decode confluence response")
	}
	return out, nil
}
