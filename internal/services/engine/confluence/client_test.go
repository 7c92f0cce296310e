package confluence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smzlabs/zonedash/internal/domain"
)

func TestFetchPassesQueryAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/confluence", r.URL.Path)
		require.Equal(t, "SPY", r.URL.Query().Get("symbol"))
		require.Equal(t, "10m", r.URL.Query().Get("tf"))
		require.Equal(t, "intraday_scalp@10m", r.URL.Query().Get("strategyId"))

		_ = json.NewEncoder(w).Encode(Response{
			OK:      true,
			Engine5: domain.Engine5{Total: 77, Bias: "LONG"},
			Go:      &domain.GoSignal{Signal: true, AtUTC: "2025-06-02T14:29:40Z"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	resp, err := client.Fetch(context.Background(), "SPY", "10m", "intraday_scalp@10m")

	require.NoError(t, err)
	require.True(t, resp.OK)
	require.InDelta(t, 77.0, resp.Engine5.Total, 1e-9)
	require.NotNil(t, resp.Go)
	require.True(t, resp.Go.Signal)
}

func TestFetchRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	_, err := client.Fetch(context.Background(), "SPY", "10m", "intraday_scalp@10m")
	require.Error(t, err)
}

func TestFetchRejectsGarbageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	_, err := client.Fetch(context.Background(), "SPY", "10m", "intraday_scalp@10m")
	require.Error(t, err)
}
