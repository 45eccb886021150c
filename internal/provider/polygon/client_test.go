package polygon

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-stats/internal/model"
	"market-stats/internal/provider"
)

// 2024-01-02 05:00 UTC and 2024-01-03 05:00 UTC (midnight New York)
const aggsOK = `{"ticker":"SPY","status":"OK","adjusted":true,"resultsCount":2,
  "results":[{"t":1704171600000,"c":472.65},{"t":1704258000000,"c":468.79}]}`

func newTestClient(t *testing.T, url string, keys ...string) *Client {
	t.Helper()
	if len(keys) == 0 {
		keys = []string{"key1"}
	}
	c, err := New(keys, WithBaseURL(url), WithKeyCooldown(0), WithRetryDelay(time.Millisecond))
	require.NoError(t, err)
	return c
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New([]string{" ", ""})
	require.Error(t, err)
}

func TestFetchDailyAggregates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/aggs/ticker/SPY/range/1/day/2024-01-01/2024-01-05", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("adjusted"))
		assert.Equal(t, "key1", r.URL.Query().Get("apiKey"))
		w.Write([]byte(aggsOK))
	}))
	defer srv.Close()

	got, err := newTestClient(t, srv.URL).Fetch(context.Background(), "SPY",
		model.MustParseDate("2024-01-01"), model.MustParseDate("2024-01-05"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Date.Equal(model.MustParseDate("2024-01-02")))
	assert.Equal(t, 468.79, got[1].Price)
}

func TestFetchFollowsNextURL(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/page2" {
			assert.Equal(t, "key1", r.URL.Query().Get("apiKey"))
			w.Write([]byte(`{"status":"OK","results":[{"t":1704258000000,"c":468.79}]}`))
			return
		}
		fmt.Fprintf(w, `{"status":"OK","results":[{"t":1704171600000,"c":472.65}],"next_url":"%s/page2?cursor=abc"}`, srvURL)
	}))
	defer srv.Close()
	srvURL = srv.URL

	got, err := newTestClient(t, srv.URL).Fetch(context.Background(), "SPY",
		model.MustParseDate("2024-01-01"), model.MustParseDate("2024-01-05"))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFetchRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(aggsOK))
	}))
	defer srv.Close()

	got, err := newTestClient(t, srv.URL).Fetch(context.Background(), "SPY",
		model.MustParseDate("2024-01-01"), model.MustParseDate("2024-01-05"))
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Fetch(context.Background(), "SPY",
		model.MustParseDate("2024-01-01"), model.MustParseDate("2024-01-05"))
	require.ErrorIs(t, err, provider.ErrUnavailable)
	assert.Equal(t, int32(maxRetries), calls.Load())
}

func TestFetchForbiddenIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"status":"NOT_AUTHORIZED"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Fetch(context.Background(), "SPY",
		model.MustParseDate("2024-01-01"), model.MustParseDate("2024-01-05"))
	require.ErrorIs(t, err, provider.ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"NOT_FOUND","request_id":"x"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Fetch(context.Background(), "NOPE",
		model.MustParseDate("2024-01-01"), model.MustParseDate("2024-01-05"))
	require.ErrorIs(t, err, provider.ErrNoData)
}

func TestKeyPoolSpreadsRequests(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.URL.Query().Get("apiKey")]++
		mu.Unlock()
		w.Write([]byte(aggsOK))
	}))
	defer srv.Close()

	c, err := New([]string{"k1", "k2", "k3"}, WithBaseURL(srv.URL), WithKeyCooldown(50*time.Millisecond))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Fetch(context.Background(), "SPY",
				model.MustParseDate("2024-01-01"), model.MustParseDate("2024-01-05"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, map[string]int{"k1": 1, "k2": 1, "k3": 1}, seen)
}

func TestKeyPoolAcquireHonoursContext(t *testing.T) {
	p := newKeyPool([]string{"only"}, time.Hour)
	k, err := p.acquire(context.Background())
	require.NoError(t, err)
	p.release(k)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func BenchmarkKeyPool(b *testing.B) {
	p := newKeyPool([]string{"key1", "key2", "key3"}, 0)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k, _ := p.acquire(ctx)
		p.release(k)
	}
}
