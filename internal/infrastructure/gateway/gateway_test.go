package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cartwise/backend/internal/domain"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGateway builds a gateway with a generous rate ceiling so only the
// spacing test ever waits on the limiter.
func newTestGateway(t *testing.T, cfg Config) *Gateway {
	t.Helper()
	if cfg.RPMKeyless == 0 {
		cfg.RPMKeyless = 60000
	}
	g := New(cfg)
	httpmock.ActivateNonDefault(g.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
	return g
}

func TestDo_CachesSuccessfulResponses(t *testing.T) {
	g := newTestGateway(t, Config{})
	httpmock.RegisterResponder("GET", "https://reader.test/v1/read",
		httpmock.NewStringResponder(200, `{"results":[]}`))

	req := domain.FetchRequest{URL: "https://reader.test/v1/read"}

	first, err := g.Do(context.Background(), req)
	require.NoError(t, err)
	second, err := g.Do(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestDo_ErrorsAreNotCached(t *testing.T) {
	g := newTestGateway(t, Config{})
	httpmock.RegisterResponder("GET", "https://reader.test/v1/read",
		httpmock.NewStringResponder(503, "unavailable"))

	req := domain.FetchRequest{URL: "https://reader.test/v1/read"}

	_, err := g.Do(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrReaderFailure)
	assert.Contains(t, err.Error(), "status 503")

	_, err = g.Do(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestDo_DedupesConcurrentIdenticalRequests(t *testing.T) {
	g := newTestGateway(t, Config{})
	httpmock.RegisterResponder("GET", "https://reader.test/v1/read",
		func(req *http.Request) (*http.Response, error) {
			time.Sleep(50 * time.Millisecond)
			return httpmock.NewStringResponse(200, "payload"), nil
		})

	req := domain.FetchRequest{URL: "https://reader.test/v1/read"}

	const callers = 10
	var wg sync.WaitGroup
	bodies := make([][]byte, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bodies[i], errs[i] = g.Do(context.Background(), req)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("payload"), bodies[i])
	}
}

func TestDo_ErrorPropagatesToAllJoiners(t *testing.T) {
	g := newTestGateway(t, Config{})
	httpmock.RegisterResponder("GET", "https://reader.test/v1/read",
		func(req *http.Request) (*http.Response, error) {
			time.Sleep(50 * time.Millisecond)
			return httpmock.NewStringResponse(500, "boom"), nil
		})

	req := domain.FetchRequest{URL: "https://reader.test/v1/read"}

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Do(context.Background(), req)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	for i := 0; i < callers; i++ {
		assert.ErrorIs(t, errs[i], domain.ErrReaderFailure)
	}
}

func TestDo_DistinctHeaderSetsAreDistinctKeys(t *testing.T) {
	g := newTestGateway(t, Config{})
	httpmock.RegisterResponder("GET", "https://reader.test/v1/read",
		httpmock.NewStringResponder(200, "ok"))

	_, err := g.Do(context.Background(), domain.FetchRequest{
		URL:     "https://reader.test/v1/read",
		Headers: map[string]string{"X-Variant": "a"},
	})
	require.NoError(t, err)
	_, err = g.Do(context.Background(), domain.FetchRequest{
		URL:     "https://reader.test/v1/read",
		Headers: map[string]string{"X-Variant": "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestDo_DistinctBodiesAreDistinctKeys(t *testing.T) {
	g := newTestGateway(t, Config{})

	// Echo the request body so each caller's response is attributable.
	httpmock.RegisterResponder("POST", "https://reader.test/v1/extract",
		func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			return httpmock.NewBytesResponse(200, body), nil
		})

	first, err := g.Do(context.Background(), domain.FetchRequest{
		Method:  http.MethodPost,
		URL:     "https://reader.test/v1/extract",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    []byte(`{"query":"bananas"}`),
	})
	require.NoError(t, err)
	second, err := g.Do(context.Background(), domain.FetchRequest{
		Method:  http.MethodPost,
		URL:     "https://reader.test/v1/extract",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    []byte(`{"query":"chicken breast"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, httpmock.GetTotalCallCount())
	assert.Equal(t, []byte(`{"query":"bananas"}`), first)
	assert.Equal(t, []byte(`{"query":"chicken breast"}`), second)
}

func TestDo_ConcurrentDistinctBodiesEachGoOut(t *testing.T) {
	g := newTestGateway(t, Config{})
	httpmock.RegisterResponder("POST", "https://reader.test/v1/extract",
		func(req *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			time.Sleep(20 * time.Millisecond)
			return httpmock.NewBytesResponse(200, body), nil
		})

	queries := []string{"bananas", "chicken breast", "whole milk", "eggs"}
	var wg sync.WaitGroup
	bodies := make([][]byte, len(queries))
	errs := make([]error, len(queries))
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			bodies[i], errs[i] = g.Do(context.Background(), domain.FetchRequest{
				Method: http.MethodPost,
				URL:    "https://reader.test/v1/extract",
				Body:   []byte(`{"query":"` + q + `"}`),
			})
		}(i, q)
	}
	wg.Wait()

	assert.Equal(t, len(queries), httpmock.GetTotalCallCount())
	for i, q := range queries {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte(`{"query":"`+q+`"}`), bodies[i])
	}
}

func TestDo_AttachesAPIKeyBearer(t *testing.T) {
	g := newTestGateway(t, Config{APIKey: "sekrit", RPMWithKey: 60000})

	var seenAuth string
	httpmock.RegisterResponder("GET", "https://reader.test/v1/read",
		func(req *http.Request) (*http.Response, error) {
			seenAuth = req.Header.Get("Authorization")
			return httpmock.NewStringResponse(200, "ok"), nil
		})

	_, err := g.Do(context.Background(), domain.FetchRequest{URL: "https://reader.test/v1/read"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sekrit", seenAuth)
}

func TestDo_SpacesRequestsAtRateCeiling(t *testing.T) {
	// 600 rpm = one admission every 100ms.
	g := newTestGateway(t, Config{RPMKeyless: 600})

	var mu sync.Mutex
	var stamps []time.Time
	responder := func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		return httpmock.NewStringResponse(200, "ok"), nil
	}
	httpmock.RegisterResponder("GET", "https://reader.test/v1/read", responder)
	httpmock.RegisterResponder("GET", "https://reader.test/v2/read", responder)
	httpmock.RegisterResponder("GET", "https://reader.test/v3/read", responder)

	for _, url := range []string{
		"https://reader.test/v1/read",
		"https://reader.test/v2/read",
		"https://reader.test/v3/read",
	} {
		_, err := g.Do(context.Background(), domain.FetchRequest{URL: url})
		require.NoError(t, err)
	}

	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, 80*time.Millisecond, "gap %d", i)
	}
}

func TestDo_SpacesConcurrentCallersAtRateCeiling(t *testing.T) {
	// 600 rpm = one admission every 100ms; burst of 1 means concurrent
	// callers are serialized with at least the interval between them.
	g := newTestGateway(t, Config{RPMKeyless: 600})

	var mu sync.Mutex
	var stamps []time.Time
	const callers = 4
	for i := 0; i < callers; i++ {
		httpmock.RegisterResponder("GET", fmt.Sprintf("https://reader.test/v%d/read", i),
			func(req *http.Request) (*http.Response, error) {
				mu.Lock()
				stamps = append(stamps, time.Now())
				mu.Unlock()
				return httpmock.NewStringResponse(200, "ok"), nil
			})
	}

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Do(context.Background(), domain.FetchRequest{
				URL: fmt.Sprintf("https://reader.test/v%d/read", i),
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}
	require.Len(t, stamps, callers)
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, 80*time.Millisecond, "gap %d", i)
	}
}

func TestDo_JoinerHonorsContextCancellation(t *testing.T) {
	g := newTestGateway(t, Config{})
	httpmock.RegisterResponder("GET", "https://reader.test/v1/read",
		func(req *http.Request) (*http.Response, error) {
			time.Sleep(200 * time.Millisecond)
			return httpmock.NewStringResponse(200, "ok"), nil
		})

	req := domain.FetchRequest{URL: "https://reader.test/v1/read"}

	go g.Do(context.Background(), req)
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := g.Do(ctx, req)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
