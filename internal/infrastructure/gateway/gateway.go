package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cartwise/backend/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// Config holds gateway construction parameters. The effective requests-per-
// minute ceiling depends on whether an API key for the reader service is
// configured.
type Config struct {
	APIKey     string
	RPMWithKey int
	RPMKeyless int
	CacheTTL   time.Duration
	CacheSize  int
	Timeout    time.Duration
}

// Gateway throttles, deduplicates, and short-term caches outbound HTTP calls
// to the shared reader/extraction service. It is the only component that
// talks to the network directly; every store adapter goes through it.
//
// The gateway retries nothing: network and status errors propagate to the
// adapter, which is responsible for its own fallback.
type Gateway struct {
	httpClient *http.Client
	apiKey     string
	limiter    *rate.Limiter
	cache      *expirable.LRU[string, []byte]
	Metrics    *Metrics

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

// inflightCall is one in-progress outbound request that concurrent callers
// with the same key attach to instead of starting new work.
type inflightCall struct {
	done chan struct{}
	body []byte
	err  error
}

// New creates a gateway from config. Admission is paced so the gap between
// successive outbound requests never undercuts 60s/RPM, regardless of how
// many callers arrive concurrently (burst of 1, no credit accumulation).
func New(cfg Config) *Gateway {
	rpm := cfg.RPMKeyless
	if cfg.APIKey != "" {
		rpm = cfg.RPMWithKey
	}
	if rpm <= 0 {
		rpm = 20
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 120 * time.Second
	}
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = 512
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Gateway{
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		cache:      expirable.NewLRU[string, []byte](cacheSize, nil, cacheTTL),
		inflight:   make(map[string]*inflightCall),
		Metrics:    NewMetrics(),
	}
}

// Do executes an outbound request subject to the rate ceiling. Concurrent
// calls with an identical (method, url, header-set) key share one outbound
// request and one result; successful responses are served from the short-TTL
// cache while they remain fresh.
func (g *Gateway) Do(ctx context.Context, req domain.FetchRequest) ([]byte, error) {
	key := requestKey(req)

	if body, ok := g.cache.Get(key); ok {
		g.Metrics.IncCacheHit()
		return body, nil
	}

	g.mu.Lock()
	if call, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		g.Metrics.IncDedupeJoin()
		select {
		case <-call.done:
			return call.body, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &inflightCall{done: make(chan struct{})}
	g.inflight[key] = call
	g.mu.Unlock()

	call.body, call.err = g.execute(ctx, req)

	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()
	close(call.done)

	if call.err == nil {
		g.cache.Add(key, call.body)
		g.Metrics.IncRequest("success")
	} else {
		g.Metrics.IncRequest("error")
	}

	return call.body, call.err
}

// execute reserves a rate-limit slot, then performs the HTTP round trip.
func (g *Gateway) execute(ctx context.Context, req domain.FetchRequest) ([]byte, error) {
	waitStart := time.Now()
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	g.Metrics.ObserveWait(time.Since(waitStart))

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "Cartwise/1.0")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReaderFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrReaderFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrReaderFailure, resp.StatusCode)
	}

	return body, nil
}

// requestKey builds the dedupe/cache key from the method, URL, the full header
// set in deterministic order, and a digest of the body. Extraction calls all
// POST to the same endpoint and differ only in the body, so the body must be
// part of the identity or distinct extractions would share one result.
func requestKey(req domain.FetchRequest) string {
	headers := make([]string, 0, len(req.Headers))
	for k, v := range req.Headers {
		headers = append(headers, k+"="+v)
	}
	sort.Strings(headers)

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	key := method + "|" + req.URL + "|" + strings.Join(headers, ";")
	if len(req.Body) > 0 {
		digest := sha256.Sum256(req.Body)
		key += "|" + hex.EncodeToString(digest[:])
	}
	return key
}
