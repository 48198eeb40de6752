package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/cartwise/backend/internal/domain"
)

// ReaderExtractor implements domain.Extractor against the reader service's
// structured-extraction endpoint. The model behavior is a black box; only the
// contract matters: raw snippets in, {title, brand, price, image_url} out,
// bounded by the caller's context deadline.
type ReaderExtractor struct {
	fetcher  domain.Fetcher
	endpoint string
}

// NewReaderExtractor builds an extractor that calls endpoint through the
// shared gateway, so extraction traffic counts against the same rate ceiling
// as search traffic.
func NewReaderExtractor(fetcher domain.Fetcher, endpoint string) *ReaderExtractor {
	return &ReaderExtractor{
		fetcher:  fetcher,
		endpoint: endpoint,
	}
}

// extractionRequest is the wire format of an extraction call.
type extractionRequest struct {
	Query      string                `json:"query"`
	Candidates []domain.RawCandidate `json:"candidates"`
	Schema     []string              `json:"schema"`
}

// extractionResponse is the wire format of the extraction result. Prices come
// back as decimal dollars and are converted to cents immediately.
type extractionResponse struct {
	Products []struct {
		Title    string  `json:"title"`
		Brand    string  `json:"brand"`
		Price    float64 `json:"price"`
		Quantity float64 `json:"quantity"`
		Unit     string  `json:"unit"`
		ImageURL string  `json:"image_url"`
	} `json:"products"`
}

// Extract submits raw candidates for structured extraction.
func (e *ReaderExtractor) Extract(ctx context.Context, keyword string, candidates []domain.RawCandidate) ([]domain.StructuredProduct, error) {
	payload, err := json.Marshal(extractionRequest{
		Query:      keyword,
		Candidates: candidates,
		Schema:     []string{"title", "brand", "price", "image_url"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", domain.ErrExtractionFailed, err)
	}

	body, err := e.fetcher.Do(ctx, domain.FetchRequest{
		Method:  http.MethodPost,
		URL:     e.endpoint,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	var resp extractionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", domain.ErrExtractionFailed, err)
	}

	products := make([]domain.StructuredProduct, 0, len(resp.Products))
	for _, p := range resp.Products {
		products = append(products, domain.StructuredProduct{
			Title:      p.Title,
			Brand:      p.Brand,
			PriceCents: int64(math.Round(p.Price * 100)),
			Quantity:   p.Quantity,
			Unit:       p.Unit,
			ImageURL:   p.ImageURL,
		})
	}
	return products, nil
}

// StaticExtractor is the deterministic domain.Extractor used in tests and
// keyless local development. It returns the configured products for every
// call, after honoring context cancellation.
type StaticExtractor struct {
	Products []domain.StructuredProduct
	Err      error
}

// Extract returns the fixed product set or error.
func (s *StaticExtractor) Extract(ctx context.Context, keyword string, candidates []domain.RawCandidate) ([]domain.StructuredProduct, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Products, nil
}
