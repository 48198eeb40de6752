package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/cartwise/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingFetcher captures the full outbound request.
type recordingFetcher struct {
	body []byte
	err  error
	seen domain.FetchRequest
}

func (f *recordingFetcher) Do(ctx context.Context, req domain.FetchRequest) ([]byte, error) {
	f.seen = req
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func TestExtract_ConvertsDollarsToCents(t *testing.T) {
	fetcher := &recordingFetcher{body: []byte(`{
		"products": [
			{"title": "Bananas", "brand": "Chiquita", "price": 1.99, "quantity": 1, "unit": "lb"},
			{"title": "Organic Bananas", "price": 2.5, "unit": "lb"}
		]
	}`)}
	e := NewReaderExtractor(fetcher, "https://reader.test/v1/extract")

	products, err := e.Extract(context.Background(), "bananas", []domain.RawCandidate{{Title: "Bananas"}})
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, int64(199), products[0].PriceCents)
	assert.Equal(t, "Chiquita", products[0].Brand)
	assert.Equal(t, int64(250), products[1].PriceCents)
}

func TestExtract_PostsStructuredRequest(t *testing.T) {
	fetcher := &recordingFetcher{body: []byte(`{"products":[]}`)}
	e := NewReaderExtractor(fetcher, "https://reader.test/v1/extract")

	_, err := e.Extract(context.Background(), "bananas", []domain.RawCandidate{{Title: "Bananas", Text: "$1.99"}})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, fetcher.seen.Method)
	assert.Equal(t, "https://reader.test/v1/extract", fetcher.seen.URL)
	assert.Equal(t, "application/json", fetcher.seen.Headers["Content-Type"])

	var payload map[string]any
	require.NoError(t, json.Unmarshal(fetcher.seen.Body, &payload))
	assert.Equal(t, "bananas", payload["query"])
	assert.Contains(t, payload, "candidates")
	assert.Contains(t, payload, "schema")
}

func TestExtract_FetchErrorWrapsExtractionFailure(t *testing.T) {
	fetcher := &recordingFetcher{err: errors.New("rate limited")}
	e := NewReaderExtractor(fetcher, "https://reader.test/v1/extract")

	_, err := e.Extract(context.Background(), "bananas", nil)

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestExtract_BadResponseWrapsExtractionFailure(t *testing.T) {
	fetcher := &recordingFetcher{body: []byte("not json")}
	e := NewReaderExtractor(fetcher, "https://reader.test/v1/extract")

	_, err := e.Extract(context.Background(), "bananas", nil)

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}
