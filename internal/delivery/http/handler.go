package http

import (
	"errors"
	"net/http"

	"github.com/cartwise/backend/internal/domain"
	"github.com/cartwise/backend/internal/usecase"
	"github.com/gin-gonic/gin"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	orchestrator *usecase.BatchOrchestrator
	prices       *usecase.PriceService
	comparison   *usecase.ComparisonService
	ingredients  domain.IngredientRepository
	stores       []string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orchestrator *usecase.BatchOrchestrator,
	prices *usecase.PriceService,
	comparison *usecase.ComparisonService,
	ingredients domain.IngredientRepository,
	stores []string,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		prices:       prices,
		comparison:   comparison,
		ingredients:  ingredients,
		stores:       stores,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cartwise-backend",
		"version": "1.0.0",
	})
}

// batchSearchRequest is the body of POST /api/v1/prices/batch-search
type batchSearchRequest struct {
	Ingredients  []domain.IngredientInput `json:"ingredients" binding:"required,min=1,dive"`
	ZipCode      string                   `json:"zipCode" binding:"required"`
	ForceRefresh bool                     `json:"forceRefresh"`
	Stores       []string                 `json:"stores"`
}

// batchSummary is the caller-facing statistics block of a batch run.
type batchSummary struct {
	TotalIngredients int     `json:"totalIngredients"`
	TotalStores      int     `json:"totalStores"`
	Successful       int     `json:"successful"`
	Cached           int     `json:"cached"`
	Scraped          int     `json:"scraped"`
	Failed           int     `json:"failed"`
	SuccessRate      float64 `json:"successRate"`
	DurationMs       int64   `json:"durationMs"`
}

// BatchSearch resolves prices for a list of ingredients across stores.
// Partial failure is reported as statistics; only the all-stores-failed
// systemic case produces a non-2xx response.
func (h *Handler) BatchSearch(c *gin.Context) {
	var req batchSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	stores := req.Stores
	if len(stores) == 0 {
		stores = h.stores
	}

	result, err := h.orchestrator.Run(c.Request.Context(), req.Ingredients, stores, req.ZipCode, req.ForceRefresh)
	if err != nil {
		if errors.Is(err, domain.ErrAllStoresFailed) {
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "all store lookups failed",
				"runId":   result.RunID,
				"summary": summarize(result),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runId":   result.RunID,
		"zipCode": usecase.NormalizeZip(req.ZipCode),
		"summary": summarize(result),
		"results": result.Results,
	})
}

// compareRequest is the body of POST /api/v1/prices/compare
type compareRequest struct {
	Items   []domain.ShoppingListItem `json:"items" binding:"required,min=1,dive"`
	ZipCode string                    `json:"zipCode" binding:"required"`
	Stores  []string                  `json:"stores"`
}

// Compare prices a shopping list per store and returns ranked comparisons.
func (h *Handler) Compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	stores := req.Stores
	if len(stores) == 0 {
		stores = h.stores
	}
	location := usecase.NormalizeZip(req.ZipCode)

	rows := make(map[string][]domain.PriceQuote, len(req.Items))
	for _, item := range req.Items {
		canonical := usecase.CanonicalizeName(item.Name)
		if canonical == "" {
			continue
		}

		ingredient, err := h.ingredients.FindByCanonicalName(c.Request.Context(), canonical)
		if errors.Is(err, domain.ErrIngredientNotFound) {
			ingredient, err = h.ingredients.Create(c.Request.Context(), canonical)
		}
		if err != nil {
			continue
		}

		priceResult := h.prices.GetOrRefresh(c.Request.Context(), ingredient, stores, usecase.PriceOptions{
			Location: location,
		})
		rows[item.ID] = priceResult.Quotes
	}

	comparisons := h.comparison.Compare(req.Items, rows, nil)

	c.JSON(http.StatusOK, gin.H{
		"zipCode":     location,
		"comparisons": comparisons,
	})
}

// summarize converts a batch result into the response summary block.
func summarize(result *domain.BatchRunResult) batchSummary {
	return batchSummary{
		TotalIngredients: result.TotalIngredients,
		TotalStores:      result.TotalStores,
		Successful:       result.Successful,
		Cached:           result.Cached,
		Scraped:          result.Scraped,
		Failed:           result.Failed,
		SuccessRate:      result.SuccessRate(),
		DurationMs:       result.Duration.Milliseconds(),
	}
}
