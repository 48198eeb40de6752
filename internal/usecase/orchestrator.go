package usecase

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cartwise/backend/internal/domain"
	"github.com/google/uuid"
)

// Store outcome statuses used in batch results.
const (
	outcomeSuccess = "success"
	outcomeCached  = "cached"
	outcomeFailed  = "failed"
)

const reasonUnresolvable = "could not resolve ingredient name"

// OrchestratorConfig holds configuration for the batch orchestrator.
type OrchestratorConfig struct {
	Stores             []string
	Concurrency        int
	RetryEnabled       bool
	RetryBatchSize     int
	RetryDelay         time.Duration
	EnableDebugLogging bool
}

// BatchOrchestrator fans a list of ingredients out across stores through the
// price service, aggregates per-run statistics, and performs one bounded
// retry pass over ingredients that had failures. Aggregation is commutative,
// so completion order never affects the totals.
type BatchOrchestrator struct {
	ingredients domain.IngredientRepository
	prices      *PriceService
	Metrics     *BatchMetrics

	stores         []string
	concurrency    int
	retryEnabled   bool
	retryBatchSize int
	retryDelay     time.Duration
	debug          bool
}

// NewBatchOrchestrator creates a batch orchestrator with dependencies.
func NewBatchOrchestrator(
	ingredients domain.IngredientRepository,
	prices *PriceService,
	config OrchestratorConfig,
) *BatchOrchestrator {
	stores := config.Stores
	if len(stores) == 0 {
		stores = domain.Stores
	}

	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	retryBatchSize := config.RetryBatchSize
	if retryBatchSize <= 0 {
		retryBatchSize = 5
	}

	return &BatchOrchestrator{
		ingredients:    ingredients,
		prices:         prices,
		Metrics:        NewBatchMetrics(),
		stores:         stores,
		concurrency:    concurrency,
		retryEnabled:   config.RetryEnabled,
		retryBatchSize: retryBatchSize,
		retryDelay:     config.RetryDelay,
		debug:          config.EnableDebugLogging,
	}
}

// Run drives one batch: resolve every ingredient name to a canonical row,
// fan lookups out across stores, aggregate statistics, then retry failures
// once in smaller sub-batches with forced refresh. A run where zero stores
// succeeded anywhere returns domain.ErrAllStoresFailed alongside the result.
func (o *BatchOrchestrator) Run(
	ctx context.Context,
	inputs []domain.IngredientInput,
	storeIDs []string,
	location string,
	forceRefresh bool,
) (*domain.BatchRunResult, error) {
	start := time.Now()

	if len(storeIDs) == 0 {
		storeIDs = o.stores
	}
	location = NormalizeZip(location)

	result := &domain.BatchRunResult{
		RunID:            uuid.NewString(),
		TotalIngredients: len(inputs),
		TotalStores:      len(storeIDs),
		Results:          make([]domain.IngredientResult, len(inputs)),
	}

	o.runPass(ctx, inputs, storeIDs, location, forceRefresh, result.Results)

	if o.retryEnabled {
		retried := o.retryFailed(ctx, inputs, storeIDs, location, result.Results)
		result.Retried = retried
		o.Metrics.AddRetried(retried)
	}

	o.tally(result)
	result.Duration = time.Since(start)
	o.Metrics.ObserveRun(result.Duration)

	log.Printf("[BATCH] run %s: %d ingredients x %d stores, successful=%d cached=%d scraped=%d failed=%d (%.0f%%) in %s",
		result.RunID, result.TotalIngredients, result.TotalStores,
		result.Successful, result.Cached, result.Scraped, result.Failed,
		result.SuccessRate()*100, result.Duration.Round(time.Millisecond))

	if result.Successful == 0 && len(inputs) > 0 {
		o.Metrics.IncRun("systemic_failure")
		return result, domain.ErrAllStoresFailed
	}

	o.Metrics.IncRun("completed")
	return result, nil
}

// runPass processes inputs concurrently, writing each outcome into its slot.
func (o *BatchOrchestrator) runPass(
	ctx context.Context,
	inputs []domain.IngredientInput,
	storeIDs []string,
	location string,
	forceRefresh bool,
	slots []domain.IngredientResult,
) {
	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup

	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input domain.IngredientInput) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			slots[i] = o.processIngredient(ctx, input, storeIDs, location, forceRefresh)
		}(i, input)
	}
	wg.Wait()
}

// processIngredient resolves one ingredient and looks it up across stores.
// Unresolvable names mark every store failed without touching any adapter.
func (o *BatchOrchestrator) processIngredient(
	ctx context.Context,
	input domain.IngredientInput,
	storeIDs []string,
	location string,
	forceRefresh bool,
) domain.IngredientResult {
	res := domain.IngredientResult{
		Name:     input.Name,
		RecipeID: input.RecipeID,
	}

	ingredient, err := o.resolveIngredient(ctx, input.Name)
	if err != nil {
		for _, storeID := range storeIDs {
			res.Stores = append(res.Stores, domain.StoreOutcome{
				Store:  storeID,
				Status: outcomeFailed,
				Reason: reasonUnresolvable,
			})
			o.Metrics.IncLookup(outcomeFailed)
		}
		return res
	}
	res.IngredientID = ingredient.ID

	priceResult := o.prices.GetOrRefresh(ctx, ingredient, storeIDs, PriceOptions{
		Location:     location,
		ForceRefresh: forceRefresh,
	})

	for _, quote := range priceResult.Quotes {
		status := outcomeSuccess
		if quote.FromCache {
			status = outcomeCached
		}
		res.Stores = append(res.Stores, domain.StoreOutcome{
			Store:     quote.Store,
			Status:    status,
			FromCache: quote.FromCache,
		})
		o.Metrics.IncLookup(status)
	}
	for _, failure := range priceResult.Failures {
		res.Stores = append(res.Stores, domain.StoreOutcome{
			Store:  failure.Store,
			Status: outcomeFailed,
			Reason: failure.Reason,
		})
		o.Metrics.IncLookup(outcomeFailed)
	}
	res.Quotes = priceResult.Quotes

	return res
}

// resolveIngredient canonicalizes a name and finds or inserts its row.
func (o *BatchOrchestrator) resolveIngredient(ctx context.Context, name string) (*domain.Ingredient, error) {
	canonical := CanonicalizeName(name)
	if canonical == "" {
		return nil, domain.ErrUnresolvableName
	}

	ingredient, err := o.ingredients.FindByCanonicalName(ctx, canonical)
	if err == nil {
		return ingredient, nil
	}
	if !errors.Is(err, domain.ErrIngredientNotFound) {
		return nil, err
	}

	return o.ingredients.Create(ctx, canonical)
}

// retryFailed re-runs every ingredient with at least one failed store, with
// forced refresh, in sub-batches separated by a delay so the retry pass does
// not re-trigger the rate limits that caused the failures. A second round of
// failures is final. Returns the number of ingredients retried.
func (o *BatchOrchestrator) retryFailed(
	ctx context.Context,
	inputs []domain.IngredientInput,
	storeIDs []string,
	location string,
	slots []domain.IngredientResult,
) int {
	var retryIdx []int
	for i, res := range slots {
		for _, outcome := range res.Stores {
			if outcome.Status == outcomeFailed {
				retryIdx = append(retryIdx, i)
				break
			}
		}
	}
	if len(retryIdx) == 0 {
		return 0
	}

	if o.debug {
		log.Printf("[BATCH] retrying %d ingredients in sub-batches of %d", len(retryIdx), o.retryBatchSize)
	}

	for batchStart := 0; batchStart < len(retryIdx); batchStart += o.retryBatchSize {
		if batchStart > 0 && o.retryDelay > 0 {
			select {
			case <-time.After(o.retryDelay):
			case <-ctx.Done():
				return len(retryIdx)
			}
		}

		end := batchStart + o.retryBatchSize
		if end > len(retryIdx) {
			end = len(retryIdx)
		}

		batch := retryIdx[batchStart:end]
		var wg sync.WaitGroup
		for _, i := range batch {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				slots[i] = o.processIngredient(ctx, inputs[i], storeIDs, location, true)
			}(i)
		}
		wg.Wait()
	}

	return len(retryIdx)
}

// tally recomputes the aggregate counters from the final per-ingredient
// results. Pure summation, so it holds under arbitrary completion order.
func (o *BatchOrchestrator) tally(result *domain.BatchRunResult) {
	result.Successful = 0
	result.Cached = 0
	result.Failed = 0

	for _, res := range result.Results {
		for _, outcome := range res.Stores {
			switch outcome.Status {
			case outcomeSuccess:
				result.Successful++
			case outcomeCached:
				result.Successful++
				result.Cached++
			case outcomeFailed:
				result.Failed++
			}
		}
	}
	result.Scraped = result.Successful - result.Cached
}
