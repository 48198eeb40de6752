package main

import (
	"fmt"
	"log"
	"os"

	"github.com/cartwise/backend/config"
	httpDelivery "github.com/cartwise/backend/internal/delivery/http"
	"github.com/cartwise/backend/internal/domain"
	"github.com/cartwise/backend/internal/infrastructure/adapter"
	"github.com/cartwise/backend/internal/infrastructure/gateway"
	"github.com/cartwise/backend/internal/infrastructure/memstore"
	"github.com/cartwise/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Cartwise Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Stores: %v", cfg.Stores)

	// Outbound gateway shared by every adapter
	gw := gateway.New(gateway.Config{
		APIKey:     cfg.Reader.APIKey,
		RPMWithKey: cfg.RateLimit.RPMWithKey,
		RPMKeyless: cfg.RateLimit.RPMKeyless,
		CacheTTL:   cfg.Cache.GatewayTTL,
		CacheSize:  cfg.Cache.GatewaySize,
		Timeout:    cfg.Reader.Timeout,
	})

	if cfg.Reader.APIKey != "" {
		log.Printf("Reader API configured: %s (rpm: %d)", cfg.Reader.BaseURL, cfg.RateLimit.RPMWithKey)
	} else {
		log.Printf("WARNING: no reader API key configured - running at keyless rpm %d", cfg.RateLimit.RPMKeyless)
	}

	extractor := adapter.NewReaderExtractor(gw, cfg.Reader.BaseURL+"/v1/extract")

	// One generic adapter instance per configured retailer
	configByID := make(map[string]adapter.StoreConfig, len(adapter.DefaultStoreConfigs))
	for _, sc := range adapter.DefaultStoreConfigs {
		configByID[sc.ID] = sc
	}

	adapters := make([]domain.StoreAdapter, 0, len(cfg.Stores))
	for _, storeID := range cfg.Stores {
		sc, ok := configByID[storeID]
		if !ok {
			log.Fatalf("No adapter configuration for store %q", storeID)
		}
		retail := adapter.New(sc, gw, extractor, adapter.Options{
			ReaderSearchURL:   cfg.Reader.BaseURL + "/v1/read",
			ExtractionTimeout: cfg.Reader.ExtractionTimeout,
		})
		if cfg.Server.Environment == "development" {
			retail.SetDebug(true)
		}
		adapters = append(adapters, retail)
	}

	// Persistence and usecase layer
	ingredientStore := memstore.NewIngredientStore()
	quoteStore := memstore.NewQuoteStore()

	standardizer := usecase.NewUnitStandardizer(usecase.StandardizerConfig{
		Vocabulary: cfg.Units,
	})

	priceService := usecase.NewPriceService(quoteStore, adapters, standardizer, usecase.PriceServiceConfig{
		FreshnessWindow:    cfg.Cache.FreshnessWindow,
		EnableDebugLogging: cfg.Server.Environment == "development",
	})

	orchestrator := usecase.NewBatchOrchestrator(ingredientStore, priceService, usecase.OrchestratorConfig{
		Stores:             cfg.Stores,
		Concurrency:        cfg.Batch.Concurrency,
		RetryEnabled:       cfg.Batch.RetryEnabled,
		RetryBatchSize:     cfg.Batch.RetryBatchSize,
		RetryDelay:         cfg.Batch.RetryDelay,
		EnableDebugLogging: cfg.Server.Environment == "development",
	})

	comparison := usecase.NewComparisonService()

	log.Printf("Cache freshness window: %s, gateway TTL: %s", cfg.Cache.FreshnessWindow, cfg.Cache.GatewayTTL)
	log.Printf("Batch: concurrency=%d retry=%v batch_size=%d",
		cfg.Batch.Concurrency, cfg.Batch.RetryEnabled, cfg.Batch.RetryBatchSize)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(orchestrator, priceService, comparison, ingredientStore, cfg.Stores)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler, gw.Metrics.Registry, orchestrator.Metrics.Registry)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
