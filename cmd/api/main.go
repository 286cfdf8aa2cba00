package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ethio-origin/provenance-service/pkg/cloudevents"
	"github.com/ethio-origin/provenance-service/pkg/kafka"
	"github.com/ethio-origin/provenance-service/pkg/logging"
	"github.com/ethio-origin/provenance-service/pkg/metrics"
	"github.com/ethio-origin/provenance-service/pkg/middleware"
	"github.com/ethio-origin/provenance-service/pkg/mongodb"
	"github.com/ethio-origin/provenance-service/pkg/resilience"
	"github.com/ethio-origin/provenance-service/pkg/tracing"

	"github.com/ethio-origin/provenance-service/internal/api/dto"
	"github.com/ethio-origin/provenance-service/internal/application"
	"github.com/ethio-origin/provenance-service/internal/domain"
	"github.com/ethio-origin/provenance-service/internal/infrastructure/memory"
	mongoRepo "github.com/ethio-origin/provenance-service/internal/infrastructure/mongodb"
	"github.com/ethio-origin/provenance-service/internal/infrastructure/rediscache"
)

const serviceName = "provenance-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting provenance-service API")

	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	// Initialize storage backend
	var (
		batchRepo   domain.BatchRepository
		farmerRepo  domain.FarmerRepository
		storeCheck  func() error
		mongoClient *mongodb.Client
	)
	switch config.StorageBackend {
	case "memory":
		batchRepo = memory.NewBatchRepository()
		farmerRepo = memory.NewFarmerRepository()
		storeCheck = func() error { return nil }
		logger.Info("Using in-memory storage backend")
	default:
		mongoClient, err = resilience.RetryWithResult(ctx, resilience.DefaultRetryConfig(), func() (*mongodb.Client, error) {
			return mongodb.NewClient(ctx, config.MongoDB)
		})
		if err != nil {
			logger.WithError(err).Error("Failed to connect to MongoDB")
			os.Exit(1)
		}
		defer mongoClient.Close(ctx)
		batchRepo = mongoRepo.NewBatchRepository(mongoClient.Database(), logger, m)
		farmerRepo = mongoRepo.NewFarmerRepository(mongoClient.Database(), logger, m)
		storeCheck = func() error { return mongoClient.HealthCheck(ctx) }
		logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)
	}

	// Initialize journey cache
	var journeyCache application.JourneyCache
	if config.CacheEnabled {
		cache, err := rediscache.NewJourneyCache(config.Redis, logger)
		if err != nil {
			logger.WithError(err).Warn("Journey cache unavailable, reads fall back to the store")
		} else {
			defer cache.Close()
			journeyCache = cache
			logger.Info("Journey cache initialized", "addr", config.Redis.Addr)
		}
	}

	// Initialize Kafka producer
	var publisher application.EventPublisher
	if config.KafkaEnabled {
		producer := kafka.NewProductionProducer(config.Kafka, m, logger)
		defer producer.Close()
		publisher = producer
		logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)
	} else {
		logger.Warn("Kafka disabled, events and anchor requests will not be published")
	}

	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceLedger)

	// Load curated anchor metadata
	catalog, err := domain.LoadMetadataCatalog(config.MetadataCatalogPath)
	if err != nil {
		logger.WithError(err).Error("Failed to load metadata catalog")
		os.Exit(1)
	}
	if catalog.Size() > 0 {
		logger.Info("Metadata catalog loaded", "assets", catalog.Size())
	}

	// Initialize application services
	engine := domain.NewEngine(config.WeightTolerance)
	ledgerService := application.NewLedgerService(batchRepo, engine, catalog, journeyCache, publisher, eventFactory, logger, m)
	farmerService := application.NewFarmerService(farmerRepo, publisher, eventFactory, logger)

	// Setup Gin router with middleware
	router := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Tracing(serviceName))
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, storeCheck))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes
	batches := router.Group("/api/v1/batches")
	{
		batches.POST("", registerBatchHandler(ledgerService, logger))
		batches.GET("", listBatchesHandler(ledgerService, logger))
		batches.GET("/:batchId", getBatchHandler(ledgerService, logger))
		batches.POST("/:batchId/updates", appendUpdateHandler(ledgerService, logger))
		batches.GET("/:batchId/journey", getJourneyHandler(ledgerService, logger))
	}
	farmers := router.Group("/api/v1/farmers")
	{
		farmers.POST("", registerFarmerHandler(farmerService, logger))
		farmers.GET("", listFarmersHandler(farmerService, logger))
		farmers.GET("/:farmerId", getFarmerHandler(farmerService, logger))
		farmers.PUT("/:farmerId", updateFarmerHandler(farmerService, logger))
		farmers.GET("/:farmerId/batches", listFarmerBatchesHandler(ledgerService, farmerService, logger))
	}

	gaugeCtx, stopGauges := context.WithCancel(ctx)
	defer stopGauges()
	go refreshStatusGauges(gaugeCtx, batchRepo, m, logger)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr          string
	StorageBackend      string
	WeightTolerance     float64
	MetadataCatalogPath string
	CacheEnabled        bool
	KafkaEnabled        bool
	MongoDB             *mongodb.Config
	Redis               *rediscache.Config
	Kafka               *kafka.Config
}

func loadConfig() *Config {
	tolerance := 0.10
	if raw := os.Getenv("WEIGHT_TOLERANCE"); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			tolerance = parsed
		}
	}

	redisConfig := rediscache.DefaultConfig()
	redisConfig.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	redisConfig.Password = os.Getenv("REDIS_PASSWORD")
	if raw := os.Getenv("JOURNEY_CACHE_TTL_SECONDS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			redisConfig.TTL = time.Duration(parsed) * time.Second
		}
	}

	return &Config{
		ServerAddr:          getEnv("SERVER_ADDR", ":8080"),
		StorageBackend:      getEnv("STORAGE_BACKEND", "mongodb"),
		WeightTolerance:     tolerance,
		MetadataCatalogPath: os.Getenv("METADATA_CATALOG_PATH"),
		CacheEnabled:        getEnv("CACHE_ENABLED", "true") == "true",
		KafkaEnabled:        getEnv("KAFKA_ENABLED", "true") == "true",
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "provenance_db"),
			AppName:        serviceName,
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Redis: redisConfig,
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     serviceName,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
	}
}

// statusCounter is implemented by both storage backends.
type statusCounter interface {
	CountsByStatus(ctx context.Context) (map[domain.BatchStatus]int64, error)
}

// refreshStatusGauges keeps the batches-by-status gauge current. Counting is
// best effort; a failed refresh leaves the previous values in place.
func refreshStatusGauges(ctx context.Context, repo domain.BatchRepository, m *metrics.Metrics, logger *logging.Logger) {
	counter, ok := repo.(statusCounter)
	if !ok {
		return
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			counts, err := counter.CountsByStatus(ctx)
			if err != nil {
				logger.WithError(err).Warn("Failed to refresh batch status gauges")
				continue
			}
			for status, count := range counts {
				m.SetBatchesByStatus(string(status), int(count))
			}
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// HTTP Handlers

func registerBatchHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.RegisterHarvestCommand
		if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		batch, err := service.RegisterHarvest(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, dto.FromBatch(batch))
	}
}

func getBatchHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		batch, err := service.GetBatch(c.Request.Context(), c.Param("batchId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dto.FromBatch(batch))
	}
}

func listBatchesHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		filter := domain.BatchFilter{
			FarmerID: c.Query("farmerId"),
			Status:   domain.BatchStatus(c.Query("status")),
			CropType: domain.CropType(c.Query("cropType")),
		}
		page := domain.Pagination{
			Limit:  queryInt(c, "limit", 50),
			Offset: queryInt(c, "offset", 0),
		}.Normalize()

		batches, total, err := service.ListBatches(c.Request.Context(), filter, page)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		response := dto.BatchListResponse{
			Batches: make([]dto.BatchSummary, len(batches)),
			Total:   total,
			Limit:   page.Limit,
			Offset:  page.Offset,
		}
		for i, b := range batches {
			response.Batches[i] = dto.SummaryFromBatch(b)
		}

		c.JSON(http.StatusOK, response)
	}
}

func appendUpdateHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.AppendUpdateCommand
		if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		batch, err := service.AppendUpdate(c.Request.Context(), c.Param("batchId"), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dto.FromBatch(batch))
	}
}

func getJourneyHandler(service *application.LedgerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		view, err := service.GetJourney(c.Request.Context(), c.Param("batchId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dto.FromJourneyView(view))
	}
}

func registerFarmerHandler(service *application.FarmerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.RegisterFarmerCommand
		if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		farmer, err := service.RegisterFarmer(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, dto.FromFarmer(farmer))
	}
}

func getFarmerHandler(service *application.FarmerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		farmer, err := service.GetFarmer(c.Request.Context(), c.Param("farmerId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dto.FromFarmer(farmer))
	}
}

func updateFarmerHandler(service *application.FarmerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.UpdateFarmerCommand
		if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		farmer, err := service.UpdateFarmer(c.Request.Context(), c.Param("farmerId"), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dto.FromFarmer(farmer))
	}
}

func listFarmersHandler(service *application.FarmerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		page := domain.Pagination{
			Limit:  queryInt(c, "limit", 50),
			Offset: queryInt(c, "offset", 0),
		}.Normalize()

		farmers, err := service.ListFarmers(c.Request.Context(), page)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		response := dto.FarmerListResponse{
			Farmers: make([]dto.FarmerResponse, len(farmers)),
			Total:   len(farmers),
		}
		for i, f := range farmers {
			response.Farmers[i] = dto.FromFarmer(f)
		}

		c.JSON(http.StatusOK, response)
	}
}

func listFarmerBatchesHandler(ledger *application.LedgerService, farmers *application.FarmerService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)
		farmerID := c.Param("farmerId")

		if _, err := farmers.GetFarmer(c.Request.Context(), farmerID); err != nil {
			responder.RespondWithError(err)
			return
		}

		page := domain.Pagination{
			Limit:  queryInt(c, "limit", 50),
			Offset: queryInt(c, "offset", 0),
		}.Normalize()

		batches, total, err := ledger.ListBatches(c.Request.Context(), domain.BatchFilter{FarmerID: farmerID}, page)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		response := dto.BatchListResponse{
			Batches: make([]dto.BatchSummary, len(batches)),
			Total:   total,
			Limit:   page.Limit,
			Offset:  page.Offset,
		}
		for i, b := range batches {
			response.Batches[i] = dto.SummaryFromBatch(b)
		}

		c.JSON(http.StatusOK, response)
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
