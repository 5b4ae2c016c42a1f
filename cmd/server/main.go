package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joeyjoe808/pureohana-sub000/internal/config"
	"github.com/joeyjoe808/pureohana-sub000/internal/handlers"
	"github.com/joeyjoe808/pureohana-sub000/internal/ingest"
	"github.com/joeyjoe808/pureohana-sub000/internal/storage"
	"github.com/joeyjoe808/pureohana-sub000/internal/tracing"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Info().Msg("starting pureohana media service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	log.Info().Str("service", cfg.ServiceName).Str("port", cfg.ServicePort).Msg("configuration loaded")

	// Initialize OpenTelemetry tracing
	shutdownTracer, err := tracing.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			log.Error().Err(err).Msg("error shutting down tracer")
		}
	}()

	// Initialize MinIO client
	log.Info().Str("endpoint", cfg.MinIOEndpoint).Msg("connecting to MinIO")
	minioClient, err := storage.NewMinioClient(
		cfg.MinIOEndpoint,
		cfg.MinIOAccessKey,
		cfg.MinIOSecretKey,
		cfg.PublicBaseURL,
		cfg.MinIOUseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize MinIO client")
	}
	if err := minioClient.EnsureBucket(context.Background(), cfg.MediaBucket); err != nil {
		log.Fatal().Err(err).Str("bucket", cfg.MediaBucket).Msg("failed to ensure media bucket")
	}

	// Initialize MySQL client
	log.Info().Str("host", cfg.MySQLHost).Msg("connecting to MySQL")
	mysqlClient, err := storage.NewMySQLClient(cfg.GetDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize MySQL client")
	}
	defer mysqlClient.Close()

	// Initialize Redis client
	log.Info().Str("addr", cfg.GetRedisAddr()).Msg("connecting to Redis")
	redisClient, err := storage.NewRedisClient(cfg.GetRedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	defer redisClient.Close()

	// Initialize handlers
	pipelineDefaults := ingest.Options{
		Bucket:            cfg.MediaBucket,
		Folder:            cfg.UploadFolder,
		AcceptedTypes:     cfg.AcceptedTypes,
		MaxSizeMB:         cfg.MaxUploadMB,
		GenerateThumbnail: cfg.GenerateThumbnails,
	}
	uploadHandler := handlers.NewUploadHandler(minioClient, mysqlClient, redisClient, pipelineDefaults)
	libraryHandler := handlers.NewLibraryHandler(mysqlClient, redisClient)
	sectionHandler := handlers.NewSectionHandler(minioClient, mysqlClient, cfg.MediaBucket, cfg.MaxUploadMB)

	// Setup HTTP router
	router := mux.NewRouter()

	// Health check endpoint (no tracing needed)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Media operations with tracing
	router.Handle("/api/media", otelhttp.NewHandler(uploadHandler, "POST /api/media")).Methods("POST")
	router.Handle("/api/media", otelhttp.NewHandler(libraryHandler, "GET /api/media")).Methods("GET")
	router.Handle("/api/sections/{slot}/photo", otelhttp.NewHandler(sectionHandler, "PUT /api/sections/{slot}/photo")).Methods("PUT")

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.ServicePort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.ServicePort).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Flush detached catalog writes before closing the database
	uploadHandler.Drain()

	log.Info().Msg("server exited")
}
