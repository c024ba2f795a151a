package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gpadash/internal/api/v1/handler"
	"gpadash/internal/config"
	"gpadash/internal/db"
	"gpadash/internal/middleware"
	"gpadash/internal/pubsub"
	"gpadash/internal/repository"
	"gpadash/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const s3SlotPrefix = "slots/"

// New builds the HTTP handler and everything behind it. The returned
// closer releases the slot database and the Pub/Sub client.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func() error, error) {
	logger.Info().Str("environment", cfg.Environment).Str("slot_driver", cfg.SlotDriver).Msg("Router initialized")

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	// 1. Course slot backend
	slots, closeSlots, err := newSlotRepository(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if closeSlots != nil {
		closers = append(closers, closeSlots)
	}

	// 2. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 3. Grade events
	var notifier service.GradeNotifier = service.NopNotifier
	if cfg.GradeEventsEnabled() {
		pub, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, pub.Close)
		notifier = pubsub.NewGradeEventPublisher(pub, cfg.PubSubGradesTopic, logger)
		logger.Info().Str("topic", cfg.PubSubGradesTopic).Msg("Grade events enabled")
	}

	// 4. Gemini client
	apiKey, err := resolveGeminiAPIKey(ctx, cfg)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	if apiKey == "" {
		logger.Warn().Msg("No Gemini API key configured, assistant requests will fail")
	}
	gemini, err := service.NewGeminiClient(ctx, service.GeminiOptions{
		APIKey:    apiKey,
		BaseURL:   cfg.GeminiBaseURL,
		ChatModel: cfg.GeminiChatModel,
		TTSModel:  cfg.GeminiTTSModel,
		Voice:     cfg.GeminiVoice,
		Timeout:   time.Duration(cfg.GeminiTimeoutSec) * time.Second,
	}, logger)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	// 5. Initialize services & handlers
	courseSvc := service.NewCourseService(slots, cfg.SlotKey, notifier, logger)
	assistantSvc := service.NewAssistantService(gemini, logger)

	courseHandler := handler.NewCourseHandler(courseSvc, validate, logger)
	assistantHandler := handler.NewAssistantHandler(assistantSvc, validate, logger)

	// 6. Initialize middleware
	authMiddleware := middleware.AnonymousMiddleware
	if cfg.AuthEnabled() {
		authMiddleware = middleware.AuthMiddleware(cfg.JWTSecret, logger)
	}

	// 7. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	courseHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	assistantHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Redirect /api/* to /v1/* for backward compatibility
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/")
		http.Redirect(w, r, "/v1/"+rest, http.StatusMovedPermanently)
	})

	// Redirect all other root-level requests to /v1/{path}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || strings.HasPrefix(r.URL.Path, "/v1/") || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/v1"+r.URL.Path, http.StatusMovedPermanently)
	})

	// 8. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux)), closeAll, nil
}

// newSlotRepository picks the course slot backend from SLOT_DRIVER.
func newSlotRepository(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.SlotRepository, func() error, error) {
	switch cfg.SlotDriver {
	case "memory":
		logger.Warn().Msg("Using in-memory course slots, data is lost on restart")
		return repository.NewMemorySlotRepo(), nil, nil

	case string(db.DriverSQLite), string(db.DriverPostgres):
		conn, err := db.Open(ctx, db.Driver(cfg.SlotDriver), cfg.SlotDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open slot database: %w", err)
		}
		if cfg.SlotDriver == string(db.DriverPostgres) {
			conn.SetMaxOpenConns(25)
			conn.SetMaxIdleConns(25)
			conn.SetConnMaxIdleTime(5 * time.Minute)
		}
		logger.Info().Msg("Database connection successful")
		return repository.NewSQLSlotRepo(conn, logger), conn.Close, nil

	case "s3":
		if cfg.S3Bucket == "" {
			return nil, nil, fmt.Errorf("S3_BUCKET is required for the s3 slot driver")
		}
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewS3SlotRepo(client, cfg.S3Bucket, s3SlotPrefix, logger), nil, nil
	}
	return nil, nil, fmt.Errorf("unsupported SLOT_DRIVER: %q", cfg.SlotDriver)
}

func newS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	}
	// Without static keys the default AWS credential chain applies.
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	s3Config, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}
	return s3.NewFromConfig(s3Config, func(o *s3.Options) {
		if cfg.S3URL != "" {
			o.BaseEndpoint = aws.String(cfg.S3URL)
			o.UsePathStyle = true
		}
	}), nil
}

// resolveGeminiAPIKey only dials Secret Manager when a secret name is set
// and no plain key is.
func resolveGeminiAPIKey(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.GeminiAPIKey != "" || cfg.GeminiAPIKeySecret == "" {
		return service.ResolveGeminiAPIKey(ctx, cfg, nil)
	}
	secrets, err := service.NewSecretManagerService(ctx, cfg)
	if err != nil {
		return "", err
	}
	defer secrets.Close()
	return service.ResolveGeminiAPIKey(ctx, cfg, secrets)
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
