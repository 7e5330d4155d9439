package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
	"github.com/aryan0dhankhar/jobmatch/internal/handler"
	"github.com/aryan0dhankhar/jobmatch/internal/infrastructure/line"
	"github.com/aryan0dhankhar/jobmatch/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/jobmatch/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/jobmatch/internal/observability/metrics"
	"github.com/aryan0dhankhar/jobmatch/internal/observability/tracing"
	"github.com/aryan0dhankhar/jobmatch/internal/repository"
	"github.com/aryan0dhankhar/jobmatch/internal/security"
	"github.com/aryan0dhankhar/jobmatch/internal/security/audit"
	"github.com/aryan0dhankhar/jobmatch/internal/security/auth"
	"github.com/aryan0dhankhar/jobmatch/internal/security/middleware"
	"github.com/aryan0dhankhar/jobmatch/internal/security/ratelimit"
	"github.com/aryan0dhankhar/jobmatch/internal/service"
	"github.com/aryan0dhankhar/jobmatch/internal/worker"
	"github.com/aryan0dhankhar/jobmatch/pkg/config"
	"github.com/aryan0dhankhar/jobmatch/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger and tracing
	log := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	log.Info("starting jobmatch server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log, "jobmatch", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 3. Connect to Postgres and apply pending migrations
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		URL:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DBMaxOpenConns,
	}, log)
	if err != nil {
		log.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool.DB(), log); err != nil {
		log.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize Redis client (event bus)
	redisClient, err := redis.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()

	// 5. Initialize repositories
	db := pool.DB()
	stores := service.Stores{
		Users:         repository.NewPostgresUserRepository(db, log),
		Seekers:       repository.NewPostgresSeekerRepository(db, log),
		Jobs:          repository.NewPostgresJobRepository(db, log),
		Applications:  repository.NewPostgresApplicationRepository(db, log),
		Saved:         repository.NewPostgresSavedApplicationRepository(db, log),
		Companies:     repository.NewPostgresCompanyRepository(db, log),
		Packages:      repository.NewPostgresPackageRepository(db, log),
		Orders:        repository.NewPostgresOrderRepository(db, log),
		Notifications: repository.NewPostgresNotificationRepository(db, log),
	}
	txManager := database.NewTxManager(db, log)

	// 6. Chat-bot transport; without a channel token pushes are skipped
	var (
		transport domain.MessagingTransport
		profiles  domain.ChatProfileSource
	)
	if cfg.Line.ChannelToken != "" {
		lineClient, err := line.NewClient(cfg.Line.APIBaseURL, cfg.Line.ChannelToken, log)
		if err != nil {
			log.Error("failed to create LINE client", slog.String("error", err.Error()))
			os.Exit(1)
		}
		transport, profiles = lineClient, lineClient
	} else {
		log.Warn("LINE_CHANNEL_TOKEN not set, chat-bot messages disabled")
	}

	// 7. Initialize security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "jobmatch")
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, cfg.RateLimitPerMinute/4+1)
	auditLogger := audit.NewLogger(log)
	authorizer := security.NewAuthorizer(log)

	// 8. Initialize services
	authService := service.NewAuthService(stores, txManager, tokenManager, cfg.JWTTTL, log)
	matchService := service.NewMatchService(stores, authorizer, log)
	applicationService := service.NewApplicationService(stores, txManager, authorizer, auditLogger, redisClient, log)
	ledgerService := service.NewLedgerService(stores, txManager, authorizer, auditLogger, redisClient, log)
	packageService := service.NewPackageService(stores.Packages, cfg.PackageCacheTTL, log)
	notificationService := service.NewNotificationService(stores.Notifications, redisClient, log)
	jobService := service.NewJobService(stores, txManager, authorizer, auditLogger, redisClient, log)
	seekerService := service.NewSeekerService(stores, profiles, redis.NewLinkCodeStore(redisClient), log)
	chatbotService := service.NewChatbotService(stores, applicationService, seekerService, transport, cfg.Line.LIFFURL, log)

	// 9. Initialize handlers
	hub := handler.NewNotificationHub(cfg.CORSAllowedOrigins, log)
	handlers := handler.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": handler.PingFunc(pool.Health),
			"redis":    redisClient,
		}, log),
		Auth:          handler.NewAuthHandler(authService, log),
		Jobs:          handler.NewJobsHandler(matchService, log),
		JobPostings:   handler.NewJobPostingsHandler(jobService, log),
		Seekers:       handler.NewSeekersHandler(seekerService, log),
		Applications:  handler.NewApplicationsHandler(applicationService, log),
		Notifications: handler.NewNotificationsHandler(notificationService, log),
		Stream:        hub,
		Ledger:        handler.NewLedgerHandler(packageService, ledgerService, log),
	}
	if cfg.LineWebhookEnabled() {
		handlers.LineWebhook = handler.NewLineWebhookHandler(chatbotService, cfg.Line.ChannelSecret, log)
	} else {
		log.Warn("LINE_CHANNEL_SECRET not set, chat-bot webhook not mounted")
	}

	// 10. Setup HTTP routes
	mux := http.NewServeMux()
	handlers.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Chain middleware: request ID -> CORS -> JWT -> rate limit -> audit -> content type -> timeout -> tracing -> metrics
	api := otelhttp.NewHandler(metrics.HTTPMetricsMiddleware(mux), "jobmatch.http")
	rootHandler := withRequestID(
		withCORS(cfg.CORSAllowedOrigins,
			middleware.JWTMiddleware(tokenManager, log)(
				middleware.RateLimitMiddleware(rateLimiter, log)(
					middleware.AuditMiddleware(auditLogger)(
						middleware.ValidateJSONContentType(log)(
							withTimeout(cfg.RequestTimeout, api),
						),
					),
				),
			),
		),
		log,
	)

	// 11. Start background workers
	maintenance := worker.NewMaintenanceWorker(ledgerService, stores.Jobs, cfg.Schedules, log)
	if err := maintenance.Start(ctx); err != nil {
		log.Error("failed to start maintenance worker", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dispatcher := worker.NewNotificationDispatcher(transport, hub, log)
	consumer, err := os.Hostname()
	if err != nil || consumer == "" {
		consumer = "dispatcher-" + generateRequestID()
	}
	go worker.Supervise(ctx, worker.SuperviseConfig(), log, "event_subscription", func(ctx context.Context) error {
		return redisClient.Subscribe(ctx, dispatcher.Fanout)
	})
	go worker.Supervise(ctx, worker.SuperviseConfig(), log, "push_stream", func(ctx context.Context) error {
		return redisClient.Consume(ctx, consumer, dispatcher.Deliver)
	})

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
			sigChan <- syscall.SIGTERM
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // stops the consumers and in-flight maintenance passes
	maintenance.Stop(shutdownCtx)
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

// withCORS answers preflights before authentication sees them.
func withCORS(allowed []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(allowed, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(allowed) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", allowed[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withTimeout bounds the request context. Websocket streams are exempt.
func withTimeout(d time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d <= 0 || strings.HasPrefix(r.URL.Path, "/ws/") {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
