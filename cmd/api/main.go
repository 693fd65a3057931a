package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mentorium/mentorium-api/config"
	"github.com/mentorium/mentorium-api/internal/cache"
	"github.com/mentorium/mentorium-api/internal/events"
	"github.com/mentorium/mentorium-api/internal/handlers"
	"github.com/mentorium/mentorium-api/internal/middleware"
	"github.com/mentorium/mentorium-api/internal/models"
	"github.com/mentorium/mentorium-api/internal/notify"
	"github.com/mentorium/mentorium-api/internal/payment"
	"github.com/mentorium/mentorium-api/internal/realtime"
	"github.com/mentorium/mentorium-api/internal/repository"
	"github.com/mentorium/mentorium-api/internal/repository/memory"
	"github.com/mentorium/mentorium-api/internal/services"
	"github.com/mentorium/mentorium-api/pkg/db"
	"github.com/mentorium/mentorium-api/pkg/httpclient"
	"github.com/mentorium/mentorium-api/pkg/jwt"
	"github.com/mentorium/mentorium-api/pkg/lock"
	"github.com/mentorium/mentorium-api/pkg/logger"
	"github.com/mentorium/mentorium-api/pkg/mailer"
	"github.com/mentorium/mentorium-api/pkg/metrics"
	"github.com/mentorium/mentorium-api/pkg/profiling"
	"github.com/mentorium/mentorium-api/pkg/storage"
	"github.com/mentorium/mentorium-api/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// backend is the store wiring for either Postgres or offline mode
type backend struct {
	stores   repository.Stores
	changes  realtime.Source
	pingDB   func(ctx context.Context) error
	listener *realtime.Listener
	close    func()
}

func newBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.Database.WorkOffline {
		logger.Warn("Running in offline mode with the in-memory store; data is lost on restart")
		store := memory.New()
		if cfg.Database.OfflineSeedFile != "" {
			if err := store.LoadSeedFile(cfg.Database.OfflineSeedFile); err != nil {
				return nil, err
			}
		}
		return &backend{
			stores:  store.Stores(),
			changes: realtime.NewLocalFeed(store.OnChange),
			close:   func() {},
		}, nil
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:           cfg.Database.URL,
		MaxConns:      cfg.Database.MaxConns,
		MinConns:      cfg.Database.MinConns,
		CACertPath:    cfg.Database.CACertPath,
		TLSServerName: cfg.Database.TLSServerName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database connection pool: %w", err)
	}

	stores := repository.NewPostgresStores(pool)
	b := &backend{
		stores: stores,
		pingDB: pool.Ping,
		close:  func() { db.Close(pool) },
	}
	if cfg.Realtime.Enabled {
		b.listener = realtime.NewListener(pool, cfg.Realtime.Channel)
		b.changes = b.listener
	}
	return b, nil
}

func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func()) {
	if cfg.Redis.URL == "" {
		logger.Info("Slot lock disabled: REDIS_URL not set")
		return lock.NoopLocker{}, func() {}
	}
	rdb, err := lock.NewRedisClient(ctx, cfg.Redis.URL)
	if err != nil {
		// the conditional delete still guards every slot
		logger.Warn("Redis unavailable, continuing without slot lock", zap.Error(err))
		return lock.NoopLocker{}, func() {}
	}
	return lock.NewRedisLocker(rdb, cfg.Redis.KeyPrefix), func() { _ = rdb.Close() }
}

func newMailSender(cfg *config.Config, httpClient httpclient.Client) mailer.Sender {
	if cfg.Mail.APIURL == "" {
		logger.Warn("MAIL_API_URL not set, booking emails will only be logged")
		return mailer.LogSender{}
	}
	return mailer.NewClient(mailer.Config{
		APIURL: cfg.Mail.APIURL,
		APIKey: cfg.Mail.APIKey,
		From:   cfg.Mail.From,
	}, httpClient)
}

func newArchiver(cfg *config.Config) notify.Archiver {
	storageCfg := storage.Config(cfg.DeadLetter)
	if !storageCfg.Enabled() {
		return nil
	}
	client, err := storage.NewClient(storageCfg)
	if err != nil {
		logger.Warn("Dead letter archive disabled", zap.Error(err))
		return nil
	}
	return client
}

// registerAPIRoutes registers the versioned booking API
func registerAPIRoutes(
	v1 *gin.RouterGroup,
	tokenManager *jwt.TokenManager,
	cfg *config.Config,
	generalRateLimiter, bookingRateLimiter *middleware.RateLimiter,
	pricingHandler *handlers.PricingHandler,
	calendarHandler *handlers.CalendarHandler,
	bookingHandler *handlers.BookingHandler,
	sessionHandler *handlers.SessionHandler,
) {
	v1.GET("/price", generalRateLimiter.Middleware(), pricingHandler.GetPrice)
	v1.GET("/calendar", generalRateLimiter.Middleware(), calendarHandler.GetCalendar)
	v1.GET("/mentors/:id/slots", generalRateLimiter.Middleware(), calendarHandler.GetMentorSlots)

	authed := v1.Group("")
	authed.Use(middleware.IdentityMiddleware(tokenManager, cfg.Auth.CookieName))
	authed.POST("/bookings",
		middleware.RequireRole(models.RoleStudent),
		bookingRateLimiter.Middleware(),
		middleware.BodySizeLimitMiddleware(64*1024),
		bookingHandler.Book)
	authed.GET("/sessions/:id", generalRateLimiter.Middleware(), sessionHandler.GetSession)
	authed.POST("/sessions/:id/cancel", bookingRateLimiter.Middleware(), sessionHandler.CancelSession)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		LogDir:      cfg.Logging.Dir,
		Environment: cfg.Server.AppEnv,
		ServiceName: cfg.Observability.ServiceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Mentorium API",
		zap.String("version", cfg.Observability.ServiceVersion),
		zap.String("environment", cfg.Server.AppEnv),
		zap.Bool("offline", cfg.Database.WorkOffline),
	)

	tracerShutdown, err := tracing.InitTracer(tracing.Config{
		ServiceName:       cfg.Observability.ServiceName,
		ServiceNamespace:  cfg.Observability.ServiceNamespace,
		ServiceVersion:    cfg.Observability.ServiceVersion,
		ServiceInstanceID: cfg.Observability.ServiceInstanceID,
		Environment:       cfg.Server.AppEnv,
		Endpoint:          cfg.Observability.ExporterEndpoint,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tracerShutdown(ctx); shutdownErr != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(shutdownErr))
		}
	}()

	stopProfiling, err := profiling.Start(cfg.Profiling, cfg.Observability, cfg.Server.AppEnv)
	if err != nil {
		logger.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer stopProfiling()

	// background workers stop when ctx is cancelled
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	metrics.RecordInfrastructureMetrics(ctx.Done())

	be, err := newBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer be.close()

	locker, closeLocker := newLocker(ctx, cfg)
	defer closeLocker()

	gateway, err := payment.New(cfg.Payment)
	if err != nil {
		logger.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	publisher, err := events.New(cfg.Events)
	if err != nil {
		logger.Fatal("Failed to initialize event publisher", zap.Error(err))
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			logger.Error("Failed to close event publisher", zap.Error(closeErr))
		}
	}()

	httpClient := httpclient.NewStandardClient()

	dispatcher := notify.NewDispatcher(be.stores.Outbox, notify.ConfigFrom(cfg.Outbox), newArchiver(cfg))
	dispatcher.RegisterDefaults(be.stores.Notifications, newMailSender(cfg, httpClient), publisher)

	calendarCache := cache.NewCalendarCache(cfg.Cache.CalendarTTLSeconds, cfg.Cache.DisableCalendarCache)
	if cfg.Cache.DisableCalendarCache {
		logger.Warn("Calendar cache is DISABLED - projecting from the store on every request")
	}

	pricingService := services.NewPricingService(cfg)
	calendarService := services.NewCalendarService(be.stores, calendarCache, cfg)
	sessionService := services.NewSessionService(be.stores, dispatcher, cfg, httpClient)
	bookingService, err := services.NewBookingService(be.stores, pricingService, gateway, locker, dispatcher, cfg, httpClient)
	if err != nil {
		logger.Fatal("Failed to initialize booking service", zap.Error(err))
	}

	var listenerConnected func() bool
	if be.changes != nil {
		be.changes.OnChange(func(change realtime.Change) {
			logger.Debug("Availability changed, invalidating calendar",
				zap.String("op", change.Op),
				zap.String("mentor_id", change.MentorID),
				zap.String("date", change.Date))
			calendarService.Invalidate()
		})
		listenerConnected = be.changes.IsConnected
	}
	if be.listener != nil {
		go be.listener.Run(ctx)
	}
	go dispatcher.Run(ctx)

	pricingHandler := handlers.NewPricingHandler(pricingService)
	calendarHandler := handlers.NewCalendarHandler(calendarService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	healthHandler := handlers.NewHealthHandler(be.pingDB, listenerConnected)
	handlers.RegisterValidators()

	tokenManager := jwt.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, 0)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Observability.ServiceName))
	router.Use(middleware.ObservabilityMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	allowedOrigins := cfg.Server.AllowedOrigins
	if cfg.IsDevelopment() {
		allowedOrigins = append(allowedOrigins, "http://localhost:3000", "http://127.0.0.1:3000")
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-CSRF-Token", "traceparent", "tracestate"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true, // session cookie
		MaxAge:           12 * time.Hour,
	}))

	generalRateLimiter := middleware.NewRateLimiter(ctx, 100, 200) // 100 req/sec, burst of 200
	bookingRateLimiter := middleware.NewRateLimiter(ctx, 1, 5)     // per student: 1 req/sec, burst of 5

	api := router.Group("/api")
	api.GET("/healthcheck", generalRateLimiter.Middleware(), healthHandler.Healthcheck)
	api.GET("/metrics", middleware.InternalAPIAuthMiddleware(cfg.Auth.InternalAPIToken), gin.WrapH(promhttp.Handler()))

	registerAPIRoutes(router.Group("/api/v1"), tokenManager, cfg,
		generalRateLimiter, bookingRateLimiter,
		pricingHandler, calendarHandler, bookingHandler, sessionHandler)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("Server started", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	// in-flight requests are done; stop the dispatcher and listener
	stop()

	logger.Info("Server exited")
}
