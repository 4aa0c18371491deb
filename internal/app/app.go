package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"school-service/internal/auth"
	"school-service/internal/authz"
	"school-service/internal/classroom"
	"school-service/internal/config"
	"school-service/internal/db"
	"school-service/internal/events"
	"school-service/internal/health"
	"school-service/internal/logger"
	"school-service/internal/metrics"
	"school-service/internal/middleware"
	"school-service/internal/model"
	"school-service/internal/school"
	"school-service/internal/store"
	"school-service/internal/student"
	"school-service/internal/telemetry"
)

type App struct {
	config        *config.Config
	router        chi.Router
	server        *http.Server
	logger        *slog.Logger
	producer      events.Producer
	meterProvider *sdkmetric.MeterProvider
}

func New() *App {
	slogLogger := logger.NewWithServiceContext(ServiceName, Version)

	// Set as default logger so slog.Info() uses JSON format
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	slogLogger.Info("config loaded", "env", cfg.Env)

	app := &App{
		config: cfg,
		router: chi.NewRouter(),
		logger: slogLogger,
	}

	database := db.New(cfg.Database)

	ctx := context.Background()
	err = db.RunMigrations(ctx, database,
		(*model.School)(nil),
		(*model.Classroom)(nil),
		(*model.Student)(nil),
		(*model.AdminUser)(nil),
		(*model.RefreshToken)(nil),
	)
	if err != nil {
		log.Fatal("failed to run migrations:", err)
	}

	m := metrics.NewNoop()
	if cfg.Metrics.Enabled {
		meterProvider, err := telemetry.InitMeterProvider(ctx, ServiceName, Version, cfg.Metrics.OTLPEndpoint, slogLogger)
		if err != nil {
			slogLogger.Warn("failed to initialize OTel metrics, continuing without", "error", err)
		} else {
			app.meterProvider = meterProvider
			m, err = metrics.New(otel.Meter(ServiceName))
			if err != nil {
				log.Fatal("failed to create metrics:", err)
			}
		}
	}
	st := store.NewPostgres(database, m)
	policy := authz.NewPolicy()
	tokens := auth.NewTokens(cfg.JWT)

	app.producer = newProducer(cfg.Events, slogLogger)

	// Apply CORS middleware globally
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	// Health endpoints (no auth required)
	healthHandler := health.NewHandler()
	healthHandler.RegisterRoutes(app.router)

	authenticate := auth.Authenticate(tokens, slogLogger)

	authService := auth.NewService(st, tokens, cfg.JWT.SuperAdminKey, slogLogger, m)
	authHandler := auth.NewHandler(authService, tokens, slogLogger)
	authHandler.RegisterRoutes(app.router, authenticate)

	schoolService := school.NewService(st, app.producer, slogLogger, m)
	schoolHandler := school.NewHandler(schoolService, policy, slogLogger)
	schoolHandler.RegisterRoutes(app.router, authenticate)

	classroomService := classroom.NewService(st, app.producer, slogLogger, m)
	classroomHandler := classroom.NewHandler(classroomService, policy, slogLogger)
	classroomHandler.RegisterRoutes(app.router, authenticate)

	studentService := student.NewService(st, app.producer, slogLogger, m)
	studentHandler := student.NewHandler(studentService, policy, slogLogger)
	studentHandler.RegisterRoutes(app.router, authenticate)

	slogLogger.Info("application initialized successfully")

	return app
}

// newProducer selects the event backend. Failures degrade to the no-op
// producer so the API keeps serving without a broker.
func newProducer(cfg config.EventsConfig, logger *slog.Logger) events.Producer {
	switch cfg.Backend {
	case "nats":
		producer, err := events.NewNATSProducer(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			logger.Warn("failed to initialize NATS producer", "error", err)
			return events.Nop{}
		}
		logger.Info("NATS producer initialized successfully")
		return producer
	case "kafka":
		producer, err := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Warn("failed to initialize Kafka producer", "error", err)
			return events.Nop{}
		}
		logger.Info("Kafka producer initialized successfully")
		return producer
	default:
		return events.Nop{}
	}
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")
	if err := a.producer.Close(); err != nil {
		a.logger.Warn("failed to close event producer", "error", err)
	}
	if a.meterProvider != nil {
		if err := telemetry.Shutdown(ctx, a.meterProvider, a.logger); err != nil {
			a.logger.Warn("failed to shut down meter provider", "error", err)
		}
	}
	return a.server.Shutdown(ctx)
}
