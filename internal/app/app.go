// Package app wires configuration into a running server: storage drivers,
// services, handlers, routes and background jobs.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	_ "healthcrm/docs"
	"healthcrm/internal/auth"
	"healthcrm/internal/caching"
	"healthcrm/internal/config"
	"healthcrm/internal/handlers"
	"healthcrm/internal/jobs"
	"healthcrm/internal/jobs/background"
	"healthcrm/internal/middleware"
	"healthcrm/internal/migrations"
	"healthcrm/internal/models"
	"healthcrm/internal/repositories"
	"healthcrm/internal/routes"
	"healthcrm/internal/seed"
	"healthcrm/internal/services"
	"healthcrm/pkg/database"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// App is a fully wired server.
type App struct {
	Echo *echo.Echo

	cfg       *config.Config
	log       *zap.Logger
	pool      *pgxpool.Pool
	store     caching.Store
	jwks      *keyfunc.JWKS
	scheduler *background.JobScheduler
	imports   *jobs.ImportRunner
}

// New builds the application described by cfg. The caller owns the returned
// App and must call Close.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

type storage struct {
	users        repositories.UserRepository
	emails       repositories.EmailRepository
	appointments repositories.AppointmentRepository
}

func (a *App) openStorage(ctx context.Context) (storage, error) {
	if a.cfg.StorageDriver != config.DriverPostgres {
		a.log.Info("using in-memory storage")
		return storage{
			users:        repositories.NewMemoryUserRepo(),
			emails:       repositories.NewMemoryEmailRepo(),
			appointments: repositories.NewMemoryAppointmentRepo(),
		}, nil
	}

	pool, err := database.NewPool(ctx, a.cfg.DatabaseURL, a.log)
	if err != nil {
		return storage{}, err
	}
	a.pool = pool
	if a.cfg.AutoMigrate {
		if err := database.Migrate(ctx, pool, migrations.FS, a.log); err != nil {
			return storage{}, err
		}
	}
	return storage{
		users:        repositories.NewUserRepo(pool),
		emails:       repositories.NewEmailRepo(pool),
		appointments: repositories.NewAppointmentRepo(pool),
	}, nil
}

func (a *App) openStore() (caching.Store, background.Sweeper) {
	if a.cfg.RedisAddr != "" {
		return caching.NewRedisStore(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB, a.log), nil
	}
	mem := caching.NewMemoryStore()
	return mem, mem
}

func (a *App) openAttachments(ctx context.Context) (services.AttachmentStorage, error) {
	if a.cfg.MinioEndpoint == "" {
		return services.NewMemoryStorage(), nil
	}
	s, err := services.NewMinioStorage(a.cfg.MinioEndpoint, a.cfg.MinioAccessKey, a.cfg.MinioSecretKey,
		a.cfg.MinioBucket, a.cfg.MinioUseSSL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize attachment storage: %w", err)
	}
	if err := s.EnsureBucket(ctx); err != nil {
		a.log.Warn("attachment bucket unavailable", zap.String("bucket", a.cfg.MinioBucket), zap.Error(err))
	}
	return s, nil
}

func (a *App) tokenManager() (*auth.TokenManager, error) {
	secret := a.cfg.JWTSecret
	if secret == "" {
		secret = random.String(32)
		a.log.Warn("JWT_SECRET not set, using a generated secret; sessions end on restart")
	}
	tokens := auth.NewTokenManager(secret, a.cfg.TokenTTL)
	if a.cfg.JWKSURL == "" {
		return tokens, nil
	}

	jwks, err := keyfunc.Get(a.cfg.JWKSURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			a.log.Warn("failed to refresh JWKS", zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS from %s: %w", a.cfg.JWKSURL, err)
	}
	a.jwks = jwks
	return tokens.WithJWKS(jwks), nil
}

func (a *App) build(ctx context.Context) error {
	store, sweeper := a.openStore()
	a.store = store

	st, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	attachments, err := a.openAttachments(ctx)
	if err != nil {
		return err
	}
	tokens, err := a.tokenManager()
	if err != nil {
		return err
	}

	var fixtures *seed.Fixtures
	if a.cfg.Seed {
		if fixtures, err = seed.Load(); err != nil {
			return err
		}
	}
	records := seed.NewCollections(fixtures)

	notifications := services.NewNotificationService(store, a.log)
	status := services.NewStatusService()
	authService := services.NewAuthService(st.users, tokens, store, a.log)
	emailService := services.NewEmailService(st.emails, services.NewDraftStore(store),
		services.NewComposeStager(store, a.cfg.ComposeTTL), attachments, notifications, a.log)
	calendarService := services.NewCalendarService(st.appointments, emailService, a.log)
	patientService := services.NewPatientService(records.Patients, a.cfg.SimulatedLatency)
	dealService := services.NewDealService(records.Deals)
	workflowService := services.NewWorkflowService(records.Workflows)
	prescriptionService := services.NewPrescriptionService(records.Prescriptions)
	callService := services.NewCallService(records.Calls)
	dashboardService := services.NewDashboardService(emailService, calendarService, dealService, workflowService, status)

	if fixtures != nil {
		seeder := &seed.Seeder{
			Auth:         authService,
			Users:        st.users,
			Emails:       st.emails,
			Appointments: st.appointments,
			Log:          a.log,
		}
		if err := seeder.Accounts(ctx, fixtures); err != nil {
			return err
		}
	}

	a.imports = jobs.NewImportRunner(patientService, notifications, a.log, a.cfg.ImportRowDelay)
	a.scheduler, err = background.NewJobScheduler(calendarService, notifications, sweeper, a.log)
	if err != nil {
		return err
	}

	checks := map[string]handlers.Pinger{
		"store":   store,
		"storage": handlers.PingFunc(attachments.EnsureBucket),
	}
	critical := []string{"store"}
	if a.pool != nil {
		checks["database"] = a.pool
		critical = append(critical, "database")
	}

	h := &routes.Handlers{
		Auth:          handlers.NewAuthHandlers(authService, a.cfg.SecureCookie),
		Dashboard:     handlers.NewDashboardHandlers(dashboardService),
		Email:         handlers.NewEmailHandlers(emailService),
		Calendar:      handlers.NewCalendarHandlers(calendarService),
		Patients:      handlers.NewRecordHandlers[models.Patient](patientService, "patients", "patientId"),
		Imports:       handlers.NewImportHandlers(a.imports),
		Organizations: handlers.NewRecordHandlers(services.NewRecordService("organization", "/organizations", records.Organizations), "organizations", "id"),
		Contacts:      handlers.NewRecordHandlers(services.NewRecordService("contact", "/contacts", records.Contacts), "contacts", "id"),
		Deals:         handlers.NewRecordHandlers[models.Deal](dealService, "deals", "id"),
		Pipeline:      handlers.NewPipelineHandlers(dealService),
		Prescriptions: handlers.NewRecordHandlers[models.Prescription](prescriptionService, "prescriptions", "id"),
		Prescribing:   handlers.NewPrescriptionHandlers(prescriptionService),
		Calls:         handlers.NewCallHandlers(callService),
		Workflows:     handlers.NewRecordHandlers[models.Workflow](workflowService, "workflows", "id"),
		Automation:    handlers.NewWorkflowHandlers(workflowService),
		Settings:      handlers.NewSettingsHandlers(authService),
		Notifications: handlers.NewNotificationHandlers(notifications, status),
		Health:        handlers.NewHealthHandlers(a.cfg.Version, checks, critical...),
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler(a.log)
	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(a.log))
	e.Use(echoMiddleware.BodyLimit("30M"))
	e.Use(middleware.VersionHeader(a.cfg.Version))
	e.Use(middleware.Authenticate(tokens, authService, a.log))

	routes.Register(e, h, routes.Options{
		LoginRate:  rate.Limit(a.cfg.LoginRate),
		LoginBurst: a.cfg.LoginBurst,
		Swagger:    a.cfg.Swagger,
	})
	a.Echo = e
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start()

	addr := fmt.Sprintf(":%d", a.cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("healthcrm server starting", zap.String("version", a.cfg.Version), zap.String("addr", addr),
			zap.String("storage", a.cfg.StorageDriver))
		if err := a.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.Echo.Shutdown(shutdownCtx)
}

// Close stops background work and releases connections.
func (a *App) Close() {
	if a.imports != nil {
		a.imports.Shutdown()
	}
	if a.scheduler != nil {
		if err := a.scheduler.Stop(); err != nil {
			a.log.Warn("scheduler did not stop cleanly", zap.Error(err))
		}
	}
	if a.jwks != nil {
		a.jwks.EndBackground()
	}
	if closer, ok := a.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.log.Warn("failed to close store", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
