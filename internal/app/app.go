package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "authcore/docs"
	"authcore/internal/config"
	"authcore/internal/handlers"
	"authcore/internal/logger"
	"authcore/internal/repositories"
	"authcore/internal/routes"
	"authcore/internal/services"
	"authcore/internal/utils"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *sql.DB
	router  *gin.Engine
	closers []func() error
}

type Option func(*options)

type options struct {
	notifier services.Notifier
	clock    services.Clock
}

// WithNotifier replaces the configured delivery channel.
func WithNotifier(n services.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithClock(c services.Clock) Option {
	return func(o *options) { o.clock = c }
}

// Run loads configuration, serves until ctx is cancelled, then shuts down.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("[app] close", zap.Error(err))
		}
	}()
	return a.Serve(ctx)
}

// New connects storage, applies migrations and builds the HTTP router.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{cfg: cfg, log: log}

	// === DB ===
	db, err := repositories.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	if err := repositories.Migrate(ctx, db); err != nil {
		_ = a.Close()
		return nil, err
	}

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	proofRepo := repositories.NewOneTimeProofRepository(db)

	// === Services ===
	clock := o.clock
	hasher, err := services.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	tokens, err := services.NewTokenService(services.TokenConfig{
		Issuer:        cfg.Auth.Issuer,
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
	}, clock)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	notifier := o.notifier
	if notifier == nil {
		n, closeFn, err := buildNotifier(cfg, log, clock)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		notifier = n
		if closeFn != nil {
			a.closers = append(a.closers, closeFn)
		}
	}

	policy := services.PasswordPolicy{
		MinLength:     cfg.Auth.Password.MinLength,
		RequireLower:  cfg.Auth.Password.RequireLower,
		RequireUpper:  cfg.Auth.Password.RequireUpper,
		RequireDigit:  cfg.Auth.Password.RequireDigit,
		RequireSymbol: cfg.Auth.Password.RequireSymbol,
	}
	totp := services.NewTOTPVerifier(cfg.Auth.TOTPIssuer)
	proofs := services.NewProofStore(proofRepo, clock)

	loginService := services.NewLoginService(userRepo, hasher, totp, tokens, log, clock)
	phoneService := services.NewPhoneOTPService(db, userRepo, proofs, tokens, notifier, cfg.Auth.PhoneCodeTTL, log, clock)
	resetService := services.NewPasswordResetService(db, userRepo, proofs, hasher, policy, notifier, cfg.Auth.ResetTokenTTL, log, clock)
	registrationService := services.NewRegistrationService(db, userRepo, hasher, policy, tokens, notifier, log, clock)
	twoFactorService := services.NewSecondFactorService(userRepo, totp, log, clock)
	userService := services.NewUserService(userRepo)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(loginService, phoneService, resetService, registrationService, userService, log)
	twoFactorHandler := handlers.NewSecondFactorHandler(twoFactorService, log)

	// === Gin ===
	a.router = newRouter(cfg.Server, log)
	routes.SetupRoutes(a.router, authHandler, twoFactorHandler, tokens)

	log.Info("[app] ready",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("notifier", notifierName(cfg, o.notifier)),
	)
	return a, nil
}

func (a *App) Handler() http.Handler { return a.router }

// Serve listens on the configured port until ctx is done, then drains
// in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("[app] listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.log.Info("[app] shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newRouter(cfg config.ServerConfig, log *zap.Logger) *gin.Engine {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewareStack(cfg, log)...)
	return r
}

func buildNotifier(cfg *config.Config, log *zap.Logger, clock services.Clock) (services.Notifier, func() error, error) {
	switch cfg.Notifier.Driver {
	case "", "log":
		return services.NewLogNotifier(log), nil, nil
	case "direct":
		client := utils.NewClientWithOptions(cfg.Mobizon.APIKey, cfg.Mobizon.SenderID, cfg.Mobizon.BaseURL, cfg.Mobizon.DryRun, log)
		sms := services.NewSMSService(client, cfg.Auth.TOTPIssuer, clock)
		var email services.EmailService
		if cfg.Email.SMTPHost != "" {
			email = services.NewEmailService(
				cfg.Email.SMTPHost,
				cfg.Email.SMTPPort,
				cfg.Email.SMTPUser,
				cfg.Email.SMTPPassword,
				cfg.Email.FromEmail,
				cfg.Auth.TOTPIssuer,
			)
		}
		return services.NewDirectNotifier(sms, email, cfg.Notifier.ResetURL), nil, nil
	case "kafka":
		k := services.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Username, cfg.Kafka.Password, cfg.Kafka.TLS, log)
		return k, k.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown notifier driver %q", cfg.Notifier.Driver)
	}
}

func notifierName(cfg *config.Config, override services.Notifier) string {
	if override != nil {
		return "custom"
	}
	if cfg.Notifier.Driver == "" {
		return "log"
	}
	return cfg.Notifier.Driver
}
