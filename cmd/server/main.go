package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/property-listings/internal/config"
	"github.com/iliyamo/property-listings/internal/database"
	"github.com/iliyamo/property-listings/internal/handler"
	"github.com/iliyamo/property-listings/internal/mail"
	"github.com/iliyamo/property-listings/internal/middleware"
	"github.com/iliyamo/property-listings/internal/queue"
	"github.com/iliyamo/property-listings/internal/repository"
	"github.com/iliyamo/property-listings/internal/router"
	"github.com/iliyamo/property-listings/internal/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	log := newLogger(cfg.IsProduction())
	defer func() { _ = log.Sync() }()
	if err != nil {
		log.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable: rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	purger := middleware.NewRedisPurger(cacheCfg, rdb, log)

	mailer := newMailer(ctx, cfg, log)

	users := repository.NewUserRepo(db)
	tokens := service.NewTokenManager(repository.NewTokenRepo(db))
	props := repository.NewPropertyRepo(db)

	authSvc := service.NewAuthService(users, tokens, mailer, service.AuthConfig{
		JWTSecret:            cfg.JWTSecret,
		SessionTTL:           cfg.SessionTTL,
		BcryptCost:           cfg.BcryptCost,
		RequireVerifiedEmail: cfg.RequireVerifiedEmail,
		AppURL:               cfg.AppURL,
	}, log)
	userSvc := service.NewUserService(users, purger, cfg.BcryptCost, log)
	propSvc := service.NewPropertyService(props, service.NewImageURLValidator(cfg.ImageHosts), purger, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{cfg.AppURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Session(authSvc))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, cfg.AppURL, log),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterProperties(e, handler.NewPropertyHandler(propSvc, log),
		middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterAdmin(e, handler.NewAdminUsersHandler(userSvc, log))

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}

func newLogger(production bool) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if production {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// newMailer picks how mails leave the process. With a broker, requests are
// queued and a consumer in this process delivers them; otherwise they are
// sent inline over SMTP, or only logged when SMTP is not configured.
func newMailer(ctx context.Context, cfg config.Config, log *zap.Logger) service.Mailer {
	var sender mail.Sender = mail.NewLogSender(log)
	if cfg.Mail.Host != "" {
		sender = mail.NewSMTPSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Pass, cfg.Mail.From)
	} else {
		log.Warn("SMTP_HOST not set: emails will only be logged")
	}
	if cfg.RabbitMQURL == "" {
		return sender
	}
	consumer := queue.NewConsumer(cfg.RabbitMQURL, sender, log)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("mail consumer stopped", zap.Error(err))
		}
	}()
	return service.NewMailPublisher(cfg.RabbitMQURL, log)
}
