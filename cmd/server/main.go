package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/bootcamp-directory/internal/breaker"
	"github.com/iliyamo/bootcamp-directory/internal/config"
	"github.com/iliyamo/bootcamp-directory/internal/database"
	"github.com/iliyamo/bootcamp-directory/internal/geocoder"
	"github.com/iliyamo/bootcamp-directory/internal/logging"
	"github.com/iliyamo/bootcamp-directory/internal/mailer"
	"github.com/iliyamo/bootcamp-directory/internal/queue"
	"github.com/iliyamo/bootcamp-directory/internal/repository"
	"github.com/iliyamo/bootcamp-directory/internal/router"
	"github.com/iliyamo/bootcamp-directory/internal/service"
	"github.com/iliyamo/bootcamp-directory/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.IsProduction())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := database.Open(ctx, database.Options{
		User: cfg.DB.User, Pass: cfg.DB.Pass, Host: cfg.DB.Host, Port: cfg.DB.Port, Name: cfg.DB.Name,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DB.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	rdb := config.NewRedisClient(ctx, cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unavailable, cache and rate limit disabled", slog.String("addr", cfg.Redis.Address()))
	} else {
		defer rdb.Close()
	}

	store, err := storage.New(cfg.Upload)
	if err != nil {
		return err
	}

	var events service.EventPublisher
	if cfg.Events.Enabled {
		events = queue.NewPublisher(cfg.Events.RabbitURL, logger)
		if cfg.Events.ConsumerEnabled {
			consumer := &queue.Consumer{URL: cfg.Events.RabbitURL, LogPath: cfg.Events.LogPath, Logger: logger}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("event consumer stopped", slog.String("error", err.Error()))
				}
			}()
		}
	}

	users := repository.NewUserRepo(db)
	auth := service.NewAuthService(service.AuthConfig{
		Secret:     cfg.Auth.JWTSecret,
		TokenTTL:   cfg.Auth.JWTExpire,
		BcryptCost: cfg.Auth.BcryptCost,
		ResetTTL:   cfg.Auth.ResetTokenTTL,
	},
		users,
		mailer.NewClient(cfg.Mail.APIToken, cfg.Mail.From, cfg.Mail.APIURL,
			mailer.WithBreaker(breaker.DefaultConfig("mailer"), logger)),
		events,
		logger,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e := router.New(router.Deps{
		Cfg:       cfg,
		Logger:    logger,
		DB:        db,
		Redis:     rdb,
		Registry:  reg,
		Auth:      auth,
		Users:     users,
		Bootcamps: repository.NewBootcampRepo(db),
		Courses:   repository.NewCourseRepo(db),
		Reviews:   repository.NewReviewRepo(db),
		Geo: geocoder.NewClient(cfg.Geocoder.APIKey, cfg.Geocoder.APIURL,
			geocoder.WithBreaker(breaker.DefaultConfig("geocoder"), logger)),
		Photos: storage.NewPhotos(store, cfg.Upload.MaxFileSize),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", srv.Addr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
