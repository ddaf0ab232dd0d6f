// Command server runs the Pet Connect web gateway.
//
//	@title		Pet Connect Web Gateway
//	@version	1.0
//	@BasePath	/
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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/petconnect/web-gateway/internal/api"
	"github.com/petconnect/web-gateway/internal/api/middleware"
	"github.com/petconnect/web-gateway/internal/config"
	"github.com/petconnect/web-gateway/internal/core/ports"
	"github.com/petconnect/web-gateway/internal/infrastructure/apiclient"
	mongostore "github.com/petconnect/web-gateway/internal/infrastructure/db/mongo"
	redisstore "github.com/petconnect/web-gateway/internal/infrastructure/db/redis"
	"github.com/petconnect/web-gateway/internal/infrastructure/session"
	"github.com/petconnect/web-gateway/internal/infrastructure/storage"
	"github.com/petconnect/web-gateway/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "petconnect-web",
	})
	if envErr != nil {
		log.Debug().Msg(".env file not found, relying on environment")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	backend, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()
	log.Info().Str("driver", backend.Name()).Msg("session storage ready")

	client, err := apiclient.New(apiclient.Config{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
	}, logger.For("apiclient"))
	if err != nil {
		return err
	}

	registry := session.NewRegistry(backend, client, session.Options{
		IdleTimeout: cfg.Session.IdleTimeout,
	}, logger.For("sessions"))
	registry.Start(ctx)

	e := api.NewRouter(api.Dependencies{
		Sessions: registry,
		Storage:  backend,
		Cookie: middleware.CookieOptions{
			Name:   cfg.Session.Cookie,
			Secure: cfg.Session.CookieSecure,
			MaxAge: cfg.Storage.TTL,
		},
		Log: logger.For("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Str("backend", cfg.Backend.URL).Msg("starting web gateway")
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

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStorage connects the configured durable backend. The returned func
// releases its connection.
func openStorage(ctx context.Context, cfg *config.Config) (ports.StorageBackend, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverRedis:
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewStorage(rdb, cfg.Storage.TTL), func() { _ = rdb.Close() }, nil

	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, err
		}
		st := mongostore.NewStorage(db, cfg.Storage.TTL)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return st, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		return storage.NewMemory(), func() {}, nil
	}
}
