package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/discountcodes/discount-server-go/internal/codegen"
	"github.com/discountcodes/discount-server-go/internal/config"
	"github.com/discountcodes/discount-server-go/internal/database"
	"github.com/discountcodes/discount-server-go/internal/handler"
	"github.com/discountcodes/discount-server-go/internal/jobs"
	"github.com/discountcodes/discount-server-go/internal/metrics"
	"github.com/discountcodes/discount-server-go/internal/middleware"
	"github.com/discountcodes/discount-server-go/internal/redis"
	"github.com/discountcodes/discount-server-go/internal/repository"
	"github.com/discountcodes/discount-server-go/internal/service"
	"github.com/discountcodes/discount-server-go/internal/ws"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Str("driver", db.DriverName()).Msg("database connected")

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	codeRepo := repository.NewDiscountCodeRepository(db)

	if cfg.CacheEnabled() {
		redisClient, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Dur("ttl", cfg.StatusCacheTTL()).Msg("redis connected, status cache enabled")

		codeRepo = repository.NewCachedDiscountCodeRepository(
			codeRepo, redis.NewStatusCache(redisClient.Client, cfg.StatusCacheTTL()),
		)
	}

	metrics.MustRegister()

	discountService := service.NewDiscountService(codeRepo, codegen.NewRandomGenerator())
	dispatcher := handler.NewDispatcher(discountService)
	statusHandler := handler.NewStatusHandler(discountService, db)
	wsHandler := ws.NewHandler(dispatcher, ws.DefaultOptions(cfg.WSMaxMessageBytes))

	statsJob := jobs.NewStatsJob(codeRepo, cfg.StatsInterval())
	statsJob.Start()
	defer statsJob.Stop()

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", wsHandler.ServeHTTP)
	r.Get("/ws", wsHandler.ServeHTTP)
	r.Group(func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Get("/health", statusHandler.Health)
		r.Get("/stats", statusHandler.Stats)
		r.Get("/codes/{code}", statusHandler.Code)
		r.Handle("/metrics", metrics.Handler())
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := wsHandler.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Int("open", wsHandler.ActiveConnections()).Msg("websocket connections did not drain")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
