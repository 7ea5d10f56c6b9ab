package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"postapi/config"
	"postapi/database"
	"postapi/logging"
	"postapi/middleware"
	"postapi/routes"
)

func main() {
	// .env is optional; real deployments set the environment directly
	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		bootLog := logging.New("info", "json", os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if envErr != nil && !os.IsNotExist(envErr) {
		logger.Warn().Err(envErr).Msg("could not load .env")
	}
	logger.Info().Msg("starting post API")

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	logger.Info().Str("mode", gin.Mode()).Msg("gin mode")

	store, err := database.Open(context.Background(), cfg.Store.DatabaseConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to store")
	}
	logger.Info().Str("database", cfg.Store.Database).Msg("store connected")

	verifier, err := middleware.NewVerifier(cfg.Auth)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build token verifier")
	}

	router, err := routes.SetupRouter(routes.Deps{
		Store:        store,
		Verifier:     verifier,
		Logger:       logger,
		AllowOrigins: cfg.Server.AllowOrigins,
		StoreTimeout: cfg.Store.Timeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up router")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdown(logger, server, store, cfg.Server)
}

func shutdown(logger zerolog.Logger, server *http.Server, store database.Store, cfg config.ServerConfig) {
	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	if err := store.Close(ctx); err != nil {
		logger.Error().Err(err).Msg("store disconnect failed")
	}

	logger.Info().Msg("server stopped")
}
