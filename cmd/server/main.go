package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/augenstern326/star-exchange/configs"
	"github.com/augenstern326/star-exchange/internal/handlers"
	"github.com/augenstern326/star-exchange/internal/ledger"
	"github.com/augenstern326/star-exchange/internal/logger"
	"github.com/augenstern326/star-exchange/internal/routes"
	"github.com/augenstern326/star-exchange/internal/seed"
	"github.com/augenstern326/star-exchange/internal/store"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	configs.LoadConfig()

	st, err := store.Open(configs.AppConfig.DB.DSN)
	if err != nil {
		logger.Log.Fatal("failed to connect to database", zap.Error(err))
	}
	logger.Log.Info("connected to the database")
	if err := st.Migrate(); err != nil {
		logger.Log.Fatal("failed to run migrations", zap.Error(err))
	}

	svc := ledger.NewService(st, logger.Log)
	if configs.AppConfig.Seed.Enabled {
		seed.Run(svc)
	}

	router := routes.NewRoutes(handlers.New(svc))

	srv := &http.Server{
		Addr:         configs.AppConfig.Server.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Log.Info("server stopped")
}
