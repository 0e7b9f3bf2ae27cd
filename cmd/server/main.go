package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sia12-web/uniHood-sub008/internal/config"
	"github.com/sia12-web/uniHood-sub008/internal/history"
	"github.com/sia12-web/uniHood-sub008/internal/httpapi"
	"github.com/sia12-web/uniHood-sub008/internal/hub"
	"github.com/sia12-web/uniHood-sub008/internal/room"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	starter, _ := cfg.Starter() // validated in config.Load

	var recorder room.Recorder
	if cfg.HistoryDSN != "" {
		store, err := history.Open(cfg.HistoryDSN, logger)
		if err != nil {
			logger.Fatal("history store unavailable", zap.Error(err))
		}
		recorder = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.NewHub(ctx, hub.Options{
		SessionTTL:    cfg.SessionTTL,
		SweepInterval: cfg.SweepInterval,
		Room: room.Options{
			RematchStarter: starter,
			Recorder:       recorder,
			Logger:         logger,
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, logger),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
