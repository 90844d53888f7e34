package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"PatternTrade/internal/domain/repository"
	"PatternTrade/internal/handler/api"
	"PatternTrade/internal/usecase"
	"PatternTrade/pkg/cache"
	pkgch "PatternTrade/pkg/clickhouse"
	"PatternTrade/pkg/config"
	xhttp "PatternTrade/pkg/http"
	applogger "PatternTrade/pkg/logger"
	"PatternTrade/pkg/queue"
)

// App encapsulates the entire application lifecycle: the candle
// stream feeding the dispatcher, the order-event queue, and the
// read-only HTTP API.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	dispatcher *usecase.Dispatcher
	stream     repository.CandleStream
	handler    *api.EngineHandler
	orderQueue *queue.RedisQueue
	redis      *cache.RedisCache
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	dispatcher *usecase.Dispatcher,
	stream repository.CandleStream,
	handler *api.EngineHandler,
	orderQueue *queue.RedisQueue,
	redis *cache.RedisCache,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		dispatcher: dispatcher,
		stream:     stream,
		handler:    handler,
		orderQueue: orderQueue,
		redis:      redis,
		chClient:   chClient,
	}
}

// Run starts the application and blocks until interrupted or the
// candle stream ends. A replay feed ending cleanly shuts the app
// down the same way a signal does.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.orderQueue != nil {
		if err := a.orderQueue.Start(); err != nil {
			a.l.Error("order queue start error", applogger.Error(err))
			return err
		}
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	streamDone := make(chan error, 1)
	go func() {
		streamDone <- a.dispatcher.Run(ctx, a.stream)
	}()
	a.l.Info("engine started",
		applogger.String("feed", a.cfg.Feed.Source),
		applogger.String("mode", a.cfg.Engine.Mode),
		applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		a.l.Info("shutdown signal received")
	case err := <-streamDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			a.l.Error("candle stream ended", applogger.Error(err))
			runErr = err
		} else {
			a.l.Info("candle stream drained")
		}
	}

	cancel()
	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.orderQueue != nil {
		if err := a.orderQueue.Stop(shutdownCtx); err != nil {
			a.l.Warn("order queue stop error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.l.Warn("redis close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
