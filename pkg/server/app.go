package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"MarketBrief/internal/usecase"
	"MarketBrief/pkg/config"
	xhttp "MarketBrief/pkg/http"
	pkgkafka "MarketBrief/pkg/kafka"
	applogger "MarketBrief/pkg/logger"
)

// Worker runs until its context is cancelled.
type Worker interface {
	Start(ctx context.Context) error
}

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the lifecycle of one binary: an optional HTTP server,
// background workers, a Kafka consumer and the resources to release on exit.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	handlers   []pkgkafka.MessageHandler
	workers    map[string]Worker
	collector  *usecase.Collector
	closers    []closer
}

// New creates an App.
func New(cfg *config.Config, l *applogger.Logger) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, log: l, workers: make(map[string]Worker)}
}

// SetHTTPServer sets the server started by Run.
func (a *App) SetHTTPServer(s *xhttp.Server) { a.httpServer = s }

// SetConsumer sets the Kafka consumer and the handlers it dispatches to.
func (a *App) SetConsumer(c *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) {
	a.consumer = c
	a.handlers = handlers
}

// SetCollector sets the collector used by RunOnce and started as a worker by Run.
func (a *App) SetCollector(c *usecase.Collector) {
	a.collector = c
	a.AddWorker("collector", c)
}

// AddWorker registers a background worker.
func (a *App) AddWorker(name string, w Worker) { a.workers[name] = w }

// OnShutdown registers fn to run at shutdown. Closers run in reverse order.
func (a *App) OnShutdown(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Run starts every component and blocks until SIGINT, SIGTERM or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return a.shutdown(err)
		}
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		topics := make([]string, 0, len(a.handlers))
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.consumer.Start(ctx); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return a.shutdown(err)
		}
		a.log.Info("kafka consumer started", applogger.Strings("topics", topics))
	}

	var wg sync.WaitGroup
	for name, w := range a.workers {
		wg.Add(1)
		go func(name string, w Worker) {
			defer wg.Done()
			a.log.Info("worker started", applogger.String("worker", name))
			if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("worker error", applogger.String("worker", name), applogger.Error(err))
			}
		}(name, w)
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	wg.Wait()
	return a.shutdown(nil)
}

// RunOnce performs a single collection and releases resources.
func (a *App) RunOnce(ctx context.Context) (*usecase.RunReport, error) {
	if a.collector == nil {
		return nil, a.shutdown(errors.New("no collector configured"))
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := a.collector.Run(ctx, time.Now())
	if err != nil {
		err = fmt.Errorf("collection: %w", err)
	}
	return report, a.shutdown(err)
}

// shutdown stops the server and consumer, then runs closers. cause is
// returned joined with any shutdown failure.
func (a *App) shutdown(cause error) error {
	timeout := 10 * time.Second
	if a.cfg != nil && a.cfg.Server.ShutdownTimeout > 0 {
		timeout = a.cfg.Server.ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	errs := []error{cause}
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
