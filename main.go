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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appcart "github.com/Zhima-Mochi/honeyshop/internal/application/cart"
	appcheckout "github.com/Zhima-Mochi/honeyshop/internal/application/checkout"
	appinventory "github.com/Zhima-Mochi/honeyshop/internal/application/inventory"
	"github.com/Zhima-Mochi/honeyshop/internal/domain/catalog"
	domcheckout "github.com/Zhima-Mochi/honeyshop/internal/domain/checkout"
	"github.com/Zhima-Mochi/honeyshop/internal/infrastructure/analytics"
	"github.com/Zhima-Mochi/honeyshop/internal/infrastructure/id"
	"github.com/Zhima-Mochi/honeyshop/internal/infrastructure/memory"
	infraobs "github.com/Zhima-Mochi/honeyshop/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/honeyshop/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/honeyshop/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/honeyshop/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/honeyshop/internal/infrastructure/sheets"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/pkg/config"
	"github.com/Zhima-Mochi/honeyshop/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/honeyshop/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/honeyshop/internal/presentation/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	baseLogger, err := logging.NewLogger(cfg.App.ServiceName, cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	logger := zaplogger.Wrap(baseLogger)
	systemLogger := zaplogger.Wrap(logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID))

	tel := infraobs.New(
		oteltrace.New(cfg.App.ServiceName),
		logger,
		infraobs.RegisterInstruments(prometrics.New("", "")),
	)

	// In-memory event bus: inventory notifications go through the queue, cart notifications
	// are delivered inline so subscribers see them before the next mutation.
	bus := outbox.NewBus(logger)
	bus.Start(context.Background())
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownGracePeriod)
		defer cancel()
		bus.Stop(stopCtx)
	}()

	cat := catalog.Default()
	store := appinventory.NewStore(
		memory.NewInventoryRepository(),
		sheets.New(cfg.Inventory.URL, cfg.Inventory.FetchTimeout, tel),
		cat,
		bus,
		tel,
	)
	refresh := appinventory.NewRefreshInventoryUseCase(store, tel)

	sessions := appcart.NewSessions(id.NewUUIDGenerator(), cat, store, bus.Inline(), tel, cfg.Session.TTL)
	appcart.NewReconciler(bus, sessions, tel).Start()
	sweeper := appcart.NewSweeper(sessions, cfg.Session.SweepInterval, tel)
	analytics.NewTracker(tel).Register(bus)

	links, err := domcheckout.NewLinkBuilder(cfg.Checkout.FormURL, cfg.Checkout.FieldID)
	if err != nil {
		return err
	}
	checkout := appcheckout.NewBuildLinkUseCase(links, tel)

	scheduler := workerpresentation.NewScheduler(refresh, cfg.Inventory.RefreshInterval, cfg.Inventory.FetchTimeout, logger)

	handler := httppresentation.NewHandler(cat, store, sessions, checkout, scheduler, links, promhttp.Handler(), tel)
	server := &http.Server{
		Addr:              cfg.App.Addr(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		systemLogger.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownGracePeriod)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			systemLogger.Error("http_server_shutdown_error", observability.F("error", err))
			return err
		}
		systemLogger.Info("http_server_stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		systemLogger.Error("service_stopped_with_error", observability.F("error", err))
		return err
	}
	return nil
}
