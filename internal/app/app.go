package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"heist/server/internal/config"
	"heist/server/internal/match"
	servernet "heist/server/internal/net"
	"heist/server/internal/net/grant"
	"heist/server/internal/net/ws"
	"heist/server/internal/room"
	"heist/server/internal/telemetry"
	"heist/server/logging"
	loggingSinks "heist/server/logging/sinks"
)

const shutdownGrace = 10 * time.Second

type Config struct {
	Logger   *log.Logger
	Settings config.Config
	// Stdout receives console and default JSON log output. Defaults to
	// os.Stdout.
	Stdout io.Writer
}

// Run serves until ctx is cancelled or the listener fails, then aborts the
// running matches and drains the logging router.
func Run(ctx context.Context, cfg Config) error {
	fallbackLogger := cfg.Logger
	if fallbackLogger == nil {
		fallbackLogger = log.Default()
	}
	logger := telemetry.WrapLogger(fallbackLogger)
	settings := cfg.Settings
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	logConfig := settings.Logging()
	sinks, err := buildSinks(logConfig, stdout)
	if err != nil {
		return err
	}
	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, fallbackLogger, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	obs := settings.Observability()
	shutdownTracing, err := telemetry.Setup(ctx, obs.ServiceName, obs.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if serr := shutdownTracing(closeCtx); serr != nil {
			logger.Printf("failed to flush traces: %v", serr)
		}
	}()

	layout, err := settings.Layout()
	if err != nil {
		return fmt.Errorf("failed to load layout: %w", err)
	}

	metrics := &logging.Metrics{}
	issuer := grant.NewIssuer(settings.GrantSecret, settings.GrantIssuer, settings.GrantTTL)
	manager := room.NewManager(room.Config{
		Match: match.Config{
			TickPeriod: settings.TickPeriod(),
			EntryFee:   settings.EntryFee,
			Seed:       settings.Seed,
		},
		Layout: layout,
		Rules:  settings.Rules(),
		Teams:  room.Teams{Cops: settings.Cops, Thieves: settings.Thieves},
		Issuer: issuer,
		Deps: match.Deps{
			Logger:    logger,
			Metrics:   telemetry.WrapMetrics(metrics),
			Publisher: router,
			Tracer:    telemetry.Tracer(),
		},
	})

	sockets := ws.NewHandler(ws.HandlerConfig{
		Issuer:       issuer,
		Attacher:     manager,
		Logger:       logger,
		Publisher:    router,
		MessageRate:  rate.Limit(settings.MessageRate),
		MessageBurst: settings.MessageBurst,
	})

	handler := servernet.NewHTTPHandler(servernet.HTTPHandlerConfig{
		Lobby:         manager,
		Sockets:       http.HandlerFunc(sockets.Handle),
		Router:        router,
		Metrics:       metrics,
		Logger:        logger,
		TickRate:      settings.TickRate,
		ClientDir:     settings.ClientDir,
		Observability: obs,
	})

	srv := &http.Server{
		Addr:              settings.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := manager.Shutdown(shutdownCtx, "server shutting down"); err != nil {
			logger.Printf("matches did not stop in time: %v", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.Printf("server stopped")
		return nil
	})
	return g.Wait()
}

func buildSinks(cfg logging.Config, stdout io.Writer) ([]logging.NamedSink, error) {
	var sinks []logging.NamedSink
	if cfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsole(stdout)})
	}
	if cfg.HasSink("json") {
		// Hide stdout's Close so shutting the sink down leaves the stream open.
		out := io.Writer(struct{ io.Writer }{stdout})
		if cfg.JSON.FilePath != "" {
			file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open json log %s: %w", cfg.JSON.FilePath, err)
			}
			out = file
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(out, cfg.JSON.FlushInterval)})
	}
	return sinks, nil
}
