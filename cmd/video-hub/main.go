// video-hub runs a multi-source media graph with periodic source failover
// and an instrumented timing tap. It emits one parseable timestamp line per
// observed buffer and serves status and metrics over HTTP.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/e7canasta/video-hub/internal/control"
	"github.com/e7canasta/video-hub/internal/mediagraph"
	"github.com/e7canasta/video-hub/internal/platform/config"
	"github.com/e7canasta/video-hub/internal/platform/logger"
	"github.com/e7canasta/video-hub/internal/platform/metrics"
	"github.com/e7canasta/video-hub/internal/switcher"
	"github.com/e7canasta/video-hub/internal/timing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	description := config.GetEnv("VIDEOHUB_PIPELINE", mediagraph.DefaultDescription())
	selectorName := config.GetEnv("VIDEOHUB_SELECTOR", mediagraph.DefaultSelectorName)
	tapName := config.GetEnv("VIDEOHUB_TAP", mediagraph.DefaultTapName)
	sources := strings.Split(config.GetEnv("VIDEOHUB_SOURCES", "sink_0,sink_1"), ",")
	switchInterval := config.GetEnvDuration("VIDEOHUB_SWITCH_INTERVAL", 3*time.Second)
	httpAddr := config.GetEnv("VIDEOHUB_HTTP_ADDR", ":8080")
	ptsLogPath := config.GetEnv("VIDEOHUB_PTS_LOG", "")
	sampleWindow := config.GetEnvInt("VIDEOHUB_SAMPLE_WINDOW", 4096)
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)
	slog.SetDefault(log)

	log.Info("video-hub starting",
		"selector", selectorName,
		"tap", tapName,
		"sources", sources,
		"switch_interval", switchInterval,
		"http_addr", httpAddr,
	)

	// Timestamp lines go to stdout unless a dedicated file is configured;
	// structured logs go to stderr either way, so the tap output stays
	// parseable.
	var ptsOut io.Writer = os.Stdout
	if ptsLogPath != "" {
		f, err := os.OpenFile(ptsLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Error("failed to open pts log file", "path", ptsLogPath, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		ptsOut = f
	}

	met := metrics.New()

	graph, err := mediagraph.New(description, log)
	if err != nil {
		log.Error("failed to build media graph", "error", err)
		os.Exit(1)
	}
	defer graph.Close()

	selector, err := graph.Selector(selectorName)
	if err != nil {
		log.Error("failed to resolve input selector", "name", selectorName, "error", err)
		os.Exit(1)
	}

	tapElem, err := graph.Element(tapName)
	if err != nil {
		log.Error("failed to resolve tap element", "name", tapName, "error", err)
		os.Exit(1)
	}
	tap := mediagraph.NewTap(128, met)
	if err := tap.Attach(tapElem); err != nil {
		log.Error("failed to attach timing tap", "error", err)
		os.Exit(1)
	}

	sw, err := switcher.New(selector, sources, log, met)
	if err != nil {
		log.Error("failed to create switcher", "error", err)
		os.Exit(1)
	}
	sched, err := switcher.NewScheduler(sw, switchInterval, log)
	if err != nil {
		log.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	rec := timing.NewRecorder(ptsOut, sampleWindow, met)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go rec.Run(ctx, tap.Samples())

	if err := graph.Play(); err != nil {
		log.Error("failed to start media graph", "error", err)
		os.Exit(1)
	}

	graphErr := make(chan error, 1)
	go func() {
		graphErr <- graph.Run(ctx)
	}()

	if err := sched.Start(ctx); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	ctl := control.NewServer(log, met, sw, sched, rec, func() control.SampleCounters {
		s := tap.Stats()
		return control.SampleCounters{
			Observed:   s.Observed,
			Dropped:    s.Dropped,
			MissingPTS: s.MissingPTS,
		}
	})
	srv := &http.Server{Addr: httpAddr, Handler: ctl.Router()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-graphErr:
		if err != nil {
			log.Error("media graph stopped", "error", err)
			exitCode = 1
		}
	}

	// Stop issuing switches first, then drain HTTP, then tear the graph
	// down exactly once so device handles are released.
	sched.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}

	if err := graph.Close(); err != nil {
		log.Error("media graph teardown error", "error", err)
		exitCode = 1
	}

	log.Info("video-hub stopped", "samples_observed", rec.Total())
	os.Exit(exitCode)
}
