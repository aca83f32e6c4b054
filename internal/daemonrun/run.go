package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"av1watch/internal/config"
	"av1watch/internal/crop"
	"av1watch/internal/daemon"
	"av1watch/internal/deps"
	"av1watch/internal/encoding"
	"av1watch/internal/history"
	"av1watch/internal/logging"
	"av1watch/internal/preflight"
	"av1watch/internal/probe"
	"av1watch/internal/queue"
	"av1watch/internal/watch"
	"av1watch/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the av1watch daemon and blocks until it exits. The first
// SIGINT or SIGTERM stops discovery and waits for the current encode; a
// second one kills it.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = level
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := preflight.Summarize(preflight.RunAll(cmdCtx, cfg), preflight.CheckSystemDeps(cfg)); err != nil {
		logging.ErrorWithContext(logger, "preflight failed", "preflight_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run av1watch status for details"),
		)
		return err
	}
	logDependencySnapshot(logger, cfg)

	sessionID := daemon.NewSessionID()
	var recorder history.Recorder
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		recorder = store
	}

	q := queue.New()
	runner := encoding.NewRunner(logger)
	manager := workflow.NewManager(cfg, workflow.Dependencies{
		Queue:   q,
		Prober:  probe.New(cfg),
		Crop:    crop.NewDetector(cfg, logger),
		Encoder: runner,
		History: recorder,
	}, logger, workflow.WithSessionID(sessionID))
	watcher := watch.New(cfg.Paths.InputDir, cfg.Watch.Sentinel,
		time.Duration(cfg.Watch.SettleSeconds)*time.Second, q, logger)

	d, err := daemon.New(cfg, logger, daemon.Components{
		Queue:    q,
		Workflow: manager,
		Watcher:  watcher,
		Encoder:  runner,
	}, sessionID)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	ctx, abort, stop := notifySignals(cmdCtx, logger)
	defer stop()
	return d.Run(ctx, abort)
}

// notifySignals cancels the returned context on the first signal and closes
// abort on the second.
func notifySignals(parent context.Context, logger *slog.Logger) (context.Context, <-chan struct{}, func()) {
	ctx, cancel := context.WithCancel(parent)
	abort := make(chan struct{})
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	quit := make(chan struct{})

	go func() {
		count := 0
		for {
			select {
			case sig := <-signals:
				count++
				switch count {
				case 1:
					logger.Info("signal received; finishing current encode", logging.String("signal", sig.String()))
					cancel()
				case 2:
					logger.Warn("second signal received; aborting current encode", logging.String("signal", sig.String()))
					close(abort)
					return
				}
			case <-quit:
				return
			}
		}
	}()

	return ctx, abort, func() {
		signal.Stop(signals)
		close(quit)
		cancel()
	}
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("probe_backend", cfg.Probe.Backend),
		logging.Bool("crop_enabled", cfg.Crop.Enabled),
		logging.Bool("history_enabled", cfg.History.Enabled),
		logging.String("preset_version", cfg.Encoder.Preset.Version),
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		key := strings.ToLower(strings.ReplaceAll(status.Name, " ", "_"))
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
