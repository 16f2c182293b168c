package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/copilot-notifier/copilot-notifier/internal/bridge"
	"github.com/copilot-notifier/copilot-notifier/internal/cli/shared"
	"github.com/copilot-notifier/copilot-notifier/internal/config"
	"github.com/copilot-notifier/copilot-notifier/internal/fswatch"
	"github.com/copilot-notifier/copilot-notifier/internal/history"
	"github.com/copilot-notifier/copilot-notifier/internal/lifecycle"
	"github.com/copilot-notifier/copilot-notifier/internal/notify"
	"github.com/copilot-notifier/copilot-notifier/internal/status"
	"github.com/copilot-notifier/copilot-notifier/internal/surface"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor editor activity and deliver alerts",
	Long: `Run the notifier in the foreground.

Starts the editor bridge, the activity monitor and, when watch.dir is set,
the file watcher. Alerts go through the native notification chain for this
platform and fall back to a card in this terminal. Configuration changes are
applied without a restart.`,
	Example: `  copilot-notifier watch
  copilot-notifier watch --addr 127.0.0.1:9000
  copilot-notifier watch --dir ~/src/project`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.GroupID = shared.GroupMonitoring
	watchCmd.Flags().String("addr", "", "Editor bridge listen address (overrides bridge.addr)")
	watchCmd.Flags().String("dir", "", "Directory to watch for file edits (overrides watch.dir)")
}

// statusView is the monitor part of GET /api/v1/status
type statusView struct {
	State          string    `json:"state"`
	Inert          bool      `json:"inert"`
	Monitoring     bool      `json:"monitoring"`
	LastActivityAt time.Time `json:"last_activity_at,omitempty"`
	TextLength     int       `json:"text_length"`
	Candidates     int       `json:"candidates"`
	Alerted        int       `json:"alerted"`
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths := config.DefaultPaths()
	bootCfg, _ := config.Load(paths, nil)
	if bootCfg == nil {
		bootCfg = config.Default()
	}
	logger := newLogger(cmd, bootCfg)
	defer func() { _ = logger.Sync() }()

	store, initErr := config.NewStore(paths, logger)
	if initErr != nil {
		store = config.NewStaticStore(config.Default())
	}
	cfg := store.Current()

	caps := status.DetectCapabilities(os.Stderr)
	indicator := status.NewTerminal(os.Stderr, caps)
	flasher := status.NewFlasher(indicator, status.SelectSymbols(caps), status.DefaultFlashDuration)
	flasher.SetEnabled(cfg.Enabled && !cfg.SilentMode)
	indicator.Start()
	defer indicator.Stop()
	defer flasher.Stop()

	surf := surface.New(surface.Options{Logger: logger})
	deliverer := newLiveDispatcher(cfg, surf, logger)

	stateDir, err := config.StateDir()
	if err != nil {
		return fmt.Errorf("resolving state directory: %w", err)
	}
	recorder := history.NewWriter(stateDir, cfg.History.MaxEntries)

	var loop *lifecycle.Loop
	var handler *notify.Handler
	srv := bridge.NewServer(bridge.Options{
		Token:  cfg.Bridge.Token,
		Logger: logger,
		Status: func() any {
			st := loop.Status()
			return statusView{
				State:          st.State.String(),
				Inert:          st.Inert,
				Monitoring:     st.Settings.MonitoringEnabled,
				LastActivityAt: st.Session.LastActivityAt,
				TextLength:     st.Session.LastObservedTextLength,
				Candidates:     st.Suggestions,
				Alerted:        handler.SuggestionCount(),
			}
		},
		Test: func(ctx context.Context) notify.Result { return handler.SendTest(ctx) },
	})

	handler = notify.NewHandler(deliverer,
		func() notify.Policy { return store.Current().Policy() },
		notify.WithStatus(flasher),
		notify.WithMessageSink(srv),
		notify.WithHost(srv),
		notify.WithRecorder(recorder),
		notify.WithLogger(logger),
	)

	if initErr != nil {
		logger.Error("initialization failed, monitoring disabled", zap.Error(initErr))
		loop = lifecycle.Inert(logger)
		reportInitFailure(ctx, consoleMessages{out: os.Stderr}, cfg.SilentMode, initErr)
	} else {
		loop = lifecycle.NewLoop(cfg.ActivitySettings(), handler, lifecycle.WithLogger(logger))
	}
	srv.SetEvents(loop)

	store.Subscribe(func(c *config.Configuration) {
		loop.ApplySettings(c.ActivitySettings())
		flasher.SetEnabled(c.Enabled && !c.SilentMode)
		deliverer.Rebuild(c)
		recorder.SetMaxEntries(c.History.MaxEntries)
	})

	addr := cfg.Bridge.Addr
	if a, _ := cmd.Flags().GetString("addr"); a != "" {
		addr = a
	}
	dir := cfg.Watch.Dir
	if d, _ := cmd.Flags().GetString("dir"); d != "" {
		dir = d
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx, addr) })
	g.Go(func() error { return store.Watch(gctx) })
	if dir != "" {
		w, err := fswatch.New(dir, loop, fswatch.WithLogger(logger))
		if err != nil {
			logger.Warn("file watcher disabled", zap.String("dir", dir), zap.Error(err))
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	logger.Info("copilot-notifier watching",
		zap.String("bridge", addr),
		zap.String("watch_dir", dir),
		zap.Int("strategies", len(deliverer.Strategies())),
		zap.Bool("monitoring", cfg.ActivitySettings().MonitoringEnabled))

	err = g.Wait()
	deliverer.Close()
	handler.Wait()
	surf.Close()
	return err
}
