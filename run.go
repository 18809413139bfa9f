package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"aodash/admin"
	"aodash/config"
	"aodash/poller"
	"aodash/recorder"
	"aodash/report"
	"aodash/session"
	"aodash/state"
	"aodash/stats"
	"aodash/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const statsLogInterval = time.Minute

// Purpose: Run the live dashboard until interrupted or the user quits.
// Key aspects: Poller, recorder and admin server share one errgroup; the
// surface quitting cancels them all.
// Upstream: root command.
// Downstream: poller.Run, recorder.Run, admin.Run.
func runDashboard(parent context.Context, cfg *config.Config) error {
	opts, err := sessionOptions(cfg)
	if err != nil {
		return err
	}

	fanout, err := setupLogging(cfg.Logging, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging: file sink disabled: %v\n", err)
	}
	defer fanout.Close()
	log.SetFlags(0)
	log.SetOutput(fanout)
	defer log.SetOutput(os.Stderr)

	surface := selectSurface(cfg.UI, isStdoutTTY())
	surface.WaitReady()
	defer surface.Stop()
	if w := surface.SystemWriter(); w != nil {
		fanout.SetConsoleSink(w, true)
	} else {
		cfg.Print()
	}

	log.Printf("aodash %s starting; watching %s", Version, cfg.StatePath())

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-surface.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	tracker := stats.NewTracker()
	var sink poller.Sink
	var rec *recorder.Recorder
	if cfg.Recorder.Enabled {
		rec, err = recorder.Open(ctx, cfg.Recorder.Path, recorder.Options{
			QueueSize: cfg.Recorder.QueueSize,
			OnDrop:    tracker.IncrementRecorderDrops,
		})
		if err != nil {
			log.Printf("Recorder: disabled: %v", err)
		} else {
			defer rec.Close()
			sink = rec
			log.Printf("Recorder: writing session %s to %s", rec.SessionID(), cfg.Recorder.Path)
		}
	}

	p := poller.New(poller.Options{
		Path:     cfg.StatePath(),
		Interval: cfg.RefreshInterval(),
		Session:  opts,
	}, surface, tracker, sink)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(gctx) })
	if rec != nil {
		g.Go(func() error { return rec.Run(gctx) })
	}
	if addr := cfg.AdminAddr(); addr != "" {
		srv := admin.New(addr, p, tracker)
		g.Go(func() error {
			if err := srv.Run(gctx); err != nil {
				return fmt.Errorf("admin: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		logStats(gctx, statsLogInterval, tracker, surface, rec, fanout)
		return nil
	})

	err = g.Wait()
	log.Printf("aodash stopping")
	return err
}

// selectSurface picks the tview dashboard for interactive terminals and the
// headless logger otherwise.
func selectSurface(cfg config.UIConfig, tty bool) ui.Surface {
	switch cfg.Mode {
	case config.ModeHeadless:
		return ui.NewHeadless(log.Printf)
	case config.ModeTview:
		if !tty {
			log.Printf("UI: tview requires an interactive console; running headless")
			return ui.NewHeadless(log.Printf)
		}
		return ui.NewDashboard(cfg)
	default:
		if tty {
			return ui.NewDashboard(cfg)
		}
		return ui.NewHeadless(log.Printf)
	}
}

// Purpose: Periodically write tracker, render and runtime stats to the log file.
// Key aspects: File-only so the system pane stays readable.
// Upstream: runDashboard errgroup.
// Downstream: stats.Tracker.SnapshotLines, logFanout.WriteFileOnlyLine.
func logStats(ctx context.Context, interval time.Duration, tracker *stats.Tracker, surface ui.Surface, rec *recorder.Recorder, fanout *logFanout) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var gc gcWindow
	var mem runtime.MemStats
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			runtime.ReadMemStats(&mem)
			lines := append(statsLines(tracker, surface, rec), gc.runtimeLine(&mem))
			for _, line := range lines {
				fanout.WriteFileOnlyLine(line, now)
			}
		}
	}
}

// statsLines collects the periodic stats. rec may be nil.
func statsLines(tracker *stats.Tracker, surface ui.Surface, rec *recorder.Recorder) []string {
	lines := tracker.SnapshotLines()
	if dash, ok := surface.(*ui.Dashboard); ok {
		m := dash.Metrics()
		render := m.RenderSnapshot()
		replaced, skipped := m.Replacements()
		lines = append(lines, fmt.Sprintf("Render: p50=%s p99=%s n=%d | panels replaced=%d unchanged=%d",
			render.P50, render.P99, render.N, replaced, skipped))
	}
	if rec != nil {
		written, dropped := rec.Stats()
		lines = append(lines, fmt.Sprintf("Recorder: session=%s written=%d dropped=%d", rec.SessionID(), written, dropped))
	}
	return lines
}

func newSnapshotCmd(v *viper.Viper) *cobra.Command {
	var chatLines int
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Read the state file once and print a report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(v)
			if err != nil {
				return err
			}
			opts, err := sessionOptions(cfg)
			if err != nil {
				return err
			}
			path := cfg.StatePath()
			result := state.Load(path)
			if !result.OK() {
				return fmt.Errorf("no usable snapshot at %s: %s: %v", path, result.Outcome, result.Err)
			}
			_, model := session.Reconcile(session.Retained{}, result.Snapshot, time.Now(), opts)
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.Render(model, report.Options{
				Source:    path,
				ChatLines: chatLines,
			}))
			return err
		},
	}
	cmd.Flags().IntVar(&chatLines, "chat", 10, "chat lines to include (0 for all retained)")
	return cmd
}
