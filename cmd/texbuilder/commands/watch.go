package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/texbuilder/internal/compile"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	tberrors "git.home.luguber.info/inful/texbuilder/internal/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Delay       time.Duration `help:"Quiet period before a rebuild (minimum 1s)"`
	Full        bool          `help:"Run the full sequence on every change"`
	Poll        bool          `help:"Poll for changes instead of using filesystem notifications"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve Prometheus metrics on this address while watching"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	if w.Delay != 0 && w.Delay < config.MinDebounce {
		return tberrors.ValidationFailed("delay", "must be at least "+config.MinDebounce.String())
	}
	p, err := loadProject(root)
	if err != nil {
		return err
	}
	store := p.openHistory()
	defer closeHistory(store)

	opts := watch.OptionsFromConfig(p.Cfg, p.Root)
	if w.Delay != 0 {
		opts.Debounce = w.Delay
	}
	if w.Poll {
		opts.Backend = config.BackendPoll
	}
	mode := p.Cfg.Watch.Mode
	if w.Full {
		mode = config.ModeFull
	}
	addr := w.MetricsAddr
	if addr == "" {
		addr = p.Cfg.Watch.MetricsAddr
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	var reg *prom.Registry
	if addr != "" {
		reg = prom.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
	}

	seq := p.sequencer(g, rec, store)
	buildOpts := compile.OptionsFromConfig(p.Cfg, p.Root, mode)
	build := func(ctx context.Context) error {
		res, err := seq.Run(ctx, buildOpts)
		if err != nil {
			g.printf("Build failed: %v\n", err)
			return err
		}
		g.printf("%s\n", res)
		return nil
	}

	watcher, err := watch.New(opts, build, rec)
	if err != nil {
		return err
	}
	g.printf("Watching %d directories (%s backend, %s mode); press Ctrl+C to stop\n",
		len(opts.Dirs), watcher.Backend().Name(), mode)

	eg, ctx := errgroup.WithContext(g.context())
	eg.Go(func() error { return watcher.Run(ctx) })
	if reg != nil {
		srv := &http.Server{Addr: addr, Handler: metrics.HTTPHandler(reg), ReadHeaderTimeout: 5 * time.Second}
		eg.Go(func() error {
			slog.Info("Serving metrics", slog.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return tberrors.InternalError("metrics server failed", err).WithContext("addr", addr)
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Metrics server shutdown", logfields.Error(err))
			}
			return nil
		})
	}
	return eg.Wait()
}
