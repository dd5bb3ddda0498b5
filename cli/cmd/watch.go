package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.lsp.dev/jsonrpc2"
	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/lintstatus/adapter"
	"github.com/pithecene-io/lintstatus/adapter/redis"
	"github.com/pithecene-io/lintstatus/adapter/webhook"
	"github.com/pithecene-io/lintstatus/cli/config"
	"github.com/pithecene-io/lintstatus/cli/render"
	"github.com/pithecene-io/lintstatus/diagnostics"
	"github.com/pithecene-io/lintstatus/dispatcher"
	"github.com/pithecene-io/lintstatus/editor"
	"github.com/pithecene-io/lintstatus/indicator"
	"github.com/pithecene-io/lintstatus/iox"
	"github.com/pithecene-io/lintstatus/ipc"
	"github.com/pithecene-io/lintstatus/journal"
	"github.com/pithecene-io/lintstatus/log"
	"github.com/pithecene-io/lintstatus/metrics"
	"github.com/pithecene-io/lintstatus/presenter"
	"github.com/pithecene-io/lintstatus/types"
)

// shutdownTimeout bounds the final journal flush and completion delivery.
const shutdownTimeout = 10 * time.Second

// errChannelClosed ends the watch group when the worker closes the channel.
var errChannelClosed = errors.New("worker channel closed")

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	flags := []cli.Flag{
		ConfigFlag,
		&cli.StringFlag{
			Name:  "label",
			Usage: "Indicator label (default: " + presenter.DefaultLabel + ")",
		},
		&cli.StringFlag{
			Name:    "workspace",
			Aliases: []string{"w"},
			Usage:   "Workspace root the worker lints (informational)",
		},
		&cli.StringFlag{
			Name:  "transport",
			Usage: "Worker channel transport: jsonrpc or frame",
		},
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "Worker channel address: stdio, unix://path, tcp://host:port",
		},
		&cli.StringFlag{
			Name:  "editor",
			Usage: "Editor host: workspace or remote",
		},
		&cli.StringFlag{
			Name:  "editor-addr",
			Usage: "Remote editor address: unix://path or tcp://host:port",
		},
		&cli.BoolFlag{
			Name:  "watch-files",
			Usage: "Close workspace tabs whose files are removed on disk",
		},
		&cli.StringFlag{
			Name:  "indicator",
			Usage: "Status indicator: tui, log, or remote",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "Write logs to this file (used by the tui indicator)",
		},
		&cli.IntFlag{
			Name:  "mailbox-size",
			Usage: "Coordinator mailbox capacity",
		},
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Completion adapter: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Webhook endpoint or redis URL",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel (default: " + redis.DefaultChannel + ")",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as Key=Value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-publish timeout",
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Publish retries",
		},
		&cli.IntFlag{
			Name:  "journal-flush-count",
			Usage: "Flush the journal after this many events",
		},
		&cli.DurationFlag{
			Name:  "journal-flush-interval",
			Usage: "Flush the journal at least this often",
		},
		&cli.BoolFlag{
			Name:  "stats",
			Usage: "Print session counters to stdout on exit",
		},
		FormatFlag,
		NoColorFlag,
	}

	return &cli.Command{
		Name:   "watch",
		Usage:  "Run the status coordinator against a worker channel",
		Flags:  append(flags, JournalFlags()...),
		Action: watchAction,
	}
}

func watchAction(c *cli.Context) error {
	fileCfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	cfg, err := mergeWatchConfig(c, fileCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid configuration: %v", err), exitConfig)
	}
	if cfg.Indicator.Mode == indicatorTUI && cfg.Channel.Addr == ipc.StdioAddr {
		return cli.Exit("the tui indicator cannot share the terminal with a stdio channel", exitConfig)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := types.NewSession(absOrSelf(c.String("workspace")))
	logger, closeLog, err := watchLogger(session, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	defer closeLog()

	collector := metrics.NewCollector(session.ID, cfg.Channel.Transport, cfg.Editor.Mode)

	w, err := newWatch(ctx, cfg, session, logger, collector)
	if err != nil {
		var chErr *ipc.ChannelError
		if errors.As(err, &chErr) {
			return cli.Exit(err.Error(), exitChannel)
		}
		return cli.Exit(err.Error(), exitConfig)
	}

	runErr := w.run(ctx)
	snap := collector.Snapshot()
	logger.Info("watch finished", map[string]any{
		"events_received": snap.EventsReceived,
		"unknown_states":  snap.UnknownStates,
		"editor_failures": snap.EditorFailures,
	})

	if c.Bool("stats") {
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), exitConfig)
		}
		if err := r.Render(snap); err != nil {
			return err
		}
	}

	if runErr != nil {
		return cli.Exit(fmt.Sprintf("channel failed: %v", runErr), exitChannel)
	}
	return nil
}

// watchLogger sends logs to stderr, or to the log file when one is set. The
// TUI without a log file gets no logs; it owns the terminal.
func watchLogger(session types.Session, cfg *config.Config) (*log.Logger, func(), error) {
	logger := log.NewLogger(session)
	switch {
	case cfg.Indicator.LogFile != "":
		f, err := os.OpenFile(cfg.Indicator.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		logger = logger.WithOutput(f)
		return logger, func() { _ = logger.Sync(); _ = f.Close() }, nil
	case cfg.Indicator.Mode == indicatorTUI:
		return logger.WithOutput(io.Discard), func() {}, nil
	default:
		return logger, func() { _ = logger.Sync() }, nil
	}
}

// watch holds the wired components of one watch session.
type watch struct {
	cfg    *config.Config
	logger *log.Logger

	channel    io.ReadWriteCloser
	collector  *metrics.Collector
	editorConn jsonrpc2.Conn
	remote     *editor.Remote
	watcher    *editor.Watcher
	tui        *indicator.TUI
	notifier   *adapter.Notifier
	recorder   *journal.Recorder
	coord      *dispatcher.Coordinator
	closers    []io.Closer
	// pending is the adapter until the notifier's Run owns it.
	pending adapter.Adapter
}

func newWatch(ctx context.Context, cfg *config.Config, session types.Session, logger *log.Logger, collector *metrics.Collector) (*watch, error) {
	w := &watch{cfg: cfg, logger: logger, collector: collector}
	wired := false
	defer func() {
		if wired {
			return
		}
		if w.recorder != nil {
			_ = w.recorder.Close(context.WithoutCancel(ctx))
		}
		if w.pending != nil {
			_ = w.pending.Close()
		}
		_ = iox.CloseAll(w.closers...)
	}()

	var (
		host   editor.Host
		set    diagnostics.Set
		widget indicator.Widget
		remote *editor.Remote
	)

	switch cfg.Editor.Mode {
	case "remote":
		rwc, err := ipc.Dial(ctx, cfg.Editor.Addr)
		if err != nil {
			return nil, fmt.Errorf("editor: %w", err)
		}
		w.closers = append(w.closers, rwc)
		w.editorConn = jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
		remote = editor.NewRemote(w.editorConn, logger)
		w.remote = remote
		host = remote
		set = diagnostics.NewPublisher(w.editorConn)
	default:
		ws := editor.NewWorkspace()
		host = ws
		set = diagnostics.NewCollection()
		if cfg.Editor.Watch {
			watcher, err := editor.NewWatcher(ws, logger)
			if err != nil {
				return nil, fmt.Errorf("file watcher: %w", err)
			}
			w.watcher = watcher
			w.closers = append(w.closers, watcher)
		}
	}

	switch cfg.Indicator.Mode {
	case indicatorRemote:
		widget = remote
	case indicatorTUI:
		w.tui = indicator.NewTUI()
		widget = w.tui
	default:
		widget = indicator.NewLogWidget(logger)
	}

	if cfg.Adapter.Type != "" {
		a, err := buildAdapter(cfg.Adapter)
		if err != nil {
			return nil, err
		}
		w.pending = a
		w.notifier = adapter.NewNotifier(a, adapter.DefaultQueueSize, logger, collector)
	}

	if cfg.Journal.Enabled() {
		ds, err := journal.OpenDataset(ctx, storeConfig(cfg.Journal))
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		w.recorder = journal.NewRecorder(ds, journal.RecorderConfig{
			SessionID:     session.ID,
			FlushCount:    cfg.Journal.FlushCount,
			FlushInterval: flushInterval(cfg.Journal),
			Logger:        logger,
			Collector:     collector,
		})
	}

	rwc, err := ipc.Dial(ctx, cfg.Channel.Addr)
	if err != nil {
		return nil, err
	}
	w.channel = rwc
	w.closers = append(w.closers, rwc)

	dcfg := dispatcher.Config{
		Host:        host,
		Diagnostics: diagnostics.NewSynchronizer(set, logger, collector),
		Widget:      indicator.NewDedup(widget),
		Reducer:     presenter.Reducer{Label: cfg.Label},
		Collector:   collector,
		Logger:      logger,
		SessionID:   session.ID,
		MailboxSize: cfg.MailboxSize,
	}
	if w.notifier != nil {
		dcfg.Notifier = w.notifier
	}
	if w.recorder != nil {
		dcfg.Journal = w.recorder
	}
	coord, err := dispatcher.New(dcfg)
	if err != nil {
		return nil, err
	}
	w.coord = coord
	wired = true
	return w, nil
}

// run drives every component until the channel ends, a component fails, the
// user quits the TUI, or ctx is canceled. It returns only channel failures.
func (w *watch) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if w.editorConn != nil {
		conn := w.editorConn
		conn.Go(gctx, w.remote.Handler())
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			case <-conn.Done():
				if err := conn.Err(); err != nil && gctx.Err() == nil {
					return &ipc.ChannelError{Kind: ipc.ChannelErrorStream, Err: fmt.Errorf("editor connection: %w", err)}
				}
				return errChannelClosed
			}
		})
	}

	g.Go(func() error { return w.coord.Run(gctx) })

	g.Go(func() error {
		err := ipc.Serve(gctx, w.cfg.Channel.Transport, w.channel, w.coord, ipc.ServeOptions{
			Logger:    w.logger,
			Collector: w.collector,
		})
		switch {
		case err == nil:
			// Let the coordinator finish what the worker sent before it
			// hung up.
			if _, serr := w.coord.Snapshot(gctx); serr != nil && gctx.Err() == nil {
				w.logger.Warn("coordinator drain failed", map[string]any{"error": serr.Error()})
			}
			return errChannelClosed
		case ipc.IsCanceledError(err), gctx.Err() != nil:
			return nil
		default:
			return err
		}
	})

	if w.tui != nil {
		g.Go(func() error { return w.tui.Run(gctx) })
	}
	if w.watcher != nil {
		g.Go(func() error { return w.watcher.Run(gctx) })
	}
	// The notifier outlives the group so notices queued by the final
	// events are delivered after the group stops.
	nctx, ncancel := context.WithCancel(context.WithoutCancel(ctx))
	defer ncancel()
	var notified chan struct{}
	if w.notifier != nil {
		notified = make(chan struct{})
		go func() {
			defer close(notified)
			_ = w.notifier.Run(nctx)
		}()
	}

	err := g.Wait()
	w.drainNotifier(notified, ncancel)
	w.shutdown()

	if errors.Is(err, errChannelClosed) || errors.Is(err, indicator.ErrQuit) {
		w.logger.Info("watch stopping", map[string]any{"reason": err.Error()})
		return nil
	}
	return err
}

// drainNotifier closes the notifier and waits up to shutdownTimeout for
// queued notices to be delivered. The coordinator has stopped, so nothing
// is enqueued anymore.
func (w *watch) drainNotifier(done <-chan struct{}, cancel context.CancelFunc) {
	if w.notifier == nil {
		return
	}
	w.notifier.Close()
	timer := time.NewTimer(shutdownTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		w.logger.Warn("completion delivery timed out, pending notices dropped", nil)
		cancel()
		<-done
	}
}

func (w *watch) shutdown() {
	if w.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := w.recorder.Close(ctx); err != nil {
			w.logger.Warn("journal close failed", map[string]any{"error": err.Error()})
		}
	}
	if err := iox.CloseAll(w.closers...); err != nil {
		w.logger.Debug("close failed", map[string]any{"error": err.Error()})
	}
}

func buildAdapter(cfg config.AdapterConfig) (adapter.Adapter, error) {
	switch cfg.Type {
	case "webhook":
		wc := webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: webhook.DefaultRetries,
		}
		if cfg.Retries != nil {
			wc.Retries = *cfg.Retries
		}
		a, err := webhook.New(wc)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "redis":
		rc := redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Timeout: cfg.Timeout.Duration,
			Retries: redis.DefaultRetries,
		}
		if cfg.Retries != nil {
			rc.Retries = *cfg.Retries
		}
		a, err := redis.New(rc)
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown adapter type %q", cfg.Type)
	}
}

// parseHeaders parses Key=Value or "Key: Value" pairs.
func parseHeaders(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			k, v, ok = strings.Cut(p, ":")
		}
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid header %q (want Key=Value)", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// absOrSelf returns the absolute form of p when it can be resolved.
func absOrSelf(p string) string {
	if p == "" {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
