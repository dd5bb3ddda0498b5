package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lintstatus/cli/render"
	"github.com/pithecene-io/lintstatus/diagnostics"
	"github.com/pithecene-io/lintstatus/dispatcher"
	"github.com/pithecene-io/lintstatus/editor"
	"github.com/pithecene-io/lintstatus/journal"
	"github.com/pithecene-io/lintstatus/presenter"
)

// ReplayCommand returns the replay command. It feeds a journaled session
// through a coordinator with an in-memory editor and prints the indicator
// display after every event.
func ReplayCommand() *cli.Command {
	flags := []cli.Flag{
		ConfigFlag,
		&cli.StringFlag{
			Name:  "session",
			Usage: "Session to replay (default: the most recently journaled one)",
		},
		&cli.StringFlag{
			Name:  "label",
			Usage: "Indicator label (default: " + presenter.DefaultLabel + ")",
		},
		&cli.BoolFlag{
			Name:  "final",
			Usage: "Print only the display after the last event",
		},
	}
	flags = append(flags, ReadOnlyFlags()...)

	return &cli.Command{
		Name:   "replay",
		Usage:  "Rebuild indicator states from the journal",
		Flags:  append(flags, JournalFlags()...),
		Action: replayAction,
	}
}

func replayAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	ds, err := openJournal(c)
	if err != nil {
		return err
	}

	session := c.String("session")
	if session == "" {
		latest, err := journal.Read(c.Context, ds, journal.Filter{Limit: 1})
		if err != nil {
			return fmt.Errorf("read journal: %w", err)
		}
		if len(latest) == 0 {
			return r.Render([]render.ReplayStep{})
		}
		session = latest[0].SessionID
	}

	entries, err := journal.Read(c.Context, ds, journal.Filter{SessionID: session})
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	label := c.String("label")
	if label == "" && !c.IsSet("label") {
		if fileCfg, err := loadConfig(c); err == nil {
			label = fileCfg.Label
		}
	}

	steps, err := replay(c.Context, entries, presenter.Reducer{Label: label})
	if err != nil {
		return err
	}
	if c.Bool("final") {
		if len(steps) == 0 {
			return r.Render(presenter.Reducer{Label: label}.Reduce(nil))
		}
		return r.Render(steps[len(steps)-1].Display)
	}
	return r.Render(steps)
}

// captureWidget keeps the last display written to it.
type captureWidget struct {
	mu   sync.Mutex
	last presenter.Display
}

func (w *captureWidget) Show(_ context.Context, d presenter.Display) error {
	return w.Update(context.Background(), d)
}

func (w *captureWidget) Update(_ context.Context, d presenter.Display) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = d
	return nil
}

func (w *captureWidget) Dispose(context.Context) error { return nil }

func (w *captureWidget) current() presenter.Display {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// replay runs entries through a fresh coordinator, in order.
func replay(ctx context.Context, entries []journal.Entry, reducer presenter.Reducer) ([]render.ReplayStep, error) {
	widget := &captureWidget{}
	coord, err := dispatcher.New(dispatcher.Config{
		Host:        editor.NewWorkspace(),
		Diagnostics: diagnostics.NewSynchronizer(diagnostics.NewCollection(), nil, nil),
		Widget:      widget,
		Reducer:     reducer,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- coord.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	steps := make([]render.ReplayStep, 0, len(entries))
	for _, e := range entries {
		if err := coord.Status(ctx, e.Event()); err != nil {
			return nil, replayError(err)
		}
		// Snapshot returns once the event above has been handled.
		if _, err := coord.Snapshot(ctx); err != nil {
			return nil, replayError(err)
		}
		steps = append(steps, render.ReplayStep{
			Seq:      e.Seq,
			JobID:    e.JobID,
			State:    e.State,
			FileName: e.LastFileName,
			Display:  widget.current(),
		})
	}
	return steps, nil
}

func replayError(err error) error {
	if errors.Is(err, dispatcher.ErrClosed) {
		return errors.New("replay interrupted")
	}
	return fmt.Errorf("replay: %w", err)
}
