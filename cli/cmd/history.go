package cmd

import (
	"fmt"

	"github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lintstatus/cli/render"
	"github.com/pithecene-io/lintstatus/journal"
)

// HistoryCommand returns the history command.
// It reads the journal only and never contacts a worker or editor.
func HistoryCommand() *cli.Command {
	flags := []cli.Flag{
		ConfigFlag,
		&cli.StringFlag{
			Name:  "session",
			Usage: "Only entries from this session",
		},
		&cli.StringFlag{
			Name:  "day",
			Usage: "Only entries received on this day (YYYY-MM-DD, UTC)",
		},
		&cli.StringFlag{
			Name:  "state",
			Usage: "Only entries with this wire state (e.g. lint.error)",
		},
		&cli.Int64Flag{
			Name:  "job",
			Usage: "Only entries for this job id",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Show only the most recent N entries",
		},
		&cli.BoolFlag{
			Name:  "sessions",
			Usage: "List journaled session ids instead of entries",
		},
	}
	flags = append(flags, ReadOnlyFlags()...)

	return &cli.Command{
		Name:   "history",
		Usage:  "Show journaled status events",
		Flags:  append(flags, JournalFlags()...),
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfig)
	}
	ds, err := openJournal(c)
	if err != nil {
		return err
	}

	if c.Bool("sessions") {
		sessions, err := journal.Sessions(c.Context, ds)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		return r.Render(sessions)
	}

	entries, err := journal.Read(c.Context, ds, journal.Filter{
		SessionID: c.String("session"),
		Day:       c.String("day"),
		State:     c.String("state"),
		JobID:     c.Int64("job"),
		Limit:     c.Int("limit"),
	})
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	return r.Render(entries)
}

// openJournal opens the dataset named by config and journal flags.
func openJournal(c *cli.Context) (lode.Dataset, error) {
	fileCfg, err := loadConfig(c)
	if err != nil {
		return nil, cli.Exit(err.Error(), exitConfig)
	}
	jc := fileCfg.Journal
	mergeJournalFlags(c, &jc)
	if !jc.Enabled() {
		return nil, cli.Exit("no journal configured (set journal.backend or --journal-backend)", exitConfig)
	}
	ds, err := journal.OpenDataset(c.Context, storeConfig(jc))
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("open journal: %v", err), exitConfig)
	}
	return ds, nil
}
