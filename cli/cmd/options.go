package cmd

import (
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lintstatus/cli/config"
	"github.com/pithecene-io/lintstatus/ipc"
	"github.com/pithecene-io/lintstatus/journal"
)

// Defaults applied after config and flags are merged.
const (
	defaultEditorMode = "workspace"
	indicatorTUI      = "tui"
	indicatorLog      = "log"
	indicatorRemote   = "remote"
)

// mergeWatchConfig overlays command-line flags on the file config and fills
// defaults. The result is validated.
func mergeWatchConfig(c *cli.Context, file *config.Config) (*config.Config, error) {
	cfg := *file

	cfg.Label = stringFlag(c, "label", cfg.Label)
	cfg.Channel.Transport = stringFlag(c, "transport", cfg.Channel.Transport)
	cfg.Channel.Addr = stringFlag(c, "addr", cfg.Channel.Addr)
	cfg.Editor.Mode = stringFlag(c, "editor", cfg.Editor.Mode)
	cfg.Editor.Addr = stringFlag(c, "editor-addr", cfg.Editor.Addr)
	cfg.Editor.Watch = boolFlag(c, "watch-files", cfg.Editor.Watch)
	cfg.Indicator.Mode = stringFlag(c, "indicator", cfg.Indicator.Mode)
	cfg.Indicator.LogFile = stringFlag(c, "log-file", cfg.Indicator.LogFile)
	cfg.MailboxSize = intFlag(c, "mailbox-size", cfg.MailboxSize)

	cfg.Adapter.Type = stringFlag(c, "adapter", cfg.Adapter.Type)
	cfg.Adapter.URL = stringFlag(c, "adapter-url", cfg.Adapter.URL)
	cfg.Adapter.Channel = stringFlag(c, "adapter-channel", cfg.Adapter.Channel)
	if c.IsSet("adapter-timeout") {
		cfg.Adapter.Timeout = config.Duration{Duration: c.Duration("adapter-timeout")}
	}
	if c.IsSet("adapter-retries") {
		retries := c.Int("adapter-retries")
		cfg.Adapter.Retries = &retries
	}
	if headers := c.StringSlice("adapter-header"); len(headers) > 0 {
		parsed, err := parseHeaders(headers)
		if err != nil {
			return nil, err
		}
		if cfg.Adapter.Headers == nil {
			cfg.Adapter.Headers = make(map[string]string, len(parsed))
		}
		for k, v := range parsed {
			cfg.Adapter.Headers[k] = v
		}
	}

	mergeJournalFlags(c, &cfg.Journal)
	cfg.Journal.FlushCount = intFlag(c, "journal-flush-count", cfg.Journal.FlushCount)
	if c.IsSet("journal-flush-interval") {
		cfg.Journal.FlushInterval = config.Duration{Duration: c.Duration("journal-flush-interval")}
	}

	if cfg.Channel.Transport == "" {
		cfg.Channel.Transport = ipc.TransportJSONRPC
	}
	if cfg.Channel.Addr == "" {
		cfg.Channel.Addr = ipc.StdioAddr
	}
	if cfg.Editor.Mode == "" {
		cfg.Editor.Mode = defaultEditorMode
	}
	if cfg.Indicator.Mode == "" {
		cfg.Indicator.Mode = defaultIndicator(cfg.Channel.Addr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeJournalFlags overlays the shared journal flags.
func mergeJournalFlags(c *cli.Context, j *config.JournalConfig) {
	j.Backend = stringFlag(c, "journal-backend", j.Backend)
	j.Path = stringFlag(c, "journal-path", j.Path)
	j.Dataset = stringFlag(c, "journal-dataset", j.Dataset)
	j.Region = stringFlag(c, "journal-s3-region", j.Region)
	j.Endpoint = stringFlag(c, "journal-s3-endpoint", j.Endpoint)
	j.S3PathStyle = boolFlag(c, "journal-s3-path-style", j.S3PathStyle)
}

func storeConfig(j config.JournalConfig) journal.StoreConfig {
	return journal.StoreConfig{
		Backend:      j.Backend,
		Path:         j.Path,
		Dataset:      j.Dataset,
		Region:       j.Region,
		Endpoint:     j.Endpoint,
		UsePathStyle: j.S3PathStyle,
	}
}

func flushInterval(j config.JournalConfig) time.Duration {
	if j.FlushInterval.Duration > 0 {
		return j.FlushInterval.Duration
	}
	return journal.DefaultFlushInterval
}

// defaultIndicator picks the TUI only when the terminal is free: stdio
// channels own stdin and stdout.
func defaultIndicator(addr string) string {
	if addr != ipc.StdioAddr && isTerminal(os.Stdout) {
		return indicatorTUI
	}
	return indicatorLog
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
