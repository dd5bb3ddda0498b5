package config

import (
	"errors"
	"fmt"
	"time"
)

// Config represents a lintstatus.yaml configuration file.
// All values are optional and act as defaults for lintstatus watch flags.
// CLI flags always override config values.
type Config struct {
	Label       string          `yaml:"label"`
	Channel     ChannelConfig   `yaml:"channel"`
	Editor      EditorConfig    `yaml:"editor"`
	Indicator   IndicatorConfig `yaml:"indicator"`
	Adapter     AdapterConfig   `yaml:"adapter"`
	Journal     JournalConfig   `yaml:"journal"`
	MailboxSize int             `yaml:"mailbox_size"`
}

// ChannelConfig selects the worker notification channel.
type ChannelConfig struct {
	// Transport is "jsonrpc" or "frame".
	Transport string `yaml:"transport"`
	// Addr is unix://path, tcp://host:port, or "stdio".
	Addr string `yaml:"addr"`
}

// EditorConfig selects the editor host.
type EditorConfig struct {
	// Mode is "workspace" (in-process tabs) or "remote" (JSON-RPC peer).
	Mode string `yaml:"mode"`
	// Addr is the remote editor address; ignored in workspace mode.
	Addr string `yaml:"addr"`
	// Watch closes workspace tabs whose files are removed on disk.
	Watch bool `yaml:"watch"`
}

// IndicatorConfig selects the status indicator.
type IndicatorConfig struct {
	// Mode is "tui", "log", or "remote".
	Mode string `yaml:"mode"`
	// LogFile receives logs while the TUI owns the terminal.
	LogFile string `yaml:"log_file"`
}

// AdapterConfig holds completion adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// JournalConfig holds journal storage defaults from the config file.
type JournalConfig struct {
	Backend       string   `yaml:"backend"`
	Path          string   `yaml:"path"`
	Dataset       string   `yaml:"dataset"`
	Region        string   `yaml:"region"`
	Endpoint      string   `yaml:"endpoint"`
	S3PathStyle   bool     `yaml:"s3_path_style"`
	FlushCount    int      `yaml:"flush_count"`
	FlushInterval Duration `yaml:"flush_interval"`
}

// Enabled reports whether a journal backend is configured.
func (j JournalConfig) Enabled() bool {
	return j.Backend != ""
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks enumerated fields and numeric ranges. Empty fields are
// valid; the command layer fills defaults.
func (c *Config) Validate() error {
	var errs []error
	if !oneOf(c.Channel.Transport, "", "jsonrpc", "frame") {
		errs = append(errs, fmt.Errorf("channel.transport: unknown transport %q", c.Channel.Transport))
	}
	if !oneOf(c.Editor.Mode, "", "workspace", "remote") {
		errs = append(errs, fmt.Errorf("editor.mode: unknown mode %q", c.Editor.Mode))
	}
	if c.Editor.Mode == "remote" && c.Editor.Addr == "" {
		errs = append(errs, errors.New("editor.addr: required in remote mode"))
	}
	if !oneOf(c.Indicator.Mode, "", "tui", "log", "remote") {
		errs = append(errs, fmt.Errorf("indicator.mode: unknown mode %q", c.Indicator.Mode))
	}
	if c.Indicator.Mode == "remote" && c.Editor.Mode != "remote" {
		errs = append(errs, errors.New("indicator.mode: remote requires editor.mode remote"))
	}
	if !oneOf(c.Adapter.Type, "", "webhook", "redis") {
		errs = append(errs, fmt.Errorf("adapter.type: unknown adapter %q", c.Adapter.Type))
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		errs = append(errs, errors.New("adapter.url: required when adapter.type is set"))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, errors.New("adapter.retries: must be >= 0"))
	}
	if c.Journal.FlushCount < 0 {
		errs = append(errs, errors.New("journal.flush_count: must be >= 0"))
	}
	if c.MailboxSize < 0 {
		errs = append(errs, errors.New("mailbox_size: must be >= 0"))
	}
	return errors.Join(errs...)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
