// ABOUTME: Shared plumbing for the retinal command-line tools
// ABOUTME: Resolves config and data paths, builds the logger and opens the App

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/2389/retinal-ledger/internal/app"
	"github.com/2389/retinal-ledger/internal/config"
)

// ConfigPath returns the path to the config file.
// Priority: RETINAL_CONFIG env var > XDG_CONFIG_HOME/retinal/config.yaml > ~/.config/retinal/config.yaml
func ConfigPath() string {
	if envPath := os.Getenv("RETINAL_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "retinal", "config.yaml")
}

// DataPath returns the path to the retinal data directory.
// Priority: XDG_DATA_HOME/retinal > ~/.local/share/retinal
func DataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "retinal")
}

// LoadConfig loads the config file, falling back to defaults when it is absent.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(ConfigPath(), DataPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// OpenApp loads config, builds the logger and opens the App.
func OpenApp(ctx context.Context) (*app.App, *config.Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Open(ctx, cfg, NewLogger(cfg.Logging, os.Stderr))
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

// NewLogger builds a slog logger writing to w. Format "json" selects the JSON
// handler; anything else gets colorized text.
func NewLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(&colorHandler{out: w, mu: &sync.Mutex{}, level: level})
}

// colorHandler writes one colorized line per record.
type colorHandler struct {
	out   io.Writer
	mu    *sync.Mutex
	level slog.Level
	attrs []slog.Attr
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	var buf strings.Builder
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch {
	case r.Level >= slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	case r.Level >= slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case r.Level >= slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	default:
		buf.WriteString(color.MagentaString("DBG "))
	}
	buf.WriteString(r.Message)

	writeAttr := func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(writeAttr)
	buf.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, buf.String())
	return err
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &colorHandler{out: h.out, mu: h.mu, level: h.level, attrs: merged}
}

// WithGroup is a no-op; the text output is flat.
func (h *colorHandler) WithGroup(string) slog.Handler { return h }

// Flags maps "--name value" pairs to values. Arguments that are not flags are
// returned in order as positional arguments.
func Flags(args []string, boolFlags ...string) (map[string]string, []string) {
	isBool := make(map[string]bool, len(boolFlags))
	for _, f := range boolFlags {
		isBool[f] = true
	}

	flags := make(map[string]string)
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
			continue
		}
		name := strings.TrimPrefix(arg, "--")
		if k, v, ok := strings.Cut(name, "="); ok {
			flags[k] = v
			continue
		}
		if isBool[name] {
			flags[name] = "true"
			continue
		}
		if i+1 < len(args) {
			flags[name] = args[i+1]
			i++
		} else {
			flags[name] = ""
		}
	}
	return flags, positional
}

// ReadSecret prompts for a value without echo when stdin is a terminal, and
// reads one line otherwise.
func ReadSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	return ReadLine(bufio.NewReader(os.Stdin))
}

// ReadLine reads one trimmed line from r.
func ReadLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
