// Package main is the entry point for the termpaint demo host: it stands
// up the grid, the repaint engine and the configured output heads, then
// drives a small animation until interrupted.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/termpaint/internal/config"
	"github.com/dshills/termpaint/internal/render"
	"github.com/dshills/termpaint/internal/render/backend"
	"github.com/dshills/termpaint/internal/render/core"
	"github.com/dshills/termpaint/internal/screen"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	configPath string
	logLevel   string
	duration   time.Duration
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	logger := newLogger(opts.logLevel)
	slog.SetDefault(logger)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	grid := screen.NewGrid(cfg.Screen.Cols, cfg.Screen.Rows)
	if err := applyConfig(grid, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	heads, err := buildHeads(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create output head: %v\n", err)
		return 1
	}

	renderer, err := render.New(grid, render.Options{
		FrameInterval: cfg.FrameInterval(),
		Logger:        logger,
	}, heads...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer renderer.TriggerTeardown(2 * time.Second)

	if opts.configPath != "" {
		watcher, werr := config.NewWatcher(opts.configPath, func(next config.Config) {
			grid.Lock()
			applyErr := applyConfig(grid, next)
			grid.Unlock()
			if applyErr != nil {
				logger.Warn("config apply", "error", applyErr)
				return
			}
			renderer.TriggerRedrawAll()
			renderer.TriggerTitleChange()
		}, logger)
		if werr != nil {
			logger.Warn("config watch unavailable", "error", werr)
		} else {
			defer watcher.Close()
		}
	}

	renderer.EnablePainting()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	return animate(grid, renderer, signals, opts.duration)
}

// animate scrolls a line of text through the grid until a signal arrives
// or the duration elapses. It exists to exercise every trigger path; a
// real host would feed the grid from its own input sources.
func animate(grid *screen.Grid, renderer *render.Renderer, signals <-chan os.Signal, duration time.Duration) int {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if duration > 0 {
		t := time.NewTimer(duration)
		defer t.Stop()
		deadline = t.C
	}

	attr := core.TextAttr{Fg: core.RGB(120, 220, 120), Bg: core.ColorDefault}
	line := 0
	for {
		select {
		case <-signals:
			return 0
		case <-deadline:
			return 0
		case now := <-ticker.C:
			grid.Lock()
			rows := grid.BufferSize().Rows
			var dirty core.Rect
			var delta core.Delta
			if line >= rows {
				delta = grid.ScrollUp(1)
				line = rows - 1
			}
			dirty = grid.WriteString(line, 0, now.Format("15:04:05.000"), attr)
			grid.MoveCursor(line, dirty.Right)
			grid.SetTitle("termpaint " + now.Format("15:04:05"))
			grid.Unlock()

			if !delta.IsZero() {
				renderer.TriggerScrollDelta(delta)
			}
			renderer.TriggerRedraw(dirty)
			renderer.TriggerRedrawCursor(grid.Cursor().Position)
			renderer.TriggerTitleChange()
			line++
		}
	}
}

func applyConfig(grid *screen.Grid, cfg config.Config) error {
	fg, bg, err := cfg.DefaultColors()
	if err != nil {
		return err
	}
	shape, err := cfg.CursorShape()
	if err != nil {
		return err
	}
	grid.SetDefaultColors(fg, bg)
	grid.SetGridLinesAllowed(cfg.Render.GridLines)
	cur := grid.Cursor()
	cur.Shape = shape
	cur.HeightPercent = cfg.Cursor.HeightPercent
	grid.SetCursor(cur)
	return nil
}

func buildHeads(cfg config.Config) ([]backend.Backend, error) {
	var heads []backend.Backend
	for _, name := range cfg.Render.Heads {
		switch name {
		case "terminal":
			term, err := backend.NewTerminal()
			if err != nil {
				return nil, err
			}
			heads = append(heads, term)
		case "vt":
			var out io.Writer = os.Stdout
			if cfg.Render.VTOutput != "" {
				f, err := os.OpenFile(cfg.Render.VTOutput, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
				if err != nil {
					return nil, err
				}
				out = f
			}
			heads = append(heads, backend.NewVT(out, cfg.Screen.Cols, cfg.Screen.Rows))
		}
	}
	if len(heads) == 0 {
		return nil, fmt.Errorf("no output heads configured")
	}
	return heads, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", "termpaint.toml", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "termpaint.toml", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.DurationVar(&opts.duration, "duration", 0, "Exit after this long (0 runs until interrupted)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Termpaint - incremental repaint engine demo host\n\n")
		fmt.Fprintf(os.Stderr, "Usage: termpaint [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("termpaint %s (%s)\n", version, commit)
		os.Exit(0)
	}

	return opts
}
