package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/iedon/docpage-go/config"
)

// CLI is the root command line definition.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file (JSON or YAML). Defaults apply when omitted." type:"path"`
	Verbose bool             `short:"v" help:"Enable debug logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Compile CompileCmd `cmd:"" help:"Compile markdown sources into page bundles"`
	Serve   ServeCmd   `cmd:"" default:"1" help:"Serve page bundles over HTTP"`
	Export  ExportCmd  `cmd:"" help:"Render page bundles into a static site"`
}

// Global carries state shared by every command.
type Global struct {
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name(SERVER_NAME),
		kong.Description("Serve markdown documentation as lazily rendered page modules."),
		kong.Vars{"version": SERVER_SIGNATURE},
		kong.UsageOnError(),
	)

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		newLogger("info").Error("config", "error", err)
		os.Exit(1)
	}
	level := cfg.LogLevel
	if cli.Verbose {
		level = "debug"
	}
	logger := newLogger(level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := kctx.Run(&Global{Ctx: ctx, Config: cfg, Logger: logger}); err != nil {
		logger.Error(kctx.Command(), "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if strings.TrimSpace(path) == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
