package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sparod/melo/internal/api"
	"github.com/sparod/melo/internal/event"
	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/internal/melod"
	"github.com/sparod/melo/internal/modules/file"
	"github.com/sparod/melo/internal/modules/radio"
	"github.com/sparod/melo/internal/registry"
	"github.com/sparod/melo/internal/server"
)

func main() {
	var (
		configPath  string
		name        string
		httpPort    int
		dataDir     string
		uiDir       string
		logLevel    string
		logFormat   string
		printConfig bool
		dryRun      bool
	)

	defaultConfig, err := melod.DefaultConfigPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	flag.StringVar(&configPath, "config", defaultConfig, "config file path")
	flag.StringVar(&name, "name", "", "device name override")
	flag.IntVar(&httpPort, "http-port", 0, "http port override")
	flag.StringVar(&dataDir, "data-dir", "", "data directory override")
	flag.StringVar(&uiDir, "ui-dir", "", "ui directory override")
	flag.StringVar(&logLevel, "log-level", "", "log level override")
	flag.StringVar(&logFormat, "log-format", "", "log format override (text|json)")
	flag.BoolVar(&printConfig, "print-config", false, "print resolved config and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "validate config and exit")
	flag.Parse()

	cfg, err := melod.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyOverrides(&cfg, name, httpPort, dataDir, uiDir, logLevel, logFormat)

	if printConfig {
		printResolvedConfig(cfg)
		return
	}
	if dryRun {
		return
	}

	logger, err := melod.NewLogger(melod.LogConfig{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("melod starting",
		zap.String("name", cfg.Server.Name),
		zap.String("serial", melod.Serial()),
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.String("data_dir", cfg.Server.DataDir),
		zap.Strings("modules", enabledModules(cfg)),
	)

	reg := registry.New(logger.Named("registry"))
	bus := event.NewBus(logger.Named("events"))
	rpc := jsonrpc.NewRegistry(logger.Named("jsonrpc"))
	api.Register(rpc, reg, logger.Named("api"))

	modules, err := buildModules(cfg, logger, reg, bus)
	if err != nil {
		logger.Error("failed to build modules", zap.Error(err))
		os.Exit(1)
	}

	srv := server.New(logger.Named("http"), server.Config{
		Addr:     net.JoinHostPort("", strconv.Itoa(cfg.Server.HTTPPort)),
		UIDir:    cfg.Server.UIDir,
		CoverDir: filepath.Join(cfg.Server.DataDir, "file", "covers"),
		AuthUser: cfg.Server.Auth.User,
		AuthPass: cfg.Server.Auth.Pass,
	}, rpc, reg, bus)
	modules = append(modules, melod.ModuleRunner{Name: "http", Run: srv.Run})

	supervisor := melod.Supervisor{Logger: logger}
	if err := supervisor.Run(ctx, modules); err != nil {
		logger.Error("supervisor error", zap.Error(err))
		os.Exit(1)
	}
}

func applyOverrides(cfg *melod.Config, name string, httpPort int, dataDir string, uiDir string, logLevel string, logFormat string) {
	if name != "" {
		cfg.Server.Name = name
	}
	if httpPort != 0 {
		cfg.Server.HTTPPort = httpPort
	}
	if dataDir != "" {
		cfg.Server.DataDir = dataDir
	}
	if uiDir != "" {
		cfg.Server.UIDir = uiDir
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.Server.LogFormat = logFormat
	}
}

func buildModules(cfg melod.Config, logger *zap.Logger, reg *registry.Registry, bus *event.Bus) ([]melod.ModuleRunner, error) {
	modules := []melod.ModuleRunner{}

	if cfg.Modules.File.Enabled {
		mod, err := file.NewModule(logger.With(zap.String("module", "file")), reg, bus, file.Config{
			Roots:     cfg.Modules.File.Roots,
			DataDir:   cfg.Server.DataDir,
			Pipeline:  cfg.Modules.File.Pipeline,
			Device:    cfg.Modules.File.Device,
			Crossfade: time.Duration(cfg.Modules.File.CrossfadeMS) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		modules = append(modules, melod.ModuleRunner{Name: "file", Run: mod.Run})
	}

	if cfg.Modules.Radio.Enabled {
		mod, err := radio.NewModule(logger.With(zap.String("module", "radio")), reg, bus, radio.Config{
			Feeds:      cfg.Modules.Radio.Feeds,
			RefreshTTL: time.Duration(cfg.Modules.Radio.RefreshMin) * time.Minute,
			Pipeline:   cfg.Modules.Radio.Pipeline,
			Device:     cfg.Modules.Radio.Device,
		})
		if err != nil {
			return nil, err
		}
		modules = append(modules, melod.ModuleRunner{Name: "radio", Run: mod.Run})
	}

	return modules, nil
}

func enabledModules(cfg melod.Config) []string {
	out := []string{}
	if cfg.Modules.File.Enabled {
		out = append(out, "file")
	}
	if cfg.Modules.Radio.Enabled {
		out = append(out, "radio")
	}
	return out
}

func printResolvedConfig(cfg melod.Config) {
	fmt.Fprintf(os.Stdout,
		"name=%s http_port=%d data_dir=%s ui_dir=%s log_level=%s log_format=%s file=%t radio=%t\n",
		cfg.Server.Name,
		cfg.Server.HTTPPort,
		cfg.Server.DataDir,
		cfg.Server.UIDir,
		cfg.Server.LogLevel,
		cfg.Server.LogFormat,
		cfg.Modules.File.Enabled,
		cfg.Modules.Radio.Enabled,
	)
}
