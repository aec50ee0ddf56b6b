package cliapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	coreapp "nscope/internal/core/app"
	"nscope/internal/core/config"
	"nscope/internal/shared/observability"
)

// Run executes the CLI and returns the process exit code: 0 on success, 1
// when a command fails and 2 for usage errors.
func Run(args []string) int {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "nscope v%s\n", versionString)
		return 0
	}

	cmd, ok := commands[opts.command]
	if !ok {
		if opts.command != "" {
			fmt.Fprintf(stderr, "unknown command %q\n", opts.command)
		}
		printUsage(stderr)
		return 2
	}

	cmdOpts, err := parseCommandOptions(opts.command, opts.args)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}
	if err := cmd.checkArgs(cmdOpts.args); err != nil {
		fmt.Fprintf(stderr, "%v\nusage: nscope %s\n", err, cmd.usage)
		return 2
	}

	configureLogging(stderr, opts.verbose)

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	shutdown, err := startObservability(ctx, cfg)
	if err != nil {
		slog.Error("failed to start observability", "error", err)
		return 1
	}
	defer shutdown()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to resolve working directory", "error", err)
		return 1
	}
	app, err := coreapp.New(cfg, cwd)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("failed to close app", "error", err)
		}
	}()

	if err := cmd.run(ctx, app, cmdOpts, stdout); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return 0
}

// loadConfig reads path. A missing file at the default path falls back to
// built-in defaults. Environment overrides apply last.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if path != defaultConfigPath || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		cfg = config.DefaultConfig()
	}

	config.ApplyEnvOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configureLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

func startObservability(ctx context.Context, cfg *config.Config) (func(), error) {
	obs := cfg.Observability
	shutdownTracing, err := observability.SetupTracing(ctx, obs.OTLPEndpoint, obs.ServiceName)
	if err != nil {
		return nil, err
	}

	var server *http.Server
	if obs.MetricsAddress != "" {
		server = observability.MetricsServer(obs.MetricsAddress)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "address", obs.MetricsAddress, "error", err)
			}
		}()
		slog.Debug("metrics server listening", "address", obs.MetricsAddress)
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if server != nil {
			_ = server.Shutdown(shutdownCtx)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}, nil
}
