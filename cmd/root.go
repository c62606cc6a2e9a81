// Package cmd defines and implements the CLI commands for the gboc-get executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AdamSzakal/gboc-get/internal/config"
	"github.com/AdamSzakal/gboc-get/internal/logging"
	"github.com/AdamSzakal/gboc-get/internal/telemetry"
)

// version is set at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

// appKeyType is the key for storing the appSlot in the context.
type appKeyType struct{}

// appSlot is placed in the context before the command runs so the App built
// in PersistentPreRunE can still be closed when the command fails.
type appSlot struct {
	app *App
}

// App carries the loaded configuration and logger to subcommands.
type App struct {
	Config config.Config
	Logger *zap.Logger

	shutdownTracing func(context.Context) error
}

// newApp loads configuration and builds the logger. It is a variable so tests
// can swap it.
var newApp = func(cfgFile string) (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	return &App{Config: cfg, Logger: logger}, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "Mirror the Gothenburg bouldering guide as a static site.",
		Long: `gboc-get crawls the bouldering guide area by area, stores the
Area -> Sector -> Problem tree in a JSON data file and renders that file as a
browsable static site.`,
		Version:      version,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			slot, ok := cmd.Context().Value(appKeyType{}).(*appSlot)
			if !ok {
				slot = &appSlot{}
				cmd.SetContext(context.WithValue(cmd.Context(), appKeyType{}, slot))
			}
			slot.app = app
			zap.ReplaceGlobals(app.Logger)
			if app.Config.File != "" {
				app.Logger.Debug("config loaded", zap.String("file", app.Config.File))
			}
			shutdown, err := telemetry.InitTracerProvider(cmd.Context(), config.AppName, version, app.Config.Tracing.File)
			if err != nil {
				return fmt.Errorf("failed to initialize tracing: %w", err)
			}
			app.shutdownTracing = shutdown
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default ./config.yaml or $XDG_CONFIG_HOME/gboc-get/config.yaml)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := executeRoot(ctx, newRootCmd()); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		return 1
	}
	return 0
}

// executeRoot runs cmd and then closes the App it built, whether or not the
// command succeeded.
func executeRoot(ctx context.Context, cmd *cobra.Command) error {
	slot := &appSlot{}
	err := cmd.ExecuteContext(context.WithValue(ctx, appKeyType{}, slot))
	if slot.app != nil {
		slot.app.close(context.WithoutCancel(ctx))
	}
	return err
}

// close flushes pending spans and log entries.
func (a *App) close(ctx context.Context) {
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.Logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

func resolveApp(ctx context.Context) (*App, error) {
	slot, ok := ctx.Value(appKeyType{}).(*appSlot)
	if !ok || slot.app == nil {
		return nil, errors.New("application not initialized")
	}
	return slot.app, nil
}
