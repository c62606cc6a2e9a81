package cmd

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AdamSzakal/gboc-get/internal/config"
	"github.com/AdamSzakal/gboc-get/internal/model"
	"github.com/AdamSzakal/gboc-get/internal/site"
	gcsstorage "github.com/AdamSzakal/gboc-get/internal/storage/gcs"
	localstorage "github.com/AdamSzakal/gboc-get/internal/storage/local"
	"github.com/AdamSzakal/gboc-get/internal/storage/memory"
)

type buildFlags struct {
	data   string
	out    string
	bucket string
	dryRun bool
}

// newBuildCmd creates the 'build' subcommand, which renders the site from
// the data file without touching the network.
func newBuildCmd() *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render the static site from the data file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			f.apply(cmd, &app.Config)
			return buildFromDataFile(cmd.Context(), app, f.dryRun)
		},
	}
	f.register(cmd)
	return cmd
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.data, "data", "", "data file to read (overrides crawler.data_file)")
	cmd.Flags().StringVar(&f.out, "out", "", "output directory (overrides site.output_dir)")
	cmd.Flags().StringVar(&f.bucket, "bucket", "", "Cloud Storage bucket to publish to (overrides site.bucket)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "render in memory and report what would be written")
}

func (f *buildFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("data") {
		cfg.Crawler.DataFile = f.data
	}
	if cmd.Flags().Changed("out") {
		cfg.Site.OutputDir = f.out
	}
	if cmd.Flags().Changed("bucket") {
		cfg.Site.Bucket = f.bucket
	}
}

// buildFromDataFile renders the site from the saved data file, the only input
// synthesis reads.
func buildFromDataFile(ctx context.Context, app *App, dryRun bool) error {
	areas, err := model.Load(app.Config.Crawler.DataFile)
	if err != nil {
		return err
	}
	if dryRun {
		return dryRunSite(ctx, app, areas)
	}
	return buildSite(ctx, app, areas)
}

// buildSite renders areas through the configured writer.
func buildSite(ctx context.Context, app *App, areas []model.Area) error {
	w, closeWriter, err := buildWriter(ctx, app.Config.Site, app.Logger)
	if err != nil {
		return err
	}
	defer closeWriter()

	synth, err := site.New(w, site.Config{
		Title:   app.Config.Site.Title,
		Workers: app.Config.Site.Workers,
	}, app.Logger)
	if err != nil {
		return err
	}
	return synth.Synthesize(ctx, areas)
}

// dryRunSite renders areas in memory and logs the pages it would write.
func dryRunSite(ctx context.Context, app *App, areas []model.Area) error {
	w := memory.New()
	synth, err := site.New(w, site.Config{
		Title:   app.Config.Site.Title,
		Workers: app.Config.Site.Workers,
	}, app.Logger)
	if err != nil {
		return err
	}
	if err := synth.Synthesize(ctx, areas); err != nil {
		return err
	}
	for _, p := range w.Paths() {
		app.Logger.Debug("would write page", zap.String("path", p))
	}
	app.Logger.Info("dry run complete",
		zap.Int("pages", len(w.Paths())),
		zap.Int("bytes", w.Size()),
	)
	return nil
}

// buildWriter returns a Cloud Storage writer when a bucket is configured and
// a local directory writer otherwise.
func buildWriter(ctx context.Context, cfg config.SiteConfig, logger *zap.Logger) (site.Writer, func(), error) {
	if cfg.Bucket == "" {
		w, err := localstorage.New(localstorage.Config{BaseDir: cfg.OutputDir})
		if err != nil {
			return nil, nil, fmt.Errorf("local site writer init failed: %w", err)
		}
		logger.Info("writing site to directory", zap.String("path", w.Dir()))
		return w, func() {}, nil
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("gcs client init failed: %w", err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	w, err := gcsstorage.New(client, gcsstorage.Config{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("gcs site writer init failed: %w", err)
	}
	logger.Info("writing site to bucket", zap.String("uri", w.URI()))
	return w, closeFn, nil
}
