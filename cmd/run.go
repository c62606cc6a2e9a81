package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newRunCmd creates the 'run' subcommand: crawl, save, then build.
func newRunCmd() *cobra.Command {
	var (
		cf crawlFlags
		bf buildFlags
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl the guide and render the site in one go",
		Long: `Runs crawl followed by build. The site is rendered from the saved data
file contents, so an interrupted crawl still leaves a consistent data file and
no partial site.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cf.apply(cmd, &app.Config)
			if cmd.Flags().Changed("site-out") {
				app.Config.Site.OutputDir = bf.out
			}
			if cmd.Flags().Changed("bucket") {
				app.Config.Site.Bucket = bf.bucket
			}

			res, err := crawlToFile(cmd.Context(), app)
			if err != nil {
				return err
			}
			if len(res.Skipped) > 0 {
				app.Logger.Warn("building site from an incomplete crawl", zap.Int("skipped", len(res.Skipped)))
			}
			return buildFromDataFile(cmd.Context(), app, false)
		},
	}
	cf.register(cmd)
	cmd.Flags().StringVar(&bf.out, "site-out", "", "output directory (overrides site.output_dir)")
	cmd.Flags().StringVar(&bf.bucket, "bucket", "", "Cloud Storage bucket to publish to (overrides site.bucket)")
	return cmd
}
