package cmd

import (
	"github.com/spf13/cobra"

	"github.com/AdamSzakal/gboc-get/internal/server"
)

// newServeCmd creates the 'serve' subcommand, a local preview of the built
// site.
func newServeCmd() *cobra.Command {
	var addr, dir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the built site locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				app.Config.Server.Addr = addr
			}
			if cmd.Flags().Changed("dir") {
				app.Config.Site.OutputDir = dir
			}
			srv := server.New(app.Config.Site.OutputDir, app.Logger)
			return srv.ListenAndServe(cmd.Context(), app.Config.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&dir, "dir", "", "site directory (overrides site.output_dir)")
	return cmd
}
