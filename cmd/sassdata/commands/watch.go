package commands

import (
	"github.com/spf13/cobra"

	"github.com/openfroyo/sassdata/pkg/importer"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "watch ENTRY",
		Short: "Recompile a stylesheet whenever it or its data files change",
		Long: `Compile a stylesheet, then watch its directory, the include paths and the
directory of every data file it imports. Changes trigger a rebuild after a
short quiet period. Build failures are logged and the previous output is
kept.

When metrics are enabled in the configuration they are served for the
lifetime of the command.`,
		Example: `  sassdata watch -o dist/main.css styles/main.scss`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := opts.tel.Metrics.StartMetricsServer(ctx, opts.logger); err != nil {
				return err
			}

			c, err := importer.NewCompiler(opts.compilerOptions())
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					opts.logger.Warn().Err(err).Msg("Failed to stop Dart Sass")
				}
			}()

			w, err := importer.NewWatcher(c, args[0], importer.WatchOptions{
				Logger:  opts.logger,
				Metrics: opts.tel.Metrics,
				OnBuild: func(res *importer.CompileResult, err error) {
					if err != nil {
						return
					}
					if err := writeCSS(cmd, output, res.CSS); err != nil {
						opts.logger.Error().Err(err).Msg("Failed to write output")
						return
					}
					opts.logger.Info().Str("output", output).Msg("Output written")
				},
			})
			if err != nil {
				return err
			}

			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write CSS to")
	cmd.Flags().String("style", "", "output style (expanded or compressed)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
