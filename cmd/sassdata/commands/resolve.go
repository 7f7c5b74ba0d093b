package commands

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/sassdata/pkg/telemetry"
)

func newResolveCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve FILE",
		Short: "Print the resolved value of a data file as YAML",
		Long: `Load a data file and print the value the importer would emit, as YAML.

For a theme this is the theme with every deferred value resolved. For any
other file it is the module data merged with the current theme's override,
when a theme is given with --theme.`,
		Example: `  # Inspect a resolved theme
  sassdata resolve theme.star

  # Module data after theme overrides
  sassdata resolve --theme theme.yaml button.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ic := telemetry.StartOperation(cmd.Context(), "resolve", telemetry.AttrPath.String(args[0]))
			defer func() { ic.End(err) }()
			ctx := ic.Ctx

			im, release, err := opts.newImporter(ctx)
			if err != nil {
				return err
			}
			defer release()

			path, err := findDataFile(args[0], opts.cfg.IncludePaths)
			if err != nil {
				return err
			}

			v, kind, err := im.Evaluate(ctx, path)
			if err != nil {
				return err
			}
			ic.Logger.WithPath(path).Debug().Str("kind", string(kind)).Msg("Resolved data file")

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(toYAML(v)); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	return cmd
}
