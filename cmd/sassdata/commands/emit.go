package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/sassdata/pkg/importer"
	"github.com/openfroyo/sassdata/pkg/loader"
	"github.com/openfroyo/sassdata/pkg/telemetry"
)

func newEmitCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit FILE...",
		Short: "Print the Sass declarations for data files",
		Long: `Run the importer on each data file, in order, within one session and
print the resulting declarations.

Theme files listed first become the current theme for the files after them.`,
		Example: `  # Declarations for a single file
  sassdata emit colors.json

  # Module merged with a theme's overrides
  sassdata emit theme.yaml button.yaml

  # Search additional directories
  sassdata emit -I styles/data colors.toml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ic := telemetry.StartOperation(cmd.Context(), "emit")
			defer func() { ic.End(err) }()
			ctx := ic.Ctx

			im, release, err := opts.newImporter(ctx)
			if err != nil {
				return err
			}
			defer release()

			out := cmd.OutOrStdout()
			for _, arg := range args {
				path, err := findDataFile(arg, opts.cfg.IncludePaths)
				if err != nil {
					return err
				}

				res := im.ImportFile(ctx, path)
				if res.Err != nil {
					return res.Err
				}

				ic.Logger.WithPath(path).Debug().
					Str("kind", string(im.KindOf(path))).
					Msg("Emitted declarations")

				if res.Contents != "" {
					fmt.Fprintln(out, res.Contents)
				}
			}
			return nil
		},
	}

	return cmd
}

// findDataFile locates a data file named on the command line, searching the
// working directory and then the include paths.
func findDataFile(name string, includePaths []string) (string, error) {
	if !loader.IsSupported(name) {
		return "", fmt.Errorf("unsupported data file %s (supported: %s)",
			name, strings.Join(loader.Extensions(), ", "))
	}
	return importer.ResolvePath(name, "", append([]string{"."}, includePaths...))
}
