package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/sassdata/pkg/importer"
	"github.com/openfroyo/sassdata/pkg/telemetry"
)

func newCompileCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "compile ENTRY",
		Short: "Compile a stylesheet with the data importer installed",
		Long: `Compile a Sass stylesheet with Dart Sass. Data files loaded with @use or
@import are converted to declarations on the fly.`,
		Example: `  # Print CSS to stdout
  sassdata compile styles/main.scss

  # Compressed output to a file
  sassdata compile --style compressed -o dist/main.css styles/main.scss`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ic := telemetry.StartOperation(cmd.Context(), "compile", telemetry.AttrEntry.String(args[0]))
			defer func() { ic.End(err) }()

			c, err := importer.NewCompiler(opts.compilerOptions())
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					opts.logger.Warn().Err(err).Msg("Failed to stop Dart Sass")
				}
			}()

			res, err := c.Compile(ic.Ctx, args[0])
			if err != nil {
				return err
			}

			ic.Logger.Debug().
				Str("session_id", res.SessionID).
				Strs("dependencies", res.Dependencies).
				Msg("Compilation finished")

			return writeCSS(cmd, output, res.CSS)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write CSS to this file instead of stdout")
	cmd.Flags().String("style", "", "output style (expanded or compressed)")

	return cmd
}

func writeCSS(cmd *cobra.Command, path, css string) error {
	if !strings.HasSuffix(css, "\n") {
		css += "\n"
	}
	if path == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), css)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(css), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
