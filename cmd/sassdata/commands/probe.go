package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/sassdata/pkg/oracle"
)

func newProbeCommand(opts *rootOptions) *cobra.Command {
	var key bool

	cmd := &cobra.Command{
		Use:   "probe FRAGMENT",
		Short: "Ask Dart Sass whether a fragment can be emitted unquoted",
		Long: `Embed a fragment in a probe stylesheet and compile it. Prints "bare" when
the fragment compiles as-is and "quoted" when it would be emitted as a
quoted string.`,
		Example: `  sassdata probe 10px
  sassdata probe '#fff'
  sassdata probe --key 'font-size'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orc, closeOracle, err := oracleFactory(opts.cfg, opts.tel, opts.componentLogger("oracle"))
			if err != nil {
				return err
			}
			defer func() { _ = closeOracle() }()

			fragment := args[0]
			probe := oracle.ValueProbe(fragment)
			if key {
				probe = oracle.KeyProbe(fragment)
			}

			verdict := "quoted"
			if orc.IsAcceptable(probe) {
				verdict = "bare"
			}

			opts.logger.Debug().Str("probe", probe).Str("verdict", verdict).Msg("Probe finished")
			_, err = fmt.Fprintln(cmd.OutOrStdout(), verdict)
			return err
		},
	}

	cmd.Flags().BoolVar(&key, "key", false, "probe the fragment as a map key")

	return cmd
}
