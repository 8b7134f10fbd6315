package check

import (
	"github.com/spf13/cobra"
	"github.com/tphakala/roofsolar/internal/app"
	"github.com/tphakala/roofsolar/internal/building"
	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/report"
)

// ErrChecksFailed is returned in strict mode when a check does not pass.
var ErrChecksFailed = errors.NewStd("checks not passed")

// Command creates the check command running the model checks.
func Command(ctx *app.Context) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check [model.json|model.yaml]",
		Short: "Run the location, area, roof, production and LEED checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := building.Open(args[0])
			if err != nil {
				return err
			}

			checker, err := ctx.NewChecker(ctx.Options())
			if err != nil {
				return err
			}
			rep := checker.RunAll(cmd.Context(), m)

			if ctx.Settings.Output.Format == "json" {
				err = report.WriteJSON(ctx.Stdout, rep)
			} else {
				err = ctx.Console().Checks(rep)
			}
			if err != nil {
				return err
			}

			if strict && !rep.Passed {
				return ErrChecksFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error when any check fails")

	return cmd
}
