package keys

import (
	"github.com/spf13/cobra"
	"github.com/tphakala/roofsolar/internal/app"
	"github.com/tphakala/roofsolar/internal/building"
	"github.com/tphakala/roofsolar/internal/report"
	"github.com/tphakala/roofsolar/internal/resolver"
)

// Command creates the keys command listing quantity and property keys.
func Command(ctx *app.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "keys [model.json|model.yaml]",
		Short: "List the quantity and property keys present in a model",
		Long: `List every quantity and property key present in a building model with
its occurrence count, and suggest area keys that no alias chain reads yet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := building.Open(args[0])
			if err != nil {
				return err
			}
			res, err := ctx.Resolver()
			if err != nil {
				return err
			}

			inventory := resolver.Inventory(m)
			suggestions := resolver.SuggestAliases(inventory, res.Aliases())

			if ctx.Settings.Output.Format == "json" {
				return report.WriteJSON(ctx.Stdout, struct {
					Keys        []resolver.KeyUsage `json:"keys"`
					Suggestions []resolver.Strategy `json:"suggestions"`
				}{inventory, suggestions})
			}
			return ctx.Console().Keys(inventory, suggestions)
		},
	}
}
