package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tphakala/roofsolar/cmd/analyze"
	"github.com/tphakala/roofsolar/cmd/check"
	"github.com/tphakala/roofsolar/cmd/keys"
	"github.com/tphakala/roofsolar/cmd/scan"
	"github.com/tphakala/roofsolar/internal/app"
	"github.com/tphakala/roofsolar/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(ctx *app.Context) *cobra.Command {
	var configFile string
	var offline bool

	rootCmd := &cobra.Command{
		Use:          "roofsolar",
		Short:        "Rooftop solar potential of building models",
		Version:      ctx.Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default: search ~/.config/roofsolar, /etc/roofsolar)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Skip the PVWatts estimator, production and score are 0")
	if err := setupFlags(rootCmd); err != nil {
		// Flag binding only fails on programming errors
		panic(err)
	}

	rootCmd.AddCommand(
		analyze.Command(ctx),
		scan.Command(ctx),
		check.Command(ctx),
		keys.Command(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			conf.SetConfigFile(configFile)
		}
		if err := ctx.Init(); err != nil {
			return err
		}
		if offline {
			ctx.Settings.Analysis.CallAPI = false
		}
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface and
// binds them to their config keys. Flags win over environment and file.
func setupFlags(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("log-level", "info", "Service log level: trace, debug, info, warn, error")
	flags.StringP("format", "f", "table", "Output format: table, json, csv")
	flags.StringP("output", "o", "", "Directory to export JSON and CSV results to")
	flags.Bool("color", true, "Colourize console output")
	flags.String("api-key", "", "NREL PVWatts API key")
	flags.String("alias-file", "", "Key alias file overriding the built-in alias chains")
	flags.String("metrics-file", "", "Write Prometheus metrics in text format to this file on exit")

	bindings := map[string]string{
		"debug":              "debug",
		"log.level":          "log-level",
		"output.format":      "format",
		"output.dir":         "output",
		"output.color":       "color",
		"pvwatts.apikey":     "api-key",
		"analysis.aliasfile": "alias-file",
		"metrics.textfile":   "metrics-file",
	}
	for key, name := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
