package analyze

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tphakala/roofsolar/internal/app"
	"github.com/tphakala/roofsolar/internal/errors"
	"github.com/tphakala/roofsolar/internal/pipeline"
	"github.com/tphakala/roofsolar/internal/report"
	"github.com/tphakala/roofsolar/internal/resolver"
	"github.com/tphakala/roofsolar/internal/suncalc"
)

type flags struct {
	latitude   float64
	longitude  float64
	project    string
	sunProfile bool
}

// Command creates the analyze command for a single building model.
func Command(ctx *app.Context) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "analyze [model.json|model.yaml]",
		Short: "Estimate the rooftop solar potential of a building model",
		Long: `Segment the roof of a building model into planar surfaces, estimate
the annual yield of each segment and score it against the building's
estimated consumption.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := ctx.Options()
			opts.ProjectName = f.project

			latSet := cmd.Flags().Changed("lat")
			lonSet := cmd.Flags().Changed("lon")
			if latSet || lonSet {
				loc, err := overrideLocation(latSet, lonSet, f)
				if err != nil {
					return err
				}
				opts.LocationOverride = loc
			}

			p, err := ctx.NewPipeline(opts)
			if err != nil {
				return err
			}

			res, runErr := p.RunFile(cmd.Context(), args[0], opts)
			if res == nil {
				return runErr
			}
			if err := render(ctx, res, f.sunProfile); err != nil {
				return err
			}
			if dir := ctx.Settings.Output.Dir; dir != "" && res.OK() {
				paths, err := report.ExportResult(dir, res)
				if err != nil {
					return err
				}
				for _, path := range paths {
					fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
				}
			}
			return runErr
		},
	}

	cmd.Flags().Float64Var(&f.latitude, "lat", 0, "Override the site latitude in decimal degrees")
	cmd.Flags().Float64Var(&f.longitude, "lon", 0, "Override the site longitude in decimal degrees")
	cmd.Flags().StringVar(&f.project, "project", "", "Project name (default: the model's directory name)")
	cmd.Flags().BoolVar(&f.sunProfile, "sun-profile", true, "Print the site's day length at the equinoxes and solstices")

	return cmd
}

// overrideLocation validates a --lat/--lon pair. Both must be given.
func overrideLocation(latSet, lonSet bool, f flags) (*resolver.Location, error) {
	if latSet != lonSet {
		return nil, errors.Newf("--lat and --lon must be given together").
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}
	if f.latitude < -90 || f.latitude > 90 || f.longitude < -180 || f.longitude > 180 {
		return nil, errors.Newf("location %g, %g is out of range", f.latitude, f.longitude).
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}
	return &resolver.Location{Latitude: f.latitude, Longitude: f.longitude, Name: f.project}, nil
}

func render(ctx *app.Context, res *pipeline.Result, sunProfile bool) error {
	switch ctx.Settings.Output.Format {
	case "json":
		return report.WriteJSON(ctx.Stdout, res)
	case "csv":
		return report.WriteSegmentsCSV(ctx.Stdout, res)
	}

	console := ctx.Console()
	if err := console.Analysis(res); err != nil {
		return err
	}
	if !sunProfile || !res.OK() {
		return nil
	}
	sc := suncalc.NewSunCalc(res.Location.Latitude, res.Location.Longitude)
	return console.SunProfile(sc.Profile(time.Now().Year()))
}
