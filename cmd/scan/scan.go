package scan

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tphakala/roofsolar/internal/app"
	"github.com/tphakala/roofsolar/internal/pipeline"
	"github.com/tphakala/roofsolar/internal/report"
	"github.com/tphakala/roofsolar/internal/resolver"
)

// Command creates the scan command for a directory of building models.
func Command(ctx *app.Context) *cobra.Command {
	var metadataCSV string
	var metadataOnly bool

	cmd := &cobra.Command{
		Use:   "scan [directory]",
		Short: "Analyze every building model under a directory",
		Long: `Walk a directory recursively for building model documents and analyze
each one. A model that fails is reported and the scan continues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := args[0]

			if metadataOnly {
				res, err := ctx.Resolver()
				if err != nil {
					return err
				}
				records, err := pipeline.ScanMetadata(root, res)
				if err != nil {
					return err
				}
				return writeMetadata(ctx, cmd, metadataCSV, records)
			}

			opts := ctx.Options()
			p, err := ctx.NewPipeline(opts)
			if err != nil {
				return err
			}

			result, scanErr := p.Scan(cmd.Context(), root, opts)
			if result == nil {
				return scanErr
			}

			if err := render(ctx, result); err != nil {
				return err
			}

			if metadataCSV != "" {
				records := make([]resolver.Metadata, 0, len(result.Results))
				for _, res := range result.Results {
					records = append(records, res.Metadata)
				}
				if err := writeMetadata(ctx, cmd, metadataCSV, records); err != nil {
					return err
				}
			}

			if dir := ctx.Settings.Output.Dir; dir != "" {
				for _, res := range result.Results {
					if !res.OK() {
						continue
					}
					if _, err := report.ExportResult(dir, res); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d results to %s\n", len(result.Results)-result.Failed, dir)
			}
			return scanErr
		},
	}

	cmd.Flags().StringVar(&metadataCSV, "metadata-csv", "", "Write the metadata of every model to this CSV file ('-' for stdout)")
	cmd.Flags().BoolVar(&metadataOnly, "metadata-only", false, "Only extract metadata, skip segmentation and production")

	return cmd
}

func render(ctx *app.Context, result *pipeline.ScanResult) error {
	switch ctx.Settings.Output.Format {
	case "json":
		return report.WriteJSON(ctx.Stdout, result)
	case "csv":
		return report.WriteSegmentsCSV(ctx.Stdout, result.Results...)
	}
	return ctx.Console().ScanSummary(result)
}

// writeMetadata writes records as CSV to path, or to stdout when path is
// empty or "-".
func writeMetadata(ctx *app.Context, cmd *cobra.Command, path string, records []resolver.Metadata) error {
	if path == "" || path == "-" {
		return report.WriteMetadataCSV(ctx.Stdout, records)
	}

	f, err := report.CreateFile(path)
	if err != nil {
		return err
	}
	if err := report.WriteMetadataCSV(f, records); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d metadata records to %s\n", len(records), path)
	return nil
}
