package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tphakala/roofsolar/internal/checks"
	"github.com/tphakala/roofsolar/internal/pipeline"
	"github.com/tphakala/roofsolar/internal/production"
	"github.com/tphakala/roofsolar/internal/resolver"
	"github.com/tphakala/roofsolar/internal/suncalc"
)

const notAvailable = "N/A"

// Console renders reports as text tables.
type Console struct {
	w       io.Writer
	p       *message.Printer
	noColor bool
}

// NewConsole creates a console renderer writing to w.
func NewConsole(w io.Writer, useColor bool) *Console {
	return &Console{
		w:       w,
		p:       message.NewPrinter(language.English),
		noColor: !useColor,
	}
}

func (c *Console) paint(s string, attrs ...color.Attribute) string {
	col := color.New(attrs...)
	if c.noColor {
		col.DisableColor()
	} else {
		col.EnableColor()
	}
	return col.Sprint(s)
}

func (c *Console) section(title string) {
	fmt.Fprintf(c.w, "\n%s\n", c.paint(title, color.Bold))
}

func (c *Console) table(header []string, rows [][]string) error {
	table := tablewriter.NewWriter(c.w)
	table.Header(header)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func (c *Console) optional(v *float64, format string) string {
	if v == nil {
		return notAvailable
	}
	return c.p.Sprintf(format, *v)
}

// Analysis renders one pipeline result.
func (c *Console) Analysis(res *pipeline.Result) error {
	if !res.OK() {
		fmt.Fprintf(c.w, "\n%s %s\n", c.paint("ERROR:", color.FgRed, color.Bold), res.Error)
		return nil
	}

	rule := strings.Repeat("=", 60)
	fmt.Fprintf(c.w, "\n%s\n  %s\n%s\n", rule, c.paint("SOLAR ANALYSIS: "+res.ProjectName, color.Bold), rule)
	fmt.Fprintf(c.w, "  File      %s\n", res.File)
	fmt.Fprintf(c.w, "  Location  %.6f, %.6f (%s)\n", res.Location.Latitude, res.Location.Longitude, res.LocationSource)
	fmt.Fprintf(c.w, "  Run       %s in %s\n", res.RunID, res.Duration.Round(time.Millisecond))

	md := res.Metadata
	c.section("Building metadata")
	if err := c.table([]string{"Metric", "Value"}, [][]string{
		{"Window area", c.optional(md.WindowArea, "%.1f m²")},
		{"Floor area", c.optional(md.FloorArea, "%.1f m²")},
		{"Roof area (property sets)", c.optional(md.RoofArea, "%.1f m²")},
		{"True north", c.optional(md.TrueNorth, "%.1f°")},
	}); err != nil {
		return err
	}

	c.section("Roof segments")
	rows := make([][]string, 0, len(res.Segments()))
	for _, s := range res.Segments() {
		rows = append(rows, []string{
			s.ID,
			c.p.Sprintf("%.1f", s.Area),
			c.p.Sprintf("%.1f", s.Tilt),
			c.p.Sprintf("%.1f", s.Azimuth),
			c.p.Sprintf("%.2f", s.CapacityKW),
			c.p.Sprintf("%.1f", s.AnnualKWh),
			c.status(s.Status),
		})
	}
	if err := c.table([]string{"Segment", "Area m²", "Tilt °", "Azimuth °", "Capacity kW", "kWh/yr", "Status"}, rows); err != nil {
		return err
	}

	prod := res.Production
	c.section("Solar production")
	if err := c.table([]string{"Metric", "Value"}, [][]string{
		{"Total roof area", c.p.Sprintf("%.1f m²", prod.TotalAreaM2)},
		{"System capacity", c.p.Sprintf("%.1f kW", prod.TotalCapacity)},
		{"Annual production", c.p.Sprintf("%.1f kWh/yr", prod.TotalKWh)},
		{"Consumption estimate", c.p.Sprintf("%.0f kWh/yr", prod.ConsumptionKWh)},
		{"Score", fmt.Sprintf("%.1f %%", prod.Score)},
	}); err != nil {
		return err
	}

	tier := TierFor(prod.Score)
	fmt.Fprintf(c.w, "\n  %s\n", c.paint(tier.Label, tier.attrs...))

	for _, w := range res.Warnings {
		fmt.Fprintf(c.w, "  %s %s\n", c.paint("warning:", color.FgYellow), w)
	}
	for _, n := range res.Notes {
		fmt.Fprintf(c.w, "  note: %s\n", n)
	}
	return nil
}

func (c *Console) status(s string) string {
	switch s {
	case production.StatusOK, checks.StatusPass:
		return c.paint(s, color.FgGreen)
	case production.StatusFailed, checks.StatusFail:
		return c.paint(s, color.FgRed)
	case checks.StatusBlocked, checks.StatusWarning:
		return c.paint(s, color.FgYellow)
	}
	return s
}

// SunProfile renders the day length at the equinoxes and solstices.
func (c *Console) SunProfile(days []suncalc.ProfileDay) error {
	c.section("Sun profile (UTC)")
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		sunrise, sunset := "-", "-"
		if d.Polar == suncalc.PolarNone {
			sunrise = d.Sunrise.Format("15:04")
			sunset = d.Sunset.Format("15:04")
		}
		rows = append(rows, []string{
			d.Label,
			d.Date.Format(time.DateOnly),
			sunrise,
			sunset,
			formatDayLength(d.DayLength),
			strings.ReplaceAll(d.Polar, "_", " "),
		})
	}
	return c.table([]string{"Day", "Date", "Sunrise", "Sunset", "Day length", "Note"}, rows)
}

func formatDayLength(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dh %02dm", int(d.Hours()), int(d.Minutes())%60)
}

// ScanSummary renders one row per scanned file followed by the data
// coverage of the batch.
func (c *Console) ScanSummary(scan *pipeline.ScanResult) error {
	c.section("Scan: " + scan.Root)

	var withLocation, withFloor, withRoof, withWindow int
	rows := make([][]string, 0, len(scan.Results))
	for _, res := range scan.Results {
		md := res.Metadata
		if md.Latitude != nil && md.Longitude != nil {
			withLocation++
		}
		if md.FloorArea != nil {
			withFloor++
		}
		if md.RoofArea != nil {
			withRoof++
		}
		if md.WindowArea != nil {
			withWindow++
		}

		if !res.OK() {
			rows = append(rows, []string{res.ProjectName, res.File, "-", "-", "-", "-", c.paint("error", color.FgRed)})
			continue
		}
		prod := res.Production
		rows = append(rows, []string{
			res.ProjectName,
			res.File,
			fmt.Sprintf("%d", len(prod.Segments)),
			c.p.Sprintf("%.0f", prod.TotalKWh),
			fmt.Sprintf("%.1f", prod.Score),
			TierFor(prod.Score).Name,
			c.paint("ok", color.FgGreen),
		})
	}
	if err := c.table([]string{"Project", "File", "Segments", "kWh/yr", "Score %", "Tier", "Status"}, rows); err != nil {
		return err
	}

	total := len(scan.Results)
	c.section("Data coverage")
	if err := c.table([]string{"Field", "Files"}, [][]string{
		{"Location", fmt.Sprintf("%d/%d", withLocation, total)},
		{"Floor area", fmt.Sprintf("%d/%d", withFloor, total)},
		{"Roof area", fmt.Sprintf("%d/%d", withRoof, total)},
		{"Window area", fmt.Sprintf("%d/%d", withWindow, total)},
	}); err != nil {
		return err
	}

	for _, res := range scan.Results {
		if !res.OK() {
			fmt.Fprintf(c.w, "  %s %s: %s\n", c.paint("error", color.FgRed), res.File, res.Error)
		}
	}
	fmt.Fprintf(c.w, "\n  %d files, %d failed\n", total, scan.Failed)
	return nil
}

// Checks renders a check report.
func (c *Console) Checks(rep *checks.Report) error {
	c.section("Checks: " + rep.Project)
	var rows [][]string
	for _, run := range rep.Checks {
		for _, r := range run.Results {
			rows = append(rows, []string{
				run.Name,
				r.ElementName,
				c.status(r.CheckStatus),
				r.ActualValue,
				r.RequiredValue,
				r.Comment,
			})
		}
	}
	if err := c.table([]string{"Check", "Element", "Status", "Actual", "Required", "Comment"}, rows); err != nil {
		return err
	}

	verdict := c.paint("PASSED", color.FgGreen, color.Bold)
	if !rep.Passed {
		verdict = c.paint("NOT PASSED", color.FgRed, color.Bold)
	}
	fmt.Fprintf(c.w, "\n  %s  pass %d, fail %d, warning %d, blocked %d\n", verdict,
		rep.Counts[checks.StatusPass], rep.Counts[checks.StatusFail],
		rep.Counts[checks.StatusWarning], rep.Counts[checks.StatusBlocked])
	return nil
}

// Keys renders a key inventory and the alias suggestions derived from it.
func (c *Console) Keys(inventory []resolver.KeyUsage, suggestions []resolver.Strategy) error {
	c.section("Key inventory")
	rows := make([][]string, 0, len(inventory))
	for _, u := range inventory {
		rows = append(rows, []string{u.EntityType, string(u.Source), u.SetName, u.Key, fmt.Sprintf("%d", u.Count)})
	}
	if err := c.table([]string{"Entity", "Source", "Set", "Key", "Count"}, rows); err != nil {
		return err
	}

	if len(suggestions) == 0 {
		return nil
	}
	c.section("Area keys not covered by any alias chain")
	for _, s := range suggestions {
		fmt.Fprintf(c.w, "  - %s\n", s)
	}
	return nil
}
