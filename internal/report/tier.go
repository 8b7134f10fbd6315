// Package report renders analysis results for the console and exports them
// as JSON and CSV.
package report

import "github.com/fatih/color"

// Tier is a renewable coverage band.
type Tier struct {
	Name  string  `json:"name"`
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	attrs []color.Attribute
}

// Coverage tiers, highest first.
var (
	TierNetZero  = Tier{Name: "net-zero", Label: "Net-zero energy achieved", Min: 100, attrs: []color.Attribute{color.FgGreen, color.Bold}}
	TierStrong   = Tier{Name: "strong", Label: "Over 50% renewable coverage, strong LEED contribution", Min: 50, attrs: []color.Attribute{color.FgGreen}}
	TierModerate = Tier{Name: "moderate", Label: "Moderate renewable contribution", Min: 10, attrs: []color.Attribute{color.FgYellow}}
	TierLow      = Tier{Name: "low", Label: "Low renewable contribution, consider design changes", Min: 0, attrs: []color.Attribute{color.FgRed}}
)

var tiers = []Tier{TierNetZero, TierStrong, TierModerate, TierLow}

// TierFor returns the coverage tier of a score in percent.
func TierFor(score float64) Tier {
	for _, t := range tiers {
		if score >= t.Min {
			return t
		}
	}
	return TierLow
}
