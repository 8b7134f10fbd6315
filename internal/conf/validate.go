// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"slices"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, err := range []error{
		validateAnalysisSettings(&settings.Analysis),
		validatePVWattsSettings(&settings.PVWatts),
		validateChecksSettings(&settings.Checks),
		validateOutputSettings(&settings.Output),
		validateLogSettings(&settings.Log),
	} {
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateAnalysisSettings(a *AnalysisSettings) error {
	if a.AngleTolerance <= 0 || a.AngleTolerance > 90 {
		return fmt.Errorf("analysis.angletolerance must be in (0, 90], got %g", a.AngleTolerance)
	}
	if a.MinSegmentArea < 0 {
		return fmt.Errorf("analysis.minsegmentarea must be non-negative, got %g", a.MinSegmentArea)
	}
	if a.PanelEfficiency <= 0 || a.PanelEfficiency > 1 {
		return fmt.Errorf("analysis.panelefficiency must be in (0, 1], got %g", a.PanelEfficiency)
	}
	if a.ConsumptionPerM2 <= 0 {
		return fmt.Errorf("analysis.consumptionperm2 must be positive, got %g", a.ConsumptionPerM2)
	}
	if a.FallbackConsumption <= 0 {
		return fmt.Errorf("analysis.fallbackconsumption must be positive, got %g", a.FallbackConsumption)
	}
	if a.CrossValidationTolerance < 0 {
		return fmt.Errorf("analysis.crossvalidationtolerance must be non-negative, got %g", a.CrossValidationTolerance)
	}
	return nil
}

func validatePVWattsSettings(p *PVWattsSettings) error {
	u, err := url.Parse(p.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("pvwatts.baseurl must be an http(s) URL, got '%s'", p.BaseURL)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("pvwatts.timeout must be positive, got %s", p.Timeout)
	}
	if p.RateLimit < 0 {
		return fmt.Errorf("pvwatts.ratelimit must be non-negative, got %s", p.RateLimit)
	}
	if p.ArrayType < 0 || p.ArrayType > 4 {
		return fmt.Errorf("pvwatts.arraytype must be between 0 and 4, got %d", p.ArrayType)
	}
	if p.ModuleType < 0 || p.ModuleType > 2 {
		return fmt.Errorf("pvwatts.moduletype must be between 0 and 2, got %d", p.ModuleType)
	}
	if p.Losses < -5 || p.Losses > 99 {
		return fmt.Errorf("pvwatts.losses must be between -5 and 99, got %g", p.Losses)
	}
	return nil
}

func validateChecksSettings(c *ChecksSettings) error {
	if c.LEEDThreshold < 0 {
		return fmt.Errorf("checks.leedthreshold must be non-negative, got %g", c.LEEDThreshold)
	}
	return nil
}

func validateOutputSettings(o *OutputSettings) error {
	valid := []string{"table", "json", "csv"}
	if !slices.Contains(valid, o.Format) {
		return fmt.Errorf("output.format must be one of %v, got '%s'", valid, o.Format)
	}
	return nil
}

func validateLogSettings(l *LogConfig) error {
	switch l.Rotation {
	case RotationDaily, RotationWeekly, RotationSize:
	default:
		return fmt.Errorf("log.rotation must be daily, weekly or size, got '%s'", l.Rotation)
	}
	if l.Rotation == RotationSize && l.MaxSize <= 0 {
		return fmt.Errorf("log.maxsize must be positive for size rotation, got %d", l.MaxSize)
	}
	return nil
}
