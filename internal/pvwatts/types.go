// Package pvwatts provides a client for the NREL PVWatts v8 solar yield API
package pvwatts

import (
	"time"

	"github.com/tphakala/roofsolar/internal/conf"
)

// Config holds configuration for the PVWatts client
type Config struct {
	APIKey     string        `json:"api_key"`
	BaseURL    string        `json:"base_url"`
	Timeout    time.Duration `json:"timeout"`     // per-call timeout, a timed out call is a failed call
	CacheTTL   time.Duration `json:"cache_ttl"`   // lifetime of cached identical requests
	ArrayType  int           `json:"array_type"`  // 1 = fixed roof mount
	ModuleType int           `json:"module_type"` // 1 = premium
	Losses     float64       `json:"losses"`      // system losses in percent
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL:    conf.DefaultPVWattsURL,
		Timeout:    30 * time.Second,
		CacheTTL:   24 * time.Hour,
		ArrayType:  conf.DefaultArrayType,
		ModuleType: conf.DefaultModuleType,
		Losses:     conf.DefaultLosses,
	}
}

// ConfigFromSettings builds a client configuration from the pvwatts settings block.
func ConfigFromSettings(s *conf.PVWattsSettings) Config {
	return Config{
		APIKey:     s.APIKey,
		BaseURL:    s.BaseURL,
		Timeout:    s.Timeout,
		CacheTTL:   s.CacheTTL,
		ArrayType:  s.ArrayType,
		ModuleType: s.ModuleType,
		Losses:     s.Losses,
	}
}

// Estimate is the decoded subset of a PVWatts response
type Estimate struct {
	ACAnnual       float64   `json:"ac_annual"`       // kWh/yr
	SolradAnnual   float64   `json:"solrad_annual"`   // kWh/m²/day
	CapacityFactor float64   `json:"capacity_factor"` // percent
	ACMonthly      []float64 `json:"ac_monthly,omitempty"`
	Warnings       []string  `json:"warnings,omitempty"`
}

// Metrics represents PVWatts client performance metrics
type Metrics struct {
	APICalls      int64         `json:"api_calls"`
	CacheHits     int64         `json:"cache_hits"`
	CacheMisses   int64         `json:"cache_misses"`
	APIErrors     int64         `json:"api_errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
}
