// env.go - Environment variable configuration and validation for roofsolar
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "ROOFSOLAR_DEBUG", validateEnvBool},

		// Analysis tunables
		{"analysis.angletolerance", "ROOFSOLAR_ANGLE_TOLERANCE", validateEnvAngleTolerance},
		{"analysis.minsegmentarea", "ROOFSOLAR_MIN_SEGMENT_AREA", validateEnvNonNegative},
		{"analysis.panelefficiency", "ROOFSOLAR_PANEL_EFFICIENCY", validateEnvPanelEfficiency},
		{"analysis.consumptionperm2", "ROOFSOLAR_CONSUMPTION_PER_M2", validateEnvPositive},
		{"analysis.aliasfile", "ROOFSOLAR_ALIAS_FILE", nil},
		{"analysis.callapi", "ROOFSOLAR_CALL_API", validateEnvBool},

		// PVWatts estimator, NREL_API_KEY is accepted for compatibility with NREL tooling
		{"pvwatts.apikey", "ROOFSOLAR_PVWATTS_APIKEY", nil},
		{"pvwatts.apikey", "NREL_API_KEY", nil},
		{"pvwatts.baseurl", "ROOFSOLAR_PVWATTS_BASEURL", validateEnvURL},
		{"pvwatts.timeout", "ROOFSOLAR_PVWATTS_TIMEOUT", validateEnvDuration},
		{"pvwatts.ratelimit", "ROOFSOLAR_PVWATTS_RATELIMIT", validateEnvDuration},

		{"checks.leedthreshold", "ROOFSOLAR_LEED_THRESHOLD", validateEnvNonNegative},
		{"telemetry.dsn", "ROOFSOLAR_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()

	// Group variables per key so that a key with aliases is bound once,
	// in priority order.
	keyVars := make(map[string][]string)
	var keyOrder []string
	for _, b := range bindings {
		if _, ok := keyVars[b.ConfigKey]; !ok {
			keyOrder = append(keyOrder, b.ConfigKey)
		}
		keyVars[b.ConfigKey] = append(keyVars[b.ConfigKey], b.EnvVar)
	}

	var warnings []string
	for _, key := range keyOrder {
		args := append([]string{key}, keyVars[key]...)
		if err := viper.BindEnv(args...); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", key, err))
		}
	}

	for _, binding := range bindings {
		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func parseEnvFloat(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}
	return f, nil
}

func validateEnvAngleTolerance(value string) error {
	f, err := parseEnvFloat(value)
	if err != nil {
		return err
	}
	if f <= 0 || f > 90 {
		return fmt.Errorf("angle tolerance must be in (0, 90], got %g", f)
	}
	return nil
}

func validateEnvPanelEfficiency(value string) error {
	f, err := parseEnvFloat(value)
	if err != nil {
		return err
	}
	if f <= 0 || f > 1 {
		return fmt.Errorf("panel efficiency must be in (0, 1], got %g", f)
	}
	return nil
}

func validateEnvPositive(value string) error {
	f, err := parseEnvFloat(value)
	if err != nil {
		return err
	}
	if f <= 0 {
		return fmt.Errorf("value must be positive, got %g", f)
	}
	return nil
}

func validateEnvNonNegative(value string) error {
	f, err := parseEnvFloat(value)
	if err != nil {
		return err
	}
	if f < 0 {
		return fmt.Errorf("value must be non-negative, got %g", f)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("duration must be non-negative, got %s", d)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got '%s'", u.Scheme)
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
