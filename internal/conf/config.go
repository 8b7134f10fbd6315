// config.go: settings struct for roofsolar and the functions that load it.
package conf

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/tphakala/roofsolar/internal/errors"
)

//go:embed config.yaml
var configFiles embed.FS

// RotationType defines the type of log rotation
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogConfig defines the configuration for service log files
type LogConfig struct {
	Enabled  bool         // true to enable file logging
	Path     string       // directory for service log files
	Level    string       // debug, info, warn, error
	Rotation RotationType // type of log rotation
	MaxSize  int64        // max size in bytes for RotationSize
}

// AnalysisSettings contains the segmentation and scoring tunables.
type AnalysisSettings struct {
	AngleTolerance           float64 // max normal deviation within a cluster, degrees
	MinSegmentArea           float64 // clusters below this area in m² are dropped
	PanelEfficiency          float64 // kW of capacity per m² of roof
	ConsumptionPerM2         float64 // consumption benchmark, kWh/m²/yr
	FallbackConsumption      float64 // kWh/yr used when floor area is unknown
	CrossValidationTolerance float64 // percent difference that triggers a roof area warning
	AliasFile                string  // optional path to a key alias file, embedded default otherwise
	ApplyTrueNorth           bool    // rotate segment azimuths by the model true north
	CallAPI                  bool    // false runs segmentation only
}

// PVWattsSettings contains settings for the NREL PVWatts estimator.
type PVWattsSettings struct {
	APIKey     string        // NREL developer API key
	BaseURL    string        // PVWatts v8 endpoint
	Timeout    time.Duration // per-call timeout
	RateLimit  time.Duration // minimum delay between successive calls
	CacheTTL   time.Duration // lifetime of cached identical requests
	ArrayType  int           // 1 = fixed roof mount
	ModuleType int           // 1 = premium
	Losses     float64       // system losses in percent
}

// ChecksSettings contains thresholds for the compliance checks.
type ChecksSettings struct {
	LEEDThreshold float64 // minimum coverage score in percent for a pass
}

// OutputSettings controls report rendering and export.
type OutputSettings struct {
	Format string // table, json or csv
	Dir    string // export directory, empty for stdout only
	Color  bool   // colourize console output
}

// TelemetrySettings controls optional error reporting.
type TelemetrySettings struct {
	Enabled bool
	DSN     string
}

// MetricsSettings controls metrics export.
type MetricsSettings struct {
	TextFile string // write Prometheus text format here on exit
}

// Settings contains all configuration options for roofsolar.
type Settings struct {
	Debug bool // true to enable debug mode

	Log       LogConfig
	Analysis  AnalysisSettings
	PVWatts   PVWattsSettings
	Checks    ChecksSettings
	Output    OutputSettings
	Telemetry TelemetrySettings
	Metrics   MetricsSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	once             sync.Once
	configFileFlag   string
)

// SetConfigFile makes Load read the given file instead of searching the
// default config paths.
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFileFlag = path
}

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, environment bindings and reads the config file.
// When no config file exists the embedded default is used.
func initViper() error {
	viper.SetConfigType("yaml")

	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		// Bad environment values are reported but do not stop loading,
		// ValidateSettings catches anything that matters.
		log.Printf("Warning: %v", err)
	}

	if configFileFlag != "" {
		viper.SetConfigFile(configFileFlag)
		if err := viper.ReadInConfig(); err != nil {
			return errors.New(fmt.Errorf("error reading config file %s: %w", configFileFlag, err)).
				Category(errors.CategoryConfiguration).
				FileContext(configFileFlag).
				Build()
		}
		return nil
	}

	viper.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return viper.ReadConfig(bytes.NewReader(getDefaultConfig()))
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() []byte {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return data
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}
