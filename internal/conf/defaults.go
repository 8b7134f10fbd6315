// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Analysis defaults shared with packages that need a value without a loaded config.
const (
	DefaultAngleTolerance           = 15.0
	DefaultMinSegmentArea           = 1.0
	DefaultPanelEfficiency          = 0.20
	DefaultConsumptionPerM2         = 150.0
	DefaultFallbackConsumption      = 50000.0
	DefaultCrossValidationTolerance = 20.0
	DefaultLEEDThreshold            = 50.0

	DefaultPVWattsURL = "https://developer.nrel.gov/api/pvwatts/v8.json"
	DefaultArrayType  = 1
	DefaultModuleType = 1
	DefaultLosses     = 14.0
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("log.enabled", true)
	viper.SetDefault("log.path", "logs")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.rotation", RotationDaily)
	viper.SetDefault("log.maxsize", 10*1024*1024)

	viper.SetDefault("analysis.angletolerance", DefaultAngleTolerance)
	viper.SetDefault("analysis.minsegmentarea", DefaultMinSegmentArea)
	viper.SetDefault("analysis.panelefficiency", DefaultPanelEfficiency)
	viper.SetDefault("analysis.consumptionperm2", DefaultConsumptionPerM2)
	viper.SetDefault("analysis.fallbackconsumption", DefaultFallbackConsumption)
	viper.SetDefault("analysis.crossvalidationtolerance", DefaultCrossValidationTolerance)
	viper.SetDefault("analysis.aliasfile", "")
	viper.SetDefault("analysis.applytruenorth", true)
	viper.SetDefault("analysis.callapi", true)

	viper.SetDefault("pvwatts.apikey", "")
	viper.SetDefault("pvwatts.baseurl", DefaultPVWattsURL)
	viper.SetDefault("pvwatts.timeout", 30*time.Second)
	viper.SetDefault("pvwatts.ratelimit", time.Second)
	viper.SetDefault("pvwatts.cachettl", 24*time.Hour)
	viper.SetDefault("pvwatts.arraytype", DefaultArrayType)
	viper.SetDefault("pvwatts.moduletype", DefaultModuleType)
	viper.SetDefault("pvwatts.losses", DefaultLosses)

	viper.SetDefault("checks.leedthreshold", DefaultLEEDThreshold)

	viper.SetDefault("output.format", "table")
	viper.SetDefault("output.dir", "")
	viper.SetDefault("output.color", true)

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")

	viper.SetDefault("metrics.textfile", "")
}
