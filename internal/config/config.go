package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Inputs   InputsConfig   `yaml:"inputs" mapstructure:"inputs"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// InputsConfig locates the input datasets.
type InputsConfig struct {
	Schools    string `yaml:"schools" mapstructure:"schools"`       // XLSX school listing
	Regions    string `yaml:"regions" mapstructure:"regions"`       // mukim boundary shapefile
	Kampongs   string `yaml:"kampongs" mapstructure:"kampongs"`     // kampong boundary shapefile
	StudyArea  string `yaml:"study_area" mapstructure:"study_area"` // study-area outline shapefile
	Population string `yaml:"population" mapstructure:"population"` // population CSV
	IDField    string `yaml:"id_field" mapstructure:"id_field"`     // region id attribute
	NameField  string `yaml:"name_field" mapstructure:"name_field"` // region name attribute
}

// AnalysisConfig holds the statistical parameters.
type AnalysisConfig struct {
	Alpha              float64 `yaml:"alpha" mapstructure:"alpha"`
	Assumption         string  `yaml:"assumption" mapstructure:"assumption"`
	CellKM             float64 `yaml:"cell_km" mapstructure:"cell_km"`
	ZeroNeighborPolicy string  `yaml:"zero_neighbor_policy" mapstructure:"zero_neighbor_policy"`
	TwoTailed          bool    `yaml:"two_tailed" mapstructure:"two_tailed"`
}

// StoreConfig configures the results store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	Path        string `yaml:"path" mapstructure:"path"`     // sqlite file
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OutputConfig configures result table writing.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SPATIAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("inputs.id_field", "mukim_id")
	v.SetDefault("inputs.name_field", "mukim")
	v.SetDefault("analysis.alpha", 0.05)
	v.SetDefault("analysis.assumption", "randomization")
	v.SetDefault("analysis.cell_km", 1.0)
	v.SetDefault("analysis.zero_neighbor_policy", "zero")
	v.SetDefault("analysis.two_tailed", false)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "spatial.db")
	v.SetDefault("output.dir", "out")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
