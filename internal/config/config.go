// Package config loads heatgrid configuration from file and environment.
package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Stations StationsConfig `yaml:"stations" mapstructure:"stations"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig locates the analytical database file.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StationsConfig holds the fixed station→region mapping. Regions gives the
// compiled-in defaults; MappingFile, when set, points at a YAML file whose
// entries override or extend them without a rebuild.
type StationsConfig struct {
	Regions     map[string]string `yaml:"regions" mapstructure:"regions"`
	MappingFile string            `yaml:"mapping_file" mapstructure:"mapping_file"`
}

// IngestConfig configures raw feed ingestion.
type IngestConfig struct {
	TempDir        string  `yaml:"temp_dir" mapstructure:"temp_dir"`
	UserAgent      string  `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// ServerConfig configures the read-only retrieval API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("HEATGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "heatgrid.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("ingest.temp_dir", os.TempDir())
	v.SetDefault("ingest.user_agent", "heatgrid-cli")
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.requests_per_sec", 1.0)
	v.SetDefault("stations.regions", map[string]string{
		"IAD": "PJM",
		"BOS": "ISNE",
	})

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

// StationRegions resolves the effective station→region mapping: the
// configured defaults overlaid with the mapping file, when one is set.
// Viper lowercases map keys, so station IDs are normalized to upper case.
func (c *Config) StationRegions() (map[string]string, error) {
	out := make(map[string]string, len(c.Stations.Regions))
	for station, region := range c.Stations.Regions {
		out[strings.ToUpper(station)] = region
	}

	if c.Stations.MappingFile != "" {
		data, err := os.ReadFile(c.Stations.MappingFile)
		if err != nil {
			return nil, eris.Wrapf(err, "config: read mapping file %s", c.Stations.MappingFile)
		}
		var overrides map[string]string
		if err := yaml.Unmarshal(data, &overrides); err != nil {
			return nil, eris.Wrapf(err, "config: parse mapping file %s", c.Stations.MappingFile)
		}
		for station, region := range overrides {
			out[strings.ToUpper(station)] = region
		}
	}

	if len(out) == 0 {
		return nil, eris.New("config: station→region mapping is empty")
	}
	return out, nil
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
