package tuning

import (
	"io"
	"strings"

	"github.com/spf13/viper"

	"github.com/YuminosukeSato/rftune/pkg/errors"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. RFTUNE_SEARCH_FOLDS.
const EnvPrefix = "RFTUNE"

// NewViper returns a viper instance preloaded with DefaultConfig and bound
// to RFTUNE_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()
	v.SetDefault("search.folds", d.Search.Folds)
	v.SetDefault("search.scoring", d.Search.Scoring)
	v.SetDefault("search.n_jobs", d.Search.NJobs)
	v.SetDefault("search.verbose", d.Search.Verbose)
	v.SetDefault("elimination.folds", d.Elimination.Folds)
	v.SetDefault("elimination.scoring", d.Elimination.Scoring)
	v.SetDefault("elimination.step", d.Elimination.Step)
	v.SetDefault("elimination.min_features_to_select", d.Elimination.MinFeatures)
	v.SetDefault("elimination.n_jobs", d.Elimination.NJobs)
	v.SetDefault("elimination.verbose", d.Elimination.Verbose)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads a YAML, TOML or JSON config file. An empty path yields
// DefaultConfig with environment overrides applied.
func LoadConfig(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}
	return DecodeConfig(v)
}

// ReadConfig parses config text of the given type ("yaml", "toml", "json").
func ReadConfig(r io.Reader, configType string) (Config, error) {
	v := NewViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(r); err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	return DecodeConfig(v)
}

// DecodeConfig unmarshals v into a Config. A missing parameter grid falls
// back to DefaultParamGrid.
func DecodeConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if len(cfg.Search.ParamGrid) == 0 {
		cfg.Search.ParamGrid = DefaultParamGrid()
	} else if err := cfg.Search.ParamGrid.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
