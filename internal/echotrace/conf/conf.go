// Package conf loads application configuration from defaults, an optional
// config file and environment variables.
package conf

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/Mymoliy/echotrace/internal/errors"
	"github.com/Mymoliy/echotrace/internal/segment"
)

const envPrefix = "ECHOTRACE"

type Config struct {
	HTTPAddr    string         `mapstructure:"http_addr" json:"http_addr"`
	ArchivePath string         `mapstructure:"archive_path" json:"archive_path"`
	RosterPath  string         `mapstructure:"roster_path" json:"roster_path"`
	LogLevel    string         `mapstructure:"log_level" json:"log_level"`
	Analyzer    AnalyzerConfig `mapstructure:"analyzer" json:"analyzer"`
}

// GetHTTPAddr reports the listen address for the HTTP service.
func (c *Config) GetHTTPAddr() string {
	return c.HTTPAddr
}

// AnalyzerConfig tunes word frequency analysis.
type AnalyzerConfig struct {
	TopN      int      `mapstructure:"top_n" json:"top_n"`
	MinCount  int      `mapstructure:"min_count" json:"min_count"`
	MinLength int      `mapstructure:"min_length" json:"min_length"`
	Stopwords []string `mapstructure:"stopwords" json:"stopwords"`
}

// ToOptions converts the analyzer config into runtime analysis options.
// Zero or missing values keep the analyzer defaults.
func (c *AnalyzerConfig) ToOptions() segment.Options {
	opts := segment.Options{Mode: segment.ModeWord}

	if c == nil {
		return opts
	}

	if c.TopN > 0 {
		opts.TopN = c.TopN
	}
	if c.MinCount > 0 {
		opts.MinCount = c.MinCount
	}
	if c.MinLength > 0 {
		opts.MinLength = c.MinLength
	}

	return opts
}

// Load merges defaults, a config file and ECHOTRACE_* environment variables
// (dots become underscores: analyzer.top_n is ECHOTRACE_ANALYZER_TOP_N).
// When file is empty an echotrace.yaml in the working directory is used if
// present; a file named explicitly must exist.
func Load(file string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_addr", "127.0.0.1:5030")
	v.SetDefault("archive_path", "archive.db")
	v.SetDefault("roster_path", "roster.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("analyzer.top_n", segment.DefaultTopN)
	v.SetDefault("analyzer.min_count", 1)
	v.SetDefault("analyzer.min_length", 2)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.CodeInvalidArg, "read config "+file, err)
		}
	} else {
		v.SetConfigName("echotrace")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrap(errors.CodeInvalidArg, "read config", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.CodeInvalidArg, "parse config", err)
	}
	return &cfg, nil
}
