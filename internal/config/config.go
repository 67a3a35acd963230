// Package config loads application configuration and sets up logging.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Schedule ScheduleConfig `yaml:"schedule" mapstructure:"schedule"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Geo      GeoConfig      `yaml:"geo" mapstructure:"geo"`
	Telegram TelegramConfig `yaml:"telegram" mapstructure:"telegram"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SourcesConfig locates the two scraped tables.
type SourcesConfig struct {
	CasesURL             string `yaml:"cases_url" mapstructure:"cases_url"`
	CasesTableIndex      int    `yaml:"cases_table_index" mapstructure:"cases_table_index"`
	PopulationURL        string `yaml:"population_url" mapstructure:"population_url"`
	PopulationTableIndex int    `yaml:"population_table_index" mapstructure:"population_table_index"`
	PopulationColumn     string `yaml:"population_column" mapstructure:"population_column"`
}

// HTTPConfig configures outbound page fetches.
type HTTPConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// Timeout returns the per-request timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// OutputConfig configures the export directory.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ScheduleConfig configures periodic refreshes.
type ScheduleConfig struct {
	Cron string `yaml:"cron" mapstructure:"cron"`
}

// ServerConfig configures the dashboard API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// GeoConfig locates the district boundaries for the choropleth.
type GeoConfig struct {
	BoundariesURL string `yaml:"boundaries_url" mapstructure:"boundaries_url"`
	FeatureKey    string `yaml:"feature_key" mapstructure:"feature_key"`
}

// TelegramConfig configures the bot.
type TelegramConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COVID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sources.cases_url", "https://www.berlin.de/lageso/gesundheit/infektionsepidemiologie-infektionsschutz/corona/tabelle-bezirke-gesamtuebersicht/")
	v.SetDefault("sources.cases_table_index", 0)
	v.SetDefault("sources.population_url", "https://en.wikipedia.org/wiki/Demographics_of_Berlin")
	v.SetDefault("sources.population_table_index", 4)
	v.SetDefault("sources.population_column", "Population 2010")
	v.SetDefault("http.timeout_secs", 30)
	v.SetDefault("http.user_agent", "berlin-covid/1.0")
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("output.dir", "data")
	v.SetDefault("schedule.cron", "0 6 * * *")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("geo.boundaries_url", "")
	v.SetDefault("geo.feature_key", "Gemeinde_name")
	v.SetDefault("telegram.token", "")
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

// Validate checks the settings a command needs. Mode is one of "scrape",
// "schedule", "serve" or "bot".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "scrape", "schedule":
		if c.Sources.CasesTableIndex < 0 || c.Sources.PopulationTableIndex < 0 {
			problems = append(problems, "sources table indexes must not be negative")
		}
		if c.HTTP.TimeoutSecs <= 0 {
			problems = append(problems, "http.timeout_secs must be positive")
		}
		if c.HTTP.MaxRetries < 0 {
			problems = append(problems, "http.max_retries must not be negative")
		}
		if c.Output.Dir == "" {
			problems = append(problems, "output.dir is required")
		}
		if mode == "schedule" {
			if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
				problems = append(problems, "schedule.cron is invalid: "+err.Error())
			}
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Output.Dir == "" {
			problems = append(problems, "output.dir is required")
		}
	case "bot":
		if c.Telegram.Token == "" {
			problems = append(problems, "telegram.token is required")
		}
		if c.Output.Dir == "" {
			problems = append(problems, "output.dir is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
