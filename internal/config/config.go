package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/gema-admin-query/internal/access"
)

// Config holds runtime configuration values for the admin query service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	LogLevel          string
	DataFile          string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	OpenAITemperature float32
	OpenAITimeout     time.Duration
	QueryMaxLength    int
	QueryMaxRounds    int
	QueryDaysBack     int
	QueryDaysAhead    int
	QueryRateLimit    int
	Admins            []access.Scope
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables, an optional .env
// file and an optional config file holding the admin directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "GEMA Admin Query")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("data.file", "data.json")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.temperature", 0)
	v.SetDefault("openai.timeout", "30s")
	v.SetDefault("query.max_length", 500)
	v.SetDefault("query.max_rounds", 5)
	v.SetDefault("query.days_back", 7)
	v.SetDefault("query.days_ahead", 7)
	v.SetDefault("query.rate_limit", 20)

	if path := strings.TrimSpace(v.GetString("config.file")); path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	timeout, err := time.ParseDuration(v.GetString("openai.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid openai timeout: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		LogLevel:          strings.ToLower(v.GetString("log.level")),
		DataFile:          v.GetString("data.file"),
		OpenAIAPIKey:      v.GetString("openai.api_key"),
		OpenAIModel:       v.GetString("openai.model"),
		OpenAIBaseURL:     v.GetString("openai.base_url"),
		OpenAITemperature: float32(v.GetFloat64("openai.temperature")),
		OpenAITimeout:     timeout,
		QueryMaxLength:    v.GetInt("query.max_length"),
		QueryMaxRounds:    v.GetInt("query.max_rounds"),
		QueryDaysBack:     v.GetInt("query.days_back"),
		QueryDaysAhead:    v.GetInt("query.days_ahead"),
		QueryRateLimit:    v.GetInt("query.rate_limit"),
	}

	if err := v.UnmarshalKey("admins", &cfg.Admins); err != nil {
		return Config{}, fmt.Errorf("invalid admins list: %w", err)
	}
	if len(cfg.Admins) == 0 {
		cfg.Admins = access.DefaultScopes()
	}

	if cfg.OpenAITemperature < 0 || cfg.OpenAITemperature > 2 {
		return Config{}, fmt.Errorf("openai temperature must be between 0 and 2")
	}

	if cfg.QueryMaxLength <= 0 {
		cfg.QueryMaxLength = 500
	}

	if cfg.QueryMaxRounds <= 0 {
		cfg.QueryMaxRounds = 5
	}

	if cfg.QueryDaysBack < 0 || cfg.QueryDaysAhead < 0 {
		return Config{}, fmt.Errorf("query windows must not be negative")
	}

	if cfg.QueryRateLimit <= 0 {
		cfg.QueryRateLimit = 20
	}

	return cfg, nil
}
