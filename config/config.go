package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type BalancerConfig struct {
	HealthCheckInterval string `mapstructure:"health_check_interval"`
	MaxFailures         int    `mapstructure:"max_failures"`
}

type ProviderConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	APIKey            string  `mapstructure:"api_key"`
	Model             string  `mapstructure:"model"`
	BaseURL           string  `mapstructure:"base_url"`
	MaxTokens         int     `mapstructure:"max_tokens"`
	Temperature       float64 `mapstructure:"temperature"`
	RequestTimeout    string  `mapstructure:"request_timeout"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`
}

type ProvidersConfig struct {
	OpenAI      ProviderConfig `mapstructure:"openai"`
	HuggingFace ProviderConfig `mapstructure:"huggingface"`
}

type GitHubConfig struct {
	Token   string `mapstructure:"token"`
	APIBase string `mapstructure:"api_base"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Balancer  BalancerConfig  `mapstructure:"balancer"`
	Providers ProvidersConfig `mapstructure:"providers"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.allowed_origins", []string{"*"})
	viper.SetDefault("balancer.health_check_interval", "30s")
	viper.SetDefault("balancer.max_failures", 3)
	viper.SetDefault("providers.openai.enabled", true)
	viper.SetDefault("providers.openai.model", "gpt-4o-mini")
	viper.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("providers.openai.max_tokens", 1500)
	viper.SetDefault("providers.openai.temperature", 0.3)
	viper.SetDefault("providers.openai.request_timeout", "120s")
	viper.SetDefault("providers.openai.requests_per_minute", 60)
	viper.SetDefault("providers.huggingface.enabled", false)
	viper.SetDefault("providers.huggingface.model", "meta-llama/Meta-Llama-3-8B-Instruct")
	viper.SetDefault("providers.huggingface.base_url", "https://api-inference.huggingface.co")
	viper.SetDefault("providers.huggingface.max_tokens", 512)
	viper.SetDefault("providers.huggingface.temperature", 0.2)
	viper.SetDefault("providers.huggingface.request_timeout", "120s")
	viper.SetDefault("providers.huggingface.requests_per_minute", 15)
	viper.SetDefault("github.api_base", "https://api.github.com")
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Error("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Balancer,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BalancerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BalancerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.HealthCheckInterval,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&bc.MaxFailures,
						validation.Required,
						validation.Min(1),
					),
				)
			}),
		),
		validation.Field(&c.Providers,
			validation.By(func(value interface{}) error {
				pc, ok := value.(ProvidersConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ProvidersConfig")
				}
				if err := validateProviderConfig(pc.OpenAI); err != nil {
					return err
				}
				return validateProviderConfig(pc.HuggingFace)
			}),
		),
		validation.Field(&c.GitHub,
			validation.By(func(value interface{}) error {
				gc, ok := value.(GitHubConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a GitHubConfig")
				}
				return validation.ValidateStruct(&gc,
					validation.Field(&gc.APIBase,
						validation.Required,
						validation.By(validateServerURL),
					),
				)
			}),
		),
	)
}

// IsGitHubConfigured reports whether a GitHub token is present.
func (c *Config) IsGitHubConfigured() bool {
	return c.GitHub.Token != ""
}

// IsOpenAIConfigured reports whether the OpenAI provider can be registered.
func (c *Config) IsOpenAIConfigured() bool {
	return c.Providers.OpenAI.Enabled && c.Providers.OpenAI.APIKey != ""
}

// IsHuggingFaceConfigured reports whether the Hugging Face provider can be registered.
func (c *Config) IsHuggingFaceConfigured() bool {
	hf := c.Providers.HuggingFace
	return hf.Enabled && hf.APIKey != "" && hf.Model != ""
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 30s, 5m, 1h)")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return validation.NewError("validation_empty_url", "URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateProviderConfig(pc ProviderConfig) error {
	if !pc.Enabled {
		return nil
	}

	if pc.Model == "" {
		return validation.NewError("validation_empty_model", "provider model cannot be empty")
	}

	if err := validateServerURL(pc.BaseURL); err != nil {
		return err
	}

	if err := validateDuration(pc.RequestTimeout); err != nil {
		return err
	}

	if pc.MaxTokens < 1 {
		return validation.NewError("validation_invalid_max_tokens", "max_tokens must be at least 1")
	}

	if pc.RequestsPerMinute < 1 {
		return validation.NewError("validation_invalid_rpm", "requests_per_minute must be at least 1")
	}

	return nil
}
