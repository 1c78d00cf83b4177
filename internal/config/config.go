// Package config builds the process configuration once at startup. Sources,
// from lowest to highest precedence: built-in defaults, the YAML config
// file, a .env file, and the process environment. Components receive the
// resulting Config explicitly and never read the environment themselves.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "adcrew/internal/errors"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderEcho      = "echo"

	PolicyStrict  = "strict"
	PolicyLenient = "lenient"
)

type Config struct {
	Provider  string          `mapstructure:"provider"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Search    SearchConfig    `mapstructure:"search"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
}

type SearchConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	NumResults int           `mapstructure:"num_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
	// Mock replaces the live web search with a deterministic stand-in.
	Mock bool `mapstructure:"mock"`
}

type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type PipelineConfig struct {
	Policy               string        `mapstructure:"policy"`
	HumanTimeout         time.Duration `mapstructure:"human_timeout"`
	AllowEmptyHumanInput bool          `mapstructure:"allow_empty_human_input"`
	ToolRetries          int           `mapstructure:"tool_retries"`
	RetryBackoff         time.Duration `mapstructure:"retry_backoff"`
	RunDir               string        `mapstructure:"run_dir"`
	ActorsFile           string        `mapstructure:"actors_file"`
	TasksFile            string        `mapstructure:"tasks_file"`
}

// envBindings maps config keys to environment variables, first match wins.
var envBindings = map[string][]string{
	"provider":          {"ADCREW_PROVIDER"},
	"openai.api_key":    {"API_KEY", "OPENAI_API_KEY"},
	"openai.model":      {"OPENAI_MODEL_NAME"},
	"openai.base_url":   {"OPENAI_BASE_URL"},
	"anthropic.api_key": {"ANTHROPIC_API_KEY"},
	"anthropic.model":   {"ANTHROPIC_MODEL"},
	"search.api_key":    {"SERPER_API_KEY"},
	"cache.redis_addr":  {"ADCREW_REDIS_ADDR"},
	"pipeline.policy":   {"ADCREW_POLICY"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.timeout", 120*time.Second)
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("search.num_results", 5)
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("pipeline.policy", PolicyStrict)
	v.SetDefault("pipeline.retry_backoff", time.Second)
}

type LoadOptions struct {
	// ConfigFile is an explicit YAML file; when empty adcrew.yaml is looked
	// up in the working directory and is optional.
	ConfigFile string
	// EnvFile defaults to .env and is optional.
	EnvFile string
}

func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "reading config file "+opts.ConfigFile)
		}
	} else {
		v.SetConfigName("adcrew")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "reading adcrew.yaml")
			}
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := readDotEnv(envFile, opts.EnvFile != "")
	if err != nil {
		return nil, err
	}

	// .env values sit between the config file and the process environment.
	if err := v.MergeConfigMap(dotEnvSettings(dotenv)); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "merging env file "+envFile)
	}
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "binding "+key)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "decoding configuration")
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Pipeline.Policy = strings.ToLower(strings.TrimSpace(cfg.Pipeline.Policy))
	return cfg, nil
}

// readDotEnv loads KEY=VALUE pairs. A missing file is only an error when it
// was named explicitly.
func readDotEnv(path string, required bool) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "reading env file "+path)
	}
	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfiguration, err, "parsing env file "+path)
	}
	out := map[string]string{}
	for _, k := range ev.AllKeys() {
		out[strings.ToUpper(k)] = ev.GetString(k)
	}
	return out, nil
}

// dotEnvSettings nests the bound .env variables under their config keys.
func dotEnvSettings(dotenv map[string]string) map[string]any {
	settings := map[string]any{}
	for key, names := range envBindings {
		for _, n := range names {
			val := strings.TrimSpace(dotenv[n])
			if val == "" {
				continue
			}
			section, leaf, nested := strings.Cut(key, ".")
			if !nested {
				settings[key] = val
				break
			}
			m, _ := settings[section].(map[string]any)
			if m == nil {
				m = map[string]any{}
				settings[section] = m
			}
			m[leaf] = val
			break
		}
	}
	return settings
}

// Validate reports every missing credential or model identifier at once.
func (c *Config) Validate() error {
	var problems []string
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			problems = append(problems, "API_KEY (or OPENAI_API_KEY) is not set")
		}
		if c.OpenAI.Model == "" {
			problems = append(problems, "OPENAI_MODEL_NAME is not set")
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			problems = append(problems, "ANTHROPIC_API_KEY is not set")
		}
		if c.Anthropic.Model == "" {
			problems = append(problems, "anthropic model is not set")
		}
	case ProviderEcho:
	default:
		problems = append(problems, fmt.Sprintf("unknown provider %q", c.Provider))
	}
	if !c.Search.Mock && c.Search.APIKey == "" {
		problems = append(problems, "SERPER_API_KEY is not set")
	}
	switch c.Pipeline.Policy {
	case PolicyStrict, PolicyLenient:
	default:
		problems = append(problems, fmt.Sprintf("unknown failure policy %q", c.Pipeline.Policy))
	}
	if c.Pipeline.ToolRetries < 0 {
		problems = append(problems, "pipeline.tool_retries must not be negative")
	}
	if c.Pipeline.HumanTimeout < 0 {
		problems = append(problems, "pipeline.human_timeout must not be negative")
	}
	if len(problems) > 0 {
		return apperrors.New(apperrors.CodeConfiguration, strings.Join(problems, "; "))
	}
	return nil
}
