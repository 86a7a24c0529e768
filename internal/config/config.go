package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SATPREP"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env      string `mapstructure:"env"`       // local, dev, production
	LogLevel string `mapstructure:"log_level"` // debug, info, warn, error; empty keeps the env default
	UserID   string `mapstructure:"user_id"`   // learner id used for history and leaderboards
	DataDir  string `mapstructure:"data_dir"`  // local key-value slots live here
	DBPath   string `mapstructure:"db_path"`   // sqlite history database

	Session   Session   `mapstructure:"session"`
	Questions Questions `mapstructure:"questions"`
	Redis     Redis     `mapstructure:"redis"`
	LLM       LLM       `mapstructure:"llm"`
	API       API       `mapstructure:"api"`
}

// Session configures the practice session engine and its resumable slot.
type Session struct {
	SlotKey      string        `mapstructure:"slot_key"`      // key of the single resumable session slot
	ActivityKey  string        `mapstructure:"activity_key"`  // key of the recent activity dates slot
	PollInterval time.Duration `mapstructure:"poll_interval"` // resumable slot reconcile interval
	Feedback     string        `mapstructure:"feedback"`      // immediate or deferred
	Count        int           `mapstructure:"count"`         // questions per practice session
	MockCount    int           `mapstructure:"mock_count"`    // questions per mock test
	TimeGoal     time.Duration `mapstructure:"time_goal"`     // zero means untimed
	MockTimeGoal time.Duration `mapstructure:"mock_time_goal"`
}

// Questions locates the question bank.
type Questions struct {
	Path string `mapstructure:"path"` // empty uses the embedded bank
}

// Redis configures the leaderboard backend.
type Redis struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// Resync is the cron schedule on which serve rebuilds the boards from
	// history totals. Empty disables it.
	Resync string `mapstructure:"resync"`
}

// LLM configures the study coach provider.
type LLM struct {
	Provider   string        `mapstructure:"provider"` // anthropic, openai, gemini, openrouter, mock
	Timeout    time.Duration `mapstructure:"timeout"`
	Anthropic  Provider      `mapstructure:"anthropic"`
	OpenAI     Provider      `mapstructure:"openai"`
	Gemini     Provider      `mapstructure:"gemini"`
	OpenRouter Provider      `mapstructure:"openrouter"`
	Retry      Retry         `mapstructure:"retry"`
}

// Provider holds one provider's credentials.
type Provider struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// Retry configures retries of transient provider failures.
type Retry struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// API configures the dashboard HTTP server.
type API struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from an optional .env file, an optional config
// file and SATPREP_ environment variables. An empty path searches ./config
// and $XDG_CONFIG_HOME/satprep for config.yaml.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		if dir, err := configHome(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "satprep"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Standard provider key names are honored as well.
	_ = v.BindEnv("llm.anthropic.api_key", "SATPREP_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("llm.openai.api_key", "SATPREP_LLM_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.gemini.api_key", "SATPREP_LLM_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("llm.openrouter.api_key", "SATPREP_LLM_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("log_level", "warn")
	v.SetDefault("user_id", defaultUser())
	v.SetDefault("data_dir", "")
	v.SetDefault("db_path", "")

	v.SetDefault("session.slot_key", "current-session")
	v.SetDefault("session.activity_key", "activity-dates")
	v.SetDefault("session.poll_interval", "2s")
	v.SetDefault("session.feedback", "immediate")
	v.SetDefault("session.count", 10)
	v.SetDefault("session.mock_count", 20)
	v.SetDefault("session.time_goal", "0s")
	v.SetDefault("session.mock_time_goal", "25m")

	v.SetDefault("questions.path", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.resync", "@every 1h")

	v.SetDefault("llm.provider", "mock")
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.anthropic.model", "claude-haiku")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.gemini.model", "gemini-flash")
	v.SetDefault("llm.openrouter.model", "google/gemini-2.0-flash-exp")
	v.SetDefault("llm.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.retry.max_attempts", 3)
	v.SetDefault("llm.retry.initial_wait", "1s")
	v.SetDefault("llm.retry.max_wait", "10s")
	v.SetDefault("llm.retry.multiplier", 2.0)

	v.SetDefault("api.addr", "127.0.0.1:8080")
}

// Validate checks values that would otherwise fail deep inside a session.
func (c *Config) Validate() error {
	switch c.Session.Feedback {
	case "immediate", "deferred":
	default:
		return fmt.Errorf("%w: session.feedback %q must be immediate or deferred", ErrInvalidConfig, c.Session.Feedback)
	}
	if c.Session.PollInterval <= 0 {
		return fmt.Errorf("%w: session.poll_interval must be positive", ErrInvalidConfig)
	}
	if c.Session.Count <= 0 || c.Session.MockCount <= 0 {
		return fmt.Errorf("%w: session question counts must be positive", ErrInvalidConfig)
	}
	if c.Session.TimeGoal < 0 || c.Session.MockTimeGoal < 0 {
		return fmt.Errorf("%w: time goals must not be negative", ErrInvalidConfig)
	}
	if c.Session.SlotKey == "" {
		return fmt.Errorf("%w: session.slot_key is required", ErrInvalidConfig)
	}
	if c.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidConfig)
	}
	return nil
}

// resolvePaths fills data_dir and db_path from XDG_DATA_HOME when unset:
// $XDG_DATA_HOME/satprep, falling back to ~/.local/share/satprep.
func (c *Config) resolvePaths() error {
	if c.DataDir == "" {
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolve home dir: %w", err)
			}
			dataHome = filepath.Join(home, ".local", "share")
		}
		c.DataDir = filepath.Join(dataHome, "satprep")
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "satprep.db")
	}
	return nil
}

func configHome() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config"), nil
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}
