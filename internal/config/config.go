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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Mirror    MirrorConfig    `yaml:"mirror" mapstructure:"mirror"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Workflow  WorkflowConfig  `yaml:"workflow" mapstructure:"workflow"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the durable Postgres store.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int    `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int    `yaml:"min_conns" mapstructure:"min_conns"`
}

// MirrorConfig configures the low-latency SQLite status mirror. An empty
// path disables mirroring.
type MirrorConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OpenAIConfig holds OpenAI API settings. The embedding model also serves
// the precedent index.
type OpenAIConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	Model          string `yaml:"model" mapstructure:"model"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
}

// LLMConfig configures the provider chain shared by every analysis stage.
type LLMConfig struct {
	// Providers is the fallback order; known values are "anthropic" and
	// "openai".
	Providers               []string `yaml:"providers" mapstructure:"providers"`
	RateLimitRPS            float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	MaxAttempts             int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs        int      `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs            int      `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	CircuitFailureThreshold int      `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int      `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// WorkflowConfig configures the analysis workflow.
type WorkflowConfig struct {
	// StageTimeoutSecs bounds each model and embedding call; 0 disables the
	// deadline.
	StageTimeoutSecs int  `yaml:"stage_timeout_secs" mapstructure:"stage_timeout_secs"`
	Parallel         bool `yaml:"parallel" mapstructure:"parallel"`
}

// ServerConfig configures the HTTP API.
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
	v.SetEnvPrefix("LEGAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("mirror.path", "legal-analyzer-status.db")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.providers", []string{"anthropic", "openai"})
	v.SetDefault("llm.rate_limit_rps", 2.0)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.initial_backoff_ms", 500)
	v.SetDefault("llm.max_backoff_ms", 30000)
	v.SetDefault("llm.circuit_failure_threshold", 5)
	v.SetDefault("llm.circuit_reset_secs", 30)
	v.SetDefault("workflow.stage_timeout_secs", 120)
	v.SetDefault("workflow.parallel", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
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

// Validate checks the fields required for the given command mode.
func (c *Config) Validate(mode string) error {
	var problems []string

	requireDB := func() {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	}
	requireProvider := func() {
		if len(c.LLM.Providers) == 0 {
			problems = append(problems, "llm.providers must name at least one provider")
			return
		}
		hasKey := false
		for _, p := range c.LLM.Providers {
			switch p {
			case "anthropic":
				if c.Anthropic.Key != "" {
					hasKey = true
				}
			case "openai":
				if c.OpenAI.Key != "" {
					hasKey = true
				}
			default:
				problems = append(problems, "llm.providers: unknown provider "+p)
			}
		}
		if !hasKey {
			problems = append(problems, "an API key for at least one configured provider is required")
		}
	}

	switch mode {
	case "migrate", "seed", "status":
		requireDB()
	case "analyze", "retry":
		requireDB()
		requireProvider()
	case "serve":
		requireDB()
		requireProvider()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
