package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Bot        BotConfig        `mapstructure:"bot"`
	Import     ImportConfig     `mapstructure:"import"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Mail       MailConfig       `mapstructure:"mail"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	CORS       CORSConfig       `mapstructure:"cors"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig carries the statically configured system API keys. These are
// accepted alongside tenant secret keys stored in widget_config.
type AuthConfig struct {
	APIKeys []string `mapstructure:"api_keys"`
}

type BotConfig struct {
	DefaultProvider string         `mapstructure:"default_provider"`
	Botpress        BotpressConfig `mapstructure:"botpress"`
	Ollama          OllamaConfig   `mapstructure:"ollama"`
	OpenAI          OpenAIConfig   `mapstructure:"openai"`
}

type BotpressConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	BotID   string        `mapstructure:"bot_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type OllamaConfig struct {
	Host    string        `mapstructure:"host"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ImportConfig configures the two spreadsheet import pipelines. Each family
// owns its inbox folder and scheduler interval.
type ImportConfig struct {
	ActsFolder         string `mapstructure:"acts_folder"`
	UpdatesFolder      string `mapstructure:"updates_folder"`
	ActsIntervalMin    int    `mapstructure:"acts_interval_minutes"`
	UpdatesIntervalMin int    `mapstructure:"updates_interval_minutes"`
	SchedulerEnabled   bool   `mapstructure:"scheduler_enabled"`
}

type ClassifierConfig struct {
	MinConfidence float64 `mapstructure:"min_confidence"`
}

type MailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	From         string `mapstructure:"from"`
	LeadsTo      string `mapstructure:"leads_to"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// API keys arrive comma-separated from the environment
	if raw := v.GetString("auth.api_keys_csv"); raw != "" {
		cfg.Auth.APIKeys = splitCSV(raw)
	}
	if raw := v.GetString("cors.allowed_origins_csv"); raw != "" {
		cfg.CORS.AllowedOrigins = splitCSV(raw)
	}

	return &cfg, nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "0s") // SSE streams must not be cut off
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "compliance")
	v.SetDefault("database.database", "compliance_chat")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Bot providers
	v.SetDefault("bot.default_provider", "botpress")
	v.SetDefault("bot.botpress.base_url", "http://localhost:3000")
	v.SetDefault("bot.botpress.timeout", "10s")
	v.SetDefault("bot.ollama.host", "http://localhost:11434")
	v.SetDefault("bot.ollama.model", "llama3")
	v.SetDefault("bot.ollama.timeout", "10s")
	v.SetDefault("bot.openai.base_url", "https://api.openai.com")
	v.SetDefault("bot.openai.model", "gpt-4o-mini")
	v.SetDefault("bot.openai.timeout", "10s")

	// Import pipelines
	v.SetDefault("import.acts_folder", "imports/acts")
	v.SetDefault("import.updates_folder", "imports/monthly_updates")
	v.SetDefault("import.acts_interval_minutes", 5)
	v.SetDefault("import.updates_interval_minutes", 5)
	v.SetDefault("import.scheduler_enabled", true)

	// Classifier
	v.SetDefault("classifier.min_confidence", 0.7)

	// Mail
	v.SetDefault("mail.smtp_port", 587)

	// Logging
	v.SetDefault("logging.level", "info")
}

func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.host", "POSTGRES_HOST")
	v.BindEnv("database.port", "POSTGRES_PORT")
	v.BindEnv("database.user", "POSTGRES_USER")
	v.BindEnv("database.password", "POSTGRES_PASSWORD")
	v.BindEnv("database.database", "POSTGRES_DB")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth
	v.BindEnv("auth.api_keys_csv", "API_KEYS")

	// Bot providers
	v.BindEnv("bot.default_provider", "BOT_DEFAULT_PROVIDER")
	v.BindEnv("bot.botpress.base_url", "BOTPRESS_BASE_URL")
	v.BindEnv("bot.botpress.bot_id", "BOTPRESS_BOT_ID")
	v.BindEnv("bot.ollama.host", "OLLAMA_HOST")
	v.BindEnv("bot.ollama.model", "OLLAMA_MODEL")
	v.BindEnv("bot.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("bot.openai.model", "OPENAI_MODEL")

	// Imports
	v.BindEnv("import.acts_folder", "IMPORT_ACTS_FOLDER")
	v.BindEnv("import.updates_folder", "IMPORT_UPDATES_FOLDER")

	// Mail
	v.BindEnv("mail.smtp_host", "SMTP_HOST")
	v.BindEnv("mail.smtp_port", "SMTP_PORT")
	v.BindEnv("mail.smtp_user", "SMTP_USER")
	v.BindEnv("mail.smtp_password", "SMTP_PASSWORD")
	v.BindEnv("mail.from", "MAIL_FROM")
	v.BindEnv("mail.leads_to", "LEADS_NOTIFY_TO")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.file", "LOG_FILE")

	// CORS
	v.BindEnv("cors.allowed_origins_csv", "CORS_ALLOWED_ORIGINS")
}
