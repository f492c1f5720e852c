package examprep

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by the CLI and the web server
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	QuestionCount     int
	TimeBudget        time.Duration
	GenerationTimeout time.Duration
	DBPath            string
	Port              string
	SessionSecret     string
	LogDir            string
	PlayerIdleTimeout time.Duration
}

// LoadConfig reads configuration from the environment after loading the given
// .env files (".env" when none are named). A missing .env file is not an
// error, and neither is a missing API key: generation then serves fallback
// content.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		VerboseLog("No .env file loaded, using environment variables: %v", err)
	}

	cfg := &Config{
		APIKey:        os.Getenv("OPENAI_API_KEY"),
		BaseURL:       os.Getenv("OPENAI_BASE_URL"),
		Model:         getEnv("EXAMPREP_MODEL", DefaultModel),
		DBPath:        getEnv("DB_PATH", "./examprep.db"),
		Port:          getEnv("PORT", "8180"),
		SessionSecret: getEnv("SESSION_SECRET", "change-me-in-production"),
		LogDir:        os.Getenv("GENERATION_LOG_DIR"),
	}

	var err error
	if cfg.QuestionCount, err = getEnvInt("QUIZ_QUESTION_COUNT", DefaultQuestionCount); err != nil {
		return nil, err
	}
	if cfg.QuestionCount < 1 {
		return nil, fmt.Errorf("QUIZ_QUESTION_COUNT must be positive, got %d", cfg.QuestionCount)
	}
	if cfg.TimeBudget, err = getEnvDuration("QUIZ_TIME_BUDGET", DefaultTimeBudget); err != nil {
		return nil, err
	}
	if cfg.TimeBudget < time.Second {
		return nil, fmt.Errorf("QUIZ_TIME_BUDGET must be at least one second, got %s", cfg.TimeBudget)
	}
	if cfg.GenerationTimeout, err = getEnvDuration("GENERATION_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}
	if cfg.PlayerIdleTimeout, err = getEnvDuration("PLAYER_IDLE_TIMEOUT", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PlayerIdleTimeout < time.Minute {
		return nil, fmt.Errorf("PLAYER_IDLE_TIMEOUT must be at least one minute, got %s", cfg.PlayerIdleTimeout)
	}

	return cfg, nil
}

// GeneratorOptions translates the configuration into generator options
func (c *Config) GeneratorOptions() []GeneratorOption {
	opts := []GeneratorOption{
		WithModel(c.Model),
		WithTimeout(c.GenerationTimeout),
	}
	if c.BaseURL != "" {
		opts = append(opts, WithBaseURL(c.BaseURL))
	}
	if c.LogDir != "" {
		opts = append(opts, WithLogDir(c.LogDir))
	}
	return opts
}

// EngineOptions translates the configuration into engine options
func (c *Config) EngineOptions() []EngineOption {
	return []EngineOption{
		WithQuestionCount(c.QuestionCount),
		WithTimeBudget(c.TimeBudget),
	}
}

// getEnv returns the environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// getEnvDuration accepts Go durations ("90s", "10m") or a plain number of seconds
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
