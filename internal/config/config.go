package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	Token          string        `mapstructure:"token"`
	TokenPath      string        `mapstructure:"token_path"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	RecentInterval time.Duration `mapstructure:"recent_interval"`
	RecentLimit    int           `mapstructure:"recent_limit"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	InboxDir       string        `mapstructure:"inbox_dir"`
	IgnoreList     []string      `mapstructure:"ignore_list"`
	ServerPort     int           `mapstructure:"server_port"`
	ServerToken    string        `mapstructure:"server_token"`
	ServerSecret   string        `mapstructure:"server_secret"`
	DBPath         string        `mapstructure:"db_path"`
	UploadDir      string        `mapstructure:"upload_dir"`
	ProcessDelay   time.Duration `mapstructure:"process_delay"`
}

var Default = Config{
	BaseURL:        "http://localhost:9100",
	PollInterval:   3 * time.Second,
	RecentInterval: 30 * time.Second,
	RecentLimit:    10,
	InboxDir:       "inbox",
	IgnoreList:     []string{".*", "*.tmp", "*.part", "*.crdownload"},
	ServerPort:     9100,
	DBPath:         "clubctl.db",
	UploadDir:      "uploads",
	ProcessDelay:   500 * time.Millisecond,
}

// Dir returns ~/.clubctl, creating it when missing.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}

	dir := filepath.Join(home, ".clubctl")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}

	return dir, nil
}

func Load() (*Config, error) {
	configDir, err := Dir()
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetDefault("base_url", Default.BaseURL)
	v.SetDefault("token", "")
	v.SetDefault("token_path", filepath.Join(configDir, "token.json"))
	v.SetDefault("poll_interval", Default.PollInterval)
	v.SetDefault("recent_interval", Default.RecentInterval)
	v.SetDefault("recent_limit", Default.RecentLimit)
	v.SetDefault("http_timeout", Default.HTTPTimeout)
	v.SetDefault("inbox_dir", Default.InboxDir)
	v.SetDefault("ignore_list", Default.IgnoreList)
	v.SetDefault("server_port", Default.ServerPort)
	v.SetDefault("server_token", "")
	v.SetDefault("server_secret", "")
	v.SetDefault("db_path", Default.DBPath)
	v.SetDefault("upload_dir", Default.UploadDir)
	v.SetDefault("process_delay", Default.ProcessDelay)

	v.SetEnvPrefix("CLUBCTL")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if ok := errors.As(err, &notFound); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.RecentInterval <= 0 {
		return fmt.Errorf("recent_interval must be positive, got %s", c.RecentInterval)
	}
	if c.RecentLimit <= 0 {
		return fmt.Errorf("recent_limit must be positive, got %d", c.RecentLimit)
	}

	return nil
}
