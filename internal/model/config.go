package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig locates the shared SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// RedisConfig points at the realtime broker.
type RedisConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// AuthConfig controls magic-link and session tokens. The signing secret
// itself lives in the keyring (or SWF_AUTH_SECRET).
type AuthConfig struct {
	Issuer     string        `mapstructure:"issuer" yaml:"issuer"`
	LinkTTL    time.Duration `mapstructure:"link_ttl" yaml:"link_ttl"`
	SessionTTL time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`
	Secret     string        `mapstructure:"secret" yaml:"-"`
}

// ServerConfig holds settings for the landing server.
type ServerConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
	// BaseURL is the public URL links in emails point at.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// MailConfig configures outbound SMTP. The password is kept in the keyring.
type MailConfig struct {
	SMTPHost string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port" yaml:"smtp_port"`
	Username string `mapstructure:"username" yaml:"username"`
	From     string `mapstructure:"from" yaml:"from"`
	// TLS selects implicit TLS; otherwise STARTTLS is used.
	TLS bool `mapstructure:"tls" yaml:"tls"`
}

// InboxConfig configures the optional IMAP watcher that picks up
// sign-in links automatically.
type InboxConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	IMAPHost        string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort        int    `mapstructure:"imap_port" yaml:"imap_port"`
	Username        string `mapstructure:"username" yaml:"username"`
	TLS             bool   `mapstructure:"tls" yaml:"tls"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// BoardConfig holds defaults for newly created personal boards.
type BoardConfig struct {
	DefaultName     string `mapstructure:"default_name" yaml:"default_name"`
	DefaultCapacity int    `mapstructure:"default_capacity" yaml:"default_capacity"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Mail     MailConfig     `mapstructure:"mail" yaml:"mail"`
	Inbox    InboxConfig    `mapstructure:"inbox" yaml:"inbox"`
	Board    BoardConfig    `mapstructure:"board" yaml:"board"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
}

// ConfigDir returns ~/.config/sprintwithfriends.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "sprintwithfriends")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/sprintwithfriends/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	dir := ConfigDir()
	v.SetDefault("database.path", filepath.Join(dir, "swf.db"))
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("auth.issuer", "sprintwithfriends")
	v.SetDefault("auth.link_ttl", 15*time.Minute)
	v.SetDefault("auth.session_ttl", 30*24*time.Hour)
	v.SetDefault("server.listen", ":8787")
	v.SetDefault("server.base_url", "http://localhost:8787")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.from", "SprintWithFriends <no-reply@localhost>")
	v.SetDefault("inbox.imap_port", 993)
	v.SetDefault("inbox.tls", true)
	v.SetDefault("inbox.poll_interval_sec", 10)
	v.SetDefault("board.default_name", "My Personal Board")
	v.SetDefault("board.default_capacity", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(dir, "swf.log"))
	v.SetDefault("display.theme", "default")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with SWF_ override file values. If the
// file does not exist, defaults (plus environment) are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("SWF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	// Unmarshal only sees env values for keys viper already knows about.
	v.SetDefault("auth.secret", "")
	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.tls", false)
	v.SetDefault("inbox.enabled", false)
	v.SetDefault("inbox.imap_host", "")
	v.SetDefault("inbox.username", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Board.DefaultCapacity < 0 {
		return nil, fmt.Errorf("parsing config %s: board.default_capacity must not be negative", path)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. Secrets are never written.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("redis", cfg.Redis)
	v.Set("auth", map[string]any{
		"issuer":      cfg.Auth.Issuer,
		"link_ttl":    cfg.Auth.LinkTTL.String(),
		"session_ttl": cfg.Auth.SessionTTL.String(),
	})
	v.Set("server", cfg.Server)
	v.Set("mail", cfg.Mail)
	v.Set("inbox", cfg.Inbox)
	v.Set("board", cfg.Board)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
