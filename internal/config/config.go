package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/samsaffron/sql2pyspark/internal/llm"
)

const appName = "sql2pyspark"

type Config struct {
	Backend  string         `mapstructure:"backend" yaml:"backend"`
	Remote   RemoteConfig   `mapstructure:"remote" yaml:"remote"`
	Local    LocalConfig    `mapstructure:"local" yaml:"local"`
	Archive  ArchiveConfig  `mapstructure:"archive" yaml:"archive"`
	Serve    ServeConfig    `mapstructure:"serve" yaml:"serve"`
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`

	// dirs are searched for .env and secrets.toml when the API key is not
	// set in the config file or the environment.
	dirs []string
}

type RemoteConfig struct {
	Provider string            `mapstructure:"provider" yaml:"provider"`
	Model    string            `mapstructure:"model" yaml:"model"`
	APIKey   string            `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL  string            `mapstructure:"base_url" yaml:"base_url,omitempty"`
	Headers  map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
}

type LocalConfig struct {
	Model       string `mapstructure:"model" yaml:"model"`
	MaxLength   int    `mapstructure:"max_length" yaml:"max_length"`
	Threads     int    `mapstructure:"threads" yaml:"threads"`
	ContextSize int    `mapstructure:"context_size" yaml:"context_size"`
}

type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path,omitempty"`
}

type ServeConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Token    string `mapstructure:"token" yaml:"token,omitempty"`
	MaxConns int    `mapstructure:"max_conns" yaml:"max_conns"`
}

type TelegramConfig struct {
	Token        string  `mapstructure:"token" yaml:"token,omitempty"`
	AllowedUsers []int64 `mapstructure:"allowed_users" yaml:"allowed_users,omitempty"`
}

// TelegramToken resolves the bot token, falling back to TELEGRAM_BOT_TOKEN.
func (c *Config) TelegramToken() (string, error) {
	token, err := ResolveValue(c.Telegram.Token)
	if err != nil {
		return "", fmt.Errorf("resolve telegram.token: %w", err)
	}
	if token == "" {
		token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	return token, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend", llm.BackendRemote)
	v.SetDefault("remote.provider", "openai")
	v.SetDefault("remote.model", llm.DefaultOpenAIModel)
	v.SetDefault("remote.api_key", "")
	v.SetDefault("remote.base_url", "")
	v.SetDefault("local.model", "")
	v.SetDefault("local.max_length", llm.DefaultMaxLength)
	v.SetDefault("local.threads", 4)
	v.SetDefault("local.context_size", 512)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.path", "")
	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("serve.token", "")
	v.SetDefault("serve.max_conns", 64)
	v.SetDefault("telegram.token", "")
}

// Load reads config.yaml from the user config directory and the working
// directory.
func Load() (*Config, error) {
	dirs := []string{"."}
	if dir, err := GetConfigDir(); err == nil {
		dirs = append([]string{dir}, dirs...)
	}
	return LoadFrom(dirs...)
}

// LoadFrom reads config.yaml from the first of dirs that has one. A missing
// file is not an error. SQL2PYSPARK_* environment variables override file
// values.
func LoadFrom(dirs ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix("SQL2PYSPARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.dirs = dirs
	return &cfg, nil
}

// ApplyOverrides applies command-line selections. providerModel uses the
// "provider:model" form; switching provider without naming a model drops
// the configured model so the provider default applies.
func (c *Config) ApplyOverrides(backend, providerModel string) {
	if backend != "" {
		c.Backend = backend
	}
	if providerModel == "" {
		return
	}
	provider, model := llm.ParseProviderModel(providerModel)
	current, _ := llm.ParseProviderModel(c.Remote.Provider)
	if model != "" || provider != current {
		c.Remote.Model = model
	}
	c.Remote.Provider = provider
}

// ProviderName returns the normalized remote provider.
func (c *Config) ProviderName() string {
	provider, _ := llm.ParseProviderModel(c.Remote.Provider)
	return provider
}

// Credential resolves the remote API key. Sources, in order: the config
// value (which may use op://, $(cmd) or $VAR), the provider's environment
// variable, a .env file, then a secrets.toml file. An empty result with a
// nil error means no key was found anywhere.
func (c *Config) Credential() (string, error) {
	if c.Remote.APIKey != "" {
		key, err := ResolveValue(c.Remote.APIKey)
		if err != nil {
			return "", fmt.Errorf("resolve remote.api_key: %w", err)
		}
		if key != "" {
			return key, nil
		}
	}

	envName := llm.CredentialEnv(c.ProviderName())
	if key := strings.TrimSpace(os.Getenv(envName)); key != "" {
		return key, nil
	}
	for _, dir := range c.dirs {
		if key := dotenvValue(filepath.Join(dir, ".env"), envName); key != "" {
			return key, nil
		}
	}
	for _, dir := range c.dirs {
		for _, path := range []string{
			filepath.Join(dir, ".streamlit", "secrets.toml"),
			filepath.Join(dir, "secrets.toml"),
		} {
			if key := secretsValue(path, envName); key != "" {
				return key, nil
			}
		}
	}
	return "", nil
}

// dotenvValue reads key from a .env file without touching the process
// environment.
func dotenvValue(path, key string) string {
	values, err := godotenv.Read(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(values[key])
}

func secretsValue(path, key string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return strings.TrimSpace(v.GetString(key))
}

// AdapterConfig converts the config into what llm.NewAdapter needs. The
// API key is resolved here; it stays empty when none was found, and
// NewAdapter reports llm.ErrMissingCredential.
func (c *Config) AdapterConfig(debug bool) (llm.AdapterConfig, error) {
	out := llm.AdapterConfig{
		Backend: c.Backend,
		Remote: llm.RemoteConfig{
			Provider: c.ProviderName(),
			Model:    c.Remote.Model,
			BaseURL:  c.Remote.BaseURL,
			Headers:  c.Remote.Headers,
		},
		Local: llm.LocalConfig{
			Model:       expandHome(c.Local.Model),
			MaxLength:   c.Local.MaxLength,
			Threads:     c.Local.Threads,
			ContextSize: c.Local.ContextSize,
		},
		Debug: debug,
	}
	if c.Backend == llm.BackendLocal {
		return out, nil
	}
	if _, model := llm.ParseProviderModel(c.Remote.Provider); model != "" && out.Remote.Model == "" {
		out.Remote.Model = model
	}
	// The built-in model default is an OpenAI model.
	if out.Remote.Model == llm.DefaultOpenAIModel && out.Remote.Provider != "openai" {
		out.Remote.Model = ""
	}
	baseURL, err := ResolveValue(c.Remote.BaseURL)
	if err != nil {
		return out, fmt.Errorf("resolve remote.base_url: %w", err)
	}
	out.Remote.BaseURL = baseURL
	key, err := c.Credential()
	if err != nil {
		return out, err
	}
	out.Remote.APIKey = key
	return out, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigDir returns the directory holding config.yaml.
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// GetStateDir returns $XDG_STATE_HOME/sql2pyspark, used for debug logs.
func GetStateDir() (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, appName), nil
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Save writes cfg to the default config path.
func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes cfg as YAML to path, creating parent directories.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}
