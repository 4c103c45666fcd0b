package flowlist

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/harunnryd/flowlist/pkg/configutil"
	"github.com/harunnryd/flowlist/pkg/tools"
	"github.com/spf13/viper"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Vendors       VendorsConfig       `mapstructure:"vendors"`
	Assistant     AssistantConfig     `mapstructure:"assistant"`
	Store         StoreConfig         `mapstructure:"store"`
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	LLM VendorConfig `mapstructure:"llm"`
}

type AssistantConfig struct {
	Persona string `mapstructure:"persona"`
	// Tools is a preset name or a list of groups.
	Tools           []string `mapstructure:"tools"`
	MaxHistory      int      `mapstructure:"max_history"`
	ToolConcurrency int      `mapstructure:"tool_concurrency"`
	TurnTimeoutMS   int      `mapstructure:"turn_timeout_ms"`
	FallbackText    string   `mapstructure:"fallback_text"`
	EmptyReplyText  string   `mapstructure:"empty_reply_text"`
}

func (a AssistantConfig) TurnTimeout() time.Duration {
	return configutil.Millis(a.TurnTimeoutMS, 0)
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Addr              string   `mapstructure:"addr"`
	AllowedOrigins    []string `mapstructure:"allowed_origins"`
	ReadTimeoutMS     int      `mapstructure:"read_timeout_ms"`
	WriteTimeoutMS    int      `mapstructure:"write_timeout_ms"`
	ShutdownTimeoutMS int      `mapstructure:"shutdown_timeout_ms"`
}

type TokenConfig struct {
	Token  string `mapstructure:"token"`
	UserID string `mapstructure:"user_id"`
}

type AuthConfig struct {
	// Mode is "header" (trusted X-User-ID, development only) or "token".
	Mode   string        `mapstructure:"mode"`
	Tokens []TokenConfig `mapstructure:"tokens"`
}

// TokenMap returns token -> user id.
func (a AuthConfig) TokenMap() map[string]string {
	out := make(map[string]string, len(a.Tokens))
	for _, t := range a.Tokens {
		out[t.Token] = t.UserID
	}
	return out
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

type ObservabilityConfig struct {
	// MetricsPath is a JSONL file receiving metrics events. Empty disables it.
	MetricsPath   string `mapstructure:"metrics_path"`
	MetricsBuffer int    `mapstructure:"metrics_buffer"`
}

const envPrefix = "FLOWLIST"

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("vendors.llm.provider", "openai")
	v.SetDefault("assistant.persona", "")
	v.SetDefault("assistant.tools", []string{string(tools.PresetMinimal)})
	v.SetDefault("assistant.max_history", 10)
	v.SetDefault("assistant.tool_concurrency", 4)
	v.SetDefault("assistant.turn_timeout_ms", 60000)
	v.SetDefault("assistant.fallback_text", "")
	v.SetDefault("assistant.empty_reply_text", "")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout_ms", 15000)
	v.SetDefault("server.write_timeout_ms", 90000)
	v.SetDefault("server.shutdown_timeout_ms", 10000)
	v.SetDefault("auth.mode", "header")
	v.SetDefault("privacy.redact_pii", true)
	v.SetDefault("observability.metrics_path", "")
	v.SetDefault("observability.metrics_buffer", 256)
}

// LoadConfig reads an optional YAML file over the defaults. Scalar keys can be
// overridden from FLOWLIST_* environment variables, e.g. FLOWLIST_STORE_DRIVER.
// ${VAR} references inside string values are expanded.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Vendors.LLM.Provider) == "" {
		errs = append(errs, errors.New("vendors.llm.provider is required"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log_format must be json or text, got %q", c.LogFormat))
	}
	switch strings.ToLower(c.Store.Driver) {
	case "memory", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.driver must be memory or sqlite, got %q", c.Store.Driver))
	}
	switch strings.ToLower(c.Auth.Mode) {
	case "header":
	case "token":
		if len(c.Auth.TokenMap()) == 0 {
			errs = append(errs, errors.New("auth.tokens is required when auth.mode is token"))
		}
		for i, t := range c.Auth.Tokens {
			if strings.TrimSpace(t.Token) == "" || strings.TrimSpace(t.UserID) == "" {
				errs = append(errs, fmt.Errorf("auth.tokens[%d] needs token and user_id", i))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("auth.mode must be header or token, got %q", c.Auth.Mode))
	}
	if c.Assistant.MaxHistory < 0 {
		errs = append(errs, errors.New("assistant.max_history must not be negative"))
	}
	if c.Assistant.ToolConcurrency < 0 {
		errs = append(errs, errors.New("assistant.tool_concurrency must not be negative"))
	}
	if _, err := tools.FromSelection(c.Assistant.Tools); err != nil {
		errs = append(errs, fmt.Errorf("assistant.tools: %w", err))
	}
	if err := configutil.RequireString(c.Server.Addr, "server.addr"); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.LLM.Settings = expandSettings(cfg.Vendors.LLM.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	switch v.Kind() {
	case reflect.Pointer:
		if !v.IsNil() {
			expandValue(v.Elem())
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	}
}
