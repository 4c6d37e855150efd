package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides: CORTEX_NEO4J_URI sets neo4j.uri.
const EnvPrefix = "CORTEX"

// ConfigLoader handles loading configuration from files.
type ConfigLoader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperConfigLoader implements ConfigLoader using Viper.
type viperConfigLoader struct {
	validator ConfigValidator
	envFiles  []string
}

// LoaderOption configures a ConfigLoader.
type LoaderOption func(*viperConfigLoader)

// WithEnvFiles sets the dotenv files read before loading. Missing files are
// skipped; variables already set in the process environment win.
func WithEnvFiles(paths ...string) LoaderOption {
	return func(l *viperConfigLoader) { l.envFiles = paths }
}

// NewConfigLoader creates a new ConfigLoader instance. By default it reads
// ./.env.
func NewConfigLoader(validator ConfigValidator, opts ...LoaderOption) ConfigLoader {
	l := &viperConfigLoader{
		validator: validator,
		envFiles:  []string{".env"},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration from the specified file path on top of the
// defaults. Returns an error if the file doesn't exist or cannot be parsed.
func (l *viperConfigLoader) Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.load(path)
}

// LoadWithDefaults loads configuration from the specified file path.
// If the file doesn't exist, defaults and environment overrides are used.
func (l *viperConfigLoader) LoadWithDefaults(path string) (*Config, error) {
	if path == "" {
		return l.load("")
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return l.load("")
	}
	return l.load(path)
}

func (l *viperConfigLoader) load(path string) (*Config, error) {
	if err := loadEnvFiles(l.envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")

	// Seeding viper with the defaults makes every key known, so
	// AutomaticEnv can override any of them.
	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to read default config: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range v.AllKeys() {
		v.Set(key, interpolateEnvVars(v.Get(key)))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.validator.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFiles(paths []string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return fmt.Errorf("failed to load env file %s: %w", p, err)
	}
	return nil
}

// interpolateEnvVars recursively interpolates environment variables in a
// config value. Supports ${VAR_NAME} syntax.
func interpolateEnvVars(data any) any {
	switch v := data.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, value := range v {
			result[key] = interpolateEnvVars(value)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, value := range v {
			result[i] = interpolateEnvVars(value)
		}
		return result
	case []string:
		result := make([]string, len(v))
		for i, value := range v {
			result[i] = interpolateString(value)
		}
		return result
	case string:
		return interpolateString(v)
	default:
		return v
	}
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with the environment value. Unset
// variables are left as written so validation can report them.
func interpolateString(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val, ok := os.LookupEnv(name); ok && val != "" {
			return val
		}
		return match
	})
}

// UnresolvedRefs lists the ${VAR} references left in string settings after
// interpolation, keyed by a readable field path.
func UnresolvedRefs(cfg *Config) []string {
	check := map[string]string{
		"neo4j.password":   cfg.Neo4j.Password,
		"embedder.api_key": cfg.Embedder.APIKey,
		"cache.redis_url":  cfg.Cache.RedisURL,
	}
	for _, p := range cfg.LLM.Providers {
		check["llm.providers."+p.Name+".api_key"] = p.APIKey
		check["llm.providers."+p.Name+".base_url"] = p.BaseURL
	}

	var out []string
	for field, val := range check {
		if m := envRef.FindString(val); m != "" {
			out = append(out, field+" references unset "+m)
		}
	}
	slices.Sort(out)
	return out
}
