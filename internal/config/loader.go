package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // Use defaults if we can't find config path
	}

	data, err := loadResolvedConfig(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	// If file doesn't exist, continue with defaults

	// Override with environment variables for each group
	envconfig.Process("RESOLVD_STORE", &cfg.Store)
	envconfig.Process("RESOLVD_TRANSPORT", &cfg.Transport)
	envconfig.Process("RESOLVD_SINK", &cfg.Sink)
	envconfig.Process("RESOLVD_RESOLVER", &cfg.Resolver)
	envconfig.Process("RESOLVD_DECISION", &cfg.Decision)
	envconfig.Process("RESOLVD_PROVIDER", &cfg.Provider)
	envconfig.Process("RESOLVD_NOTIFY", &cfg.Notify)
	envconfig.Process("RESOLVD_CONTROL", &cfg.Control)

	// Fallback for API key
	if cfg.Provider.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Provider.APIKey = key
		}
	}

	if p, err := expandHome(cfg.Store.DBPath); err == nil {
		cfg.Store.DBPath = p
	}
	return cfg, nil
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// loadResolvedConfig reads the file and substitutes ${VAR} references
// from the process environment. Unknown variables are left verbatim.
func loadResolvedConfig(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	substituteEnvValues(raw)
	return json.Marshal(raw)
}

func substituteEnvValues(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = substituteEnvValues(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = substituteEnvValues(item)
		}
		return t
	case string:
		return envPattern.ReplaceAllStringFunc(t, func(match string) string {
			parts := envPattern.FindStringSubmatch(match)
			if len(parts) != 2 {
				return match
			}
			if value, ok := os.LookupEnv(parts[1]); ok {
				return value
			}
			return match
		})
	default:
		return v
	}
}

// trimmedStrings drops empty entries after whitespace trimming.
func trimmedStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Normalize cleans up list fields after loading.
func (c *Config) Normalize() {
	c.Transport.Brokers = trimmedStrings(c.Transport.Brokers)
	c.Resolver.AcceptedSenders = trimmedStrings(c.Resolver.AcceptedSenders)
	if c.Transport.Workers <= 0 {
		c.Transport.Workers = 8
	}
}
