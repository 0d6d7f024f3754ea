// Package config provides configuration types and loading for resolvd.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/resolvd/resolvd/internal/decision"
	"github.com/resolvd/resolvd/internal/strategy"
)

// Config is the root configuration struct.
// Top-level groups: Store, Transport, Sink, Resolver, Decision, Provider, Notify.
type Config struct {
	Store     StoreConfig     `json:"store"`
	Transport TransportConfig `json:"transport"`
	Sink      SinkConfig      `json:"sink"`
	Resolver  ResolverConfig  `json:"resolver"`
	Decision  DecisionConfig  `json:"decision"`
	Provider  ProviderConfig  `json:"provider"`
	Notify    NotifyConfig    `json:"notify"`
	Control   ControlConfig   `json:"control"`
}

// ControlConfig configures the local control API used by the CLI.
type ControlConfig struct {
	Addr      string `json:"addr" envconfig:"ADDR"`
	AuthToken string `json:"authToken" envconfig:"AUTH_TOKEN"`
}

// StoreConfig groups notification store settings.
type StoreConfig struct {
	DBPath       string `json:"dbPath" envconfig:"DB_PATH"`
	SweepSeconds int    `json:"sweepSeconds" envconfig:"SWEEP_SECONDS"`
}

// SweepInterval returns the sweeper cadence.
func (s StoreConfig) SweepInterval() time.Duration {
	if s.SweepSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.SweepSeconds) * time.Second
}

// TransportConfig configures the Kafka event stream.
type TransportConfig struct {
	Brokers []string `json:"brokers" envconfig:"BROKERS"`
	Topic   string   `json:"topic" envconfig:"TOPIC"`
	GroupID string   `json:"groupId" envconfig:"GROUP_ID"`
	Workers int      `json:"workers" envconfig:"WORKERS"`
}

// SinkConfig configures the response submission endpoint.
type SinkConfig struct {
	BaseURL        string `json:"baseUrl" envconfig:"BASE_URL"`
	AuthToken      string `json:"authToken" envconfig:"AUTH_TOKEN"`
	TimeoutSeconds int    `json:"timeoutSeconds" envconfig:"TIMEOUT_SECONDS"`
}

// ResolverConfig configures the response resolution chain.
type ResolverConfig struct {
	Mode            string                 `json:"mode" envconfig:"MODE"`
	DryRun          bool                   `json:"dryRun" envconfig:"DRY_RUN"`
	AcceptedSenders []string               `json:"acceptedSenders"`
	MinScore        float64                `json:"minScore" envconfig:"MIN_SCORE"`
	Scripts         []strategy.ScriptEntry `json:"scripts,omitempty"`
	Rules           []strategy.Rule        `json:"rules,omitempty"`
}

// DecisionConfig configures the trust gate.
type DecisionConfig struct {
	Enabled              bool                    `json:"enabled" envconfig:"ENABLED"`
	TrustMode            string                  `json:"trustMode" envconfig:"TRUST_MODE"`
	TrustLevels          map[string]int          `json:"trustLevels,omitempty"`
	DefaultTrust         int                     `json:"defaultTrust" envconfig:"DEFAULT_TRUST"`
	Domain               string                  `json:"domain" envconfig:"DOMAIN"`
	Categories           []decision.CategoryRule `json:"categories,omitempty"`
	RatifyTimeoutMinutes int                     `json:"ratifyTimeoutMinutes" envconfig:"RATIFY_TIMEOUT_MINUTES"`
}

// RatifyTimeout returns how long a suggested decision waits for a human.
func (d DecisionConfig) RatifyTimeout() time.Duration {
	if d.RatifyTimeoutMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(d.RatifyTimeoutMinutes) * time.Minute
}

// ProviderConfig configures the LLM fallback provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" envconfig:"API_KEY"`
	APIBase string `json:"apiBase,omitempty" envconfig:"API_BASE"`
	Model   string `json:"model" envconfig:"MODEL"`
}

// NotifyConfig configures human-facing ratification notices.
type NotifyConfig struct {
	SlackBotToken string `json:"slackBotToken" envconfig:"SLACK_BOT_TOKEN"`
	SlackChannel  string `json:"slackChannel" envconfig:"SLACK_CHANNEL"`
	SlackAPIBase  string `json:"slackApiBase,omitempty" envconfig:"SLACK_API_BASE"`
}

// DefaultConfig returns the baseline configuration before file and
// environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DBPath:       "~/.resolvd/resolvd.db",
			SweepSeconds: 30,
		},
		Transport: TransportConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "notifications",
			GroupID: "resolvd",
			Workers: 8,
		},
		Sink: SinkConfig{
			TimeoutSeconds: 10,
		},
		Resolver: ResolverConfig{
			Mode:     strategy.ModeAuto,
			MinScore: 0.6,
		},
		Decision: DecisionConfig{
			TrustMode:            decision.ModeShadow,
			DefaultTrust:         decision.TrustL1,
			RatifyTimeoutMinutes: 15,
		},
		Provider: ProviderConfig{
			Model: "gpt-4o-mini",
		},
		Control: ControlConfig{
			Addr: "127.0.0.1:7787",
		},
	}
}

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".resolvd"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file. RESOLVD_CONFIG
// overrides it; RESOLVD_HOME relocates the default directory.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("RESOLVD_CONFIG")); explicit != "" {
		return expandHome(explicit)
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("RESOLVD_HOME")); h != "" {
		return expandHome(h)
	}
	return os.UserHomeDir()
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, p[1:]), nil
}
