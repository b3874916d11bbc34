// Package config loads and validates the triage configuration. The loaded
// Config is constructed once in main and passed into collaborators and the
// pipeline; nothing here is global or mutable at runtime.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Mail     MailConfig     `json:"mail"`
	Tracker  TrackerConfig  `json:"tracker"`
	Alerts   AlertsConfig   `json:"alerts"`
	Calendar CalendarConfig `json:"calendar"`
	History  HistoryConfig  `json:"history"`
	Rules    RulesConfig    `json:"rules"`
}

type GeneralConfig struct {
	LogLevel       string `json:"logLevel"`
	LeadTimeDays   int    `json:"leadTimeDays"`   // decision-reminder default lead time
	MaxBatch       int    `json:"maxBatch"`       // messages per run
	TimeoutSeconds int    `json:"timeoutSeconds"` // per collaborator call
}

type MailConfig struct {
	CredentialsFile string   `json:"credentialsFile"`
	TokenFile       string   `json:"tokenFile"`
	AllowedSenders  []string `json:"allowedSenders"`
	TriagedLabel    string   `json:"triagedLabel"`
}

type TrackerConfig struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Token string `json:"token"`
}

type AlertsConfig struct {
	Telegram TelegramAlertConfig `json:"telegram"`
	Slack    SlackAlertConfig    `json:"slack"`
}

type TelegramAlertConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  int64  `json:"chatId"`
}

type SlackAlertConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"botToken"`
	Channel  string `json:"channel"`
}

type CalendarConfig struct {
	Enabled    bool   `json:"enabled"`
	CalendarID string `json:"calendarId"`
}

type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type RulesConfig struct {
	OverlayPath string `json:"overlayPath,omitempty"` // optional YAML rule overlay
}

// DefaultConfigDir returns the default config directory (~/.mailtriage).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mailtriage"
	}
	return filepath.Join(home, ".mailtriage")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads, env-expands, and validates the config file.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Mail.CredentialsFile = ExpandPath(cfg.Mail.CredentialsFile)
	cfg.Mail.TokenFile = ExpandPath(cfg.Mail.TokenFile)
	cfg.History.DBPath = ExpandPath(cfg.History.DBPath)
	cfg.Rules.OverlayPath = ExpandPath(cfg.Rules.OverlayPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// Save writes the config file, creating the directory if needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has usable values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.MaxBatch < 1 || cfg.General.MaxBatch > 20 {
		errs = append(errs, "general.maxBatch must be between 1 and 20")
	}
	if cfg.General.TimeoutSeconds < 1 {
		errs = append(errs, "general.timeoutSeconds must be >= 1")
	}
	if cfg.General.LeadTimeDays < 1 {
		errs = append(errs, "general.leadTimeDays must be >= 1")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if len(cfg.Mail.AllowedSenders) == 0 {
		errs = append(errs, "mail.allowedSenders must list at least one sender")
	}
	if cfg.Mail.TriagedLabel == "" {
		errs = append(errs, "mail.triagedLabel must not be empty")
	}

	if cfg.Tracker.Owner == "" || cfg.Tracker.Repo == "" {
		errs = append(errs, "tracker.owner and tracker.repo are required")
	}

	if cfg.Alerts.Telegram.Enabled && cfg.Alerts.Telegram.Token == "" {
		errs = append(errs, "alerts.telegram.token is required when telegram is enabled")
	}
	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.BotToken == "" {
		errs = append(errs, "alerts.slack.botToken is required when slack is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
