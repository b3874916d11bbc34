package config

import "path/filepath"

// Defaults returns a fresh config with workable defaults. Collaborator
// credentials are intentionally empty and must come from the file or
// environment.
func Defaults() *Config {
	dir := DefaultConfigDir()
	return &Config{
		General: GeneralConfig{
			LogLevel:       "info",
			LeadTimeDays:   30,
			MaxBatch:       20,
			TimeoutSeconds: 15,
		},
		Mail: MailConfig{
			CredentialsFile: filepath.Join(dir, "credentials.json"),
			TokenFile:       filepath.Join(dir, "token.json"),
			TriagedLabel:    "triaged",
		},
		Alerts: AlertsConfig{},
		Calendar: CalendarConfig{
			CalendarID: "primary",
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(dir, "history.db"),
		},
	}
}
