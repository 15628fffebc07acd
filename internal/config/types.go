package config

import (
	"fmt"
	"strings"
)

// Config is the daemon configuration. JSON and YAML files are both
// accepted; YAML is coerced to JSON before strict decoding, so unknown
// keys are rejected in either format.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Window is the default working-hours window used when a scheduling
	// call does not supply its own.
	Window WindowConfig `json:"window"`

	Storage  StorageConfig  `json:"storage"`
	AutoPlan AutoPlanConfig `json:"autoplan"`
	HTTP     HTTPConfig     `json:"http"`
	Notify   NotifyConfig   `json:"notify"`
	Recorder RecorderConfig `json:"recorder"`
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// WindowConfig is a working-hours window in "HH:MM" form.
// Empty fields fall back to 09:00-17:00.
type WindowConfig struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

func (w WindowConfig) Normalized() WindowConfig {
	out := w
	if strings.TrimSpace(out.Start) == "" {
		out.Start = "09:00"
	}
	if strings.TrimSpace(out.End) == "" {
		out.End = "17:00"
	}
	return out
}

// StorageConfig controls the persistence layer behind the commitment store.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./daypack_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// AutoPlanConfig controls the unattended daily planning trigger.
//
// Schedule accepts a cron expression ("0 7 * * *", "@daily"), a Go
// duration ("24h"), or an "HH:MM" interval, exactly like any other
// schedule string in this repo.
type AutoPlanConfig struct {
	Enabled  bool     `json:"enabled"`
	Timezone string   `json:"timezone,omitempty"` // IANA TZ, e.g. "Asia/Jakarta"
	Schedule string   `json:"schedule,omitempty"` // default: "0 7 * * *"
	Users    []string `json:"users,omitempty"`
}

type HTTPConfig struct {
	Enabled      bool   `json:"enabled"`
	Addr         string `json:"addr,omitempty"` // default: "127.0.0.1:8080"
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// NotifyConfig controls plan-summary delivery.
type NotifyConfig struct {
	Telegram TelegramNotifyConfig `json:"telegram,omitempty"`
}

type TelegramNotifyConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chat_id,omitempty"`
}

// RecorderConfig throttles completion write-backs.
type RecorderConfig struct {
	// RatePerSec caps write-backs per second; 0 disables throttling.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// Validate rejects configs that would misconfigure the engine before any
// component starts (or hot-reloads) with them.
func (c *Config) Validate() error {
	w := c.Window.Normalized()
	for name, v := range map[string]string{"window.start": w.Start, "window.end": w.End} {
		if _, _, err := parseHHMM(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	for _, f := range []struct{ path, raw string }{
		{"http.read_timeout", c.HTTP.ReadTimeout},
		{"http.write_timeout", c.HTTP.WriteTimeout},
		{"http.idle_timeout", c.HTTP.IdleTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	if c.Recorder.RatePerSec < 0 {
		return fmt.Errorf("recorder.rate_per_sec must be >= 0")
	}
	if c.Notify.Telegram.Enabled {
		if strings.TrimSpace(c.Notify.Telegram.Token) == "" {
			return fmt.Errorf("notify.telegram.token is required when telegram notify is enabled")
		}
		if c.Notify.Telegram.ChatID == 0 {
			return fmt.Errorf("notify.telegram.chat_id is required when telegram notify is enabled")
		}
	}
	return nil
}
