/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file
// in the user scope. Environment variables act as read-only overrides at
// runtime. The SMTP relay token is never written to this file; it lives
// in the OS keychain.

type BackendConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type SyncConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
}

type DeliveryConfig struct {
	ShareCommand string `yaml:"share_command"` // external share handler, empty disables the share strategy
	SMTPRelayURL string `yaml:"smtp_relay_url"`
	SMTPFrom     string `yaml:"smtp_from"`
	DownloadDir  string `yaml:"download_dir"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	WorkspaceDir   string `yaml:"workspace_dir"` // local record store; empty uses the config dir
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Backend       BackendConfig  `yaml:"backend"`
	Sync          SyncConfig     `yaml:"sync"`
	Delivery      DeliveryConfig `yaml:"delivery"`
	Logging       LoggingConfig  `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Sync:          SyncConfig{DebounceMs: 800},
		Delivery:      DeliveryConfig{},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvBackendURL       = "CR_BACKEND_URL"
	EnvBackendTimeoutMs = "CR_BACKEND_TIMEOUT_MS"
	EnvSyncDebounceMs   = "CR_SYNC_DEBOUNCE_MS"
	EnvShareCommand     = "CR_SHARE_COMMAND"
	EnvSMTPRelayURL     = "CR_SMTP_RELAY_URL"
	EnvSMTPFrom         = "CR_SMTP_FROM"
	EnvDownloadDir      = "CR_DOWNLOAD_DIR"
	EnvWorkspaceDir     = "CR_WORKSPACE_DIR"
	EnvTelemetryOptIn   = "CR_TELEMETRY_OPT_IN"
	EnvLogLevel         = "CR_LOG_LEVEL"
	EnvLogFormat        = "CR_LOG_FORMAT"
	EnvLogSource        = "CR_LOG_SOURCE"
	EnvLogFile          = "CR_LOG_FILE"
)

// Service/keys for the OS keyring.
const (
	keyringService = "CleanReport"
	keyringToken   = "smtp_secure_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// ConfigDir returns the per-user config directory.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "CleanReport")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "CleanReport")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "cleanreport")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and
// merges environment overrides. The SMTP relay token is loaded from the
// keyring and returned separately; a missing token is not an error.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// ClearToken removes the relay token from the keyring.
func ClearToken() error { return tokenStore.Delete(keyringService, keyringToken) }

// WorkspaceDir resolves the local record store directory.
func (c AppConfig) WorkspaceDir() (string, error) {
	if d := strings.TrimSpace(c.General.WorkspaceDir); d != "" {
		return d, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "workspace"), nil
}

// Timeout returns the backend timeout as a duration.
func (b BackendConfig) Timeout() time.Duration {
	ms := b.TimeoutMs
	if ms <= 0 {
		ms = Defaults().Backend.TimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Debounce returns the push quiet interval as a duration.
func (s SyncConfig) Debounce() time.Duration {
	ms := s.DebounceMs
	if ms <= 0 {
		ms = Defaults().Sync.DebounceMs
	}
	return time.Duration(ms) * time.Millisecond
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if strings.TrimSpace(src.General.WorkspaceDir) != "" {
		dst.General.WorkspaceDir = src.General.WorkspaceDir
	}
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	if src.Sync.DebounceMs != 0 {
		dst.Sync.DebounceMs = src.Sync.DebounceMs
	}
	if src.Delivery.ShareCommand != "" {
		dst.Delivery.ShareCommand = src.Delivery.ShareCommand
	}
	if src.Delivery.SMTPRelayURL != "" {
		dst.Delivery.SMTPRelayURL = src.Delivery.SMTPRelayURL
	}
	if src.Delivery.SMTPFrom != "" {
		dst.Delivery.SMTPFrom = src.Delivery.SMTPFrom
	}
	if src.Delivery.DownloadDir != "" {
		dst.Delivery.DownloadDir = src.Delivery.DownloadDir
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSyncDebounceMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.DebounceMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvShareCommand)); v != "" {
		cfg.Delivery.ShareCommand = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSMTPRelayURL)); v != "" {
		cfg.Delivery.SMTPRelayURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSMTPFrom)); v != "" {
		cfg.Delivery.SMTPFrom = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDownloadDir)); v != "" {
		cfg.Delivery.DownloadDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkspaceDir)); v != "" {
		cfg.General.WorkspaceDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}
