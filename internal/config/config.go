/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so that yaml files can say "30m" or "1h"
type Duration time.Duration

// UnmarshalYAML parses a duration string like time.ParseDuration does
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// PBKDF2Config tunes the password hasher
type PBKDF2Config struct {
	Iterations int `yaml:"iterations"` // Key derivation rounds
	KeyLength  int `yaml:"key_length"` // Derived key bytes
	SaltLength int `yaml:"salt_length"`
}

// SessionConfig tunes the cookie session
type SessionConfig struct {
	Secret  string   `yaml:"secret"` // Cookie authentication secret
	Timeout Duration `yaml:"timeout"`
}

// RateLimitConfig tunes the fixed-window login limiter
type RateLimitConfig struct {
	Window        Duration `yaml:"window"`
	MaxAttempts   int      `yaml:"max_attempts"`
	BlockDuration Duration `yaml:"block_duration"`
}

// SmartDelayConfig tunes the escalating pre-operation delay
type SmartDelayConfig struct {
	BaseDelay     Duration `yaml:"base_delay"`
	MaxDelay      Duration `yaml:"max_delay"`
	Factor        float64  `yaml:"factor"`
	JitterPercent float64  `yaml:"jitter_percent"` // Symmetric jitter as a fraction of the computed delay
}

// AuditConfig tunes the encrypted event log
type AuditConfig struct {
	MaxEntries      int      `yaml:"max_entries"`
	FlushInterval   Duration `yaml:"flush_interval"`
	SensitiveFields []string `yaml:"sensitive_fields"` // Substrings that mark a detail key as redactable
}

// SecurityConfig groups every security tunable
type SecurityConfig struct {
	PBKDF2     PBKDF2Config     `yaml:"pbkdf2"`
	Session    SessionConfig    `yaml:"session"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	SmartDelay SmartDelayConfig `yaml:"smart_delay"`
	Audit      AuditConfig      `yaml:"audit"`
}

// RemoteConfig points the sync engine at the remote document store
type RemoteConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Endpoint       string   `yaml:"endpoint"`     // Request socket of the store, e.g. tcp://127.0.0.1:7401
	SubEndpoint    string   `yaml:"sub_endpoint"` // Publisher socket of the store, e.g. tcp://127.0.0.1:7402
	RequestTimeout Duration `yaml:"request_timeout"`
	SyncInterval   Duration `yaml:"sync_interval"` // How often the offline queue is drained
}

// BroadcastConfig wires the same-host peer bus
type BroadcastConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Endpoint string   `yaml:"endpoint"` // Own publisher endpoint, e.g. ipc:///tmp/panel-a.sock
	Peers    []string `yaml:"peers"`    // Publisher endpoints of the sibling instances
}

// SystemConfig holds the account-policy knobs
type SystemConfig struct {
	MinPasswordLength   int      `yaml:"min_password_length"`
	MaxLoginAttempts    int      `yaml:"max_login_attempts"`
	LockoutDuration     Duration `yaml:"lockout_duration"`
	ExpirySweepInterval Duration `yaml:"expiry_sweep_interval"`
}

// OwnerConfig seeds the main owner account on a fresh database
type OwnerConfig struct {
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"` // Hashed on first boot, never stored as is
}

// Config is everything a panel instance needs to come up
type Config struct {
	Instance  string          `yaml:"instance"` // Name of this panel instance, used in logs
	HTTPAddr  string          `yaml:"http_addr"`
	DataDir   string          `yaml:"data_dir"` // Where the sqlite database lives
	LogDir    string          `yaml:"log_dir"`
	Logging   bool            `yaml:"logging"`
	Remote    RemoteConfig    `yaml:"remote"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Security  SecurityConfig  `yaml:"security"`
	System    SystemConfig    `yaml:"system"`
	Owner     OwnerConfig     `yaml:"owner"`
}

// Default returns the configuration the panel runs with when the yaml file says nothing
func Default() *Config {
	return &Config{
		Instance: "panel",
		HTTPAddr: ":8080",
		DataDir:  "data",
		LogDir:   "logs",
		Logging:  true,
		Remote: RemoteConfig{
			Enabled:        true,
			Endpoint:       "tcp://127.0.0.1:7401",
			SubEndpoint:    "tcp://127.0.0.1:7402",
			RequestTimeout: Duration(5 * time.Second),
			SyncInterval:   Duration(30 * time.Second),
		},
		Broadcast: BroadcastConfig{
			Enabled:  true,
			Endpoint: "ipc:///tmp/iptv-panel.sock",
		},
		Security: SecurityConfig{
			PBKDF2: PBKDF2Config{
				Iterations: 310000,
				KeyLength:  32,
				SaltLength: 32,
			},
			Session: SessionConfig{
				Secret:  "AHMEDTECH_SESSION_2026",
				Timeout: Duration(time.Hour),
			},
			RateLimit: RateLimitConfig{
				Window:        Duration(15 * time.Minute),
				MaxAttempts:   5,
				BlockDuration: Duration(30 * time.Minute),
			},
			SmartDelay: SmartDelayConfig{
				BaseDelay:     Duration(time.Second),
				MaxDelay:      Duration(30 * time.Second),
				Factor:        2,
				JitterPercent: 0.25,
			},
			Audit: AuditConfig{
				MaxEntries:    1000,
				FlushInterval: Duration(30 * time.Second),
				SensitiveFields: []string{
					"password", "hash", "salt", "token", "secret", "key",
				},
			},
		},
		System: SystemConfig{
			MinPasswordLength:   8,
			MaxLoginAttempts:    5,
			LockoutDuration:     Duration(30 * time.Minute),
			ExpirySweepInterval: Duration(time.Hour),
		},
		Owner: OwnerConfig{
			Name:     "AHMEDTECH",
			Username: "TECHPRO",
		},
	}
}

// Load reads the yaml file at path on top of the defaults.
// A missing file is fine, you just get the defaults back.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
