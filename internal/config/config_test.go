package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV",
	"LOG_LEVEL",
	"CREDENTIALS_PATH",
	"MQTT_BROKER",
	"MQTT_PORT",
	"MQTT_CLIENT_ID",
	"MQTT_QOS",
	"DB_DRIVER",
	"DB_DSN",
	"SQLITE_PATH",
	"DB_MAX_OPEN_CONNS",
	"DB_MAX_IDLE_CONNS",
	"DB_CONN_MAX_LIFETIME",
}

// clearEnv resets every variable LoadFromEnv reads so defaults apply.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	wantCreds := filepath.Join(home, "SCS", "osio", "osio_api_auth.json")
	if got.CredentialsPath != wantCreds {
		t.Errorf("CredentialsPath = %q, want %q", got.CredentialsPath, wantCreds)
	}
	if got.MQTTBroker != "localhost" {
		t.Errorf("MQTTBroker = %q, want %q", got.MQTTBroker, "localhost")
	}
	if got.MQTTPort != 1883 {
		t.Errorf("MQTTPort = %d, want %d", got.MQTTPort, 1883)
	}
	if got.MQTTClientID != "cloudpico-analysis" {
		t.Errorf("MQTTClientID = %q, want %q", got.MQTTClientID, "cloudpico-analysis")
	}
	if got.MQTTQoS != 1 {
		t.Errorf("MQTTQoS = %d, want 1", got.MQTTQoS)
	}
	if got.SQLiteDriver != "sqlite3" {
		t.Errorf("SQLiteDriver = %q, want sqlite3", got.SQLiteDriver)
	}
	if got.SQLitePath != "archive/samples.db" {
		t.Errorf("SQLitePath = %q, want archive/samples.db", got.SQLitePath)
	}
	if got.SQLiteConnMaxLifetime != 0 {
		t.Errorf("SQLiteConnMaxLifetime = %v, want 0", got.SQLiteConnMaxLifetime)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", " prod ")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CREDENTIALS_PATH", "/etc/scs/auth.json")
	t.Setenv("MQTT_BROKER", "broker.local")
	t.Setenv("MQTT_PORT", "8883")
	t.Setenv("MQTT_CLIENT_ID", "collator-7")
	t.Setenv("MQTT_QOS", "0")
	t.Setenv("SQLITE_PATH", "/tmp/samples.db")
	t.Setenv("DB_CONN_MAX_LIFETIME", "90s")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.AppEnv != "prod" {
		t.Errorf("AppEnv = %q, want prod", got.AppEnv)
	}
	if got.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelDebug)
	}
	if got.CredentialsPath != "/etc/scs/auth.json" {
		t.Errorf("CredentialsPath = %q, want /etc/scs/auth.json", got.CredentialsPath)
	}
	if got.MQTTBroker != "broker.local" || got.MQTTPort != 8883 {
		t.Errorf("MQTT = %s:%d, want broker.local:8883", got.MQTTBroker, got.MQTTPort)
	}
	if got.MQTTClientID != "collator-7" {
		t.Errorf("MQTTClientID = %q, want collator-7", got.MQTTClientID)
	}
	if got.MQTTQoS != 0 {
		t.Errorf("MQTTQoS = %d, want 0", got.MQTTQoS)
	}
	if got.SQLitePath != "/tmp/samples.db" {
		t.Errorf("SQLitePath = %q, want /tmp/samples.db", got.SQLitePath)
	}
	if got.SQLiteConnMaxLifetime != 90*time.Second {
		t.Errorf("SQLiteConnMaxLifetime = %v, want 90s", got.SQLiteConnMaxLifetime)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "app env", key: "APP_ENV", value: "staging"},
		{name: "app env is case sensitive", key: "APP_ENV", value: "DEV"},
		{name: "log level", key: "LOG_LEVEL", value: "loud"},
		{name: "mqtt port not numeric", key: "MQTT_PORT", value: "http"},
		{name: "mqtt port out of range", key: "MQTT_PORT", value: "70000"},
		{name: "mqtt qos", key: "MQTT_QOS", value: "3"},
		{name: "max open conns", key: "DB_MAX_OPEN_CONNS", value: "many"},
		{name: "max idle conns", key: "DB_MAX_IDLE_CONNS", value: "x"},
		{name: "conn max lifetime", key: "DB_CONN_MAX_LIFETIME", value: "forever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("CREDENTIALS_PATH", "/tmp/auth.json")
			t.Setenv(tt.key, tt.value)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() error = nil, want non-nil for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestParseLogLevel_Valid(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want slog.Level
	}{
		{name: "debug", in: "debug", want: slog.LevelDebug},
		{name: "info", in: "info", want: slog.LevelInfo},
		{name: "warn", in: "warn", want: slog.LevelWarn},
		{name: "warning", in: "warning", want: slog.LevelWarn},
		{name: "error", in: "error", want: slog.LevelError},
		{name: "case insensitive", in: "DeBuG", want: slog.LevelDebug},
		{name: "trims whitespace", in: "  warn \n", want: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("parseLogLevel(%q) error = %v, want nil", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_Invalid(t *testing.T) {
	for _, in := range []string{"", "nope", "warns", "1"} {
		got, err := parseLogLevel(in)
		if err == nil {
			t.Fatalf("parseLogLevel(%q) error = nil, want non-nil", in)
		}
		if got != slog.LevelInfo {
			t.Errorf("parseLogLevel(%q) = %v, want %v on error", in, got, slog.LevelInfo)
		}
	}
}
