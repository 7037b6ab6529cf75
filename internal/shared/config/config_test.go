package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123")
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Session.MaxEntries != 1024 {
		t.Errorf("Session.MaxEntries = %d, want 1024", cfg.Session.MaxEntries)
	}
	if cfg.Session.TTL != 24*time.Hour {
		t.Errorf("Session.TTL = %v, want 24h", cfg.Session.TTL)
	}
	if got := cfg.Ethereum.ContractAddress.Hex(); got != defaultContractAddress {
		t.Errorf("ContractAddress = %s, want %s", got, defaultContractAddress)
	}
	if cfg.Ethereum.ConfirmTimeout != 10*time.Minute {
		t.Errorf("ConfirmTimeout = %v, want 10m", cfg.Ethereum.ConfirmTimeout)
	}
	if cfg.Wallet.Mode != WalletClef {
		t.Errorf("Wallet.Mode = %q, want %q", cfg.Wallet.Mode, WalletClef)
	}
	if cfg.Journal.Backend != JournalNone {
		t.Errorf("Journal.Backend = %q, want %q", cfg.Journal.Backend, JournalNone)
	}
	if cfg.Worker.RefreshInterval != 0 {
		t.Errorf("Worker.RefreshInterval = %v, want 0", cfg.Worker.RefreshInterval)
	}
	if cfg.RateLimit.RPS != 10 || cfg.RateLimit.Burst != 20 {
		t.Errorf("RateLimit = %+v, want 10 rps burst 20", cfg.RateLimit)
	}
}

func TestLoad_MissingSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	os.Unsetenv("SESSION_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing SESSION_SECRET, got nil")
	}
}

func TestLoad_ShortSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "too-short")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for short SESSION_SECRET, got nil")
	}
}

func TestLoadClient_NoSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("WALLET_MODE", "keystore")
	t.Setenv("KEYSTORE_DIR", "/tmp/keys")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient() failed: %v", err)
	}
	if cfg.Wallet.Mode != WalletKeystore {
		t.Errorf("Wallet.Mode = %q, want %q", cfg.Wallet.Mode, WalletKeystore)
	}

	t.Setenv("JOURNAL_BACKEND", "mongo")
	if _, err := LoadClient(); err == nil {
		t.Error("LoadClient() expected error for invalid JOURNAL_BACKEND")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DB_PORT", "not-a-number"},
		{"SESSION_MAX", "0"},
		{"SESSION_TTL", "forever"},
		{"TX_CONFIRM_TIMEOUT", "10"},
		{"WORKER_COUNT", "-1"},
		{"RATE_LIMIT_RPS", "fast"},
		{"BANK_CONTRACT_ADDRESS", "0x1234"},
		{"WALLET_MODE", "metamask"},
		{"JOURNAL_BACKEND", "redis"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			setRequiredEnvVars(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() expected error for %s=%q, got nil", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_KeystoreRequiresDir(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("WALLET_MODE", "keystore")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for keystore mode without KEYSTORE_DIR, got nil")
	}

	t.Setenv("KEYSTORE_DIR", "/var/lib/gdbank/keystore")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Wallet.Mode != WalletKeystore {
		t.Errorf("Wallet.Mode = %q, want %q", cfg.Wallet.Mode, WalletKeystore)
	}
}

func TestLoad_TLSValidation(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_PATH", "")
	t.Setenv("TLS_KEY_PATH", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for TLS enabled without cert path, got nil")
	}
}

func TestLoad_TLSValidation_MissingKeyPath(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_PATH", "/path/to/cert")
	t.Setenv("TLS_KEY_PATH", "")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for TLS enabled without key path, got nil")
	}
}

func TestLoad_AllowedHosts(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("ALLOWED_HOSTS", "example.com, bank.example.com, localhost:3000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.Server.AllowedHosts) != 3 {
		t.Errorf("AllowedHosts length = %d, want 3", len(cfg.Server.AllowedHosts))
	}
}

func TestLoad_WorkerConfig(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("REFRESH_INTERVAL", "30s")
	t.Setenv("JOURNAL_BACKEND", "LevelDB")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Worker.Count != 8 {
		t.Errorf("Worker.Count = %d, want 8", cfg.Worker.Count)
	}
	if cfg.Worker.RefreshInterval != 30*time.Second {
		t.Errorf("Worker.RefreshInterval = %v, want 30s", cfg.Worker.RefreshInterval)
	}
	if cfg.Journal.Backend != JournalLevelDB {
		t.Errorf("Journal.Backend = %q, want %q", cfg.Journal.Backend, JournalLevelDB)
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value    string
		defVal   bool
		expected bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"false", true, false},
		{"0", true, false},
		{"NO", true, false},
		{"invalid", true, true},   // returns default
		{"invalid", false, false}, // returns default
		{"", true, true},          // empty returns default
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			key := "TEST_BOOL_ENV"
			if tt.value == "" {
				os.Unsetenv(key)
			} else {
				t.Setenv(key, tt.value)
			}

			got := getBoolEnv(key, tt.defVal)
			if got != tt.expected {
				t.Errorf("getBoolEnv(%q, %v) = %v, want %v", tt.value, tt.defVal, got, tt.expected)
			}
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	got := cfg.ConnectionString()
	if got != expected {
		t.Errorf("ConnectionString() = %q, want %q", got, expected)
	}
}
