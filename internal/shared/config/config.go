package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	Ethereum  EthereumConfig
	Wallet    WalletConfig
	Worker    WorkerConfig
	RateLimit RateLimitConfig
	Journal   JournalConfig
	Database  DatabaseConfig
	TLS       TLSConfig
	Telemetry TelemetryConfig

	MessagesFile string
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type SessionConfig struct {
	Secret     string
	MaxEntries int
	TTL        time.Duration
}

type EthereumConfig struct {
	RPCURL          string
	ContractAddress common.Address
	ConfirmTimeout  time.Duration
}

// WalletMode selects how transactions are signed.
type WalletMode string

const (
	WalletClef     WalletMode = "clef"
	WalletKeystore WalletMode = "keystore"
	WalletNone     WalletMode = "none"
)

type WalletConfig struct {
	Mode                 WalletMode
	ClefEndpoint         string
	KeystoreDir          string
	KeystorePasswordFile string
}

type WorkerConfig struct {
	Count           int
	QueueSize       int
	RefreshInterval time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// JournalBackend selects where write history is kept.
type JournalBackend string

const (
	JournalNone     JournalBackend = "none"
	JournalPostgres JournalBackend = "postgres"
	JournalLevelDB  JournalBackend = "leveldb"
)

type JournalConfig struct {
	Backend JournalBackend
	Path    string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	MetricsPort  string
	Environment  string
}

const defaultContractAddress = "0xa3c862531Ab8691b2A1921144924dea7EC664cC9"

// Load reads the server configuration from the environment.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClient reads the configuration used by command-line clients, which
// need no session secret or server settings.
func LoadClient() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateBackends(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*Config, error) {
	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	sessionMax, err := getIntEnv("SESSION_MAX", 1024)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getDurationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	confirmTimeout, err := getDurationEnv("TX_CONFIRM_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	workers, err := getIntEnv("WORKER_COUNT", 4)
	if err != nil {
		return nil, err
	}
	queueSize, err := getIntEnv("WORKER_QUEUE_SIZE", 64)
	if err != nil {
		return nil, err
	}
	refreshInterval, err := getDurationEnv("REFRESH_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	burst, err := getIntEnv("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, err
	}
	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	contractHex := getEnv("BANK_CONTRACT_ADDRESS", defaultContractAddress)
	if !common.IsHexAddress(contractHex) {
		return nil, fmt.Errorf("invalid BANK_CONTRACT_ADDRESS: %q", contractHex)
	}

	// Parse allowed hosts (comma-separated list)
	var allowedHosts []string
	for _, host := range strings.Split(getEnv("ALLOWED_HOSTS", ""), ",") {
		if host = strings.TrimSpace(host); host != "" {
			allowedHosts = append(allowedHosts, host)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: allowedHosts,
		},
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", ""),
			MaxEntries: sessionMax,
			TTL:        sessionTTL,
		},
		Ethereum: EthereumConfig{
			RPCURL:          getEnv("ETH_RPC_URL", "http://127.0.0.1:8545"),
			ContractAddress: common.HexToAddress(contractHex),
			ConfirmTimeout:  confirmTimeout,
		},
		Wallet: WalletConfig{
			Mode:                 WalletMode(strings.ToLower(getEnv("WALLET_MODE", string(WalletClef)))),
			ClefEndpoint:         getEnv("CLEF_ENDPOINT", "http://127.0.0.1:8550"),
			KeystoreDir:          getEnv("KEYSTORE_DIR", ""),
			KeystorePasswordFile: getEnv("KEYSTORE_PASSWORD_FILE", ""),
		},
		Worker: WorkerConfig{
			Count:           workers,
			QueueSize:       queueSize,
			RefreshInterval: refreshInterval,
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
		Journal: JournalConfig{
			Backend: JournalBackend(strings.ToLower(getEnv("JOURNAL_BACKEND", string(JournalNone)))),
			Path:    getEnv("JOURNAL_PATH", "data/journal"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "gdbank"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "gdbank"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "gdbank-api"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
			Environment:  getEnv("ENVIRONMENT", "development"),
		},
		MessagesFile: getEnv("MESSAGES_FILE", ""),
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Session.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.Session.Secret) < 16 {
		return fmt.Errorf("SESSION_SECRET must be at least 16 bytes")
	}
	if c.Session.MaxEntries <= 0 {
		return fmt.Errorf("SESSION_MAX must be positive")
	}
	if c.Worker.Count <= 0 || c.Worker.QueueSize <= 0 {
		return fmt.Errorf("WORKER_COUNT and WORKER_QUEUE_SIZE must be positive")
	}
	if err := c.validateBackends(); err != nil {
		return err
	}

	if c.TLS.Enabled {
		if c.TLS.CertPath == "" {
			return fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if c.TLS.KeyPath == "" {
			return fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}
	return nil
}

func (c *Config) validateBackends() error {
	switch c.Wallet.Mode {
	case WalletClef, WalletNone:
	case WalletKeystore:
		if c.Wallet.KeystoreDir == "" {
			return fmt.Errorf("KEYSTORE_DIR is required when WALLET_MODE=keystore")
		}
	default:
		return fmt.Errorf("invalid WALLET_MODE: %q", c.Wallet.Mode)
	}

	switch c.Journal.Backend {
	case JournalNone, JournalPostgres, JournalLevelDB:
	default:
		return fmt.Errorf("invalid JOURNAL_BACKEND: %q", c.Journal.Backend)
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
