package utils

import (
	"errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type NetworkConfig struct {
	ChainID     uint64 `yaml:"chain_id"`
	Name        string `yaml:"name"`
	RPCURL      string `yaml:"rpc_url"`
	ExplorerURL string `yaml:"explorer_url"`
}

type Config struct {
	// Application
	AppEnv      string `yaml:"APP_ENV"`
	AppPort     string `yaml:"APP_PORT"`
	AppURL      string `yaml:"APP_URL"`
	LogLevel    string `yaml:"LOG_LEVEL"`
	CORSOrigins string `yaml:"CORS_ORIGINS"`

	// Database configuration
	DBUser     string `yaml:"DB_USER"`
	DBName     string `yaml:"DB_NAME"`
	DBPassword string `yaml:"DB_PASSWORD"`
	DBPort     string `yaml:"DB_PORT"`
	DBHost     string `yaml:"DB_HOST"`

	// Redis configuration
	RedisAddr     string `yaml:"REDIS_ADDR"`
	RedisPassword string `yaml:"REDIS_PASSWORD"`
	RedisDB       string `yaml:"REDIS_DB"`

	// JWT and wallet auth
	JWTSecret    string `yaml:"JWT_SECRET"`
	AdminWallets string `yaml:"ADMIN_WALLETS"`
	NonceTTL     string `yaml:"NONCE_TTL"`

	// Mailing configuration
	SMTPHost         string `yaml:"SMTP_HOST"`
	SMTPPort         string `yaml:"SMTP_PORT"`
	SMTPSenderName   string `yaml:"SMTP_SENDER_NAME"`
	SMTPAuthEmail    string `yaml:"SMTP_AUTH_EMAIL"`
	SMTPAuthPassword string `yaml:"SMTP_AUTH_PASSWORD"`
	AlertRecipients  string `yaml:"ALERT_RECIPIENTS"`
	AlertUrgency     string `yaml:"ALERT_URGENCY"`

	// Object storage configuration
	StorageDriver  string `yaml:"STORAGE_DRIVER"`
	AWSS3Bucket    string `yaml:"AWS_S3_BUCKET"`
	AWSS3Region    string `yaml:"AWS_S3_REGION"`
	AWSAccessKey   string `yaml:"AWS_ACCESS_KEY"`
	AWSSecretKey   string `yaml:"AWS_SECRET_KEY"`
	MinioEndpoint  string `yaml:"MINIO_ENDPOINT"`
	MinioAccessKey string `yaml:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `yaml:"MINIO_SECRET_KEY"`
	MinioBucket    string `yaml:"MINIO_BUCKET"`
	MinioUseSSL    bool   `yaml:"MINIO_USE_SSL"`
	MinioPublicURL string `yaml:"MINIO_PUBLIC_URL"`

	// Gemini API configuration
	GeminiAPIKey string `yaml:"GEMINI_API_KEY"`
	GeminiModel  string `yaml:"GEMINI_MODEL"`

	// Ledger configuration
	ChainID            string          `yaml:"CHAIN_ID"`
	BloodCampAddress   string          `yaml:"BLOODCAMP_ADDRESS"`
	OrganAddress       string          `yaml:"ORGAN_ADDRESS"`
	OperatorPrivateKey string          `yaml:"OPERATOR_PRIVATE_KEY"`
	LedgerReadTTL      string          `yaml:"LEDGER_READ_TTL"`
	LedgerFetchTimeout string          `yaml:"LEDGER_FETCH_TIMEOUT"`
	LedgerPollInterval string          `yaml:"LEDGER_POLL_INTERVAL"`
	Networks           []NetworkConfig `yaml:"NETWORKS"`
}

var (
	config   Config
	configMu sync.RWMutex
)

func LoadConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Error loading .env file: %s\n", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if err := LoadConfigFile(path); err != nil {
		log.Printf("Error reading YAML file: %s\n", err)
	}
}

// LoadConfigFile replaces the loaded configuration with the contents of path.
func LoadConfigFile(path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var loaded Config
	if err := yaml.Unmarshal(file, &loaded); err != nil {
		return err
	}

	configMu.Lock()
	config = loaded
	configMu.Unlock()
	return nil
}

// GetConfig returns the environment value for key when set, otherwise the
// value from config.yaml.
func GetConfig(key string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	configMu.RLock()
	defer configMu.RUnlock()

	switch key {
	case "APP_ENV":
		return config.AppEnv
	case "APP_PORT":
		return config.AppPort
	case "APP_URL":
		return config.AppURL
	case "LOG_LEVEL":
		return config.LogLevel
	case "CORS_ORIGINS":
		return config.CORSOrigins
	case "DB_USER":
		return config.DBUser
	case "DB_NAME":
		return config.DBName
	case "DB_PASSWORD":
		return config.DBPassword
	case "DB_PORT":
		return config.DBPort
	case "DB_HOST":
		return config.DBHost
	case "REDIS_ADDR":
		return config.RedisAddr
	case "REDIS_PASSWORD":
		return config.RedisPassword
	case "REDIS_DB":
		return config.RedisDB
	case "JWT_SECRET":
		return config.JWTSecret
	case "ADMIN_WALLETS":
		return config.AdminWallets
	case "NONCE_TTL":
		return config.NonceTTL
	case "SMTP_HOST":
		return config.SMTPHost
	case "SMTP_PORT":
		return config.SMTPPort
	case "SMTP_SENDER_NAME":
		return config.SMTPSenderName
	case "SMTP_AUTH_EMAIL":
		return config.SMTPAuthEmail
	case "SMTP_AUTH_PASSWORD":
		return config.SMTPAuthPassword
	case "ALERT_RECIPIENTS":
		return config.AlertRecipients
	case "ALERT_URGENCY":
		return config.AlertUrgency
	case "STORAGE_DRIVER":
		return config.StorageDriver
	case "AWS_S3_BUCKET":
		return config.AWSS3Bucket
	case "AWS_S3_REGION":
		return config.AWSS3Region
	case "AWS_ACCESS_KEY":
		return config.AWSAccessKey
	case "AWS_SECRET_KEY":
		return config.AWSSecretKey
	case "MINIO_ENDPOINT":
		return config.MinioEndpoint
	case "MINIO_ACCESS_KEY":
		return config.MinioAccessKey
	case "MINIO_SECRET_KEY":
		return config.MinioSecretKey
	case "MINIO_BUCKET":
		return config.MinioBucket
	case "MINIO_USE_SSL":
		return strconv.FormatBool(config.MinioUseSSL)
	case "MINIO_PUBLIC_URL":
		return config.MinioPublicURL
	case "GEMINI_API_KEY":
		return config.GeminiAPIKey
	case "GEMINI_MODEL":
		return config.GeminiModel
	case "CHAIN_ID":
		return config.ChainID
	case "BLOODCAMP_ADDRESS":
		return config.BloodCampAddress
	case "ORGAN_ADDRESS":
		return config.OrganAddress
	case "OPERATOR_PRIVATE_KEY":
		return config.OperatorPrivateKey
	case "LEDGER_READ_TTL":
		return config.LedgerReadTTL
	case "LEDGER_FETCH_TIMEOUT":
		return config.LedgerFetchTimeout
	case "LEDGER_POLL_INTERVAL":
		return config.LedgerPollInterval
	default:
		return ""
	}
}

// GetConfigOr returns fallback when key is unset.
func GetConfigOr(key, fallback string) string {
	if v := GetConfig(key); v != "" {
		return v
	}
	return fallback
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	v := GetConfig(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid duration for %s: %q, using %s\n", key, v, fallback)
		return fallback
	}
	return d
}

// GetList splits a comma separated value, dropping blanks.
func GetList(key string) []string {
	var out []string
	for _, part := range strings.Split(GetConfig(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetNetworks returns the configured networks, or the default set when the
// configuration has none.
func GetNetworks() []NetworkConfig {
	configMu.RLock()
	defer configMu.RUnlock()

	if len(config.Networks) == 0 {
		return append([]NetworkConfig(nil), DefaultNetworks...)
	}
	return append([]NetworkConfig(nil), config.Networks...)
}

var DefaultNetworks = []NetworkConfig{
	{ChainID: 84532, Name: "base-sepolia", RPCURL: "https://sepolia.base.org", ExplorerURL: "https://sepolia.basescan.org"},
	{ChainID: 1, Name: "mainnet", RPCURL: "https://eth.llamarpc.com", ExplorerURL: "https://etherscan.io"},
	{ChainID: 11155111, Name: "sepolia", RPCURL: "https://rpc.sepolia.org", ExplorerURL: "https://sepolia.etherscan.io"},
	{ChainID: 137, Name: "polygon", RPCURL: "https://polygon-rpc.com", ExplorerURL: "https://polygonscan.com"},
	{ChainID: 10, Name: "optimism", RPCURL: "https://mainnet.optimism.io", ExplorerURL: "https://optimistic.etherscan.io"},
	{ChainID: 42161, Name: "arbitrum", RPCURL: "https://arb1.arbitrum.io/rpc", ExplorerURL: "https://arbiscan.io"},
	{ChainID: 8453, Name: "base", RPCURL: "https://mainnet.base.org", ExplorerURL: "https://basescan.org"},
}
