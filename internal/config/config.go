// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort           string `mapstructure:"http_port"`
	CORSOrigin         string `mapstructure:"cors_origin"`
	DataDir            string `mapstructure:"data_dir"`
	LogFile            string `mapstructure:"log_file"`
	DebugLogging       bool   `mapstructure:"debug_logging"`
	MaxUploadMB        int64  `mapstructure:"max_upload_mb"`
	ChainID            int    `mapstructure:"chain_id"`
	SuiRPCURL          string `mapstructure:"sui_rpc_url"`
	SuiPrivateKey      string `mapstructure:"sui_private_key"`
	CurvePackageID     string `mapstructure:"curve_package_id"`
	TreasuryProviderID string `mapstructure:"treasury_provider_id"`
	GasBudget          uint64 `mapstructure:"gas_budget"`
	ReadRetries        int    `mapstructure:"read_retries"`
	ReadRetryDelayMs   int    `mapstructure:"read_retry_delay_ms"`
	TuskyAPIKey        string `mapstructure:"tusky_api_key"`
	TuskyBaseURL       string `mapstructure:"tusky_base_url"`
	TuskyVaultID       string `mapstructure:"tusky_vault_id"`
	TuskyUseEncryption bool   `mapstructure:"tusky_use_encryption"`
}

const (
	DefaultHTTPPort         = "8080"
	DefaultCORSOrigin       = "http://localhost:3000"
	DefaultDataDir          = "data"
	DefaultLogFile          = "dataforge.log"
	DefaultMaxUploadMB      = 50
	DefaultChainID          = 102
	DefaultReadRetries      = 3
	DefaultReadRetryDelayMs = 1000
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"http_port":           DefaultHTTPPort,
		"cors_origin":         DefaultCORSOrigin,
		"data_dir":            DefaultDataDir,
		"log_file":            DefaultLogFile,
		"max_upload_mb":       DefaultMaxUploadMB,
		"chain_id":            DefaultChainID,
		"read_retries":        DefaultReadRetries,
		"read_retry_delay_ms": DefaultReadRetryDelayMs,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

// ReadRetryDelay returns the configured fixed delay between curve state
// read attempts.
func (c *Config) ReadRetryDelay() time.Duration {
	return time.Duration(c.ReadRetryDelayMs) * time.Millisecond
}

// MaxUploadBytes returns the multipart upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func validateConfig(cfg *Config) error {
	if cfg.SuiRPCURL == "" {
		return errors.New("missing sui_rpc_url in configuration")
	}
	if err := validateURL(cfg.SuiRPCURL, "http"); err != nil {
		return errors.New("invalid sui_rpc_url protocol")
	}
	if cfg.SuiPrivateKey == "" {
		return errors.New("missing sui_private_key in configuration")
	}
	if cfg.CurvePackageID == "" {
		return errors.New("missing curve_package_id in configuration")
	}
	if cfg.TreasuryProviderID == "" {
		return errors.New("missing treasury_provider_id in configuration")
	}
	if cfg.TuskyAPIKey == "" {
		return errors.New("missing tusky_api_key in configuration")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.MaxUploadMB <= 0 {
		return errors.New("invalid max_upload_mb")
	}
	if cfg.ReadRetries <= 0 {
		return errors.New("invalid read_retries count")
	}
	if cfg.ReadRetryDelayMs <= 0 {
		return errors.New("invalid read_retry_delay_ms")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

// loadEnvironmentVariables overrides credentials and identifiers from the
// environment so secrets never need to live in the config file.
func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("DATAFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	overrides := []struct {
		key  string
		dest *string
	}{
		{"SUI_RPC_URL", &cfg.SuiRPCURL},
		{"SUI_PRIVATE_KEY", &cfg.SuiPrivateKey},
		{"CURVE_PACKAGE_ID", &cfg.CurvePackageID},
		{"TREASURY_PROVIDER_ID", &cfg.TreasuryProviderID},
		{"TUSKY_API_KEY", &cfg.TuskyAPIKey},
		{"TUSKY_VAULT_ID", &cfg.TuskyVaultID},
	}
	for _, o := range overrides {
		if value := v.GetString(o.key); value != "" {
			*o.dest = value
		}
	}
	return nil
}
