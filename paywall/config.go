package paywall

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/meuqianimal/paywall/internal/catalog"
	"github.com/meuqianimal/paywall/internal/expiry"
	"github.com/meuqianimal/paywall/internal/paypal"
	"github.com/meuqianimal/paywall/paywall/models"
	"gopkg.in/yaml.v3"
)

// devSigningSecret is only accepted outside production.
const devSigningSecret = "change-me-please"

var ErrConfig = errors.New("invalid configuration")

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	HTTPAddr string
	// Env is "production" unless told otherwise; it controls cookie Secure.
	Env        string
	AppBaseURL string
	BrandName  string

	PayPal PayPalConfig

	SigningSecret string
	// DevSigningSecret is set when SigningSecret fell back to the development default.
	DevSigningSecret bool
	CredentialTTL    time.Duration

	PublicDir    string
	ProtectedDir string
	BlockedPath  string

	RateRPS    float64
	RateBurst  int
	TrustProxy bool

	Products []models.Product
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	// APIBase is "live", "sandbox" or an absolute URL.
	APIBase     string
	Timeout     time.Duration
	CacheTokens bool
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:   ":10000",
		Env:        "production",
		AppBaseURL: "https://meuqianimal.com.br",
		BrandName:  "Meu QI Animal",
		PayPal: PayPalConfig{
			APIBase:     "live",
			Timeout:     15 * time.Second,
			CacheTokens: true,
		},
		CredentialTTL: expiry.DefaultWindow,
		PublicDir:     "public",
		ProtectedDir:  "protected",
		BlockedPath:   "/public/bloqueado.html",
		RateRPS:       5,
		RateBurst:     10,
	}
}

func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

// Catalog builds the price catalog, falling back to the built-in one.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	if len(c.Products) == 0 {
		return catalog.Default(), nil
	}
	return catalog.New(c.Products)
}

type fileConfig struct {
	Server struct {
		Port       int   `yaml:"port"`
		TrustProxy *bool `yaml:"trust_proxy"`
	} `yaml:"server"`
	App struct {
		Env       string `yaml:"env"`
		BaseURL   string `yaml:"base_url"`
		BrandName string `yaml:"brand_name"`
	} `yaml:"app"`
	PayPal struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		APIBase      string `yaml:"api_base"`
		Timeout      string `yaml:"timeout"`
		CacheTokens  *bool  `yaml:"cache_tokens"`
	} `yaml:"paypal"`
	Credential struct {
		Secret string `yaml:"secret"`
		TTL    string `yaml:"ttl"`
	} `yaml:"credential"`
	Content struct {
		PublicDir    string `yaml:"public_dir"`
		ProtectedDir string `yaml:"protected_dir"`
		BlockedPath  string `yaml:"blocked_path"`
	} `yaml:"content"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"ratelimit"`
	Catalog struct {
		Products []models.Product `yaml:"products"`
	} `yaml:"catalog"`
}

// LoadConfig reads the optional YAML file named by CONFIG_FILE, then applies
// environment overrides, then validates. lookup is usually os.Getenv.
func LoadConfig(lookup func(string) string) (*Config, error) {
	if lookup == nil {
		lookup = os.Getenv
	}
	getenv := func(k, def string) string {
		if v := lookup(k); v != "" {
			return v
		}
		return def
	}

	cfg := DefaultConfig()

	if path := lookup("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if port := lookup("PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("%w: PORT=%q", ErrConfig, port)
		}
		cfg.HTTPAddr = ":" + strconv.Itoa(n)
	}
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.Env = getenv("APP_ENV", getenv("NODE_ENV", cfg.Env))
	cfg.AppBaseURL = getenv("APP_BASE_URL", cfg.AppBaseURL)
	cfg.BrandName = getenv("BRAND_NAME", cfg.BrandName)

	cfg.PayPal.ClientID = getenv("PAYPAL_CLIENT_ID", cfg.PayPal.ClientID)
	cfg.PayPal.ClientSecret = getenv("PAYPAL_CLIENT_SECRET", cfg.PayPal.ClientSecret)
	cfg.PayPal.APIBase = getenv("PAYPAL_API_BASE", cfg.PayPal.APIBase)
	if v := lookup("PAYPAL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%w: PAYPAL_TIMEOUT: %v", ErrConfig, err)
		}
		cfg.PayPal.Timeout = d
	}
	if v := lookup("PAYPAL_CACHE_TOKENS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: PAYPAL_CACHE_TOKENS: %v", ErrConfig, err)
		}
		cfg.PayPal.CacheTokens = b
	}

	cfg.SigningSecret = getenv("JWT_SECRET", cfg.SigningSecret)
	if v := lookup("CREDENTIAL_TTL"); v != "" {
		d, err := expiry.ParseWindow(v)
		if err != nil {
			return nil, fmt.Errorf("%w: CREDENTIAL_TTL: %v", ErrConfig, err)
		}
		cfg.CredentialTTL = d
	}

	cfg.PublicDir = getenv("PUBLIC_DIR", cfg.PublicDir)
	cfg.ProtectedDir = getenv("PROTECTED_DIR", cfg.ProtectedDir)
	cfg.BlockedPath = getenv("BLOCKED_PATH", cfg.BlockedPath)

	if v := lookup("RATE_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: RATE_RPS: %v", ErrConfig, err)
		}
		cfg.RateRPS = f
	}
	if v := lookup("RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: RATE_BURST: %v", ErrConfig, err)
		}
		cfg.RateBurst = n
	}
	if v := lookup("TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: TRUST_PROXY: %v", ErrConfig, err)
		}
		cfg.TrustProxy = b
	}

	if cfg.SigningSecret == "" && !cfg.Production() {
		cfg.SigningSecret = devSigningSecret
		cfg.DevSigningSecret = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if f.Server.Port != 0 {
		c.HTTPAddr = ":" + strconv.Itoa(f.Server.Port)
	}
	if f.Server.TrustProxy != nil {
		c.TrustProxy = *f.Server.TrustProxy
	}
	setString(&c.Env, f.App.Env)
	setString(&c.AppBaseURL, f.App.BaseURL)
	setString(&c.BrandName, f.App.BrandName)

	setString(&c.PayPal.ClientID, f.PayPal.ClientID)
	setString(&c.PayPal.ClientSecret, f.PayPal.ClientSecret)
	setString(&c.PayPal.APIBase, f.PayPal.APIBase)
	if f.PayPal.Timeout != "" {
		d, err := time.ParseDuration(f.PayPal.Timeout)
		if err != nil {
			return fmt.Errorf("%w: paypal.timeout: %v", ErrConfig, err)
		}
		c.PayPal.Timeout = d
	}
	if f.PayPal.CacheTokens != nil {
		c.PayPal.CacheTokens = *f.PayPal.CacheTokens
	}

	setString(&c.SigningSecret, f.Credential.Secret)
	if f.Credential.TTL != "" {
		d, err := expiry.ParseWindow(f.Credential.TTL)
		if err != nil {
			return fmt.Errorf("%w: credential.ttl: %v", ErrConfig, err)
		}
		c.CredentialTTL = d
	}

	setString(&c.PublicDir, f.Content.PublicDir)
	setString(&c.ProtectedDir, f.Content.ProtectedDir)
	setString(&c.BlockedPath, f.Content.BlockedPath)

	if f.RateLimit.RPS != 0 {
		c.RateRPS = f.RateLimit.RPS
	}
	if f.RateLimit.Burst != 0 {
		c.RateBurst = f.RateLimit.Burst
	}
	if len(f.Catalog.Products) > 0 {
		c.Products = f.Catalog.Products
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate reports the first missing or malformed option.
func (c *Config) Validate() error {
	if c.PayPal.ClientID == "" || c.PayPal.ClientSecret == "" {
		return fmt.Errorf("%w: PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET are required", ErrConfig)
	}
	if c.SigningSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required in production", ErrConfig)
	}
	if c.Production() && c.SigningSecret == devSigningSecret {
		return fmt.Errorf("%w: JWT_SECRET must not use the development default in production", ErrConfig)
	}
	if _, err := paypal.ResolveBaseURL(c.PayPal.APIBase); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if c.PayPal.Timeout <= 0 {
		return fmt.Errorf("%w: paypal timeout must be positive", ErrConfig)
	}
	if c.CredentialTTL <= 0 {
		return fmt.Errorf("%w: credential ttl must be positive", ErrConfig)
	}
	if !strings.HasPrefix(c.AppBaseURL, "http://") && !strings.HasPrefix(c.AppBaseURL, "https://") {
		return fmt.Errorf("%w: APP_BASE_URL must be an http(s) URL", ErrConfig)
	}
	if !strings.HasPrefix(c.BlockedPath, "/") {
		return fmt.Errorf("%w: BLOCKED_PATH must be an absolute path", ErrConfig)
	}
	if c.RateRPS <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("%w: rate limit rps and burst must be positive", ErrConfig)
	}
	if _, err := c.Catalog(); err != nil {
		return fmt.Errorf("%w: catalog: %v", ErrConfig, err)
	}
	return nil
}
