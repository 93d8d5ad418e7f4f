package paywall

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfigRequiresProviderCredentials(t *testing.T) {
	_, err := LoadConfig(env(map[string]string{"JWT_SECRET": "s"}))
	require.ErrorIs(t, err, ErrConfig)

	_, err = LoadConfig(env(map[string]string{"PAYPAL_CLIENT_ID": "id", "JWT_SECRET": "s"}))
	require.ErrorIs(t, err, ErrConfig)
}

func TestLoadConfigSigningSecret(t *testing.T) {
	base := map[string]string{"PAYPAL_CLIENT_ID": "id", "PAYPAL_CLIENT_SECRET": "secret"}

	t.Run("required in production", func(t *testing.T) {
		_, err := LoadConfig(env(base))
		require.ErrorIs(t, err, ErrConfig)
	})

	t.Run("development default refused in production", func(t *testing.T) {
		m := map[string]string{"JWT_SECRET": devSigningSecret}
		for k, v := range base {
			m[k] = v
		}
		_, err := LoadConfig(env(m))
		require.ErrorIs(t, err, ErrConfig)
	})

	t.Run("development falls back", func(t *testing.T) {
		m := map[string]string{"NODE_ENV": "development"}
		for k, v := range base {
			m[k] = v
		}
		cfg, err := LoadConfig(env(m))
		require.NoError(t, err)
		require.True(t, cfg.DevSigningSecret)
		require.Equal(t, devSigningSecret, cfg.SigningSecret)
		require.False(t, cfg.Production())
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(env(map[string]string{
		"PAYPAL_CLIENT_ID":     "id",
		"PAYPAL_CLIENT_SECRET": "secret",
		"JWT_SECRET":           "jwt",
	}))
	require.NoError(t, err)

	require.True(t, cfg.Production())
	require.Equal(t, ":10000", cfg.HTTPAddr)
	require.Equal(t, "https://meuqianimal.com.br", cfg.AppBaseURL)
	require.Equal(t, 15*time.Second, cfg.PayPal.Timeout)
	require.Equal(t, 7*24*time.Hour, cfg.CredentialTTL)
	require.Equal(t, "/public/bloqueado.html", cfg.BlockedPath)

	cat, err := cfg.Catalog()
	require.NoError(t, err)
	require.Equal(t, []string{"cachorro", "predador"}, cat.Tiers())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	cfg, err := LoadConfig(env(map[string]string{
		"PAYPAL_CLIENT_ID":     "id",
		"PAYPAL_CLIENT_SECRET": "secret",
		"PAYPAL_API_BASE":      "sandbox",
		"PAYPAL_TIMEOUT":       "3s",
		"JWT_SECRET":           "jwt",
		"CREDENTIAL_TTL":       "1d",
		"APP_ENV":              "staging",
		"PORT":                 "8080",
		"RATE_RPS":             "2.5",
		"RATE_BURST":           "4",
		"TRUST_PROXY":          "true",
	}))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "sandbox", cfg.PayPal.APIBase)
	require.Equal(t, 3*time.Second, cfg.PayPal.Timeout)
	require.Equal(t, 24*time.Hour, cfg.CredentialTTL)
	require.False(t, cfg.Production())
	require.Equal(t, 2.5, cfg.RateRPS)
	require.Equal(t, 4, cfg.RateBurst)
	require.True(t, cfg.TrustProxy)
}

func TestLoadConfigRejectsMalformedValues(t *testing.T) {
	for _, kv := range [][2]string{
		{"PORT", "http"},
		{"PAYPAL_TIMEOUT", "soon"},
		{"PAYPAL_API_BASE", "not a url"},
		{"CREDENTIAL_TTL", "-1h"},
		{"RATE_BURST", "0"},
		{"APP_BASE_URL", "meuqianimal.com.br"},
		{"BLOCKED_PATH", "bloqueado.html"},
	} {
		m := map[string]string{
			"PAYPAL_CLIENT_ID":     "id",
			"PAYPAL_CLIENT_SECRET": "secret",
			"JWT_SECRET":           "jwt",
			kv[0]:                  kv[1],
		}
		_, err := LoadConfig(env(m))
		require.Error(t, err, kv[0])
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paywall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
app:
  env: development
  brand_name: Loja Teste
paypal:
  client_id: file-id
  client_secret: file-secret
  api_base: sandbox
  timeout: 4s
credential:
  secret: file-jwt
  ttl: 2d
catalog:
  products:
    - id: gato
      currency: BRL
      amount: "2.50"
      label: Gato
`), 0o644))

	cfg, err := LoadConfig(env(map[string]string{
		"CONFIG_FILE":      path,
		"PAYPAL_CLIENT_ID": "env-id",
	}))
	require.NoError(t, err)

	require.Equal(t, ":9000", cfg.HTTPAddr)
	require.Equal(t, "Loja Teste", cfg.BrandName)
	require.Equal(t, "env-id", cfg.PayPal.ClientID)
	require.Equal(t, "file-secret", cfg.PayPal.ClientSecret)
	require.Equal(t, 4*time.Second, cfg.PayPal.Timeout)
	require.Equal(t, "file-jwt", cfg.SigningSecret)
	require.Equal(t, 48*time.Hour, cfg.CredentialTTL)

	cat, err := cfg.Catalog()
	require.NoError(t, err)
	p, err := cat.Lookup("gato")
	require.NoError(t, err)
	require.Equal(t, "2.50", p.Amount)
}

func TestLoadConfigFileRejectsBadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paywall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog:
  products:
    - id: gato
      currency: BRL
      amount: "2.5"
`), 0o644))

	_, err := LoadConfig(env(map[string]string{
		"CONFIG_FILE":          path,
		"PAYPAL_CLIENT_ID":     "id",
		"PAYPAL_CLIENT_SECRET": "secret",
		"JWT_SECRET":           "jwt",
	}))
	require.ErrorIs(t, err, ErrConfig)
}
