package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "memory", cfg.Store.Driver)
	require.Equal(t, 24*time.Hour, cfg.Confirmation.TTL)
	require.Equal(t, "file", cfg.DeliveryLog.Driver)
	require.Equal(t, "auto", cfg.SMTP.TLS)
	require.Equal(t, time.Hour, cfg.Rate.Window)
	require.Equal(t, "en", cfg.Apps.DefaultLang)
}

func TestLoad_YAMLAndRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
apps:
  applications_path: apps.yml
  templates_dir: templates
store:
  driver: redis
confirmation:
  ttl: 2h
  domain_blocklist: [spam.example]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "redis", cfg.Store.Driver)
	require.Equal(t, 2*time.Hour, cfg.Confirmation.TTL)
	require.Equal(t, []string{"spam.example"}, cfg.Confirmation.DomainBlocklist)

	// rutas relativas al YAML
	require.Equal(t, filepath.Join(dir, "apps.yml"), cfg.Apps.ApplicationsPath)
	require.Equal(t, filepath.Join(dir, "templates"), cfg.Apps.TemplatesDir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("STORE_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("CONFIRMATION_TTL", "30m")
	t.Setenv("CONFIRMATION_DOMAIN_BLOCKLIST", "a.example, b.example")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Server.Addr)
	require.Equal(t, "redis", cfg.Store.Driver)
	require.Equal(t, "redis.internal:6379", cfg.Store.Redis.Addr)
	require.Equal(t, 30*time.Minute, cfg.Confirmation.TTL)
	require.Equal(t, []string{"a.example", "b.example"}, cfg.Confirmation.DomainBlocklist)
}

func TestLoad_ProdForcesTLSVerify(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SMTP_INSECURE_SKIP_VERIFY", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.False(t, cfg.SMTP.InsecureSkipVerify)
}

func TestLoad_UnknownDriversRejected(t *testing.T) {
	t.Setenv("STORE_DRIVER", "etcd")
	_, err := Load("")
	require.Error(t, err)
}
