// Package config carga la configuración del servicio: YAML + overrides por
// variables de entorno + defaults sanos.
//
// La config de servicio es infraestructura (addrs, credenciales, paths); la
// configuración declarativa de aplicaciones vive aparte, en los archivos que
// carga el registry de appconfig.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// BaseURL pública, para armar los links de confirmación.
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	// Archivos declarativos de aplicaciones y templates.
	Apps struct {
		ApplicationsPath string `yaml:"applications_path"`
		TemplatesPath    string `yaml:"templates_path"`
		TemplatesDir     string `yaml:"templates_dir"`
		DefaultLang      string `yaml:"default_lang"`
	} `yaml:"apps"`

	Store struct {
		Driver string `yaml:"driver"` // redis | memory
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"store"`

	Confirmation struct {
		TTL time.Duration `yaml:"ttl"`
		// Dominios bloqueados para direcciones de confirmación.
		DomainBlocklist []string `yaml:"domain_blocklist"`
	} `yaml:"confirmation"`

	DeliveryLog struct {
		Driver     string `yaml:"driver"` // file | postgres
		FilePrefix string `yaml:"file_prefix"`
		DSN        string `yaml:"dsn"`
	} `yaml:"delivery_log"`

	SMTP struct {
		Host               string        `yaml:"host"`
		Port               int           `yaml:"port"`
		Username           string        `yaml:"username"`
		Password           string        `yaml:"password"`
		TLS                string        `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool          `yaml:"insecure_skip_verify"` // sólo dev
		Timeout            time.Duration `yaml:"timeout"`
	} `yaml:"smtp"`

	CD struct {
		URL        string        `yaml:"url"`
		Passphrase string        `yaml:"passphrase"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"cd"`

	Rate struct {
		Enabled bool          `yaml:"enabled"`
		Window  time.Duration `yaml:"window"`
	} `yaml:"rate"`

	Log struct {
		Env   string `yaml:"env"`   // dev | prod
		Level string `yaml:"level"` // debug | info | warn | error
	} `yaml:"log"`
}

func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Apps.ApplicationsPath == "" {
		c.Apps.ApplicationsPath = "./configuration/applications.yml"
	}
	if c.Apps.TemplatesPath == "" {
		c.Apps.TemplatesPath = "./configuration/templates.yml"
	}
	if c.Apps.TemplatesDir == "" {
		c.Apps.TemplatesDir = "./configuration/templates"
	}
	if c.Apps.DefaultLang == "" {
		c.Apps.DefaultLang = "en"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = "formgate:"
	}
	if c.Confirmation.TTL == 0 {
		c.Confirmation.TTL = 24 * time.Hour
	}
	if c.DeliveryLog.Driver == "" {
		c.DeliveryLog.Driver = "file"
	}
	if c.DeliveryLog.FilePrefix == "" {
		c.DeliveryLog.FilePrefix = "./data/store/"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 25
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.SMTP.Timeout == 0 {
		c.SMTP.Timeout = 10 * time.Second
	}
	if c.CD.Timeout == 0 {
		c.CD.Timeout = 3 * time.Second
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Hour
	}
	if c.Log.Env == "" {
		c.Log.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.applyEnvOverrides()

	if err := c.validate(); err != nil {
		return nil, err
	}

	// Normalizar paths relativos respecto al directorio del YAML
	if path != "" {
		base := filepath.Dir(path)
		for _, p := range []*string{
			&c.Apps.ApplicationsPath,
			&c.Apps.TemplatesPath,
			&c.Apps.TemplatesDir,
		} {
			if *p != "" && !filepath.IsAbs(*p) {
				*p = filepath.Clean(filepath.Join(base, *p))
			}
		}
	}

	return &c, nil
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch c.DeliveryLog.Driver {
	case "file", "postgres":
	default:
		return fmt.Errorf("config: unknown delivery log driver %q", c.DeliveryLog.Driver)
	}
	if c.DeliveryLog.Driver == "postgres" && c.DeliveryLog.DSN == "" {
		return fmt.Errorf("config: delivery log driver postgres requires a dsn")
	}
	return nil
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}

	// APPS
	if v, ok := getEnvStr("APPS_APPLICATIONS_PATH"); ok {
		c.Apps.ApplicationsPath = v
	}
	if v, ok := getEnvStr("APPS_TEMPLATES_PATH"); ok {
		c.Apps.TemplatesPath = v
	}
	if v, ok := getEnvStr("APPS_TEMPLATES_DIR"); ok {
		c.Apps.TemplatesDir = v
	}
	if v, ok := getEnvStr("APPS_DEFAULT_LANG"); ok {
		c.Apps.DefaultLang = v
	}

	// STORE
	if v, ok := getEnvStr("STORE_DRIVER"); ok {
		c.Store.Driver = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Store.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Store.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Store.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Store.Redis.Prefix = v
	}

	// CONFIRMATION
	if v, ok := getEnvDur("CONFIRMATION_TTL"); ok {
		c.Confirmation.TTL = v
	}
	if v, ok := getEnvCSV("CONFIRMATION_DOMAIN_BLOCKLIST"); ok {
		c.Confirmation.DomainBlocklist = v
	}

	// DELIVERY LOG
	if v, ok := getEnvStr("DELIVERY_LOG_DRIVER"); ok {
		c.DeliveryLog.Driver = v
	}
	if v, ok := getEnvStr("DELIVERY_LOG_FILE_PREFIX"); ok {
		c.DeliveryLog.FilePrefix = v
	}
	if v, ok := getEnvStr("DELIVERY_LOG_DSN"); ok {
		c.DeliveryLog.DSN = v
	}

	// SMTP
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = v
	}
	if v, ok := getEnvBool("SMTP_INSECURE_SKIP_VERIFY"); ok {
		c.SMTP.InsecureSkipVerify = v
	}
	if v, ok := getEnvDur("SMTP_TIMEOUT"); ok {
		c.SMTP.Timeout = v
	}

	// CD
	if v, ok := getEnvStr("CD_URL"); ok {
		c.CD.URL = v
	}
	if v, ok := getEnvStr("CD_PASSPHRASE"); ok {
		c.CD.Passphrase = v
	}
	if v, ok := getEnvDur("CD_TIMEOUT"); ok {
		c.CD.Timeout = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_ENV"); ok {
		c.Log.Env = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// Guardia dura: en prod el SMTP nunca salta la verificación TLS.
	if strings.EqualFold(c.App.Env, "prod") {
		c.SMTP.InsecureSkipVerify = false
	}
}
