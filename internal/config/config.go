package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	SMTPHost, WebHost, Domain, BaseURL, JWTSecret, CertFile, KeyFile string
	SMTPPort, WebPort                                                int

	// durable token store
	DBDriver, DBDSN, DataDir string

	// the real mail host behind this gateway; mail for Domain is
	// handed to it after a relay decision
	UpstreamHost string
	UpstreamPort int

	// bcrypt hash of the single admin password for the token API
	AdminPasswordHash string
}

func Load() (Config, error) {

	viper.SetDefault("smtp.host", "0.0.0.0")
	viper.SetDefault("smtp.port", 2525)
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)
	viper.SetDefault("domain", "example.com")
	viper.SetDefault("upstream.host", "127.0.0.1")
	viper.SetDefault("upstream.port", 25)
	viper.SetDefault("db.driver", "sqlite3")
	viper.SetDefault("data_dir", "./data")

	_ = viper.ReadInConfig() // ignore missing config file

	c := Config{
		SMTPHost:          viper.GetString("smtp.host"),
		SMTPPort:          viper.GetInt("smtp.port"),
		WebHost:           viper.GetString("web.host"),
		WebPort:           viper.GetInt("web.port"),
		Domain:            viper.GetString("domain"),
		BaseURL:           viper.GetString("base_url"),
		UpstreamHost:      viper.GetString("upstream.host"),
		UpstreamPort:      viper.GetInt("upstream.port"),
		DBDriver:          viper.GetString("db.driver"),
		DBDSN:             viper.GetString("db.dsn"),
		DataDir:           viper.GetString("data_dir"),
		JWTSecret:         viper.GetString("jwt_secret"),
		AdminPasswordHash: viper.GetString("admin_password_hash"),
		CertFile:          viper.GetString("tls.cert_file"),
		KeyFile:           viper.GetString("tls.key_file"),
	}

	// ---- OVERRIDE WITH ENV VARS (STRICT) ----
	if v := os.Getenv("SAFESEND_DOMAIN"); v != "" {
		c.Domain = v
	}
	if v := os.Getenv("SAFESEND_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("SAFESEND_DB_DRIVER"); v != "" {
		c.DBDriver = v
	}
	if v := os.Getenv("SAFESEND_DB_DSN"); v != "" {
		c.DBDSN = v
	}
	if v := os.Getenv("SAFESEND_UPSTREAM_HOST"); v != "" {
		c.UpstreamHost = v
	}
	if v := os.Getenv("SAFESEND_UPSTREAM_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &c.UpstreamPort)
	}
	if v := os.Getenv("SAFESEND_SMTP_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &c.SMTPPort)
	}
	if v := os.Getenv("SAFESEND_WEB_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &c.WebPort)
	}
	if v := os.Getenv("SAFESEND_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("SAFESEND_ADMIN_PASSWORD_HASH"); v != "" {
		c.AdminPasswordHash = v
	}

	// validation links default to the web listener
	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("http://%s:%d", c.WebHost, c.WebPort)
	}

	// ---- CREATE DATA DIR, DEFAULT SQLITE DSN ----
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("mkdir data dir: %w", err)
	}
	if c.DBDSN == "" && c.DBDriver == "sqlite3" {
		c.DBDSN = filepath.Join(c.DataDir, "tokens.db") + "?_busy_timeout=5000"
	}

	return c, nil
}
