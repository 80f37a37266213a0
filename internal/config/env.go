package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Environment variables read by ApplyEnv.
const (
	EnvHFToken        = "HF_TOKEN"
	EnvGroqAPIKey     = "GROQ_API_KEY"
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvAllowedOrigins = "ALLOWED_ORIGINS"
	EnvMinioAccessKey = "MINIO_ACCESS_KEY"
	EnvMinioSecretKey = "MINIO_SECRET_KEY"
)

// ApplyEnv copies secrets and overrides from the environment into cfg.
// Call it after ApplyDefaults so provider-specific keys land in the right place.
func ApplyEnv(cfg *Config) error {
	hfToken := os.Getenv(EnvHFToken)
	cfg.Redact.Token = hfToken
	switch cfg.Embedding.Provider {
	case "huggingface":
		cfg.Embedding.APIKey = hfToken
	case "openai":
		cfg.Embedding.APIKey = os.Getenv(EnvOpenAIAPIKey)
	}
	cfg.Chat.APIKey = os.Getenv(EnvGroqAPIKey)
	cfg.Blob.Minio.AccessKey = os.Getenv(EnvMinioAccessKey)
	cfg.Blob.Minio.SecretKey = os.Getenv(EnvMinioSecretKey)

	if raw := os.Getenv(EnvAllowedOrigins); raw != "" {
		var origins []string
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			cfg.Server.AllowedOrigins = origins
		}
	}

	if raw := os.Getenv(EnvDatabaseURL); raw != "" {
		driver, dsn, err := ParseDatabaseURL(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDatabaseURL, err)
		}
		cfg.Storage.Driver = driver
		cfg.Storage.DSN = dsn
		if driver == "sqlite3" {
			cfg.Storage.DatabasePath = dsn
		}
	}
	return nil
}

// ParseDatabaseURL maps a SQLAlchemy-style database URL to a database/sql driver and DSN.
// Async driver suffixes such as "+asyncpg" are ignored.
//
//	postgresql+asyncpg://u:p@host:5432/db -> postgres, postgres://u:p@host:5432/db
//	mysql://u:p@host:3306/db              -> mysql, u:p@tcp(host:3306)/db?parseTime=true
//	sqlite:///data/guardrail.db           -> sqlite3, data/guardrail.db
func ParseDatabaseURL(raw string) (driver, dsn string, err error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return "", "", fmt.Errorf("invalid database URL: missing scheme")
	}
	scheme, _, _ = strings.Cut(strings.ToLower(scheme), "+")

	switch scheme {
	case "postgres", "postgresql":
		return "postgres", "postgres://" + rest, nil
	case "mysql", "mariadb":
		u, err := url.Parse("mysql://" + rest)
		if err != nil {
			return "", "", fmt.Errorf("invalid mysql URL: %w", err)
		}
		mc := mysql.NewConfig()
		mc.User = u.User.Username()
		mc.Passwd, _ = u.User.Password()
		mc.Net = "tcp"
		mc.Addr = u.Host
		if u.Port() == "" {
			mc.Addr = net.JoinHostPort(u.Hostname(), "3306")
		}
		mc.DBName = strings.TrimPrefix(u.Path, "/")
		mc.ParseTime = true
		return "mysql", mc.FormatDSN(), nil
	case "sqlite", "sqlite3":
		path := strings.TrimPrefix(rest, "/")
		if path == "" {
			return "", "", fmt.Errorf("invalid sqlite URL: missing path")
		}
		return "sqlite3", path, nil
	default:
		return "", "", fmt.Errorf("unsupported database scheme %q", scheme)
	}
}
