// Package config loads server settings from defaults, an optional YAML
// file, CONTACTS_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable, e.g. CONTACTS_JWT_SECRET.
const EnvPrefix = "CONTACTS_"

// MinSecretLength is the shortest accepted JWT secret.
const MinSecretLength = 32

type Config struct {
	HTTP   HTTPConfig   `koanf:"http"`
	DB     DBConfig     `koanf:"db"`
	JWT    JWTConfig    `koanf:"jwt"`
	Bcrypt BcryptConfig `koanf:"bcrypt"`
	Cache  CacheConfig  `koanf:"cache"`
	Mail   MailConfig   `koanf:"mail"`
	Avatar AvatarConfig `koanf:"avatar"`
	S3     S3Config     `koanf:"s3"`
	Log    LogConfig    `koanf:"log"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
	// PublicURL is the externally visible base URL used in emailed links
	// and avatar URLs.
	PublicURL string `koanf:"public_url"`
}

type DBConfig struct {
	Driver string `koanf:"driver"` // sqlite or postgres
	DSN    string `koanf:"dsn"`    // file path for sqlite, URL for postgres
}

type JWTConfig struct {
	Secret    string        `koanf:"secret"`
	Algorithm string        `koanf:"algorithm"`
	TTL       time.Duration `koanf:"ttl"`
}

type BcryptConfig struct {
	Cost int `koanf:"cost"`
}

type CacheConfig struct {
	Driver   string        `koanf:"driver"` // memory, redis or none
	RedisURL string        `koanf:"redis_url"`
	TTL      time.Duration `koanf:"ttl"`
}

type MailConfig struct {
	Driver    string `koanf:"driver"` // log or smtp
	Host      string `koanf:"host"`
	Port      int    `koanf:"port"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
	From      string `koanf:"from"`
	FromName  string `koanf:"from_name"`
	Workers   int    `koanf:"workers"`
	QueueSize int    `koanf:"queue_size"`
}

type AvatarConfig struct {
	Store string `koanf:"store"` // db or s3
}

type S3Config struct {
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
}

type LogConfig struct {
	Format string `koanf:"format"` // text, json or both
	Level  string `koanf:"level"`
}

var defaults = map[string]any{
	"http.addr":       ":8080",
	"http.public_url": "http://localhost:8080",
	"db.driver":       "sqlite",
	"db.dsn":          "contacts.db",
	"jwt.algorithm":   "HS256",
	"jwt.ttl":         time.Hour,
	"bcrypt.cost":     12,
	"cache.driver":    "memory",
	"cache.ttl":       time.Hour,
	"mail.driver":     "log",
	"mail.port":       587,
	"mail.from":       "noreply@localhost",
	"mail.from_name":  "Contacts",
	"mail.workers":    2,
	"mail.queue_size": 100,
	"avatar.store":    "db",
	"s3.region":       "us-east-1",
	"log.format":      "text",
	"log.level":       "info",
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":       "http.addr",
	"public-url": "http.public_url",
	"db-driver":  "db.driver",
	"db-dsn":     "db.dsn",
	"cache":      "cache.driver",
	"mail":       "mail.driver",
	"log-format": "log.format",
	"log-level":  "log.level",
}

// RegisterFlags adds the server flags to fs. Flags left unset do not
// override values from the file or the environment.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("public-url", "http://localhost:8080", "public base URL used in links")
	fs.String("db-driver", "sqlite", "database driver (sqlite or postgres)")
	fs.String("db-dsn", "contacts.db", "database file path or connection URL")
	fs.String("cache", "memory", "session cache (memory, redis or none)")
	fs.String("mail", "log", "mail transport (log or smtp)")
	fs.String("log-format", "text", "log format (text, json or both)")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
}

// Load builds the configuration. path may be empty; fs may be nil.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if fs != nil {
		flagKey := func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		}
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagKey), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// envKey turns CONTACTS_MAIL_FROM_NAME into mail.from_name: the first
// underscore separates the section from the field.
func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	} else if len(c.JWT.Secret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("jwt.secret must be at least %d characters", MinSecretLength))
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("jwt.algorithm %q is not supported", c.JWT.Algorithm))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("jwt.ttl must be positive"))
	}
	if c.Bcrypt.Cost < 4 || c.Bcrypt.Cost > 14 {
		errs = append(errs, errors.New("bcrypt.cost must be between 4 and 14"))
	}
	if _, err := url.ParseRequestURI(c.HTTP.PublicURL); err != nil {
		errs = append(errs, fmt.Errorf("http.public_url: %w", err))
	}

	switch c.DB.Driver {
	case "sqlite", "postgres":
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("db.dsn is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("db.driver %q must be sqlite or postgres", c.DB.Driver))
	}

	switch c.Cache.Driver {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("cache.redis_url is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.driver %q must be memory, redis or none", c.Cache.Driver))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}

	switch c.Mail.Driver {
	case "log":
	case "smtp":
		if c.Mail.Host == "" || c.Mail.Port <= 0 {
			errs = append(errs, errors.New("mail.host and mail.port are required for smtp"))
		}
		if c.Mail.From == "" {
			errs = append(errs, errors.New("mail.from is required for smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("mail.driver %q must be log or smtp", c.Mail.Driver))
	}
	if c.Mail.Workers < 1 {
		errs = append(errs, errors.New("mail.workers must be at least 1"))
	}
	if c.Mail.QueueSize < 0 {
		errs = append(errs, errors.New("mail.queue_size must not be negative"))
	}

	switch c.Avatar.Store {
	case "db":
	case "s3":
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("s3.bucket is required for the s3 avatar store"))
		}
	default:
		errs = append(errs, fmt.Errorf("avatar.store %q must be db or s3", c.Avatar.Store))
	}

	switch c.Log.Format {
	case "text", "json", "both":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text, json or both", c.Log.Format))
	}
	return errors.Join(errs...)
}
