// Package config loads the blog server settings from a TOML file, a .env file and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"blog/pkg/auth"
)

var (
	ErrMissingMongoURI = errors.New("MONGO_URI is not set")
	ErrMissingSecret   = errors.New("JWT_SECRET is not set")
	ErrInvalidValue    = errors.New("invalid config value")
)

type Config struct {
	ServiceName string `toml:"serviceName"`
	HTTPAddr    string `toml:"httpAddr"`
	LogLevel    string `toml:"logLevel"`

	MongoURI    string `toml:"mongoURI"`
	MongoDBName string `toml:"mongoDBName"`

	JWTSecret string        `toml:"jwtSecret"`
	TokenTTL  time.Duration `toml:"tokenTTL"`

	UploadDir   string `toml:"uploadDir"`
	MaxUploadMB int    `toml:"maxUploadMB"`

	// CensorConfPath enables in-process moderation with the given word list.
	CensorConfPath string `toml:"censorConfPath"`
	// CensorURL delegates moderation to a remote censorship service. It wins over CensorConfPath.
	CensorURL string `toml:"censorURL"`

	KafkaAddr  string `toml:"kafkaAddr"`
	KafkaTopic string `toml:"kafkaTopic"`
	KafkaBatch int    `toml:"kafkaBatch"`
}

func Default() Config {
	return Config{
		ServiceName: "blog",
		HTTPAddr:    ":5000",
		LogLevel:    "info",
		MongoDBName: "blog",
		TokenTTL:    auth.DefaultTokenTTL,
		UploadDir:   "uploads",
		MaxUploadMB: 10,
	}
}

// Load reads the TOML file at path on top of the defaults. An empty path keeps the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides the config with MONGO_URI, MONGO_DB_NAME, JWT_SECRET and PORT.
// The process environment wins over envFile, a missing envFile is ignored.
func (c *Config) ApplyEnv(envFile string) error {
	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read env file %s: %w", envFile, err)
		}
		if vars != nil {
			fileVars = vars
		}
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return fileVars[key]
	}

	if v := lookup("MONGO_URI"); v != "" {
		c.MongoURI = v
	}
	if v := lookup("MONGO_DB_NAME"); v != "" {
		c.MongoDBName = v
	}
	if v := lookup("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := lookup("PORT"); v != "" {
		if !strings.Contains(v, ":") {
			v = ":" + v
		}
		c.HTTPAddr = v
	}
	return nil
}

// Validate reports settings the server cannot start without. In dev mode the
// in-memory store replaces MongoDB, so the connection string may be empty.
func (c Config) Validate(dev bool) error {
	if c.JWTSecret == "" {
		return ErrMissingSecret
	}
	if !dev && c.MongoURI == "" {
		return ErrMissingMongoURI
	}
	if c.MaxUploadMB < 0 {
		return fmt.Errorf("%w: maxUploadMB must not be negative", ErrInvalidValue)
	}
	if c.TokenTTL < 0 {
		return fmt.Errorf("%w: tokenTTL must not be negative", ErrInvalidValue)
	}
	if c.UploadDir == "" {
		return fmt.Errorf("%w: uploadDir is empty", ErrInvalidValue)
	}
	return nil
}

// MaxUploadBytes converts MaxUploadMB for the media store. Zero disables the cap.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
