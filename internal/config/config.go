package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds application level configuration.
//
// Values are resolved in order: defaults, the optional YAML file named by
// CONFIG_FILE, then environment variables. Secrets are read from the
// environment only.
type Config struct {
	Env         string `yaml:"env"`
	ServerPort  string `yaml:"server_port"`
	SwaggerHost string `yaml:"swagger_host"`
	FrontendURL string `yaml:"frontend_url"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	StoreDriver string `yaml:"store_driver"` // mysql, mongo or memory
	MySQLDSN    string `yaml:"-"`
	MongoURI    string `yaml:"-"`
	MongoDB     string `yaml:"mongo_db"`

	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	RedisPass string `yaml:"-"`

	JWTSecret     string `yaml:"-"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"-"`

	FileStore FileStoreConfig `yaml:"file_store"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Google    GoogleConfig    `yaml:"google"`
	Facebook  FacebookConfig  `yaml:"facebook"`
}

// FileStoreConfig selects where instructor CVs are kept.
type FileStoreConfig struct {
	Driver   string      `yaml:"driver"` // local, minio or gcs
	LocalDir string      `yaml:"local_dir"`
	Minio    MinioConfig `yaml:"minio"`
	GCS      GCSConfig   `yaml:"gcs"`
}

// MinioConfig configures the MinIO backend.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// GCSConfig configures the Google Cloud Storage backend.
type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// NotifierConfig selects how verification codes and approval notices are delivered.
type NotifierConfig struct {
	Driver string     `yaml:"driver"` // smtp, amqp or console
	SMTP   SMTPConfig `yaml:"smtp"`
	AMQP   AMQPConfig `yaml:"amqp"`
}

// SMTPConfig configures the SMTP mailer.
type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"-"`
	From     string        `yaml:"from"`
	Timeout  time.Duration `yaml:"timeout"`
}

// AMQPConfig configures the RabbitMQ notification publisher.
type AMQPConfig struct {
	URL   string `yaml:"-"`
	Queue string `yaml:"queue"`
}

// GoogleConfig holds Google OAuth client credentials.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"-"`
	RedirectURL  string `yaml:"redirect_url"`
}

// FacebookConfig holds Facebook app credentials.
type FacebookConfig struct {
	AppID     string `yaml:"app_id"`
	AppSecret string `yaml:"-"`
	GraphURL  string `yaml:"graph_url"`
}

// Load builds Config from environment with sensible defaults.
func Load() (*Config, error) {
	if getEnv("ENV", "dev") == "dev" {
		_ = godotenv.Load()
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(cfg.AdminEmail))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Env:         "dev",
		ServerPort:  "8080",
		FrontendURL: "http://localhost:3000",
		LogLevel:    "info",
		LogFormat:   "text",
		StoreDriver: "mysql",
		MySQLDSN:    "user:password@tcp(localhost:3306)/formini?charset=utf8mb4&parseTime=True&loc=UTC",
		MongoURI:    "mongodb://localhost:27017",
		MongoDB:     "formini",
		RedisAddr:   "localhost:6379",
		JWTSecret:   "change-me",
		AdminEmail:  "admin@formini.com",
		FileStore: FileStoreConfig{
			Driver:   "local",
			LocalDir: "uploads",
			Minio:    MinioConfig{Bucket: "formini-cvs"},
		},
		Notifier: NotifierConfig{
			Driver: "console",
			SMTP: SMTPConfig{
				Port:    465,
				From:    "no-reply@formini.com",
				Timeout: 15 * time.Second,
			},
			AMQP: AMQPConfig{Queue: "formini.notifications"},
		},
		Facebook: FacebookConfig{GraphURL: "https://graph.facebook.com"},
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Env = getEnv("ENV", c.Env)
	c.ServerPort = getEnv("SERVER_PORT", c.ServerPort)
	c.SwaggerHost = getEnv("SWAGGER_HOST", c.SwaggerHost)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.MySQLDSN = getEnv("MYSQL_DSN", c.MySQLDSN)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDB = getEnv("MONGO_DB", c.MongoDB)

	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisPass = getEnv("REDIS_PASSWORD", c.RedisPass)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.AdminEmail = getEnv("ADMIN_EMAIL", c.AdminEmail)
	c.AdminPassword = getEnv("ADMIN_PASSWORD", c.AdminPassword)

	fs := &c.FileStore
	fs.Driver = getEnv("FILE_STORE_DRIVER", fs.Driver)
	fs.LocalDir = getEnv("FILE_STORE_DIR", fs.LocalDir)
	fs.Minio.Endpoint = getEnv("MINIO_ENDPOINT", fs.Minio.Endpoint)
	fs.Minio.AccessKey = getEnv("MINIO_ACCESS_KEY", fs.Minio.AccessKey)
	fs.Minio.SecretKey = getEnv("MINIO_SECRET_KEY", fs.Minio.SecretKey)
	fs.Minio.Bucket = getEnv("MINIO_BUCKET", fs.Minio.Bucket)
	fs.Minio.UseSSL = getEnvBool("MINIO_USE_SSL", fs.Minio.UseSSL)
	fs.GCS.Bucket = getEnv("GCS_BUCKET", fs.GCS.Bucket)
	fs.GCS.ProjectID = getEnv("GCS_PROJECT_ID", fs.GCS.ProjectID)
	fs.GCS.CredentialsFile = getEnv("GCS_CREDENTIALS_FILE", fs.GCS.CredentialsFile)

	n := &c.Notifier
	n.Driver = getEnv("NOTIFIER_DRIVER", n.Driver)
	n.SMTP.Host = getEnv("SMTP_HOST", n.SMTP.Host)
	n.SMTP.Port = getEnvInt("SMTP_PORT", n.SMTP.Port)
	n.SMTP.Username = getEnv("SMTP_USER", n.SMTP.Username)
	n.SMTP.Password = getEnv("SMTP_PASSWORD", n.SMTP.Password)
	n.SMTP.From = getEnv("SMTP_FROM", n.SMTP.From)
	n.SMTP.Timeout = getEnvDuration("SMTP_TIMEOUT", n.SMTP.Timeout)
	n.AMQP.URL = getEnv("AMQP_URL", n.AMQP.URL)
	n.AMQP.Queue = getEnv("AMQP_QUEUE", n.AMQP.Queue)

	c.Google.ClientID = getEnv("GOOGLE_CLIENT_ID", c.Google.ClientID)
	c.Google.ClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.Google.ClientSecret)
	c.Google.RedirectURL = getEnv("GOOGLE_REDIRECT_URI", c.Google.RedirectURL)
	c.Facebook.AppID = getEnv("FACEBOOK_APP_ID", c.Facebook.AppID)
	c.Facebook.AppSecret = getEnv("FACEBOOK_APP_SECRET", c.Facebook.AppSecret)
	c.Facebook.GraphURL = getEnv("FACEBOOK_GRAPH_URL", c.Facebook.GraphURL)
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.AdminEmail == "" {
		return fmt.Errorf("ADMIN_EMAIL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case "mysql", "mongo", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	switch c.FileStore.Driver {
	case "local", "minio", "gcs":
	default:
		return fmt.Errorf("unknown file store driver %q", c.FileStore.Driver)
	}
	switch c.Notifier.Driver {
	case "smtp", "amqp", "console":
	default:
		return fmt.Errorf("unknown notifier driver %q", c.Notifier.Driver)
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != ""
}

// FacebookEnabled reports whether Facebook sign-in is configured.
func (c *Config) FacebookEnabled() bool {
	return c.Facebook.AppID != "" && c.Facebook.AppSecret != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
