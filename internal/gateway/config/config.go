package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dswarm/dswarm/internal/transport"
)

type Config struct {
	Port       string
	Env        string
	Debug      bool
	BackendURL string
	Documents  DocumentConfig
	SessionTTL time.Duration

	// AllowedOrigins limits browser origins; empty allows any.
	AllowedOrigins []string
}

// DocumentConfig selects where schema and instance documents come from.
// S3 wins over HTTP, HTTP over a local directory.
type DocumentConfig struct {
	URL      string
	Dir      string
	CacheTTL time.Duration
	S3       S3Config
}

type S3Config struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

const (
	defaultBackendURL = "http://localhost:8087/dmp"
	defaultCacheTTL   = 5 * time.Minute
	defaultSessionTTL = 30 * time.Minute
)

func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	debug := fs.Bool("debug", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	cfg := &Config{
		Port:       *port,
		Env:        env,
		Debug:      *debug || envBool("LOG_DEBUG", false),
		BackendURL: firstNonEmpty(strings.TrimSpace(os.Getenv("DSWARM_BACKEND_URL")), defaultBackendURL),
		Documents: DocumentConfig{
			URL:      strings.TrimSpace(os.Getenv("DSWARM_DOCUMENTS_URL")),
			Dir:      strings.TrimSpace(os.Getenv("DSWARM_DOCUMENTS_DIR")),
			CacheTTL: envDuration("DOCUMENT_CACHE_TTL", defaultCacheTTL),
			S3:       loadS3Config(env),
		},
		SessionTTL:     envDuration("SESSION_TTL", defaultSessionTTL),
		AllowedOrigins: envList("CORS_ALLOWED_ORIGINS"),
	}
	if isLocal(env) {
		applyLocalDefaults(cfg)
	}
	return cfg, nil
}

// S3FromEnv reads the document bucket settings without touching flags.
func S3FromEnv() S3Config {
	return loadS3Config(firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), "local"))
}

// Source converts the settings into the transport's S3 options.
func (c S3Config) Source() transport.S3Config {
	return transport.S3Config{
		Endpoint:  c.Endpoint,
		Region:    c.Region,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Bucket:    c.Bucket,
		UseSSL:    c.UseSSL,
	}
}

// Redacted returns a copy safe for logging.
func (c S3Config) Redacted() S3Config {
	if c.SecretKey != "" {
		c.SecretKey = "****"
	}
	return c
}

func loadS3Config(env string) S3Config {
	endpoint := strings.TrimSpace(os.Getenv("DOCUMENT_S3_ENDPOINT"))
	return S3Config{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("DOCUMENT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("DOCUMENT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("DOCUMENT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("DOCUMENT_S3_BUCKET")), "dswarm-documents"),
		UseSSL:    !isLocal(env) && envBool("DOCUMENT_S3_USE_SSL", true),
	}
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
