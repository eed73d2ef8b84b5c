package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	aws_pkg "github.com/paygate/backend/pkg/aws"
)

// LoadDotEnv loads a .env file when one exists. Missing files are not an error.
func LoadDotEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

func GetEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func GetEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func GetEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// GetEnvDuration accepts Go durations ("1.5s") or plain seconds ("1.5").
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}

func GetEnvList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Postgres holds the connection settings shared by every service with a database.
type Postgres struct {
	User     string
	Password string
	DB       string
	Host     string
	Port     string
	SSLMode  string
	TimeZone string
}

func LoadPostgres(defaultDB string) Postgres {
	return Postgres{
		User:     GetEnv("POSTGRES_USER", "postgres"),
		Password: GetEnv("POSTGRES_PASSWORD", "postgres"),
		DB:       GetEnv("POSTGRES_DB", defaultDB),
		Host:     GetEnv("POSTGRES_HOST", "localhost"),
		Port:     GetEnv("POSTGRES_PORT", "5432"),
		SSLMode:  GetEnv("POSTGRES_SSLMODE", "disable"),
		TimeZone: GetEnv("POSTGRES_TIMEZONE", "UTC"),
	}
}

// SecretSource is satisfied by aws_pkg.SecretsClient.
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
	GetJSONSecret(ctx context.Context, name string) (map[string]string, error)
}

// NewSecretSource returns a Secrets Manager client when AWS_USE_SECRETS=true.
func NewSecretSource(ctx context.Context) SecretSource {
	if !GetEnvBool("AWS_USE_SECRETS", false) {
		return nil
	}
	awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
	if err != nil {
		return nil
	}
	return aws_pkg.NewSecretsClient(awsCfg)
}

// ApplyDBSecret overrides p with values from a JSON secret of POSTGRES_* keys.
func (p *Postgres) ApplyDBSecret(ctx context.Context, src SecretSource, name string) {
	if src == nil {
		return
	}
	m, err := src.GetJSONSecret(ctx, name)
	if err != nil {
		return
	}
	for key, dst := range map[string]*string{
		"POSTGRES_USER":     &p.User,
		"POSTGRES_PASSWORD": &p.Password,
		"POSTGRES_DB":       &p.DB,
		"POSTGRES_HOST":     &p.Host,
		"POSTGRES_PORT":     &p.Port,
	} {
		if v := m[key]; v != "" {
			*dst = v
		}
	}
}

// OverrideFromSecret replaces *dst with the named secret when it resolves.
func OverrideFromSecret(ctx context.Context, src SecretSource, name string, dst *string) {
	if src == nil {
		return
	}
	if v, err := src.GetSecret(ctx, name); err == nil && v != "" {
		*dst = v
	}
}
