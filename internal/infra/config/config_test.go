package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

var configKeys = []string{
	"APP_ENV", "HTTP_ADDR", "STORE_DRIVER", "MONGO_URI", "MONGO_DB", "DATABASE_URL",
	"KAFKA_BROKERS", "KAFKA_TOPIC_PREFIX", "KAFKA_CHANNEL_TOPIC", "KAFKA_CONSUMER_GROUP",
	"IDEMP_TTL", "OUTBOX_POLL_INTERVAL", "RETRY_BACKOFF", "S3_ENDPOINT", "S3_PUBLIC_ENDPOINT",
	"S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_BUCKET", "S3_USE_SSL", "PROPERTY_FIXTURES",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StoreDriver != DriverMemory || cfg.HTTPAddr != ":8080" || cfg.Env != "dev" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.OutboxPollInterval != 500*time.Millisecond {
		t.Fatalf("unexpected poll interval: %v", cfg.OutboxPollInterval)
	}
	want := []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}
	if !reflect.DeepEqual(cfg.RetryBackoff, want) {
		t.Fatalf("unexpected backoff: %v", cfg.RetryBackoff)
	}
	if cfg.KafkaEnabled() || cfg.S3Enabled() {
		t.Fatalf("kafka and s3 should be off by default: %+v", cfg)
	}
}

func TestFromEnvParsesValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/stayhub")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	t.Setenv("S3_USE_SSL", "yes")
	t.Setenv("RETRY_BACKOFF", "2s, 10s")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StoreDriver != DriverPostgres {
		t.Fatalf("expected postgres driver, got %q", cfg.StoreDriver)
	}
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if !cfg.S3UseSSL || cfg.S3PublicEndpoint != "http://minio:9000" || !cfg.S3Enabled() {
		t.Fatalf("unexpected s3 config: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.RetryBackoff, []time.Duration{2 * time.Second, 10 * time.Second}) {
		t.Fatalf("unexpected backoff: %v", cfg.RetryBackoff)
	}
}

func TestFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"mongo without uri", map[string]string{"STORE_DRIVER": "mongo"}, "MONGO_URI"},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}, "DATABASE_URL"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "redis"}, "STORE_DRIVER"},
		{"bad duration", map[string]string{"OUTBOX_POLL_INTERVAL": "soon"}, "OUTBOX_POLL_INTERVAL"},
		{"bad backoff", map[string]string{"RETRY_BACKOFF": "1s,later"}, "RETRY_BACKOFF"},
		{"bad bool", map[string]string{"S3_USE_SSL": "maybe"}, "S3_USE_SSL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
