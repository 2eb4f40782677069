package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env          string             `yaml:"env" env:"ENV" env-default:"local"`
	ServiceName  string             `yaml:"service_name" env:"SERVICE_NAME" env-default:"pandopot-api"`
	HTTPServer   HTTPServerConfig   `yaml:"http_server"`
	GRPCServer   GRPCServerConfig   `yaml:"grpc_server"`
	MongoDB      MongoDBConfig      `yaml:"mongo"`
	Redis        RedisConfig        `yaml:"redis"`
	NATS         NATSConfig         `yaml:"nats"`
	Logger       LoggerConfig       `yaml:"logger"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Auth         AuthConfig         `yaml:"auth"`
	Payment      PaymentConfig      `yaml:"payment"`
	Secrets      SecretsConfig      `yaml:"secrets"`
	Notifier     NotifierConfig     `yaml:"notifier"`
	SMTP         SMTPConfig         `yaml:"smtp"`
	SendGrid     SendGridConfig     `yaml:"sendgrid"`
	Storage      StorageConfig      `yaml:"storage"`
	Boost        BoostConfig        `yaml:"boost"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	ProductCache ProductCacheConfig `yaml:"product_cache"`
	Checkout     CheckoutConfig     `yaml:"checkout"`
}

type HTTPServerConfig struct {
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	TimeoutGraceful time.Duration `yaml:"timeout_graceful_shutdown" env:"HTTP_TIMEOUT_GRACEFUL" env-default:"15s"`
}

type GRPCServerConfig struct {
	Port              string        `yaml:"port" env:"GRPC_PORT" env-default:"50060"`
	MaxConnectionIdle time.Duration `yaml:"max_connection_idle" env-default:"15m"`
	TimeoutGraceful   time.Duration `yaml:"timeout_graceful_shutdown" env-default:"15s"`
	ProbeInterval     time.Duration `yaml:"probe_interval" env:"GRPC_PROBE_INTERVAL" env-default:"15s"`
	ProbeTimeout      time.Duration `yaml:"probe_timeout" env:"GRPC_PROBE_TIMEOUT" env-default:"3s"`
}

type MongoDBConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	User     string `yaml:"user" env:"MONGO_USER"`
	Password string `yaml:"password" env:"MONGO_PASSWORD"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"pandopot"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	PoolSize int    `yaml:"pool_size" env:"REDIS_POOL_SIZE" env-default:"20"`
	// OpTimeout bounds each cache and idempotency command.
	OpTimeout time.Duration `yaml:"op_timeout" env:"REDIS_OP_TIMEOUT" env-default:"500ms"`
}

type NATSConfig struct {
	URL           string        `yaml:"url" env:"NATS_URL" env-default:"nats://localhost:4222"`
	ClientName    string        `yaml:"client_name" env:"NATS_CLIENT_NAME" env-default:"pandopot-api"`
	MaxReconnects int           `yaml:"max_reconnects" env:"NATS_MAX_RECONNECTS" env-default:"-1"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" env:"NATS_RECONNECT_WAIT" env-default:"2s"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
	TimeFormat string `yaml:"time_format" env:"LOG_TIME_FORMAT" env-default:"2006-01-02T15:04:05.000Z07:00"`
}

type TracingConfig struct {
	Enabled      bool   `yaml:"enabled" env:"TRACING_ENABLED" env-default:"false"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Path    string `yaml:"path" env:"METRICS_PATH" env-default:"/metrics"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AdminRole string `yaml:"admin_role" env:"AUTH_ADMIN_ROLE" env-default:"admin"`
}

type PaymentConfig struct {
	BaseURL  string        `yaml:"base_url" env:"PAYMENT_BASE_URL" env-default:"https://online.yoco.com/v1/charges/"`
	Currency string        `yaml:"currency" env:"PAYMENT_CURRENCY" env-default:"ZAR"`
	Timeout  time.Duration `yaml:"timeout" env:"PAYMENT_TIMEOUT" env-default:"20s"`
	// PlatformAccountID is the secret-store key holding the platform's own gateway key, used for boost sales.
	PlatformAccountID string `yaml:"platform_account_id" env:"PAYMENT_PLATFORM_ACCOUNT_ID" env-default:"platform"`
}

type SecretsConfig struct {
	// Provider is "gcp" or "static".
	Provider   string            `yaml:"provider" env:"SECRETS_PROVIDER" env-default:"static"`
	GCPProject string            `yaml:"gcp_project" env:"SECRETS_GCP_PROJECT"`
	NamePrefix string            `yaml:"name_prefix" env:"SECRETS_NAME_PREFIX" env-default:"payment-key-"`
	Static     map[string]string `yaml:"static" env:"SECRETS_STATIC" env-separator:","`
}

type NotifierConfig struct {
	// Provider is "smtp", "sendgrid" or "none".
	Provider     string        `yaml:"provider" env:"NOTIFIER_PROVIDER" env-default:"smtp"`
	ContactEmail string        `yaml:"contact_email" env:"NOTIFIER_CONTACT_EMAIL" env-default:"info@pandopot.com"`
	SendTimeout  time.Duration `yaml:"send_timeout" env:"NOTIFIER_SEND_TIMEOUT" env-default:"30s"`
}

type SMTPConfig struct {
	Host         string        `yaml:"host" env:"SMTP_HOST"`
	Port         int           `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username     string        `yaml:"username" env:"SMTP_USERNAME"`
	Password     string        `yaml:"password" env:"SMTP_PASSWORD"`
	SenderEmail  string        `yaml:"sender_email" env:"SMTP_SENDER_EMAIL"`
	Encryption   string        `yaml:"encryption" env:"SMTP_ENCRYPTION" env-default:"tls"`
	ServerName   string        `yaml:"server_name" env:"SMTP_SERVER_NAME"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SMTP_WRITE_TIMEOUT" env-default:"10s"`
	SenderName   string        `yaml:"sender_name" env:"SMTP_SENDER_NAME" env-default:"Pandopot"`
	// MaxConcurrent caps simultaneous SMTP sessions opened by receipt fan-out.
	MaxConcurrent int `yaml:"max_concurrent" env:"SMTP_MAX_CONCURRENT" env-default:"4"`
}

type SendGridConfig struct {
	APIKey    string `yaml:"api_key" env:"SENDGRID_API_KEY"`
	FromEmail string `yaml:"from_email" env:"SENDGRID_FROM_EMAIL"`
	FromName  string `yaml:"from_name" env:"SENDGRID_FROM_NAME" env-default:"Pandopot"`
}

type StorageConfig struct {
	Enabled   bool   `yaml:"enabled" env:"STORAGE_ENABLED" env-default:"false"`
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"MINIO_RECEIPT_BUCKET" env-default:"receipts"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

type BoostConfig struct {
	DisplayLimit int `yaml:"display_limit" env:"BOOST_DISPLAY_LIMIT" env-default:"4"`
}

type SubscriptionConfig struct {
	ReservationTTL time.Duration `yaml:"reservation_ttl" env:"SUBSCRIPTION_RESERVATION_TTL" env-default:"5m"`
}

type ProductCacheConfig struct {
	TTL time.Duration `yaml:"ttl" env:"PRODUCT_CACHE_TTL" env-default:"5m"`
}

type CheckoutConfig struct {
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" env:"CHECKOUT_IDEMPOTENCY_TTL" env-default:"24h"`
}

func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	err := cleanenv.ReadConfig(path, &cfg)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			log.Printf("config file not found at %s, loading from environment only", path)
			if errEnv := cleanenv.ReadEnv(&cfg); errEnv != nil {
				return nil, errEnv
			}
			return &cfg, nil
		}
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH_PANDOPOT")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}
	return cfg
}
