package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Payments     PaymentsConfig
	Delivery     DeliveryConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payments.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Delivery.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MANDIFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"MANDIFLOW_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MANDIFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MANDIFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MANDIFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MANDIFLOW_DB_DSN"`
	Driver string `envconfig:"MANDIFLOW_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MANDIFLOW_DB_HOST"`
	Port     int    `envconfig:"MANDIFLOW_DB_PORT" default:"5432"`
	User     string `envconfig:"MANDIFLOW_DB_USER"`
	Password string `envconfig:"MANDIFLOW_DB_PASSWORD"`
	Name     string `envconfig:"MANDIFLOW_DB_NAME"`
	SSLMode  string `envconfig:"MANDIFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MANDIFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MANDIFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MANDIFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MANDIFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// ensureDSN builds a postgres DSN from discrete fields when one is not given.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either MANDIFLOW_DB_DSN or host/user/name settings are required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"MANDIFLOW_REDIS_URL"`
	Address      string        `envconfig:"MANDIFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"MANDIFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"MANDIFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MANDIFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MANDIFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MANDIFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MANDIFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MANDIFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MANDIFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MANDIFLOW_JWT_ISSUER" default:"mandiflow"`
	ExpirationMinutes int    `envconfig:"MANDIFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PaymentsConfig calibrates the simulated payment gateway.
type PaymentsConfig struct {
	SuccessRate    float64       `envconfig:"MANDIFLOW_PAYMENTS_SUCCESS_RATE" default:"0.9"`
	GatewayLatency time.Duration `envconfig:"MANDIFLOW_PAYMENTS_GATEWAY_LATENCY" default:"2s"`
}

func (p PaymentsConfig) validate() error {
	if p.SuccessRate < 0 || p.SuccessRate > 1 {
		return fmt.Errorf("MANDIFLOW_PAYMENTS_SUCCESS_RATE must be within [0,1], got %v", p.SuccessRate)
	}
	if p.GatewayLatency < 0 {
		return fmt.Errorf("MANDIFLOW_PAYMENTS_GATEWAY_LATENCY must not be negative")
	}
	return nil
}

// DeliveryConfig calibrates the delivery progression worker. The dwell
// defaults match the demo calibration; production deployments stretch them.
type DeliveryConfig struct {
	WorkerInterval   time.Duration `envconfig:"MANDIFLOW_DELIVERY_WORKER_INTERVAL" default:"30s"`
	EstimatedHorizon time.Duration `envconfig:"MANDIFLOW_DELIVERY_ESTIMATED_HORIZON" default:"24h"`
	PartnerName      string        `envconfig:"MANDIFLOW_DELIVERY_PARTNER_NAME" default:"Express Delivery"`
	PartnerPhone     string        `envconfig:"MANDIFLOW_DELIVERY_PARTNER_PHONE" default:"+91-9876543210"`

	DwellPending        time.Duration `envconfig:"MANDIFLOW_DELIVERY_DWELL_PENDING" default:"30s"`
	DwellConfirmed      time.Duration `envconfig:"MANDIFLOW_DELIVERY_DWELL_CONFIRMED" default:"1m"`
	DwellPacked         time.Duration `envconfig:"MANDIFLOW_DELIVERY_DWELL_PACKED" default:"90s"`
	DwellPickedUp       time.Duration `envconfig:"MANDIFLOW_DELIVERY_DWELL_PICKED_UP" default:"2m"`
	DwellInTransit      time.Duration `envconfig:"MANDIFLOW_DELIVERY_DWELL_IN_TRANSIT" default:"3m"`
	DwellOutForDelivery time.Duration `envconfig:"MANDIFLOW_DELIVERY_DWELL_OUT_FOR_DELIVERY" default:"2m"`
}

func (d DeliveryConfig) validate() error {
	if d.WorkerInterval <= 0 {
		return fmt.Errorf("MANDIFLOW_DELIVERY_WORKER_INTERVAL must be positive")
	}
	if d.EstimatedHorizon <= 0 {
		return fmt.Errorf("MANDIFLOW_DELIVERY_ESTIMATED_HORIZON must be positive")
	}
	for _, dwell := range []time.Duration{
		d.DwellPending, d.DwellConfirmed, d.DwellPacked,
		d.DwellPickedUp, d.DwellInTransit, d.DwellOutForDelivery,
	} {
		if dwell < 0 {
			return fmt.Errorf("delivery dwell times must not be negative")
		}
	}
	return nil
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MANDIFLOW_FEATURE_AUTO_MIGRATE" default:"false"`
}
