package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Payout    PayoutConfig    `yaml:"payout"`
	Admin     AdminConfig     `yaml:"admin"`
	JWT       JWTConfig       `yaml:"jwt"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logger    LoggerConfig    `yaml:"logger"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

// PayoutConfig carries the process-wide workflow constants. They are resolved
// once at startup and handed to components at construction time.
type PayoutConfig struct {
	MinWithdrawCents   int64    `yaml:"min_withdraw_cents"`
	VerifyFeeCents     int64    `yaml:"verify_fee_cents"`
	VerifyDays         int      `yaml:"verify_days"`
	PaymentNumber      string   `yaml:"payment_number"`
	Methods            []string `yaml:"methods"`
	ReferralBonusCents int64    `yaml:"referral_bonus_cents"`
}

// VerifyPeriod is the entitlement window granted on an accepted verification.
func (p PayoutConfig) VerifyPeriod() time.Duration {
	return time.Duration(p.VerifyDays) * 24 * time.Hour
}

func (p PayoutConfig) HasMethod(method string) bool {
	for _, m := range p.Methods {
		if m == method {
			return true
		}
	}
	return false
}

type AdminConfig struct {
	UserID int64 `yaml:"user_id"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type AMQPConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

type WebSocketConfig struct {
	ReadBufferSize  int  `yaml:"read_buffer_size"`
	WriteBufferSize int  `yaml:"write_buffer_size"`
	CheckOrigin     bool `yaml:"check_origin"`
}

type LoggerConfig struct {
	Level      string `yaml:"level"`
	TimeFormat string `yaml:"time_format"`
	Pretty     bool   `yaml:"pretty"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var config Config
	configData, err := os.ReadFile("./config.yaml")
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, err
	}

	if pw := os.Getenv("DATABASE_PASSWORD"); pw != "" {
		config.Database.Password = pw
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.JWT.Secret = secret
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Admin.UserID == 0 {
		return fmt.Errorf("admin.user_id is required")
	}
	if c.Payout.MinWithdrawCents <= 0 {
		return fmt.Errorf("payout.min_withdraw_cents must be positive")
	}
	if c.Payout.VerifyDays <= 0 {
		return fmt.Errorf("payout.verify_days must be positive")
	}
	if len(c.Payout.Methods) == 0 {
		return fmt.Errorf("payout.methods must not be empty")
	}
	return nil
}
