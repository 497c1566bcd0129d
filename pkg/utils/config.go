package utils

import (
	"errors"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Booking  BookingConfig
	Payment  PaymentConfig
}

type AppConfig struct {
	Name           string
	Port           string
	Debug          bool
	LogPath        string
	RequestTimeout int // seconds
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	GeoKey   string
}

type AMQPConfig struct {
	URL      string
	Exchange string
}

type BookingConfig struct {
	PaymentWindowMinutes int
	MaxHours             int
	SweepIntervalSeconds int
	SweepBatchSize       int
}

type PaymentConfig struct {
	MockMode        bool
	EsewaMerchantID string
	EsewaURL        string
	KhaltiPublicKey string
	SuccessURL      string
	FailureURL      string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("APP_NAME", "smart-parking")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 15)
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_GEO_KEY", "parking:spots:geo")
	viper.SetDefault("AMQP_EXCHANGE", "parking.bookings")
	viper.SetDefault("PAYMENT_WINDOW_MINUTES", 10)
	viper.SetDefault("BOOKING_MAX_HOURS", 24)
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 30)
	viper.SetDefault("SWEEP_BATCH_SIZE", 100)
	viper.SetDefault("PAYMENT_MOCK_MODE", false)
	viper.SetDefault("ESEWA_MERCHANT_ID", "EPAYTEST")
	viper.SetDefault("ESEWA_URL", "https://uat.esewa.com.np/epay/main")

	// .env is optional in containers, the environment wins either way
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:           viper.GetString("APP_NAME"),
			Port:           viper.GetString("PORT"),
			Debug:          viper.GetBool("DEBUG"),
			LogPath:        viper.GetString("LOG_PATH"),
			RequestTimeout: viper.GetInt("REQUEST_TIMEOUT_SECONDS"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("REDIS_ENABLED"),
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			GeoKey:   viper.GetString("REDIS_GEO_KEY"),
		},
		AMQP: AMQPConfig{
			URL:      viper.GetString("AMQP_URL"),
			Exchange: viper.GetString("AMQP_EXCHANGE"),
		},
		Booking: BookingConfig{
			PaymentWindowMinutes: viper.GetInt("PAYMENT_WINDOW_MINUTES"),
			MaxHours:             viper.GetInt("BOOKING_MAX_HOURS"),
			SweepIntervalSeconds: viper.GetInt("SWEEP_INTERVAL_SECONDS"),
			SweepBatchSize:       viper.GetInt("SWEEP_BATCH_SIZE"),
		},
		Payment: PaymentConfig{
			MockMode:        viper.GetBool("PAYMENT_MOCK_MODE"),
			EsewaMerchantID: viper.GetString("ESEWA_MERCHANT_ID"),
			EsewaURL:        viper.GetString("ESEWA_URL"),
			KhaltiPublicKey: viper.GetString("KHALTI_PUBLIC_KEY"),
			SuccessURL:      viper.GetString("PAYMENT_SUCCESS_URL"),
			FailureURL:      viper.GetString("PAYMENT_FAILURE_URL"),
		},
	}

	if config.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return config, nil
}
