package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"yoyaku/pkg/client"
	"yoyaku/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	SlotCapacity int
	ClientQuota  int

	CreateRateLimit      int
	CreateRateWindow     time.Duration
	DeleteRateLimit      int
	DeleteRateWindow     time.Duration
	BulkDeleteRateLimit  int
	BulkDeleteRateWindow time.Duration
	BulkDeleteMax        int
	AnomalyRateLimit     int

	ReserveMaxAttempts int
	ReserveBackoff     time.Duration

	AdminToken string

	KafkaBrokers []string
	KafkaTopic   string

	RedisAddr string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	OpeningTime string
	ClosingTime string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		SlotCapacity: getEnvNum(EnvSlotCapacity, DefaultSlotCapacity),
		ClientQuota:  getEnvNum(EnvClientQuota, DefaultClientQuota),

		CreateRateLimit:      getEnvNum(EnvCreateRateLimit, DefaultCreateRateLimit),
		CreateRateWindow:     getEnvDuration(EnvCreateRateWindow, DefaultCreateRateWindow),
		DeleteRateLimit:      getEnvNum(EnvDeleteRateLimit, DefaultDeleteRateLimit),
		DeleteRateWindow:     getEnvDuration(EnvDeleteRateWindow, DefaultDeleteRateWindow),
		BulkDeleteRateLimit:  getEnvNum(EnvBulkDeleteRateLimit, DefaultBulkDeleteRateLimit),
		BulkDeleteRateWindow: getEnvDuration(EnvBulkDeleteRateWindow, DefaultBulkDeleteRateWindow),
		BulkDeleteMax:        getEnvNum(EnvBulkDeleteMax, DefaultBulkDeleteMax),
		AnomalyRateLimit:     getEnvNum(EnvAnomalyRateLimit, DefaultAnomalyRateLimit),

		ReserveMaxAttempts: getEnvNum(EnvReserveMaxAttempts, DefaultReserveMaxAttempts),
		ReserveBackoff:     getEnvDuration(EnvReserveBackoff, DefaultReserveBackoff),

		AdminToken: getEnvStr(EnvAdminToken, ""),

		KafkaBrokers: splitBrokers(getEnvStr(EnvKafkaBrokers, "")),
		KafkaTopic:   getEnvStr(EnvKafkaTopic, DefaultKafkaTopic),

		RedisAddr: getEnvStr(EnvRedisAddr, ""),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		OpeningTime: getEnvStr(EnvOpeningTime, DefaultOpeningTime),
		ClosingTime: getEnvStr(EnvClosingTime, DefaultClosingTime),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if cfg.SlotCapacity <= 0 {
		errs = append(errs, fmt.Sprintf("SlotCapacity must be positive, got: %d", cfg.SlotCapacity))
	}
	if cfg.ClientQuota <= 0 {
		errs = append(errs, fmt.Sprintf("ClientQuota must be positive, got: %d", cfg.ClientQuota))
	}

	if cfg.CreateRateLimit <= 0 {
		errs = append(errs, fmt.Sprintf("CreateRateLimit must be positive, got: %d", cfg.CreateRateLimit))
	}
	if cfg.CreateRateWindow <= 0 {
		errs = append(errs, fmt.Sprintf("CreateRateWindow must be positive, got: %s", cfg.CreateRateWindow))
	}
	if cfg.DeleteRateLimit <= 0 {
		errs = append(errs, fmt.Sprintf("DeleteRateLimit must be positive, got: %d", cfg.DeleteRateLimit))
	}
	if cfg.DeleteRateWindow <= 0 {
		errs = append(errs, fmt.Sprintf("DeleteRateWindow must be positive, got: %s", cfg.DeleteRateWindow))
	}
	if cfg.BulkDeleteRateLimit <= 0 {
		errs = append(errs, fmt.Sprintf("BulkDeleteRateLimit must be positive, got: %d", cfg.BulkDeleteRateLimit))
	}
	if cfg.BulkDeleteRateWindow <= 0 {
		errs = append(errs, fmt.Sprintf("BulkDeleteRateWindow must be positive, got: %s", cfg.BulkDeleteRateWindow))
	}
	if cfg.BulkDeleteMax <= 0 {
		errs = append(errs, fmt.Sprintf("BulkDeleteMax must be positive, got: %d", cfg.BulkDeleteMax))
	}
	if cfg.AnomalyRateLimit <= 0 {
		errs = append(errs, fmt.Sprintf("AnomalyRateLimit must be positive, got: %d", cfg.AnomalyRateLimit))
	}

	if cfg.ReserveMaxAttempts <= 0 {
		errs = append(errs, fmt.Sprintf("ReserveMaxAttempts must be positive, got: %d", cfg.ReserveMaxAttempts))
	}
	if cfg.ReserveBackoff < 0 {
		errs = append(errs, fmt.Sprintf("ReserveBackoff cannot be negative, got: %s", cfg.ReserveBackoff))
	}

	timeRegex := regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	if !timeRegex.MatchString(cfg.OpeningTime) {
		errs = append(errs, fmt.Sprintf("OpeningTime must be in HH:MM format, got: %s", cfg.OpeningTime))
	}
	if !timeRegex.MatchString(cfg.ClosingTime) {
		errs = append(errs, fmt.Sprintf("ClosingTime must be in HH:MM format, got: %s", cfg.ClosingTime))
	}

	if cfg.RequestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errs = append(errs, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"slot_capacity", cfg.SlotCapacity,
		"client_quota", cfg.ClientQuota,
		"create_rate_limit", cfg.CreateRateLimit,
		"create_rate_window", cfg.CreateRateWindow,
		"delete_rate_limit", cfg.DeleteRateLimit,
		"delete_rate_window", cfg.DeleteRateWindow,
		"bulk_delete_rate_limit", cfg.BulkDeleteRateLimit,
		"bulk_delete_rate_window", cfg.BulkDeleteRateWindow,
		"bulk_delete_max", cfg.BulkDeleteMax,
		"anomaly_rate_limit", cfg.AnomalyRateLimit,
		"reserve_max_attempts", cfg.ReserveMaxAttempts,
		"reserve_backoff", cfg.ReserveBackoff,
		"admin_token_set", cfg.AdminToken != "",
		"kafka_brokers", cfg.KafkaBrokers,
		"kafka_topic", cfg.KafkaTopic,
		"redis_addr_set", cfg.RedisAddr != "",
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"opening_time", cfg.OpeningTime,
		"closing_time", cfg.ClosingTime,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func splitBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if b := strings.TrimSpace(p); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}
