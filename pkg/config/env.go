package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvSlotCapacity = "SLOT_CAPACITY"
	EnvClientQuota  = "CLIENT_QUOTA"

	EnvCreateRateLimit      = "CREATE_RATE_LIMIT"
	EnvCreateRateWindow     = "CREATE_RATE_WINDOW"
	EnvDeleteRateLimit      = "DELETE_RATE_LIMIT"
	EnvDeleteRateWindow     = "DELETE_RATE_WINDOW"
	EnvBulkDeleteRateLimit  = "BULK_DELETE_RATE_LIMIT"
	EnvBulkDeleteRateWindow = "BULK_DELETE_RATE_WINDOW"
	EnvBulkDeleteMax        = "BULK_DELETE_MAX"
	EnvAnomalyRateLimit     = "ANOMALY_RATE_LIMIT"

	EnvReserveMaxAttempts = "RESERVE_MAX_ATTEMPTS"
	EnvReserveBackoff     = "RESERVE_BACKOFF"

	EnvAdminToken = "ADMIN_TOKEN"

	EnvKafkaBrokers = "KAFKA_BROKERS"
	EnvKafkaTopic   = "KAFKA_TOPIC"

	EnvRedisAddr = "REDIS_ADDR"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvOpeningTime = "OPENING_TIME"
	EnvClosingTime = "CLOSING_TIME"
)
