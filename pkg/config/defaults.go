package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "yoyaku"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	// Hard seat limit per (date, time) cell.
	DefaultSlotCapacity = 3
	// Total confirmed bookings one client fingerprint may hold at once.
	DefaultClientQuota = 2

	DefaultCreateRateLimit  = 5
	DefaultCreateRateWindow = 1 * time.Hour
	DefaultDeleteRateLimit  = 10
	DefaultDeleteRateWindow = 1 * time.Minute
	// Admin-only batch removals, kept deliberately tight.
	DefaultBulkDeleteRateLimit  = 3
	DefaultBulkDeleteRateWindow = 1 * time.Minute
	// Most bookings one bulk request may remove.
	DefaultBulkDeleteMax = 50
	// Any-action anomaly guard, per minute.
	DefaultAnomalyRateLimit = 20

	DefaultReserveMaxAttempts = 3
	DefaultReserveBackoff     = 50 * time.Millisecond

	DefaultKafkaTopic = "booking-events"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultOpeningTime = "11:00"
	DefaultClosingTime = "19:00"

	// Stored fingerprints are truncated to this many characters.
	FingerprintStoredLen = 8

	SlotGranularityMinutes = 30
)
