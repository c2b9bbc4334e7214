package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "lanesched"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB
	DefaultMaxBatchSize   = 500

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultSessionDuration     = 55 * time.Minute
	DefaultContinuityTolerance = 5 * time.Minute
	DefaultLaneCount           = 8
	DefaultSlotStart           = "10:00"
	DefaultSlotCount           = 28
	DefaultTimeZone            = "Europe/Amsterdam"

	DefaultPublishEvents       = false
	DefaultAssignmentsTopic    = "lanes.assignments"
	DefaultDiagnosticsTopic    = "lanes.diagnostics"
	DefaultReservationsTopic   = "lanes.reservations"
	DefaultReservationsGroupID = "lanes-worker"
	DefaultDLQTopic            = "lanes.dlq"

	DefaultPaginationLimit = 100
	MinPaginationLimit     = 10
)
