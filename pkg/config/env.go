package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"
	EnvMaxBatchSize   = "MAX_BATCH_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvSessionDuration     = "SESSION_DURATION"
	EnvContinuityTolerance = "CONTINUITY_TOLERANCE"
	EnvLaneCount           = "LANE_COUNT"
	EnvSlotStart           = "SLOT_START"
	EnvSlotCount           = "SLOT_COUNT"
	EnvTimeZone            = "TIME_ZONE"

	EnvPublishEvents       = "PUBLISH_EVENTS"
	EnvAssignmentsTopic    = "ASSIGNMENTS_TOPIC"
	EnvDiagnosticsTopic    = "DIAGNOSTICS_TOPIC"
	EnvReservationsTopic   = "RESERVATIONS_TOPIC"
	EnvReservationsGroupID = "RESERVATIONS_GROUP_ID"
	EnvDLQTopic            = "DLQ_TOPIC"
)
