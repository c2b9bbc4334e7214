package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"lanesched/internal/allocation"
	"lanesched/internal/projection"
	"lanesched/pkg/client"
	kafka_config "lanesched/pkg/kafka/config"
	"lanesched/pkg/logger"
	"lanesched/pkg/model"
)

var (
	clockRegex    = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	mongoURIRegex = regexp.MustCompile(`^mongodb(\+srv)?://`)
	credentialRe  = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port     string
	LogLevel string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int
	MaxBatchSize   int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	SessionDuration     time.Duration
	ContinuityTolerance time.Duration
	LaneCount           int
	SlotStart           string
	SlotCount           int
	TimeZone            string
	Location            *time.Location

	PublishEvents       bool
	AssignmentsTopic    string
	DiagnosticsTopic    string
	ReservationsTopic   string
	ReservationsGroupID string
	DLQTopic            string

	Log    *logger.Logger
	Client *client.Client
	Kafka  *kafka_config.Config
}

// Load reads the environment, exits on invalid configuration and logs the
// result.
func Load(serviceName string) *Config {
	cfg := FromEnv()
	cfg.Log = logger.New(logger.Config{
		Level:     cfg.LogLevel,
		Format:    logger.JSON,
		AddSource: true,
		Service:   serviceName,
	})
	cfg.Client = client.NewClient()

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv reads every setting without validating or connecting anything.
func FromEnv() *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port:     getEnvStr(EnvPort, DefaultPort),
		LogLevel: getEnvStr(EnvLogLevel, DefaultLogLevel),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),
		MaxBatchSize:   getEnvNum(EnvMaxBatchSize, DefaultMaxBatchSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		SessionDuration:     getEnvDuration(EnvSessionDuration, DefaultSessionDuration),
		ContinuityTolerance: getEnvDuration(EnvContinuityTolerance, DefaultContinuityTolerance),
		LaneCount:           getEnvNum(EnvLaneCount, DefaultLaneCount),
		SlotStart:           getEnvStr(EnvSlotStart, DefaultSlotStart),
		SlotCount:           getEnvNum(EnvSlotCount, DefaultSlotCount),
		TimeZone:            getEnvStr(EnvTimeZone, DefaultTimeZone),

		PublishEvents:       getEnvBool(EnvPublishEvents, DefaultPublishEvents),
		AssignmentsTopic:    getEnvStr(EnvAssignmentsTopic, DefaultAssignmentsTopic),
		DiagnosticsTopic:    getEnvStr(EnvDiagnosticsTopic, DefaultDiagnosticsTopic),
		ReservationsTopic:   getEnvStr(EnvReservationsTopic, DefaultReservationsTopic),
		ReservationsGroupID: getEnvStr(EnvReservationsGroupID, DefaultReservationsGroupID),
		DLQTopic:            getEnvStr(EnvDLQTopic, DefaultDLQTopic),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetKafka loads broker settings; only needed when events are published or
// consumed.
func (cfg *Config) SetKafka() {
	kcfg, err := kafka_config.FromEnv()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log.Info)
	cfg.Kafka = kcfg
}

// Validate checks every setting and resolves TimeZone into Location.
func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if !mongoURIRegex.MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"SessionDuration", cfg.SessionDuration},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", p.name, p.value))
		}
	}

	if cfg.ContinuityTolerance < 0 {
		errors = append(errors, fmt.Sprintf("ContinuityTolerance cannot be negative, got: %s", cfg.ContinuityTolerance))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.MaxBatchSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxBatchSize must be positive, got: %d", cfg.MaxBatchSize))
	}

	if cfg.LaneCount <= 0 || cfg.LaneCount%4 != 0 {
		errors = append(errors, fmt.Sprintf("LaneCount must be a positive multiple of 4, got: %d", cfg.LaneCount))
	}
	if !clockRegex.MatchString(cfg.SlotStart) {
		errors = append(errors, fmt.Sprintf("SlotStart must be in HH:MM format (00:00-23:59), got: %s", cfg.SlotStart))
	}
	if cfg.SlotCount <= 0 {
		errors = append(errors, fmt.Sprintf("SlotCount must be positive, got: %d", cfg.SlotCount))
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		errors = append(errors, fmt.Sprintf("TimeZone must be an IANA zone name, got: %s", cfg.TimeZone))
	} else {
		cfg.Location = loc
	}

	if cfg.PublishEvents && (cfg.AssignmentsTopic == "" || cfg.DiagnosticsTopic == "") {
		errors = append(errors, "AssignmentsTopic and DiagnosticsTopic are required when PublishEvents is set")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
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
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"max_batch_size", cfg.MaxBatchSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"session_duration", cfg.SessionDuration,
		"continuity_tolerance", cfg.ContinuityTolerance,
		"lane_count", cfg.LaneCount,
		"slot_start", cfg.SlotStart,
		"slot_count", cfg.SlotCount,
		"time_zone", cfg.TimeZone,
		"publish_events", cfg.PublishEvents,
		"assignments_topic", cfg.AssignmentsTopic,
		"diagnostics_topic", cfg.DiagnosticsTopic,
		"reservations_topic", cfg.ReservationsTopic,
	)
}

// AllocatorOptions builds allocator options from a validated config.
func (cfg *Config) AllocatorOptions() (allocation.Options, error) {
	topo, err := allocation.NewTopology(cfg.LaneCount)
	if err != nil {
		return allocation.Options{}, err
	}
	return allocation.Options{
		SessionDuration:     cfg.SessionDuration,
		ContinuityTolerance: cfg.ContinuityTolerance,
		Topology:            topo,
		Location:            cfg.location(),
	}, nil
}

func (cfg *Config) ProjectorOptions() projection.Options {
	return projection.Options{
		Start:     cfg.SlotStart,
		Slots:     cfg.SlotCount,
		Interval:  projection.DefaultInterval,
		LaneCount: cfg.LaneCount,
		Location:  cfg.location(),
	}
}

// RunSettings snapshots the allocation settings stored with every run.
func (cfg *Config) RunSettings() model.RunSettings {
	return model.RunSettings{
		SessionMinutes:   int(cfg.SessionDuration / time.Minute),
		ToleranceMinutes: int(cfg.ContinuityTolerance / time.Minute),
		LaneCount:        cfg.LaneCount,
		SlotStart:        cfg.SlotStart,
		SlotCount:        cfg.SlotCount,
		TimeZone:         cfg.TimeZone,
	}
}

func (cfg *Config) location() *time.Location {
	if cfg.Location != nil {
		return cfg.Location
	}
	return time.UTC
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func redactMongoURI(uri string) string {
	return credentialRe.ReplaceAllString(uri, "${1}***:***@")
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

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		return MinPaginationLimit
	}
	return min(limit, DefaultPaginationLimit)
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
