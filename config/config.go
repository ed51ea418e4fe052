package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"sage-api"`
	Port                          int      `env:"PORT" env-default:"3003"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`

	// PostgreSQL (document store)
	DatabaseDriver              string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                string        `env:"DB_HOST" env-default:""`
	DatabasePort                string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"sage"`
	DatabaseSSLMode             string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion    int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce      int           `env:"DB_MIGRATION_FORCE" env-default:"0"`

	// Business directory API (primary source)
	DirectoryBaseURL  string `env:"DIRECTORY_BASE_URL" env-default:"https://api.yelp.com/v3"`
	DirectoryAPIKey   string `env:"DIRECTORY_API_KEY" env-default:""`
	DirectoryLocation string `env:"DIRECTORY_LOCATION" env-default:"Fort Lauderdale, FL"`
	DirectoryTerm     string `env:"DIRECTORY_TERM" env-default:"restaurants"`
	DirectoryRadius   int    `env:"DIRECTORY_RADIUS_METERS" env-default:"8000"`
	DirectoryPageSize int    `env:"DIRECTORY_PAGE_SIZE" env-default:"50"`

	// Places API (secondary source)
	PlacesBaseURL string `env:"PLACES_BASE_URL" env-default:"https://maps.googleapis.com/maps/api"`
	PlacesAPIKey  string `env:"PLACES_API_KEY" env-default:""`

	// Outbound HTTP
	HttpClientTimeoutSeconds int           `env:"HTTP_CLIENT_TIMEOUT_SECONDS" env-default:"30"`
	HttpClientRetryAttempts  int           `env:"HTTP_CLIENT_RETRY_ATTEMPTS" env-default:"3"`
	HttpClientRetryDelay     time.Duration `env:"HTTP_CLIENT_RETRY_DELAY" env-default:"2s"`

	// Sync passes
	SyncCallDelay        time.Duration `env:"SYNC_CALL_DELAY" env-default:"1s"`
	SyncPageDelay        time.Duration `env:"SYNC_PAGE_DELAY" env-default:"2s"`
	SyncMaxPlaceReviews  int           `env:"SYNC_MAX_PLACE_REVIEWS" env-default:"10"`
	SyncDeleteBatchSize  int           `env:"SYNC_DELETE_BATCH_SIZE" env-default:"400"`
	SyncLeaseTTL         time.Duration `env:"SYNC_LEASE_TTL" env-default:"30m"`
	RestaurantCollection string        `env:"RESTAURANT_COLLECTION" env-default:"restaurants"`
	DishCollection       string        `env:"DISH_COLLECTION" env-default:"dishes"`
	ReviewCollection     string        `env:"REVIEW_COLLECTION" env-default:"reviews"`

	// Kafka producer (catalog lifecycle events)
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"catalog-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`

	// Graph database (catalog projection)
	GraphEnabled    bool   `env:"GRAPH_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingExporter string `env:"TRACING_EXPORTER" env-default:"console"`
	TracingEndpoint string `env:"TRACING_ENDPOINT" env-default:"localhost:4317"`
	TracingProtocol string `env:"TRACING_PROTOCOL" env-default:"grpc"`
}
