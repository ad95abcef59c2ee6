package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	HTTP     HTTPConfig              `mapstructure:"http"`
	Pipeline PipelineConfig          `mapstructure:"pipeline"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Events   EventsConfig            `mapstructure:"events"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig configures the candidate API server. Timeouts are milliseconds.
type HTTPConfig struct {
	Port            int  `mapstructure:"port"`
	ReadTimeout     int  `mapstructure:"read_timeout"`
	WriteTimeout    int  `mapstructure:"write_timeout"`
	IdleTimeout     int  `mapstructure:"idle_timeout"`
	ShutdownTimeout int  `mapstructure:"shutdown_timeout"`
	SwaggerEnabled  bool `mapstructure:"swagger_enabled"`
}

// Addr returns the listen address for the API server.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", h.Port)
}

// PipelineConfig tunes the pipeline service.
type PipelineConfig struct {
	// Storage selects the persistence gateway: "postgres" or "memory".
	Storage        string `mapstructure:"storage"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	ReadRetries    int    `mapstructure:"read_retries"`
	RetryBackoff   int    `mapstructure:"retry_backoff"` // milliseconds
	CacheEnabled   bool   `mapstructure:"cache_enabled"`
	CacheTTL       int    `mapstructure:"cache_ttl"` // seconds
	SearchEnabled  bool   `mapstructure:"search_enabled"`
	SearchIndex    string `mapstructure:"search_index"`
	MaxBulkRecords int    `mapstructure:"max_bulk_records"`
	SearchLimit    int    `mapstructure:"search_limit"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EventsConfig lists the sinks pipeline events fan out to. Disabled sinks are skipped.
type EventsConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`

	NATS struct {
		Enabled       bool   `mapstructure:"enabled"`
		URL           string `mapstructure:"url"`
		SubjectPrefix string `mapstructure:"subject_prefix"`
	} `mapstructure:"nats"`

	Zeebe struct {
		Enabled     bool   `mapstructure:"enabled"`
		MessageName string `mapstructure:"message_name"`
		TTL         int    `mapstructure:"ttl"` // milliseconds
	} `mapstructure:"zeebe"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
