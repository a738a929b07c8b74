package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds the configuration for an S3I gateway agent
type Config struct {
	// S3I platform configuration
	IdPURL       string `yaml:"idp_url"`
	BrokerURL    string `yaml:"broker_url"`
	ThingID      string `yaml:"thing_id"`
	ThingSecret  string `yaml:"thing_secret"`
	MessageQueue string `yaml:"message_queue"`
	EventQueue   string `yaml:"event_queue"`
	// Optional user credentials for the password grant
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Postgres configuration (image store)
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     int    `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_ssl_mode"`

	// Redis configuration (drain status)
	RedisHost     string `yaml:"redis_host"`
	RedisPort     int    `yaml:"redis_port"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// MQTT configuration (downstream trigger publishing, optional)
	MQTTEnabled  bool   `yaml:"mqtt_enabled"`
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTPort     int    `yaml:"mqtt_port"`
	MQTTUser     string `yaml:"mqtt_user"`
	MQTTPassword string `yaml:"mqtt_password"`
	MQTTClientID string `yaml:"mqtt_client_id"`

	// Service configuration
	ServiceName     string `yaml:"service_name"`
	HealthPort      int    `yaml:"health_port"`
	LogLevel        string `yaml:"log_level"`
	PollIntervalSec int    `yaml:"poll_interval_sec"`

	// Camera site location, used for daylight annotation of stored images
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		IdPURL:           "https://idp.s3i.vswf.dev/auth/realms/KWH/protocol/openid-connect/token",
		BrokerURL:        "https://broker.s3i.vswf.dev",
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "s3i",
		PostgresPassword: "",
		PostgresDB:       "s3i_gateway",
		PostgresSSLMode:  "disable",
		RedisHost:        "localhost",
		RedisPort:        6379,
		RedisPassword:    "",
		RedisDB:          0,
		MQTTEnabled:      false,
		MQTTBroker:       "localhost",
		MQTTPort:         1883,
		ServiceName:      "fetch-agent",
		HealthPort:       8080,
		LogLevel:         "info",
		PollIntervalSec:  60,
		// Aachen area, where the camera sites are
		Latitude:  50.7753,
		Longitude: 6.0839,
	}
}

// LoadFromFile overrides configuration from a YAML file. A missing file is
// not an error so deployments can rely on env/flags alone.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables with S3I_ prefix
func (c *Config) LoadFromEnv() {
	// S3I platform configuration
	if v := os.Getenv("S3I_IDP_URL"); v != "" {
		c.IdPURL = v
	}
	if v := os.Getenv("S3I_BROKER_URL"); v != "" {
		c.BrokerURL = v
	}
	if v := os.Getenv("S3I_THING_ID"); v != "" {
		c.ThingID = v
	}
	if v := os.Getenv("S3I_THING_SECRET"); v != "" {
		c.ThingSecret = v
	}
	if v := os.Getenv("S3I_MESSAGE_QUEUE"); v != "" {
		c.MessageQueue = v
	}
	if v := os.Getenv("S3I_EVENT_QUEUE"); v != "" {
		c.EventQueue = v
	}
	if v := os.Getenv("S3I_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("S3I_PASSWORD"); v != "" {
		c.Password = v
	}

	// Postgres configuration
	if v := os.Getenv("S3I_POSTGRES_HOST"); v != "" {
		c.PostgresHost = v
	}
	if v := os.Getenv("S3I_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.PostgresPort = port
		}
	}
	if v := os.Getenv("S3I_POSTGRES_USER"); v != "" {
		c.PostgresUser = v
	}
	if v := os.Getenv("S3I_POSTGRES_PASSWORD"); v != "" {
		c.PostgresPassword = v
	}
	if v := os.Getenv("S3I_POSTGRES_DB"); v != "" {
		c.PostgresDB = v
	}
	if v := os.Getenv("S3I_POSTGRES_SSL_MODE"); v != "" {
		c.PostgresSSLMode = v
	}

	// Redis configuration
	if v := os.Getenv("S3I_REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("S3I_REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.RedisPort = port
		}
	}
	if v := os.Getenv("S3I_REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("S3I_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}

	// MQTT configuration
	if v := os.Getenv("S3I_MQTT_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.MQTTEnabled = enabled
		}
	}
	if v := os.Getenv("S3I_MQTT_BROKER"); v != "" {
		c.MQTTBroker = v
	}
	if v := os.Getenv("S3I_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.MQTTPort = port
		}
	}
	if v := os.Getenv("S3I_MQTT_USER"); v != "" {
		c.MQTTUser = v
	}
	if v := os.Getenv("S3I_MQTT_PASSWORD"); v != "" {
		c.MQTTPassword = v
	}
	if v := os.Getenv("S3I_MQTT_CLIENT_ID"); v != "" {
		c.MQTTClientID = v
	}

	// Service configuration
	if v := os.Getenv("S3I_SERVICE_NAME"); v != "" {
		c.ServiceName = v
	}
	if v := os.Getenv("S3I_HEALTH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HealthPort = port
		}
	}
	if v := os.Getenv("S3I_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("S3I_POLL_INTERVAL_SEC"); v != "" {
		if interval, err := strconv.Atoi(v); err == nil {
			c.PollIntervalSec = interval
		}
	}
	if v := os.Getenv("S3I_LATITUDE"); v != "" {
		if lat, err := strconv.ParseFloat(v, 64); err == nil {
			c.Latitude = lat
		}
	}
	if v := os.Getenv("S3I_LONGITUDE"); v != "" {
		if lon, err := strconv.ParseFloat(v, 64); err == nil {
			c.Longitude = lon
		}
	}
}

// LoadFromFlags parses command-line flags and overrides config values
func (c *Config) LoadFromFlags() {
	// S3I flags
	pflag.StringVar(&c.IdPURL, "idp-url", c.IdPURL, "S3I identity provider token endpoint")
	pflag.StringVar(&c.BrokerURL, "broker-url", c.BrokerURL, "S3I broker URL")
	pflag.StringVar(&c.ThingID, "thing-id", c.ThingID, "S3I thing id")
	pflag.StringVar(&c.MessageQueue, "message-queue", c.MessageQueue, "S3I message queue address")
	pflag.StringVar(&c.EventQueue, "event-queue", c.EventQueue, "S3I event queue address")

	// Postgres flags
	pflag.StringVar(&c.PostgresHost, "postgres-host", c.PostgresHost, "Postgres hostname")
	pflag.IntVar(&c.PostgresPort, "postgres-port", c.PostgresPort, "Postgres port")
	pflag.StringVar(&c.PostgresUser, "postgres-user", c.PostgresUser, "Postgres username")
	pflag.StringVar(&c.PostgresDB, "postgres-db", c.PostgresDB, "Postgres database name")
	pflag.StringVar(&c.PostgresSSLMode, "postgres-ssl-mode", c.PostgresSSLMode, "Postgres SSL mode")

	// Redis flags
	pflag.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis hostname")
	pflag.IntVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	pflag.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")

	// MQTT flags
	pflag.BoolVar(&c.MQTTEnabled, "mqtt-enabled", c.MQTTEnabled, "Publish trigger messages over MQTT")
	pflag.StringVar(&c.MQTTBroker, "mqtt-broker", c.MQTTBroker, "MQTT broker hostname")
	pflag.IntVar(&c.MQTTPort, "mqtt-port", c.MQTTPort, "MQTT broker port")
	pflag.StringVar(&c.MQTTClientID, "mqtt-client-id", c.MQTTClientID, "MQTT client ID")

	// Service flags
	pflag.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Service name")
	pflag.IntVar(&c.HealthPort, "health-port", c.HealthPort, "Health check HTTP port")
	pflag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (trace, debug, info, warn, error)")
	pflag.IntVar(&c.PollIntervalSec, "poll-interval", c.PollIntervalSec, "Queue poll interval in seconds")
	pflag.Float64Var(&c.Latitude, "latitude", c.Latitude, "Camera site latitude for daylight annotation")
	pflag.Float64Var(&c.Longitude, "longitude", c.Longitude, "Camera site longitude for daylight annotation")

	pflag.Parse()
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.IdPURL == "" {
		return fmt.Errorf("identity provider URL is required")
	}
	if c.BrokerURL == "" {
		return fmt.Errorf("broker URL is required")
	}
	if c.ThingID == "" {
		return fmt.Errorf("thing id is required")
	}
	if c.ThingSecret == "" {
		return fmt.Errorf("thing secret is required")
	}
	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("health port must be between 1 and 65535")
	}
	if c.PollIntervalSec <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}

	// Keep in sync with logging.ParseLevel.
	validLogLevels := map[string]bool{
		"trace":   true,
		"debug":   true,
		"info":    true,
		"success": true,
		"warn":    true,
		"warning": true,
		"error":   true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be trace, debug, info, success, warn, warning, or error)", c.LogLevel)
	}

	return nil
}

// RedisAddress returns the full Redis address
func (c *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// MQTTAddress returns the full MQTT broker address
func (c *Config) MQTTAddress() string {
	return fmt.Sprintf("tcp://%s:%d", c.MQTTBroker, c.MQTTPort)
}

// PostgresConnectionString returns the lib/pq connection string
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword,
		c.PostgresDB, c.PostgresSSLMode)
}
