package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all engine configuration loaded from environment variables.
type Config struct {
	App     AppConfig
	API     APIConfig
	Socket  SocketConfig
	Cache   CacheConfig
	Store   StoreConfig
	Economy EconomyConfig
	Bridge  BridgeConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"tradewinds-engine"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// APIConfig holds settings for the game HTTP API client.
type APIConfig struct {
	BaseURL         string        `envconfig:"API_BASE_URL" default:"https://api.tradewinds.example.com"`
	RequestTimeout  time.Duration `envconfig:"API_REQUEST_TIMEOUT" default:"15s"`
	TransferTimeout time.Duration `envconfig:"API_TRANSFER_TIMEOUT" default:"30s"`
	MaxRetryCount   int           `envconfig:"API_MAX_RETRY_COUNT" default:"3"`
	RetryDelay      time.Duration `envconfig:"API_RETRY_DELAY" default:"1s"`
	CacheTTL        time.Duration `envconfig:"API_CACHE_TTL" default:"5m"`
}

// SocketConfig holds settings for the persistent event connection.
type SocketConfig struct {
	URL                 string        `envconfig:"SOCKET_URL" default:"wss://events.tradewinds.example.com/socket"`
	HandshakeTimeout    time.Duration `envconfig:"SOCKET_HANDSHAKE_TIMEOUT" default:"10s"`
	HeartbeatInterval   time.Duration `envconfig:"SOCKET_HEARTBEAT_INTERVAL" default:"10s"`
	BackgroundHeartbeat time.Duration `envconfig:"SOCKET_BACKGROUND_HEARTBEAT" default:"30s"`
	LocationThrottle    time.Duration `envconfig:"SOCKET_LOCATION_THROTTLE" default:"5s"`
	MaxReconnectTries   int           `envconfig:"SOCKET_MAX_RECONNECT_TRIES" default:"5"`
	MaxReconnectDelay   time.Duration `envconfig:"SOCKET_MAX_RECONNECT_DELAY" default:"30s"`
	EventBufferSize     int           `envconfig:"SOCKET_EVENT_BUFFER_SIZE" default:"10"`
	DecodeStrict        bool          `envconfig:"SOCKET_DECODE_STRICT" default:"false"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// StoreConfig holds durable credential store settings.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite or mysql
	Path string `envconfig:"STORE_PATH" default:"./data/engine.db"`

	// MySQL settings (shared-device deployments)
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"3306"`
	Name     string `envconfig:"STORE_DB_NAME" default:"tradewinds"`
	User     string `envconfig:"STORE_DB_USER" default:"root"`
	Password string `envconfig:"STORE_DB_PASS" default:""`
}

// EconomyConfig holds offline-simulation settings.
type EconomyConfig struct {
	OfflineRefreshInterval time.Duration `envconfig:"ECONOMY_OFFLINE_REFRESH" default:"1h"`
	RestockInterval        time.Duration `envconfig:"ECONOMY_RESTOCK_INTERVAL" default:"10m"`
	InventoryCapacity      int           `envconfig:"ECONOMY_INVENTORY_CAPACITY" default:"20"`
	StartingMoney          int64         `envconfig:"ECONOMY_STARTING_MONEY" default:"50000"`
}

// BridgeConfig holds the local UI bridge server settings.
type BridgeConfig struct {
	Host            string        `envconfig:"BRIDGE_HOST" default:"127.0.0.1"`
	Port            int           `envconfig:"BRIDGE_PORT" default:"8790"`
	ReadTimeout     time.Duration `envconfig:"BRIDGE_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"BRIDGE_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"BRIDGE_SHUTDOWN_TIMEOUT" default:"30s"`
}

// Address returns the bridge address in host:port format.
func (b *BridgeConfig) Address() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// DSN returns the MySQL data source name.
func (s *StoreConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.User, s.Password, s.Host, s.Port, s.Name)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
