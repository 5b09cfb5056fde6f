package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// FoursquareConfig holds venue search API settings.
type FoursquareConfig struct {
	BaseURL           string        `json:"baseUrl" mapstructure:"baseUrl" validate:"required,url"`
	ClientID          string        `json:"clientId" mapstructure:"clientId" validate:"required"`
	ClientSecret      string        `json:"clientSecret" mapstructure:"clientSecret" validate:"required"`
	Version           string        `json:"version" mapstructure:"version" validate:"required,len=8,numeric"`
	Mode              string        `json:"mode" mapstructure:"mode" validate:"required"`
	Timeout           time.Duration `json:"timeout" mapstructure:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `json:"requestsPerSecond" mapstructure:"requestsPerSecond" validate:"gte=0"`
	Burst             int           `json:"burst" mapstructure:"burst" validate:"gte=0"`
}

// ImageryConfig holds Street View metadata settings.
type ImageryConfig struct {
	Enabled bool          `json:"enabled" mapstructure:"enabled"`
	BaseURL string        `json:"baseUrl" mapstructure:"baseUrl" validate:"omitempty,url"`
	APIKey  string        `json:"apiKey" mapstructure:"apiKey"`
	Radius  int           `json:"radius" mapstructure:"radius" validate:"gte=0"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" validate:"gte=0"`
}

// InitialQuery is the explore query run at startup.
type InitialQuery struct {
	Term     string `json:"term" mapstructure:"term"`
	Near     string `json:"near" mapstructure:"near"`
	Category string `json:"category" mapstructure:"category"`
}

// MapConfig holds controller and viewport settings.
type MapConfig struct {
	CenterLat            float64      `json:"centerLat" mapstructure:"centerLat" validate:"gte=-90,lte=90"`
	CenterLng            float64      `json:"centerLng" mapstructure:"centerLng" validate:"gte=-180,lte=180"`
	Zoom                 int          `json:"zoom" mapstructure:"zoom" validate:"gte=0,lte=21"`
	Width                int          `json:"width" mapstructure:"width" validate:"gte=0"`
	Height               int          `json:"height" mapstructure:"height" validate:"gte=0"`
	Breakpoint           int          `json:"breakpoint" mapstructure:"breakpoint" validate:"gt=0"`
	Checkpoint           int          `json:"checkpoint" mapstructure:"checkpoint" validate:"gte=0"`
	MaxConcurrentDetails int64        `json:"maxConcurrentDetails" mapstructure:"maxConcurrentDetails" validate:"gt=0"`
	Initial              InitialQuery `json:"initial" mapstructure:"initial"`
}

// ServerConfig holds HTTP and websocket settings.
type ServerConfig struct {
	Address         string        `json:"address" mapstructure:"address" validate:"required"`
	Mode            string        `json:"mode" mapstructure:"mode" validate:"oneof=debug release test"`
	QueryTimeout    time.Duration `json:"queryTimeout" mapstructure:"queryTimeout" validate:"gt=0"`
	IntentBuffer    int           `json:"intentBuffer" mapstructure:"intentBuffer" validate:"gte=0"`
	NotificationCap int           `json:"notificationCap" mapstructure:"notificationCap" validate:"gte=0"`
}

// SQLiteConfig holds sqlite cache settings.
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// PostgresConfig holds postgres cache settings.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslMode" mapstructure:"sslMode"`
}

// StorageConfig selects the venue detail cache.
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type" validate:"oneof=none memory sqlite postgres"`
	TTL      time.Duration  `json:"ttl" mapstructure:"ttl" validate:"gte=0"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds the query metrics sink settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// GraylogConfig holds GELF log shipping settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName("venuemap.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("foursquare.baseUrl", "https://api.foursquare.com/v2")
	viper.SetDefault("foursquare.clientId", "")
	viper.SetDefault("foursquare.clientSecret", "")
	viper.SetDefault("foursquare.version", "20170801")
	viper.SetDefault("foursquare.mode", "foursquare")
	viper.SetDefault("foursquare.timeout", "10s")
	viper.SetDefault("foursquare.requestsPerSecond", 10)
	viper.SetDefault("foursquare.burst", 5)

	viper.SetDefault("imagery.enabled", true)
	viper.SetDefault("imagery.baseUrl", "https://maps.googleapis.com/maps/api")
	viper.SetDefault("imagery.apiKey", "")
	viper.SetDefault("imagery.radius", 50)
	viper.SetDefault("imagery.timeout", "10s")

	viper.SetDefault("map.centerLat", 30.433723460)
	viper.SetDefault("map.centerLng", -91.12495604)
	viper.SetDefault("map.zoom", 12)
	viper.SetDefault("map.width", 1024)
	viper.SetDefault("map.height", 768)
	viper.SetDefault("map.breakpoint", 768)
	viper.SetDefault("map.checkpoint", 10)
	viper.SetDefault("map.maxConcurrentDetails", 8)
	viper.SetDefault("map.initial.term", "")
	viper.SetDefault("map.initial.near", "baton rouge, LA")
	viper.SetDefault("map.initial.category", "food")

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.queryTimeout", "30s")
	viper.SetDefault("server.intentBuffer", 64)
	viper.SetDefault("server.notificationCap", 50)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.ttl", "24h")
	viper.SetDefault("storage.sqlite.path", "./venuemap.db")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "venuemap")
	viper.SetDefault("storage.postgres.sslMode", "disable")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "venuemap")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "venuemap")
	viper.SetDefault("influx.bucket", "queries")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")
}

// GetFoursquareConfig returns the venue API configuration.
func GetFoursquareConfig() FoursquareConfig {
	return FoursquareConfig{
		BaseURL:           viper.GetString("foursquare.baseUrl"),
		ClientID:          viper.GetString("foursquare.clientId"),
		ClientSecret:      viper.GetString("foursquare.clientSecret"),
		Version:           viper.GetString("foursquare.version"),
		Mode:              viper.GetString("foursquare.mode"),
		Timeout:           viper.GetDuration("foursquare.timeout"),
		RequestsPerSecond: viper.GetFloat64("foursquare.requestsPerSecond"),
		Burst:             viper.GetInt("foursquare.burst"),
	}
}

// GetImageryConfig returns the Street View configuration.
func GetImageryConfig() ImageryConfig {
	return ImageryConfig{
		Enabled: viper.GetBool("imagery.enabled"),
		BaseURL: viper.GetString("imagery.baseUrl"),
		APIKey:  viper.GetString("imagery.apiKey"),
		Radius:  viper.GetInt("imagery.radius"),
		Timeout: viper.GetDuration("imagery.timeout"),
	}
}

// GetMapConfig returns the map controller configuration.
func GetMapConfig() MapConfig {
	return MapConfig{
		CenterLat:            viper.GetFloat64("map.centerLat"),
		CenterLng:            viper.GetFloat64("map.centerLng"),
		Zoom:                 viper.GetInt("map.zoom"),
		Width:                viper.GetInt("map.width"),
		Height:               viper.GetInt("map.height"),
		Breakpoint:           viper.GetInt("map.breakpoint"),
		Checkpoint:           viper.GetInt("map.checkpoint"),
		MaxConcurrentDetails: viper.GetInt64("map.maxConcurrentDetails"),
		Initial: InitialQuery{
			Term:     viper.GetString("map.initial.term"),
			Near:     viper.GetString("map.initial.near"),
			Category: viper.GetString("map.initial.category"),
		},
	}
}

// GetServerConfig returns the HTTP server configuration.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address:         viper.GetString("server.address"),
		Mode:            viper.GetString("server.mode"),
		QueryTimeout:    viper.GetDuration("server.queryTimeout"),
		IntentBuffer:    viper.GetInt("server.intentBuffer"),
		NotificationCap: viper.GetInt("server.notificationCap"),
	}
}

// GetStorageConfig returns the venue cache configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		TTL:  viper.GetDuration("storage.ttl"),
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
			SSLMode:  viper.GetString("storage.postgres.sslMode"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the Graylog configuration.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

var validate = validator.New()

// Validate checks a config struct against its validate tags.
func Validate(cfg any) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
