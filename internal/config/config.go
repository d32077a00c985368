// Package config loads settings from defaults, an optional JSON file, a .env
// file and FIGUREBOARD_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "figureboard.cfg.json"

// EnvPrefix prefixes every environment override, e.g. FIGUREBOARD_SERVER_LISTEN.
const EnvPrefix = "FIGUREBOARD"

// ClientConfig holds the settings of the interactive client.
type ClientConfig struct {
	ServerURL string
	WSPath    string
	// MaxFrameBytes bounds a single inbound snapshot frame.
	MaxFrameBytes int64
	ZoomStep      float64
	CellWidth     float64
	CellHeight    float64
	FigureName    string
	FigureWidth   float64
	FigureHeight  float64
}

// ServerConfig holds the settings of the authority.
type ServerConfig struct {
	Listen         string
	UploadsDir     string
	StaticDir      string
	DefaultMap     string
	MaxUploadBytes int64
	AllowedOrigins []string
}

// MemoryConfig holds in-memory storage settings.
type MemoryConfig struct {
	ExportPath string
}

// SQLiteConfig holds SQLite storage settings.
type SQLiteConfig struct {
	Path string
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// StorageConfig holds storage backend settings.
type StorageConfig struct {
	Type   string
	Memory MemoryConfig
	SQLite SQLiteConfig
	DB     DBConfig
}

// InfluxConfig holds InfluxDB metrics settings.
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
}

// GraylogConfig holds Graylog output settings.
type GraylogConfig struct {
	Enabled bool
	Address string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Load sets defaults, loads <configDir>/.env and reads the JSON config file if
// present. A missing file is not an error; an unreadable one is.
func Load(configDir string) error {
	setDefaults()

	if err := godotenv.Load(filepath.Join(configDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./figureboard-logs")

	viper.SetDefault("client.serverUrl", "http://localhost:3000")
	viper.SetDefault("client.wsPath", "/ws")
	viper.SetDefault("client.maxFrameBytes", 8<<20)

	viper.SetDefault("view.zoomStep", 0.1)
	viper.SetDefault("view.cellWidth", 10)
	viper.SetDefault("view.cellHeight", 20)

	viper.SetDefault("figure.defaultName", "Figure")
	viper.SetDefault("figure.defaultWidth", 50)
	viper.SetDefault("figure.defaultHeight", 50)

	viper.SetDefault("server.listen", ":3000")
	viper.SetDefault("server.uploadsDir", "uploads")
	viper.SetDefault("server.staticDir", "static")
	viper.SetDefault("server.defaultMap", "/static/default_map.jpg")
	viper.SetDefault("server.maxUploadBytes", 10<<20)
	viper.SetDefault("server.allowedOrigins", []string{"*"})

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.exportPath", "")
	viper.SetDefault("storage.sqlite.path", "figureboard.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "figureboard")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "figureboard")
	viper.SetDefault("influx.bucket", "figureboard")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "figureboard")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
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

// GetClientConfig returns the client settings.
func GetClientConfig() ClientConfig {
	return ClientConfig{
		ServerURL:     viper.GetString("client.serverUrl"),
		WSPath:        viper.GetString("client.wsPath"),
		MaxFrameBytes: viper.GetInt64("client.maxFrameBytes"),
		ZoomStep:      viper.GetFloat64("view.zoomStep"),
		CellWidth:     viper.GetFloat64("view.cellWidth"),
		CellHeight:    viper.GetFloat64("view.cellHeight"),
		FigureName:    viper.GetString("figure.defaultName"),
		FigureWidth:   viper.GetFloat64("figure.defaultWidth"),
		FigureHeight:  viper.GetFloat64("figure.defaultHeight"),
	}
}

// GetServerConfig returns the authority settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Listen:         viper.GetString("server.listen"),
		UploadsDir:     viper.GetString("server.uploadsDir"),
		StaticDir:      viper.GetString("server.staticDir"),
		DefaultMap:     viper.GetString("server.defaultMap"),
		MaxUploadBytes: viper.GetInt64("server.maxUploadBytes"),
		AllowedOrigins: viper.GetStringSlice("server.allowedOrigins"),
	}
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			ExportPath: viper.GetString("storage.memory.exportPath"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
		DB: DBConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB settings.
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

// GetGraylogConfig returns the Graylog settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
