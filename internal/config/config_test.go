package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{
		"logLevel": "debug",
		"client": { "serverUrl": "http://board:8080" },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "http://board:8080", viper.GetString("client.serverUrl"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(t.TempDir()))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./figureboard-logs", viper.GetString("logsDir"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
}

func TestLoad_InvalidFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{ not json`)

	err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{ "server": { "listen": ":4000" } }`)
	t.Setenv("FIGUREBOARD_SERVER_LISTEN", ":5000")

	require.NoError(t, Load(dir))
	assert.Equal(t, ":5000", GetServerConfig().Listen)
}

func TestLoad_DotEnv(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FIGUREBOARD_CLIENT_WSPATH=/socket\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("FIGUREBOARD_CLIENT_WSPATH") })

	require.NoError(t, Load(dir))
	assert.Equal(t, "/socket", GetClientConfig().WSPath)
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetClientConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(t.TempDir()))

	assert.Equal(t, ClientConfig{
		ServerURL:     "http://localhost:3000",
		WSPath:        "/ws",
		MaxFrameBytes: 8 << 20,
		ZoomStep:      0.1,
		CellWidth:     10,
		CellHeight:    20,
		FigureName:    "Figure",
		FigureWidth:   50,
		FigureHeight:  50,
	}, GetClientConfig())
}

func TestGetClientConfig_MaxFrameBytesFromFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{ "client": { "maxFrameBytes": 33554432 } }`)

	require.NoError(t, Load(dir))
	assert.Equal(t, int64(32<<20), GetClientConfig().MaxFrameBytes)
}

func TestGetServerConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(t.TempDir()))

	sc := GetServerConfig()
	assert.Equal(t, ":3000", sc.Listen)
	assert.Equal(t, "uploads", sc.UploadsDir)
	assert.Equal(t, "static", sc.StaticDir)
	assert.Equal(t, "/static/default_map.jpg", sc.DefaultMap)
	assert.Equal(t, int64(10<<20), sc.MaxUploadBytes)
	assert.Equal(t, []string{"*"}, sc.AllowedOrigins)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{
		"storage": { "type": "sqlite", "sqlite": { "path": "/tmp/board.db" } },
		"db": { "database": "boards" }
	}`)
	require.NoError(t, Load(dir))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/board.db", sc.SQLite.Path)
	assert.Equal(t, "boards", sc.DB.Database)
	assert.Equal(t, "localhost", sc.DB.Host)
}

func TestGetInfluxConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(t.TempDir()))

	ic := GetInfluxConfig()
	assert.False(t, ic.Enabled)
	assert.Equal(t, "http", ic.Protocol)
	assert.Equal(t, "figureboard", ic.Bucket)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	writeConfig(t, dir, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-board",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)
	require.NoError(t, Load(dir))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-board", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetGraylogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("graylog.enabled", true)
	viper.Set("graylog.address", "gray:12201")

	assert.Equal(t, GraylogConfig{Enabled: true, Address: "gray:12201"}, GetGraylogConfig())
}
