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

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "venuemap.cfg.json"), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"foursquare": { "clientId": "id", "clientSecret": "secret" },
		"map": { "breakpoint": 900 }
	}`)

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "id", viper.GetString("foursquare.clientId"))
	assert.Equal(t, 900, viper.GetInt("map.breakpoint"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, "https://api.foursquare.com/v2", viper.GetString("foursquare.baseUrl"))
	assert.Equal(t, "20170801", viper.GetString("foursquare.version"))
	assert.Equal(t, "foursquare", viper.GetString("foursquare.mode"))
	assert.Equal(t, 50, viper.GetInt("imagery.radius"))
	assert.Equal(t, 768, viper.GetInt("map.breakpoint"))
	assert.Equal(t, "baton rouge, LA", viper.GetString("map.initial.near"))
	assert.Equal(t, "food", viper.GetString("map.initial.category"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
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

func TestGetFoursquareConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"foursquare": { "clientId": "id", "clientSecret": "secret", "timeout": "3s", "requestsPerSecond": 2.5 }
	}`)))

	cfg := GetFoursquareConfig()
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, "secret", cfg.ClientSecret)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
	assert.Equal(t, 5, cfg.Burst)
	assert.NoError(t, Validate(cfg))
}

func TestGetFoursquareConfig_MissingCredentialsInvalid(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	err := Validate(GetFoursquareConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ClientID")
}

func TestGetMapConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetMapConfig()
	assert.InDelta(t, 30.433723460, cfg.CenterLat, 1e-9)
	assert.InDelta(t, -91.12495604, cfg.CenterLng, 1e-9)
	assert.Equal(t, 12, cfg.Zoom)
	assert.Equal(t, 10, cfg.Checkpoint)
	assert.Equal(t, int64(8), cfg.MaxConcurrentDetails)
	assert.NoError(t, Validate(cfg))
}

func TestGetMapConfig_InvalidCenter(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{ "map": { "centerLat": 120 } }`)))

	assert.Error(t, Validate(GetMapConfig()))
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"ttl": "1h",
			"sqlite": { "path": "/tmp/cache.db" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, time.Hour, sc.TTL)
	assert.Equal(t, "/tmp/cache.db", sc.SQLite.Path)
	assert.Equal(t, "venuemap", sc.Postgres.Database)
	assert.NoError(t, Validate(sc))
}

func TestGetStorageConfig_UnknownType(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{ "storage": { "type": "redis" } }`)))

	assert.Error(t, Validate(GetStorageConfig()))
}

func TestGetServerConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	sc := GetServerConfig()
	assert.Equal(t, ":8080", sc.Address)
	assert.Equal(t, 30*time.Second, sc.QueryTimeout)
	assert.NoError(t, Validate(sc))
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetInfluxAndGraylogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{
		"influx": { "enabled": true, "bucket": "rounds" },
		"graylog": { "enabled": true, "address": "graylog:12201" }
	}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "rounds", ic.Bucket)
	assert.Equal(t, "8086", ic.Port)

	gc := GetGraylogConfig()
	assert.True(t, gc.Enabled)
	assert.Equal(t, "graylog:12201", gc.Address)
}
