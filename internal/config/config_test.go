package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ADMIN_EMAIL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "mysql", cfg.StoreDriver)
	assert.Equal(t, "admin@formini.com", cfg.AdminEmail)
	assert.Equal(t, "local", cfg.FileStore.Driver)
	assert.Equal(t, "console", cfg.Notifier.Driver)
	assert.Equal(t, 15*time.Second, cfg.Notifier.SMTP.Timeout)
	assert.False(t, cfg.GoogleEnabled())
	assert.False(t, cfg.FacebookEnabled())
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "formini.yaml")
	content := `
server_port: "9090"
store_driver: mongo
mongo_db: learning
admin_email: " Root@Example.COM "
file_store:
  driver: minio
  minio:
    endpoint: minio:9000
    bucket: cvs
notifier:
  driver: smtp
  smtp:
    host: smtp.example.com
    port: 587
    timeout: 5s
google:
  client_id: google-client
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("ENV", "test")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("MINIO_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.ServerPort)
	assert.Equal(t, "mongo", cfg.StoreDriver)
	assert.Equal(t, "learning", cfg.MongoDB)
	assert.Equal(t, "root@example.com", cfg.AdminEmail)
	assert.Equal(t, "minio:9000", cfg.FileStore.Minio.Endpoint)
	assert.Equal(t, "secret", cfg.FileStore.Minio.SecretKey)
	assert.Equal(t, 587, cfg.Notifier.SMTP.Port)
	assert.Equal(t, 5*time.Second, cfg.Notifier.SMTP.Timeout)
	assert.True(t, cfg.GoogleEnabled())
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORE_DRIVER", "cassandra")

	_, err := Load()
	assert.Error(t, err)
}
