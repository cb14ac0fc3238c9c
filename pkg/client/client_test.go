package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dushixiang/monitoring/internal/config"
	"github.com/dushixiang/monitoring/internal/database"
	"github.com/dushixiang/monitoring/internal/migrate"
	"github.com/dushixiang/monitoring/internal/models"
	"github.com/dushixiang/monitoring/internal/server"
	"github.com/dushixiang/monitoring/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newServer(t *testing.T) (*httptest.Server, *gorm.DB) {
	t.Helper()
	cfg := &config.AppConfig{
		Security: config.SecurityConfig{ApiKey: "api", ReadKey: "read"},
		Database: config.DatabaseConfig{Type: "sqlite", DSN: ":memory:"},
		Ingest:   config.IngestConfig{Mode: config.IngestModeAtomic, Parallelism: 1, StatusTTLMinutes: 1},
	}
	db, err := database.Open(context.Background(), zap.NewNop(), cfg.Database)
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(zap.NewNop(), db))

	ts := httptest.NewServer(server.New(zap.NewNop(), cfg, db).Handler())
	t.Cleanup(func() {
		ts.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return ts, db
}

func TestClientRoundTrip(t *testing.T) {
	ts, db := newServer(t)
	ctx := context.Background()
	c := client.New(client.Config{ApiKey: "api", ServerURL: ts.URL + "/"})

	version, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Contains(t, version, "monitoring-service")

	profile, err := c.RegisterProfile(ctx, client.ProfileRequest{DeviceName: "dev1", ProfileKey: "k1", CreateUser: 1})
	require.NoError(t, err)
	assert.Positive(t, profile.ID)
	assert.Equal(t, int64(1), profile.CreateUser)
	assert.False(t, profile.CreateDate.IsZero())

	profiles, err := c.ListProfiles(ctx, "read")
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "dev1", profiles[0].DeviceName)

	doc := map[string]any{
		"hostname": "web-01",
		"memory":   map[string]any{"total": 2048, "free": 1024},
		"uptime":   30,
	}
	result, err := c.PostSnapshot(ctx, profile.ID, "k1", doc)
	require.NoError(t, err)
	assert.Positive(t, result.SnapshotID)
	assert.Equal(t, 2, result.Succeeded)
	assert.Zero(t, result.Failed)
	require.NoError(t, c.PostErrorLog(ctx, profile.ID, "k1", "disk read failed"))

	var snapshot models.SystemSnapshot
	require.NoError(t, db.First(&snapshot).Error)
	assert.Equal(t, "web-01", snapshot.Hostname)
	assert.Equal(t, int64(30), snapshot.Uptime)

	var entry models.ErrorLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "disk read failed", entry.Message)
}

func TestClientStatusError(t *testing.T) {
	ts, _ := newServer(t)
	ctx := context.Background()

	c := client.New(client.Config{ApiKey: "wrong", ServerURL: ts.URL})
	_, err := c.ListProfiles(ctx, "read")
	var statusErr *client.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "invalid_api_key")

	c = client.New(client.Config{ApiKey: "api", ServerURL: ts.URL})
	_, err = c.PostSnapshot(ctx, 42, "k1", map[string]any{"hostname": "x"})
	require.True(t, errors.As(err, &statusErr))
	assert.Contains(t, statusErr.Body, "profile_not_found")
}

func TestClientSendsHeaders(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := client.New(client.Config{ApiKey: "api", ServerURL: ts.URL})
	require.NoError(t, c.PostErrorLog(context.Background(), 3, "secret", "boom"))
	assert.Equal(t, "api", got.Get("x-api-key"))
	assert.Equal(t, "secret", got.Get("x-profile-key"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
}
