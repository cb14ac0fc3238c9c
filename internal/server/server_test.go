package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dushixiang/monitoring/internal/config"
	"github.com/dushixiang/monitoring/internal/database"
	"github.com/dushixiang/monitoring/internal/migrate"
	"github.com/dushixiang/monitoring/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const snapshotJSON = `{
  "hostname": "web-01",
  "cpu": {
    "temperature": 40,
    "loads": [
      {"user": 0.1, "nice": 0, "system": 0.1, "interrupt": 0, "idle": 0.8},
      {"user": 0.2, "nice": 0, "system": 0.1, "interrupt": 0, "idle": 0.7},
      {"user": 0.3, "nice": 0, "system": 0.1, "interrupt": 0, "idle": 0.6},
      {"user": 0.4, "nice": 0, "system": 0.1, "interrupt": 0, "idle": 0.5}
    ],
    "aggregate_load": {"user": 0.25, "nice": 0, "system": 0.1, "interrupt": 0, "idle": 0.65}
  },
  "memory": {"total": 1024, "free": 512},
  "mounts": [
    {"files": 1, "files_total": 2, "files_avail": 1, "free": 10, "avail": 10, "total": 20, "name_max": 255,
     "fs_type": "ext4", "fs_mounted_from": "/dev/sda1", "fs_mounted_on": "/"},
    {"files": 1, "files_total": 2, "files_avail": 1, "free": 10, "avail": 10, "total": 20, "name_max": 255,
     "fs_type": "xfs", "fs_mounted_from": "/dev/sdb1", "fs_mounted_on": "/data"}
  ],
  "uptime": {"secs": 120, "nanos": 0},
  "boot_time": "2024-03-01T08:30:00"
}`

type testServer struct {
	t       *testing.T
	db      *gorm.DB
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.AppConfig{
		Server:   config.ServerConfig{Addr: ":0", BodyLimit: "1M"},
		Security: config.SecurityConfig{ApiKey: "api", ReadKey: "read"},
		Database: config.DatabaseConfig{Type: "sqlite", DSN: ":memory:"},
		Ingest:   config.IngestConfig{Mode: config.IngestModeBestEffort, Parallelism: 2, StatusTTLMinutes: 5},
	}
	db, err := database.Open(context.Background(), zap.NewNop(), cfg.Database)
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(zap.NewNop(), db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return &testServer{t: t, db: db, handler: New(zap.NewNop(), cfg, db).Handler()}
}

func (s *testServer) do(method, path string, headers map[string]string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(name, key string) models.DeviceProfile {
	rec := s.do(http.MethodPost, "/profiles", map[string]string{"x-api-key": "api"},
		fmt.Sprintf(`{"device_name": %q, "profile_key": %q, "create_user": 7}`, name, key))
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var profile models.DeviceProfile
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &profile))
	return profile
}

func (s *testServer) count(model any) int64 {
	var n int64
	require.NoError(s.t, s.db.Model(model).Count(&n).Error)
	return n
}

func deviceHeaders(key string) map[string]string {
	return map[string]string{"x-api-key": "api", "x-profile-key": key}
}

func TestVersion(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "monitoring-service")
}

func TestPostSnapshot(t *testing.T) {
	s := newTestServer(t)
	profile := s.register("dev1", "k1")

	rec := s.do(http.MethodPost, fmt.Sprintf("/system-info/%d", profile.ID), deviceHeaders("k1"), snapshotJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		SnapshotID int64 `json:"snapshot_id"`
		Failed     int   `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Positive(t, resp.SnapshotID)
	assert.Zero(t, resp.Failed)

	var snapshot models.SystemSnapshot
	require.NoError(t, s.db.First(&snapshot, resp.SnapshotID).Error)
	assert.Equal(t, profile.ID, snapshot.DeviceProfileID)

	assert.Equal(t, int64(1), s.count(&models.CpuInformation{}))
	assert.Equal(t, int64(5), s.count(&models.CpuLoad{}))
	assert.Equal(t, int64(4), s.count(&models.CpuCoreLoad{}))
	assert.Equal(t, int64(2), s.count(&models.FilesystemMount{}))
	assert.Equal(t, int64(1), s.count(&models.MemoryInfo{}))
	assert.Equal(t, int64(0), s.count(&models.SwapInfo{}))

	rec = s.do(http.MethodGet, fmt.Sprintf("/system-info/%d/status", profile.ID), deviceHeaders("k1"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf(`"snapshot_id":%d`, resp.SnapshotID))
}

func TestPostSnapshotAuthFailures(t *testing.T) {
	s := newTestServer(t)
	profile := s.register("dev1", "k1")
	path := fmt.Sprintf("/system-info/%d", profile.ID)

	tests := []struct {
		name    string
		path    string
		headers map[string]string
		reason  string
	}{
		{"no headers", path, nil, "missing_api_key"},
		{"wrong api key", path, map[string]string{"x-api-key": "bad", "x-profile-key": "k1"}, "invalid_api_key"},
		{"missing profile key", path, map[string]string{"x-api-key": "api"}, "missing_profile_key"},
		{"wrong profile key", path, deviceHeaders("k2"), "invalid_profile_key"},
		{"unknown profile", "/system-info/9999", deviceHeaders("k1"), "profile_not_found"},
		{"non numeric profile", "/system-info/abc", deviceHeaders("k1"), "profile_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, tt.path, tt.headers, snapshotJSON)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.reason)
		})
	}
	assert.Equal(t, int64(0), s.count(&models.SystemSnapshot{}))
	assert.Equal(t, int64(0), s.count(&models.CpuLoad{}))
}

func TestPostSnapshotInvalidBody(t *testing.T) {
	s := newTestServer(t)
	profile := s.register("dev1", "k1")
	path := fmt.Sprintf("/system-info/%d", profile.ID)

	for _, body := range []string{
		"not json",
		`{"hostname": {"Unix": [255, 254]}}`,
		`{"memory": {"total": 18446744073709551615, "free": 0}}`,
	} {
		rec := s.do(http.MethodPost, path, deviceHeaders("k1"), body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Equal(t, int64(0), s.count(&models.SystemSnapshot{}))
}

func TestGetSnapshotNotImplemented(t *testing.T) {
	s := newTestServer(t)
	profile := s.register("dev1", "k1")

	rec := s.do(http.MethodGet, fmt.Sprintf("/system-info/%d", profile.ID), deviceHeaders("k1"), "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	// 鉴权先于处理函数
	rec = s.do(http.MethodGet, fmt.Sprintf("/system-info/%d", profile.ID), deviceHeaders("wrong"), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusNotFoundBeforeIngest(t *testing.T) {
	s := newTestServer(t)
	profile := s.register("dev1", "k1")

	rec := s.do(http.MethodGet, fmt.Sprintf("/system-info/%d/status", profile.ID), deviceHeaders("k1"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostErrorLog(t *testing.T) {
	s := newTestServer(t)
	profile := s.register("dev1", "k1")
	path := fmt.Sprintf("/error/%d", profile.ID)

	rec := s.do(http.MethodPost, path, deviceHeaders("k1"), `{"message": "collector crashed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, path, deviceHeaders("k1"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, path, deviceHeaders("nope"), `{"message": "x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var logs []models.ErrorLog
	require.NoError(t, s.db.Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "collector crashed", logs[0].Message)
	assert.Equal(t, profile.ID, logs[0].DeviceProfileID)
	assert.Equal(t, "", logs[1].Message)
}

func TestProfiles(t *testing.T) {
	s := newTestServer(t)
	first := s.register("dev1", "k1")
	second := s.register("dev2", "k2")
	assert.Positive(t, first.ID)
	assert.Equal(t, int64(7), first.CreateUser)

	rec := s.do(http.MethodGet, "/profiles", map[string]string{"x-api-key": "api", "x-read-key": "read"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var profiles []models.DeviceProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profiles))
	require.Len(t, profiles, 2)
	assert.Equal(t, first.ID, profiles[0].ID)
	assert.Equal(t, second.ID, profiles[1].ID)
	assert.Equal(t, "k2", profiles[1].ProfileKey)

	for _, headers := range []map[string]string{
		{"x-api-key": "api"},
		{"x-api-key": "api", "x-read-key": "bad"},
		{"x-read-key": "read"},
	} {
		rec := s.do(http.MethodGet, "/profiles", headers, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec = s.do(http.MethodPost, "/profiles", nil, `{"device_name": "x", "profile_key": "y"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodPost, "/profiles", map[string]string{"x-api-key": "api"}, `{"device_name": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int64(2), s.count(&models.DeviceProfile{}))
}

func TestStorageFailureIs500(t *testing.T) {
	s := newTestServer(t)
	profile := s.register("dev1", "k1")
	require.NoError(t, s.db.Migrator().DropTable(&models.SystemSnapshot{}))

	rec := s.do(http.MethodPost, fmt.Sprintf("/system-info/%d", profile.ID), deviceHeaders("k1"), snapshotJSON)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	require.NoError(t, s.db.Migrator().DropTable(&models.DeviceProfile{}))
	rec = s.do(http.MethodGet, "/profiles", map[string]string{"x-api-key": "api", "x-read-key": "read"}, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
