package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dushixiang/monitoring/internal/config"
	"github.com/dushixiang/monitoring/internal/database"
	"github.com/dushixiang/monitoring/internal/migrate"
	"github.com/dushixiang/monitoring/internal/models"
	"github.com/dushixiang/monitoring/internal/protocol"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errForced = errors.New("forced failure")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(context.Background(), zap.NewNop(), config.DatabaseConfig{
		Type: "sqlite",
		DSN:  ":memory:",
	})
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(zap.NewNop(), db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createProfile(t *testing.T, db *gorm.DB, name, key string) *models.DeviceProfile {
	t.Helper()
	profile, err := NewProfileService(zap.NewNop(), db).Register(context.Background(), protocol.ProfileRequest{
		DeviceName: name,
		ProfileKey: key,
		CreateUser: 1,
	})
	require.NoError(t, err)
	return profile
}

// failCreates 让满足条件的插入失败
func failCreates(t *testing.T, db *gorm.DB, match func(dest any) bool) {
	t.Helper()
	name := "test:fail_create"
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		if match(tx.Statement.Dest) {
			_ = tx.AddError(errForced)
		}
	}))
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	tx := db.Model(model)
	if query != "" {
		tx = tx.Where(query, args...)
	}
	require.NoError(t, tx.Count(&n).Error)
	return n
}

// testSnapshot 构造快照：cores 个核心、mounts 个挂载点、网卡 eth0/wlan0
func testSnapshot(cores, mounts int) *protocol.Snapshot {
	load := protocol.CpuLoad{User: 0.2, Nice: 0.01, System: 0.1, Interrupt: 0.01, Idle: 0.68}
	loads := make([]protocol.CpuLoad, cores)
	for i := range loads {
		loads[i] = load
	}
	fs := make([]protocol.Filesystem, mounts)
	for i := range fs {
		fs[i] = protocol.Filesystem{
			Files: 100, FilesTotal: 1000, FilesAvail: 900,
			Free: 1 << 30, Avail: 1 << 29, Total: 1 << 32, NameMax: 255,
			FsType: "ext4", FsMountedFrom: fmt.Sprintf("/dev/sd%c1", 'a'+i), FsMountedOn: fmt.Sprintf("/mnt/%d", i),
		}
	}
	codename := "jammy"
	return &protocol.Snapshot{
		Hostname: "web-01",
		OsInfo: &protocol.OsInfo{
			OsType: "Ubuntu", Version: "22.4.0", Codename: &codename, Bitness: "64-bit",
		},
		Cpu:         &protocol.CpuInformation{Temperature: 51.5, Loads: loads, AggregateLoad: load},
		LoadAvg:     &protocol.LoadAverage{One: 0.5, Five: 0.4, Fifteen: 0.3},
		Memory:      &protocol.Memory{Total: 16 << 30, Free: 4 << 30},
		Swap:        &protocol.Memory{Total: 2 << 30, Free: 2 << 30},
		BatteryLife: &protocol.BatteryLife{RemainingCapacity: 0.9, RemainingTime: protocol.Duration{Secs: 7200}},
		Mounts:      fs,
		Networks: map[string]protocol.Network{
			"eth0": {Name: "eth0", Addrs: []protocol.NetworkAddress{
				{Addr: "10.0.0.5", Netmask: "255.255.255.0"},
				{Addr: "fe80::1", Netmask: "ffff:ffff:ffff:ffff::"},
			}},
			"wlan0": {Name: "wlan0", Addrs: []protocol.NetworkAddress{{Addr: "", Netmask: ""}}},
		},
		NetStats: map[string]protocol.NetworkStatistics{
			"eth0": {RxBytes: 1 << 40, TxBytes: 1 << 39, RxPackets: 1000, TxPackets: 900},
		},
		SocketStats: &protocol.SocketStatistics{TcpSocketsInUse: 12, UdpSocketsInUse: 3},
		Uptime:      protocol.Duration{Secs: 3600},
		BootTime:    &protocol.BootTime{Time: time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)},
	}
}

func snapshotBody(t *testing.T, doc *protocol.Snapshot) []byte {
	t.Helper()
	body, err := json.Marshal(doc)
	require.NoError(t, err)
	return body
}
