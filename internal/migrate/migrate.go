package migrate

import (
	"github.com/dushixiang/monitoring/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate 创建或更新所有数据表
func Migrate(logger *zap.Logger, db *gorm.DB) error {
	logger.Info("开始执行数据库迁移")

	migrator := db.Migrator()

	fresh := !migrator.HasTable(&models.DeviceProfile{})
	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Error("数据库迁移失败", zap.Error(err))
		return err
	}

	// 快照按设备和时间查询、清理
	if !migrator.HasIndex(&models.SystemSnapshot{}, "idx_snapshot_profile_date") {
		if err := db.Exec("CREATE INDEX idx_snapshot_profile_date ON system_snapshots (device_profile_id, create_date)").Error; err != nil {
			logger.Error("创建快照索引失败", zap.Error(err))
			return err
		}
	}

	logger.Info("数据库迁移完成", zap.Bool("fresh", fresh), zap.Int("tables", len(models.All())))
	return nil
}
