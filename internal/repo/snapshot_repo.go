package repo

import (
	"context"
	"slices"
	"time"

	"github.com/dushixiang/monitoring/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// deleteBatchSize 按ID批量删除时每条语句的参数个数上限
const deleteBatchSize = 500

// SnapshotRepo 快照及其子记录的数据访问层
type SnapshotRepo struct {
	orz.Repository[models.SystemSnapshot, int64]
}

func NewSnapshotRepo(db *gorm.DB) *SnapshotRepo {
	return &SnapshotRepo{
		Repository: orz.NewRepository[models.SystemSnapshot, int64](db),
	}
}

// Insert 插入一行记录，写入后 row 的ID被回填；上下文中有事务时在事务内执行
func (r *SnapshotRepo) Insert(ctx context.Context, row models.Row) error {
	// 关联字段只用于外键约束，不级联写入
	return r.GetDB(ctx).WithContext(ctx).Omit(clause.Associations).Create(row).Error
}

// Delete 按主键删除一行记录
func (r *SnapshotRepo) Delete(ctx context.Context, row models.Row) error {
	return r.GetDB(ctx).WithContext(ctx).Delete(row).Error
}

// CountByProfileID 统计设备的快照数量
func (r *SnapshotRepo) CountByProfileID(ctx context.Context, profileID int64) (int64, error) {
	var count int64
	err := r.GetDB(ctx).WithContext(ctx).Model(&models.SystemSnapshot{}).
		Where("device_profile_id = ?", profileID).
		Count(&count).Error
	return count, err
}

// DeleteBefore 删除指定时间之前的快照，先删除子记录再删除根记录
// 需要原子性时由调用方在事务中执行
func (r *SnapshotRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	db := r.GetDB(ctx).WithContext(ctx)
	snapshotIDs := db.Model(&models.SystemSnapshot{}).Select("id").Where("create_date < ?", before)
	cpuInfoIDs := db.Model(&models.CpuInformation{}).Select("id").Where("snapshot_id IN (?)", snapshotIDs)
	interfaceIDs := db.Model(&models.NetworkInterface{}).Select("id").Where("snapshot_id IN (?)", snapshotIDs)

	// CPU 负载行没有快照外键，需要在引用它们的行删除之前收集
	var loadIDs []int64
	if err := db.Model(&models.CpuInformation{}).Where("snapshot_id IN (?)", snapshotIDs).
		Pluck("aggregate_load_id", &loadIDs).Error; err != nil {
		return 0, err
	}
	var coreLoadIDs []int64
	if err := db.Model(&models.CpuCoreLoad{}).Where("cpu_information_id IN (?)", cpuInfoIDs).
		Pluck("cpu_load_id", &coreLoadIDs).Error; err != nil {
		return 0, err
	}
	loadIDs = append(loadIDs, coreLoadIDs...)

	steps := []struct {
		model any
		query string
		arg   any
	}{
		{&models.CpuCoreLoad{}, "cpu_information_id IN (?)", cpuInfoIDs},
		{&models.NetworkAddress{}, "network_interface_id IN (?)", interfaceIDs},
		{&models.NetworkStatistics{}, "snapshot_id IN (?)", snapshotIDs},
		{&models.CpuInformation{}, "snapshot_id IN (?)", snapshotIDs},
		{&models.NetworkInterface{}, "snapshot_id IN (?)", snapshotIDs},
		{&models.OsInfo{}, "snapshot_id IN (?)", snapshotIDs},
		{&models.LoadAverage{}, "snapshot_id IN (?)", snapshotIDs},
		{&models.MemoryInfo{}, "snapshot_id IN (?)", snapshotIDs},
		{&models.SwapInfo{}, "snapshot_id IN (?)", snapshotIDs},
		{&models.BatteryLife{}, "snapshot_id IN (?)", snapshotIDs},
		{&models.FilesystemMount{}, "snapshot_id IN (?)", snapshotIDs},
		{&models.SocketStatistics{}, "snapshot_id IN (?)", snapshotIDs},
	}
	for _, step := range steps {
		if err := db.Where(step.query, step.arg).Delete(step.model).Error; err != nil {
			return 0, err
		}
	}
	// 单条语句的绑定参数个数有上限（SQLite 32766，Postgres 65535）
	for chunk := range slices.Chunk(loadIDs, deleteBatchSize) {
		if err := db.Where("id IN ?", chunk).Delete(&models.CpuLoad{}).Error; err != nil {
			return 0, err
		}
	}

	result := db.Where("create_date < ?", before).Delete(&models.SystemSnapshot{})
	return result.RowsAffected, result.Error
}
