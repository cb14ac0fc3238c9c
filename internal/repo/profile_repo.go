package repo

import (
	"context"
	"errors"

	"github.com/dushixiang/monitoring/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

// ProfileRepo 设备注册信息数据访问层
type ProfileRepo struct {
	orz.Repository[models.DeviceProfile, int64]
}

func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{
		Repository: orz.NewRepository[models.DeviceProfile, int64](db),
	}
}

// FindByID 根据ID获取设备，不存在时返回 nil
func (r *ProfileRepo) FindByID(ctx context.Context, id int64) (*models.DeviceProfile, error) {
	var profile models.DeviceProfile
	err := r.GetDB(ctx).WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindAll 获取所有设备，按ID升序
func (r *ProfileRepo) FindAll(ctx context.Context) ([]models.DeviceProfile, error) {
	var profiles []models.DeviceProfile
	err := r.GetDB(ctx).WithContext(ctx).Order("id ASC").Find(&profiles).Error
	return profiles, err
}
