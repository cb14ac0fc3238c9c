package repo

import (
	"context"
	"time"

	"github.com/dushixiang/monitoring/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

type ErrorLogRepo struct {
	orz.Repository[models.ErrorLog, int64]
}

func NewErrorLogRepo(db *gorm.DB) *ErrorLogRepo {
	return &ErrorLogRepo{
		Repository: orz.NewRepository[models.ErrorLog, int64](db),
	}
}

// DeleteBefore 删除指定时间之前的错误日志
func (r *ErrorLogRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.GetDB(ctx).WithContext(ctx).Where("create_date < ?", before).Delete(&models.ErrorLog{})
	return result.RowsAffected, result.Error
}
