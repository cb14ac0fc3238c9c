package models

import (
	"time"

	"gorm.io/gorm"
)

// ErrorLog 设备上报的错误日志，与快照无关
type ErrorLog struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceProfileID int64          `gorm:"index;not null" json:"device_profile_id"`
	DeviceProfile   *DeviceProfile `gorm:"foreignKey:DeviceProfileID" json:"-"`
	Message         string         `gorm:"type:text" json:"message"`
	CreateDate      time.Time      `gorm:"index;not null" json:"create_date"`
}

func (ErrorLog) TableName() string {
	return "error_logs"
}

// BeforeCreate GORM钩子：设置创建时间
func (e *ErrorLog) BeforeCreate(tx *gorm.DB) error {
	if e.CreateDate.IsZero() {
		e.CreateDate = time.Now().UTC()
	}
	return nil
}
