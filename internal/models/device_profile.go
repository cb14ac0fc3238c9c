package models

import (
	"time"

	"gorm.io/gorm"
)

// DeviceProfile 设备注册信息（注册后只读，作为鉴权的查找依据）
type DeviceProfile struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceName string     `gorm:"not null" json:"device_name"` // 设备名称
	ProfileKey string     `gorm:"not null" json:"profile_key"` // 设备密钥
	CreateUser int64      `gorm:"not null" json:"create_user"` // 创建人
	CreateDate time.Time  `gorm:"not null" json:"create_date"` // 创建时间
	ModifyUser *int64     `json:"modify_user"`
	ModifyDate *time.Time `json:"modify_date"`
}

func (DeviceProfile) TableName() string {
	return "device_profiles"
}

// BeforeCreate GORM钩子：设置创建时间
func (p *DeviceProfile) BeforeCreate(tx *gorm.DB) error {
	if p.CreateDate.IsZero() {
		p.CreateDate = time.Now().UTC()
	}
	return nil
}
