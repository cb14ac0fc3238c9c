package client

import "time"

// Profile 设备注册信息
type Profile struct {
	ID         int64      `json:"id"`
	DeviceName string     `json:"device_name"`
	ProfileKey string     `json:"profile_key"`
	CreateUser int64      `json:"create_user"`
	CreateDate time.Time  `json:"create_date"`
	ModifyUser *int64     `json:"modify_user"`
	ModifyDate *time.Time `json:"modify_date"`
}

// ProfileRequest 设备注册请求
type ProfileRequest struct {
	DeviceName string `json:"device_name"`
	ProfileKey string `json:"profile_key"`
	CreateUser int64  `json:"create_user"`
}

// SnapshotResult 快照上报结果
type SnapshotResult struct {
	SnapshotID int64 `json:"snapshot_id"`
	Succeeded  int   `json:"succeeded"`
	Failed     int   `json:"failed"`
}

type errorLogRequest struct {
	Message string `json:"message"`
}
