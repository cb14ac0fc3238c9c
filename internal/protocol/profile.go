package protocol

// ProfileRequest 设备注册请求
type ProfileRequest struct {
	DeviceName string `json:"device_name" validate:"required,max=255"`
	ProfileKey string `json:"profile_key" validate:"required,max=255"`
	CreateUser int64  `json:"create_user" validate:"gte=0"`
}

// ErrorLogRequest 设备错误日志
type ErrorLogRequest struct {
	Message string `json:"message" validate:"max=65535"`
}
