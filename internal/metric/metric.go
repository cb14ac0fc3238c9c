package metric

import "time"

// IngestStatus 设备最近一次快照写入的结果
type IngestStatus struct {
	ProfileID  int64          `json:"profile_id"`
	SnapshotID int64          `json:"snapshot_id"`
	Mode       string         `json:"mode"`      // best-effort / atomic
	Succeeded  int            `json:"succeeded"` // 成功写入的行数（含根记录）
	Failed     int            `json:"failed"`
	FailedKind map[string]int `json:"failed_kind,omitempty"` // 按实体类型统计的失败数
	Duration   int64          `json:"duration"`              // 毫秒
	Timestamp  time.Time      `json:"timestamp"`
}

// Complete 是否所有行都写入成功
func (s *IngestStatus) Complete() bool {
	return s.Failed == 0
}
