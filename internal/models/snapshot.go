package models

import (
	"time"

	"gorm.io/gorm"
)

// Row 快照写入计划中的一条关系记录
type Row interface {
	TableName() string
	GetID() int64
}

// SystemSnapshot 快照根记录，写入后不再修改
type SystemSnapshot struct {
	ID              int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceProfileID int64          `gorm:"index;not null" json:"device_profile_id"`
	DeviceProfile   *DeviceProfile `gorm:"foreignKey:DeviceProfileID" json:"-"`
	Hostname        string         `json:"hostname"`
	Uptime          int64          `json:"uptime"` // 秒
	BootTime        *time.Time     `json:"boot_time"`
	CreateDate      time.Time      `gorm:"index;not null" json:"create_date"`
}

func (SystemSnapshot) TableName() string { return "system_snapshots" }
func (s *SystemSnapshot) GetID() int64   { return s.ID }

// BeforeCreate GORM钩子：设置创建时间
func (s *SystemSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.CreateDate.IsZero() {
		s.CreateDate = time.Now().UTC()
	}
	return nil
}

// CpuLoad CPU 负载比例，聚合负载和每个核心各一条
type CpuLoad struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	User      float64 `json:"user"`
	Nice      float64 `json:"nice"`
	System    float64 `json:"system"`
	Interrupt float64 `json:"interrupt"`
	Idle      float64 `json:"idle"`
}

func (CpuLoad) TableName() string { return "cpu_loads" }
func (c *CpuLoad) GetID() int64   { return c.ID }

// CpuInformation CPU 信息，每个快照一条
type CpuInformation struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SnapshotID      int64           `gorm:"index;not null" json:"snapshot_id"`
	Snapshot        *SystemSnapshot `gorm:"foreignKey:SnapshotID" json:"-"`
	Temperature     float64         `json:"temperature"`
	AggregateLoadID int64           `gorm:"not null" json:"aggregate_load_id"`
	AggregateLoad   *CpuLoad        `gorm:"foreignKey:AggregateLoadID" json:"-"`
}

func (CpuInformation) TableName() string { return "cpu_informations" }
func (c *CpuInformation) GetID() int64   { return c.ID }

// CpuCoreLoad CPU 信息与核心负载的关联
type CpuCoreLoad struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CpuInformationID int64           `gorm:"index;not null" json:"cpu_information_id"`
	CpuInformation   *CpuInformation `gorm:"foreignKey:CpuInformationID" json:"-"`
	CpuLoadID        int64           `gorm:"not null" json:"cpu_load_id"`
	CpuLoad          *CpuLoad        `gorm:"foreignKey:CpuLoadID" json:"-"`
	CoreIndex        int             `json:"core_index"`
}

func (CpuCoreLoad) TableName() string { return "cpu_core_loads" }
func (c *CpuCoreLoad) GetID() int64   { return c.ID }

// OsInfo 操作系统信息
type OsInfo struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SnapshotID   int64           `gorm:"index;not null" json:"snapshot_id"`
	Snapshot     *SystemSnapshot `gorm:"foreignKey:SnapshotID" json:"-"`
	OsType       string          `json:"os_type"`
	Version      string          `json:"version"`
	Edition      *string         `json:"edition"`
	Codename     *string         `json:"codename"`
	Bitness      string          `json:"bitness"`
	Architecture *string         `json:"architecture"`
}

func (OsInfo) TableName() string { return "os_infos" }
func (o *OsInfo) GetID() int64   { return o.ID }

// LoadAverage 系统平均负载
type LoadAverage struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SnapshotID int64           `gorm:"index;not null" json:"snapshot_id"`
	Snapshot   *SystemSnapshot `gorm:"foreignKey:SnapshotID" json:"-"`
	One        float64         `json:"one"`
	Five       float64         `json:"five"`
	Fifteen    float64         `json:"fifteen"`
}

func (LoadAverage) TableName() string { return "load_averages" }
func (l *LoadAverage) GetID() int64   { return l.ID }

// MemoryInfo 内存信息(字节)
type MemoryInfo struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SnapshotID int64           `gorm:"index;not null" json:"snapshot_id"`
	Snapshot   *SystemSnapshot `gorm:"foreignKey:SnapshotID" json:"-"`
	Free       int64           `json:"free"`
	Total      int64           `json:"total"`
}

func (MemoryInfo) TableName() string { return "memory_infos" }
func (m *MemoryInfo) GetID() int64   { return m.ID }

// SwapInfo 交换分区信息(字节)
type SwapInfo struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SnapshotID int64           `gorm:"index;not null" json:"snapshot_id"`
	Snapshot   *SystemSnapshot `gorm:"foreignKey:SnapshotID" json:"-"`
	Free       int64           `json:"free"`
	Total      int64           `json:"total"`
}

func (SwapInfo) TableName() string { return "swap_infos" }
func (s *SwapInfo) GetID() int64   { return s.ID }

// BatteryLife 电池信息
type BatteryLife struct {
	ID                int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SnapshotID        int64           `gorm:"index;not null" json:"snapshot_id"`
	Snapshot          *SystemSnapshot `gorm:"foreignKey:SnapshotID" json:"-"`
	RemainingCapacity float64         `json:"remaining_capacity"`
	RemainingTime     int64           `json:"remaining_time"` // 秒
}

func (BatteryLife) TableName() string { return "battery_lifes" }
func (b *BatteryLife) GetID() int64   { return b.ID }

// FilesystemMount 文件系统挂载信息
type FilesystemMount struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SnapshotID    int64           `gorm:"index;not null" json:"snapshot_id"`
	Snapshot      *SystemSnapshot `gorm:"foreignKey:SnapshotID" json:"-"`
	Files         int64           `json:"files"`
	FilesTotal    int64           `json:"files_total"`
	FilesAvail    int64           `json:"files_avail"`
	Free          int64           `json:"free"`
	Avail         int64           `json:"avail"`
	Total         int64           `json:"total"`
	NameMax       int64           `json:"name_max"`
	FsType        string          `json:"fs_type"`
	FsMountedFrom string          `json:"fs_mounted_from"`
	FsMountedOn   string          `json:"fs_mounted_on"`
}

func (FilesystemMount) TableName() string { return "filesystem_mounts" }
func (f *FilesystemMount) GetID() int64   { return f.ID }

// NetworkInterface 网卡
type NetworkInterface struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SnapshotID int64           `gorm:"index;not null" json:"snapshot_id"`
	Snapshot   *SystemSnapshot `gorm:"foreignKey:SnapshotID" json:"-"`
	Name       string          `json:"name"`
}

func (NetworkInterface) TableName() string { return "network_interfaces" }
func (n *NetworkInterface) GetID() int64   { return n.ID }

// NetworkAddress 网卡地址
type NetworkAddress struct {
	ID                 int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	NetworkInterfaceID int64             `gorm:"index;not null" json:"network_interface_id"`
	NetworkInterface   *NetworkInterface `gorm:"foreignKey:NetworkInterfaceID" json:"-"`
	Address            string            `json:"address"`
	Netmask            string            `json:"netmask"`
}

func (NetworkAddress) TableName() string { return "network_addresses" }
func (n *NetworkAddress) GetID() int64   { return n.ID }

// NetworkStatistics 网卡流量计数
type NetworkStatistics struct {
	ID                 int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	SnapshotID         int64             `gorm:"index;not null" json:"snapshot_id"`
	Snapshot           *SystemSnapshot   `gorm:"foreignKey:SnapshotID" json:"-"`
	NetworkInterfaceID int64             `gorm:"index;not null" json:"network_interface_id"`
	NetworkInterface   *NetworkInterface `gorm:"foreignKey:NetworkInterfaceID" json:"-"`
	RxBytes            int64             `json:"rx_bytes"`
	TxBytes            int64             `json:"tx_bytes"`
	RxPackets          int64             `json:"rx_packets"`
	TxPackets          int64             `json:"tx_packets"`
	RxErrors           int64             `json:"rx_errors"`
	TxErrors           int64             `json:"tx_errors"`
}

func (NetworkStatistics) TableName() string { return "network_statistics" }
func (n *NetworkStatistics) GetID() int64   { return n.ID }

// SocketStatistics 套接字统计
type SocketStatistics struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SnapshotID         int64           `gorm:"index;not null" json:"snapshot_id"`
	Snapshot           *SystemSnapshot `gorm:"foreignKey:SnapshotID" json:"-"`
	TcpSocketsInUse    int64           `json:"tcp_sockets_in_use"`
	TcpSocketsOrphaned int64           `json:"tcp_sockets_orphaned"`
	UdpSocketsInUse    int64           `json:"udp_sockets_in_use"`
	Tcp6SocketsInUse   int64           `json:"tcp6_sockets_in_use"`
	Udp6SocketsInUse   int64           `json:"udp6_sockets_in_use"`
}

func (SocketStatistics) TableName() string { return "socket_statistics" }
func (s *SocketStatistics) GetID() int64   { return s.ID }

// All 返回所有需要建表的模型（按外键依赖排列）
func All() []any {
	return []any{
		&DeviceProfile{},
		&ErrorLog{},
		&SystemSnapshot{},
		&CpuLoad{},
		&CpuInformation{},
		&CpuCoreLoad{},
		&OsInfo{},
		&LoadAverage{},
		&MemoryInfo{},
		&SwapInfo{},
		&BatteryLife{},
		&FilesystemMount{},
		&NetworkInterface{},
		&NetworkAddress{},
		&NetworkStatistics{},
		&SocketStatistics{},
	}
}
