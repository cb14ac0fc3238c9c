package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/dushixiang/monitoring/internal/models"
	"github.com/dushixiang/monitoring/internal/protocol"
)

// EntityKind 写入计划中的实体类型
type EntityKind string

const (
	KindSystemSnapshot    EntityKind = "system_snapshot"
	KindOsInfo            EntityKind = "os_info"
	KindLoadAverage       EntityKind = "load_average"
	KindMemoryInfo        EntityKind = "memory_info"
	KindSwapInfo          EntityKind = "swap_info"
	KindBatteryLife       EntityKind = "battery_life"
	KindFilesystemMount   EntityKind = "filesystem_mount"
	KindNetworkInterface  EntityKind = "network_interface"
	KindSocketStatistics  EntityKind = "socket_statistics"
	KindAggregateCpuLoad  EntityKind = "aggregate_cpu_load"
	KindCpuInformation    EntityKind = "cpu_information"
	KindNetworkAddress    EntityKind = "network_address"
	KindNetworkStatistics EntityKind = "network_statistics"
	KindCoreCpuLoad       EntityKind = "core_cpu_load"
	KindCpuCoreLoad       EntityKind = "cpu_core_load"
)

// 写入层级：层级 N 的行只依赖层级小于 N 的行
const (
	TierRoot = iota
	TierSnapshotChild
	TierSecondary
	TierJoin

	tierCount
)

// RowDescriptor 写入计划中的一行
type RowDescriptor struct {
	ID       int
	Tier     int
	Kind     EntityKind
	Row      models.Row
	Requires []int  // 依赖的描述符ID
	bind     func() // 依赖写入后回填外键
}

// Bind 用依赖行生成的ID回填外键
func (d *RowDescriptor) Bind() {
	if d.bind != nil {
		d.bind()
	}
}

// WritePlan 由一个快照分解出的有序写入计划
type WritePlan struct {
	ProfileID   int64
	Descriptors []*RowDescriptor
}

// Root 根记录描述符
func (p *WritePlan) Root() *RowDescriptor {
	return p.Descriptors[0]
}

// Tier 指定层级的描述符
func (p *WritePlan) Tier(tier int) []*RowDescriptor {
	var result []*RowDescriptor
	for _, d := range p.Descriptors {
		if d.Tier == tier {
			result = append(result, d)
		}
	}
	return result
}

// CountKind 统计某类实体的行数
func (p *WritePlan) CountKind(kind EntityKind) int {
	n := 0
	for _, d := range p.Descriptors {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

func (p *WritePlan) add(tier int, kind EntityKind, row models.Row, bind func(), requires ...*RowDescriptor) *RowDescriptor {
	d := &RowDescriptor{
		ID:   len(p.Descriptors),
		Tier: tier,
		Kind: kind,
		Row:  row,
		bind: bind,
	}
	for _, r := range requires {
		d.Requires = append(d.Requires, r.ID)
	}
	p.Descriptors = append(p.Descriptors, d)
	return d
}

// counters 无符号计数转换为 int64，超出范围时记录第一个溢出字段
type counters struct {
	err error
}

func (c *counters) int64(field string, v uint64) int64 {
	if v > math.MaxInt64 {
		if c.err == nil {
			c.err = &ValidationError{
				Reason: ValidationCounterOverflow,
				Field:  field,
				Err:    fmt.Errorf("value %d exceeds %d", v, int64(math.MaxInt64)),
			}
		}
		return 0
	}
	return int64(v)
}

// Normalize 将快照分解为写入计划，不访问存储
func Normalize(doc *protocol.Snapshot, profileID int64) (*WritePlan, error) {
	c := &counters{}
	plan := &WritePlan{ProfileID: profileID}

	root := &models.SystemSnapshot{
		DeviceProfileID: profileID,
		Hostname:        string(doc.Hostname),
		Uptime:          c.int64("uptime", doc.Uptime.Seconds()),
	}
	if doc.BootTime != nil && !doc.BootTime.IsZero() {
		t := doc.BootTime.Time
		root.BootTime = &t
	}
	rootDesc := plan.add(TierRoot, KindSystemSnapshot, root, nil)

	if os := doc.OsInfo; os != nil {
		row := &models.OsInfo{
			OsType:       os.OsType,
			Version:      string(os.Version),
			Edition:      os.Edition,
			Codename:     os.Codename,
			Bitness:      string(os.Bitness),
			Architecture: os.Architecture,
		}
		plan.add(TierSnapshotChild, KindOsInfo, row, func() { row.SnapshotID = root.ID }, rootDesc)
	}

	if l := doc.LoadAvg; l != nil {
		row := &models.LoadAverage{One: l.One, Five: l.Five, Fifteen: l.Fifteen}
		plan.add(TierSnapshotChild, KindLoadAverage, row, func() { row.SnapshotID = root.ID }, rootDesc)
	}

	if m := doc.Memory; m != nil {
		row := &models.MemoryInfo{
			Free:  c.int64("memory.free", m.Free),
			Total: c.int64("memory.total", m.Total),
		}
		plan.add(TierSnapshotChild, KindMemoryInfo, row, func() { row.SnapshotID = root.ID }, rootDesc)
	}

	if m := doc.Swap; m != nil {
		row := &models.SwapInfo{
			Free:  c.int64("swap.free", m.Free),
			Total: c.int64("swap.total", m.Total),
		}
		plan.add(TierSnapshotChild, KindSwapInfo, row, func() { row.SnapshotID = root.ID }, rootDesc)
	}

	if b := doc.BatteryLife; b != nil {
		row := &models.BatteryLife{
			RemainingCapacity: b.RemainingCapacity,
			RemainingTime:     c.int64("battery_life.remaining_time", b.RemainingTime.Seconds()),
		}
		plan.add(TierSnapshotChild, KindBatteryLife, row, func() { row.SnapshotID = root.ID }, rootDesc)
	}

	for i, fs := range doc.Mounts {
		prefix := fmt.Sprintf("mounts[%d].", i)
		row := &models.FilesystemMount{
			Files:         c.int64(prefix+"files", fs.Files),
			FilesTotal:    c.int64(prefix+"files_total", fs.FilesTotal),
			FilesAvail:    c.int64(prefix+"files_avail", fs.FilesAvail),
			Free:          c.int64(prefix+"free", fs.Free),
			Avail:         c.int64(prefix+"avail", fs.Avail),
			Total:         c.int64(prefix+"total", fs.Total),
			NameMax:       c.int64(prefix+"name_max", fs.NameMax),
			FsType:        fs.FsType,
			FsMountedFrom: fs.FsMountedFrom,
			FsMountedOn:   fs.FsMountedOn,
		}
		plan.add(TierSnapshotChild, KindFilesystemMount, row, func() { row.SnapshotID = root.ID }, rootDesc)
	}

	normalizeNetworks(plan, c, doc, root, rootDesc)

	if s := doc.SocketStats; s != nil {
		row := &models.SocketStatistics{
			TcpSocketsInUse:    c.int64("socket_stats.tcp_sockets_in_use", s.TcpSocketsInUse),
			TcpSocketsOrphaned: c.int64("socket_stats.tcp_sockets_orphaned", s.TcpSocketsOrphaned),
			UdpSocketsInUse:    c.int64("socket_stats.udp_sockets_in_use", s.UdpSocketsInUse),
			Tcp6SocketsInUse:   c.int64("socket_stats.tcp6_sockets_in_use", s.Tcp6SocketsInUse),
			Udp6SocketsInUse:   c.int64("socket_stats.udp6_sockets_in_use", s.Udp6SocketsInUse),
		}
		plan.add(TierSnapshotChild, KindSocketStatistics, row, func() { row.SnapshotID = root.ID }, rootDesc)
	}

	if cpu := doc.Cpu; cpu != nil {
		normalizeCpu(plan, cpu, root, rootDesc)
	}

	if c.err != nil {
		return nil, c.err
	}
	sort.SliceStable(plan.Descriptors, func(i, j int) bool {
		return plan.Descriptors[i].Tier < plan.Descriptors[j].Tier
	})
	return plan, nil
}

func normalizeNetworks(plan *WritePlan, c *counters, doc *protocol.Snapshot, root *models.SystemSnapshot, rootDesc *RowDescriptor) {
	// map 无序，按网卡名称排序保证计划稳定
	names := make([]string, 0, len(doc.Networks))
	for name := range doc.Networks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		network := doc.Networks[name]
		iface := &models.NetworkInterface{Name: name}
		ifaceDesc := plan.add(TierSnapshotChild, KindNetworkInterface, iface, func() { iface.SnapshotID = root.ID }, rootDesc)

		for _, addr := range network.Addrs {
			row := &models.NetworkAddress{
				Address: string(addr.Addr),
				Netmask: string(addr.Netmask),
			}
			plan.add(TierSecondary, KindNetworkAddress, row, func() { row.NetworkInterfaceID = iface.ID }, ifaceDesc)
		}

		stats, ok := doc.NetStats[network.Name]
		if !ok {
			stats, ok = doc.NetStats[name]
		}
		if !ok {
			continue
		}
		prefix := "net_stats." + name + "."
		row := &models.NetworkStatistics{
			RxBytes:   c.int64(prefix+"rx_bytes", stats.RxBytes),
			TxBytes:   c.int64(prefix+"tx_bytes", stats.TxBytes),
			RxPackets: c.int64(prefix+"rx_packets", stats.RxPackets),
			TxPackets: c.int64(prefix+"tx_packets", stats.TxPackets),
			RxErrors:  c.int64(prefix+"rx_errors", stats.RxErrors),
			TxErrors:  c.int64(prefix+"tx_errors", stats.TxErrors),
		}
		plan.add(TierSecondary, KindNetworkStatistics, row, func() {
			row.SnapshotID = root.ID
			row.NetworkInterfaceID = iface.ID
		}, rootDesc, ifaceDesc)
	}
}

func normalizeCpu(plan *WritePlan, cpu *protocol.CpuInformation, root *models.SystemSnapshot, rootDesc *RowDescriptor) {
	aggregate := cpuLoad(cpu.AggregateLoad)
	aggregateDesc := plan.add(TierSnapshotChild, KindAggregateCpuLoad, aggregate, nil)

	info := &models.CpuInformation{Temperature: cpu.Temperature}
	infoDesc := plan.add(TierSecondary, KindCpuInformation, info, func() {
		info.SnapshotID = root.ID
		info.AggregateLoadID = aggregate.ID
	}, rootDesc, aggregateDesc)

	for i, load := range cpu.Loads {
		core := cpuLoad(load)
		coreDesc := plan.add(TierSecondary, KindCoreCpuLoad, core, nil)

		join := &models.CpuCoreLoad{CoreIndex: i}
		plan.add(TierJoin, KindCpuCoreLoad, join, func() {
			join.CpuInformationID = info.ID
			join.CpuLoadID = core.ID
		}, infoDesc, coreDesc)
	}
}

func cpuLoad(l protocol.CpuLoad) *models.CpuLoad {
	return &models.CpuLoad{
		User:      l.User,
		Nice:      l.Nice,
		System:    l.System,
		Interrupt: l.Interrupt,
		Idle:      l.Idle,
	}
}
