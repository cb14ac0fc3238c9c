package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrInvalidEncoding 主机名等文本字段不是合法的 UTF-8
var ErrInvalidEncoding = errors.New("invalid text encoding")

// Snapshot 采集端上报的系统快照，所有分组均为可选
type Snapshot struct {
	Hostname    OSString                     `json:"hostname"`
	OsInfo      *OsInfo                      `json:"os_info,omitempty"`
	Cpu         *CpuInformation              `json:"cpu,omitempty"`
	LoadAvg     *LoadAverage                 `json:"load_avg,omitempty"`
	Memory      *Memory                      `json:"memory,omitempty"`
	Swap        *Memory                      `json:"swap,omitempty"`
	BatteryLife *BatteryLife                 `json:"battery_life,omitempty"`
	Mounts      []Filesystem                 `json:"mounts,omitempty"`
	Networks    map[string]Network           `json:"networks,omitempty"`
	NetStats    map[string]NetworkStatistics `json:"net_stats,omitempty"`
	SocketStats *SocketStatistics            `json:"socket_stats,omitempty"`
	Uptime      Duration                     `json:"uptime"`
	BootTime    *BootTime                    `json:"boot_time,omitempty"`
}

// OsInfo 操作系统信息
type OsInfo struct {
	OsType       string    `json:"os_type"`
	Version      OSVersion `json:"version"`
	Edition      *string   `json:"edition,omitempty"`
	Codename     *string   `json:"codename,omitempty"`
	Bitness      Bitness   `json:"bitness"`
	Architecture *string   `json:"architecture,omitempty"`
}

// CpuInformation CPU 温度与负载
type CpuInformation struct {
	Temperature   float64   `json:"temperature"`
	Loads         []CpuLoad `json:"loads"`
	AggregateLoad CpuLoad   `json:"aggregate_load"`
}

// CpuLoad CPU 负载比例
type CpuLoad struct {
	User      float64 `json:"user"`
	Nice      float64 `json:"nice"`
	System    float64 `json:"system"`
	Interrupt float64 `json:"interrupt"`
	Idle      float64 `json:"idle"`
}

type LoadAverage struct {
	One     float64 `json:"one"`
	Five    float64 `json:"five"`
	Fifteen float64 `json:"fifteen"`
}

// Memory 内存或交换分区(字节)
type Memory struct {
	Total uint64 `json:"total"`
	Free  uint64 `json:"free"`
}

type BatteryLife struct {
	RemainingCapacity float64  `json:"remaining_capacity"`
	RemainingTime     Duration `json:"remaining_time"`
}

// Filesystem 挂载点
type Filesystem struct {
	Files         uint64 `json:"files"`
	FilesTotal    uint64 `json:"files_total"`
	FilesAvail    uint64 `json:"files_avail"`
	Free          uint64 `json:"free"`
	Avail         uint64 `json:"avail"`
	Total         uint64 `json:"total"`
	NameMax       uint64 `json:"name_max"`
	FsType        string `json:"fs_type"`
	FsMountedFrom string `json:"fs_mounted_from"`
	FsMountedOn   string `json:"fs_mounted_on"`
}

// Network 网卡及其地址
type Network struct {
	Name  string           `json:"name"`
	Addrs []NetworkAddress `json:"addrs"`
}

type NetworkAddress struct {
	Addr    IPAddress `json:"addr"`
	Netmask IPAddress `json:"netmask"`
}

// NetworkStatistics 网卡计数器，按网卡名称关联
type NetworkStatistics struct {
	RxBytes   uint64 `json:"rx_bytes"`
	TxBytes   uint64 `json:"tx_bytes"`
	RxPackets uint64 `json:"rx_packets"`
	TxPackets uint64 `json:"tx_packets"`
	RxErrors  uint64 `json:"rx_errors"`
	TxErrors  uint64 `json:"tx_errors"`
}

type SocketStatistics struct {
	TcpSocketsInUse    uint64 `json:"tcp_sockets_in_use"`
	TcpSocketsOrphaned uint64 `json:"tcp_sockets_orphaned"`
	UdpSocketsInUse    uint64 `json:"udp_sockets_in_use"`
	Tcp6SocketsInUse   uint64 `json:"tcp6_sockets_in_use"`
	Udp6SocketsInUse   uint64 `json:"udp6_sockets_in_use"`
}

// DecodeSnapshot 解析快照请求体，编码错误返回 ErrInvalidEncoding
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty body")
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// === 兼容类型 ===

// OSString 主机名，支持普通字符串以及 {"Unix":[...]} / {"Windows":[...]} 两种原始形式
type OSString string

func (s *OSString) UnmarshalJSON(data []byte) error {
	if !utf8.Valid(data) {
		return fmt.Errorf("hostname: %w", ErrInvalidEncoding)
	}
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		// 孤立的 \uDXXX 转义会被替换为 U+FFFD
		if strings.ContainsRune(v, utf8.RuneError) && !bytes.ContainsRune(data, utf8.RuneError) &&
			!bytes.Contains(bytes.ToLower(data), []byte(`\ufffd`)) {
			return fmt.Errorf("hostname: %w", ErrInvalidEncoding)
		}
		*s = OSString(v)
		return nil
	}

	var raw struct {
		Unix    []uint16 `json:"Unix"`
		Windows []uint16 `json:"Windows"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Unix != nil:
		buf := make([]byte, 0, len(raw.Unix))
		for _, b := range raw.Unix {
			if b > math.MaxUint8 {
				return fmt.Errorf("hostname: byte out of range: %d", b)
			}
			buf = append(buf, byte(b))
		}
		if !utf8.Valid(buf) {
			return fmt.Errorf("hostname: %w", ErrInvalidEncoding)
		}
		*s = OSString(buf)
	case raw.Windows != nil:
		for i := 0; i < len(raw.Windows); i++ {
			r := rune(raw.Windows[i])
			if utf16.IsSurrogate(r) {
				if i+1 >= len(raw.Windows) || utf16.DecodeRune(r, rune(raw.Windows[i+1])) == utf8.RuneError {
					return fmt.Errorf("hostname: %w", ErrInvalidEncoding)
				}
				i++
			}
		}
		*s = OSString(string(utf16.Decode(raw.Windows)))
	default:
		return errors.New("hostname: unsupported os string form")
	}
	return nil
}

// Duration 时长，支持秒数或 {"secs":N,"nanos":N}
type Duration struct {
	Secs  uint64 `json:"secs"`
	Nanos uint32 `json:"nanos"`
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Duration{}
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		type plain Duration
		var v plain
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	if secs, err := strconv.ParseUint(string(data), 10, 64); err == nil {
		*d = Duration{Secs: secs}
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || f < 0 {
		return fmt.Errorf("invalid duration: %s", data)
	}
	// 超出 uint64 范围时取最大值，由写入前的溢出检查拒绝
	if f >= math.MaxUint64 {
		*d = Duration{Secs: math.MaxUint64}
		return nil
	}
	secs, frac := math.Modf(f)
	*d = Duration{Secs: uint64(secs), Nanos: uint32(frac * 1e9)}
	return nil
}

// Seconds 整秒数（纳秒部分舍去）
func (d Duration) Seconds() uint64 {
	return d.Secs
}

// BootTime 开机时间，支持无时区的 ISO 时间、RFC3339 以及 unix 秒
type BootTime struct {
	time.Time
}

var bootTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (b *BootTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] != '"' {
		secs, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid boot_time: %s", data)
		}
		b.Time = time.Unix(secs, 0).UTC()
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	for _, layout := range bootTimeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			b.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid boot_time: %q", v)
}

// IPAddress 网卡地址，Empty 解析为空字符串
type IPAddress string

func (ip *IPAddress) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*ip = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		if v == "Empty" {
			v = ""
		}
		*ip = IPAddress(v)
		return nil
	}
	var tagged map[string]string
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if v, ok := tagged["V4"]; ok {
		*ip = IPAddress(v)
		return nil
	}
	if v, ok := tagged["V6"]; ok {
		*ip = IPAddress(v)
		return nil
	}
	return fmt.Errorf("invalid ip address: %s", data)
}

// OSVersion 系统版本，支持字符串以及 Semantic / Rolling / Custom 形式
type OSVersion string

func (v *OSVersion) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*v = "Unknown"
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = OSVersion(s)
		return nil
	}
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if raw, ok := tagged["Semantic"]; ok {
		var parts [3]uint64
		if err := json.Unmarshal(raw, &parts); err != nil {
			return err
		}
		*v = OSVersion(fmt.Sprintf("%d.%d.%d", parts[0], parts[1], parts[2]))
		return nil
	}
	if raw, ok := tagged["Rolling"]; ok {
		var date *string
		if err := json.Unmarshal(raw, &date); err != nil {
			return err
		}
		if date == nil {
			*v = "Rolling Release"
		} else {
			*v = OSVersion(fmt.Sprintf("Rolling Release (%s)", *date))
		}
		return nil
	}
	if raw, ok := tagged["Custom"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*v = OSVersion(s)
		return nil
	}
	return fmt.Errorf("invalid os version: %s", data)
}

// Bitness 系统位数
type Bitness string

func (b *Bitness) UnmarshalJSON(data []byte) error {
	var s string
	if bytes.Equal(data, []byte("null")) {
		s = "Unknown"
	} else if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "X32":
		*b = "32-bit"
	case "X64":
		*b = "64-bit"
	case "Unknown":
		*b = "unknown bitness"
	default:
		*b = Bitness(s)
	}
	return nil
}
