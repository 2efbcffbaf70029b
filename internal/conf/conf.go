package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration 配置文件中的时长字符串，如 "30s"、"5m"、"1h"
type Duration string

// Duration 解析为 time.Duration，解析失败返回 0
func (d Duration) Duration() time.Duration {
	out, err := time.ParseDuration(string(d))
	if err != nil {
		return 0
	}
	return out
}

// Bootstrap 聚合全部配置
type Bootstrap struct {
	ConfigPath   string `toml:"-"`
	BuildVersion string `toml:"-"`

	Debug     bool      `toml:"debug" comment:"调试模式，开启后输出更详细的日志"`
	Server    Server    `toml:"server"`
	Data      Data      `toml:"data"`
	Detector  Detector  `toml:"detector"`
	Integrity Integrity `toml:"integrity"`
	Log       Log       `toml:"log"`
}

type Server struct {
	HTTP               HTTP   `toml:"http"`
	VideoDir           string `toml:"video_dir" comment:"视频文件存储目录，相对运行目录"`
	SnapshotRetainDays int    `toml:"snapshot_retain_days" comment:"检测快照保留天数，0 表示不清理"`
}

type HTTP struct {
	Port  int   `toml:"port" comment:"HTTP 服务端口"`
	PProf PProf `toml:"pprof"`
}

type PProf struct {
	Enabled   bool     `toml:"enabled" comment:"是否开启 pprof 监控"`
	AccessIps []string `toml:"access_ips" comment:"允许访问 pprof 的 IP 列表"`
}

type Data struct {
	Database Database `toml:"database"`
}

type Database struct {
	Dsn             string   `toml:"dsn" comment:"数据库连接串，支持 postgres/mysql 前缀，否则按 sqlite 文件处理"`
	MaxIdleConns    int      `toml:"max_idle_conns"`
	MaxOpenConns    int      `toml:"max_open_conns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime"`
	SlowThreshold   Duration `toml:"slow_threshold" comment:"慢查询日志阈值"`
}

// Detector 外部检测服务的接入配置
type Detector struct {
	GRPCAddr string   `toml:"grpc_addr" comment:"检测服务 gRPC 地址，用于健康探测"`
	HTTPAddr string   `toml:"http_addr" comment:"检测服务 HTTP API 地址，用于下发分析任务"`
	Timeout  Duration `toml:"timeout"`
}

// Integrity 数据完整性管道配置
type Integrity struct {
	CorruptionLogSize    int      `toml:"corruption_log_size" comment:"损坏/修复日志环形缓冲容量"`
	HealthySuccessRate   float64  `toml:"healthy_success_rate" comment:"管道健康判定阈值"`
	RepairTimeout        Duration `toml:"repair_timeout" comment:"全表扫描修复的超时时间"`
	RepairIntervalMinute int      `toml:"repair_interval_minute" comment:"定时修复间隔(分钟)，0 表示不启用"`
}

type Log struct {
	Level string `toml:"level" comment:"日志级别 debug/info/warn/error"`
	Dir   string `toml:"dir" comment:"日志目录，为空时仅输出到控制台"`
}

// SetupConfig 读取配置文件并填充默认值
// 配置文件不存在时写出一份默认配置
func SetupConfig(path string) (*Bootstrap, error) {
	var c Bootstrap
	c.ConfigPath = path

	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		c.setDefault()
		if err := WriteConfig(&c, path); err != nil {
			return nil, err
		}
		return &c, nil
	}

	if err := toml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.setDefault()
	return &c, nil
}

// WriteConfig 将配置写回文件
func WriteConfig(c *Bootstrap, path string) error {
	b, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// setDefault 填充缺省配置项
func (c *Bootstrap) setDefault() {
	if c.Server.HTTP.Port <= 0 {
		c.Server.HTTP.Port = 8000
	}
	if c.Server.VideoDir == "" {
		c.Server.VideoDir = "videos"
	}
	if c.Server.SnapshotRetainDays < 0 {
		c.Server.SnapshotRetainDays = 0
	}
	if c.Data.Database.Dsn == "" {
		c.Data.Database.Dsn = "data/vru.db"
	}
	if c.Data.Database.MaxIdleConns <= 0 {
		c.Data.Database.MaxIdleConns = 10
	}
	if c.Data.Database.MaxOpenConns <= 0 {
		c.Data.Database.MaxOpenConns = 100
	}
	if c.Data.Database.ConnMaxLifetime == "" {
		c.Data.Database.ConnMaxLifetime = "1h"
	}
	if c.Data.Database.SlowThreshold == "" {
		c.Data.Database.SlowThreshold = "200ms"
	}
	if c.Detector.GRPCAddr == "" {
		c.Detector.GRPCAddr = "127.0.0.1:50051"
	}
	if c.Detector.HTTPAddr == "" {
		c.Detector.HTTPAddr = "http://127.0.0.1:8090"
	}
	if c.Detector.Timeout == "" {
		c.Detector.Timeout = "5s"
	}
	if c.Integrity.CorruptionLogSize <= 0 {
		c.Integrity.CorruptionLogSize = 1000
	}
	if c.Integrity.HealthySuccessRate <= 0 || c.Integrity.HealthySuccessRate > 1 {
		c.Integrity.HealthySuccessRate = 0.95
	}
	if c.Integrity.RepairTimeout == "" {
		c.Integrity.RepairTimeout = "10m"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
