package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// GlobalConfig 描述进程级行为，所有资源类型共享同一份参数。
type GlobalConfig struct {
	LogLevel         string   `mapstructure:"LogLevel"`
	LogFilePath      string   `mapstructure:"LogFilePath"`
	LogMaxSize       int      `mapstructure:"LogMaxSize"`
	LogMaxBackups    int      `mapstructure:"LogMaxBackups"`
	LogCompress      bool     `mapstructure:"LogCompress"`
	BaseURL          string   `mapstructure:"BaseURL"`
	CacheDir         string   `mapstructure:"CacheDir"`
	DisableDiskCache bool     `mapstructure:"DisableDiskCache"`
	MemoryCapacity   int      `mapstructure:"MemoryCapacity"`
	PageSize         int      `mapstructure:"PageSize"`
	DownloadWorkers  int      `mapstructure:"DownloadWorkers"`
	UpstreamTimeout  Duration `mapstructure:"UpstreamTimeout"`
	ListenPort       int      `mapstructure:"ListenPort"`
}

// KindConfig 允许按资源类型覆盖分页大小及是否参与完整下载。
type KindConfig struct {
	Name     string `mapstructure:"Name"`
	PageSize int    `mapstructure:"PageSize"`
	Download *bool  `mapstructure:"Download"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global GlobalConfig `mapstructure:",squash"`
	Kinds  []KindConfig `mapstructure:"Kind"`
}

// DiskDir 返回生效的磁盘缓存目录，关闭磁盘层时为空。
func (g GlobalConfig) DiskDir() string {
	if g.DisableDiskCache {
		return ""
	}
	return g.CacheDir
}

// KindOverride 查找某个类型的覆盖项。
func (c *Config) KindOverride(key string) (KindConfig, bool) {
	if c == nil {
		return KindConfig{}, false
	}
	for _, k := range c.Kinds {
		if strings.EqualFold(k.Name, key) {
			return k, true
		}
	}
	return KindConfig{}, false
}
