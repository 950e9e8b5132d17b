package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/pkdex/pkdex/internal/cache"
)

// DefaultBaseURL 是 PokéAPI v2 的公共地址。
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
// path 为空时不读取文件，仅使用默认值。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := applyGlobalDefaults(&cfg.Global); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("BaseURL", DefaultBaseURL)
	v.SetDefault("CacheDir", "")
	v.SetDefault("DisableDiskCache", false)
	v.SetDefault("MemoryCapacity", cache.DefaultCapacity)
	v.SetDefault("PageSize", 64)
	v.SetDefault("DownloadWorkers", 4)
	v.SetDefault("UpstreamTimeout", "30s")
	v.SetDefault("ListenPort", 5080)
}

func applyGlobalDefaults(g *GlobalConfig) error {
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
	if g.BaseURL == "" {
		g.BaseURL = DefaultBaseURL
	}
	if g.CacheDir == "" {
		dir, err := cache.DefaultDir()
		if err != nil {
			return fmt.Errorf("无法解析默认缓存目录: %w", err)
		}
		g.CacheDir = dir
	}
	abs, err := filepath.Abs(g.CacheDir)
	if err != nil {
		return fmt.Errorf("无法解析缓存目录: %w", err)
	}
	g.CacheDir = abs
	return nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
