package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkdex/pkdex/internal/cache"
	"github.com/pkdex/pkdex/internal/kind"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("默认配置应通过校验: %v", err)
	}
	g := cfg.Global
	if g.BaseURL != DefaultBaseURL {
		t.Fatalf("BaseURL 默认值不符: %s", g.BaseURL)
	}
	if g.MemoryCapacity != cache.DefaultCapacity {
		t.Fatalf("MemoryCapacity 默认值不符: %d", g.MemoryCapacity)
	}
	if g.UpstreamTimeout.DurationValue() != 30*time.Second {
		t.Fatalf("UpstreamTimeout 默认值不符: %s", g.UpstreamTimeout.DurationValue())
	}
	if filepath.Base(g.CacheDir) != ".pkmn-cache" || !filepath.IsAbs(g.CacheDir) {
		t.Fatalf("CacheDir 默认值不符: %s", g.CacheDir)
	}
	if g.DiskDir() != g.CacheDir {
		t.Fatalf("磁盘层默认开启")
	}
}

func TestLoadValidFile(t *testing.T) {
	cfg, err := Load(testConfigPath(t, "valid.toml"))
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if cfg.Global.MemoryCapacity != 256 || cfg.Global.PageSize != 100 {
		t.Fatalf("全局字段解析不符: %+v", cfg.Global)
	}
	if cfg.Global.UpstreamTimeout.DurationValue() != 45*time.Second {
		t.Fatalf("Duration 解析不符: %s", cfg.Global.UpstreamTimeout.DurationValue())
	}
	if !filepath.IsAbs(cfg.Global.CacheDir) {
		t.Fatalf("CacheDir 应转为绝对路径: %s", cfg.Global.CacheDir)
	}
	if len(cfg.Kinds) != 3 {
		t.Fatalf("Kind 数量不符: %d", len(cfg.Kinds))
	}

	species, _ := kind.Resolve(kind.Species)
	if got := cfg.EffectiveKind(species); got.PageSize != 200 || !got.Download {
		t.Fatalf("species 覆盖不符: %+v", got)
	}
	pokemon, _ := kind.Resolve(kind.Pokemon)
	if got := cfg.EffectiveKind(pokemon); got.PageSize != 100 || !got.Download {
		t.Fatalf("pokemon 覆盖不符: %+v", got)
	}
	location, _ := kind.Resolve(kind.Location)
	if got := cfg.EffectiveKind(location); got.Download {
		t.Fatalf("location 应被排除出下载")
	}
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	_, err := Load(testConfigPath(t, "invalid_kind.toml"))
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "Kind[berry].Name" {
		t.Fatalf("未注册类型应失败，得到 %v", err)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(testConfigPath(t, "does-not-exist.toml")); err == nil {
		t.Fatalf("显式指定但不存在的文件应返回错误")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	path := writeTempConfig(t, `
CacheDir = "./data"
UpstreamTimeout = "boom"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("无效 Duration 应失败")
	}
}

func TestLoadAcceptsIntegerSeconds(t *testing.T) {
	path := writeTempConfig(t, `
CacheDir = "./data"
UpstreamTimeout = 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if cfg.Global.UpstreamTimeout.DurationValue() != 5*time.Second {
		t.Fatalf("整数秒解析不符: %s", cfg.Global.UpstreamTimeout.DurationValue())
	}
}

func TestValidateFieldErrors(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*GlobalConfig)
		field string
	}{
		{"level", func(g *GlobalConfig) { g.LogLevel = "loud" }, "Global.LogLevel"},
		{"capacity", func(g *GlobalConfig) { g.MemoryCapacity = -1 }, "Global.MemoryCapacity"},
		{"page", func(g *GlobalConfig) { g.PageSize = 0 }, "Global.PageSize"},
		{"workers", func(g *GlobalConfig) { g.DownloadWorkers = 0 }, "Global.DownloadWorkers"},
		{"port", func(g *GlobalConfig) { g.ListenPort = 70000 }, "Global.ListenPort"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.edit(&cfg.Global)
			var fieldErr FieldError
			if err := cfg.Validate(); !errors.As(err, &fieldErr) || fieldErr.Field != tc.field {
				t.Fatalf("期望 %s 校验失败，得到 %v", tc.field, err)
			}
		})
	}

	cfg := validConfig()
	cfg.Global.BaseURL = "ftp://pokeapi.co"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("非 http(s) 上游应失败")
	}
}

func TestDiskDirDisabled(t *testing.T) {
	g := GlobalConfig{CacheDir: "/tmp/x", DisableDiskCache: true}
	if g.DiskDir() != "" {
		t.Fatalf("关闭磁盘层时应返回空目录")
	}
}

func validConfig() *Config {
	return &Config{Global: GlobalConfig{
		LogLevel:        "info",
		BaseURL:         DefaultBaseURL,
		CacheDir:        "/tmp/pkdex",
		MemoryCapacity:  8,
		PageSize:        64,
		DownloadWorkers: 2,
		UpstreamTimeout: Duration(time.Second),
		ListenPort:      5080,
	}}
}
