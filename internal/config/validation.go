package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pkdex/pkdex/internal/kind"
)

// maxPageSize 与 PokéAPI 单页上限保持一致。
const maxPageSize = 1000

// Validate 针对语义级别做进一步校验，防止非法配置启动。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "无法识别的日志级别")
	}
	if err := validateBaseURL(g.BaseURL); err != nil {
		return fmt.Errorf("Global.BaseURL: %w", err)
	}
	if g.MemoryCapacity < 0 {
		return newFieldError("Global.MemoryCapacity", "不能为负数")
	}
	if g.PageSize <= 0 || g.PageSize > maxPageSize {
		return newFieldError("Global.PageSize", fmt.Sprintf("必须在 1-%d", maxPageSize))
	}
	if g.DownloadWorkers <= 0 {
		return newFieldError("Global.DownloadWorkers", "必须大于 0")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}

	seen := map[string]struct{}{}
	for i := range c.Kinds {
		k := &c.Kinds[i]
		name := strings.ToLower(strings.TrimSpace(k.Name))
		if name == "" {
			return newFieldError("Kind[].Name", "不能为空")
		}
		if _, exists := seen[name]; exists {
			return newFieldError(kindField(name, "Name"), "重复")
		}
		seen[name] = struct{}{}
		if _, ok := kind.Resolve(name); !ok {
			return newFieldError(kindField(name, "Name"), "仅支持 "+strings.Join(kind.Keys(), "|"))
		}
		k.Name = name
		if k.PageSize < 0 || k.PageSize > maxPageSize {
			return newFieldError(kindField(name, "PageSize"), fmt.Sprintf("必须在 0-%d", maxPageSize))
		}
	}
	return nil
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return errors.New("缺少上游地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，上游: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("上游缺少 Host: %s", raw)
	}
	return nil
}

// EffectiveKind 合并注册表默认值与配置覆盖，返回某类型最终生效的元数据。
func (c *Config) EffectiveKind(meta kind.Metadata) kind.Metadata {
	if c == nil {
		return meta
	}
	if c.Global.PageSize > 0 {
		meta.PageSize = c.Global.PageSize
	}
	if override, ok := c.KindOverride(meta.Key); ok {
		if override.PageSize > 0 {
			meta.PageSize = override.PageSize
		}
		if override.Download != nil {
			meta.Download = *override.Download
		}
	}
	return meta
}
