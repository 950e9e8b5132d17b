package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// FetchFields 提供资源类型/名称/缓存键字段，供上游抓取与加载日志复用。
// 空字符串字段不会写入。
func FetchFields(kind, name, key string) logrus.Fields {
	fields := logrus.Fields{"kind": kind}
	if name != "" {
		fields["name"] = name
	}
	if key != "" {
		fields["cache_key"] = key
	}
	return fields
}
