package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/pkdex/pkdex/internal/api/apitest"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("PKDEX_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
}

func TestParseCLIFlagsRejectsBadTargets(t *testing.T) {
	if _, err := parseCLIFlags([]string{"-get", "potion"}); err == nil {
		t.Fatalf("缺少 kind 的目标应失败")
	}
	if _, err := parseCLIFlags([]string{"-get", "item/potion", "-download"}); err == nil {
		t.Fatalf("-get 与 -download 互斥")
	}
	if _, err := parseCLIFlags([]string{"-unknown"}); err == nil {
		t.Fatalf("未知参数应失败")
	}
}

func TestResolveConfigPathFallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	if got := resolveConfigPath(defaultConfigPath); got != "" {
		t.Fatalf("默认文件不存在时应返回空串，得到 %s", got)
	}
	if got := resolveConfigPath("/etc/explicit.toml"); got != "/etc/explicit.toml" {
		t.Fatalf("显式路径应原样返回，得到 %s", got)
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d", code)
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "invalid_kind.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "pkdex") {
		t.Fatalf("version 输出应包含 pkdex 标识")
	}
}

func TestRunGetPrintsResource(t *testing.T) {
	catalog := apitest.NewCatalog(t)
	catalog.Add("item", "potion", map[string]any{"id": 17, "name": "potion", "cost": 200})
	cacheDir := t.TempDir()
	configPath := writeConfigFile(t, fmt.Sprintf(`
LogLevel = "error"
BaseURL = "%s"
CacheDir = "%s"
`, catalog.Base(), cacheDir))

	useBufferWriters(t)
	code := run(cliOptions{configPath: configPath, get: "item/potion"})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d (stderr=%s)", code, stdErrBuffer().String())
	}
	var item struct {
		Cost int `json:"cost"`
	}
	if err := json.Unmarshal(stdOutBuffer().Bytes(), &item); err != nil || item.Cost != 200 {
		t.Fatalf("输出应为资源 JSON: %s", stdOutBuffer().String())
	}

	// 第二次运行应从磁盘缓存读取。
	stdOutBuffer().Reset()
	if code := run(cliOptions{configPath: configPath, get: "item/potion"}); code != 0 {
		t.Fatalf("第二次运行失败: %d", code)
	}
	if got := catalog.Count("/item/potion"); got != 1 {
		t.Fatalf("磁盘缓存应避免重复请求，实际 %d 次", got)
	}
}

func TestRunGetReportsFailure(t *testing.T) {
	catalog := apitest.NewCatalog(t)
	configPath := writeConfigFile(t, fmt.Sprintf(`
LogLevel = "error"
BaseURL = "%s"
DisableDiskCache = true
`, catalog.Base()))

	useBufferWriters(t)
	if code := run(cliOptions{configPath: configPath, get: "item/missingno"}); code != 1 {
		t.Fatalf("上游 404 应返回退出码 1，得到 %d", code)
	}
	if !bytes.Contains(stdErrBuffer().Bytes(), []byte("missingno")) {
		t.Fatalf("stderr 应包含失败的目标: %s", stdErrBuffer().String())
	}
}
