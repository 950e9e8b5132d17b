package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pkdex/pkdex/internal/api"
	"github.com/pkdex/pkdex/internal/cache"
	"github.com/pkdex/pkdex/internal/config"
	"github.com/pkdex/pkdex/internal/dex"
	"github.com/pkdex/pkdex/internal/loader"
	"github.com/pkdex/pkdex/internal/logging"
	"github.com/pkdex/pkdex/internal/server"
	"github.com/pkdex/pkdex/internal/server/routes"
	"github.com/pkdex/pkdex/internal/tui"
	"github.com/pkdex/pkdex/internal/version"
)

// defaultConfigPath 在未指定 -config 与 PKDEX_CONFIG 时使用，文件不存在时退回默认值。
const defaultConfigPath = "config.toml"

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	download    bool
	get         string
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
	stdIn  io.Reader = os.Stdin
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(resolveConfigPath(opts.configPath))
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["kinds"] = len(cfg.Kinds)
		fields["cache_dir"] = cfg.Global.DiskDir()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序为“配置 → 缓存 → 客户端 → Dex”，所有入口共享同一个缓存实例。
	store, err := cache.NewStore(cache.Options{
		Capacity: cfg.Global.MemoryCapacity,
		Dir:      cfg.Global.DiskDir(),
		Logger:   logger,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存失败: %v\n", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("cache_flush_failed")
		}
	}()

	client, err := api.New(api.Options{
		BaseURL:    cfg.Global.BaseURL,
		HTTPClient: api.NewHTTPClient(cfg),
		Store:      store,
		Logger:     logger,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化客户端失败: %v\n", err)
		return 1
	}

	d, err := dex.New(dex.Options{Client: client, Config: cfg, Logger: logger})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化 Dex 失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["base_url"] = client.BaseURL()
	fields["cache_dir"] = cfg.Global.DiskDir()
	fields["memory_capacity"] = cfg.Global.MemoryCapacity
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	switch {
	case opts.get != "":
		return runGet(d, opts.get)
	case opts.download:
		return runDownload(d, cfg)
	}

	if err := startHTTPServer(cfg, d, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("pkdex", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
		download   bool
		get        string
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 PKDEX_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.BoolVar(&download, "download", false, "在终端中完整下载目录后退出")
	fs.StringVar(&get, "get", "", "获取单个资源（kind/name）并输出 JSON")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if get != "" && download {
		return cliOptions{}, errors.New("-get 与 -download 不能同时使用")
	}
	if get != "" {
		if _, _, ok := splitTarget(get); !ok {
			return cliOptions{}, fmt.Errorf("-get 需要 kind/name 形式，得到 %q", get)
		}
	}

	path := os.Getenv("PKDEX_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = defaultConfigPath
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		download:    download,
		get:         get,
	}, nil
}

// resolveConfigPath 仅在使用隐式默认路径且文件不存在时返回空串（纯默认配置）。
func resolveConfigPath(path string) string {
	if path != defaultConfigPath {
		return path
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func splitTarget(raw string) (string, string, bool) {
	key, name, ok := strings.Cut(strings.TrimSpace(raw), "/")
	if !ok || key == "" || name == "" {
		return "", "", false
	}
	return key, name, true
}

// runGet 请求单个资源并等待 worker 结束，成功时输出缩进 JSON。
func runGet(d *dex.Dex, target string) int {
	key, name, _ := splitTarget(target)
	if _, err := d.Lookup(key, name); err != nil {
		fmt.Fprintf(stdErr, "%v\n", err)
		return 1
	}
	d.Wait()

	res, _ := d.Lookup(key, name)
	if res.State != loader.SlotReady {
		fmt.Fprintf(stdErr, "获取 %s 失败: %v\n", target, res.Err)
		return 1
	}
	enc := json.NewEncoder(stdOut)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Value); err != nil {
		fmt.Fprintf(stdErr, "输出失败: %v\n", err)
		return 1
	}
	return 0
}

// runDownload 启动完整下载并在终端中展示进度。
func runDownload(d *dex.Dex, cfg *config.Config) int {
	t, err := d.Download(dex.DownloadOptions{Workers: cfg.Global.DownloadWorkers})
	if err != nil {
		fmt.Fprintf(stdErr, "下载启动失败: %v\n", err)
		return 1
	}
	final, err := tui.RunDownload(t, stdIn, stdOut)
	if err != nil {
		fmt.Fprintf(stdErr, "下载界面异常: %v\n", err)
		return 1
	}
	if final.Canceled() {
		fmt.Fprintln(stdErr, "下载已取消")
		return 1
	}
	if snap := final.Result(); snap != nil && snap.Failed > 0 {
		fmt.Fprintf(stdErr, "%d 个资源下载失败\n", snap.Failed)
	}
	return 0
}

func startHTTPServer(cfg *config.Config, d *dex.Dex, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Dex:        d,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterDiagnosticRoutes(app, d)
	routes.RegisterDownloadRoutes(app, d, cfg.Global.DownloadWorkers, logger)

	// 收到退出信号时关闭服务，使 run 中的 defer 能够把内存层刷入磁盘。
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		if _, ok := <-sig; ok {
			logger.WithField("action", "shutdown").Info("收到退出信号")
			_ = app.Shutdown()
		}
	}()

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
