package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("显式指定的缺失配置文件应报错")
	}

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("无配置文件时应回落默认值: %v", err)
	}

	if cfg.Fetch.Workers != 6 || cfg.Fetch.LookbackDays != 35 || cfg.Fetch.MinSamples != 5 {
		t.Fatalf("抓取默认值错误: %+v", cfg.Fetch)
	}
	if cfg.Dedup.FilePath != "data/alerted.json" {
		t.Fatalf("去重文件默认路径错误: %q", cfg.Dedup.FilePath)
	}

	closeMode, err := cfg.Mode("close")
	if err != nil {
		t.Fatalf("close 模式应有默认配置: %v", err)
	}
	if closeMode.PriceThresholdPct != 7.0 || closeMode.VolumeMultiplier != 2.5 || closeMode.WindowSessions != 30 {
		t.Fatalf("close 模式默认阈值错误: %+v", closeMode)
	}
	if closeMode.SortByMagnitude {
		t.Fatal("close 模式应保持抓取顺序")
	}

	intraday, err := cfg.Mode("intraday")
	if err != nil {
		t.Fatalf("intraday 模式应有默认配置: %v", err)
	}
	if intraday.PriceThresholdPct != 5.0 || intraday.VolumeMultiplier != 1.8 || intraday.WindowSessions != 7 {
		t.Fatalf("intraday 模式默认阈值错误: %+v", intraday)
	}
	if !intraday.SortByMagnitude {
		t.Fatal("intraday 模式应按涨跌幅排序")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
app:
  timezone: Asia/Shanghai
fetch:
  workers: 3
watchlist:
  us: [AAPL, TSLA]
names:
  "600519": 贵州茅台
modes:
  close:
    price_threshold_pct: 9.5
    volume_multiplier: 2.5
    window_sessions: 30
    venues: [us]
`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("写入测试配置失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Fetch.Workers != 3 {
		t.Fatalf("文件应覆盖默认值: workers=%d", cfg.Fetch.Workers)
	}
	if len(cfg.Watchlist.US) != 2 || cfg.Watchlist.US[0] != "AAPL" {
		t.Fatalf("监控列表解析错误: %+v", cfg.Watchlist.US)
	}

	mode, err := cfg.Mode("close")
	if err != nil {
		t.Fatalf("Mode 失败: %v", err)
	}
	if mode.PriceThresholdPct != 9.5 {
		t.Fatalf("阈值覆盖失败: %v", mode.PriceThresholdPct)
	}
}

func TestModeUnknown(t *testing.T) {
	cfg := &Config{Modes: map[string]ModeConfig{"close": {}}}
	if _, err := cfg.Mode("lunar"); err == nil {
		t.Fatal("未知模式应报错")
	}
}

func TestDisplayNameFallback(t *testing.T) {
	cfg := &Config{Names: map[string]string{"600519": "贵州茅台"}}
	if got := cfg.DisplayName("600519"); got != "贵州茅台" {
		t.Fatalf("应返回映射名: %q", got)
	}
	if got := cfg.DisplayName("AAPL"); got != "AAPL" {
		t.Fatalf("无映射时应回落代码: %q", got)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("构造基准配置失败: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Fetch.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("workers=0 应校验失败")
	}

	cfg = base()
	cfg.Fetch.LookbackDays = 2
	if err := cfg.Validate(); err == nil {
		t.Fatal("lookback 小于 min_samples 应校验失败")
	}

	cfg = base()
	cfg.App.Timezone = "Mars/Olympus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("非法时区应校验失败")
	}

	cfg = base()
	mode := cfg.Modes["close"]
	mode.WindowSessions = 0
	cfg.Modes["close"] = mode
	if err := cfg.Validate(); err == nil {
		t.Fatal("window_sessions=0 应校验失败")
	}
}
