package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetupConfigDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	c, err := SetupConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.HTTP.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", c.Server.HTTP.Port)
	}
	if c.Integrity.CorruptionLogSize != 1000 {
		t.Errorf("expected default corruption_log_size 1000, got %d", c.Integrity.CorruptionLogSize)
	}
	if got := c.Integrity.RepairTimeout.Duration(); got != 10*time.Minute {
		t.Errorf("expected default repair_timeout 10m, got %v", got)
	}

	// 默认配置应当已写出
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
}

func TestSetupConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	c := Bootstrap{}
	c.Server.HTTP.Port = 9000
	c.Data.Database.Dsn = "postgres://localhost/vru"
	c.Integrity.HealthySuccessRate = 0.9
	if err := WriteConfig(&c, path); err != nil {
		t.Fatal(err)
	}

	got, err := SetupConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Server.HTTP.Port != 9000 {
		t.Errorf("port = %d, want 9000", got.Server.HTTP.Port)
	}
	if got.Data.Database.Dsn != "postgres://localhost/vru" {
		t.Errorf("dsn = %s", got.Data.Database.Dsn)
	}
	if got.Integrity.HealthySuccessRate != 0.9 {
		t.Errorf("healthy_success_rate = %v, want 0.9", got.Integrity.HealthySuccessRate)
	}
	// 未填写的项应补默认值
	if got.Data.Database.MaxOpenConns != 100 {
		t.Errorf("max_open_conns = %d, want default 100", got.Data.Database.MaxOpenConns)
	}
}

func TestDurationParse(t *testing.T) {
	if got := Duration("30s").Duration(); got != 30*time.Second {
		t.Errorf("Duration(30s) = %v", got)
	}
	if got := Duration("bad").Duration(); got != 0 {
		t.Errorf("invalid duration should be 0, got %v", got)
	}
}
