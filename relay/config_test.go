package relay

import "testing"

func TestConfigZeroValueHasNoDefaultsApplied(t *testing.T) {
	cfg := &Config{}
	if cfg.Upstream != "" || cfg.GroupCacheSize != 0 || cfg.FrameCapacity != 0 || cfg.HealthCheckAddr != "" {
		t.Error("zero-value Config should leave every field unset")
	}
}

func TestConfigGroupCacheSizeFallsBackToDefault(t *testing.T) {
	if got := (&Config{}).groupCacheSize(); got != DefaultGroupCacheSize {
		t.Errorf("groupCacheSize() = %d, want default %d", got, DefaultGroupCacheSize)
	}
	if got := (&Config{GroupCacheSize: 200}).groupCacheSize(); got != 200 {
		t.Errorf("groupCacheSize() = %d, want 200", got)
	}
	if got := (&Config{GroupCacheSize: -1}).groupCacheSize(); got != DefaultGroupCacheSize {
		t.Errorf("negative GroupCacheSize should fall back to default, got %d", got)
	}
}

func TestConfigFrameCapacityFallsBackToDefault(t *testing.T) {
	if got := (&Config{}).frameCapacity(); got != DefaultNewFrameCapacity {
		t.Errorf("frameCapacity() = %d, want default %d", got, DefaultNewFrameCapacity)
	}
	if got := (&Config{FrameCapacity: 2048}).frameCapacity(); got != 2048 {
		t.Errorf("frameCapacity() = %d, want 2048", got)
	}
}

func TestConfigNilReceiverUsesDefaults(t *testing.T) {
	var cfg *Config
	if got := cfg.groupCacheSize(); got != DefaultGroupCacheSize {
		t.Errorf("nil Config groupCacheSize() = %d, want default %d", got, DefaultGroupCacheSize)
	}
	if got := cfg.frameCapacity(); got != DefaultNewFrameCapacity {
		t.Errorf("nil Config frameCapacity() = %d, want default %d", got, DefaultNewFrameCapacity)
	}
}
