package config

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLATFORM_FEE_BPS", "")
	t.Setenv("EXPIRE_POLICY", "")
	t.Setenv("MIN_DEADLINE_SECONDS", "")

	cfg := Load()

	if cfg.PlatformFeeBPS != 300 {
		t.Errorf("PlatformFeeBPS = %d, want 300", cfg.PlatformFeeBPS)
	}
	if cfg.ExpirePolicy != "refund" {
		t.Errorf("ExpirePolicy = %q, want refund", cfg.ExpirePolicy)
	}
	if cfg.MinDeadline != time.Minute {
		t.Errorf("MinDeadline = %v, want 1m", cfg.MinDeadline)
	}
	if !cfg.ExpireClearPayload {
		t.Error("ExpireClearPayload should default to true")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PLATFORM_FEE_BPS", "250")
	t.Setenv("PROTOCOL_FEE", "7")
	t.Setenv("EXPIRE_POLICY", "FREEZE")
	t.Setenv("EXPIRE_CLEAR_PAYLOAD", "false")
	t.Setenv("STORE_BACKEND", "memory")

	cfg := Load()

	if cfg.PlatformFeeBPS != 250 {
		t.Errorf("PlatformFeeBPS = %d, want 250", cfg.PlatformFeeBPS)
	}
	if cfg.ProtocolFee != 7 {
		t.Errorf("ProtocolFee = %d, want 7", cfg.ProtocolFee)
	}
	if cfg.ExpirePolicy != "freeze" {
		t.Errorf("ExpirePolicy = %q, want freeze", cfg.ExpirePolicy)
	}
	if cfg.ExpireClearPayload {
		t.Error("ExpireClearPayload should be false")
	}
	if cfg.StoreBackend != StoreBackendMemory {
		t.Errorf("StoreBackend = %q, want memory", cfg.StoreBackend)
	}
}

func TestGetEnvIntFallback(t *testing.T) {
	t.Setenv("JANITOR_BATCH_SIZE", "lots")
	if got := getEnvInt("JANITOR_BATCH_SIZE", 100); got != 100 {
		t.Errorf("getEnvInt = %d, want fallback 100", got)
	}
}

func TestValidateClampsFee(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{300, 300},
		{10000, 10000},
		{12000, 10000},
	}
	for _, tt := range tests {
		cfg := &Config{PlatformFeeBPS: tt.in, MinDeadline: time.Second, MaxDeadline: time.Hour}
		cfg.Validate(zap.NewNop())
		if cfg.PlatformFeeBPS != tt.want {
			t.Errorf("Validate(%d): got %d, want %d", tt.in, cfg.PlatformFeeBPS, tt.want)
		}
	}
}

func TestValidateRaisesMinDeadline(t *testing.T) {
	for _, lo := range []time.Duration{0, -time.Minute, time.Millisecond} {
		cfg := &Config{MinDeadline: lo, MaxDeadline: time.Hour}
		cfg.Validate(zap.NewNop())
		if cfg.MinDeadline != time.Second {
			t.Errorf("Validate(min=%v): MinDeadline = %v, want 1s", lo, cfg.MinDeadline)
		}
	}

	cfg := &Config{MinDeadline: time.Minute, MaxDeadline: time.Hour}
	cfg.Validate(zap.NewNop())
	if cfg.MinDeadline != time.Minute {
		t.Errorf("MinDeadline = %v, want 1m kept", cfg.MinDeadline)
	}
}

func TestParseBalances(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]int64
		wantErr bool
	}{
		{"empty", "", map[string]int64{}, false},
		{"pairs", "alice:1000, bob:50", map[string]int64{"alice": 1000, "bob": 50}, false},
		{"colon in account", "escrow:fees:5", map[string]int64{"escrow:fees": 5}, false},
		{"repeated account adds", "alice:1,alice:2", map[string]int64{"alice": 3}, false},
		{"missing amount", "alice", nil, true},
		{"missing account", ":10", nil, true},
		{"negative", "alice:-1", nil, true},
		{"not a number", "alice:lots", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBalances(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBalances(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseBalances(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %d, want %d", k, got[k], v)
				}
			}
		})
	}
}
