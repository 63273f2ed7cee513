package config

import (
	"testing"
	"time"

	"gopkg.in/ini.v1"
)

func TestFromINIAppliesOverridesAndDefaults(t *testing.T) {
	raw := []byte(`
[transfer]
host = 10.0.0.5
port = 9000
block_size = 2048
pace_interval_ms = 50
checksum = true
`)
	cfg, err := ini.Load(raw)
	if err != nil {
		t.Fatalf("ini.Load: %v", err)
	}
	p, err := FromINI(cfg)
	if err != nil {
		t.Fatalf("FromINI: %v", err)
	}
	if p.Host != "10.0.0.5" || p.Port != 9000 {
		t.Errorf("endpoint = %s:%d, want 10.0.0.5:9000", p.Host, p.Port)
	}
	if p.BlockSize != 2048 {
		t.Errorf("block size = %d, want 2048", p.BlockSize)
	}
	if p.PaceInterval != 50*time.Millisecond {
		t.Errorf("pace interval = %v, want 50ms", p.PaceInterval)
	}
	if !p.WithChecksum {
		t.Error("expected checksum enabled")
	}
	if p.ReadChunkSize != DefaultReadChunkSize {
		t.Errorf("read chunk size = %d, want default %d", p.ReadChunkSize, DefaultReadChunkSize)
	}
	if p.Endpoint() != "10.0.0.5:9000" {
		t.Errorf("endpoint = %q", p.Endpoint())
	}
}

func TestFromINIRequiresHost(t *testing.T) {
	cfg, err := ini.Load([]byte("[transfer]\nport = 7878\n"))
	if err != nil {
		t.Fatalf("ini.Load: %v", err)
	}
	if _, err := FromINI(cfg); err == nil {
		t.Error("expected an error when host is missing")
	}
}
