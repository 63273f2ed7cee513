// Package config parses a client transfer profile from an ini-format
// file: the remote endpoint, block size, pacing interval, and the
// codec/correlator tuning knobs left as implementation defaults.
// Loads the same library (gopkg.in/ini.v1) an object-dictionary
// parser would, reading named keys out of a [section] with strconv
// conversions and documented fallbacks when a key is absent.
package config

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/ini.v1"
)

// Defaults mirror the reference values for transport, scheduling, and
// codec tuning described elsewhere in this repository.
const (
	DefaultBlockSize        = 1024 * 1024
	DefaultPaceInterval     = 30 * time.Millisecond
	DefaultReadChunkSize    = 1024
	DefaultCorrelatorTTL    = 60 * time.Second
	DefaultReactorTimeout   = time.Second
	DefaultMaxFieldNameLen  = 128
	DefaultMaxFieldValueLen = 1 << 20
)

// Profile is one parsed [transfer] section: where to connect and how to
// pace and size the transfer.
type Profile struct {
	Host string
	Port int

	BlockSize        int64
	PaceInterval     time.Duration
	ReadChunkSize    int
	CorrelatorTTL    time.Duration
	ReactorTimeout   time.Duration
	MaxFieldNameLen  int
	MaxFieldValueLen int

	WithChecksum bool
}

// defaultProfile seeds every field so a config file only needs to name
// the keys it wants to override.
func defaultProfile() Profile {
	return Profile{
		Port:             7878,
		BlockSize:        DefaultBlockSize,
		PaceInterval:     DefaultPaceInterval,
		ReadChunkSize:    DefaultReadChunkSize,
		CorrelatorTTL:    DefaultCorrelatorTTL,
		ReactorTimeout:   DefaultReactorTimeout,
		MaxFieldNameLen:  DefaultMaxFieldNameLen,
		MaxFieldValueLen: DefaultMaxFieldValueLen,
	}
}

// Load parses path as an ini file with a [transfer] section. Missing
// keys fall back to the reference defaults rather than erroring.
func Load(path string) (Profile, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return Profile{}, fmt.Errorf("config: load %q: %w", path, err)
	}
	return FromINI(cfg)
}

// FromINI builds a Profile from an already-loaded ini.File, letting
// callers parse from bytes ([]byte, ini.LoadSources) without a file on
// disk (used by tests).
func FromINI(cfg *ini.File) (Profile, error) {
	p := defaultProfile()
	section := cfg.Section("transfer")

	p.Host = section.Key("host").MustString(p.Host)
	p.Port = section.Key("port").MustInt(p.Port)
	p.WithChecksum = section.Key("checksum").MustBool(false)

	if v := section.Key("block_size").String(); v != "" {
		n, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			return Profile{}, fmt.Errorf("config: block_size: %w", err)
		}
		p.BlockSize = n
	}
	if v := section.Key("pace_interval_ms").String(); v != "" {
		n, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			return Profile{}, fmt.Errorf("config: pace_interval_ms: %w", err)
		}
		p.PaceInterval = time.Duration(n) * time.Millisecond
	}
	if v := section.Key("read_chunk_size").String(); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Profile{}, fmt.Errorf("config: read_chunk_size: %w", err)
		}
		p.ReadChunkSize = n
	}
	if v := section.Key("correlator_ttl_s").String(); v != "" {
		n, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			return Profile{}, fmt.Errorf("config: correlator_ttl_s: %w", err)
		}
		p.CorrelatorTTL = time.Duration(n) * time.Second
	}
	if v := section.Key("reactor_timeout_ms").String(); v != "" {
		n, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			return Profile{}, fmt.Errorf("config: reactor_timeout_ms: %w", err)
		}
		p.ReactorTimeout = time.Duration(n) * time.Millisecond
	}
	if v := section.Key("max_field_name_length").String(); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Profile{}, fmt.Errorf("config: max_field_name_length: %w", err)
		}
		p.MaxFieldNameLen = n
	}
	if v := section.Key("max_field_value_length").String(); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Profile{}, fmt.Errorf("config: max_field_value_length: %w", err)
		}
		p.MaxFieldValueLen = n
	}

	if p.Host == "" {
		return Profile{}, fmt.Errorf("config: [transfer] host is required")
	}
	return p, nil
}

// Endpoint formats the configured server address for net.Dial.
func (p Profile) Endpoint() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}
