package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/apicall/api"
	"github.com/jonwraymond/apicall/observe"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Cache.Backend != BackendMemory {
		t.Errorf("Backend = %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Cache.DefaultTTL != 5*time.Minute {
		t.Errorf("DefaultTTL = %v, want 5m", cfg.Cache.DefaultTTL)
	}
	if cfg.Observe.ServiceName != "apicall" || !cfg.Observe.Logging.Enabled {
		t.Errorf("Observe = %+v", cfg.Observe)
	}
	if len(cfg.ClientNames()) != 0 {
		t.Errorf("ClientNames() = %v, want none", cfg.ClientNames())
	}
}

func TestParse_Full(t *testing.T) {
	data := `
observe:
  service_name: scanner
  version: "1.2"
  tracing: {enabled: true, exporter: stdout, sample_pct: 0.5}
  metrics: {enabled: true, exporter: prometheus}
  logging: {enabled: true, level: debug}
cache:
  backend: lru
  default_ttl: 10m
  max_ttl: 1h
  sweep_interval: 30s
  max_entries: 128
clients:
  shodan:
    api_key: ${SHODAN_API_KEY}
    base_url: https://shodan.example.test
    timeout: 5s
    disable_time_throttling: true
    search_backend: jmespath
  haveibeenpwned:
    user_agent: scanner/1.2
    disable_cache: true
`
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := cfg.ClientNames(); strings.Join(got, ",") != "haveibeenpwned,shodan" {
		t.Errorf("ClientNames() = %v", got)
	}
	sh := cfg.Clients["shodan"]
	if sh.APIKey != "${SHODAN_API_KEY}" {
		t.Errorf("api_key = %q, want it unresolved until Open", sh.APIKey)
	}
	if sh.Timeout != 5*time.Second || !sh.DisableTimeThrottling || sh.DisableCache || sh.SearchBackend != api.SearchJMESPath {
		t.Errorf("shodan = %+v", sh)
	}
	if hb := cfg.Clients["haveibeenpwned"]; !hb.DisableCache || hb.UserAgent != "scanner/1.2" {
		t.Errorf("haveibeenpwned = %+v", hb)
	}

	p := cfg.Policy()
	if p.DefaultTTL != 10*time.Minute || p.MaxTTL != time.Hour || p.SweepInterval != 30*time.Second || p.MaxEntries != 128 {
		t.Errorf("Policy() = %+v", p)
	}

	oc := cfg.ObserveConfig()
	if oc.ServiceName != "scanner" || oc.Version != "1.2" {
		t.Errorf("ObserveConfig() = %+v", oc)
	}
	if !oc.Tracing.Enabled || oc.Tracing.Exporter != "stdout" || oc.Tracing.SamplePct != 0.5 {
		t.Errorf("Tracing = %+v", oc.Tracing)
	}
	if oc.Metrics.Exporter != "prometheus" || oc.Logging.Level != "debug" {
		t.Errorf("ObserveConfig() = %+v", oc)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name:    "unknown backend",
			data:    "cache: {backend: disk}",
			wantErr: ErrInvalidBackend,
		},
		{
			name:    "redis without address",
			data:    "cache: {backend: redis}",
			wantErr: ErrMissingRedisAddr,
		},
		{
			name:    "negative ttl",
			data:    "cache: {default_ttl: -1s}",
			wantErr: ErrNegativeDuration,
		},
		{
			name:    "negative max entries",
			data:    "cache: {max_entries: -1}",
			wantErr: ErrInvalidMaxEntries,
		},
		{
			name:    "unknown client",
			data:    "clients: {nope: {}}",
			wantErr: ErrUnknownClient,
		},
		{
			name:    "negative client timeout",
			data:    "clients: {shodan: {timeout: -2s}}",
			wantErr: ErrNegativeDuration,
		},
		{
			name:    "unknown search backend",
			data:    "clients: {shodan: {search_backend: yaql}}",
			wantErr: ErrInvalidSearchBackend,
		},
		{
			name:    "invalid log level",
			data:    "observe: {logging: {enabled: true, level: loud}}",
			wantErr: observe.ErrInvalidLogLevel,
		},
		{
			name:    "missing service name",
			data:    `observe: {service_name: ""}`,
			wantErr: observe.ErrMissingServiceName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParse_ReportsEveryProblem(t *testing.T) {
	_, err := Parse([]byte("cache: {backend: disk, max_ttl: -1m}\nclients: {nope: {}}"))
	for _, want := range []error{ErrInvalidBackend, ErrNegativeDuration, ErrUnknownClient} {
		if !errors.Is(err, want) {
			t.Errorf("Parse() error = %v, want it to include %v", err, want)
		}
	}
}

func TestParse_BadYAML(t *testing.T) {
	if _, err := Parse([]byte("cache: [")); err == nil {
		t.Error("Parse() accepted malformed yaml")
	}
	if _, err := Parse([]byte("cache: {default_ttl: soon}")); err == nil {
		t.Error("Parse() accepted an invalid duration")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apicall.yaml")
	if err := os.WriteFile(path, []byte("cache: {backend: lru}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.Backend != BackendLRU {
		t.Errorf("Backend = %q, want lru", cfg.Cache.Backend)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want os.ErrNotExist", err)
	}
}
