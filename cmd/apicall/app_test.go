package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jonwraymond/apicall/api"
	"github.com/jonwraymond/apicall/config"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := New().WithOutput(&stdout, &stderr).ExecuteWithArgs(context.Background(), args)
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "apicall.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestApp_Version(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "apicall version") {
		t.Errorf("version output = %q", out)
	}
}

func TestApp_Help(t *testing.T) {
	out, _, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, want := range []string{"call", "paths", "clients", "validate", "health"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q, got: %s", want, out)
		}
	}
}

func TestApp_Clients(t *testing.T) {
	out, _, err := run(t, "clients")
	if err != nil {
		t.Fatalf("clients command failed: %v", err)
	}
	if out != "haveibeenpwned\npwnedpasswords\nshodan\n" {
		t.Errorf("clients output = %q", out)
	}
}

func TestApp_Paths(t *testing.T) {
	out, _, err := run(t, "paths", "shodan")
	if err != nil {
		t.Fatalf("paths command failed: %v", err)
	}
	for _, want := range []string{"PATH", "dns.resolve", "batch", "dns.domain", "private", "invalidates=account_profile,info"} {
		if !strings.Contains(out, want) {
			t.Errorf("paths output missing %q, got:\n%s", want, out)
		}
	}

	if _, _, err := run(t, "paths", "nope"); err == nil {
		t.Error("paths should fail for an unknown client")
	}
}

func TestApp_Validate(t *testing.T) {
	path := writeConfig(t, "cache: {backend: lru}\nclients: {shodan: {api_key: k}}\n")
	out, _, err := run(t, "validate", "-c", path)
	if err != nil {
		t.Fatalf("validate command failed: %v", err)
	}
	if !strings.Contains(out, "1 client(s), lru cache") {
		t.Errorf("validate output = %q", out)
	}

	bad := writeConfig(t, "cache: {backend: disk}\n")
	if _, _, err := run(t, "validate", "-c", bad); !errors.Is(err, config.ErrInvalidBackend) {
		t.Errorf("validate error = %v, want ErrInvalidBackend", err)
	}
	if _, _, err := run(t, "validate"); err == nil {
		t.Error("validate should require -c")
	}
}

type recorder struct {
	mu    sync.Mutex
	reqs  []*http.Request
	reply string
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(r.reply))
}

func (r *recorder) last() *http.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reqs) == 0 {
		return nil
	}
	return r.reqs[len(r.reqs)-1]
}

func TestApp_Call(t *testing.T) {
	rec := &recorder{reply: `{"ip_str": "8.8.8.8", "ports": [53, 443]}`}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	path := writeConfig(t, `
observe: {logging: {enabled: false}}
clients:
  shodan:
    api_key: test-key
    base_url: `+srv.URL+`
    disable_time_throttling: true
`)
	out, _, err := run(t, "call", "shodan", "shodan.host", "8.8.8.8", "--named", "minify=true", "-c", path)
	if err != nil {
		t.Fatalf("call command failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("call output is not JSON: %v\n%s", err, out)
	}
	if got["ip_str"] != "8.8.8.8" {
		t.Errorf("call output = %v", got)
	}

	req := rec.last()
	if req == nil {
		t.Fatal("no request reached the server")
	}
	if req.URL.Path != "/shodan/host/8.8.8.8" {
		t.Errorf("path = %s", req.URL.Path)
	}
	if q := req.URL.Query(); q.Get("minify") != "true" || q.Get("key") != "test-key" {
		t.Errorf("query = %v", q)
	}
}

func TestApp_CallSearch(t *testing.T) {
	rec := &recorder{reply: `{"ip_str": "8.8.8.8", "ports": [53, 443]}`}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	path := writeConfig(t, `
observe: {logging: {enabled: false}}
clients:
  shodan:
    api_key: test-key
    base_url: `+srv.URL+`
    disable_time_throttling: true
    search_backend: jsonpath
`)
	out, _, err := run(t, "call", "shodan", "shodan.host", "8.8.8.8", "--search", "$.ports[1]", "-c", path)
	if err != nil {
		t.Fatalf("call --search failed: %v", err)
	}
	if got := strings.Join(strings.Fields(out), ""); got != "[443]" {
		t.Errorf("jsonpath output = %q, want [443]", out)
	}

	out, _, err = run(t, "call", "shodan", "shodan.host", "8.8.8.8", "--search", "ports[0]", "--search-backend", "jmespath", "-c", path)
	if err != nil {
		t.Fatalf("call --search-backend failed: %v", err)
	}
	if strings.TrimSpace(out) != "53" {
		t.Errorf("jmespath output = %q, want 53", out)
	}
}

func TestApp_CallErrors(t *testing.T) {
	path := writeConfig(t, "observe: {logging: {enabled: false}}\nclients: {shodan: {api_key: k, base_url: 'http://127.0.0.1:1'}}\n")

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "unknown client",
			args:    []string{"call", "nope", "info", "-c", path},
			wantErr: config.ErrUnknownClient,
		},
		{
			name:    "unknown path",
			args:    []string{"call", "shodan", "dns.nope", "-c", path},
			wantErr: api.ErrNoSuchCall,
		},
		{
			name:    "inner node",
			args:    []string{"call", "shodan", "dns", "-c", path},
			wantErr: api.ErrNotCallable,
		},
		{
			name:    "unknown search backend",
			args:    []string{"call", "shodan", "info", "--search", "x", "--search-backend", "yaql", "-c", path},
			wantErr: api.ErrInvalidSearchBackend,
		},
		{
			name:    "bad argument",
			args:    []string{"call", "shodan", "shodan.host", "not-an-ip", "-c", path},
			wantErr: api.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := run(t, tt.args...); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"false", false},
		{"2", 2},
		{"1", 1},
		{"8.8.8.8", "8.8.8.8"},
		{"port:22", "port:22"},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); got != tt.want {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestApp_Health(t *testing.T) {
	t.Setenv("APICALL_TEST_SHODAN_KEY", "k")
	path := writeConfig(t, `
observe: {logging: {enabled: false}}
clients:
  shodan: {api_key: '${APICALL_TEST_SHODAN_KEY}'}
  haveibeenpwned: {}
`)
	out, _, err := run(t, "health", "-c", path)
	if err != nil {
		t.Fatalf("health command failed: %v\n%s", err, out)
	}
	for _, want := range []string{"secret.shodan", "cache.shodan", "degraded", "overall: degraded"} {
		if !strings.Contains(out, want) {
			t.Errorf("health output missing %q, got:\n%s", want, out)
		}
	}

	bad := writeConfig(t, "observe: {logging: {enabled: false}}\nclients: {shodan: {api_key: '${APICALL_TEST_UNSET_KEY}'}}\n")
	out, _, err = run(t, "health", "-c", bad)
	if !errors.Is(err, errUnhealthy) {
		t.Errorf("health error = %v, want errUnhealthy", err)
	}
	if !strings.Contains(out, "overall: unhealthy") {
		t.Errorf("health output = %q", out)
	}
}
