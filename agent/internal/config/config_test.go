package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedHost(name string) Option {
	return WithHostname(func() (string, error) { return name, nil })
}

func TestParse_Valid(t *testing.T) {
	cfg, err := Parse("uri=http://x/%h/%l,label=test,connect_timeout=500", fixedHost("build-7"))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	if got := cfg.Template(); got != "http://x/build-7/test" {
		t.Errorf("template: got %q", got)
	}
	if cfg.ConnectTimeout() != 500*time.Millisecond {
		t.Errorf("connect_timeout: got %v", cfg.ConnectTimeout())
	}
	if cfg.RequestTimeout() != DefaultRequestTimeout {
		t.Errorf("request_timeout: got %v, want %v", cfg.RequestTimeout(), DefaultRequestTimeout)
	}
	label, ok := cfg.Label()
	if !ok || label != "test" {
		t.Errorf("label: got %q (set=%v)", label, ok)
	}
	if cfg.HostName() != "build-7" {
		t.Errorf("hostname: got %q", cfg.HostName())
	}
}

func TestParse_RealHostname(t *testing.T) {
	host, err := os.Hostname()
	if err != nil {
		t.Skipf("no hostname: %v", err)
	}

	cfg, err := Parse("uri=http://x/%h,label=test,connect_timeout=500")
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if !strings.Contains(cfg.Template(), host) {
		t.Errorf("template %q does not contain hostname %q", cfg.Template(), host)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse("uri=http://collector:8080/gc", fixedHost("h"))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if cfg.ConnectTimeout() != DefaultConnectTimeout {
		t.Errorf("default connect_timeout: got %v", cfg.ConnectTimeout())
	}
	if cfg.RequestTimeout() != DefaultRequestTimeout {
		t.Errorf("default request_timeout: got %v", cfg.RequestTimeout())
	}
	if _, ok := cfg.Label(); ok {
		t.Error("label should be unset")
	}
}

func TestParse_EmptyLabelIsSet(t *testing.T) {
	cfg, err := Parse("uri=http://c/%l/x,label=", fixedHost("h"))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if label, ok := cfg.Label(); !ok || label != "" {
		t.Errorf("label: got %q (set=%v), want empty and set", label, ok)
	}
	if cfg.Template() != "http://c//x" {
		t.Errorf("template: got %q", cfg.Template())
	}
}

func TestParse_ValueMayContainEquals(t *testing.T) {
	cfg, err := Parse("uri=http://c/ingest?index=gc-%y.%m.%d", fixedHost("h"))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if cfg.Template() != "http://c/ingest?index=gc-%y.%m.%d" {
		t.Errorf("template: got %q", cfg.Template())
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{"empty", ""},
		{"missing uri", "label=test"},
		{"unknown key", "uri=http://x/,foo=bar"},
		{"no value", "uri=http://x/,label"},
		{"bad connect timeout", "uri=http://x/,connect_timeout=fast"},
		{"bad request timeout", "uri=http://x/,request_timeout=1.5"},
		{"zero timeout", "uri=http://x/,request_timeout=0"},
		{"negative timeout", "uri=http://x/,connect_timeout=-5"},
		{"connect timeout overflows", "uri=http://x/,connect_timeout=9223372036854775"},
		{"request timeout overflows", "uri=http://x/,request_timeout=9223372036855"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.args, fixedHost("h"))
			if err == nil {
				t.Fatalf("Parse(%q): expected error, got nil", tc.args)
			}
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Parse(%q): error %v is not ErrInvalidArgument", tc.args, err)
			}
		})
	}
}

func TestParse_HostnameFailure(t *testing.T) {
	_, err := Parse("uri=http://x/", WithHostname(func() (string, error) {
		return "", errors.New("no such host")
	}))
	if err == nil {
		t.Fatal("expected error when hostname cannot be resolved")
	}
}

func TestLoad_Valid(t *testing.T) {
	yaml := `
uri: "https://gc.example.com/%y/%m/%d/%h"
label: canary
connect_timeout: 250
request_timeout: 3000
`
	cfg := loadFromString(t, yaml)

	if cfg.Template() != "https://gc.example.com/%y/%m/%d/web-1" {
		t.Errorf("template: got %q", cfg.Template())
	}
	if label, _ := cfg.Label(); label != "canary" {
		t.Errorf("label: got %q", label)
	}
	if cfg.ConnectTimeout() != 250*time.Millisecond {
		t.Errorf("connect_timeout: got %v", cfg.ConnectTimeout())
	}
	if cfg.RequestTimeout() != 3*time.Second {
		t.Errorf("request_timeout: got %v", cfg.RequestTimeout())
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, "uri: http://c/gc\n")

	if cfg.ConnectTimeout() != DefaultConnectTimeout {
		t.Errorf("default connect_timeout: got %v", cfg.ConnectTimeout())
	}
	if _, ok := cfg.Label(); ok {
		t.Error("label should be unset")
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := loadStringErr(t, "uri: http://c/gc\nfoo: bar\n")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown key, got %v", err)
	}
}

func TestLoad_Empty(t *testing.T) {
	_, err := loadStringErr(t, "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty file, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gcshipper.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return Load(path, fixedHost("web-1"))
}
