package config

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testClock is a settable clock safe for concurrent readers.
type testClock struct {
	now atomic.Pointer[time.Time]
}

func newTestClock(t time.Time) *testClock {
	c := &testClock{}
	c.set(t)
	return c
}

func (c *testClock) set(t time.Time) { c.now.Store(&t) }
func (c *testClock) Now() time.Time { return *c.now.Load() }

var tokyo = time.FixedZone("JST", 9*60*60)

func TestURI_SameDayIsCached(t *testing.T) {
	clk := newTestClock(time.Date(2026, 3, 9, 8, 0, 0, 0, tokyo))
	cfg, err := Parse("uri=http://c/%h/%l/%y%m%d,label=blue", fixedHost("web-1"), WithClock(clk.Now))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	first, err := cfg.URI()
	if err != nil {
		t.Fatalf("URI() unexpected error: %v", err)
	}
	clk.set(time.Date(2026, 3, 9, 23, 59, 59, 999, tokyo))
	second, err := cfg.URI()
	if err != nil {
		t.Fatalf("URI() unexpected error: %v", err)
	}

	if first.String() != "http://c/web-1/blue/20260309" {
		t.Errorf("URI: got %q", first.String())
	}
	if first.String() != second.String() {
		t.Errorf("same-day URIs differ: %q vs %q", first, second)
	}
	if cfg.resolves != 1 {
		t.Errorf("substitutions: got %d, want 1", cfg.resolves)
	}
}

func TestURI_DayBoundary(t *testing.T) {
	clk := newTestClock(time.Date(2026, 12, 31, 23, 59, 59, 0, tokyo))
	cfg, err := Parse("uri=http://c/%y/%m/%d/%h/%l,label=edge", fixedHost("db-2"), WithClock(clk.Now))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	before, err := cfg.URI()
	if err != nil {
		t.Fatalf("URI() unexpected error: %v", err)
	}
	clk.set(time.Date(2027, 1, 1, 0, 0, 0, 0, tokyo))
	after, err := cfg.URI()
	if err != nil {
		t.Fatalf("URI() unexpected error: %v", err)
	}

	if before.String() != "http://c/2026/12/31/db-2/edge" {
		t.Errorf("before midnight: got %q", before)
	}
	if after.String() != "http://c/2027/01/01/db-2/edge" {
		t.Errorf("after midnight: got %q", after)
	}
	if cfg.resolves != 2 {
		t.Errorf("substitutions: got %d, want 2", cfg.resolves)
	}
}

func TestURI_ClockMovedBackRecomputes(t *testing.T) {
	clk := newTestClock(time.Date(2026, 3, 10, 0, 30, 0, 0, tokyo))
	cfg, err := Parse("uri=http://c/%d", fixedHost("h"), WithClock(clk.Now))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	if u, _ := cfg.URI(); u.String() != "http://c/10" {
		t.Fatalf("URI: got %q", u)
	}
	clk.set(time.Date(2026, 3, 9, 23, 30, 0, 0, tokyo))
	if u, _ := cfg.URI(); u.String() != "http://c/09" {
		t.Errorf("after clock moved back: got %q, want http://c/09", u)
	}
}

func TestURI_ReturnsCopy(t *testing.T) {
	cfg, err := Parse("uri=http://c/gc", fixedHost("h"))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	u, _ := cfg.URI()
	u.Path = "/mutated"

	again, _ := cfg.URI()
	if again.Path != "/gc" {
		t.Errorf("cached URI was mutated: %q", again)
	}
}

func TestURI_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{"relative", "uri=/just/a/path"},
		{"bad scheme", "uri=ftp://c/gc"},
		{"no host", "uri=http:///gc"},
		{"bad escape", "uri=http://c/%zz"},
		{"label with space in host", "uri=http://%l/gc,label=a b"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse(tc.args, fixedHost("h"))
			if err != nil {
				t.Fatalf("Parse() unexpected error: %v", err)
			}
			if _, err := cfg.URI(); !errors.Is(err, ErrInvalidURI) {
				t.Errorf("URI(): got %v, want ErrInvalidURI", err)
			}
		})
	}
}

func TestURI_ConcurrentAroundMidnight(t *testing.T) {
	clk := newTestClock(time.Date(2026, 6, 30, 23, 59, 59, 0, tokyo))
	cfg, err := Parse("uri=http://c/%y-%m-%d/%h", fixedHost("web-9"), WithClock(clk.Now))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	valid := map[string]bool{
		"http://c/2026-06-30/web-9": true,
		"http://c/2026-07-01/web-9": true,
	}

	var wg sync.WaitGroup
	errs := make(chan string, 64*50)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i == 0 && j == 10 {
					clk.set(time.Date(2026, 7, 1, 0, 0, 0, 0, tokyo))
				}
				u, err := cfg.URI()
				if err != nil {
					errs <- err.Error()
					continue
				}
				if !valid[u.String()] {
					errs <- u.String()
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Errorf("unexpected resolution: %s", e)
	}
	if u, _ := cfg.URI(); u.String() != "http://c/2026-07-01/web-9" {
		t.Errorf("final URI: got %q", u)
	}
}
