package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// day is a local calendar date. Two times fall on the same day when their
// year, month and day-of-month are equal in the clock's location, so a
// clock moved backwards across midnight also triggers a recompute.
type day struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time) day {
	y, m, d := t.Date()
	return day{year: y, month: m, day: d}
}

type resolved struct {
	day day
	uri *url.URL
}

// URI returns the delivery URI for the current calendar day. The returned
// value is a copy and may be modified by the caller.
func (c *Config) URI() (*url.URL, error) {
	today := dayOf(c.now())

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached == nil || c.cached.day != today {
		raw := strings.NewReplacer(
			"%y", fmt.Sprintf("%04d", today.year),
			"%m", fmt.Sprintf("%02d", int(today.month)),
			"%d", fmt.Sprintf("%02d", today.day),
		).Replace(c.template)

		u, err := parseURI(raw)
		if err != nil {
			return nil, err
		}
		c.cached = &resolved{day: today, uri: u}
		c.resolves++
	}

	cp := *c.cached.uri
	return &cp, nil
}

// parseURI accepts only absolute http and https URIs with a host.
func parseURI(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: parse uri %q: %v: %w", raw, err, ErrInvalidURI)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("config: uri %q: scheme must be http or https: %w", raw, ErrInvalidURI)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("config: uri %q: missing host: %w", raw, ErrInvalidURI)
	}
	return u, nil
}
