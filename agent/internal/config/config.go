package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when options are absent.
const (
	DefaultConnectTimeout = 1000 * time.Millisecond
	DefaultRequestTimeout = 1000 * time.Millisecond
)

// maxTimeoutMillis is the largest timeout that fits in a time.Duration.
const maxTimeoutMillis = math.MaxInt64 / int64(time.Millisecond)

var (
	// ErrInvalidArgument reports a malformed, unknown or missing option.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidURI reports a resolved uri that is not a valid absolute URI.
	ErrInvalidURI = errors.New("invalid uri")
)

// Config is the immutable agent configuration plus the resolved-URI cache.
type Config struct {
	template       string
	label          *string
	connectTimeout time.Duration
	requestTimeout time.Duration
	hostName       string

	now func() time.Time

	mu       sync.Mutex
	cached   *resolved
	resolves int
}

// Option customises how a Config is built.
type Option func(*builder)

type builder struct {
	now      func() time.Time
	hostname func() (string, error)
}

// WithClock replaces time.Now as the source of the current date.
func WithClock(now func() time.Time) Option {
	return func(b *builder) { b.now = now }
}

// WithHostname replaces os.Hostname.
func WithHostname(fn func() (string, error)) Option {
	return func(b *builder) { b.hostname = fn }
}

// settings holds raw option values before the Config is built.
type settings struct {
	URI            string  `yaml:"uri"`
	Label          *string `yaml:"label"`
	ConnectTimeout int64   `yaml:"connect_timeout"`
	RequestTimeout int64   `yaml:"request_timeout"`
}

// Parse builds a Config from a comma-separated key=value argument string.
func Parse(args string, opts ...Option) (*Config, error) {
	s := defaults()
	for _, arg := range strings.Split(args, ",") {
		if arg == "" {
			continue
		}
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("config: option %q has no value: %w", arg, ErrInvalidArgument)
		}

		switch key {
		case "uri":
			s.URI = value
		case "label":
			label := value
			s.Label = &label
		case "connect_timeout":
			ms, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("config: connect_timeout %q: %w", value, ErrInvalidArgument)
			}
			s.ConnectTimeout = ms
		case "request_timeout":
			ms, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("config: request_timeout %q: %w", value, ErrInvalidArgument)
			}
			s.RequestTimeout = ms
		default:
			return nil, fmt.Errorf("config: unknown option %q: %w", key, ErrInvalidArgument)
		}
	}
	return build(s, opts)
}

// Load reads the YAML config file at path. Keys are the same as for Parse.
func Load(path string, opts ...Option) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	s := defaults()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse yaml: %v: %w", err, ErrInvalidArgument)
	}
	return build(s, opts)
}

// defaults returns settings pre-populated with default values.
func defaults() *settings {
	return &settings{
		ConnectTimeout: DefaultConnectTimeout.Milliseconds(),
		RequestTimeout: DefaultRequestTimeout.Milliseconds(),
	}
}

// validate checks required fields and value ranges.
func validate(s *settings) error {
	if s.URI == "" {
		return fmt.Errorf("uri is not specified: %w", ErrInvalidArgument)
	}
	if s.ConnectTimeout <= 0 || s.ConnectTimeout > maxTimeoutMillis {
		return fmt.Errorf("connect_timeout must be between 1 and %d: %w", maxTimeoutMillis, ErrInvalidArgument)
	}
	if s.RequestTimeout <= 0 || s.RequestTimeout > maxTimeoutMillis {
		return fmt.Errorf("request_timeout must be between 1 and %d: %w", maxTimeoutMillis, ErrInvalidArgument)
	}
	return nil
}

func build(s *settings, opts []Option) (*Config, error) {
	if err := validate(s); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	b := builder{now: time.Now, hostname: os.Hostname}
	for _, opt := range opts {
		opt(&b)
	}

	host, err := b.hostname()
	if err != nil {
		return nil, fmt.Errorf("config: resolve hostname: %w", err)
	}

	var label string
	if s.Label != nil {
		label = *s.Label
	}
	template := strings.NewReplacer("%h", host, "%l", label).Replace(s.URI)

	return &Config{
		template:       template,
		label:          s.Label,
		connectTimeout: time.Duration(s.ConnectTimeout) * time.Millisecond,
		requestTimeout: time.Duration(s.RequestTimeout) * time.Millisecond,
		hostName:       host,
		now:            b.now,
	}, nil
}

// Label returns the configured label and whether one was set.
func (c *Config) Label() (string, bool) {
	if c.label == nil {
		return "", false
	}
	return *c.label, true
}

// ConnectTimeout bounds establishing a connection to the endpoint.
func (c *Config) ConnectTimeout() time.Duration { return c.connectTimeout }

// RequestTimeout bounds a whole delivery exchange.
func (c *Config) RequestTimeout() time.Duration { return c.requestTimeout }

// HostName is the local hostname resolved when the Config was built.
func (c *Config) HostName() string { return c.hostName }

// Template is the uri with %h and %l already substituted.
func (c *Config) Template() string { return c.template }
