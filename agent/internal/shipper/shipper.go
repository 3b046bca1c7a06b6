package shipper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/obsidianstack/gcshipper/agent/internal/config"
	"github.com/obsidianstack/gcshipper/agent/internal/metrics"
)

const (
	maxRedirects   = 10
	maxLoggedBody  = 4 << 10
	maxDrainedBody = 64 << 10
	idleConnTTL    = 90 * time.Second
)

// target resolves the URI for the next delivery. Abstracted so tests can
// inject resolution failures.
type target interface {
	URI() (*url.URL, error)
}

// Shipper posts documents asynchronously. Publish is safe for concurrent use.
type Shipper struct {
	target         target
	client         *http.Client
	requestTimeout time.Duration
	metrics        *metrics.Metrics
	newID          func() string // injectable for tests

	wg sync.WaitGroup
}

// New creates a Shipper delivering to cfg's URI with cfg's timeouts.
// A nil m gets a private metrics set.
func New(cfg *config.Config, m *metrics.Metrics) *Shipper {
	if m == nil {
		m = metrics.New()
	}
	return &Shipper{
		target:         cfg,
		client:         buildHTTPClient(cfg.ConnectTimeout()),
		requestTimeout: cfg.RequestTimeout(),
		metrics:        m,
		newID:          uuid.NewString,
	}
}

// Publish starts delivery of doc and returns without waiting for it.
// The caller must not modify doc afterwards.
func (s *Shipper) Publish(doc []byte) {
	u, err := s.target.URI()
	if err != nil {
		s.metrics.Deliveries.WithLabelValues(metrics.OutcomeUnresolved).Inc()
		slog.Error("shipper: cannot resolve delivery uri, dropping event", "err", err)
		return
	}

	id := s.newID()
	s.wg.Add(1)
	s.metrics.InFlight.Inc()
	go func() {
		defer s.wg.Done()
		defer s.metrics.InFlight.Dec()
		s.deliver(u, id, doc)
	}()
}

// Flush blocks until every started delivery has completed or ctx is done.
// It never cancels deliveries.
func (s *Shipper) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliver performs one POST and records its outcome.
func (s *Shipper) deliver(u *url.URL, id string, doc []byte) {
	start := time.Now()
	defer func() {
		s.metrics.DeliveryDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(doc))
	if err != nil {
		s.failed(u, id, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", id)

	resp, err := s.client.Do(req)
	if err != nil {
		s.failed(u, id, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		s.metrics.Deliveries.WithLabelValues(metrics.OutcomeRejected).Inc()
		slog.Error("shipper: endpoint rejected event",
			"status", resp.StatusCode,
			"uri", resp.Request.URL.String(),
			"request_id", id,
			"body", string(body),
		)
		return
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainedBody))
	s.metrics.Deliveries.WithLabelValues(metrics.OutcomeDelivered).Inc()
	slog.Debug("shipper: event delivered", "status", resp.StatusCode, "request_id", id)
}

func (s *Shipper) failed(u *url.URL, id string, err error) {
	s.metrics.Deliveries.WithLabelValues(metrics.OutcomeFailed).Inc()
	slog.Error("shipper: delivery failed",
		"kind", failureKind(err),
		"err", err,
		"uri", u.String(),
		"request_id", id,
	)
}

// failureKind classifies a transport error for logging.
func failureKind(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connect"
	}
	return "transport"
}

// buildHTTPClient constructs the client shared by all deliveries.
func buildHTTPClient(connectTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: connectTimeout,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     idleConnTTL,
	}
	return &http.Client{
		Transport:     transport,
		CheckRedirect: normalRedirect,
	}
}

// normalRedirect follows redirects except from https to http.
func normalRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if via[len(via)-1].URL.Scheme == "https" && req.URL.Scheme == "http" {
		slog.Warn("shipper: not following redirect from https to http",
			"from", via[len(via)-1].URL.String(), "to", req.URL.String())
		return http.ErrUseLastResponse
	}
	return nil
}
