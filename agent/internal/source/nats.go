package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// natsBuffer is the pending message capacity of the subscription channel.
const natsBuffer = 1024

// subscriber is the part of a NATS connection the stream needs.
type subscriber interface {
	subscribe(subject string, ch chan *nats.Msg) (unsubscribe func() error, err error)
	close()
}

// NATSStream receives one raw event per message on a NATS subject.
type NATSStream struct {
	dispatcher

	url     string
	subject string
	dial    func(url string) (subscriber, error) // injectable for tests

	once sync.Once
	done chan struct{}
}

// NewNATS returns a stream subscribed to subject on the server at url.
// An empty url means nats.DefaultURL.
func NewNATS(url, subject string) *NATSStream {
	if url == "" {
		url = nats.DefaultURL
	}
	return &NATSStream{url: url, subject: subject, dial: dialNATS, done: make(chan struct{})}
}

func (s *NATSStream) Name() string { return "nats:" + s.subject }

func (s *NATSStream) Start(ctx context.Context) error {
	conn, err := s.dial(s.url)
	if err != nil {
		return fmt.Errorf("source: nats: connect %s: %w", s.url, err)
	}
	defer conn.close()

	ch := make(chan *nats.Msg, natsBuffer)
	unsubscribe, err := conn.subscribe(s.subject, ch)
	if err != nil {
		return fmt.Errorf("source: nats: subscribe %q: %w", s.subject, err)
	}
	defer func() {
		if err := unsubscribe(); err != nil {
			slog.Warn("source: nats unsubscribe failed", "subject", s.subject, "err", err)
		}
	}()

	slog.Info("source: subscribed", "url", s.url, "subject", s.subject)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case msg := <-ch:
			s.dispatch(s.Name(), msg.Data)
		}
	}
}

func (s *NATSStream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// natsConn adapts *nats.Conn to subscriber.
type natsConn struct {
	*nats.Conn
}

func (c natsConn) subscribe(subject string, ch chan *nats.Msg) (func() error, error) {
	sub, err := c.ChanSubscribe(subject, ch)
	if err != nil {
		return nil, err
	}
	return sub.Unsubscribe, nil
}

func (c natsConn) close() { c.Conn.Close() }

func dialNATS(url string) (subscriber, error) {
	nc, err := nats.Connect(url,
		nats.Name("gcshipper"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("source: nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("source: nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			slog.Error("source: nats async error", "subject", subject, "err", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return natsConn{nc}, nil
}
