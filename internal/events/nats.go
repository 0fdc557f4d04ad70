package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNATSPublisher connects to url and publishes every event on subject. An
// empty url uses the default local server.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		return nil, errors.New("nats: subject is required")
	}
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, nats.Name("tandem"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("nats: failed to connect to %s: %w", url, err)
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

func (p *NATSPublisher) Name() string {
	return "nats"
}

func (p *NATSPublisher) Publish(ctx context.Context, data []byte) error {
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("nats: failed to publish to %s: %w", p.subject, err)
	}
	return nil
}

// Close flushes pending messages before closing the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
