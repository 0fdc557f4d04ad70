// Package events streams run and trial events to a message broker.
package events

import (
	"context"
	"fmt"
	"sort"
)

// Publisher delivers one encoded event to a broker.
type Publisher interface {
	Publish(ctx context.Context, data []byte) error
	Close() error
	Name() string
}

// Config is the [events] table of the configuration file.
type Config struct {
	Kind     string `toml:"kind"`
	URL      string `toml:"url"`
	Subject  string `toml:"subject"`
	QueueURL string `toml:"queue_url"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool {
	return c.Kind != ""
}

type PublisherFactory func(ctx context.Context, config Config) (Publisher, error)

var publishers = make(map[string]PublisherFactory)

func RegisterPublisher(kind string, factory PublisherFactory) {
	publishers[kind] = factory
}

// NewPublisher connects the publisher selected by config.Kind.
func NewPublisher(ctx context.Context, config Config) (Publisher, error) {
	factory, ok := publishers[config.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown event publisher: %s (available: %v)", config.Kind, PublisherNames())
	}
	return factory(ctx, config)
}

func PublisherNames() []string {
	names := make([]string, 0, len(publishers))
	for name := range publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterPublisher("nats", func(ctx context.Context, config Config) (Publisher, error) {
		return NewNATSPublisher(config.URL, config.Subject)
	})
	RegisterPublisher("sqs", func(ctx context.Context, config Config) (Publisher, error) {
		return NewSQSPublisher(ctx, config.QueueURL, config.Region, config.Endpoint)
	})
}
