package hermes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"garagepro/internal/config"
)

// Client is the Hermes NATS messaging client.
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	source string
	logger *slog.Logger
}

// Connect creates a new Hermes client and connects to NATS.
func Connect(cfg config.Hermes, source string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name(source),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("hermes disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("hermes reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("hermes connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("hermes jetstream: %w", err)
	}

	return &Client{
		nc:     nc,
		js:     js,
		source: source,
		logger: logger.With("component", "hermes"),
	}, nil
}

// Source is the name events from this client are stamped with.
func (c *Client) Source() string {
	return c.source
}

// Publish publishes an event to the given subject.
func (c *Client) Publish(subject string, event Event) error {
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return c.nc.Publish(subject, data)
}

// Subscribe subscribes to a subject pattern and calls the handler with the
// concrete subject of each event.
func (c *Client) Subscribe(subject string, handler func(subject string, ev Event)) (*nats.Subscription, error) {
	return c.nc.Subscribe(subject, func(msg *nats.Msg) {
		ev, err := UnmarshalEvent(msg.Data)
		if err != nil {
			c.logger.Error("failed to unmarshal event", "subject", msg.Subject, "error", err)
			return
		}
		handler(msg.Subject, ev)
	})
}

// ProvisionStreams creates or updates all JetStream streams.
func (c *Client) ProvisionStreams(ctx context.Context) error {
	for _, cfg := range StreamConfigs {
		if _, err := c.js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("provision stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// Close drains and closes the NATS connection.
func (c *Client) Close() error {
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}

var (
	_ Publisher  = (*Client)(nil)
	_ Subscriber = (*Client)(nil)
)
