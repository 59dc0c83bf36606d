package events

import (
	"errors"
	"fmt"
	"time"

	"dataset-service/internal/utils"

	"github.com/nats-io/nats.go"
)

// Config holds NATS connection configuration
type Config struct {
	URL           string
	Stream        string
	Subject       string
	ReconnectWait time.Duration
}

// Client wraps the NATS connection and JetStream context
type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	config Config
}

// NewClient connects to NATS and makes sure the dataset event stream exists.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	log := utils.Log.Component("events", "")

	opts := []nats.Option{
		nats.Name("dataset-service"),
		nats.Timeout(10 * time.Second),
		nats.MaxReconnects(5),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	client := &Client{conn: conn, js: js, config: cfg}
	if err := client.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	log.WithField("url", cfg.URL).Info("Connected to NATS")
	return client, nil
}

// Close drains and closes the NATS connection
func (c *Client) Close() {
	if c == nil || c.conn == nil {
		return
	}
	_ = c.conn.Drain()
	c.conn.Close()
}

// IsConnected returns true if connected to NATS
func (c *Client) IsConnected() bool {
	return c != nil && c.conn != nil && c.conn.IsConnected()
}

// ensureStream creates the dataset event stream if it doesn't exist
func (c *Client) ensureStream() error {
	streamCfg := nats.StreamConfig{
		Name:        c.config.Stream,
		Description: "Dataset generation and validation events",
		Subjects:    []string{c.config.Subject + ".>"},
		Storage:     nats.FileStorage,
		Retention:   nats.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Discard:     nats.DiscardOld,
		Replicas:    1,
	}

	_, err := c.js.StreamInfo(streamCfg.Name)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, err := c.js.AddStream(&streamCfg); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", streamCfg.Name, err)
		}
	case err != nil:
		return fmt.Errorf("failed to check stream %s: %w", streamCfg.Name, err)
	}
	return nil
}
