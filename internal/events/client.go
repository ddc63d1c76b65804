// Package events publishes generation audit events to PostHog. The
// integration is optional: with no API key configured every publish is a
// no-op, so a bare deployment runs without an analytics endpoint.
package events

import (
	"log"

	"github.com/posthog/posthog-go"

	"github.com/abarak-biu/tf-encrypted/internal/config"
	"github.com/abarak-biu/tf-encrypted/internal/models"
)

var defaultClient *Client

// Client wraps the PostHog SDK client. A nil inner client disables capture.
type Client struct {
	ph posthog.Client
}

// NewClient constructs a client from AppConfig. It does not fail if the API
// key is missing; it returns a disabled client instead.
func NewClient(cfg *config.AppConfig) (*Client, error) {
	if cfg.PosthogAPIKey == "" {
		return &Client{}, nil
	}
	var conf posthog.Config
	if cfg.PosthogEndpoint != "" {
		conf.Endpoint = cfg.PosthogEndpoint
	}
	ph, err := posthog.NewWithConfig(cfg.PosthogAPIKey, conf)
	if err != nil {
		return nil, err
	}
	return &Client{ph: ph}, nil
}

// Close flushes queued events.
func (c *Client) Close() {
	if c.ph == nil {
		return
	}
	if err := c.ph.Close(); err != nil {
		log.Printf("events: close: %v", err)
	}
}

// PublishGeneration enqueues a tensor_generated event. Seed material never
// leaves the process; only the fingerprint-free audit fields are captured.
func (c *Client) PublishGeneration(g *models.Generation) {
	if c.ph == nil {
		return
	}
	err := c.ph.Enqueue(posthog.Capture{
		DistinctId: g.AdminUserID.String(),
		Event:      "tensor_generated",
		Properties: posthog.NewProperties().
			Set("generation_id", g.ID.String()).
			Set("dtype", string(g.DType)).
			Set("element_count", g.ElementCount).
			Set("checksum", g.Checksum).
			Set("is_replay", g.IsReplay),
	})
	if err != nil {
		log.Printf("events: enqueue failed: %v", err)
	}
}

// Init builds the package-level client used by the handlers.
func Init(cfg *config.AppConfig) error {
	c, err := NewClient(cfg)
	if err != nil {
		return err
	}
	defaultClient = c
	return nil
}

// PublishGeneration forwards to the package-level client, if initialized.
func PublishGeneration(g *models.Generation) {
	if defaultClient != nil {
		defaultClient.PublishGeneration(g)
	}
}

// Close flushes the package-level client.
func Close() {
	if defaultClient != nil {
		defaultClient.Close()
	}
}
