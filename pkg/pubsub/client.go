// Package pubsub wraps the Pub/Sub v2 client: startup resource checks, a
// cached publisher per topic and the subscriber receive loop.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/gcp"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

// Role decides which resources must exist before the process starts.
type Role int

const (
	RolePublisher Role = iota
	RoleSubscriber
)

var errClientNotInitialized = errors.New("pubsub client not initialized")

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	role      Role

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	projectID, err := gcp.ProjectID(gcpCfg)
	if err != nil {
		return nil, err
	}
	raw, err := pubsub.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:     raw,
		projectID:  projectID,
		cfg:        cfg,
		role:       role,
		publishers: make(map[string]*pubsub.Publisher),
	}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "project_id", projectID), "pubsub.ready")
	}
	return c, nil
}

// Ping confirms that every resource the role depends on exists. All missing
// resources are reported together.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errClientNotInitialized
	}
	if c.role == RolePublisher {
		return c.checkTopic(ctx, c.cfg.DomainTopic)
	}

	names := subscriptionNames(c.cfg)
	if len(names) == 0 {
		return errors.New("pubsub subscription name is required")
	}
	var errs error
	for _, name := range names {
		errs = multierr.Append(errs, c.checkSubscription(ctx, name))
	}
	return errs
}

func subscriptionNames(cfg config.PubSubConfig) []string {
	var names []string
	for _, name := range []string{cfg.NotificationSubscription, cfg.AnalyticsSubscription} {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (c *Client) checkTopic(ctx context.Context, name string) error {
	full := resourceName(c.projectID, "topics", name)
	if full == "" {
		return errors.New("pubsub domain topic is required")
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	return describeLookup("topic", name, err)
}

func (c *Client) checkSubscription(ctx context.Context, name string) error {
	full := resourceName(c.projectID, "subscriptions", name)
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	return describeLookup("subscription", name, err)
}

func describeLookup(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking %s %q: %w", kind, name, err)
	}
}

// Subscription accepts a short id or a full resource name.
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, "subscriptions", name)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.NotificationSubscription)
}

func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	if c == nil {
		return nil
	}
	return c.Subscription(c.cfg.AnalyticsSubscription)
}

// Publisher returns the shared publisher for a topic, creating it on first
// use. Publishers batch internally and are stopped by Close.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, "topics", name)
	if full == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.publishers[full]; ok {
		return pub
	}
	pub := c.client.Publisher(full)
	c.publishers[full] = pub
	return pub
}

// Close flushes and stops every cached publisher before closing the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for full, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, full)
	}
	c.mu.Unlock()
	return c.client.Close()
}

// resourceName expands a short id into projects/<p>/<kind>/<id>. Full names pass through.
func resourceName(projectID, kind, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/"):
		return name
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return ""
	}
	return "projects/" + projectID + "/" + kind + "/" + name
}
