// Package pubsub wraps the Pub/Sub v2 client for the storefront's two
// messaging roles: the outbox relay publishing catalog and order events, and
// the catalog worker draining its subscription.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/storefront-catalog/pkg/config"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

// Role decides which resources must exist before a binary starts.
type Role string

const (
	RolePublisher Role = "publisher"
	RoleConsumer  Role = "consumer"
)

var errProjectIDRequired = errors.New("gcp project id is required")

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	role      Role

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects to Pub/Sub and verifies the topics or subscription the
// role depends on. Resources are never created here; missing ones are a
// deployment error.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if role != RolePublisher && role != RoleConsumer {
		return nil, fmt.Errorf("unknown pubsub role %q", role)
	}

	psClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:     psClient,
		projectID:  projectID,
		cfg:        cfg,
		role:       role,
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "pubsub_role", string(role)), "pubsub client initialized")
	}
	return c, nil
}

// requiredResources lists the full resource names the role cannot run without.
func requiredResources(projectID string, cfg config.PubSubConfig, role Role) ([]string, error) {
	var names []string
	switch role {
	case RolePublisher:
		for _, topic := range []string{cfg.CatalogTopic, cfg.OrdersTopic} {
			full := resourceName(projectID, "topics", topic)
			if full == "" {
				return nil, errors.New("catalog and orders topics are required")
			}
			names = append(names, full)
		}
	case RoleConsumer:
		full := resourceName(projectID, "subscriptions", cfg.CatalogSubscription)
		if full == "" {
			return nil, errors.New("catalog subscription is required")
		}
		names = append(names, full)
	}
	return names, nil
}

// Ping checks that every resource the role depends on still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	names, err := requiredResources(c.projectID, c.cfg, c.role)
	if err != nil {
		return err
	}
	for _, name := range names {
		if strings.Contains(name, "/topics/") {
			_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
		} else {
			_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
		}
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s does not exist", name)
		}
		if err != nil {
			return fmt.Errorf("checking %s: %w", name, err)
		}
	}
	return nil
}

// CatalogSubscription returns the subscriber the catalog worker drains.
func (c *Client) CatalogSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, "subscriptions", c.cfg.CatalogSubscription)
	if full == "" {
		return nil
	}
	return c.client.Subscriber(full)
}

// Publisher returns the cached, ordering-enabled publisher for topic. Events
// sharing an aggregate are published under one ordering key, so per-order
// status changes reach consumers in commit order.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := resourceName(c.projectID, "topics", topic)
	if full == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.publishers[full]; ok {
		return p
	}
	p := c.client.Publisher(full)
	p.EnableMessageOrdering = true
	c.publishers[full] = p
	return p
}

// Close flushes pending publishes and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for _, p := range c.publishers {
		p.Stop()
	}
	c.publishers = map[string]*pubsub.Publisher{}
	c.mu.Unlock()
	return c.client.Close()
}

// resourceName expands a short id into projects/<p>/<kind>/<id>. Full names
// pass through unchanged.
func resourceName(projectID, kind, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	if strings.TrimSpace(projectID) == "" {
		return ""
	}
	return "projects/" + strings.TrimSpace(projectID) + "/" + kind + "/" + n
}
