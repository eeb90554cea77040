package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-catalog/pkg/config"
)

func TestResourceName(t *testing.T) {
	cases := []struct {
		kind, name, want string
	}{
		{"subscriptions", "sf-catalog-events-sub", "projects/shop-prod/subscriptions/sf-catalog-events-sub"},
		{"subscriptions", "projects/other/subscriptions/x", "projects/other/subscriptions/x"},
		{"topics", " sf-order-events ", "projects/shop-prod/topics/sf-order-events"},
		{"topics", "", ""},
	}
	for _, tc := range cases {
		if got := resourceName("shop-prod", tc.kind, tc.name); got != tc.want {
			t.Fatalf("resourceName(%s, %q) = %q want %q", tc.kind, tc.name, got, tc.want)
		}
	}
	if got := resourceName("", "topics", "t"); got != "" {
		t.Fatalf("expected empty name without project, got %q", got)
	}
}

func TestRequiredResourcesByRole(t *testing.T) {
	cfg := config.PubSubConfig{
		CatalogTopic:        "sf-catalog-events",
		OrdersTopic:         "sf-order-events",
		CatalogSubscription: "sf-catalog-events-sub",
	}

	pub, err := requiredResources("shop", cfg, RolePublisher)
	if err != nil {
		t.Fatalf("publisher resources: %v", err)
	}
	if len(pub) != 2 || pub[0] != "projects/shop/topics/sf-catalog-events" || pub[1] != "projects/shop/topics/sf-order-events" {
		t.Fatalf("unexpected publisher resources %v", pub)
	}

	sub, err := requiredResources("shop", cfg, RoleConsumer)
	if err != nil {
		t.Fatalf("consumer resources: %v", err)
	}
	if len(sub) != 1 || sub[0] != "projects/shop/subscriptions/sf-catalog-events-sub" {
		t.Fatalf("unexpected consumer resources %v", sub)
	}

	cfg.OrdersTopic = " "
	if _, err := requiredResources("shop", cfg, RolePublisher); err == nil {
		t.Fatal("expected error when the orders topic is blank")
	}
	if _, err := requiredResources("shop", config.PubSubConfig{}, RoleConsumer); err == nil {
		t.Fatal("expected error when the subscription is blank")
	}
}

func TestNewClientRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{}, RolePublisher, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "shop"}, config.PubSubConfig{}, Role("admin"), nil); err == nil {
		t.Fatal("expected unknown role error")
	}
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	if c.CatalogSubscription() != nil || c.Publisher("x") != nil {
		t.Fatalf("nil client should return nil handles")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping error on nil client")
	}
}
