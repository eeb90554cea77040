package routes

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-catalog/internal/cart"
	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	"github.com/angelmondragon/storefront-catalog/internal/checkout"
	"github.com/angelmondragon/storefront-catalog/internal/items"
	"github.com/angelmondragon/storefront-catalog/internal/orders"
	"github.com/angelmondragon/storefront-catalog/internal/wizard"
	pkgAuth "github.com/angelmondragon/storefront-catalog/pkg/auth"
	"github.com/angelmondragon/storefront-catalog/pkg/config"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryRedis struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	return nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryRedis) Ping(context.Context) error {
	return nil
}

func (m *memoryRedis) FixedWindowAllow(context.Context, string, int64, time.Duration) (bool, int64, error) {
	return true, 1, nil
}

type stubCatalog struct{}

func (stubCatalog) Items(context.Context) ([]catalog.Item, error) {
	return []catalog.Item{}, nil
}

type stubWizard struct{ wizard.Service }

type stubCart struct{ cart.Service }

type stubCheckout struct {
	mu    sync.Mutex
	calls int
}

func (s *stubCheckout) PlaceOrder(context.Context, checkout.Input) (*orders.OrderDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return &orders.OrderDTO{ID: uuid.New(), Status: enums.OrderStatusPending}, nil
}

type stubItems struct{ items.Service }

func (stubItems) List(context.Context) ([]catalog.Item, error) {
	return nil, nil
}

type stubOrders struct{ orders.Service }

func (stubOrders) List(context.Context, orders.ListParams) (*orders.ListResult, error) {
	return &orders.ListResult{Orders: []orders.OrderDTO{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		FeatureFlags: config.FeatureFlagsConfig{RootOnlyFacets: true},
	}
}

func newTestRouter(cfg *config.Config, store RedisStore, checkoutSvc checkout.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		store,
		nil,
		nil,
		stubCatalog{},
		stubWizard{},
		stubCart{},
		checkoutSvc,
		stubItems{},
		stubOrders{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.MemberRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthAndCatalogArePublic(t *testing.T) {
	router := newTestRouter(testConfig(), newMemoryRedis(), &stubCheckout{})

	for _, path := range []string{"/health/live", "/health/ready", "/api/v1/catalog/groups", "/api/v1/catalog/facets?root_only=false"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestOwnerRoutesRequireOwnerRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, newMemoryRedis(), &stubCheckout{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/owner/items", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	staff := httptest.NewRequest(http.MethodGet, "/api/v1/owner/items", nil)
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.MemberRoleStaff))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff got %d", resp.Code)
	}

	owner := httptest.NewRequest(http.MethodGet, "/api/v1/owner/items", nil)
	owner.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.MemberRoleOwner))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, owner)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner got %d", resp.Code)
	}
}

func TestStaffWorksOrdersButNotCatalog(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, newMemoryRedis(), &stubCheckout{})
	token := "Bearer " + buildToken(t, cfg, enums.MemberRoleStaff)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/owner/orders", http.StatusOK},
		{http.MethodGet, "/api/v1/owner/drafts", http.StatusForbidden},
		{http.MethodPost, "/api/v1/owner/drafts/commit", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s %s: expected %d got %d", tc.method, tc.path, tc.want, resp.Code)
		}
	}
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	svc := &stubCheckout{}
	router := newTestRouter(testConfig(), newMemoryRedis(), svc)

	body := `{"customer":{"name":"Ana","phone":"555"},"payment":{"method":"cash_pickup"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/cart-1/checkout", bytes.NewBufferString(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key got %d", resp.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("checkout should not run without a key")
	}
}

func TestCheckoutReplayPlacesOneOrder(t *testing.T) {
	svc := &stubCheckout{}
	router := newTestRouter(testConfig(), newMemoryRedis(), svc)

	body := `{"customer":{"name":"Ana","phone":"555"},"payment":{"method":"cash_pickup"}}`
	var first []byte
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/carts/cart-1/checkout", bytes.NewBufferString(body))
		req.Header.Set("Idempotency-Key", "order-attempt-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d", i, resp.Code)
		}
		if i == 0 {
			first = resp.Body.Bytes()
		} else if !bytes.Equal(first, resp.Body.Bytes()) {
			t.Fatalf("replay returned a different body")
		}
	}
	if svc.calls != 1 {
		t.Fatalf("expected one order placed got %d", svc.calls)
	}
}
