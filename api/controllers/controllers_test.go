package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-catalog/api/middleware"
	"github.com/angelmondragon/storefront-catalog/internal/cart"
	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	"github.com/angelmondragon/storefront-catalog/internal/checkout"
	"github.com/angelmondragon/storefront-catalog/internal/items"
	"github.com/angelmondragon/storefront-catalog/internal/orders"
	"github.com/angelmondragon/storefront-catalog/internal/wizard"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox"
	"github.com/angelmondragon/storefront-catalog/pkg/types"
)

type staticCatalog struct {
	items []catalog.Item
	err   error
}

func (s staticCatalog) Items(context.Context) ([]catalog.Item, error) { return s.items, s.err }

func sampleItems() []catalog.Item {
	return []catalog.Item{
		{
			ID:    uuid.New(),
			Name:  "Trail Tee",
			Price: decimal.RequireFromString("20"),
			Stock: 3, TracksStock: true,
			Attributes: []catalog.Attribute{
				{Name: "Type", Values: []string{"Shirt"}, IsCategory: true, IsLead: true},
				{Name: "Color", Values: []string{"Red"}},
			},
		},
	}
}

func decodeError(t *testing.T, body *bytes.Buffer) types.APIError {
	t.Helper()
	var env types.ErrorEnvelope
	if err := json.Unmarshal(body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error
}

func withParams(req *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCatalogSuggestRequiresName(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/suggest", nil)
	resp := httptest.NewRecorder()
	CatalogSuggest(staticCatalog{items: sampleItems()}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if code := decodeError(t, resp.Body).Code; code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestCatalogSuggestFindsClosestName(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/suggest?name=colr", nil)
	resp := httptest.NewRecorder()
	CatalogSuggest(staticCatalog{items: sampleItems()}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var env struct {
		Data suggestResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Data.Found || env.Data.Suggestion != "Color" {
		t.Fatalf("unexpected suggestion %+v", env.Data)
	}
}

func TestCatalogDictionaryReportsLeadCategory(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/dictionary", nil)
	resp := httptest.NewRecorder()
	CatalogDictionary(staticCatalog{items: sampleItems()}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var env struct {
		Data dictionaryResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data.Attributes) != 2 {
		t.Fatalf("expected 2 attributes got %d", len(env.Data.Attributes))
	}
	if env.Data.LeadCategory == nil || env.Data.LeadCategory.Name != "Type" {
		t.Fatalf("unexpected lead category %+v", env.Data.LeadCategory)
	}
}

func TestCatalogSourceFailureIsDependencyError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/groups", nil)
	resp := httptest.NewRecorder()
	CatalogGroups(staticCatalog{err: errors.New("redis down")}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

type stubWizard struct {
	wizard.Service
	started wizard.StartInput
	line    catalog.CartLine
	lineErr error
}

func (s *stubWizard) Start(_ context.Context, input wizard.StartInput) (*wizard.Session, error) {
	s.started = input
	return &wizard.Session{ID: "wiz-1"}, nil
}

func (s *stubWizard) CartLine(context.Context, string, int) (catalog.CartLine, error) {
	return s.line, s.lineErr
}

type stubCarts struct {
	cart.Service
	created int
	addedTo string
}

func (s *stubCarts) Create(context.Context) (*cart.Cart, error) {
	s.created++
	return &cart.Cart{ID: "cart-new"}, nil
}

func (s *stubCarts) AddLine(_ context.Context, cartID string, line catalog.CartLine) (*cart.Cart, error) {
	s.addedTo = cartID
	return &cart.Cart{ID: cartID, Lines: []cart.Line{{ID: "l1", CartLine: line}}}, nil
}

func TestWizardStartPassesModelAndQuery(t *testing.T) {
	svc := &stubWizard{}
	body := bytes.NewBufferString(`{"query":"tee","model":"Trail Tee","mode":"facet"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wizard/sessions", body)
	resp := httptest.NewRecorder()
	WizardStart(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.started.Model != "Trail Tee" || svc.started.Query != "tee" || svc.started.Mode != enums.WizardModeFacet {
		t.Fatalf("unexpected start input %+v", svc.started)
	}
}

func TestWizardStartRejectsUnknownMode(t *testing.T) {
	body := bytes.NewBufferString(`{"query":"tee","mode":"spiral"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wizard/sessions", body)
	resp := httptest.NewRecorder()
	WizardStart(&stubWizard{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestWizardAddToCartOpensCartWhenMissing(t *testing.T) {
	line := catalog.CartLine{ItemID: uuid.New(), Name: "Trail Tee", UnitPrice: decimal.RequireFromString("20"), Quantity: 2}
	carts := &stubCarts{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/wizard/sessions/wiz-1/cart", bytes.NewBufferString(`{"quantity":2}`))
	req = withParams(req, "sessionId", "wiz-1")
	resp := httptest.NewRecorder()
	WizardAddToCart(&stubWizard{line: line}, carts, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if carts.created != 1 || carts.addedTo != "cart-new" {
		t.Fatalf("expected a new cart, created=%d addedTo=%s", carts.created, carts.addedTo)
	}
	var env struct {
		Data cartResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Total != "40.00" || env.Data.ItemCount != 2 {
		t.Fatalf("unexpected cart summary %+v", env.Data)
	}
}

func TestWizardAddToCartSurfacesStockConflict(t *testing.T) {
	svc := &stubWizard{lineErr: pkgerrors.New(pkgerrors.CodeQuantityExceedsStock, "only 1 left")}
	carts := &stubCarts{}
	req := httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`{"cartId":"cart-1","quantity":5}`))
	req = withParams(req, "sessionId", "wiz-1")
	resp := httptest.NewRecorder()
	WizardAddToCart(svc, carts, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if carts.addedTo != "" {
		t.Fatalf("cart should not be touched")
	}
}

type stubCheckout struct {
	input checkout.Input
}

func (s *stubCheckout) PlaceOrder(_ context.Context, input checkout.Input) (*orders.OrderDTO, error) {
	s.input = input
	return &orders.OrderDTO{ID: uuid.New(), Status: enums.OrderStatusPending}, nil
}

func TestCartCheckoutMapsPayload(t *testing.T) {
	svc := &stubCheckout{}
	body := bytes.NewBufferString(`{"customer":{"name":"Ana","phone":"555-0100"},"payment":{"method":"card","authorized":true,"transactionId":"tx-9"}}`)
	req := withParams(httptest.NewRequest(http.MethodPost, "/x", body), "cartId", "cart-1")
	resp := httptest.NewRecorder()
	CartCheckout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.CartID != "cart-1" || svc.input.Payment.Method != enums.PaymentMethodCard || svc.input.Payment.TransactionID != "tx-9" {
		t.Fatalf("unexpected checkout input %+v", svc.input)
	}
}

func TestCartCheckoutValidatesCustomer(t *testing.T) {
	body := bytes.NewBufferString(`{"customer":{"name":""},"payment":{"method":"barter"}}`)
	req := withParams(httptest.NewRequest(http.MethodPost, "/x", body), "cartId", "cart-1")
	resp := httptest.NewRecorder()
	CartCheckout(&stubCheckout{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

type stubItems struct {
	items.Service
	owner uuid.UUID
}

func (s *stubItems) View(_ context.Context, ownerID uuid.UUID) (*items.MergedView, error) {
	s.owner = ownerID
	return &items.MergedView{}, nil
}

func TestOwnerDraftViewRequiresOwnerContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/owner/drafts", nil)
	resp := httptest.NewRecorder()
	OwnerDraftView(&stubItems{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestOwnerDraftViewUsesAuthenticatedOwner(t *testing.T) {
	owner := uuid.New()
	svc := &stubItems{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/owner/drafts", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), owner.String()))
	resp := httptest.NewRecorder()
	OwnerDraftView(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.owner != owner {
		t.Fatalf("expected owner %s got %s", owner, svc.owner)
	}
}

type stubOrders struct {
	orders.Service
	params orders.ListParams
	actor  outbox.ActorRef
	picked uuid.UUID
}

func (s *stubOrders) List(_ context.Context, params orders.ListParams) (*orders.ListResult, error) {
	s.params = params
	return &orders.ListResult{}, nil
}

func (s *stubOrders) Pickup(_ context.Context, actor outbox.ActorRef, id uuid.UUID) error {
	s.actor = actor
	s.picked = id
	return nil
}

func TestOwnerOrdersListParsesFilters(t *testing.T) {
	svc := &stubOrders{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/owner/orders?status=done&limit=10", nil)
	resp := httptest.NewRecorder()
	OwnerOrdersList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.params.Status != enums.OrderStatusDone || svc.params.Limit != 10 {
		t.Fatalf("unexpected params %+v", svc.params)
	}
}

func TestOwnerOrdersListRejectsUnknownStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/owner/orders?status=lost", nil)
	resp := httptest.NewRecorder()
	OwnerOrdersList(&stubOrders{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOwnerOrderPickupPassesActor(t *testing.T) {
	svc := &stubOrders{}
	orderID := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/x", nil)
	req = withParams(req, "orderId", orderID.String())
	ctx := middleware.WithRole(middleware.WithUserID(req.Context(), "owner-1"), string(enums.MemberRoleOwner))
	resp := httptest.NewRecorder()
	OwnerOrderPickup(svc, nil).ServeHTTP(resp, req.WithContext(ctx))

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if svc.picked != orderID || svc.actor.UserID != "owner-1" || svc.actor.Role != "owner" {
		t.Fatalf("unexpected pickup call %+v %s", svc.actor, svc.picked)
	}
}
