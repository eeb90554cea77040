package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
)

type memoryStore struct {
	data map[string]string
	ttl  map[string]time.Duration
	fail error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if m.fail != nil {
		return "", m.fail
	}
	v, ok := m.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if m.fail != nil {
		return m.fail
	}
	m.data[key] = value.(string)
	m.ttl[key] = ttl
	return nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) WizardSessionKey(id string) string {
	return "sf:wizard:" + id
}

type staticSource struct {
	items []catalog.Item
	err   error
}

func (s *staticSource) Items(context.Context) ([]catalog.Item, error) {
	return s.items, s.err
}

func newTestService(t *testing.T, store *memoryStore, source *staticSource) Service {
	t.Helper()
	svc, err := NewService(store, source, 30*time.Minute, true, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestServiceSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	source := &staticSource{items: runnerCatalog()}
	svc := newTestService(t, store, source)

	session, err := svc.Start(ctx, StartInput{Query: "runner"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Mode != enums.WizardModeFixed {
		t.Fatalf("expected default fixed mode, got %s", session.Mode)
	}
	key := "sf:wizard:" + session.ID
	if _, ok := store.data[key]; !ok {
		t.Fatalf("session not persisted under %s", key)
	}
	if store.ttl[key] != 30*time.Minute {
		t.Fatalf("unexpected ttl %v", store.ttl[key])
	}

	for _, pick := range []string{"Runner", "Red", "US 9"} {
		if session, err = svc.Select(ctx, session.ID, pick); err != nil {
			t.Fatalf("select %s: %v", pick, err)
		}
	}
	if session.Step != StepResolved {
		t.Fatalf("expected resolved, got %s", session.Step)
	}

	line, err := svc.CartLine(ctx, session.ID, 1)
	if err != nil {
		t.Fatalf("cart line: %v", err)
	}
	if line.SelectedOptions["Size"] != "US 9" {
		t.Fatalf("unexpected selected options %v", line.SelectedOptions)
	}

	session, err = svc.Back(ctx, session.ID)
	if err != nil {
		t.Fatalf("back: %v", err)
	}
	if session.Step != StepSizeSelect {
		t.Fatalf("expected size_select after back, got %s", session.Step)
	}

	reloaded, err := svc.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Step != StepSizeSelect {
		t.Fatalf("back was not persisted, got %s", reloaded.Step)
	}

	if err := svc.Cancel(ctx, session.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.Get(ctx, session.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found after cancel, got %v", err)
	}
}

func TestServiceCartLineUsesLiveStock(t *testing.T) {
	ctx := context.Background()
	source := &staticSource{items: runnerCatalog()}
	svc := newTestService(t, newMemoryStore(), source)

	session, err := svc.Start(ctx, StartInput{Query: "sandal"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	source.items[4].Stock = 1

	_, err = svc.CartLine(ctx, session.ID, 2)
	if !pkgerrors.IsCode(err, pkgerrors.CodeQuantityExceedsStock) {
		t.Fatalf("expected quantity error against live stock, got %v", err)
	}
}

func TestServiceStartFromModelSkipsModelStep(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newMemoryStore(), &staticSource{items: runnerCatalog()})

	session, err := svc.Start(ctx, StartInput{Query: "runner", Model: "Runner"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.Step != StepVisualSelect || session.Model != "Runner" {
		t.Fatalf("expected visual_select for Runner, got %s model=%q", session.Step, session.Model)
	}
	for _, c := range session.Candidates {
		if c.Name != "Runner" {
			t.Fatalf("unexpected candidate %q", c.Name)
		}
	}
}

func TestServiceGetShowsRestockedOptions(t *testing.T) {
	ctx := context.Background()
	source := &staticSource{items: runnerCatalog()}
	svc := newTestService(t, newMemoryStore(), source)

	session, err := svc.Start(ctx, StartInput{Model: "Runner"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session, err = svc.Select(ctx, session.ID, "Red"); err != nil {
		t.Fatalf("select red: %v", err)
	}
	source.items[1].Stock = 4

	current, err := svc.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	for _, opt := range current.Options {
		if opt.Value == "US 10" && opt.Disabled {
			t.Fatalf("restocked size still disabled: %+v", opt)
		}
	}
	if current, err = svc.Select(ctx, session.ID, "US 10"); err != nil {
		t.Fatalf("select restocked size: %v", err)
	}
	if current.Step != StepResolved || current.Resolved.ID != source.items[1].ID {
		t.Fatalf("expected US 10 to resolve, got %s", current.Step)
	}
}

func TestServiceErrors(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	source := &staticSource{items: runnerCatalog()}
	svc := newTestService(t, store, source)

	if _, err := svc.Get(ctx, "not-a-uuid"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Select(ctx, uuid.NewString(), "x"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	source.err = errors.New("redis down")
	if _, err := svc.Start(ctx, StartInput{Query: "runner"}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	source.err = nil
	store.fail = errors.New("connection refused")
	if _, err := svc.Start(ctx, StartInput{Query: "runner"}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error on save, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, &staticSource{}, time.Minute, false, nil); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewService(newMemoryStore(), nil, time.Minute, false, nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewService(newMemoryStore(), &staticSource{}, 0, false, nil); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}
