package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/redis"
)

// CatalogSource supplies the live item list.
type CatalogSource interface {
	Items(ctx context.Context) ([]catalog.Item, error)
}

// SessionStore persists serialized wizard sessions.
type SessionStore interface {
	redis.KV
	WizardSessionKey(sessionID string) string
}

// Session is a stored wizard plus its identifier.
type Session struct {
	ID string `json:"id"`
	State
}

// StartInput picks the entry point. Model pins one catalog entry by exact
// name and wins over Query, which matches names partially.
type StartInput struct {
	Query string
	Model string
	Mode  enums.WizardMode
}

// Service runs wizard sessions whose state lives in redis between requests.
type Service interface {
	Start(ctx context.Context, input StartInput) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Select(ctx context.Context, id, value string) (*Session, error)
	Back(ctx context.Context, id string) (*Session, error)
	Cancel(ctx context.Context, id string) error
	CartLine(ctx context.Context, id string, qty int) (catalog.CartLine, error)
}

type service struct {
	store    SessionStore
	source   CatalogSource
	ttl      time.Duration
	rootOnly bool
	logg     *logger.Logger
}

func NewService(store SessionStore, source CatalogSource, ttl time.Duration, rootOnly bool, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	if source == nil {
		return nil, fmt.Errorf("catalog source required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &service{store: store, source: source, ttl: ttl, rootOnly: rootOnly, logg: logg}, nil
}

func (s *service) Start(ctx context.Context, input StartInput) (*Session, error) {
	mode := input.Mode
	if mode == "" {
		mode = enums.WizardModeFixed
	}
	items, err := s.items(ctx)
	if err != nil {
		return nil, err
	}
	var w *Wizard
	if model := strings.TrimSpace(input.Model); model != "" {
		w, err = StartModel(items, model, mode, s.rootOnly)
	} else {
		w, err = Start(items, strings.TrimSpace(input.Query), mode, s.rootOnly)
	}
	if err != nil {
		return nil, err
	}
	session := &Session{ID: uuid.NewString(), State: w.State()}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithSessionID(ctx, session.ID)
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{"mode": mode, "model": session.Model, "step": session.Step}), "wizard session started")
	}
	return session, nil
}

// Get shows the session against live stock. The stored state is not rewritten.
func (s *service) Get(ctx context.Context, id string) (*Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.items(ctx)
	if err != nil {
		return nil, err
	}
	w := Restore(session.State)
	w.Refresh(items)
	session.State = w.State()
	return session, nil
}

func (s *service) Select(ctx context.Context, id, value string) (*Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.items(ctx)
	if err != nil {
		return nil, err
	}
	w := Restore(session.State)
	w.Refresh(items)
	if err := w.Select(value); err != nil {
		if errors.Is(err, ErrCombinationUnavailable) && s.logg != nil {
			s.logg.Warn(s.logg.WithSessionID(ctx, id), "wizard combination unavailable")
		}
		return nil, err
	}
	session.State = w.State()
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *service) Back(ctx context.Context, id string) (*Session, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	w := Restore(session.State)
	if err := w.Back(); err != nil {
		return nil, err
	}
	session.State = w.State()
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Cancel drops the session. Catalog data is never touched.
func (s *service) Cancel(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.store.Del(ctx, s.store.WizardSessionKey(id)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete wizard session")
	}
	return nil
}

// CartLine checks the resolved item against live stock before handing it off.
func (s *service) CartLine(ctx context.Context, id string, qty int) (catalog.CartLine, error) {
	session, err := s.load(ctx, id)
	if err != nil {
		return catalog.CartLine{}, err
	}
	items, err := s.items(ctx)
	if err != nil {
		return catalog.CartLine{}, err
	}
	w := Restore(session.State)
	w.Refresh(items)
	return w.CartLine(qty)
}

func (s *service) items(ctx context.Context) ([]catalog.Item, error) {
	items, err := s.source.Items(ctx)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog")
	}
	return items, nil
}

func (s *service) load(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid session id")
	}
	raw, err := s.store.Get(ctx, s.store.WizardSessionKey(id))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wizard session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wizard session")
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode wizard session")
	}
	return &Session{ID: id, State: Restore(state).State()}, nil
}

func (s *service) save(ctx context.Context, session *Session) error {
	raw, err := json.Marshal(session.State)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode wizard session")
	}
	if err := s.store.Set(ctx, s.store.WizardSessionKey(session.ID), string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wizard session")
	}
	return nil
}
