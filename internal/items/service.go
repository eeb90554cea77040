// Package items owns catalog persistence and the owner's draft-then-commit
// editing flow.
package items

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-catalog/pkg/redis"
)

// DraftStore persists serialized drafts per owner.
type DraftStore interface {
	redis.KV
	DraftKey(ownerID string) string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Invalidator drops cached copies of the catalog after a commit.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// CommitResult reconciles draft refs with the ids assigned on commit.
type CommitResult struct {
	Created map[string]uuid.UUID `json:"created"`
	Updated []uuid.UUID          `json:"updated"`
	Deleted []uuid.UUID          `json:"deleted"`
}

// Service exposes the live item list and the owner editing flow.
type Service interface {
	List(ctx context.Context) ([]catalog.Item, error)
	Get(ctx context.Context, id uuid.UUID) (catalog.Item, error)
	View(ctx context.Context, ownerID uuid.UUID) (*MergedView, error)
	Stage(ctx context.Context, ownerID uuid.UUID, staged StagedItem) (*MergedView, error)
	StageDelete(ctx context.Context, ownerID, itemID uuid.UUID) (*MergedView, error)
	Discard(ctx context.Context, ownerID uuid.UUID, ref string) (*MergedView, error)
	DiscardAll(ctx context.Context, ownerID uuid.UUID) error
	Commit(ctx context.Context, ownerID uuid.UUID) (*CommitResult, error)
}

type service struct {
	repo        *Repository
	tx          txRunner
	drafts      DraftStore
	emitter     outbox.Emitter
	invalidator Invalidator
	draftTTL    time.Duration
	logg        *logger.Logger
}

func NewService(repo *Repository, tx txRunner, drafts DraftStore, emitter outbox.Emitter, invalidator Invalidator, draftTTL time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if drafts == nil {
		return nil, fmt.Errorf("draft store required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if draftTTL <= 0 {
		return nil, fmt.Errorf("draft ttl must be positive")
	}
	return &service{
		repo:        repo,
		tx:          tx,
		drafts:      drafts,
		emitter:     emitter,
		invalidator: invalidator,
		draftTTL:    draftTTL,
		logg:        logg,
	}, nil
}

func (s *service) List(ctx context.Context) ([]catalog.Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	return items, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (catalog.Item, error) {
	it, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return catalog.Item{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "item not found")
		}
		return catalog.Item{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return it, nil
}

func (s *service) View(ctx context.Context, ownerID uuid.UUID) (*MergedView, error) {
	draft, err := s.loadDraft(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, draft)
}

func (s *service) Stage(ctx context.Context, ownerID uuid.UUID, staged StagedItem) (*MergedView, error) {
	staged.Ref = strings.TrimSpace(staged.Ref)
	if staged.Item.ID != uuid.Nil {
		staged.Ref = staged.Item.ID.String()
	}
	if staged.Ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ref is required for new items")
	}
	if staged.Item.ID == uuid.Nil {
		if _, err := uuid.Parse(staged.Ref); err == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ref for a new item must not be an item id")
		}
	}
	staged.Item = staged.Item.Clone()

	draft, err := s.loadDraft(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	draft.stage(staged)
	if err := s.saveDraft(ctx, ownerID, draft); err != nil {
		return nil, err
	}
	return s.view(ctx, draft)
}

func (s *service) StageDelete(ctx context.Context, ownerID, itemID uuid.UUID) (*MergedView, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	draft, err := s.loadDraft(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	draft.markDeleted(itemID)
	if err := s.saveDraft(ctx, ownerID, draft); err != nil {
		return nil, err
	}
	return s.view(ctx, draft)
}

func (s *service) Discard(ctx context.Context, ownerID uuid.UUID, ref string) (*MergedView, error) {
	draft, err := s.loadDraft(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !draft.unstage(strings.TrimSpace(ref)) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no staged change for ref").
			WithDetails(map[string]any{"ref": ref})
	}
	if err := s.saveDraft(ctx, ownerID, draft); err != nil {
		return nil, err
	}
	return s.view(ctx, draft)
}

func (s *service) DiscardAll(ctx context.Context, ownerID uuid.UUID) error {
	if err := s.drafts.Del(ctx, s.drafts.DraftKey(ownerID.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "discard draft")
	}
	return nil
}

// Commit validates the whole draft against the live catalog and applies it in
// one transaction. Nothing is written when any check fails.
func (s *service) Commit(ctx context.Context, ownerID uuid.UUID) (*CommitResult, error) {
	draft, err := s.loadDraft(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if draft.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft has no staged changes")
	}
	persisted, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateDraft(persisted, draft); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "draft failed validation").
			WithDetails(map[string]any{"fields": catalog.FieldErrors(err)})
	}

	result := &CommitResult{Created: map[string]uuid.UUID{}, Updated: []uuid.UUID{}, Deleted: []uuid.UUID{}}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, id := range draft.Deletes {
			if err := repo.Delete(ctx, id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			result.Deleted = append(result.Deleted, id)
		}
		for _, staged := range draft.Upserts {
			if staged.Item.ID != uuid.Nil {
				if err := repo.Update(ctx, staged.Item); err != nil {
					return fmt.Errorf("update %s: %w", staged.Ref, err)
				}
				result.Updated = append(result.Updated, staged.Item.ID)
				continue
			}
			id, err := repo.Create(ctx, staged.Item)
			if err != nil {
				return fmt.Errorf("create %s: %w", staged.Ref, err)
			}
			result.Created[staged.Ref] = id
		}
		created := make([]uuid.UUID, 0, len(result.Created))
		for _, staged := range draft.Upserts {
			if id, ok := result.Created[staged.Ref]; ok {
				created = append(created, id)
			}
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCatalogChanged,
			AggregateType: enums.AggregateCatalog,
			AggregateID:   uuid.New(),
			Actor:         &outbox.ActorRef{UserID: ownerID.String(), Role: string(enums.MemberRoleOwner)},
			Data: payloads.CatalogChangedEvent{
				Created: created,
				Updated: result.Updated,
				Deleted: result.Deleted,
			},
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "item changed while committing draft")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit draft")
	}

	if err := s.DiscardAll(ctx, ownerID); err != nil && s.logg != nil {
		s.logg.Error(ctx, "failed to clear committed draft", err)
	}
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil && s.logg != nil {
			s.logg.Error(ctx, "failed to invalidate catalog snapshot", err)
		}
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, ownerID.String()), map[string]any{
			"created": len(result.Created),
			"updated": len(result.Updated),
			"deleted": len(result.Deleted),
		})
		s.logg.Info(logCtx, "catalog draft committed")
	}
	return result, nil
}

// validateDraft runs item checks on every staged item, confirms update and
// delete targets exist and checks display group alignment over the catalog
// as it would look after commit.
func validateDraft(persisted []catalog.Item, draft *Draft) error {
	known := make(map[uuid.UUID]struct{}, len(persisted))
	for _, it := range persisted {
		known[it.ID] = struct{}{}
	}

	var err error
	for _, staged := range draft.Upserts {
		if staged.Item.ID != uuid.Nil {
			if _, ok := known[staged.Item.ID]; !ok {
				err = multierr.Append(err, &catalog.FieldError{Ref: staged.Ref, Field: "id", Message: "does not exist"})
			}
		}
		err = multierr.Append(err, catalog.ValidateItem(staged.Ref, staged.Item))
	}
	for _, id := range draft.Deletes {
		if _, ok := known[id]; !ok {
			err = multierr.Append(err, &catalog.FieldError{Ref: id.String(), Field: "id", Message: "does not exist"})
		}
	}

	entries := merge(persisted, draft)
	refs := make([]string, len(entries))
	after := make([]catalog.Item, len(entries))
	for i, e := range entries {
		refs[i] = e.Ref
		after[i] = e.Item
	}
	return multierr.Append(err, catalog.ValidateAlignment(refs, after))
}

func (s *service) view(ctx context.Context, draft *Draft) (*MergedView, error) {
	persisted, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	dict := catalog.BuildDictionary(persisted)
	vocabulary := dict.Vocabulary()
	entries := merge(persisted, draft)
	for i := range entries {
		if entries[i].State == StatePersisted {
			continue
		}
		entries[i].Suggestions = suggestions(entries[i].Item, vocabulary)
	}
	deleted := append([]uuid.UUID{}, draft.Deletes...)
	return &MergedView{Entries: entries, Deleted: deleted, Template: dict.Template()}, nil
}

func (s *service) loadDraft(ctx context.Context, ownerID uuid.UUID) (*Draft, error) {
	raw, err := s.drafts.Get(ctx, s.drafts.DraftKey(ownerID.String()))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return &Draft{Upserts: []StagedItem{}, Deletes: []uuid.UUID{}}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	var draft Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode draft")
	}
	return &draft, nil
}

func (s *service) saveDraft(ctx context.Context, ownerID uuid.UUID, draft *Draft) error {
	draft.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(draft)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode draft")
	}
	if err := s.drafts.Set(ctx, s.drafts.DraftKey(ownerID.String()), string(payload), s.draftTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save draft")
	}
	return nil
}
