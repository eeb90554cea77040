package items

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-catalog/internal/catalog"
)

// Entry states in the merged draft view.
const (
	StatePersisted = "persisted"
	StateCreated   = "created"
	StateUpdated   = "updated"
)

// StagedItem is one pending create or update. Creates are keyed by a client
// chosen ref; updates use the persisted id as their ref.
type StagedItem struct {
	Ref  string       `json:"ref"`
	Item catalog.Item `json:"item"`
}

// Draft is an owner's uncommitted batch. It lives in redis until committed or
// discarded.
type Draft struct {
	Upserts   []StagedItem `json:"upserts"`
	Deletes   []uuid.UUID  `json:"deletes"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func (d *Draft) Empty() bool {
	return d == nil || (len(d.Upserts) == 0 && len(d.Deletes) == 0)
}

func (d *Draft) stage(staged StagedItem) {
	for i := range d.Upserts {
		if d.Upserts[i].Ref == staged.Ref {
			d.Upserts[i] = staged
			return
		}
	}
	d.Upserts = append(d.Upserts, staged)
}

// unstage drops the staged change for ref, including a pending delete of the
// same id. It reports whether anything was removed.
func (d *Draft) unstage(ref string) bool {
	removed := false
	kept := d.Upserts[:0]
	for _, s := range d.Upserts {
		if s.Ref == ref {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	d.Upserts = kept
	if id, err := uuid.Parse(ref); err == nil {
		deletes := d.Deletes[:0]
		for _, del := range d.Deletes {
			if del == id {
				removed = true
				continue
			}
			deletes = append(deletes, del)
		}
		d.Deletes = deletes
	}
	return removed
}

func (d *Draft) markDeleted(id uuid.UUID) {
	d.unstage(id.String())
	for _, del := range d.Deletes {
		if del == id {
			return
		}
	}
	d.Deletes = append(d.Deletes, id)
}

// MergedEntry is one row of the owner's working view.
type MergedEntry struct {
	Ref         string            `json:"ref"`
	State       string            `json:"state"`
	Item        catalog.Item      `json:"item"`
	Suggestions map[string]string `json:"suggestions,omitempty"`
}

// MergedView is persisted items overlaid with the draft.
type MergedView struct {
	Entries  []MergedEntry       `json:"entries"`
	Deleted  []uuid.UUID         `json:"deleted"`
	Template []catalog.Attribute `json:"template"`
}

// merge applies the draft on top of the persisted list. Persisted order is
// kept, updates replace in place, deletes drop out and creates follow in the
// order they were staged.
func merge(persisted []catalog.Item, draft *Draft) []MergedEntry {
	updates := map[string]catalog.Item{}
	var creates []StagedItem
	for _, s := range draft.Upserts {
		if s.Item.ID == uuid.Nil {
			creates = append(creates, s)
			continue
		}
		updates[s.Item.ID.String()] = s.Item
	}
	deleted := map[uuid.UUID]struct{}{}
	for _, id := range draft.Deletes {
		deleted[id] = struct{}{}
	}

	out := make([]MergedEntry, 0, len(persisted)+len(creates))
	for _, it := range persisted {
		if _, gone := deleted[it.ID]; gone {
			continue
		}
		ref := it.ID.String()
		if updated, ok := updates[ref]; ok {
			out = append(out, MergedEntry{Ref: ref, State: StateUpdated, Item: updated})
			continue
		}
		out = append(out, MergedEntry{Ref: ref, State: StatePersisted, Item: it})
	}
	for _, s := range creates {
		out = append(out, MergedEntry{Ref: s.Ref, State: StateCreated, Item: s.Item})
	}
	return out
}

// suggestions maps each attribute name of a staged item to the closest name
// already used in the live catalog.
func suggestions(it catalog.Item, vocabulary []string) map[string]string {
	var out map[string]string
	for _, attr := range it.Attributes {
		name := strings.TrimSpace(attr.Name)
		if name == "" {
			continue
		}
		if hint, ok := catalog.Suggest(name, vocabulary); ok {
			if out == nil {
				out = map[string]string{}
			}
			out[name] = hint
		}
	}
	return out
}
