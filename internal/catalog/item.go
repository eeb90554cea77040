// Package catalog holds the pure catalog engine: attribute dictionary, typo
// suggestions, display grouping, facet selection and save-time validation.
// Nothing in this package performs I/O.
package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-catalog/pkg/enums"
)

// Attribute is an owner-authored descriptor on an item. Concrete items carry a
// single value; display groups merge several values for presentation.
type Attribute struct {
	Name       string   `json:"name" yaml:"name"`
	Values     []string `json:"values" yaml:"values"`
	IsCategory bool     `json:"isCategory" yaml:"category"`
	IsLead     bool     `json:"isLead" yaml:"lead"`
}

// FirstValue returns the attribute's first value or "".
func (a Attribute) FirstValue() string {
	if len(a.Values) == 0 {
		return ""
	}
	return a.Values[0]
}

type Media struct {
	Kind enums.MediaKind `json:"kind" yaml:"kind"`
	URL  string          `json:"url" yaml:"url"`
}

// Item is a sellable catalog entry. ID is uuid.Nil for unsaved drafts.
type Item struct {
	ID           uuid.UUID       `json:"id" yaml:"id"`
	Name         string          `json:"name" yaml:"name"`
	Description  string          `json:"description" yaml:"description"`
	Price        decimal.Decimal `json:"price" yaml:"price"`
	PrimaryImage string          `json:"primaryImage" yaml:"image"`
	Media        []Media         `json:"media,omitempty" yaml:"media"`
	Stock        int             `json:"stock" yaml:"stock"`
	TracksStock  bool            `json:"tracksStock" yaml:"tracksStock"`
	Attributes   []Attribute     `json:"attributes" yaml:"attributes"`
}

// Normalize lower-cases, trims and collapses inner whitespace. Every name,
// value and image comparison in the catalog goes through it.
func Normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Purchasable reports whether the item can currently be sold.
func (it Item) Purchasable() bool {
	return !it.TracksStock || it.Stock > 0
}

// DisplayImage is the primary image, falling back to the first gallery image.
func (it Item) DisplayImage() string {
	if strings.TrimSpace(it.PrimaryImage) != "" {
		return it.PrimaryImage
	}
	for _, m := range it.Media {
		if m.Kind == enums.MediaKindImage && strings.TrimSpace(m.URL) != "" {
			return m.URL
		}
	}
	return ""
}

// Attribute looks up an attribute by normalized name.
func (it Item) Attribute(name string) (Attribute, int, bool) {
	key := Normalize(name)
	for i, attr := range it.Attributes {
		if Normalize(attr.Name) == key {
			return attr, i, true
		}
	}
	return Attribute{}, -1, false
}

// HasValue reports whether the named attribute holds value (normalized comparison).
func (it Item) HasValue(name, value string) bool {
	attr, _, ok := it.Attribute(name)
	if !ok {
		return false
	}
	want := Normalize(value)
	for _, v := range attr.Values {
		if Normalize(v) == want {
			return true
		}
	}
	return false
}

// Clone deep-copies attribute and media slices.
func (it Item) Clone() Item {
	out := it
	if it.Media != nil {
		out.Media = append([]Media(nil), it.Media...)
	}
	if it.Attributes != nil {
		out.Attributes = make([]Attribute, len(it.Attributes))
		for i, attr := range it.Attributes {
			attr.Values = append([]string(nil), attr.Values...)
			out.Attributes[i] = attr
		}
	}
	return out
}

// Purchasable filters items down to those that can be sold right now.
func Purchasable(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Purchasable() {
			out = append(out, it)
		}
	}
	return out
}

// SearchByName returns items whose name contains query, case-insensitively.
// An empty query matches everything.
func SearchByName(items []Item, query string) []Item {
	q := Normalize(query)
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if q == "" || strings.Contains(Normalize(it.Name), q) {
			out = append(out, it)
		}
	}
	return out
}

// DistinctNames lists the distinct item names in first-seen order.
func DistinctNames(items []Item) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, it := range items {
		key := Normalize(it.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it.Name)
	}
	return out
}

func appendDistinct(values []string, seen map[string]struct{}, v string) []string {
	key := Normalize(v)
	if key == "" {
		return values
	}
	if _, ok := seen[key]; ok {
		return values
	}
	seen[key] = struct{}{}
	return append(values, v)
}
