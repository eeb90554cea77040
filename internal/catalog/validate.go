package catalog

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// FieldError pins a validation failure to an item reference and field.
type FieldError struct {
	Ref     string `json:"ref"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", e.Ref, e.Field, e.Message)
}

// ValidateItem checks the invariants an item must hold before it is saved.
// All failures are returned together.
func ValidateItem(ref string, it Item) error {
	var err error
	if strings.TrimSpace(it.Name) == "" {
		err = multierr.Append(err, &FieldError{Ref: ref, Field: "name", Message: "is required"})
	}
	if it.Price.IsNegative() {
		err = multierr.Append(err, &FieldError{Ref: ref, Field: "price", Message: "must be >= 0"})
	}
	if it.Stock < 0 {
		err = multierr.Append(err, &FieldError{Ref: ref, Field: "stock", Message: "must be >= 0"})
	}
	for i, m := range it.Media {
		if !m.Kind.IsValid() {
			err = multierr.Append(err, &FieldError{Ref: ref, Field: fmt.Sprintf("media[%d].kind", i), Message: "must be image or video"})
		}
	}

	names := map[string]int{}
	leads := 0
	for i, attr := range it.Attributes {
		field := fmt.Sprintf("attributes[%d]", i)
		key := Normalize(attr.Name)
		if key == "" {
			err = multierr.Append(err, &FieldError{Ref: ref, Field: field + ".name", Message: "is required"})
			continue
		}
		if prev, dup := names[key]; dup {
			err = multierr.Append(err, &FieldError{Ref: ref, Field: field + ".name", Message: fmt.Sprintf("duplicates attributes[%d]", prev)})
		} else {
			names[key] = i
		}
		if attr.IsCategory && Normalize(attr.FirstValue()) == "" {
			err = multierr.Append(err, &FieldError{Ref: ref, Field: field + ".values", Message: "category attribute needs a value"})
		}
		if attr.IsLead {
			leads++
			if i != 0 {
				err = multierr.Append(err, &FieldError{Ref: ref, Field: field, Message: "lead attribute must come first"})
			}
			if !attr.IsCategory {
				err = multierr.Append(err, &FieldError{Ref: ref, Field: field, Message: "lead attribute must be a category"})
			}
		}
	}
	if leads > 1 {
		err = multierr.Append(err, &FieldError{Ref: ref, Field: "attributes", Message: "at most one lead attribute is allowed"})
	}
	return err
}

// ValidateAlignment requires items that share a display group to list the same
// attribute names at the same positions, so the group representative covers
// every variant attribute. refs is parallel to items.
func ValidateAlignment(refs []string, items []Item) error {
	type first struct {
		ref   string
		names []string
	}
	var err error
	byKey := map[string]first{}
	for i, it := range items {
		names := make([]string, len(it.Attributes))
		for j, attr := range it.Attributes {
			names[j] = Normalize(attr.Name)
		}
		key := GroupKey(it)
		head, ok := byKey[key]
		if !ok {
			byKey[key] = first{ref: refs[i], names: names}
			continue
		}
		if !sameNames(head.names, names) {
			err = multierr.Append(err, &FieldError{
				Ref:     refs[i],
				Field:   "attributes",
				Message: fmt.Sprintf("must match the attribute order of %s (%s)", head.ref, strings.Join(head.names, ", ")),
			})
		}
	}
	return err
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FieldErrors flattens a validation error into its field errors.
func FieldErrors(err error) []*FieldError {
	out := []*FieldError{}
	for _, e := range multierr.Errors(err) {
		if fe, ok := e.(*FieldError); ok {
			out = append(out, fe)
		}
	}
	return out
}
