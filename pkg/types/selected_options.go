package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SelectedOptions maps an attribute name to the value the shopper picked for it.
// Stored as jsonb on order lines.
type SelectedOptions map[string]string

func (s SelectedOptions) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(s))
	if err != nil {
		return nil, fmt.Errorf("selected options: %w", err)
	}
	return string(b), nil
}

func (s *SelectedOptions) Scan(value interface{}) error {
	if value == nil {
		*s = SelectedOptions{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("selected options: unsupported scan type %T", value)
	}
	out := map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("selected options: %w", err)
		}
	}
	*s = out
	return nil
}

// Clone returns an independent copy.
func (s SelectedOptions) Clone() SelectedOptions {
	out := make(SelectedOptions, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal reports whether both maps hold the same pairs.
func (s SelectedOptions) Equal(other SelectedOptions) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
