package catalog

// Entry is the dictionary view of one attribute name across the catalog.
type Entry struct {
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	IsCategory bool     `json:"isCategory"`
	IsLead     bool     `json:"isLead"`
	Values     []string `json:"values"`
}

// Dictionary is derived from the full item list and never persisted.
type Dictionary struct {
	entries map[string]*Entry
	order   []string
	seen    map[string]map[string]struct{}
}

// BuildDictionary accumulates every attribute of every item. Flags are OR-ed
// across items and values are unioned in first-seen order.
func BuildDictionary(items []Item) Dictionary {
	d := Dictionary{
		entries: map[string]*Entry{},
		seen:    map[string]map[string]struct{}{},
	}
	for _, it := range items {
		for _, attr := range it.Attributes {
			key := Normalize(attr.Name)
			if key == "" {
				continue
			}
			entry, ok := d.entries[key]
			if !ok {
				entry = &Entry{Key: key, Name: attr.Name, Values: []string{}}
				d.entries[key] = entry
				d.order = append(d.order, key)
				d.seen[key] = map[string]struct{}{}
			}
			entry.IsCategory = entry.IsCategory || attr.IsCategory
			entry.IsLead = entry.IsLead || attr.IsLead
			for _, v := range attr.Values {
				entry.Values = appendDistinct(entry.Values, d.seen[key], v)
			}
		}
	}
	return d
}

func (d Dictionary) Len() int {
	return len(d.order)
}

// Lookup finds an entry by any spelling that normalizes to the same key.
func (d Dictionary) Lookup(name string) (Entry, bool) {
	entry, ok := d.entries[Normalize(name)]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Entries returns a copy of every entry in first-seen order.
func (d Dictionary) Entries() []Entry {
	out := make([]Entry, 0, len(d.order))
	for _, key := range d.order {
		entry := *d.entries[key]
		entry.Values = append([]string(nil), entry.Values...)
		out = append(out, entry)
	}
	return out
}

// GlobalLeadCategory returns the lead attribute. When owners flagged more than
// one name as lead, the first one seen wins.
func (d Dictionary) GlobalLeadCategory() (Entry, bool) {
	for _, key := range d.order {
		if entry := d.entries[key]; entry.IsLead {
			return *entry, true
		}
	}
	return Entry{}, false
}

// Vocabulary lists canonical attribute names for the typo corrector.
func (d Dictionary) Vocabulary() []string {
	out := make([]string, 0, len(d.order))
	for _, key := range d.order {
		out = append(out, d.entries[key].Name)
	}
	return out
}

// Template seeds the attribute list of a new item with the lead category.
func (d Dictionary) Template() []Attribute {
	lead, ok := d.GlobalLeadCategory()
	if !ok {
		return []Attribute{}
	}
	return []Attribute{{
		Name:       lead.Name,
		Values:     []string{},
		IsCategory: true,
		IsLead:     true,
	}}
}
