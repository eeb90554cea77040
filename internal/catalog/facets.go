package catalog

// NextFacet picks the category attribute to ask about next: the eligible one
// at the lowest position across subset, ties going to the first item and
// attribute scanned. chosen holds facet names already pinned. With rootOnly
// only position 0 is eligible. Returns false once the subset is resolved.
func NextFacet(subset []Item, chosen []string, rootOnly bool) (string, bool) {
	pinned := make(map[string]struct{}, len(chosen))
	for _, c := range chosen {
		pinned[Normalize(c)] = struct{}{}
	}

	best := ""
	bestPos := -1
	for _, it := range subset {
		for pos, attr := range it.Attributes {
			if rootOnly && pos > 0 {
				break
			}
			if !attr.IsCategory {
				continue
			}
			if _, ok := pinned[Normalize(attr.Name)]; ok {
				continue
			}
			if bestPos == -1 || pos < bestPos {
				best = attr.Name
				bestPos = pos
			}
		}
	}
	return best, bestPos >= 0
}

// FilterByValue keeps items whose facet attribute holds value.
func FilterByValue(subset []Item, facet, value string) []Item {
	out := make([]Item, 0, len(subset))
	for _, it := range subset {
		if it.HasValue(facet, value) {
			out = append(out, it)
		}
	}
	return out
}

// FacetValues lists the distinct values of facet within subset, first-seen order.
func FacetValues(subset []Item, facet string) []string {
	seen := map[string]struct{}{}
	values := []string{}
	for _, it := range subset {
		attr, _, ok := it.Attribute(facet)
		if !ok {
			continue
		}
		for _, v := range attr.Values {
			values = appendDistinct(values, seen, v)
		}
	}
	return values
}

// FacetNode is one level of the drill-down menu. A node without Facet is
// resolved and lists its Leaves directly.
type FacetNode struct {
	Facet   string        `json:"facet,omitempty"`
	Options []FacetOption `json:"options,omitempty"`
	Leaves  []Item        `json:"leaves,omitempty"`
}

type FacetOption struct {
	Value string     `json:"value"`
	Count int        `json:"count"`
	Node  *FacetNode `json:"node"`
}

// BuildTree expands the whole drill-down menu. Every level pins one more facet
// name, so depth is bounded by the number of distinct category names.
func BuildTree(items []Item, rootOnly bool) *FacetNode {
	return buildNode(items, nil, rootOnly)
}

func buildNode(subset []Item, chosen []string, rootOnly bool) *FacetNode {
	facet, ok := NextFacet(subset, chosen, rootOnly)
	if !ok {
		return &FacetNode{Leaves: subset}
	}
	values := FacetValues(subset, facet)
	if len(values) == 0 {
		return &FacetNode{Leaves: subset}
	}

	next := append(append([]string(nil), chosen...), facet)
	node := &FacetNode{Facet: facet, Options: make([]FacetOption, 0, len(values))}
	for _, v := range values {
		narrowed := FilterByValue(subset, facet, v)
		node.Options = append(node.Options, FacetOption{
			Value: v,
			Count: len(narrowed),
			Node:  buildNode(narrowed, next, rootOnly),
		})
	}
	return node
}

// Depth is the number of facet levels below and including n.
func (n *FacetNode) Depth() int {
	if n == nil || n.Facet == "" {
		return 0
	}
	deepest := 0
	for _, opt := range n.Options {
		if d := opt.Node.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}
