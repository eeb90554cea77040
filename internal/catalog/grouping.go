package catalog

// DisplayGroup is one catalog entry: items sharing a normalized name and image.
type DisplayGroup struct {
	Key            string `json:"key"`
	Representative Item   `json:"representative"`
	Variants       []Item `json:"variants"`
}

// GroupKey identifies the display group an item belongs to.
func GroupKey(it Item) string {
	return Normalize(it.Name) + "||" + Normalize(it.DisplayImage())
}

// Group collapses items into display groups in first-encounter order.
// Out-of-stock tracked items never appear. The representative copies the first
// variant and, for every attribute after the lead position, lists the distinct
// first values of all surviving variants sharing the key. Only the first
// variant's attribute positions are walked.
func Group(items []Item) []DisplayGroup {
	survivors := Purchasable(items)

	byKey := map[string][]Item{}
	for _, it := range survivors {
		key := GroupKey(it)
		byKey[key] = append(byKey[key], it)
	}

	groups := []DisplayGroup{}
	index := map[string]int{}
	for _, it := range survivors {
		key := GroupKey(it)
		if i, ok := index[key]; ok {
			groups[i].Variants = append(groups[i].Variants, it)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, DisplayGroup{
			Key:            key,
			Representative: representative(it, byKey[key]),
			Variants:       []Item{it},
		})
	}
	return groups
}

func representative(first Item, siblings []Item) Item {
	rep := first.Clone()
	for pos := 1; pos < len(rep.Attributes); pos++ {
		name := rep.Attributes[pos].Name
		seen := map[string]struct{}{}
		values := []string{}
		for _, sib := range siblings {
			attr, _, ok := sib.Attribute(name)
			if !ok {
				continue
			}
			values = appendDistinct(values, seen, attr.FirstValue())
		}
		if len(values) == 0 {
			if v := first.Attributes[pos].FirstValue(); v != "" {
				values = []string{v}
			} else {
				values = []string{}
			}
		}
		rep.Attributes[pos].Values = values
	}
	return rep
}
