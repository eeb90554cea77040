package items

import (
	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	"github.com/angelmondragon/storefront-catalog/pkg/db/models"
)

func fromModel(row models.Item) catalog.Item {
	it := catalog.Item{
		ID:           row.ID,
		Name:         row.Name,
		Description:  row.Description,
		Price:        row.Price,
		PrimaryImage: row.PrimaryImage,
		Stock:        row.Stock,
		TracksStock:  row.TracksStock,
		Attributes:   make([]catalog.Attribute, 0, len(row.Attributes)),
	}
	for _, a := range row.Attributes {
		values := append([]string{}, a.Values...)
		it.Attributes = append(it.Attributes, catalog.Attribute{
			Name:       a.Name,
			Values:     values,
			IsCategory: a.IsCategory,
			IsLead:     a.IsLead,
		})
	}
	for _, m := range row.Media {
		it.Media = append(it.Media, catalog.Media{Kind: m.Kind, URL: m.URL})
	}
	return it
}

// toModel assigns positions from slice order; ids of children are left for
// BeforeCreate.
func toModel(it catalog.Item) models.Item {
	row := models.Item{
		ID:           it.ID,
		Name:         it.Name,
		Description:  it.Description,
		Price:        it.Price,
		PrimaryImage: it.PrimaryImage,
		Stock:        it.Stock,
		TracksStock:  it.TracksStock,
	}
	for i, a := range it.Attributes {
		values := a.Values
		if values == nil {
			values = []string{}
		}
		row.Attributes = append(row.Attributes, models.ItemAttribute{
			ItemID:     it.ID,
			Position:   i,
			Name:       a.Name,
			Values:     values,
			IsCategory: a.IsCategory,
			IsLead:     a.IsLead,
		})
	}
	for i, m := range it.Media {
		row.Media = append(row.Media, models.ItemMedia{
			ItemID:   it.ID,
			Position: i,
			Kind:     m.Kind,
			URL:      m.URL,
		})
	}
	return row
}
