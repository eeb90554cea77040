package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func attr(name, value string, category, lead bool) Attribute {
	return Attribute{Name: name, Values: []string{value}, IsCategory: category, IsLead: lead}
}

func runner(color, size string, stock int) Item {
	return Item{
		ID:           uuid.New(),
		Name:         "Runner",
		Price:        decimal.RequireFromString("89.99"),
		PrimaryImage: "https://cdn.example.com/runner.png",
		Stock:        stock,
		TracksStock:  true,
		Attributes: []Attribute{
			attr("Gender", "Men", true, true),
			attr("Color", color, true, false),
			attr("Size", size, true, false),
		},
	}
}
