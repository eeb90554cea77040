package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateItemAcceptsWellFormedItem(t *testing.T) {
	assert.NoError(t, ValidateItem("item-1", runner("Red", "US 9", 1)))
}

func TestValidateItemCollectsEveryFailure(t *testing.T) {
	it := Item{
		Price: decimal.NewFromInt(-1),
		Stock: -2,
		Attributes: []Attribute{
			attr("Color", "Red", true, false),
			attr("color ", "Blue", true, false),
			attr("Gender", "Men", false, true),
			attr("Type", "Shoe", true, true),
			{Name: "  "},
		},
	}
	err := ValidateItem("draft-7", it)
	require.Error(t, err)

	fields := map[string]bool{}
	for _, fe := range FieldErrors(err) {
		assert.Equal(t, "draft-7", fe.Ref)
		fields[fe.Field] = true
	}
	for _, want := range []string{"name", "price", "stock", "attributes[1].name", "attributes[2]", "attributes[3]", "attributes[4].name", "attributes"} {
		assert.True(t, fields[want], "expected failure on %s", want)
	}
}

func TestValidateItemRequiresCategoryValue(t *testing.T) {
	it := runner("Red", "US 9", 1)
	it.Attributes[0].Values = nil
	it.Attributes = append(it.Attributes, Attribute{Name: "Notes", Values: nil})

	fes := FieldErrors(ValidateItem("draft-1", it))
	require.Len(t, fes, 1, "descriptive attributes may stay empty")
	assert.Equal(t, "attributes[0].values", fes[0].Field)

	it.Attributes[0].Values = []string{"  "}
	assert.Error(t, ValidateItem("draft-1", it))
}

func TestValidateAlignment(t *testing.T) {
	a := runner("Red", "US 9", 1)
	b := runner("Blue", "US 10", 1)
	assert.NoError(t, ValidateAlignment([]string{"a", "b"}, []Item{a, b}))

	swapped := runner("Green", "US 8", 1)
	swapped.Attributes[1], swapped.Attributes[2] = swapped.Attributes[2], swapped.Attributes[1]
	err := ValidateAlignment([]string{"a", "b", "c"}, []Item{a, b, swapped})
	require.Error(t, err)
	fes := FieldErrors(err)
	require.Len(t, fes, 1)
	assert.Equal(t, "c", fes[0].Ref)

	other := Item{Name: "Boot", PrimaryImage: "b.png"}
	assert.NoError(t, ValidateAlignment([]string{"a", "x"}, []Item{a, other}), "different groups are independent")
}
