package catalog

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupHidesOutOfStockVariants(t *testing.T) {
	red := runner("Red", "US 9", 5)
	blue := runner("Blue", "US 10", 0)

	groups := Group([]Item{red, blue})
	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "runner||https://cdn.example.com/runner.png", g.Key)
	require.Len(t, g.Variants, 1)
	assert.Equal(t, red.ID, g.Variants[0].ID)

	color, _, ok := g.Representative.Attribute("Color")
	require.True(t, ok)
	assert.Equal(t, []string{"Red"}, color.Values)
}

func TestGroupAggregatesNonLeadAttributes(t *testing.T) {
	a := runner("Red", "US 9", 5)
	b := runner("Blue", "US 9", 2)
	c := runner("red", "US 10", 1)
	c.Attributes[0].Values = []string{"Women"}

	groups := Group([]Item{a, b, c})
	require.Len(t, groups, 1)
	rep := groups[0].Representative

	assert.Equal(t, []string{"Men"}, rep.Attributes[0].Values, "lead is copied unchanged")
	assert.Equal(t, []string{"Red", "Blue"}, rep.Attributes[1].Values)
	assert.Equal(t, []string{"US 9", "US 10"}, rep.Attributes[2].Values)
	assert.Len(t, groups[0].Variants, 3)
	assert.Equal(t, []string{"Red"}, a.Attributes[1].Values, "input items are not mutated")
}

func TestGroupFirstEncounterOrder(t *testing.T) {
	sandal := Item{Name: "Sandal", PrimaryImage: "s.png"}
	boot := Item{Name: "Boot", PrimaryImage: "b.png"}
	sandal2 := Item{Name: " sandal ", PrimaryImage: "S.PNG"}

	groups := Group([]Item{sandal, boot, sandal2})
	require.Len(t, groups, 2)
	assert.Equal(t, "sandal||s.png", groups[0].Key)
	assert.Len(t, groups[0].Variants, 2)
	assert.Equal(t, "boot||b.png", groups[1].Key)
}

func TestGroupRepresentativeIgnoresExtraVariantPositions(t *testing.T) {
	short := Item{Name: "Cap", PrimaryImage: "c.png", Attributes: []Attribute{
		attr("Type", "Hat", true, true),
	}}
	long := Item{Name: "Cap", PrimaryImage: "c.png", Attributes: []Attribute{
		attr("Type", "Hat", true, true),
		attr("Color", "Black", true, false),
	}}
	groups := Group([]Item{short, long})
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Representative.Attributes, 1)
}

func TestGroupInvariantsHoldForAnyOrder(t *testing.T) {
	items := []Item{
		runner("Red", "US 9", 5),
		runner("Blue", "US 10", 0),
		runner("Green", "US 8", 1),
		{Name: "Sandal", PrimaryImage: "s.png", Stock: 0, TracksStock: true},
		{Name: "Sandal", PrimaryImage: "s.png", Stock: 0},
		{Name: "Boot", PrimaryImage: "b.png", Stock: 3, TracksStock: true},
	}
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		shuffled := append([]Item(nil), items...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		groups := Group(shuffled)
		for _, g := range groups {
			require.NotEmpty(t, g.Variants)
			for _, v := range g.Variants {
				require.True(t, v.Purchasable(), "out-of-stock item leaked into %s", g.Key)
				require.Equal(t, GroupKey(v), g.Key)
			}
		}
		require.Len(t, groups, 3)
	}
}
