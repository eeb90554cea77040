package catalog

import (
	"testing"

	"github.com/angelmondragon/storefront-catalog/pkg/enums"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Size ":      "size",
		"Shoe\t  Size": "shoe size",
		"":             "",
		"COLOUR":       "colour",
		"US  10\n":     "us 10",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPurchasable(t *testing.T) {
	untracked := Item{Stock: 0, TracksStock: false}
	if !untracked.Purchasable() {
		t.Fatalf("untracked item should ignore stock")
	}
	if (Item{Stock: 0, TracksStock: true}).Purchasable() {
		t.Fatalf("tracked item with zero stock should not be purchasable")
	}
	if !(Item{Stock: 1, TracksStock: true}).Purchasable() {
		t.Fatalf("tracked item with stock should be purchasable")
	}
}

func TestDisplayImageFallsBackToFirstImage(t *testing.T) {
	it := Item{Media: []Media{
		{Kind: enums.MediaKindVideo, URL: "v.mp4"},
		{Kind: enums.MediaKindImage, URL: "a.png"},
		{Kind: enums.MediaKindImage, URL: "b.png"},
	}}
	if got := it.DisplayImage(); got != "a.png" {
		t.Fatalf("expected first image, got %q", got)
	}
	it.PrimaryImage = "primary.png"
	if got := it.DisplayImage(); got != "primary.png" {
		t.Fatalf("expected primary image, got %q", got)
	}
}

func TestSearchByName(t *testing.T) {
	items := []Item{{Name: "Trail Runner"}, {Name: "Sandal"}, {Name: "road RUNNER"}}
	got := SearchByName(items, "  runner ")
	if len(got) != 2 || got[0].Name != "Trail Runner" || got[1].Name != "road RUNNER" {
		t.Fatalf("unexpected search result %+v", got)
	}
	if len(SearchByName(items, "")) != 3 {
		t.Fatalf("empty query should match everything")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := runner("Red", "US 9", 1)
	cp := orig.Clone()
	cp.Attributes[1].Values[0] = "Blue"
	if orig.Attributes[1].Values[0] != "Red" {
		t.Fatalf("clone shares attribute values with original")
	}
}
