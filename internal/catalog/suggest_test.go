package catalog

import "testing"

func TestSuggest(t *testing.T) {
	vocab := []string{"Size", "Color"}

	cases := []struct {
		name      string
		candidate string
		vocab     []string
		want      string
		ok        bool
	}{
		{name: "one edit", candidate: "Sizee", vocab: vocab, want: "Size", ok: true},
		{name: "two edits", candidate: "Colr", vocab: vocab, want: "Color", ok: true},
		{name: "too short", candidate: "xy", vocab: vocab},
		{name: "too short after trim", candidate: "  sz ", vocab: []string{"sz"}},
		{name: "too far", candidate: "Zzzzz", vocab: []string{"Size"}},
		{name: "exact match", candidate: " size", vocab: vocab},
		{name: "empty vocabulary", candidate: "Sizee"},
		{name: "tie goes to first", candidate: "cat", vocab: []string{"car", "cap"}, want: "car", ok: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Suggest(tc.candidate, tc.vocab)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("Suggest(%q) = (%q, %v), want (%q, %v)", tc.candidate, got, ok, tc.want, tc.ok)
			}
		})
	}
}
