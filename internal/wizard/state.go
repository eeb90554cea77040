package wizard

import (
	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	"github.com/angelmondragon/storefront-catalog/pkg/types"
)

type Step string

const (
	StepModelSelect  Step = "model_select"
	StepLeadSelect   Step = "lead_select"
	StepVisualSelect Step = "visual_select"
	StepSizeSelect   Step = "size_select"
	StepFacetSelect  Step = "facet_select"
	StepLeafSelect   Step = "leaf_select"
	StepResolved     Step = "resolved"
	StepNoMatches    Step = "no_matches"
	StepCancelled    Step = "cancelled"
)

// Option is one choice offered at the current step. Disabled options are shown
// but cannot be selected.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label,omitempty"`
	Image    string `json:"image,omitempty"`
	Count    int    `json:"count"`
	Disabled bool   `json:"disabled,omitempty"`
}

// View is everything a step renders from. Back navigation restores a stored
// View as-is instead of recomputing it.
type View struct {
	Step       Step                  `json:"step"`
	Attribute  string                `json:"attribute,omitempty"`
	Options    []Option              `json:"options"`
	Candidates []catalog.Item        `json:"candidates"`
	Model      string                `json:"model,omitempty"`
	Chosen     []string              `json:"chosen,omitempty"`
	Selected   types.SelectedOptions `json:"selected"`
	Resolved   *catalog.Item         `json:"resolved,omitempty"`
}

// Frame records the view that was on screen before an explicit selection.
type Frame struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Previous  View   `json:"previous"`
}

// State is the serializable wizard session.
type State struct {
	Mode     enums.WizardMode `json:"mode"`
	RootOnly bool             `json:"rootOnly,omitempty"`
	View
	History []Frame `json:"history"`
}

func (v View) clone() View {
	out := v
	out.Options = append([]Option(nil), v.Options...)
	out.Candidates = make([]catalog.Item, len(v.Candidates))
	for i, it := range v.Candidates {
		out.Candidates[i] = it.Clone()
	}
	out.Chosen = append([]string(nil), v.Chosen...)
	out.Selected = v.Selected.Clone()
	if v.Resolved != nil {
		r := v.Resolved.Clone()
		out.Resolved = &r
	}
	return out
}
