// Package wizard resolves an ambiguous selection down to one purchasable
// variant, one explicit choice at a time.
package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-catalog/pkg/errors"
	"github.com/angelmondragon/storefront-catalog/pkg/types"
)

const sizeAttribute = "size"

var visualAttributes = map[string]struct{}{
	"color":   {},
	"colour":  {},
	"pattern": {},
	"style":   {},
	"print":   {},
	"finish":  {},
}

var (
	ErrCombinationUnavailable = errors.New("combination unavailable")
	ErrNothingToUndo          = errors.New("no previous step")
	ErrNotResolved            = errors.New("selection is not resolved")
)

// Wizard is owned by one shopper session; it is not safe for concurrent use.
type Wizard struct {
	state State
}

// Start narrows items to those whose name contains query and advances through
// every step that is already unambiguous.
func Start(items []catalog.Item, query string, mode enums.WizardMode, rootOnly bool) (*Wizard, error) {
	return start(catalog.SearchByName(items, query), "", mode, rootOnly)
}

// StartModel begins from one catalog entry. Only items named exactly model are
// candidates, so the shopper is never asked to pick the model again.
func StartModel(items []catalog.Item, model string, mode enums.WizardMode, rootOnly bool) (*Wizard, error) {
	candidates := filterByName(items, model)
	name := ""
	if len(candidates) > 0 {
		name = candidates[0].Name
	}
	return start(candidates, name, mode, rootOnly)
}

func start(candidates []catalog.Item, model string, mode enums.WizardMode, rootOnly bool) (*Wizard, error) {
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid wizard mode %q", mode))
	}
	w := &Wizard{state: State{
		Mode:     mode,
		RootOnly: rootOnly,
		View: View{
			Candidates: candidates,
			Model:      model,
			Selected:   types.SelectedOptions{},
		},
		History: []Frame{},
	}}
	if len(w.state.Candidates) == 0 {
		w.state.setStep(StepNoMatches, "", []Option{})
		return w, nil
	}
	if err := w.advance(); err != nil {
		if !errors.Is(err, ErrCombinationUnavailable) {
			return nil, err
		}
		w.state.setStep(StepNoMatches, "", []Option{})
	}
	return w, nil
}

// Restore rebuilds a wizard from a stored state.
func Restore(state State) *Wizard {
	if state.Selected == nil {
		state.Selected = types.SelectedOptions{}
	}
	if state.History == nil {
		state.History = []Frame{}
	}
	return &Wizard{state: state}
}

func (w *Wizard) State() State {
	return w.state
}

func (w *Wizard) Step() Step {
	return w.state.Step
}

func (w *Wizard) Options() []Option {
	return w.state.Options
}

// Resolved returns the single resolved item once the wizard has finished.
func (w *Wizard) Resolved() (catalog.Item, bool) {
	if w.state.Step != StepResolved || w.state.Resolved == nil {
		return catalog.Item{}, false
	}
	return *w.state.Resolved, true
}

// Select applies the shopper's pick for the current step. On error the
// wizard is left exactly as it was.
func (w *Wizard) Select(value string) error {
	switch w.state.Step {
	case StepResolved:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "selection already resolved")
	case StepNoMatches, StepCancelled, "":
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("nothing to select in step %s", w.state.Step))
	}

	opt, ok := w.findOption(value)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%q is not an option for %s", value, w.state.Attribute)).
			WithDetails(map[string]any{"step": w.state.Step, "value": value})
	}
	if opt.Disabled {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%q is unavailable", opt.Value)).
			WithDetails(map[string]any{"step": w.state.Step, "value": opt.Value})
	}

	before := w.state.View.clone()
	history := w.state.History

	next := w.state.View.clone()
	switch next.Step {
	case StepModelSelect:
		next.Model = opt.Value
		next.Candidates = filterByName(next.Candidates, opt.Value)
	case StepLeafSelect:
		id, err := uuid.Parse(opt.Value)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id")
		}
		next.Candidates = filterByID(next.Candidates, id)
	default:
		next.Selected[next.Attribute] = opt.Value
		next.Candidates = catalog.FilterByValue(next.Candidates, next.Attribute, opt.Value)
		if next.Step == StepFacetSelect {
			next.Chosen = append(next.Chosen, next.Attribute)
		}
	}

	w.state.View = next
	w.state.History = append(append([]Frame(nil), history...), Frame{
		Attribute: before.Attribute,
		Value:     opt.Value,
		Previous:  before,
	})
	if err := w.advance(); err != nil {
		w.state.View = before
		w.state.History = history
		return err
	}
	return nil
}

// Back undoes exactly one explicit selection and restores the view that was
// shown before it.
func (w *Wizard) Back() error {
	n := len(w.state.History)
	if n == 0 {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrNothingToUndo, "no previous step")
	}
	frame := w.state.History[n-1]
	w.state.History = w.state.History[:n-1]
	w.state.View = frame.Previous.clone()
	return nil
}

// Cancel discards every selection.
func (w *Wizard) Cancel() {
	w.state.View = View{
		Step:       StepCancelled,
		Options:    []Option{},
		Candidates: []catalog.Item{},
		Selected:   types.SelectedOptions{},
	}
	w.state.History = []Frame{}
}

// Refresh replaces candidate stock and price with the live catalog, drops
// candidates that no longer exist and recomputes the options of the current
// step. Stored history is left untouched so Back restores it verbatim.
func (w *Wizard) Refresh(items []catalog.Item) {
	live := make(map[uuid.UUID]catalog.Item, len(items))
	for _, it := range items {
		live[it.ID] = it
	}
	kept := w.state.Candidates[:0]
	for _, c := range w.state.Candidates {
		cur, ok := live[c.ID]
		if !ok {
			continue
		}
		c.Stock = cur.Stock
		c.TracksStock = cur.TracksStock
		c.Price = cur.Price
		kept = append(kept, c)
	}
	w.state.Candidates = kept
	if w.state.Resolved != nil {
		if cur, ok := live[w.state.Resolved.ID]; ok {
			w.state.Resolved.Stock = cur.Stock
			w.state.Resolved.TracksStock = cur.TracksStock
			w.state.Resolved.Price = cur.Price
		}
	}
	w.state.View.refreshOptions()
}

// CartLine turns the resolved item into a cart line.
func (w *Wizard) CartLine(qty int) (catalog.CartLine, error) {
	item, ok := w.Resolved()
	if !ok {
		return catalog.CartLine{}, pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrNotResolved, "selection is not resolved")
	}
	if qty <= 0 {
		return catalog.CartLine{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !item.Purchasable() {
		return catalog.CartLine{}, pkgerrors.New(pkgerrors.CodeOutOfStock, "item is out of stock").
			WithDetails(map[string]any{"itemId": item.ID})
	}
	if item.TracksStock && qty > item.Stock {
		return catalog.CartLine{}, pkgerrors.New(pkgerrors.CodeQuantityExceedsStock, "requested quantity exceeds stock").
			WithDetails(map[string]any{"itemId": item.ID, "requested": qty, "available": item.Stock})
	}
	return catalog.NewCartLine(item, qty, w.state.Selected), nil
}

func (w *Wizard) findOption(value string) (Option, bool) {
	want := strings.TrimSpace(value)
	for _, opt := range w.state.Options {
		if w.state.Step == StepLeafSelect {
			if opt.Value == want {
				return opt, true
			}
			continue
		}
		if catalog.Normalize(opt.Value) == catalog.Normalize(want) {
			return opt, true
		}
	}
	return Option{}, false
}

// advance moves forward from the current candidates, auto-filling any step
// with a single available option, and stops at the first real choice.
func (w *Wizard) advance() error {
	if w.state.Mode == enums.WizardModeFacet {
		return w.advanceFacets()
	}
	return w.advanceFixed()
}

func (w *Wizard) advanceFixed() error {
	v := &w.state.View
	for {
		if v.Model == "" {
			names := catalog.DistinctNames(v.Candidates)
			if len(names) > 1 {
				options := modelOptions(v.Candidates, names)
				if enabledCount(options) == 0 {
					return v.resolve()
				}
				v.setStep(StepModelSelect, "name", options)
				return nil
			}
			if len(names) == 1 {
				v.Model = names[0]
				continue
			}
			return v.resolve()
		}
		if name, ok := leadAttribute(v.Candidates); ok && !v.picked(name) {
			if stop, err := v.settle(v.offer(StepLeadSelect, name, false)); stop {
				return err
			}
			continue
		}
		if name, ok := visualAttribute(v.Candidates, v); ok {
			if stop, err := v.settle(v.offer(StepVisualSelect, name, true)); stop {
				return err
			}
			continue
		}
		if name, ok := namedAttribute(v.Candidates, sizeAttribute); ok && !v.picked(name) {
			if stop, err := v.settle(v.offer(StepSizeSelect, name, false)); stop {
				return err
			}
			continue
		}
		return v.resolve()
	}
}

func (w *Wizard) advanceFacets() error {
	v := &w.state.View
	for {
		facet, ok := catalog.NextFacet(v.Candidates, v.Chosen, w.state.RootOnly)
		if !ok {
			return v.resolve()
		}
		if stop, err := v.settle(v.offer(StepFacetSelect, facet, false)); stop {
			return err
		}
	}
}

type offerResult int

const (
	offerShown offerResult = iota
	offerFilled
	offerSkipped
	offerExhausted
)

// offer presents attribute as a choice. A single enabled value is filled in
// and an attribute without any value is skipped. When every value is
// unavailable nothing is shown.
func (v *View) offer(step Step, attribute string, withImages bool) offerResult {
	options := valueOptions(v.Candidates, attribute, withImages)
	switch {
	case len(options) == 0:
		v.Chosen = append(v.Chosen, attribute)
		return offerSkipped
	case enabledCount(options) == 0:
		return offerExhausted
	case len(options) == 1:
		v.Selected[attribute] = options[0].Value
		v.Candidates = catalog.FilterByValue(v.Candidates, attribute, options[0].Value)
		if step == StepFacetSelect {
			v.Chosen = append(v.Chosen, attribute)
		}
		return offerFilled
	}
	v.setStep(step, attribute, options)
	return offerShown
}

// settle reports whether advancing stops after an offer.
func (v *View) settle(r offerResult) (bool, error) {
	switch r {
	case offerShown:
		return true, nil
	case offerExhausted:
		return true, v.resolve()
	}
	return false, nil
}

// resolve finishes the flow: one purchasable candidate resolves, several
// become a leaf pick, none is an unavailable combination.
func (v *View) resolve() error {
	available := catalog.Purchasable(v.Candidates)
	switch len(available) {
	case 0:
		return pkgerrors.Wrap(pkgerrors.CodeCombinationUnavailable, ErrCombinationUnavailable, "no item matches the selected combination").
			WithDetails(map[string]any{"model": v.Model, "selected": v.Selected.Clone()})
	case 1:
		item := available[0].Clone()
		v.Resolved = &item
		v.setStep(StepResolved, "", []Option{})
		return nil
	default:
		v.setStep(StepLeafSelect, "item", leafOptions(available))
		return nil
	}
}

// refreshOptions rebuilds the options of an open step from the current
// candidates. A step left without any enabled option ends as no matches.
func (v *View) refreshOptions() {
	switch v.Step {
	case StepModelSelect:
		v.Options = modelOptions(v.Candidates, catalog.DistinctNames(v.Candidates))
	case StepLeadSelect, StepVisualSelect, StepSizeSelect, StepFacetSelect:
		v.Options = valueOptions(v.Candidates, v.Attribute, v.Step == StepVisualSelect)
	case StepLeafSelect:
		v.Options = leafOptions(catalog.Purchasable(v.Candidates))
	default:
		return
	}
	if enabledCount(v.Options) == 0 {
		v.setStep(StepNoMatches, "", []Option{})
	}
}

func (v *View) setStep(step Step, attribute string, options []Option) {
	v.Step = step
	v.Attribute = attribute
	v.Options = options
	if step != StepResolved {
		v.Resolved = nil
	}
}

// picked reports whether attribute was chosen or skipped already.
func (v *View) picked(attribute string) bool {
	key := catalog.Normalize(attribute)
	for name := range v.Selected {
		if catalog.Normalize(name) == key {
			return true
		}
	}
	for _, name := range v.Chosen {
		if catalog.Normalize(name) == key {
			return true
		}
	}
	return false
}

func enabledCount(options []Option) int {
	n := 0
	for _, opt := range options {
		if !opt.Disabled {
			n++
		}
	}
	return n
}

func leafOptions(items []catalog.Item) []Option {
	options := make([]Option, 0, len(items))
	for _, it := range items {
		options = append(options, Option{
			Value: it.ID.String(),
			Label: leafLabel(it),
			Image: it.DisplayImage(),
			Count: 1,
		})
	}
	return options
}

func valueOptions(candidates []catalog.Item, attribute string, withImages bool) []Option {
	values := catalog.FacetValues(candidates, attribute)
	options := make([]Option, 0, len(values))
	for _, value := range values {
		matching := catalog.FilterByValue(candidates, attribute, value)
		available := catalog.Purchasable(matching)
		opt := Option{
			Value:    value,
			Count:    len(available),
			Disabled: len(available) == 0,
		}
		if withImages {
			rep := matching[0]
			if len(available) > 0 {
				rep = available[0]
			}
			opt.Image = rep.DisplayImage()
		}
		options = append(options, opt)
	}
	return options
}

func modelOptions(candidates []catalog.Item, names []string) []Option {
	options := make([]Option, 0, len(names))
	for _, name := range names {
		matching := filterByName(candidates, name)
		available := catalog.Purchasable(matching)
		options = append(options, Option{
			Value:    name,
			Image:    matching[0].DisplayImage(),
			Count:    len(available),
			Disabled: len(available) == 0,
		})
	}
	return options
}

func leadAttribute(candidates []catalog.Item) (string, bool) {
	for _, it := range candidates {
		for _, attr := range it.Attributes {
			if attr.IsLead {
				return attr.Name, true
			}
		}
	}
	return "", false
}

// visualAttribute returns the first appearance-bearing attribute of the
// representative candidate, in attribute order, that is still open.
func visualAttribute(candidates []catalog.Item, v *View) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	for _, attr := range candidates[0].Attributes {
		if _, ok := visualAttributes[catalog.Normalize(attr.Name)]; !ok {
			continue
		}
		if v.picked(attr.Name) {
			return "", false
		}
		return attr.Name, true
	}
	return "", false
}

func namedAttribute(candidates []catalog.Item, normalized string) (string, bool) {
	for _, it := range candidates {
		if attr, _, ok := it.Attribute(normalized); ok {
			return attr.Name, true
		}
	}
	return "", false
}

func filterByName(items []catalog.Item, name string) []catalog.Item {
	want := catalog.Normalize(name)
	out := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		if catalog.Normalize(it.Name) == want {
			out = append(out, it)
		}
	}
	return out
}

func filterByID(items []catalog.Item, id uuid.UUID) []catalog.Item {
	for _, it := range items {
		if it.ID == id {
			return []catalog.Item{it}
		}
	}
	return []catalog.Item{}
}

func leafLabel(it catalog.Item) string {
	parts := []string{it.Name}
	for _, attr := range it.Attributes {
		if v := attr.FirstValue(); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " / ")
}
