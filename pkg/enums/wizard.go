package enums

// WizardMode selects how the variant wizard narrows candidates.
type WizardMode string

const (
	// WizardModeFixed walks model, lead, visual and size steps in order.
	WizardModeFixed WizardMode = "fixed"
	// WizardModeFacet asks whatever facet the selection engine picks next.
	WizardModeFacet WizardMode = "facet"
)

var wizardModes = newClosedSet("wizard mode", WizardModeFixed, WizardModeFacet)

func (m WizardMode) String() string { return string(m) }

func (m WizardMode) IsValid() bool { return wizardModes.has(m) }

// ParseWizardMode converts raw input into a WizardMode. Empty input means fixed.
func ParseWizardMode(value string) (WizardMode, error) {
	if value == "" {
		return WizardModeFixed, nil
	}
	return wizardModes.parse(value)
}
