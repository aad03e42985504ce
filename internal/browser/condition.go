package browser

// Condition is the state a WaitFor call blocks on.
type Condition int

const (
	// Present is satisfied once a matching element exists in the DOM.
	Present Condition = iota
	// Interactable is satisfied once a matching element is visible and enabled.
	Interactable
)

func (c Condition) String() string {
	switch c {
	case Present:
		return "present"
	case Interactable:
		return "interactable"
	default:
		return "unknown"
	}
}
