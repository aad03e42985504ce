package browser

import "fmt"

// LocatorKind selects how a Locator matches an element.
type LocatorKind int

const (
	// KindID matches the element whose id attribute equals Value.
	KindID LocatorKind = iota
	// KindClass matches elements carrying Value in their class list.
	KindClass
)

func (k LocatorKind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindClass:
		return "class"
	default:
		return "unknown"
	}
}

// Locator is a backend-independent rule for finding DOM elements.
type Locator struct {
	Kind  LocatorKind
	Value string
}

// ByID returns a Locator matching an element by its id attribute.
func ByID(id string) Locator {
	return Locator{Kind: KindID, Value: id}
}

// ByClass returns a Locator matching elements by a marker class.
func ByClass(class string) Locator {
	return Locator{Kind: KindClass, Value: class}
}

// CSS renders the locator as a CSS selector understood by every backend.
func (l Locator) CSS() string {
	switch l.Kind {
	case KindID:
		return "#" + l.Value
	case KindClass:
		return "." + l.Value
	default:
		return l.Value
	}
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.Kind, l.Value)
}
