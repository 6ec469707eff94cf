package render

// Accordion tracks the single open FAQ item. The zero value has nothing open.
type Accordion struct {
	open int // index+1; 0 means closed
}

// OpenAt returns an accordion with item i open; a negative i opens nothing.
func OpenAt(i int) Accordion {
	var a Accordion
	if i >= 0 {
		a.Open(i)
	}
	return a
}

// Open opens item i and closes every other item.
func (a *Accordion) Open(i int) {
	a.open = i + 1
}

// Toggle closes item i if it is open and otherwise opens it exclusively.
func (a *Accordion) Toggle(i int) {
	if a.open == i+1 {
		a.open = 0
		return
	}
	a.Open(i)
}

// Active returns the open item, if any.
func (a Accordion) Active() (int, bool) {
	return a.open - 1, a.open > 0
}

// IsOpen reports whether item i is open.
func (a Accordion) IsOpen(i int) bool {
	return a.open == i+1
}
