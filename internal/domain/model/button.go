package model

// Button is a transport-agnostic inline keyboard button.
// Exactly one of URL or Data is expected to be set.
type Button struct {
	Text string
	URL  string
	Data string
}

// ButtonLayout is a list of keyboard rows.
type ButtonLayout struct {
	Rows [][]Button
}

func (l ButtonLayout) IsEmpty() bool { return len(l.Rows) == 0 }
