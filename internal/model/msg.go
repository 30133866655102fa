package model

// Bubble Tea message types

// ErrorMsg represents an error message.
type ErrorMsg struct {
	Err error
}

// MapReadyMsg is sent once the map pane has been sized for the first time.
type MapReadyMsg struct{}

// PageFetchedMsg carries the outcome of one search request.
type PageFetchedMsg struct {
	Query SearchQuery
	Page  Page
	Err   error
}

// CenterSettledMsg is sent when the map centre settles outside every marker seen so far.
type CenterSettledMsg struct {
	Center Location
}

// FocusSource identifies where a focus request came from.
type FocusSource int

const (
	FocusFromList FocusSource = iota
	FocusFromMarker
)

func (s FocusSource) String() string {
	if s == FocusFromMarker {
		return "marker"
	}
	return "list"
}

// FocusMsg asks the list/map sync to focus one ATM.
type FocusMsg struct {
	RecordID string
	Source   FocusSource
}

// Pane identifies which half of the screen receives navigation keys.
type Pane int

const (
	PaneList Pane = iota
	PaneMap
)
