package model

// ItemState represents the phase of a single item pipeline run
type ItemState string

const (
	// ItemStateProbed means metadata for the item is known
	ItemStateProbed ItemState = "Probed"

	// ItemStateFetching means the extractor is downloading the item
	ItemStateFetching ItemState = "Fetching"

	// ItemStateSizeChecking means the artifact is checked against the budget
	ItemStateSizeChecking ItemState = "SizeChecking"

	// ItemStateDelivering means the artifact is being handed to the sink
	ItemStateDelivering ItemState = "Delivering"

	// ItemStateDone means the item reached a terminal outcome
	ItemStateDone ItemState = "Done"
)

// itemStateOrder fixes the forward-only order of states.
var itemStateOrder = map[ItemState]int{
	ItemStateProbed:       0,
	ItemStateFetching:     1,
	ItemStateSizeChecking: 2,
	ItemStateDelivering:   3,
	ItemStateDone:         4,
}

// String returns the string representation of ItemState
func (s ItemState) String() string {
	return string(s)
}

// IsActive returns true if the item is between probe and completion
func (s ItemState) IsActive() bool {
	return s == ItemStateFetching || s == ItemStateSizeChecking || s == ItemStateDelivering
}

// IsFinished returns true if the item reached a terminal outcome
func (s ItemState) IsFinished() bool {
	return s == ItemStateDone
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
// Any state may jump straight to Done; no state moves backwards.
func (s ItemState) CanAdvanceTo(next ItemState) bool {
	from, ok := itemStateOrder[s]
	if !ok {
		return false
	}
	to, ok := itemStateOrder[next]
	if !ok {
		return false
	}
	return to > from
}
