package catacombs

// Stage represents a scheduling stage for loop execution.
// Loops are executed in stage order: Before → Default → After.
type Stage int

const (
	// Before stage runs first. Use for input that the scan depends on.
	Before Stage = iota

	// Default stage runs second. The floor scan and the door, rotation and
	// player refresh run here.
	Default

	// After stage runs last. Room transition events and consumers reading
	// the tick's final state run here.
	After

	// stageCount is the total number of stages.
	stageCount
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case Before:
		return "Before"
	case Default:
		return "Default"
	case After:
		return "After"
	default:
		return "Unknown"
	}
}
