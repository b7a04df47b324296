package widget

// DragState holds the flags a container accumulates during a gesture.
type DragState struct {
	CheckEmpty    bool
	OrderChanged  bool
	ItemsUpToDate bool
}

// Reset clears all flags.
func (s *DragState) Reset() { *s = DragState{} }

// Phase is the drag lifecycle of a container.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseDragging
	PhaseReconciling
)

func (p Phase) String() string {
	switch p {
	case PhaseDragging:
		return "dragging"
	case PhaseReconciling:
		return "reconciling"
	default:
		return "idle"
	}
}
