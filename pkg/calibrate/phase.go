package calibrate

// Phase is the driver's position in the iteration cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBuilding
	PhaseMeasuring
	PhaseClassifying
	PhaseAdjusting
	PhaseConverged
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:        "idle",
	PhaseBuilding:    "building",
	PhaseMeasuring:   "measuring",
	PhaseClassifying: "classifying",
	PhaseAdjusting:   "adjusting",
	PhaseConverged:   "converged",
	PhaseFailed:      "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether no further transitions happen.
func (p Phase) Terminal() bool {
	return p == PhaseConverged || p == PhaseFailed
}
