package gateway

import "math"

type Urgency string

const (
	UrgencyNormal   Urgency = "NORMAL"
	UrgencyHigh     Urgency = "HIGH"
	UrgencyCritical Urgency = "CRITICAL"
)

type Phase struct {
	Name      string
	Directive string
	Ratio     float64
}

// ComputePhase places dayIndex on the journey from day one to the deadline.
// Thresholds are inclusive on the upper bound: 20%, 50%, 80%.
func ComputePhase(dayIndex int, daysRemaining int) Phase {
	total := dayIndex + daysRemaining
	if total == 0 {
		total = 1
	}
	ratio := math.Min(1, float64(dayIndex)/float64(total))

	switch {
	case ratio > 0.8:
		return Phase{Name: "FINAL SPRINT", Directive: "Maximum effort. All-out execution to cross the finish line. No excuses.", Ratio: ratio}
	case ratio > 0.5:
		return Phase{Name: "PEAK PERFORMANCE", Directive: "High difficulty. Complex tasks requiring deep work. Test the user's limits.", Ratio: ratio}
	case ratio > 0.2:
		return Phase{Name: "ACCELERATION", Directive: "Increase intensity. Introduce slightly uncomfortable tasks. Compound the habits.", Ratio: ratio}
	default:
		return Phase{Name: "INITIATION", Directive: "Focus on small, consistent habits. Low friction. Build the foundation.", Ratio: ratio}
	}
}

func ComputeUrgency(daysRemaining int) Urgency {
	switch {
	case daysRemaining < 7:
		return UrgencyCritical
	case daysRemaining < 30:
		return UrgencyHigh
	default:
		return UrgencyNormal
	}
}
