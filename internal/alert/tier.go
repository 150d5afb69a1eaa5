package alert

// Tier is the derived routing category for an alert. It is recomputed from
// severity whenever needed and never persisted.
type Tier string

const (
	TierUrgentInvestigation Tier = "urgent_investigation"
	TierUserInvestigation   Tier = "user_investigation"
	TierMonitorOnly         Tier = "monitor_only"
	TierNormalActivity      Tier = "normal_activity"
)

// Thresholds are the severity cut points for tier routing. A severity at or
// above Urgent routes to urgent_investigation, at or above Investigate to
// user_investigation, at or above Monitor to monitor_only, anything below
// to normal_activity.
type Thresholds struct {
	Urgent      int
	Investigate int
	Monitor     int
}

// DefaultThresholds are the standard severity cut points (8/5/3).
var DefaultThresholds = Thresholds{Urgent: 8, Investigate: 5, Monitor: 3}

// TierFor maps a severity to its action tier using the default thresholds.
func TierFor(severity int) Tier {
	return DefaultThresholds.TierFor(severity)
}

// TierFor maps a severity to its action tier.
func (t Thresholds) TierFor(severity int) Tier {
	switch {
	case severity >= t.Urgent:
		return TierUrgentInvestigation
	case severity >= t.Investigate:
		return TierUserInvestigation
	case severity >= t.Monitor:
		return TierMonitorOnly
	default:
		return TierNormalActivity
	}
}
