package alert

import "testing"

func TestTierFor_DefaultThresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity int
		want     Tier
	}{
		{10, TierUrgentInvestigation},
		{9, TierUrgentInvestigation},
		{8, TierUrgentInvestigation},
		{7, TierUserInvestigation},
		{6, TierUserInvestigation},
		{5, TierUserInvestigation},
		{4, TierMonitorOnly},
		{3, TierMonitorOnly},
		{2, TierNormalActivity},
		{1, TierNormalActivity},
	}

	for _, tt := range tests {
		got := TierFor(tt.severity)
		if got != tt.want {
			t.Errorf("TierFor(%d) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}

func TestThresholds_TierFor_Custom(t *testing.T) {
	t.Parallel()

	th := Thresholds{Urgent: 9, Investigate: 6, Monitor: 4}

	tests := []struct {
		severity int
		want     Tier
	}{
		{9, TierUrgentInvestigation},
		{8, TierUserInvestigation},
		{6, TierUserInvestigation},
		{5, TierMonitorOnly},
		{4, TierMonitorOnly},
		{3, TierNormalActivity},
	}

	for _, tt := range tests {
		got := th.TierFor(tt.severity)
		if got != tt.want {
			t.Errorf("TierFor(%d) = %q, want %q", tt.severity, got, tt.want)
		}
	}
}
