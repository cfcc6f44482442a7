package classify

import "reefwatch/types"

// Two severity formulas exist for two different call paths. AlertSeverity
// scores clusters during alert generation; ThresholdSeverity scores
// subscriber areas during the periodic threshold check. They are kept as
// separate named strategies on purpose: unifying them would silently change
// alerting behavior for one of the two paths.

// AlertSeverity derives an alert's severity tier from the cluster's member
// count and average bleaching percentage. Strict ordered waterfall:
// critical, then high, then moderate, else low.
func AlertSeverity(bleachedCount int, avgBleaching float64) types.Severity {
	switch {
	case avgBleaching >= 80 && bleachedCount >= 300:
		return types.SeverityCritical
	case avgBleaching >= 60 && bleachedCount >= 200:
		return types.SeverityHigh
	case avgBleaching >= 40 && bleachedCount >= 200:
		return types.SeverityModerate
	default:
		return types.SeverityLow
	}
}

// ThresholdSeverity derives severity from how far an area's case count
// exceeds the subscriber's configured threshold. Note this path reports
// "medium" where the generation path reports "moderate".
func ThresholdSeverity(caseCount, threshold int) types.Severity {
	if threshold <= 0 {
		return types.SeverityLow
	}
	ratio := float64(caseCount) / float64(threshold)
	switch {
	case ratio >= 3.0:
		return types.SeverityCritical
	case ratio >= 2.0:
		return types.SeverityHigh
	case ratio >= 1.5:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}
