package classify

import (
	"strings"

	"reefwatch/types"
)

// MinBleachingPercentage is the default percentage floor for the secondary
// inclusion rule during clustering.
const MinBleachingPercentage = 20.0

// labelTable maps normalized keywords to canonical classes. Order matters:
// the first keyword contained in the normalized label wins, so the more
// specific entries come first.
var labelTable = []struct {
	keyword string
	class   types.ObservationClass
}{
	{"partial bleach", types.ClassPartiallyBleached},
	{"partially bleach", types.ClassPartiallyBleached},
	{"pale", types.ClassPartiallyBleached},
	{"bleach", types.ClassBleached},
	{"white", types.ClassBleached},
	{"healthy", types.ClassHealthy},
	{"normal", types.ClassHealthy},
}

// bleachingKeywords admit an observation into clustering regardless of its
// percentage. Kept aligned with the filter the generation pipeline has
// always used: bleach catches all bleaching variants, pale and white the
// pale/white bleaching labels.
var bleachingKeywords = []string{"bleach", "pale", "white"}

// Normalize lowercases a raw model label and collapses underscore, hyphen
// and whitespace variants, so "very_pale_bleaching" and "Very Pale Bleaching"
// compare equal.
func Normalize(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// ClassOf maps a raw label to one of the four canonical classes. Unmapped or
// empty labels classify as uncertain; they still count toward totals but not
// toward bleached counts.
func ClassOf(label string) types.ObservationClass {
	normalized := Normalize(label)
	if normalized == "" {
		return types.ClassUncertain
	}
	for _, entry := range labelTable {
		if strings.Contains(normalized, entry.keyword) {
			return entry.class
		}
	}
	return types.ClassUncertain
}

// HasBleachingKeyword reports whether the label alone marks the observation
// as a bleaching case.
func HasBleachingKeyword(label string) bool {
	normalized := Normalize(label)
	for _, keyword := range bleachingKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

// Qualifies is the clustering inclusion rule: a bleaching keyword in the
// label OR a bleaching percentage at or above the floor. The two rules are
// unioned, not intersected. A null bleaching percentage excludes the
// observation outright (cluster averages need the value); that is a data
// anomaly, not an error.
func Qualifies(obs *types.Observation, minBleachingPct float64) bool {
	if obs.BleachingPercentage == nil {
		return false
	}
	if HasBleachingKeyword(obs.Label) {
		return true
	}
	return *obs.BleachingPercentage >= minBleachingPct
}
