package alerts

import (
	"fmt"
	"strings"

	"reefwatch/types"
)

// Description builds the free-text description attached to a new alert.
func Description(bleachedCount int, avgBleaching float64, severity types.Severity) string {
	return fmt.Sprintf(
		"A %s level bleaching event has been detected in this area. "+
			"Analysis of %d coral images shows an average bleaching percentage of %.1f%%. "+
			"This indicates significant coral stress and requires immediate attention "+
			"from marine conservation authorities.",
		severity, bleachedCount, avgBleaching)
}

var baseRecommendations = []string{
	"Monitor water temperature and quality regularly",
	"Document coral conditions with photographs",
	"Report findings to local marine conservation authorities",
	"Reduce local stressors (pollution, overfishing, coastal development)",
}

var criticalRecommendations = []string{
	"URGENT: Implement emergency response protocols",
	"Consider temporary area closures to reduce human impact",
	"Deploy coral restoration techniques if applicable",
	"Coordinate with research institutions for intervention strategies",
}

var highRecommendations = []string{
	"Increase monitoring frequency to weekly intervals",
	"Assess potential for coral transplantation",
	"Engage local community in conservation efforts",
}

// Recommendations returns the severity-appropriate recommendation list as a
// bulleted block.
func Recommendations(severity types.Severity) string {
	recommendations := append([]string{}, baseRecommendations...)
	switch severity {
	case types.SeverityCritical:
		recommendations = append(recommendations, criticalRecommendations...)
	case types.SeverityHigh:
		recommendations = append(recommendations, highRecommendations...)
	}
	return "\n• " + strings.Join(recommendations, "\n• ")
}
