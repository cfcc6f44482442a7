package types

import "time"

// Alert is a persisted bleaching alert derived from a cluster.
type Alert struct {
	ID           string  `firestore:"-"` // Firestore document ID
	Lat          float64 `firestore:"lat"`
	Long         float64 `firestore:"long"`
	LocationName string  `firestore:"locationName,omitempty"`

	Severity            Severity `firestore:"severity"`
	TotalImagesAnalyzed int      `firestore:"totalImagesAnalyzed"`
	BleachedCount       int      `firestore:"bleachedCount"`
	AvgBleaching        float64  `firestore:"avgBleaching"`

	IsActive       bool `firestore:"isActive"`
	AlertThreshold int  `firestore:"alertThreshold"`

	FirstDetectedAt time.Time  `firestore:"firstDetectedAt"`
	LastUpdatedAt   time.Time  `firestore:"lastUpdatedAt"`
	ResolvedAt      *time.Time `firestore:"resolvedAt"`

	AffectedObservationIDs []string `firestore:"affectedObservationIDs"`
	Description            string   `firestore:"description,omitempty"`
	Recommendations        string   `firestore:"recommendations,omitempty"`
	Summary                string   `firestore:"summary,omitempty"` // optional LLM narrative
	ClusterRadiusKM        float64  `firestore:"clusterRadiusKM"`
}

// Status reports the alert's lifecycle state. is_active=false with a null
// resolved_at means the alert was deactivated without being formally
// resolved; the two are distinct states.
func (a *Alert) Status() AlertStatus {
	switch {
	case a.IsActive:
		return StatusActive
	case a.ResolvedAt != nil:
		return StatusResolved
	default:
		return StatusDeactivated
	}
}

// AlertUpdate carries the fields reconciliation may overwrite on an existing
// alert. FirstDetectedAt, ID and ResolvedAt are never touched by an update.
type AlertUpdate struct {
	LocationName           string
	Severity               Severity
	TotalImagesAnalyzed    int
	BleachedCount          int
	AvgBleaching           float64
	AffectedObservationIDs []string
}

// AlertFilter narrows ListAlerts results.
type AlertFilter struct {
	IsActive *bool
	Severity Severity
}

// AlertSummary aggregates the current alert table for dashboards.
type AlertSummary struct {
	TotalAlerts         int     `json:"totalAlerts"`
	ActiveAlerts        int     `json:"activeAlerts"`
	ResolvedAlerts      int     `json:"resolvedAlerts"`
	CriticalAlerts      int     `json:"criticalAlerts"`
	HighAlerts          int     `json:"highAlerts"`
	ModerateAlerts      int     `json:"moderateAlerts"`
	LowAlerts           int     `json:"lowAlerts"`
	TotalAffectedCorals int     `json:"totalAffectedCorals"`
	AvgBleaching        float64 `json:"avgBleaching"`
	MostAffected        []Alert `json:"mostAffected"`
}
