package types

import "time"

// Observation is a single analyzed coral image. Produced by the external
// inference pipeline; read-only to the alerting engine.
type Observation struct {
	ID                  string     `firestore:"-"` // Firestore document ID
	Name                string     `firestore:"name,omitempty"`
	Lat                 float64    `firestore:"lat"`
	Long                float64    `firestore:"long"`
	HasLocation         bool       `firestore:"hasLocation"`
	ObservedAt          string     `firestore:"observedAt,omitempty"` // RFC3339, optional
	Label               string     `firestore:"label"`
	BleachingPercentage *float64   `firestore:"bleachingPercentage"`
	Confidence          float64    `firestore:"confidence"`
	AnalyzedAt          time.Time  `firestore:"analyzedAt"`
}

// ObservationFilter narrows what the observation source returns.
type ObservationFilter struct {
	HasLocation            bool
	HasBleachingPercentage bool
}

// Cluster is a geographic grouping of qualifying observations. Clusters are
// recomputed from scratch on every generation run and never persisted.
type Cluster struct {
	CenterLat   float64
	CenterLong  float64
	MemberIDs   []string
	Count       int
	AvgBleaching float64
}

// BleachingCase is one observation inside a subscriber's monitored area,
// annotated with its distance from the area center.
type BleachingCase struct {
	ID                  string
	Name                string
	Lat                 float64
	Long                float64
	ObservedAt          string
	BleachingPercentage float64
	AnalyzedAt          time.Time
	DistanceKM          float64
}
