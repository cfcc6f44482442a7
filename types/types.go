package types

import "errors"

// ErrNotFound is returned by stores when an alert id does not exist.
var ErrNotFound = errors.New("alert not found")

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
	// SeverityMedium is only produced by the subscriber-threshold ratio
	// formula; the generation path uses SeverityModerate instead.
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// ObservationClass is the canonical coral condition derived from the raw
// model label.
type ObservationClass string

const (
	ClassHealthy           ObservationClass = "healthy"
	ClassBleached          ObservationClass = "bleached"
	ClassPartiallyBleached ObservationClass = "partially-bleached"
	ClassUncertain         ObservationClass = "uncertain"
)

// AlertStatus distinguishes an alert that was formally resolved from one
// that was merely deactivated (e.g. superseded by a regeneration run).
type AlertStatus string

const (
	StatusActive      AlertStatus = "active"
	StatusDeactivated AlertStatus = "deactivated"
	StatusResolved    AlertStatus = "resolved"
)

// Alert history record types.
const (
	AlertTypeThresholdReached = "threshold_reached"
	AlertTypeWeeklyReport     = "weekly_report"
	AlertTypeMonthlyReport    = "monthly_report"
)

// Delivery statuses for alert history records.
const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)
