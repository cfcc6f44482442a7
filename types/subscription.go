package types

import "time"

// Subscription is a user's monitored area and alerting preferences.
// Read-only to the alerting engine except for history bookkeeping.
type Subscription struct {
	ID     string `firestore:"-"`
	UserID string `firestore:"userID"`
	Email  string `firestore:"email"`

	Lat     *float64 `firestore:"lat"`
	Long    *float64 `firestore:"long"`
	RadiusKM float64 `firestore:"radiusKM"` // 0 means default (50 km)
	Country string   `firestore:"country,omitempty"`
	City    string   `firestore:"city,omitempty"`

	BleachingThreshold int    `firestore:"bleachingThreshold"`
	AlertFrequency     string `firestore:"alertFrequency"` // immediate, daily, weekly
	WeeklyReports      bool   `firestore:"weeklyReports"`
	MonthlyReports     bool   `firestore:"monthlyReports"`

	IsActive bool `firestore:"isActive"`
}

// AreaName is the human label used in alert emails for this subscription.
func (s *Subscription) AreaName() string {
	city, country := s.City, s.Country
	if city == "" {
		city = "Unknown"
	}
	if country == "" {
		country = "Unknown"
	}
	return city + ", " + country
}

// MonitorRadiusKM returns the subscription radius, falling back to 50 km.
func (s *Subscription) MonitorRadiusKM() float64 {
	if s.RadiusKM > 0 {
		return s.RadiusKM
	}
	return 50.0
}

// Threshold returns the configured case-count threshold, falling back to
// the default of 200 cases.
func (s *Subscription) Threshold() int {
	if s.BleachingThreshold > 0 {
		return s.BleachingThreshold
	}
	return 200
}

// HasLocation reports whether the subscription monitors a concrete point.
func (s *Subscription) HasLocation() bool {
	return s.Lat != nil && s.Long != nil
}

// AreaAlert is an alert-worthy area summary handed to the fan-out stage.
type AreaAlert struct {
	AreaName       string
	Lat            float64
	Long           float64
	BleachingCount int
	Threshold      int
	RadiusKM       float64
	RecentCases    []BleachingCase
	Severity       Severity
}

// AlertHistory is one attempted notification; append-only audit of fan-out.
type AlertHistory struct {
	ID             string `firestore:"-"`
	SubscriptionID string `firestore:"subscriptionID"`
	AlertType      string `firestore:"alertType"`
	Title          string `firestore:"title"`
	Message        string `firestore:"message,omitempty"`

	BleachingCount int     `firestore:"bleachingCount,omitempty"`
	AffectedArea   string  `firestore:"affectedArea,omitempty"`
	Lat            float64 `firestore:"lat,omitempty"`
	Long           float64 `firestore:"long,omitempty"`

	EmailSent      bool       `firestore:"emailSent"`
	EmailSentAt    *time.Time `firestore:"emailSentAt"`
	DeliveryStatus string     `firestore:"deliveryStatus"`

	CreatedAt time.Time `firestore:"createdAt"`
}
