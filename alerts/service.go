package alerts

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"reefwatch/classify"
	"reefwatch/detection"
	"reefwatch/types"
)

// Engine defaults, matching the deployed configuration.
const (
	DefaultAlertThreshold     = 10
	DefaultClusterRadiusKM    = 50.0
	GenerationMinBleachingPct = 20.0
)

// ObservationSource reads analyzed observations. Implemented by the
// Firestore store; the engine never talks to the inference pipeline
// directly.
type ObservationSource interface {
	ListWithAnalysis(ctx context.Context, filter types.ObservationFilter) ([]types.Observation, error)
}

// AlertStore persists alerts. Lookups by unknown id return
// types.ErrNotFound.
type AlertStore interface {
	FindNear(ctx context.Context, lat, long, radiusKM float64) ([]types.Alert, error)
	Create(ctx context.Context, alert *types.Alert) error
	Update(ctx context.Context, id string, upd types.AlertUpdate) (*types.Alert, error)
	Resolve(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*types.Alert, error)
	List(ctx context.Context, filter types.AlertFilter) ([]types.Alert, error)
	Statistics(ctx context.Context) (*types.AlertSummary, error)
}

// Geocoder resolves coordinates to a place name. Implementations are
// best-effort and must return a formatted coordinate string on failure,
// never an error; geocoding never blocks alert creation.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, long float64) string
}

// Summarizer optionally writes a narrative summary for a freshly created
// alert. Failures are logged and ignored.
type Summarizer interface {
	SummarizeAlert(ctx context.Context, alert *types.Alert) (string, error)
}

// Service is the alert lifecycle manager. All collaborators are injected;
// the zero Summarizer and Geocoder are tolerated.
type Service struct {
	Observations ObservationSource
	Store        AlertStore
	Geocoder     Geocoder
	Summarizer   Summarizer
}

// GenerateParams controls one generation run. Zero values fall back to the
// engine defaults.
type GenerateParams struct {
	MinBleachedCount   int
	ClusterRadiusKM    float64
	MinBleachingPct    float64
	RegenerateExisting bool
}

func (p *GenerateParams) applyDefaults() {
	if p.MinBleachedCount == 0 {
		p.MinBleachedCount = DefaultAlertThreshold
	}
	if p.ClusterRadiusKM == 0 {
		p.ClusterRadiusKM = DefaultClusterRadiusKM
	}
	if p.MinBleachingPct == 0 {
		p.MinBleachingPct = GenerationMinBleachingPct
	}
}

func (p *GenerateParams) validate() error {
	if p.MinBleachedCount < 0 {
		return fmt.Errorf("minBleachedCount must be positive, got %d", p.MinBleachedCount)
	}
	if p.ClusterRadiusKM < 0 {
		return fmt.Errorf("clusterRadiusKm must be positive, got %.2f", p.ClusterRadiusKM)
	}
	if p.MinBleachingPct < 0 || p.MinBleachingPct > 100 {
		return fmt.Errorf("minBleachingPct must be within 0-100, got %.2f", p.MinBleachingPct)
	}
	return nil
}

// GenerateResult is the run summary: the engine reports partial failure
// instead of aborting the batch.
type GenerateResult struct {
	Alerts  []types.Alert
	Created int
	Updated int
	Errors  []error
}

// GenerateAlerts runs the full pipeline: read observations, cluster,
// score, and reconcile each cluster against the persisted alerts. A
// persistence failure for one cluster is collected and the run continues;
// only a failed observation read is run-fatal. Not safe to run
// concurrently with itself: two runs could both miss an emerging alert and
// double-create.
func (s *Service) GenerateAlerts(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	params.applyDefaults()
	if err := params.validate(); err != nil {
		return nil, err
	}

	log.Printf("Starting alert generation: minCount=%d radius=%.1fkm regenerate=%v",
		params.MinBleachedCount, params.ClusterRadiusKM, params.RegenerateExisting)

	observations, err := s.Observations.ListWithAnalysis(ctx, types.ObservationFilter{
		HasLocation:            true,
		HasBleachingPercentage: true,
	})
	if err != nil {
		return nil, fmt.Errorf("listing observations: %w", err)
	}

	clusters := detection.ClusterObservations(observations, params.ClusterRadiusKM, params.MinBleachingPct)
	log.Printf("Found %d clusters from %d observations", len(clusters), len(observations))

	result := &GenerateResult{}
	for i := range clusters {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("generation cancelled after %d clusters: %w", i, err))
			break
		}
		cluster := &clusters[i]

		if cluster.Count < params.MinBleachedCount {
			log.Printf("Cluster %d/%d has %d observations, below threshold of %d. Skipping.",
				i+1, len(clusters), cluster.Count, params.MinBleachedCount)
			continue
		}

		alert, created, err := s.reconcile(ctx, cluster, params)
		if err != nil {
			log.Printf("Error reconciling cluster %d/%d: %v", i+1, len(clusters), err)
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Alerts = append(result.Alerts, *alert)
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	log.Printf("Alert generation complete: %d created, %d updated, %d errors",
		result.Created, result.Updated, len(result.Errors))
	return result, nil
}

// reconcile decides whether a cluster updates an existing alert near its
// centroid or creates a new one. Each call is its own persistence
// transaction boundary.
func (s *Service) reconcile(ctx context.Context, cluster *types.Cluster, params GenerateParams) (*types.Alert, bool, error) {
	locationName := s.locationName(ctx, cluster.CenterLat, cluster.CenterLong)
	severity := classify.AlertSeverity(cluster.Count, cluster.AvgBleaching)
	avgBleaching := round2(cluster.AvgBleaching)

	existing, err := s.Store.FindNear(ctx, cluster.CenterLat, cluster.CenterLong, params.ClusterRadiusKM)
	if err != nil {
		return nil, false, fmt.Errorf("searching alerts near (%.4f, %.4f): %w",
			cluster.CenterLat, cluster.CenterLong, err)
	}

	if len(existing) > 0 && !params.RegenerateExisting {
		updated, err := s.Store.Update(ctx, existing[0].ID, types.AlertUpdate{
			LocationName:           locationName,
			Severity:               severity,
			TotalImagesAnalyzed:    cluster.Count,
			BleachedCount:          cluster.Count,
			AvgBleaching:           avgBleaching,
			AffectedObservationIDs: cluster.MemberIDs,
		})
		if err != nil {
			return nil, false, fmt.Errorf("updating alert %s: %w", existing[0].ID, err)
		}
		log.Printf("Updated existing alert %s at %s", updated.ID, locationName)
		return updated, false, nil
	}

	now := time.Now().UTC()
	alert := &types.Alert{
		ID:                     uuid.NewString(),
		Lat:                    cluster.CenterLat,
		Long:                   cluster.CenterLong,
		LocationName:           locationName,
		Severity:               severity,
		TotalImagesAnalyzed:    cluster.Count,
		BleachedCount:          cluster.Count,
		AvgBleaching:           avgBleaching,
		IsActive:               true,
		AlertThreshold:         params.MinBleachedCount,
		FirstDetectedAt:        now,
		LastUpdatedAt:          now,
		AffectedObservationIDs: cluster.MemberIDs,
		Description:            Description(cluster.Count, cluster.AvgBleaching, severity),
		Recommendations:        Recommendations(severity),
		ClusterRadiusKM:        params.ClusterRadiusKM,
	}

	if s.Summarizer != nil {
		if summary, err := s.Summarizer.SummarizeAlert(ctx, alert); err != nil {
			log.Printf("Summary generation failed for alert at %s: %v", locationName, err)
		} else {
			alert.Summary = summary
		}
	}

	if err := s.Store.Create(ctx, alert); err != nil {
		return nil, false, fmt.Errorf("creating alert at %s: %w", locationName, err)
	}
	log.Printf("Created %s alert for %s with %d bleached observations",
		alert.Severity, locationName, cluster.Count)
	return alert, true, nil
}

func (s *Service) locationName(ctx context.Context, lat, long float64) string {
	if s.Geocoder == nil {
		return fmt.Sprintf("%.4f, %.4f", lat, long)
	}
	return s.Geocoder.ReverseGeocode(ctx, lat, long)
}

// ResolveAlert marks an alert resolved: is_active=false and a non-null
// resolved_at. Independent of the generation pipeline.
func (s *Service) ResolveAlert(ctx context.Context, id string) error {
	return s.Store.Resolve(ctx, id)
}

// DeleteAlert removes the alert row entirely.
func (s *Service) DeleteAlert(ctx context.Context, id string) error {
	return s.Store.Delete(ctx, id)
}

func (s *Service) GetAlert(ctx context.Context, id string) (*types.Alert, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) ListAlerts(ctx context.Context, filter types.AlertFilter) ([]types.Alert, error) {
	return s.Store.List(ctx, filter)
}

// GetAlertSummary aggregates the alert table and attaches the five active
// alerts with the highest bleached counts.
func (s *Service) GetAlertSummary(ctx context.Context) (*types.AlertSummary, error) {
	summary, err := s.Store.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregating alert statistics: %w", err)
	}

	active := true
	mostAffected, err := s.Store.List(ctx, types.AlertFilter{IsActive: &active})
	if err != nil {
		return nil, fmt.Errorf("listing active alerts: %w", err)
	}
	sort.Slice(mostAffected, func(i, j int) bool {
		return mostAffected[i].BleachedCount > mostAffected[j].BleachedCount
	})
	if len(mostAffected) > 5 {
		mostAffected = mostAffected[:5]
	}
	summary.MostAffected = mostAffected

	return summary, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
