package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"reefwatch/geo"
	"reefwatch/types"
)

// ObservationStore reads analyzed observations written by the inference
// pipeline. Read-only from the engine's point of view.
type ObservationStore struct {
	Client *firestore.Client
}

// ListWithAnalysis returns observations matching the filter. Null fields
// are filtered here rather than server-side: Firestore has no "is not
// null" operator and the collection is small enough to scan.
func (s *ObservationStore) ListWithAnalysis(ctx context.Context, filter types.ObservationFilter) ([]types.Observation, error) {
	iter := s.Client.Collection(observationsCollection).Documents(ctx)
	defer iter.Stop()

	var observations []types.Observation
	total := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating observations collection: %w", err)
		}
		total++

		var obs types.Observation
		if err := doc.DataTo(&obs); err != nil {
			log.Printf("Warning: error converting document %s to Observation: %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		obs.ID = doc.Ref.ID

		if filter.HasLocation && !obs.HasLocation {
			continue
		}
		if filter.HasBleachingPercentage && obs.BleachingPercentage == nil {
			continue
		}
		observations = append(observations, obs)
	}

	log.Printf("Retrieved %d observations with analysis (of %d total)", len(observations), total)
	return observations, nil
}

// CasesInArea returns bleaching cases (percentage > 0) within radiusKM of
// the center, analyzed within the trailing daysBack window, annotated with
// their distance from the center. The analyzed-at cutoff is applied
// server-side; the distance filter runs here.
func (s *ObservationStore) CasesInArea(ctx context.Context, lat, long, radiusKM float64, daysBack int) ([]types.BleachingCase, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -daysBack)

	iter := s.Client.Collection(observationsCollection).
		Where("analyzedAt", ">=", cutoff).
		Documents(ctx)
	defer iter.Stop()

	var cases []types.BleachingCase
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating observations collection: %w", err)
		}

		var obs types.Observation
		if err := doc.DataTo(&obs); err != nil {
			log.Printf("Warning: error converting document %s to Observation: %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		obs.ID = doc.Ref.ID

		if !obs.HasLocation || obs.BleachingPercentage == nil || *obs.BleachingPercentage <= 0 {
			continue
		}

		distance := geo.DistanceKM(lat, long, obs.Lat, obs.Long)
		if distance > radiusKM {
			continue
		}
		cases = append(cases, types.BleachingCase{
			ID:                  obs.ID,
			Name:                obs.Name,
			Lat:                 obs.Lat,
			Long:                obs.Long,
			ObservedAt:          obs.ObservedAt,
			BleachingPercentage: *obs.BleachingPercentage,
			AnalyzedAt:          obs.AnalyzedAt,
			DistanceKM:          distance,
		})
	}
	return cases, nil
}
