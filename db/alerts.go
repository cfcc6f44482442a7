package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"reefwatch/geo"
	"reefwatch/types"
)

// AlertStore persists alerts in the 'alerts' collection.
type AlertStore struct {
	Client *firestore.Client
}

// FindNear returns alerts within radiusKM of (lat, long). Firestore only
// supports a range filter on a single field, so latitude is filtered
// server-side and the bounding box plus exact Haversine check run here.
func (s *AlertStore) FindNear(ctx context.Context, lat, long, radiusKM float64) ([]types.Alert, error) {
	box := geo.BoxAround(lat, long, radiusKM)

	iter := s.Client.Collection(alertsCollection).
		Where("lat", ">=", box.MinLat).
		Where("lat", "<=", box.MaxLat).
		Documents(ctx)
	defer iter.Stop()

	var found []types.Alert
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating alerts collection: %w", err)
		}

		var alert types.Alert
		if err := doc.DataTo(&alert); err != nil {
			log.Printf("Warning: error converting document %s to Alert: %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		alert.ID = doc.Ref.ID

		if !box.Contains(alert.Lat, alert.Long) {
			continue
		}
		if geo.DistanceKM(lat, long, alert.Lat, alert.Long) <= radiusKM {
			found = append(found, alert)
		}
	}
	return found, nil
}

// Create writes a new alert row. The caller assigns the id.
func (s *AlertStore) Create(ctx context.Context, alert *types.Alert) error {
	if alert.ID == "" {
		return fmt.Errorf("cannot create alert without an id")
	}
	_, err := s.Client.Collection(alertsCollection).Doc(alert.ID).Create(ctx, alert)
	if err != nil {
		return fmt.Errorf("failed to create alert %s: %w", alert.ID, err)
	}
	return nil
}

// Update overwrites the reconciliation-owned fields of an existing alert in
// a transaction; id, first_detected_at and resolved_at are left untouched.
// A failed transaction rolls back in full.
func (s *AlertStore) Update(ctx context.Context, id string, upd types.AlertUpdate) (*types.Alert, error) {
	docRef := s.Client.Collection(alertsCollection).Doc(id)
	var updated types.Alert

	err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return types.ErrNotFound
			}
			return fmt.Errorf("error getting alert %s: %w", id, err)
		}
		if err := doc.DataTo(&updated); err != nil {
			return fmt.Errorf("error converting alert %s: %w", id, err)
		}

		updated.ID = id
		updated.LocationName = upd.LocationName
		updated.Severity = upd.Severity
		updated.TotalImagesAnalyzed = upd.TotalImagesAnalyzed
		updated.BleachedCount = upd.BleachedCount
		updated.AvgBleaching = upd.AvgBleaching
		updated.AffectedObservationIDs = upd.AffectedObservationIDs
		updated.LastUpdatedAt = time.Now().UTC()

		return tx.Set(docRef, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Resolve sets is_active=false and stamps resolved_at.
func (s *AlertStore) Resolve(ctx context.Context, id string) error {
	docRef := s.Client.Collection(alertsCollection).Doc(id)

	return s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(docRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return types.ErrNotFound
			}
			return fmt.Errorf("error getting alert %s: %w", id, err)
		}
		now := time.Now().UTC()
		return tx.Update(docRef, []firestore.Update{
			{Path: "isActive", Value: false},
			{Path: "resolvedAt", Value: &now},
			{Path: "lastUpdatedAt", Value: now},
		})
	})
}

// Delete hard-deletes the alert row.
func (s *AlertStore) Delete(ctx context.Context, id string) error {
	docRef := s.Client.Collection(alertsCollection).Doc(id)

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return types.ErrNotFound
		}
		return fmt.Errorf("error getting alert %s: %w", id, err)
	}
	if _, err := docRef.Delete(ctx); err != nil {
		return fmt.Errorf("error deleting alert %s: %w", id, err)
	}
	return nil
}

// Get retrieves a single alert by id.
func (s *AlertStore) Get(ctx context.Context, id string) (*types.Alert, error) {
	doc, err := s.Client.Collection(alertsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("error getting alert %s: %w", id, err)
	}

	var alert types.Alert
	if err := doc.DataTo(&alert); err != nil {
		return nil, fmt.Errorf("error converting alert %s: %w", id, err)
	}
	alert.ID = doc.Ref.ID
	return &alert, nil
}

// List returns alerts matching the filter.
func (s *AlertStore) List(ctx context.Context, filter types.AlertFilter) ([]types.Alert, error) {
	query := s.Client.Collection(alertsCollection).Query
	if filter.IsActive != nil {
		query = query.Where("isActive", "==", *filter.IsActive)
	}
	if filter.Severity != "" {
		query = query.Where("severity", "==", string(filter.Severity))
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var alerts []types.Alert
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating alerts collection: %w", err)
		}

		var alert types.Alert
		if err := doc.DataTo(&alert); err != nil {
			log.Printf("Warning: error converting document %s to Alert: %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		alert.ID = doc.Ref.ID
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// Statistics aggregates the whole alert table in one pass.
func (s *AlertStore) Statistics(ctx context.Context) (*types.AlertSummary, error) {
	iter := s.Client.Collection(alertsCollection).Documents(ctx)
	defer iter.Stop()

	summary := &types.AlertSummary{}
	var pctSum float64
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating alerts collection: %w", err)
		}

		var alert types.Alert
		if err := doc.DataTo(&alert); err != nil {
			log.Printf("Warning: error converting document %s to Alert: %v. Skipping.", doc.Ref.ID, err)
			continue
		}

		summary.TotalAlerts++
		if alert.IsActive {
			summary.ActiveAlerts++
		}
		switch alert.Severity {
		case types.SeverityCritical:
			summary.CriticalAlerts++
		case types.SeverityHigh:
			summary.HighAlerts++
		case types.SeverityModerate:
			summary.ModerateAlerts++
		case types.SeverityLow:
			summary.LowAlerts++
		}
		summary.TotalAffectedCorals += alert.BleachedCount
		pctSum += alert.AvgBleaching
	}

	summary.ResolvedAlerts = summary.TotalAlerts - summary.ActiveAlerts
	if summary.TotalAlerts > 0 {
		summary.AvgBleaching = pctSum / float64(summary.TotalAlerts)
	}
	return summary, nil
}
