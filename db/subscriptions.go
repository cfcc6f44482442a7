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

	"reefwatch/types"
)

// SubscriptionStore reads alert subscriptions and keeps the append-only
// notification history.
type SubscriptionStore struct {
	Client *firestore.Client
}

// ListActive returns all active subscriptions.
func (s *SubscriptionStore) ListActive(ctx context.Context) ([]types.Subscription, error) {
	iter := s.Client.Collection(subscriptionsCollection).
		Where("isActive", "==", true).
		Documents(ctx)
	defer iter.Stop()

	var subscriptions []types.Subscription
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating subscriptions collection: %w", err)
		}

		var sub types.Subscription
		if err := doc.DataTo(&sub); err != nil {
			log.Printf("Warning: error converting document %s to Subscription: %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		sub.ID = doc.Ref.ID
		subscriptions = append(subscriptions, sub)
	}

	log.Printf("Retrieved %d active subscriptions", len(subscriptions))
	return subscriptions, nil
}

// AppendHistory writes one notification attempt. The caller assigns the id
// and sets delivery status to pending before dispatch.
func (s *SubscriptionStore) AppendHistory(ctx context.Context, record *types.AlertHistory) error {
	if record.ID == "" {
		return fmt.Errorf("cannot append history record without an id")
	}
	record.CreatedAt = time.Now().UTC()
	_, err := s.Client.Collection(alertHistoryCollection).Doc(record.ID).Create(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to append history record %s: %w", record.ID, err)
	}
	return nil
}

// MarkDelivery updates a history record after the dispatch attempt.
func (s *SubscriptionStore) MarkDelivery(ctx context.Context, id string, sent bool) error {
	updates := []firestore.Update{
		{Path: "emailSent", Value: sent},
	}
	if sent {
		now := time.Now().UTC()
		updates = append(updates,
			firestore.Update{Path: "emailSentAt", Value: &now},
			firestore.Update{Path: "deliveryStatus", Value: types.DeliverySent})
	} else {
		updates = append(updates,
			firestore.Update{Path: "deliveryStatus", Value: types.DeliveryFailed})
	}

	_, err := s.Client.Collection(alertHistoryCollection).Doc(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.ErrNotFound
		}
		return fmt.Errorf("failed to mark delivery for history record %s: %w", id, err)
	}
	return nil
}

// PurgeHistoryBefore deletes history records older than the cutoff using a
// BulkWriter, and returns how many were enqueued for deletion. Keeps the
// history collection bounded (180-day retention by default).
func (s *SubscriptionStore) PurgeHistoryBefore(ctx context.Context, cutoff time.Time) (int, error) {
	iter := s.Client.Collection(alertHistoryCollection).
		Where("createdAt", "<", cutoff).
		Documents(ctx)
	defer iter.Stop()

	bw := s.Client.BulkWriter(ctx)
	deleted := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("error iterating alert history collection: %w", err)
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			log.Printf("Error enqueueing history record %s for delete: %v", doc.Ref.ID, err)
			continue
		}
		deleted++
	}

	// Flush sends any remaining deletes and waits for them to complete.
	bw.Flush()
	log.Printf("Purged %d alert history records older than %s", deleted, cutoff.Format(time.RFC3339))
	return deleted, nil
}
