package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reefwatch/classify"
	"reefwatch/geo"
	"reefwatch/types"
)

const (
	// Trailing window for the subscriber-threshold path.
	thresholdWindowDays = 30
	// History rows older than this are purged by the cleanup job.
	historyRetentionDays = 180

	defaultWorkers = 4
)

// SubscriptionStore reads subscriptions and keeps notification history.
type SubscriptionStore interface {
	ListActive(ctx context.Context) ([]types.Subscription, error)
	AppendHistory(ctx context.Context, record *types.AlertHistory) error
	MarkDelivery(ctx context.Context, id string, sent bool) error
	PurgeHistoryBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// CaseSource looks up bleaching cases inside a monitored area.
type CaseSource interface {
	CasesInArea(ctx context.Context, lat, long, radiusKM float64, daysBack int) ([]types.BleachingCase, error)
}

// EmailSender dispatches one rendered email.
type EmailSender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// Service fans alerts out to subscribers and sends scheduled digests.
type Service struct {
	Subscriptions SubscriptionStore
	Cases         CaseSource
	Email         EmailSender

	// Workers bounds the dispatch pool so one slow email provider does
	// not serialize the whole run. Defaults to 4.
	Workers int
}

func (s *Service) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return defaultWorkers
}

// task is one (subscription, area alert) notification pair.
type task struct {
	sub  types.Subscription
	area types.AreaAlert
}

// CheckSubscriberThresholds is the periodic job entry point: find areas
// whose case count reached a subscriber's threshold, then notify every
// subscriber whose monitored area overlaps. Returns the number of
// notifications sent. Only a failed subscription list is run-fatal;
// per-subscriber failures are recorded in history and do not cancel
// siblings.
func (s *Service) CheckSubscriberThresholds(ctx context.Context) (int, error) {
	subscriptions, err := s.Subscriptions.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active subscriptions: %w", err)
	}

	areas := s.collectAreaAlerts(ctx, subscriptions)
	if len(areas) == 0 {
		log.Println("No bleaching thresholds reached")
		return 0, nil
	}

	var tasks []task
	for _, sub := range subscriptions {
		if !sub.HasLocation() {
			continue
		}
		for _, area := range areas {
			distance := geo.DistanceKM(*sub.Lat, *sub.Long, area.Lat, area.Long)
			if distance <= sub.MonitorRadiusKM() && area.BleachingCount >= sub.Threshold() {
				tasks = append(tasks, task{sub: sub, area: area})
			}
		}
	}

	sent := s.dispatch(ctx, tasks, func(ctx context.Context, t task) error {
		return s.sendThresholdAlert(ctx, t.sub, t.area)
	})

	log.Printf("Threshold check complete: %d area alerts, %d notifications sent of %d attempted",
		len(areas), sent, len(tasks))
	return sent, nil
}

// collectAreaAlerts builds one alert-worthy area summary per subscription
// whose monitored area reached its threshold. A failed case lookup skips
// that subscription, it does not fail the run.
func (s *Service) collectAreaAlerts(ctx context.Context, subscriptions []types.Subscription) []types.AreaAlert {
	var logBuilder strings.Builder
	addLog := func(format string, args ...interface{}) {
		logBuilder.WriteString(fmt.Sprintf(format, args...))
		logBuilder.WriteString("\n")
	}
	addLog("Checking bleaching thresholds for %d subscriptions", len(subscriptions))

	var areas []types.AreaAlert
	for i := range subscriptions {
		sub := &subscriptions[i]
		if !sub.HasLocation() {
			continue
		}

		cases, err := s.Cases.CasesInArea(ctx, *sub.Lat, *sub.Long, sub.MonitorRadiusKM(), thresholdWindowDays)
		if err != nil {
			addLog("Error fetching cases for subscription %s: %v. Skipping.", sub.ID, err)
			continue
		}
		if len(cases) < sub.Threshold() {
			continue
		}

		recent := cases
		if len(recent) > 10 {
			recent = recent[len(recent)-10:]
		}
		areas = append(areas, types.AreaAlert{
			AreaName:       sub.AreaName(),
			Lat:            *sub.Lat,
			Long:           *sub.Long,
			BleachingCount: len(cases),
			Threshold:      sub.Threshold(),
			RadiusKM:       sub.MonitorRadiusKM(),
			RecentCases:    recent,
			Severity:       classify.ThresholdSeverity(len(cases), sub.Threshold()),
		})
		addLog("Threshold reached for %s: %d cases (threshold %d)", sub.AreaName(), len(cases), sub.Threshold())
	}

	log.Print(logBuilder.String())
	return areas
}

// dispatch runs tasks on a bounded worker pool. Failures are isolated per
// task; cancellation is honored between task submissions.
func (s *Service) dispatch(ctx context.Context, tasks []task, fn func(context.Context, task) error) int {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
	)
	sem := make(chan struct{}, s.workers())

	for _, t := range tasks {
		if ctx.Err() != nil {
			log.Println("Fan-out cancelled; remaining tasks skipped")
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(t task) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(ctx, t); err != nil {
				log.Printf("Notification to %s failed: %v", t.sub.Email, err)
				return
			}
			mu.Lock()
			sent++
			mu.Unlock()
		}(t)
	}

	wg.Wait()
	return sent
}

// sendThresholdAlert records a pending history row, dispatches the email,
// then marks the row sent or failed.
func (s *Service) sendThresholdAlert(ctx context.Context, sub types.Subscription, area types.AreaAlert) error {
	record := &types.AlertHistory{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		AlertType:      types.AlertTypeThresholdReached,
		Title:          fmt.Sprintf("🚨 Bleaching Alert: %s", area.AreaName),
		Message:        fmt.Sprintf("Bleaching threshold reached: %d cases detected", area.BleachingCount),
		BleachingCount: area.BleachingCount,
		AffectedArea:   area.AreaName,
		Lat:            area.Lat,
		Long:           area.Long,
		DeliveryStatus: types.DeliveryPending,
	}
	if err := s.Subscriptions.AppendHistory(ctx, record); err != nil {
		return fmt.Errorf("recording history for %s: %w", sub.Email, err)
	}

	subject, html, text, err := BuildThresholdEmail(&sub, &area)
	if err == nil {
		err = s.Email.Send(sub.Email, subject, html, text)
	}

	if markErr := s.Subscriptions.MarkDelivery(ctx, record.ID, err == nil); markErr != nil {
		log.Printf("Failed to update delivery status for history %s: %v", record.ID, markErr)
	}
	if err != nil {
		return fmt.Errorf("sending alert to %s: %w", sub.Email, err)
	}
	return nil
}

// CleanupHistory deletes notification history older than the retention
// window.
func (s *Service) CleanupHistory(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -historyRetentionDays)
	return s.Subscriptions.PurgeHistoryBefore(ctx, cutoff)
}
