package cronjobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"reefwatch/alerts"
	"reefwatch/notify"
)

const jobTimeout = 10 * time.Minute

// InitCronJobs schedules the recurring engine work: alert generation,
// subscriber threshold checks, weekly and monthly digests, and history
// cleanup. Returns the running scheduler so callers can Stop it on
// shutdown.
func InitCronJobs(alertSvc *alerts.Service, notifySvc *notify.Service) *cron.Cron {
	log.Println("\nStarting Cron Jobs -------------------------------------------------------")
	c := cron.New()

	// Alert generation: every 30 minutes
	_, err := c.AddFunc("*/30 * * * *", func() {
		log.Println("\nCronJob: Alert Generation Running")
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := alertSvc.GenerateAlerts(ctx, alerts.GenerateParams{}); err != nil {
			log.Println("Alert generation failed:", err)
		}
	})
	if err != nil {
		log.Println("Error scheduling Alert Generation:", err)
	}

	// Subscriber threshold check: every 15 minutes
	_, err = c.AddFunc("*/15 * * * *", func() {
		log.Println("\nCronJob: Subscriber Threshold Check Running")
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := notifySvc.CheckSubscriberThresholds(ctx); err != nil {
			log.Println("Threshold check failed:", err)
		}
	})
	if err != nil {
		log.Println("Error scheduling Threshold Check:", err)
	}

	// Weekly digest: Sundays at 09:00
	_, err = c.AddFunc("0 9 * * 0", func() {
		log.Println("\nCronJob: Weekly Digest Running")
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := notifySvc.SendDigest(ctx, notify.DigestWeekly); err != nil {
			log.Println("Weekly digest failed:", err)
		}
	})
	if err != nil {
		log.Println("Error scheduling Weekly Digest:", err)
	}

	// Monthly digest: first of the month at 10:00
	_, err = c.AddFunc("0 10 1 * *", func() {
		log.Println("\nCronJob: Monthly Digest Running")
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := notifySvc.SendDigest(ctx, notify.DigestMonthly); err != nil {
			log.Println("Monthly digest failed:", err)
		}
	})
	if err != nil {
		log.Println("Error scheduling Monthly Digest:", err)
	}

	// History cleanup: daily at 03:00
	_, err = c.AddFunc("0 3 * * *", func() {
		log.Println("\nCronJob: History Cleanup Running")
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		purged, err := notifySvc.CleanupHistory(ctx)
		if err != nil {
			log.Println("History cleanup failed:", err)
			return
		}
		log.Printf("History cleanup purged %d records", purged)
	})
	if err != nil {
		log.Println("Error scheduling History Cleanup:", err)
	}

	c.Start()
	return c
}
