package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"

	"reefwatch/alerts"
	"reefwatch/cronjobs"
	"reefwatch/db"
	"reefwatch/geocode"
	"reefwatch/notify"
	"reefwatch/routes"
	"reefwatch/summarization"
)

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Init firestore
	firestoreClient, err := db.InitFirestore()
	if err != nil {
		log.Fatalf("Failed to initialize Firestore: %v", err)
	}
	defer db.CloseFirestore() // Firestore client is closed on exit

	// Geocoding is optional; alerts fall back to coordinate strings.
	geocoder := &geocode.Service{}
	if mapsClient, err := geocode.InitMapsClient(); err != nil {
		log.Printf("Maps client unavailable: %v. Using coordinate fallback.", err)
	} else {
		geocoder.Client = mapsClient
	}

	alertSvc := &alerts.Service{
		Observations: &db.ObservationStore{Client: firestoreClient},
		Store:        &db.AlertStore{Client: firestoreClient},
		Geocoder:     geocoder,
	}

	// Summaries are optional; alerts without narratives are still valid.
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		fmt.Println("OPENAI_API_KEY loaded")
		alertSvc.Summarizer = &summarization.Summarizer{Client: openai.NewClient(apiKey)}
	}

	// Email delivery through shoutrrr. Without SMTP_URL notifications are
	// logged and recorded as failed instead of sent.
	var sender notify.EmailSender
	if smtpURL := os.Getenv("SMTP_URL"); smtpURL != "" {
		s, err := notify.NewShoutrrrSender(smtpURL)
		if err != nil {
			log.Fatalf("Failed to configure email sender: %v", err)
		}
		sender = s
	} else {
		log.Println("SMTP_URL not set; email delivery disabled")
		sender = notify.DisabledSender{}
	}

	subscriptionStore := &db.SubscriptionStore{Client: firestoreClient}
	notifySvc := &notify.Service{
		Subscriptions: subscriptionStore,
		Cases:         &db.ObservationStore{Client: firestoreClient},
		Email:         sender,
	}

	// Initialize cron jobs
	scheduler := cronjobs.InitCronJobs(alertSvc, notifySvc)
	defer scheduler.Stop()

	r := routes.SetupRouter(alertSvc, notifySvc)
	if err := r.Run(":8080"); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
