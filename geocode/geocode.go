package geocode

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"googlemaps.github.io/maps"
)

// mapsClient is a singleton maps client instance.
var (
	mapsClient *maps.Client
	clientOnce sync.Once
)

const requestTimeout = 5 * time.Second

// InitMapsClient initializes and returns a singleton Google Maps client.
func InitMapsClient() (*maps.Client, error) {
	var err error
	clientOnce.Do(func() {
		apiKey := os.Getenv("MAPS_CREDENTIALS")
		if apiKey == "" {
			err = fmt.Errorf("MAPS_CREDENTIALS environment variable not set")
			return
		}
		mapsClient, err = maps.NewClient(maps.WithAPIKey(apiKey))
		if err != nil {
			log.Fatalf("Failed to create maps client: %v", err)
		}
	})
	return mapsClient, err
}

// Service resolves coordinates to place names, best-effort. A nil Client
// always falls back to the coordinate string.
type Service struct {
	Client *maps.Client
}

// ReverseGeocode returns a human-readable name for the coordinates, or a
// formatted coordinate string when the lookup fails or times out. It never
// returns an error: geocoding must not block alert creation.
func (s *Service) ReverseGeocode(ctx context.Context, lat, long float64) string {
	fallback := FormatCoordinates(lat, long)
	if s.Client == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	results, err := s.Client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: long},
	})
	if err != nil {
		log.Printf("Reverse geocoding (%.4f, %.4f) failed: %v. Using coordinate string.", lat, long, err)
		return fallback
	}
	if len(results) == 0 {
		log.Printf("No reverse geocode results for (%.4f, %.4f)", lat, long)
		return fallback
	}
	return results[0].FormattedAddress
}

// FormatCoordinates is the fallback display name for a location.
func FormatCoordinates(lat, long float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, long)
}
