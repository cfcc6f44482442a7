package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reefwatch/geo"
	"reefwatch/types"
)

func pct(v float64) *float64 { return &v }

// memStore is an in-memory AlertStore with the same reconciliation
// semantics as the Firestore implementation.
type memStore struct {
	mu     sync.Mutex
	alerts map[string]*types.Alert

	failCreate bool
	failUpdate bool
}

func newMemStore() *memStore {
	return &memStore{alerts: map[string]*types.Alert{}}
}

func (m *memStore) FindNear(_ context.Context, lat, long, radiusKM float64) ([]types.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	box := geo.BoxAround(lat, long, radiusKM)
	var found []types.Alert
	for _, a := range m.alerts {
		if !box.Contains(a.Lat, a.Long) {
			continue
		}
		if geo.DistanceKM(lat, long, a.Lat, a.Long) <= radiusKM {
			found = append(found, *a)
		}
	}
	return found, nil
}

func (m *memStore) Create(_ context.Context, alert *types.Alert) error {
	if m.failCreate {
		return errors.New("store unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *alert
	m.alerts[alert.ID] = &cp
	return nil
}

func (m *memStore) Update(_ context.Context, id string, upd types.AlertUpdate) (*types.Alert, error) {
	if m.failUpdate {
		return nil, errors.New("store unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	a.LocationName = upd.LocationName
	a.Severity = upd.Severity
	a.TotalImagesAnalyzed = upd.TotalImagesAnalyzed
	a.BleachedCount = upd.BleachedCount
	a.AvgBleaching = upd.AvgBleaching
	a.AffectedObservationIDs = upd.AffectedObservationIDs
	a.LastUpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}

func (m *memStore) Resolve(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return types.ErrNotFound
	}
	now := time.Now().UTC()
	a.IsActive = false
	a.ResolvedAt = &now
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.alerts[id]; !ok {
		return types.ErrNotFound
	}
	delete(m.alerts, id)
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*types.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) List(_ context.Context, filter types.AlertFilter) ([]types.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Alert
	for _, a := range m.alerts {
		if filter.IsActive != nil && a.IsActive != *filter.IsActive {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memStore) Statistics(_ context.Context) (*types.AlertSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := &types.AlertSummary{}
	var pctSum float64
	for _, a := range m.alerts {
		summary.TotalAlerts++
		if a.IsActive {
			summary.ActiveAlerts++
		}
		switch a.Severity {
		case types.SeverityCritical:
			summary.CriticalAlerts++
		case types.SeverityHigh:
			summary.HighAlerts++
		case types.SeverityModerate:
			summary.ModerateAlerts++
		case types.SeverityLow:
			summary.LowAlerts++
		}
		summary.TotalAffectedCorals += a.BleachedCount
		pctSum += a.AvgBleaching
	}
	summary.ResolvedAlerts = summary.TotalAlerts - summary.ActiveAlerts
	if summary.TotalAlerts > 0 {
		summary.AvgBleaching = pctSum / float64(summary.TotalAlerts)
	}
	return summary, nil
}

type memObservations struct {
	observations []types.Observation
	err          error
}

func (m *memObservations) ListWithAnalysis(context.Context, types.ObservationFilter) ([]types.Observation, error) {
	return m.observations, m.err
}

type staticGeocoder struct{ name string }

func (g staticGeocoder) ReverseGeocode(context.Context, float64, float64) string { return g.name }

func makeObservations(n int, lat, long, bleaching float64, label string) []types.Observation {
	observations := make([]types.Observation, 0, n)
	for i := 0; i < n; i++ {
		observations = append(observations, types.Observation{
			ID:                  fmt.Sprintf("obs-%d", i),
			Lat:                 lat + float64(i%10)*0.001,
			Long:                long + float64(i%10)*0.001,
			Label:               label,
			BleachingPercentage: pct(bleaching),
		})
	}
	return observations
}

func newTestService(store *memStore, observations []types.Observation) *Service {
	return &Service{
		Observations: &memObservations{observations: observations},
		Store:        store,
		Geocoder:     staticGeocoder{name: "Palawan, Philippines"},
	}
}

func TestGenerateAlertsEndToEnd(t *testing.T) {
	// 250 observations within 5km of (10.0, 120.0), 65% bleaching each.
	store := newMemStore()
	svc := newTestService(store, makeObservations(250, 10.0, 120.0, 65, "polar_white_bleaching"))

	result, err := svc.GenerateAlerts(context.Background(), GenerateParams{
		MinBleachedCount: 200,
		ClusterRadiusKM:  50,
	})
	require.NoError(t, err)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, 1, result.Created)
	assert.Zero(t, result.Updated)
	assert.Empty(t, result.Errors)

	alert := result.Alerts[0]
	assert.Equal(t, types.SeverityHigh, alert.Severity) // avg>=60 and count>=200
	assert.Equal(t, 250, alert.BleachedCount)
	assert.Equal(t, 250, alert.TotalImagesAnalyzed)
	assert.InDelta(t, 65.0, alert.AvgBleaching, 0.01)
	assert.True(t, alert.IsActive)
	assert.Nil(t, alert.ResolvedAt)
	assert.Equal(t, "Palawan, Philippines", alert.LocationName)
	assert.Equal(t, 200, alert.AlertThreshold)
	assert.Len(t, alert.AffectedObservationIDs, 250)
	assert.Contains(t, alert.Description, "high level bleaching event")
	assert.Contains(t, alert.Recommendations, "Increase monitoring frequency")
}

func TestGenerateAlertsThresholdBoundary(t *testing.T) {
	// Exactly minBleachedCount members triggers creation.
	store := newMemStore()
	svc := newTestService(store, makeObservations(200, 10.0, 120.0, 50, "bleached"))
	result, err := svc.GenerateAlerts(context.Background(), GenerateParams{MinBleachedCount: 200, ClusterRadiusKM: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	// One fewer does not.
	store = newMemStore()
	svc = newTestService(store, makeObservations(199, 10.0, 120.0, 50, "bleached"))
	result, err = svc.GenerateAlerts(context.Background(), GenerateParams{MinBleachedCount: 200, ClusterRadiusKM: 50})
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Empty(t, result.Alerts)
}

func TestGenerateAlertsIdempotentReconciliation(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, makeObservations(250, 10.0, 120.0, 65, "bleached"))
	params := GenerateParams{MinBleachedCount: 200, ClusterRadiusKM: 50}

	first, err := svc.GenerateAlerts(context.Background(), params)
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)
	firstAlert := first.Alerts[0]

	second, err := svc.GenerateAlerts(context.Background(), params)
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Equal(t, 1, second.Updated)
	require.Len(t, store.alerts, 1) // no duplicate row

	updated := second.Alerts[0]
	assert.Equal(t, firstAlert.ID, updated.ID)
	assert.Equal(t, firstAlert.FirstDetectedAt, updated.FirstDetectedAt)
	assert.Nil(t, updated.ResolvedAt)
	assert.False(t, updated.LastUpdatedAt.Before(firstAlert.LastUpdatedAt))
}

func TestGenerateAlertsRegenerateCreatesFreshRow(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, makeObservations(250, 10.0, 120.0, 65, "bleached"))
	params := GenerateParams{MinBleachedCount: 200, ClusterRadiusKM: 50}

	first, err := svc.GenerateAlerts(context.Background(), params)
	require.NoError(t, err)

	params.RegenerateExisting = true
	second, err := svc.GenerateAlerts(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Created)
	assert.NotEqual(t, first.Alerts[0].ID, second.Alerts[0].ID)
	assert.Len(t, store.alerts, 2)
}

func TestGenerateAlertsInputValidation(t *testing.T) {
	svc := newTestService(newMemStore(), nil)

	_, err := svc.GenerateAlerts(context.Background(), GenerateParams{MinBleachedCount: -1})
	assert.Error(t, err)

	_, err = svc.GenerateAlerts(context.Background(), GenerateParams{ClusterRadiusKM: -5})
	assert.Error(t, err)

	_, err = svc.GenerateAlerts(context.Background(), GenerateParams{MinBleachingPct: 150})
	assert.Error(t, err)
}

func TestGenerateAlertsObservationReadFatal(t *testing.T) {
	svc := &Service{
		Observations: &memObservations{err: errors.New("backend down")},
		Store:        newMemStore(),
		Geocoder:     staticGeocoder{name: "x"},
	}
	_, err := svc.GenerateAlerts(context.Background(), GenerateParams{})
	require.Error(t, err)
}

func TestGenerateAlertsStoreFailureDoesNotAbortRun(t *testing.T) {
	// Two clusters far apart; creation fails for both but the run itself
	// succeeds and reports the errors.
	observations := append(
		makeObservations(10, 10.0, 120.0, 60, "bleached"),
		makeObservations(10, 20.0, 140.0, 60, "bleached")...)
	// Re-key second batch to keep IDs unique.
	for i := 10; i < 20; i++ {
		observations[i].ID = fmt.Sprintf("obs-b-%d", i)
	}
	store := newMemStore()
	store.failCreate = true
	svc := newTestService(store, observations)

	result, err := svc.GenerateAlerts(context.Background(), GenerateParams{MinBleachedCount: 5, ClusterRadiusKM: 50})
	require.NoError(t, err)
	assert.Len(t, result.Errors, 2)
	assert.Empty(t, result.Alerts)
}

func TestGenerateAlertsNoObservations(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	result, err := svc.GenerateAlerts(context.Background(), GenerateParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)
	assert.Empty(t, result.Errors)
}

func TestGenerateAlertsHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newMemStore()
	svc := newTestService(store, makeObservations(10, 10.0, 120.0, 60, "bleached"))
	result, err := svc.GenerateAlerts(ctx, GenerateParams{MinBleachedCount: 5, ClusterRadiusKM: 50})
	require.NoError(t, err)
	assert.Empty(t, result.Alerts)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], context.Canceled)
}

func TestResolveAlertSemantics(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, makeObservations(10, 10.0, 120.0, 60, "bleached"))
	result, err := svc.GenerateAlerts(context.Background(), GenerateParams{MinBleachedCount: 5, ClusterRadiusKM: 50})
	require.NoError(t, err)
	id := result.Alerts[0].ID

	require.NoError(t, svc.ResolveAlert(context.Background(), id))

	alert, err := svc.GetAlert(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, alert.IsActive)
	require.NotNil(t, alert.ResolvedAt)
	assert.Equal(t, types.StatusResolved, alert.Status())

	assert.ErrorIs(t, svc.ResolveAlert(context.Background(), "missing"), types.ErrNotFound)
}

func TestDeleteAlertSemantics(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, makeObservations(10, 10.0, 120.0, 60, "bleached"))
	result, err := svc.GenerateAlerts(context.Background(), GenerateParams{MinBleachedCount: 5, ClusterRadiusKM: 50})
	require.NoError(t, err)
	id := result.Alerts[0].ID

	require.NoError(t, svc.DeleteAlert(context.Background(), id))

	_, err = svc.GetAlert(context.Background(), id)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteAlert(context.Background(), id), types.ErrNotFound)
}

func TestGetAlertSummary(t *testing.T) {
	store := newMemStore()
	seed := func(id string, severity types.Severity, bleached int, avg float64, active bool) {
		a := &types.Alert{ID: id, Severity: severity, BleachedCount: bleached, AvgBleaching: avg, IsActive: active}
		store.alerts[id] = a
	}
	seed("a", types.SeverityCritical, 400, 85, true)
	seed("b", types.SeverityHigh, 250, 65, true)
	seed("c", types.SeverityLow, 20, 25, false)

	svc := &Service{Store: store}
	summary, err := svc.GetAlertSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalAlerts)
	assert.Equal(t, 2, summary.ActiveAlerts)
	assert.Equal(t, 1, summary.ResolvedAlerts)
	assert.Equal(t, 1, summary.CriticalAlerts)
	assert.Equal(t, 1, summary.HighAlerts)
	assert.Equal(t, 1, summary.LowAlerts)
	assert.Equal(t, 670, summary.TotalAffectedCorals)
	assert.InDelta(t, (85.0+65+25)/3, summary.AvgBleaching, 1e-9)

	require.Len(t, summary.MostAffected, 2)
	assert.Equal(t, "a", summary.MostAffected[0].ID)
}

func TestAlertStatusStates(t *testing.T) {
	now := time.Now()
	active := &types.Alert{IsActive: true}
	deactivated := &types.Alert{IsActive: false}
	resolved := &types.Alert{IsActive: false, ResolvedAt: &now}

	assert.Equal(t, types.StatusActive, active.Status())
	assert.Equal(t, types.StatusDeactivated, deactivated.Status())
	assert.Equal(t, types.StatusResolved, resolved.Status())
}
