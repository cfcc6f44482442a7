package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reefwatch/types"
)

func TestSendDigest_WeeklyFiltersOptIn(t *testing.T) {
	weekly := testSubscription("sub-w", "weekly@example.com", 18.5, -87.9)
	weekly.WeeklyReports = true
	monthly := testSubscription("sub-m", "monthly@example.com", 18.5, -87.9)
	monthly.MonthlyReports = true
	neither := testSubscription("sub-n", "none@example.com", 18.5, -87.9)

	subs := &memSubscriptions{subs: []types.Subscription{weekly, monthly, neither}}
	cases := &memCases{byArea: map[string][]types.BleachingCase{
		areaKey(18.5, -87.9): makeCases(8, 60),
	}}
	sender := &memSender{}
	svc := &Service{Subscriptions: subs, Cases: cases, Email: sender}

	sent, err := svc.SendDigest(context.Background(), DigestWeekly)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "weekly@example.com", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, "Weekly Coral Bleaching Report")

	rows := subs.historyByStatus(types.DeliverySent)
	require.Len(t, rows, 1)
	assert.Equal(t, types.AlertTypeWeeklyReport, rows[0].AlertType)
}

func TestSendDigest_MonthlyUsesMonthlyType(t *testing.T) {
	sub := testSubscription("sub-m", "monthly@example.com", 18.5, -87.9)
	sub.MonthlyReports = true
	subs := &memSubscriptions{subs: []types.Subscription{sub}}
	sender := &memSender{}
	svc := &Service{Subscriptions: subs, Cases: &memCases{}, Email: sender}

	sent, err := svc.SendDigest(context.Background(), DigestMonthly)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	rows := subs.historyByStatus(types.DeliverySent)
	require.Len(t, rows, 1)
	assert.Equal(t, types.AlertTypeMonthlyReport, rows[0].AlertType)
	assert.Contains(t, sender.sent[0].Subject, "Monthly")
}

func TestSendDigest_AlwaysSendsEvenWithNoCases(t *testing.T) {
	// Digests are unconditional: no threshold gate, and a subscription
	// without a location still gets an (empty) report.
	located := testSubscription("sub-1", "located@example.com", 18.5, -87.9)
	located.WeeklyReports = true
	nowhere := types.Subscription{ID: "sub-2", Email: "nowhere@example.com", IsActive: true, WeeklyReports: true}

	subs := &memSubscriptions{subs: []types.Subscription{located, nowhere}}
	sender := &memSender{}
	svc := &Service{Subscriptions: subs, Cases: &memCases{}, Email: sender}

	sent, err := svc.SendDigest(context.Background(), DigestWeekly)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	for _, email := range sender.sent {
		assert.Contains(t, email.HTML, "No bleaching cases detected")
	}
}

func TestSendDigest_UnknownPeriodRejected(t *testing.T) {
	svc := &Service{Subscriptions: &memSubscriptions{}, Cases: &memCases{}, Email: &memSender{}}
	_, err := svc.SendDigest(context.Background(), DigestPeriod("daily"))
	require.Error(t, err)
}

func TestSendDigest_SendFailureMarkedFailed(t *testing.T) {
	sub := testSubscription("sub-1", "broken@example.com", 18.5, -87.9)
	sub.WeeklyReports = true
	subs := &memSubscriptions{subs: []types.Subscription{sub}}
	sender := &memSender{failTo: map[string]bool{"broken@example.com": true}}
	svc := &Service{Subscriptions: subs, Cases: &memCases{}, Email: sender}

	sent, err := svc.SendDigest(context.Background(), DigestWeekly)
	require.NoError(t, err)
	assert.Zero(t, sent)

	rows := subs.historyByStatus(types.DeliveryFailed)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].EmailSent)
}

func TestComputeDigestStats_SeverityBuckets(t *testing.T) {
	sub := testSubscription("sub-1", "diver@example.com", 18.5, -87.9)
	day := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	cases := []types.BleachingCase{
		{BleachingPercentage: 80, AnalyzedAt: day},
		{BleachingPercentage: 50, AnalyzedAt: day},            // boundary: high
		{BleachingPercentage: 49.9, AnalyzedAt: day.AddDate(0, 0, 1)}, // medium
		{BleachingPercentage: 25, AnalyzedAt: day.AddDate(0, 0, 1)},   // boundary: medium
		{BleachingPercentage: 24.9, AnalyzedAt: day.AddDate(0, 0, 2)}, // low
		{BleachingPercentage: 0, AnalyzedAt: day.AddDate(0, 0, 2)},    // zero: unbucketed
	}

	stats := computeDigestStats(&sub, DigestWeekly, cases)
	assert.Equal(t, 6, stats.TotalCases)
	assert.Equal(t, 2, stats.HighSeverity)
	assert.Equal(t, 2, stats.MediumSeverity)
	assert.Equal(t, 1, stats.LowSeverity)
	assert.InDelta(t, 38.3, stats.AvgBleaching, 0.05)
	assert.InDelta(t, 0.9, stats.AvgDaily, 0.05)
	assert.Equal(t, 2, stats.PeakDay)
}

func TestComputeDigestStats_RecentCapsAtFive(t *testing.T) {
	sub := testSubscription("sub-1", "diver@example.com", 18.5, -87.9)
	cases := make([]types.BleachingCase, 8)
	for i := range cases {
		cases[i] = types.BleachingCase{
			ID:                  fmt.Sprintf("case-%d", i),
			BleachingPercentage: 30,
			AnalyzedAt:          time.Now().UTC(),
		}
	}

	stats := computeDigestStats(&sub, DigestMonthly, cases)
	require.Len(t, stats.RecentCases, 5)
	assert.Equal(t, "case-3", stats.RecentCases[0].ID)
	assert.Equal(t, "case-7", stats.RecentCases[4].ID)
}
