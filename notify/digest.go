package notify

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/k3a/html2text"

	"reefwatch/types"
)

// DigestPeriod selects the trailing window of a scheduled report.
type DigestPeriod string

const (
	DigestWeekly  DigestPeriod = "weekly"
	DigestMonthly DigestPeriod = "monthly"
)

func (p DigestPeriod) days() int {
	if p == DigestMonthly {
		return 30
	}
	return 7
}

func (p DigestPeriod) alertType() string {
	if p == DigestMonthly {
		return types.AlertTypeMonthlyReport
	}
	return types.AlertTypeWeeklyReport
}

// SendDigest recomputes per-subscription statistics over the trailing
// window and sends the report to every opted-in subscriber. Digests always
// send, independent of threshold crossing. Returns the number of reports
// sent; only a failed subscription list is run-fatal.
func (s *Service) SendDigest(ctx context.Context, period DigestPeriod) (int, error) {
	if period != DigestWeekly && period != DigestMonthly {
		return 0, fmt.Errorf("unknown digest period %q", period)
	}

	subscriptions, err := s.Subscriptions.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active subscriptions: %w", err)
	}

	var eligible []types.Subscription
	for _, sub := range subscriptions {
		if period == DigestWeekly && !sub.WeeklyReports {
			continue
		}
		if period == DigestMonthly && !sub.MonthlyReports {
			continue
		}
		eligible = append(eligible, sub)
	}

	sent := 0
	for i := range eligible {
		if ctx.Err() != nil {
			log.Printf("Digest run cancelled after %d reports", sent)
			break
		}
		if err := s.sendDigestReport(ctx, &eligible[i], period); err != nil {
			log.Printf("Failed to send %s report to %s: %v", period, eligible[i].Email, err)
			continue
		}
		sent++
	}

	log.Printf("Sent %d %s reports to %d eligible subscribers", sent, period, len(eligible))
	return sent, nil
}

func (s *Service) sendDigestReport(ctx context.Context, sub *types.Subscription, period DigestPeriod) error {
	var cases []types.BleachingCase
	if sub.HasLocation() {
		var err error
		cases, err = s.Cases.CasesInArea(ctx, *sub.Lat, *sub.Long, sub.MonitorRadiusKM(), period.days())
		if err != nil {
			// Degraded report: send with no cases rather than skipping.
			log.Printf("Error fetching cases for %s digest to %s: %v. Sending empty report.",
				period, sub.Email, err)
			cases = nil
		}
	}

	stats := computeDigestStats(sub, period, cases)
	subject, html, text, err := buildDigestEmail(period, stats)
	if err != nil {
		return err
	}

	record := &types.AlertHistory{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		AlertType:      period.alertType(),
		Title:          subject,
		Message:        fmt.Sprintf("%d bleaching cases in the trailing %d days", stats.TotalCases, period.days()),
		BleachingCount: stats.TotalCases,
		AffectedArea:   stats.AreaName,
		DeliveryStatus: types.DeliveryPending,
	}
	if err := s.Subscriptions.AppendHistory(ctx, record); err != nil {
		return fmt.Errorf("recording history: %w", err)
	}

	sendErr := s.Email.Send(sub.Email, subject, html, text)
	if markErr := s.Subscriptions.MarkDelivery(ctx, record.ID, sendErr == nil); markErr != nil {
		log.Printf("Failed to update delivery status for history %s: %v", record.ID, markErr)
	}
	return sendErr
}

// digestStats is the per-subscription report content. Severity buckets are
// per-case bleaching percentages: high >=50, medium 25-49, low below 25.
type digestStats struct {
	AreaName       string
	PeriodStart    string
	PeriodEnd      string
	TotalCases     int
	HighSeverity   int
	MediumSeverity int
	LowSeverity    int
	AvgBleaching   float64
	AvgDaily       float64
	PeakDay        int
	RecentCases    []types.BleachingCase
}

func computeDigestStats(sub *types.Subscription, period DigestPeriod, cases []types.BleachingCase) digestStats {
	now := time.Now().UTC()
	stats := digestStats{
		AreaName:    sub.AreaName(),
		PeriodStart: now.AddDate(0, 0, -period.days()).Format("2006-01-02"),
		PeriodEnd:   now.Format("2006-01-02"),
		TotalCases:  len(cases),
	}

	perDay := map[string]int{}
	var pctSum float64
	for _, c := range cases {
		switch {
		case c.BleachingPercentage >= 50:
			stats.HighSeverity++
		case c.BleachingPercentage >= 25:
			stats.MediumSeverity++
		case c.BleachingPercentage > 0:
			stats.LowSeverity++
		}
		pctSum += c.BleachingPercentage
		day := c.AnalyzedAt.UTC().Format("2006-01-02")
		perDay[day]++
		if perDay[day] > stats.PeakDay {
			stats.PeakDay = perDay[day]
		}
	}

	if stats.TotalCases > 0 {
		stats.AvgBleaching = math.Round(pctSum/float64(stats.TotalCases)*10) / 10
		stats.AvgDaily = math.Round(float64(stats.TotalCases)/float64(period.days())*10) / 10
	}

	recent := cases
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	stats.RecentCases = recent
	return stats
}

var digestEmailTmpl = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>{{.PeriodTitle}} Coral Bleaching Report</title>
</head>
<body style="font-family: Arial, sans-serif; color: #2c3e50; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background-color: #17a2b8; color: white; padding: 20px; border-radius: 8px; text-align: center;">
		<h1>📊 {{.PeriodTitle}} Coral Bleaching Report</h1>
		<p>{{.Stats.AreaName}} • {{.Stats.PeriodStart}} to {{.Stats.PeriodEnd}}</p>
	</div>

	<h2>Summary</h2>
	<ul>
		<li>Bleaching Cases: <strong>{{.Stats.TotalCases}}</strong></li>
		<li>High Severity (≥50%): <strong>{{.Stats.HighSeverity}}</strong></li>
		<li>Medium Severity (25-49%): <strong>{{.Stats.MediumSeverity}}</strong></li>
		<li>Low Severity (&lt;25%): <strong>{{.Stats.LowSeverity}}</strong></li>
		{{if gt .Stats.TotalCases 0}}
		<li>Average Bleaching: <strong>{{.Stats.AvgBleaching}}%</strong></li>
		<li>Average Daily Cases: <strong>{{.Stats.AvgDaily}}</strong></li>
		<li>Peak Day: <strong>{{.Stats.PeakDay}} cases</strong></li>
		{{end}}
	</ul>

	<h3>Recent Activity</h3>
	{{if .Stats.RecentCases}}
	<ul>
	{{range .Stats.RecentCases}}
		<li><strong>{{if .Name}}{{.Name}}{{else}}Unnamed{{end}}</strong> - {{printf "%.0f" .BleachingPercentage}}% bleaching{{if .ObservedAt}} ({{.ObservedAt}}){{end}}</li>
	{{end}}
	</ul>
	{{else}}
	<p>No bleaching cases detected in your monitoring area this period.</p>
	{{end}}

	<p style="font-size: 12px; color: #666;">This is your {{.PeriodName}} automated report from {{.AppName}}.<br>
	To manage your alert preferences, visit your account settings.</p>
</body>
</html>`))

func buildDigestEmail(period DigestPeriod, stats digestStats) (subject, html, text string, err error) {
	periodTitle := "Weekly"
	if period == DigestMonthly {
		periodTitle = "Monthly"
	}
	subject = fmt.Sprintf("📊 %s Coral Bleaching Report - %s", periodTitle, stats.AreaName)

	var buf strings.Builder
	err = digestEmailTmpl.Execute(&buf, struct {
		AppName     string
		PeriodTitle string
		PeriodName  string
		Stats       digestStats
	}{
		AppName:     appName,
		PeriodTitle: periodTitle,
		PeriodName:  string(period),
		Stats:       stats,
	})
	if err != nil {
		return "", "", "", fmt.Errorf("rendering %s digest email: %w", period, err)
	}
	html = buf.String()
	text = html2text.HTML2Text(html)
	return subject, html, text, nil
}
