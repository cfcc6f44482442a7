package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/k3a/html2text"

	"reefwatch/types"
)

const appName = "Smart Coral Diagnostics"

var thresholdEmailTmpl = template.Must(template.New("threshold").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Coral Bleaching Alert</title>
</head>
<body style="font-family: Arial, sans-serif; color: #2c3e50; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background-color: #e74c3c; color: white; padding: 20px; border-radius: 8px; text-align: center;">
		<h1>🚨 Coral Bleaching Alert</h1>
		<div><strong>{{.SeverityUpper}} SEVERITY</strong></div>
	</div>

	<h2>Alert Details</h2>
	<p><strong>Location:</strong> {{.AreaName}}</p>
	<p><strong>Coordinates:</strong> {{printf "%.4f" .Lat}}, {{printf "%.4f" .Long}}</p>
	<p><strong>Alert Time:</strong> {{.CurrentTime}}</p>

	<h3>Bleaching Statistics</h3>
	<ul>
		<li>Cases Detected: <strong>{{.BleachingCount}}</strong></li>
		<li>Threshold: <strong>{{.Threshold}}</strong></li>
		<li>Exceeded by: <strong>{{.ExceededBy}} cases</strong></li>
		<li>Monitoring Radius: <strong>{{printf "%.0f" .RadiusKM}} km</strong></li>
	</ul>

	<h3>Recent Cases</h3>
	<p>The following recent bleaching cases have been detected in your monitoring area:</p>
	<ul>
	{{range .RecentCases}}
		<li><strong>{{if .Name}}{{.Name}}{{else}}Unnamed{{end}}</strong> - {{printf "%.0f" .BleachingPercentage}}% bleaching detected{{if .ObservedAt}} ({{.ObservedAt}}){{end}}</li>
	{{end}}
	</ul>

	<p><strong>⚠️ Action Required:</strong> This area has exceeded the bleaching threshold.
	Consider immediate conservation actions or contact local marine authorities.</p>

	<p>This alert was sent because the number of bleaching cases in your monitored area
	has reached or exceeded your threshold of {{.Threshold}} cases.</p>

	<p style="font-size: 12px; color: #666;">This is an automated alert from {{.AppName}}.<br>
	To manage your alert preferences, visit your account settings.</p>
</body>
</html>`))

type thresholdEmailData struct {
	AppName        string
	AreaName       string
	Lat, Long      float64
	BleachingCount int
	Threshold      int
	ExceededBy     int
	RadiusKM       float64
	SeverityUpper  string
	CurrentTime    string
	RecentCases    []types.BleachingCase
}

// BuildThresholdEmail renders the subject, HTML body and text alternative
// for a threshold-reached alert.
func BuildThresholdEmail(sub *types.Subscription, area *types.AreaAlert) (subject, html, text string, err error) {
	subject = fmt.Sprintf("🚨 Coral Bleaching Alert: %s", area.AreaName)

	recent := area.RecentCases
	if len(recent) > 5 {
		recent = recent[:5]
	}
	data := thresholdEmailData{
		AppName:        appName,
		AreaName:       area.AreaName,
		Lat:            area.Lat,
		Long:           area.Long,
		BleachingCount: area.BleachingCount,
		Threshold:      area.Threshold,
		ExceededBy:     area.BleachingCount - area.Threshold,
		RadiusKM:       area.RadiusKM,
		SeverityUpper:  strings.ToUpper(string(area.Severity)),
		CurrentTime:    time.Now().UTC().Format("2006-01-02 15:04:05 UTC"),
		RecentCases:    recent,
	}

	var buf strings.Builder
	if err = thresholdEmailTmpl.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("rendering threshold email: %w", err)
	}
	html = buf.String()
	text = html2text.HTML2Text(html)
	return subject, html, text, nil
}
