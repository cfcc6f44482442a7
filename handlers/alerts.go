package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"reefwatch/alerts"
	"reefwatch/types"
)

// generateRequest is the JSON body of the generation endpoint. Zero values
// fall back to engine defaults.
type generateRequest struct {
	MinBleachedCount   int     `json:"minBleachedCount"`
	ClusterRadiusKM    float64 `json:"clusterRadiusKm"`
	MinBleachingPct    float64 `json:"minBleachingPct"`
	RegenerateExisting bool    `json:"regenerateExisting"`
}

// GenerateAlertsHandler runs one generation pass over all analyzed
// observations.
func GenerateAlertsHandler(c *gin.Context, svc *alerts.Service) {
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	result, err := svc.GenerateAlerts(c.Request.Context(), alerts.GenerateParams{
		MinBleachedCount:   req.MinBleachedCount,
		ClusterRadiusKM:    req.ClusterRadiusKM,
		MinBleachingPct:    req.MinBleachingPct,
		RegenerateExisting: req.RegenerateExisting,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	errMessages := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errMessages = append(errMessages, e.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"alerts":  result.Alerts,
		"created": result.Created,
		"updated": result.Updated,
		"errors":  errMessages,
	})
}

// ListAlertsHandler lists alerts, optionally filtered by isActive and
// severity query parameters.
func ListAlertsHandler(c *gin.Context, svc *alerts.Service) {
	var filter types.AlertFilter
	switch c.Query("isActive") {
	case "true":
		v := true
		filter.IsActive = &v
	case "false":
		v := false
		filter.IsActive = &v
	case "":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "isActive must be true or false"})
		return
	}
	filter.Severity = types.Severity(c.Query("severity"))

	list, err := svc.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "count": len(list)})
}

// GetAlertHandler returns a single alert with its lifecycle status.
func GetAlertHandler(c *gin.Context, svc *alerts.Service) {
	alert, err := svc.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alert": alert, "status": alert.Status()})
}

// GetAlertSummaryHandler returns dashboard aggregates over the alert table.
func GetAlertSummaryHandler(c *gin.Context, svc *alerts.Service) {
	summary, err := svc.GetAlertSummary(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ResolveAlertHandler marks an alert resolved.
func ResolveAlertHandler(c *gin.Context, svc *alerts.Service) {
	if err := svc.ResolveAlert(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "alert resolved"})
}

// DeleteAlertHandler removes an alert entirely.
func DeleteAlertHandler(c *gin.Context, svc *alerts.Service) {
	if err := svc.DeleteAlert(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "alert deleted"})
}
