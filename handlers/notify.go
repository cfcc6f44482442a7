package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reefwatch/notify"
)

// CheckThresholdsHandler triggers the subscriber-threshold fan-out on
// demand. The same path runs on the cron schedule.
func CheckThresholdsHandler(c *gin.Context, svc *notify.Service) {
	sent, err := svc.CheckSubscriberThresholds(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notificationsSent": sent})
}

// SendDigestHandler triggers a weekly or monthly digest run on demand.
func SendDigestHandler(c *gin.Context, svc *notify.Service) {
	period := notify.DigestPeriod(c.Param("period"))
	sent, err := svc.SendDigest(c.Request.Context(), period)
	if err != nil {
		if period != notify.DigestWeekly && period != notify.DigestMonthly {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reportsSent": sent, "period": period})
}
