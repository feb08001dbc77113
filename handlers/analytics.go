package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grant-dashboard/dashboard"
)

func (h *Handler) GetOverview(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
			return
		}
		days = n
	}
	ov, err := h.session.Overview(c.Request.Context(), days)
	if err != nil {
		h.log.Warn("Analytics overview failed", zap.Int("days", days), zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

// GetNotices drains the failed-change notices.
func (h *Handler) GetNotices(c *gin.Context) {
	notices := h.session.Notices()
	if notices == nil {
		notices = []dashboard.Notice{}
	}
	c.JSON(http.StatusOK, gin.H{"notices": notices})
}
