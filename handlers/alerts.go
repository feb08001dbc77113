package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"grant-dashboard/models"
)

func (h *Handler) GetAlerts(c *gin.Context) {
	list := h.session.Alerts.List()
	c.JSON(http.StatusOK, models.AlertList{Alerts: list, Total: len(list)})
}

func (h *Handler) CreateAlert(c *gin.Context) {
	var in models.AlertInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Name == "" || in.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
		return
	}

	tmp, m := h.session.Alerts.Create(in)
	if !h.settle(c, m) {
		return
	}
	id, ok := h.session.Alerts.ServerID(tmp)
	if !ok {
		id = tmp
	}
	a, _ := h.session.Alerts.Get(id)
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	var patch models.AlertPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !h.settle(c, h.session.Alerts.Update(id, patch)) {
		return
	}
	h.writeAlert(c, id)
}

func (h *Handler) ToggleAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	if !h.settle(c, h.session.Alerts.Toggle(id)) {
		return
	}
	h.writeAlert(c, id)
}

func (h *Handler) DeleteAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	if !h.settle(c, h.session.Alerts.Delete(id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// AlertMatches previews which loaded grants the alert would match.
func (h *Handler) AlertMatches(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	grants, err := h.session.AlertMatches(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.GrantPage{Grants: grants, Total: len(grants)})
}

func (h *Handler) writeAlert(c *gin.Context, id int64) {
	a, ok := h.session.Alerts.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}

func alertID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return 0, false
	}
	return id, true
}
