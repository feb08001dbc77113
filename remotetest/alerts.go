package remotetest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"grant-dashboard/models"
)

func validSource(src *string) bool {
	if src == nil || *src == "" {
		return true
	}
	switch *src {
	case "BOE", "BDNS", "PLACSP":
		return true
	}
	return false
}

func (s *Server) listAlerts(c *gin.Context) {
	var rows []alertRow
	if err := s.DB.Where("user_id = ?", userID(c)).Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	list := models.AlertList{Alerts: make([]models.Alert, 0, len(rows)), Total: len(rows)}
	for _, r := range rows {
		list.Alerts = append(list.Alerts, r.model())
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createAlert(c *gin.Context) {
	var in models.AlertInput
	if err := c.ShouldBindJSON(&in); err != nil {
		detail(c, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if strings.TrimSpace(in.Name) == "" || !strings.Contains(in.Email, "@") {
		detail(c, http.StatusUnprocessableEntity, "name and a valid email are required")
		return
	}
	if !validSource(in.Source) {
		detail(c, http.StatusBadRequest, "Invalid source. Must be BOE, BDNS, or PLACSP")
		return
	}

	row := alertRow{
		UserID:      userID(c),
		Name:        in.Name,
		Email:       in.Email,
		Keywords:    in.Keywords,
		Source:      in.Source,
		MinBudget:   in.MinBudget,
		MaxBudget:   in.MaxBudget,
		IsNonprofit: in.IsNonprofit,
		Regions:     in.Regions,
		Sectors:     in.Sectors,
		IsActive:    true,
	}
	if err := s.DB.Create(&row).Error; err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, row.model())
}

// ownAlert loads the alert named in the path if it belongs to the caller.
// It writes the error response itself and returns false on failure.
func (s *Server) ownAlert(c *gin.Context) (alertRow, bool) {
	var row alertRow
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, "invalid alert id")
		return row, false
	}
	err = s.DB.Where("id = ? AND user_id = ?", id, userID(c)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		detail(c, http.StatusNotFound, "Alert not found")
		return row, false
	}
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return row, false
	}
	return row, true
}

func (s *Server) updateAlert(c *gin.Context) {
	row, ok := s.ownAlert(c)
	if !ok {
		return
	}
	var patch models.AlertPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		detail(c, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	if !validSource(patch.Source) {
		detail(c, http.StatusBadRequest, "Invalid source. Must be BOE, BDNS, or PLACSP")
		return
	}

	a := patch.Apply(row.model())
	row.Name, row.Email = a.Name, a.Email
	row.Keywords, row.Source = a.Keywords, a.Source
	row.MinBudget, row.MaxBudget = a.MinBudget, a.MaxBudget
	row.IsNonprofit = a.IsNonprofit
	row.Regions, row.Sectors = a.Regions, a.Sectors
	row.IsActive = a.Active
	if err := s.DB.Save(&row).Error; err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, row.model())
}

func (s *Server) deleteAlert(c *gin.Context) {
	row, ok := s.ownAlert(c)
	if !ok {
		return
	}
	if err := s.DB.Delete(&row).Error; err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alert deleted"})
}

func (s *Server) toggleAlert(c *gin.Context) {
	row, ok := s.ownAlert(c)
	if !ok {
		return
	}
	row.IsActive = !row.IsActive
	if err := s.DB.Save(&row).Error; err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, row.model())
}
