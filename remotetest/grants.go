package remotetest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"grant-dashboard/models"
)

var dateColumns = map[string]string{
	"deadline":    "application_end_date",
	"publication": "publication_date",
	"captured":    "captured_at",
}

var sortColumns = map[string]bool{
	"application_end_date": true,
	"publication_date":     true,
	"captured_at":          true,
	"budget_amount":        true,
	"nonprofit_confidence": true,
	"title":                true,
}

func (s *Server) listGrants(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		detail(c, http.StatusUnprocessableEntity, "limit must be between 1 and 500")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		detail(c, http.StatusUnprocessableEntity, "offset must be >= 0")
		return
	}

	query, msg := s.grantQuery(c)
	if msg != "" {
		detail(c, http.StatusUnprocessableEntity, msg)
		return
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}

	sortBy := c.DefaultQuery("sort_by", "application_end_date")
	if !sortColumns[sortBy] {
		sortBy = "application_end_date"
	}
	order := "ASC"
	if c.Query("order") == "desc" {
		order = "DESC"
	}

	var rows []grantRow
	if err := query.Order(sortBy + " " + order).Order("id ASC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}

	page := models.GrantPage{Total: int(total), Grants: make([]models.Grant, 0, len(rows))}
	for _, r := range rows {
		page.Grants = append(page.Grants, r.model())
	}
	c.JSON(http.StatusOK, page)
}

// grantQuery builds the filtered query. A non-empty msg reports an invalid
// parameter.
func (s *Server) grantQuery(c *gin.Context) (query *gorm.DB, msg string) {
	query = s.DB.Model(&grantRow{})

	if source := c.Query("source"); source != "" {
		query = query.Where("source = ?", strings.ToUpper(source))
	}
	for _, col := range []string{"is_open", "is_nonprofit", "sent_to_n8n"} {
		raw := c.Query(col)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, col + " must be a boolean"
		}
		query = query.Where(col+" = ?", v)
	}

	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("title LIKE ? OR purpose LIKE ?", pattern, pattern)
	}
	if department := c.Query("department"); department != "" {
		query = query.Where("department LIKE ?", "%"+department+"%")
	}

	dateCol, ok := dateColumns[c.DefaultQuery("date_field", "deadline")]
	if !ok {
		return nil, "date_field must be deadline, publication or captured"
	}
	// Unparseable dates are ignored, as the real service does.
	if from, err := time.Parse(models.DayLayout, c.Query("date_from")); err == nil {
		query = query.Where(dateCol+" >= ?", from)
	}
	if to, err := time.Parse(models.DayLayout, c.Query("date_to")); err == nil {
		query = query.Where(dateCol+" <= ?", to)
	}

	bounds := []struct {
		param, clause string
		max           float64
	}{
		{"budget_min", "budget_amount >= ?", 0},
		{"budget_max", "budget_amount <= ?", 0},
		{"confidence_min", "nonprofit_confidence >= ?", 1},
	}
	for _, b := range bounds {
		raw := c.Query(b.param)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || (b.max > 0 && v > b.max) {
			return nil, "invalid " + b.param
		}
		query = query.Where(b.clause, v)
	}
	return query, ""
}

type sourceAgg struct {
	Source         string  `gorm:"column:source"`
	Count          int     `gorm:"column:count"`
	TotalBudget    float64 `gorm:"column:total_budget"`
	NonprofitCount int     `gorm:"column:nonprofit_count"`
	OpenCount      int     `gorm:"column:open_count"`
	SentCount      int     `gorm:"column:sent_count"`
}

func (s *Server) overview(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		detail(c, http.StatusUnprocessableEntity, "days must be between 1 and 365")
		return
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	window := func() *gorm.DB {
		return s.DB.Model(&grantRow{}).Where("captured_at >= ?", since)
	}

	var o models.Overview
	var count int64
	window().Count(&count)
	o.TotalGrants = int(count)
	window().Where("is_nonprofit = ?", true).Count(&count)
	o.NonprofitGrants = int(count)
	window().Where("is_open = ?", true).Count(&count)
	o.OpenGrants = int(count)
	window().Where("sent_to_n8n = ?", true).Count(&count)
	o.SentToN8n = int(count)
	window().Select("COALESCE(SUM(budget_amount), 0)").Scan(&o.TotalBudget)
	window().Where("nonprofit_confidence IS NOT NULL").Select("COALESCE(AVG(nonprofit_confidence), 0)").Scan(&o.AvgConfidence)

	var aggs []sourceAgg
	err = window().Select(`source, COUNT(*) AS count, COALESCE(SUM(budget_amount), 0) AS total_budget,
		SUM(CASE WHEN is_nonprofit THEN 1 ELSE 0 END) AS nonprofit_count,
		SUM(CASE WHEN is_open THEN 1 ELSE 0 END) AS open_count,
		SUM(CASE WHEN sent_to_n8n THEN 1 ELSE 0 END) AS sent_count`).
		Group("source").Order("source").Scan(&aggs).Error
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	o.GrantsBySource = make([]models.SourceStats, 0, len(aggs))
	for _, a := range aggs {
		o.GrantsBySource = append(o.GrantsBySource, models.SourceStats{
			Source:         a.Source,
			Count:          a.Count,
			TotalBudget:    a.TotalBudget,
			NonprofitCount: a.NonprofitCount,
			OpenCount:      a.OpenCount,
			SentToN8nCount: a.SentCount,
		})
	}
	c.JSON(http.StatusOK, o)
}
