package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grant-dashboard/filters"
)

type stateResponse struct {
	State  filters.State          `json:"state"`
	Active []filters.ActiveFilter `json:"active"`
	Query  string                 `json:"query"`
}

func (h *Handler) stateResponse() stateResponse {
	return stateResponse{
		State:  h.session.Filters.State(),
		Active: h.session.ActiveFilters(),
		Query:  h.session.Query().Encode(),
	}
}

// filterResult writes the new filter state, or err as a bad request.
func (h *Handler) filterResult(c *gin.Context, err error) {
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.stateResponse())
}

func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.stateResponse())
}

func (h *Handler) SetSearch(c *gin.Context) {
	var req struct {
		Search string `json:"search"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.session.Filters.SetSearch(req.Search)
	h.filterResult(c, nil)
}

// SetQuickFilter sets a quick filter on or off. Without a body it toggles.
func (h *Handler) SetQuickFilter(c *gin.Context) {
	var req struct {
		Active *bool `json:"active"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}
	id := c.Param("id")
	if req.Active == nil {
		h.filterResult(c, h.session.Filters.ToggleQuickFilter(id))
		return
	}
	h.filterResult(c, h.session.Filters.SetQuickFilter(id, *req.Active))
}

func (h *Handler) SetAdvanced(c *gin.Context) {
	adv := h.session.Filters.State().Advanced
	if err := c.ShouldBindJSON(&adv); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.filterResult(c, h.session.Filters.SetAdvanced(adv))
}

func (h *Handler) SetDates(c *gin.Context) {
	st := h.session.Filters.State()
	req := struct {
		filters.DateRange
		Field filters.DateField `json:"field"`
	}{st.Dates, st.DateField}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.filterResult(c, h.session.Filters.SetDates(req.DateRange, req.Field))
}

func (h *Handler) SetTab(c *gin.Context) {
	var req struct {
		Tab filters.Tab `json:"tab" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	h.filterResult(c, h.session.Filters.SetTab(req.Tab))
}

func (h *Handler) RemoveFilter(c *gin.Context) {
	h.filterResult(c, h.session.Filters.RemoveOne(c.Param("key")))
}

func (h *Handler) ClearFilters(c *gin.Context) {
	h.session.Filters.ClearAll()
	h.filterResult(c, nil)
}
