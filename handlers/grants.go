package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"grant-dashboard/listview"
	"grant-dashboard/models"
)

var sortDirs = map[string]listview.Direction{
	"asc":  listview.Ascending,
	"desc": listview.Descending,
	"none": listview.Unsorted,
}

type grantRow struct {
	models.Grant
	Favorite bool `json:"favorite"`
}

type grantsResponse struct {
	listview.Page
	Items      []grantRow `json:"items"`
	Loading    bool       `json:"loading"`
	Generation uint64     `json:"generation"`
	Error      string     `json:"error,omitempty"`
}

func (h *Handler) grantsResponse() grantsResponse {
	page := h.session.List.View()
	snap := h.session.Feed.Snapshot()
	rows := make([]grantRow, len(page.Items))
	for i, g := range page.Items {
		rows[i] = grantRow{Grant: g, Favorite: h.session.Favorites.Has(g.ID)}
	}
	resp := grantsResponse{
		Page:       page,
		Items:      rows,
		Loading:    snap.Loading,
		Generation: snap.Generation,
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	return resp
}

// GetGrants renders one page of the loaded grants. search, sort, dir, page
// and page_size update the view before rendering; absent ones are kept.
func (h *Handler) GetGrants(c *gin.Context) {
	list := h.session.List

	if search, ok := c.GetQuery("search"); ok {
		list.SetSearch(search)
	}
	if field, ok := c.GetQuery("sort"); ok {
		f, err := listview.ParseSortField(field)
		dir, known := sortDirs[c.DefaultQuery("dir", "asc")]
		if err != nil || !known {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort"})
			return
		}
		list.SetSort(f, dir)
	}
	if raw, ok := c.GetQuery("page_size"); ok {
		size, err := strconv.Atoi(raw)
		if err == nil {
			err = list.SetPageSize(size)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page_size"})
			return
		}
	}
	if raw, ok := c.GetQuery("page"); ok {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
			return
		}
		list.SetPage(page)
	}

	c.JSON(http.StatusOK, h.grantsResponse())
}

// ClickSort advances the sort on field: ascending, descending, unsorted.
func (h *Handler) ClickSort(c *gin.Context) {
	f, err := listview.ParseSortField(c.Param("field"))
	if err != nil || f == listview.SortNone {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown sort field"})
		return
	}
	h.session.List.ClickSort(f)
	c.JSON(http.StatusOK, h.grantsResponse())
}

// Reload fetches the grant list now instead of waiting for a filter change.
func (h *Handler) Reload(c *gin.Context) {
	gen := h.session.Reload()
	c.JSON(http.StatusAccepted, gin.H{"generation": gen})
}
