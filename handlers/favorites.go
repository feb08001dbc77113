package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grant-dashboard/resources"
)

func (h *Handler) GetFavorites(c *gin.Context) {
	ids := h.session.Favorites.IDs()
	c.JSON(http.StatusOK, gin.H{
		"ids":    ids,
		"total":  len(ids),
		"origin": h.session.Favorites.Origin(),
	})
}

func (h *Handler) AddFavorite(c *gin.Context) {
	h.favorite(c, h.session.Favorites.Add)
}

func (h *Handler) RemoveFavorite(c *gin.Context) {
	h.favorite(c, h.session.Favorites.Remove)
}

func (h *Handler) ToggleFavorite(c *gin.Context) {
	h.favorite(c, h.session.Favorites.Toggle)
}

func (h *Handler) favorite(c *gin.Context, op func(string) *resources.Mutation) {
	id := c.Param("id")
	m := op(id)
	if !h.settle(c, m) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":       id,
		"favorite": h.session.Favorites.Has(id),
		"state":    m.State(),
	})
}
