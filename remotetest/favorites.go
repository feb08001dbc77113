package remotetest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func (s *Server) favoriteIDsFor(user string) ([]string, error) {
	var rows []favoriteRow
	if err := s.DB.Where("user_id = ?", user).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.GrantID)
	}
	return ids, nil
}

func (s *Server) favoriteIDs(c *gin.Context) {
	ids, err := s.favoriteIDsFor(userID(c))
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, ids)
}

func (s *Server) addFavorite(c *gin.Context) {
	grantID := c.Param("id")
	user := userID(c)

	var grant grantRow
	if err := s.DB.Where("id = ?", grantID).First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "Grant not found")
			return
		}
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}

	var existing int64
	s.DB.Model(&favoriteRow{}).Where("user_id = ? AND grant_id = ?", user, grantID).Count(&existing)
	if existing > 0 {
		detail(c, http.StatusBadRequest, "Already favorited")
		return
	}

	fav := favoriteRow{UserID: user, GrantID: grantID}
	if err := s.DB.Create(&fav).Error; err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": fav.ID, "user_id": fav.UserID, "grant_id": fav.GrantID, "created_at": fav.CreatedAt})
}

func (s *Server) removeFavorite(c *gin.Context) {
	res := s.DB.Where("user_id = ? AND grant_id = ?", userID(c), c.Param("id")).Delete(&favoriteRow{})
	if res.Error != nil {
		detail(c, http.StatusInternalServerError, res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		detail(c, http.StatusNotFound, "Favorite not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Favorite removed"})
}
