package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"grant-dashboard/models"
)

// FavoriteMirror keeps a best-effort local copy of one client's favorite ids.
type FavoriteMirror struct {
	db       *gorm.DB
	clientID string
}

func NewFavoriteMirror(db *gorm.DB, clientID string) *FavoriteMirror {
	return &FavoriteMirror{db: db, clientID: clientID}
}

// Save replaces the mirrored set with ids.
func (m *FavoriteMirror) Save(ids []string) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", m.clientID).Delete(&models.FavoriteMirror{}).Error; err != nil {
			return fmt.Errorf("clearing mirror: %w", err)
		}
		mark := models.FavoriteMirrorSave{ClientID: m.clientID, SavedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&mark).Error; err != nil {
			return fmt.Errorf("marking mirror: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		rows := make([]models.FavoriteMirror, 0, len(ids))
		for _, id := range ids {
			rows = append(rows, models.FavoriteMirror{ClientID: m.clientID, GrantID: id})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("writing mirror: %w", err)
		}
		return nil
	})
}

// Load returns the mirrored ids in insertion order. ok is false when nothing
// was ever mirrored for this client; a mirrored empty set is ok.
func (m *FavoriteMirror) Load() (ids []string, ok bool, err error) {
	var saves int64
	if err := m.db.Model(&models.FavoriteMirrorSave{}).Where("client_id = ?", m.clientID).Count(&saves).Error; err != nil {
		return nil, false, fmt.Errorf("reading mirror: %w", err)
	}
	if saves == 0 {
		return nil, false, nil
	}
	var rows []models.FavoriteMirror
	if err := m.db.Where("client_id = ?", m.clientID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, false, fmt.Errorf("reading mirror: %w", err)
	}
	ids = make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.GrantID)
	}
	return ids, true, nil
}
