package models

import "time"

// FavoriteMirror is one row of the local favorites mirror. It is a fallback
// for when the remote favorites list cannot be fetched, never the source of
// truth.
type FavoriteMirror struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ClientID  string    `json:"client_id" gorm:"index;uniqueIndex:idx_client_grant"`
	GrantID   string    `json:"grant_id" gorm:"uniqueIndex:idx_client_grant"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FavoriteMirrorSave records that a client's favorites were mirrored at least
// once, so an empty mirrored set can be told apart from no mirror at all.
type FavoriteMirrorSave struct {
	ClientID string    `json:"client_id" gorm:"primaryKey"`
	SavedAt  time.Time `json:"saved_at"`
}
