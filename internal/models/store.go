package models

import "time"

// Store is a physical retail location. Stores that came from the places API
// carry the place id as ExternalPlaceID, which is unique when present.
type Store struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name            string    `json:"name" gorm:"type:varchar(255);not null"`
	ExternalPlaceID *string   `json:"googlePlaceId" gorm:"uniqueIndex;type:varchar(255)"`
	Address         string    `json:"address" gorm:"type:varchar(500);not null"`
	IconURL         string    `json:"iconUrl" gorm:"type:varchar(500)"`
	Longitude       float64   `json:"longitude" gorm:"index:idx_store_location,priority:2"`
	Latitude        float64   `json:"latitude" gorm:"index:idx_store_location,priority:1"`
	CreatedAt       time.Time `json:"createdAt"`
}

// PlaceID returns the external place id, or "" for stores created without one.
func (s *Store) PlaceID() string {
	if s.ExternalPlaceID == nil {
		return ""
	}
	return *s.ExternalPlaceID
}
