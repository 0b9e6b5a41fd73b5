package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Quantity is the amount of a product in a listing, e.g. 500 g.
type Quantity struct {
	Unit  string  `json:"unit" gorm:"type:varchar(20);not null"`
	Value float64 `json:"value"`
}

// Money is a price in one of the supported currencies.
type Money struct {
	CurrencyCode CurrencyCode `json:"currencyCode" gorm:"type:varchar(3);not null"`
	Amount       float64      `json:"amount" gorm:"not null"`
}

// Product represents a deal posted by a user at a store.
type Product struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null;index"`
	NameFolded  string    `json:"-" gorm:"type:varchar(255);not null;default:'';index"`
	Quantity    Quantity  `json:"quantity" gorm:"embedded;embeddedPrefix:quantity_"`
	Price       Money     `json:"price" gorm:"embedded;embeddedPrefix:price_"`
	PosterID    string    `json:"posterId" gorm:"type:varchar(36);not null;index"`
	Poster      User      `json:"poster" gorm:"foreignKey:PosterID"`
	StoreID     string    `json:"storeId" gorm:"type:varchar(36);not null;index"`
	Store       Store     `json:"store" gorm:"foreignKey:StoreID"`
	LikedUsers  []User    `json:"likedUsers" gorm:"many2many:product_likes"`
	Tags        []Tag     `json:"tags" gorm:"serializer:json;type:text"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FoldName returns the form of a product name used for case-insensitive
// matching. Queries must be folded the same way.
func FoldName(name string) string {
	return strings.ToLower(name)
}

// BeforeSave keeps NameFolded in step with Name.
func (p *Product) BeforeSave(_ *gorm.DB) error {
	p.NameFolded = FoldName(p.Name)
	return nil
}
