package models

import "time"

// User represents an account that can post and like products.
// A user has a password hash, a federated identity id, or both once linked.
type User struct {
	ID                 string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FirstName          string    `json:"firstName" gorm:"type:varchar(100);not null"`
	LastName           string    `json:"lastName" gorm:"type:varchar(100);not null"`
	Email              string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password           *string   `json:"-" gorm:"type:varchar(255)"`
	Salt               []byte    `json:"-"`
	ThirdPartyUniqueID *string   `json:"-" gorm:"uniqueIndex;type:varchar(255)"`
	Provider           Provider  `json:"provider" gorm:"type:varchar(20);not null;default:email"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// HasPassword reports whether the user can sign in with a local password.
func (u *User) HasPassword() bool {
	return u.Password != nil && *u.Password != ""
}

// IsLinked reports whether a federated identity is already bound to the user.
func (u *User) IsLinked() bool {
	return u.ThirdPartyUniqueID != nil && *u.ThirdPartyUniqueID != ""
}
