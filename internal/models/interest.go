package models

import "time"

// Interest is an entry of the professional interest taxonomy.
type Interest struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Name       string    `gorm:"not null;index" json:"name"`
	Popularity string    `gorm:"not null" json:"popularity"`
	Category   string    `gorm:"not null;index" json:"category"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserInterest links a user to an interest.
type UserInterest struct {
	ClerkUserID string    `gorm:"column:clerk_user_id;primaryKey;size:255" json:"clerk_user_id"`
	InterestID  string    `gorm:"primaryKey;size:64" json:"interest_id"`
	AddedAt     time.Time `gorm:"autoCreateTime" json:"added_at"`
}

// TableName returns the join table name.
func (UserInterest) TableName() string {
	return "user_interests"
}
