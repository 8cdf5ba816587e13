package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReactionType enumerates the reactions a user can leave on a post.
type ReactionType string

const (
	ReactionLike       ReactionType = "like"
	ReactionCelebrate  ReactionType = "celebrate"
	ReactionSupport    ReactionType = "support"
	ReactionInsightful ReactionType = "insightful"
	ReactionCurious    ReactionType = "curious"
)

// ReactionTypes lists every accepted ReactionType.
var ReactionTypes = []ReactionType{
	ReactionLike, ReactionCelebrate, ReactionSupport, ReactionInsightful, ReactionCurious,
}

// Valid reports whether t is a known reaction type.
func (t ReactionType) Valid() bool {
	for _, v := range ReactionTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Reaction is one user's reaction to a post. A user holds at most one reaction per post.
type Reaction struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	PostID    uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_post_reactions_post_user,priority:1" json:"post_id"`
	UserID    string        `gorm:"column:clerk_user_id;not null;uniqueIndex:idx_post_reactions_post_user,priority:2;index" json:"clerk_user_id"`
	Type      ReactionType  `gorm:"type:enum_post_reactions_type;not null" json:"type"`
	CreatedAt time.Time     `json:"created_at"`
	User      *ShortProfile `gorm:"foreignKey:UserID;references:ClerkUserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// TableName returns the reactions table name.
func (Reaction) TableName() string {
	return "post_reactions"
}

func (r *Reaction) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
