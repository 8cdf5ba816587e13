package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a comment on a post, optionally replying to another comment of the same post.
type Comment struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	PostID          uuid.UUID     `gorm:"type:uuid;not null;index" json:"post_id"`
	AuthorID        string        `gorm:"column:clerk_user_id;not null;index" json:"clerk_user_id"`
	Content         string        `gorm:"type:text;not null" json:"content"`
	ParentCommentID *uuid.UUID    `gorm:"type:uuid;index" json:"parent_comment_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	Author          *ShortProfile `gorm:"foreignKey:AuthorID;references:ClerkUserID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Replies         []Comment     `gorm:"foreignKey:ParentCommentID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName returns the comments table name.
func (Comment) TableName() string {
	return "post_comments"
}

func (c *Comment) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
