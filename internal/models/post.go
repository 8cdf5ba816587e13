package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Content limits.
const (
	MaxPostContentLength    = 5000
	MaxPostImages           = 4
	MaxCommentContentLength = 1000
)

// Post is a user-authored status update.
type Post struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Content   string        `gorm:"type:text;not null" json:"content"`
	AuthorID  string        `gorm:"column:clerk_user_id;not null;index" json:"clerk_user_id"`
	IsPublic  bool          `gorm:"not null;index" json:"is_public"`
	Images    []string      `gorm:"serializer:json;type:jsonb" json:"images"`
	Location  *Location     `gorm:"serializer:json;type:jsonb" json:"location,omitempty"`
	Tags      []string      `gorm:"serializer:json;type:jsonb" json:"tags"`
	CreatedAt time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Author    *ShortProfile `gorm:"foreignKey:AuthorID;references:ClerkUserID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Reactions []Reaction    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"reactions,omitempty"`
	Comments  []Comment     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

// BeforeCreate assigns an id when the caller did not.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PostView is a post with its derived aggregates.
type PostView struct {
	Post
	CommentCount   int                  `json:"comment_count"`
	ReactionsCount map[ReactionType]int `json:"reactions_count"`
	UserReaction   *ReactionType        `json:"user_reaction"`
}

// NewPostView derives the aggregates of p. The user reaction is the one left
// by reactorID, if any.
func NewPostView(p Post, reactorID string) PostView {
	view := PostView{
		Post:           p,
		CommentCount:   len(p.Comments),
		ReactionsCount: make(map[ReactionType]int),
	}
	for _, r := range p.Reactions {
		view.ReactionsCount[r.Type]++
		if reactorID != "" && r.UserID == reactorID {
			t := r.Type
			view.UserReaction = &t
		}
	}
	return view
}
