package testutil

import (
	"testing"
	"time"

	"prosphere/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// CreateUser inserts a user with the given id and name.
func CreateUser(t testing.TB, db *gorm.DB, id, first, last string) *models.User {
	t.Helper()
	u := &models.User{
		ClerkUserID: id,
		FirstName:   first,
		LastName:    last,
		Theme:       models.ThemeSystem,
		SocialLinks: map[string]string{},
	}
	require.NoError(t, db.Omit("Interests").Create(u).Error)
	return u
}

// CreatePost inserts a post by authorID.
func CreatePost(t testing.TB, db *gorm.DB, authorID, content string, public bool) *models.Post {
	t.Helper()
	p := &models.Post{
		Content:  content,
		AuthorID: authorID,
		IsPublic: public,
		Images:   []string{},
		Tags:     []string{},
	}
	require.NoError(t, db.Omit("Author", "Reactions", "Comments").Create(p).Error)
	return p
}

// CreateReaction inserts a reaction of userID on postID.
func CreateReaction(t testing.TB, db *gorm.DB, postID uuid.UUID, userID string, typ models.ReactionType) *models.Reaction {
	t.Helper()
	r := &models.Reaction{PostID: postID, UserID: userID, Type: typ}
	require.NoError(t, db.Omit("User").Create(r).Error)
	return r
}

// CreateComment inserts a comment, optionally as a reply to parent.
func CreateComment(t testing.TB, db *gorm.DB, postID uuid.UUID, authorID, content string, parent *uuid.UUID) *models.Comment {
	t.Helper()
	c := &models.Comment{PostID: postID, AuthorID: authorID, Content: content, ParentCommentID: parent}
	// keep created_at strictly increasing so ordering assertions are stable
	time.Sleep(time.Millisecond)
	require.NoError(t, db.Omit("Author", "Replies").Create(c).Error)
	return c
}

// CreateInterest inserts an interest.
func CreateInterest(t testing.TB, db *gorm.DB, id, name, category string) *models.Interest {
	t.Helper()
	i := &models.Interest{ID: id, Name: name, Popularity: "medium", Category: category}
	require.NoError(t, db.Create(i).Error)
	return i
}
