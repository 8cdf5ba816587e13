// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories over one database handle. A Store obtained
// inside Transaction shares the transaction with every repository it returns.
type Store interface {
	Users() UserRepository
	Interests() InterestRepository
	Posts() PostRepository
	Reactions() ReactionRepository
	Comments() CommentRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository         { return NewUserRepository(s.db) }
func (s *gormStore) Interests() InterestRepository { return NewInterestRepository(s.db) }
func (s *gormStore) Posts() PostRepository         { return NewPostRepository(s.db) }
func (s *gormStore) Reactions() ReactionRepository { return NewReactionRepository(s.db) }
func (s *gormStore) Comments() CommentRepository   { return NewCommentRepository(s.db) }

// Transaction runs fn in a database transaction. gorm commits when fn returns
// nil and rolls back on any error or panic.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
