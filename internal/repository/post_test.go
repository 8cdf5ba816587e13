package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"prosphere/internal/models"
	"prosphere/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_GetByID_Details(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	testutil.CreateUser(t, db, "author", "Ada", "Lovelace")
	testutil.CreateUser(t, db, "reader", "Grace", "Hopper")
	post := testutil.CreatePost(t, db, "author", "Hello", true)
	first := testutil.CreateComment(t, db, post.ID, "reader", "first", nil)
	testutil.CreateComment(t, db, post.ID, "author", "second", &first.ID)
	testutil.CreateReaction(t, db, post.ID, "reader", models.ReactionLike)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Author)
	assert.Equal(t, "Ada", got.Author.FirstName)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, "first", got.Comments[0].Content, "comments are oldest first")
	require.NotNil(t, got.Comments[1].Author)
	assert.Equal(t, "author", got.Comments[1].Author.ClerkUserID)
	assert.Len(t, got.Reactions, 1)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.True(t, models.IsNotFound(err))
}

func TestPostRepository_ListFeed(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	testutil.CreateUser(t, db, "author", "Ada", "Lovelace")
	testutil.CreatePost(t, db, "author", "old public", true)
	testutil.CreatePost(t, db, "author", "private", false)
	testutil.CreatePost(t, db, "author", "new public", true)

	public, err := repo.ListFeed(ctx, FeedQuery{Limit: 10, OnlyPublic: true})
	require.NoError(t, err)
	require.Len(t, public, 2)
	assert.Equal(t, "new public", public[0].Content)

	all, err := repo.ListFeed(ctx, FeedQuery{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := repo.ListFeed(ctx, FeedQuery{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "private", page[0].Content)

	mine, err := repo.ListByAuthor(ctx, "author")
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestPostRepository_UpdateDelete(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	testutil.CreateUser(t, db, "author", "Ada", "Lovelace")
	post := testutil.CreatePost(t, db, "author", "draft", true)

	require.NoError(t, repo.Update(ctx, post.ID, map[string]interface{}{"content": "final", "tags": models.JSONValue([]string{"go"})}))
	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Content)
	assert.Equal(t, []string{"go"}, got.Tags)

	assert.True(t, models.IsNotFound(repo.Update(ctx, uuid.New(), map[string]interface{}{"content": "x"})))

	require.NoError(t, repo.Delete(ctx, post.ID))
	ok, err := repo.Exists(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, models.IsNotFound(repo.Delete(ctx, post.ID)))
}

func TestPostRepository_Create_Query(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "posts" ("id","content","clerk_user_id","is_public","images","location","tags","created_at","updated_at")`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	post := &models.Post{Content: "Hello", AuthorID: "author", IsPublic: true}
	require.NoError(t, repo.Create(context.Background(), post))
	assert.NotEqual(t, uuid.Nil, post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionRepository_UniqueViolationIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "post_reactions"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_post_reactions_post_user"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Reaction{PostID: uuid.New(), UserID: "u", Type: models.ReactionLike})
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr), "driver error stays in the chain")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	testutil.CreateUser(t, db, "author", "Ada", "Lovelace")
	testutil.CreateUser(t, db, "reader", "Grace", "Hopper")
	post := testutil.CreatePost(t, db, "author", "Hello", true)

	require.NoError(t, repo.Create(ctx, &models.Reaction{PostID: post.ID, UserID: "reader", Type: models.ReactionLike}))
	err := repo.Create(ctx, &models.Reaction{PostID: post.ID, UserID: "reader", Type: models.ReactionCurious})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err), "one reaction per user and post")

	list, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].User)
	assert.Equal(t, "Grace", list[0].User.FirstName)

	n, err := repo.DeleteByUserAndPost(ctx, "reader", post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteByUserAndPost(ctx, "reader", post.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCommentRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	testutil.CreateUser(t, db, "author", "Ada", "Lovelace")
	post := testutil.CreatePost(t, db, "author", "Hello", true)
	root := testutil.CreateComment(t, db, post.ID, "author", "root", nil)
	child := testutil.CreateComment(t, db, post.ID, "author", "child", &root.ID)
	grandchild := testutil.CreateComment(t, db, post.ID, "author", "grandchild", &child.ID)

	got, err := repo.GetByID(ctx, child.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Author)
	require.NotNil(t, got.ParentCommentID)
	assert.Equal(t, root.ID, *got.ParentCommentID)

	ids, err := repo.ListChildIDs(ctx, []uuid.UUID{root.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{child.ID}, ids)

	require.NoError(t, repo.UpdateContent(ctx, root.ID, "edited"))
	assert.True(t, models.IsNotFound(repo.UpdateContent(ctx, uuid.New(), "x")))

	n, err := repo.DeleteByParent(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "edited", list[0].Content)
	assert.Equal(t, grandchild.ID, list[1].ID)

	require.NoError(t, repo.DeleteByPost(ctx, post.ID))
	list, _ = repo.ListByPost(ctx, post.ID)
	assert.Empty(t, list)
}

func TestCommentRepository_ListByPost_Query(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	postID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "post_comments" WHERE post_id = $1 ORDER BY created_at ASC`)).
		WithArgs(postID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "clerk_user_id", "content"}))

	comments, err := repo.ListByPost(context.Background(), postID)
	require.NoError(t, err)
	assert.Empty(t, comments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
