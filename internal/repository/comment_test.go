package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mifthebest/hw05-final/internal/models"
)

func TestCommentRepository_ListByPostOldestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "PostAuthor")
	commenter := createTestUser(t, db, "Commenter")
	post := createTestPost(t, db, author, "commented post", time.Now())

	base := time.Now().Add(-time.Hour)
	for i, text := range []string{"first", "second", "third"} {
		comment := &models.Comment{
			Text:      text,
			PostID:    post.ID,
			AuthorID:  commenter.ID,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(comment).Error)
	}

	comments, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "second", comments[1].Text)
	assert.Equal(t, "third", comments[2].Text)
	assert.Equal(t, "Commenter", comments[0].Author.Username)
}

func TestCommentRepository_ListByPostIsolation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := createTestUser(t, db, "PostAuthor")
	postA := createTestPost(t, db, author, "post a", time.Now())
	postB := createTestPost(t, db, author, "post b", time.Now())

	require.NoError(t, repo.Create(ctx, &models.Comment{Text: "on a", PostID: postA.ID, AuthorID: author.ID}))

	comments, err := repo.ListByPost(ctx, postB.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	count, err := repo.CountByPost(ctx, postA.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
