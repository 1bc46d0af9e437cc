package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/sonuparjapat/stocksWebsiteMain/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T, repo *UserRepo, email string) *domain.User {
	t.Helper()
	user, err := repo.Create(context.Background(), "trader", email)
	require.NoError(t, err)
	return user
}

func TestMessageRepo_Insert_EchoesInput(t *testing.T) {
	pool := setupTestDB(t)
	author := createTestUser(t, NewUserRepo(pool), "author@example.com")
	repo := NewMessageRepo(pool)

	msg, err := repo.Insert(context.Background(), author.ID, "NIFTY looks strong today")

	require.NoError(t, err)
	assert.Positive(t, msg.ID)
	assert.Equal(t, author.ID, msg.AuthorID)
	assert.Equal(t, "NIFTY looks strong today", msg.Content)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestMessageRepo_Insert_UnknownAuthorWritesNothing(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewMessageRepo(pool)

	for _, authorID := range []int64{999, 1 << 40} {
		_, err := repo.Insert(context.Background(), authorID, "hello")

		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "authorId", ve.Field)
	}
	assert.Equal(t, 0, countRows(t, pool, "messages"))
}

func TestMessageRepo_Insert_EmptyContent(t *testing.T) {
	pool := setupTestDB(t)
	author := createTestUser(t, NewUserRepo(pool), "author@example.com")
	repo := NewMessageRepo(pool)

	_, err := repo.Insert(context.Background(), author.ID, "   ")

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, countRows(t, pool, "messages"))
}

func TestMessageRepo_Insert_NULContentWritesNothing(t *testing.T) {
	pool := setupTestDB(t)
	author := createTestUser(t, NewUserRepo(pool), "author@example.com")
	repo := NewMessageRepo(pool)

	_, err := repo.Insert(context.Background(), author.ID, "hi\x00there")

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, 0, countRows(t, pool, "messages"))
}

func TestMessageRepo_ListRecent_NewestFirstWithAuthor(t *testing.T) {
	pool := setupTestDB(t)
	author := createTestUser(t, NewUserRepo(pool), "author@example.com")
	repo := NewMessageRepo(pool)
	ctx := context.Background()

	for i := range 5 {
		_, err := repo.Insert(ctx, author.ID, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	views, err := repo.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, "message 4", views[0].Content)
	for i := 1; i < len(views); i++ {
		prev, cur := views[i-1], views[i]
		newer := prev.CreatedAt.After(cur.CreatedAt) || (prev.CreatedAt.Equal(cur.CreatedAt) && prev.ID > cur.ID)
		assert.True(t, newer, "row %d must be newer than row %d", i-1, i)
	}

	require.NotNil(t, views[0].AuthorName)
	assert.Equal(t, "trader", *views[0].AuthorName)
}

func TestMessageRepo_ListRecent_LimitLargerThanTable(t *testing.T) {
	pool := setupTestDB(t)
	author := createTestUser(t, NewUserRepo(pool), "author@example.com")
	repo := NewMessageRepo(pool)
	ctx := context.Background()

	_, err := repo.Insert(ctx, author.ID, "only one")
	require.NoError(t, err)

	views, err := repo.ListRecent(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestMessageRepo_ListRecent_InvalidLimit(t *testing.T) {
	pool := setupTestDB(t)

	_, err := NewMessageRepo(pool).ListRecent(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMessageRepo_DeleteUserCascades(t *testing.T) {
	pool := setupTestDB(t)
	users := NewUserRepo(pool)
	repo := NewMessageRepo(pool)
	ctx := context.Background()

	gone := createTestUser(t, users, "gone@example.com")
	kept := createTestUser(t, users, "kept@example.com")

	_, err := repo.Insert(ctx, gone.ID, "from the deleted user")
	require.NoError(t, err)
	_, err = repo.Insert(ctx, kept.ID, "from the kept user")
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, gone.ID))

	views, err := repo.ListRecent(ctx, 100)
	require.NoError(t, err)
	require.Len(t, views, 1)
	for _, v := range views {
		assert.NotEqual(t, gone.ID, v.AuthorID)
	}
}
