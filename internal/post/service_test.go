package post_test

import (
	"context"
	"strings"
	"testing"

	"campusconnect/backend/internal/apperror"
	"campusconnect/backend/internal/media"
	"campusconnect/backend/internal/post"
	"campusconnect/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	db := testutil.NewDB(t)
	svc := post.NewService(db)
	author := testutil.CreateUser(t, db, "ada")
	ctx := context.Background()

	p, err := svc.Create(ctx, author.ID, "  hello campus  ", &media.Result{URL: "https://cdn.test/v.mp4", Kind: media.KindVideo})
	require.NoError(t, err)
	assert.Equal(t, "hello campus", p.Text)
	assert.Equal(t, "https://cdn.test/v.mp4", p.VideoURL)
	assert.Empty(t, p.ImageURL)
	assert.Equal(t, "ada", p.Author.Handle)

	_, err = svc.Create(ctx, author.ID, "   ", nil)
	assert.True(t, apperror.Is(err, apperror.InvalidOperation))

	_, err = svc.Create(ctx, author.ID, strings.Repeat("x", 501), nil)
	assert.True(t, apperror.Is(err, apperror.InvalidOperation))
}

func TestToggleLike(t *testing.T) {
	db := testutil.NewDB(t)
	svc := post.NewService(db)
	ada := testutil.CreateUser(t, db, "ada")
	bob := testutil.CreateUser(t, db, "bob")
	ctx := context.Background()

	p, err := svc.Create(ctx, ada.ID, "first", nil)
	require.NoError(t, err)

	likes, err := svc.ToggleLike(ctx, p.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, likes.Liked)
	assert.Equal(t, []uint{bob.ID}, likes.UserIDs)

	likes, err = svc.ToggleLike(ctx, p.ID, ada.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{ada.ID, bob.ID}, likes.UserIDs)

	likes, err = svc.ToggleLike(ctx, p.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, likes.Liked)
	assert.Equal(t, []uint{ada.ID}, likes.UserIDs)

	_, err = svc.ToggleLike(ctx, 4242, bob.ID)
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestAddComment(t *testing.T) {
	db := testutil.NewDB(t)
	svc := post.NewService(db)
	ada := testutil.CreateUser(t, db, "ada")
	bob := testutil.CreateUser(t, db, "bob")
	ctx := context.Background()

	p, err := svc.Create(ctx, ada.ID, "first", nil)
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, p.ID, bob.ID, "nice")
	require.NoError(t, err)
	comments, err := svc.AddComment(ctx, p.ID, ada.ID, "thanks")
	require.NoError(t, err)

	require.Len(t, comments, 2)
	assert.Equal(t, "nice", comments[0].Text)
	assert.Equal(t, "bob", comments[0].User.Handle)
	assert.Equal(t, "thanks", comments[1].Text)
	assert.False(t, comments[1].CreatedAt.IsZero())

	_, err = svc.AddComment(ctx, p.ID, bob.ID, " ")
	assert.True(t, apperror.Is(err, apperror.InvalidOperation))
	_, err = svc.AddComment(ctx, 4242, bob.ID, "hi")
	assert.True(t, apperror.Is(err, apperror.NotFound))
}

func TestListAndDelete(t *testing.T) {
	db := testutil.NewDB(t)
	svc := post.NewService(db)
	ada := testutil.CreateUser(t, db, "ada")
	ctx := context.Background()

	var ids []uint
	for _, text := range []string{"one", "two", "three"} {
		p, err := svc.Create(ctx, ada.ID, text, nil)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	posts, total, err := svc.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, posts, 2)
	assert.Equal(t, "three", posts[0].Text)

	require.NoError(t, svc.Delete(ctx, ids[2]))
	assert.True(t, apperror.Is(svc.Delete(ctx, ids[2]), apperror.NotFound))

	_, total, err = svc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, err = svc.Get(ctx, ids[2])
	assert.True(t, apperror.Is(err, apperror.NotFound))
}
