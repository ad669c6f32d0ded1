package feed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-blog-server/client/feed"
	ierrors "github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/posts"
)

// fakeFeedAPI scripts server outcomes for the reconciliation layer.
type fakeFeedAPI struct {
	views      []posts.View
	comments   map[string][]*posts.Comment
	likeResult posts.LikeResult
	likeErr    error
	commentErr error
	likeCalls  int
}

func (f *fakeFeedAPI) Posts(context.Context) ([]posts.View, error) {
	out := make([]posts.View, len(f.views))
	copy(out, f.views)
	return out, nil
}

func (f *fakeFeedAPI) Comments(_ context.Context, postID string) ([]*posts.Comment, error) {
	return f.comments[postID], nil
}

func (f *fakeFeedAPI) ToggleLike(context.Context, string) (posts.LikeResult, error) {
	f.likeCalls++
	if f.likeErr != nil {
		return posts.LikeResult{}, f.likeErr
	}
	return f.likeResult, nil
}

func (f *fakeFeedAPI) AddComment(_ context.Context, postID, text string) (*posts.Comment, error) {
	if f.commentErr != nil {
		return nil, f.commentErr
	}
	return &posts.Comment{
		ID:        "server-comment-1",
		PostID:    postID,
		UserID:    "user-1",
		Username:  "ada",
		Text:      text,
		CreatedAt: time.Now(),
	}, nil
}

// testFixture holds all test dependencies
type testFixture struct {
	client  *fakeFeedAPI
	feed    *feed.Feed
	changed []string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		client: &fakeFeedAPI{
			views: []posts.View{
				{ID: "post-1", Title: "First", LikeCount: 2, LikedByMe: false},
				{ID: "post-2", Title: "Second", LikeCount: 0, LikedByMe: true},
			},
			comments: map[string][]*posts.Comment{},
		},
	}

	fd, err := feed.New(f.client, feed.WithNotify(func(postID string) {
		f.changed = append(f.changed, postID)
	}))
	require.NoError(t, err)
	f.feed = fd

	require.NoError(t, f.feed.Load(context.Background()))
	return f
}

func TestLoad_MirrorsServerOrder(t *testing.T) {
	f := setupTestFixture(t)

	views := f.feed.Posts()
	require.Len(t, views, 2)
	require.Equal(t, "post-1", views[0].ID)
	require.Equal(t, "post-2", views[1].ID)
}

func TestToggleLike_AdoptsAuthoritativeResult(t *testing.T) {
	f := setupTestFixture(t)
	// The server reports a different count than the optimistic guess
	// (someone else liked in between).
	f.client.likeResult = posts.LikeResult{Liked: true, LikeCount: 5}

	require.NoError(t, f.feed.ToggleLike(context.Background(), "post-1"))

	view, ok := f.feed.Post("post-1")
	require.True(t, ok)
	require.True(t, view.LikedByMe)
	require.Equal(t, 5, view.LikeCount)
	// One notification for the optimistic flip, one for the adoption.
	require.Equal(t, []string{"post-1", "post-1"}, f.changed)
}

func TestToggleLike_RevertsOnFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.client.likeErr = ierrors.Wrapf(ierrors.ErrInternal, "boom")

	require.Error(t, f.feed.ToggleLike(context.Background(), "post-1"))

	// Exactly the previous state, not a re-toggle.
	view, _ := f.feed.Post("post-1")
	require.False(t, view.LikedByMe)
	require.Equal(t, 2, view.LikeCount)
}

func TestToggleLike_KeepsOptimisticStateOnRejection(t *testing.T) {
	f := setupTestFixture(t)
	f.client.likeErr = ierrors.Wrapf(ierrors.ErrAuthentication, "Invalid or expired token")

	err := f.feed.ToggleLike(context.Background(), "post-1")
	require.ErrorIs(t, err, ierrors.ErrAuthentication)

	// Session eviction is the rejection hook's job; the local flip is not
	// reverted, the next Load reconciles it.
	view, _ := f.feed.Post("post-1")
	require.True(t, view.LikedByMe)
	require.Equal(t, 3, view.LikeCount)
}

func TestToggleLike_UnlikeNeverGoesNegative(t *testing.T) {
	f := setupTestFixture(t)
	f.client.likeErr = ierrors.Wrapf(ierrors.ErrAuthentication, "rejected")

	// post-2 is liked with count 0 (stale server data); the optimistic
	// unlike must clamp at zero.
	_ = f.feed.ToggleLike(context.Background(), "post-2")

	view, _ := f.feed.Post("post-2")
	require.False(t, view.LikedByMe)
	require.Equal(t, 0, view.LikeCount)
}

func TestToggleLike_UnknownPost(t *testing.T) {
	f := setupTestFixture(t)

	err := f.feed.ToggleLike(context.Background(), "missing")
	require.ErrorIs(t, err, feed.ErrUnknownPost)
	require.Zero(t, f.client.likeCalls)
}

func TestAddComment_ConfirmsPlaceholderInPlace(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.feed.AddComment(context.Background(), "post-1", "hello", "ada"))

	comments := f.feed.Comments("post-1")
	require.Len(t, comments, 1)
	require.False(t, comments[0].Pending)
	require.Equal(t, "server-comment-1", comments[0].ID)
	require.Equal(t, "hello", comments[0].Text)

	view, _ := f.feed.Post("post-1")
	require.Equal(t, 1, view.CommentCount)
}

func TestAddComment_RemovesPlaceholderOnFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.client.commentErr = ierrors.Wrapf(ierrors.ErrInternal, "boom")

	require.Error(t, f.feed.AddComment(context.Background(), "post-1", "hello", "ada"))

	require.Empty(t, f.feed.Comments("post-1"))
	view, _ := f.feed.Post("post-1")
	require.Zero(t, view.CommentCount)
}

func TestAddComment_RejectsEmptyText(t *testing.T) {
	f := setupTestFixture(t)

	err := f.feed.AddComment(context.Background(), "post-1", "   ", "ada")
	require.ErrorIs(t, err, ierrors.ErrValidation)
	require.Empty(t, f.changed)
}

func TestLoadComments_KeepsPendingPlaceholders(t *testing.T) {
	f := setupTestFixture(t)
	f.client.comments["post-1"] = []*posts.Comment{
		{ID: "c1", PostID: "post-1", Username: "bob", Text: "earlier"},
	}
	f.client.commentErr = ierrors.Wrapf(ierrors.ErrUpstream, "slow")

	// A failed optimistic comment is removed, so only confirmed ones stay.
	_ = f.feed.AddComment(context.Background(), "post-1", "mine", "ada")

	require.NoError(t, f.feed.LoadComments(context.Background(), "post-1"))
	comments := f.feed.Comments("post-1")
	require.Len(t, comments, 1)
	require.Equal(t, "earlier", comments[0].Text)

	view, _ := f.feed.Post("post-1")
	require.Equal(t, 1, view.CommentCount)
}
