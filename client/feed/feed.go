// Package feed keeps a local copy of the post feed and reconciles
// optimistic mutations against server outcomes. Likes flip immediately
// and adopt the authoritative count when it arrives; comments appear as
// placeholders and are confirmed or removed in place.
package feed

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	ierrors "github.com/jrsteele09/go-blog-server/internal/errors"
	"github.com/jrsteele09/go-blog-server/posts"
)

// ErrUnknownPost is returned when a mutation targets a post the feed has
// not loaded.
var ErrUnknownPost = errors.New("unknown post")

// API is the slice of the server API the feed needs.
type API interface {
	Posts(ctx context.Context) ([]posts.View, error)
	Comments(ctx context.Context, postID string) ([]*posts.Comment, error)
	ToggleLike(ctx context.Context, postID string) (posts.LikeResult, error)
	AddComment(ctx context.Context, postID, text string) (*posts.Comment, error)
}

// Comment is a feed comment. Pending marks an optimistic placeholder that
// the server has not confirmed yet.
type Comment struct {
	posts.Comment
	Pending bool
}

// Feed is the reconciled client-side view of the post list. Mutations on
// the same post are serialized; different posts proceed independently.
type Feed struct {
	mu     sync.Mutex
	posts  map[string]*postState
	order  []string
	client API
	notify func(postID string)
}

type postState struct {
	mu       sync.Mutex // serializes mutations on this post
	view     posts.View
	comments []Comment
	loaded   bool // comments fetched at least once
}

// Option defines a function type to modify the Feed instance.
type Option func(*Feed)

// WithNotify registers a callback fired after every local change to a
// post, with the post's ID.
func WithNotify(notify func(postID string)) Option {
	return func(f *Feed) {
		f.notify = notify
	}
}

// New creates a Feed over the given API client.
func New(client API, options ...Option) (*Feed, error) {
	if client == nil {
		return nil, errors.New("[feed.New] nil api client")
	}
	f := &Feed{
		posts:  make(map[string]*postState),
		client: client,
		notify: func(string) {},
	}
	for _, opt := range options {
		opt(f)
	}
	return f, nil
}

// Load replaces the feed with the server's current post list.
func (f *Feed) Load(ctx context.Context) error {
	views, err := f.client.Posts(ctx)
	if err != nil {
		return errors.Wrap(err, "[Feed.Load]")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	fresh := make(map[string]*postState, len(views))
	order := make([]string, 0, len(views))
	for _, view := range views {
		state := f.posts[view.ID]
		if state == nil {
			state = &postState{}
		}
		state.view = view
		fresh[view.ID] = state
		order = append(order, view.ID)
	}
	f.posts = fresh
	f.order = order
	return nil
}

// Posts returns the feed's current views in server order.
func (f *Feed) Posts() []posts.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	views := make([]posts.View, 0, len(f.order))
	for _, id := range f.order {
		views = append(views, f.posts[id].view)
	}
	return views
}

// Post returns the current view of one post.
func (f *Feed) Post(postID string) (posts.View, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.posts[postID]
	if !ok {
		return posts.View{}, false
	}
	return state.view, true
}

// LoadComments fetches a post's comments, preserving any local pending
// placeholders after the confirmed ones.
func (f *Feed) LoadComments(ctx context.Context, postID string) error {
	state, err := f.post(postID)
	if err != nil {
		return err
	}

	fetched, err := f.client.Comments(ctx, postID)
	if err != nil {
		return errors.Wrap(err, "[Feed.LoadComments]")
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	confirmed := make([]Comment, 0, len(fetched))
	for _, c := range fetched {
		confirmed = append(confirmed, Comment{Comment: *c})
	}
	for _, c := range state.comments {
		if c.Pending {
			confirmed = append(confirmed, c)
		}
	}
	state.comments = confirmed
	state.loaded = true
	f.setCommentCount(postID, len(confirmed))
	return nil
}

// Comments returns a post's comments, confirmed first, then pending
// placeholders in submission order.
func (f *Feed) Comments(postID string) []Comment {
	state, err := f.post(postID)
	if err != nil {
		return nil
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	out := make([]Comment, len(state.comments))
	copy(out, state.comments)
	sort.SliceStable(out, func(i, j int) bool {
		return !out[i].Pending && out[j].Pending
	})
	return out
}

// ToggleLike flips the viewer's like locally, then reconciles with the
// server. On success the authoritative result is adopted even if it
// matches the optimistic state. On a rejected credential the session
// layer handles eviction and the local state stands until the next Load.
// Any other failure restores the exact previous state.
func (f *Feed) ToggleLike(ctx context.Context, postID string) error {
	state, err := f.post(postID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	f.mu.Lock()
	prevLiked, prevCount := state.view.LikedByMe, state.view.LikeCount
	f.mu.Unlock()
	f.applyLike(postID, state, !prevLiked, optimisticCount(prevLiked, prevCount))
	state.mu.Unlock()
	f.notify(postID)

	result, err := f.client.ToggleLike(ctx, postID)
	if err != nil {
		if ierrors.Is(err, ierrors.ErrAuthentication) {
			return errors.Wrap(err, "[Feed.ToggleLike]")
		}
		state.mu.Lock()
		f.applyLike(postID, state, prevLiked, prevCount)
		state.mu.Unlock()
		f.notify(postID)
		return errors.Wrap(err, "[Feed.ToggleLike]")
	}

	state.mu.Lock()
	f.applyLike(postID, state, result.Liked, result.LikeCount)
	state.mu.Unlock()
	f.notify(postID)
	return nil
}

// AddComment inserts a pending placeholder, then reconciles: the server's
// record replaces the placeholder in place on success; any failure
// removes it and reverses the count.
func (f *Feed) AddComment(ctx context.Context, postID, text, username string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ierrors.Wrapf(ierrors.ErrValidation, "comment text is required")
	}
	state, err := f.post(postID)
	if err != nil {
		return err
	}

	tempID := uuid.NewString()
	state.mu.Lock()
	state.comments = append(state.comments, Comment{
		Comment: posts.Comment{ID: tempID, PostID: postID, Username: username, Text: text},
		Pending: true,
	})
	f.setCommentCount(postID, len(state.comments))
	state.mu.Unlock()
	f.notify(postID)

	confirmed, err := f.client.AddComment(ctx, postID, text)
	if err != nil {
		state.mu.Lock()
		state.comments = removeComment(state.comments, tempID)
		f.setCommentCount(postID, len(state.comments))
		state.mu.Unlock()
		f.notify(postID)
		return errors.Wrap(err, "[Feed.AddComment]")
	}

	state.mu.Lock()
	for i := range state.comments {
		if state.comments[i].ID == tempID {
			state.comments[i] = Comment{Comment: *confirmed}
			break
		}
	}
	state.mu.Unlock()
	f.notify(postID)
	return nil
}

func (f *Feed) post(postID string) (*postState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.posts[postID]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownPost, "[Feed.post] %s", postID)
	}
	return state, nil
}

// applyLike requires the post's state.mu held. Views are read under
// f.mu, so the write happens there too.
func (f *Feed) applyLike(_ string, state *postState, liked bool, count int) {
	f.mu.Lock()
	state.view.LikedByMe = liked
	state.view.LikeCount = count
	f.mu.Unlock()
}

// setCommentCount requires the post's state.mu held.
func (f *Feed) setCommentCount(postID string, count int) {
	f.mu.Lock()
	if state, ok := f.posts[postID]; ok {
		state.view.CommentCount = count
	}
	f.mu.Unlock()
}

func optimisticCount(wasLiked bool, count int) int {
	if wasLiked {
		if count > 0 {
			return count - 1
		}
		return 0
	}
	return count + 1
}

func removeComment(comments []Comment, id string) []Comment {
	out := comments[:0]
	for _, c := range comments {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}
