package posts

import "errors"

var ErrPostNotFound = errors.New("post not found")

type Repo interface {
	// List returns all posts, newest first.
	List() ([]*Post, error)
	Get(id string) (*Post, error)
	Create(post *Post) error
	Delete(id string) error

	// ToggleLike flips the like state of (userID, postID) as a single
	// conditional update and returns the resulting authoritative state.
	ToggleLike(postID, userID string) (LikeResult, error)

	// Comments returns a post's comments, oldest first.
	Comments(postID string) ([]*Comment, error)
	AddComment(comment *Comment) error
	CommentCount(postID string) (int, error)
}
