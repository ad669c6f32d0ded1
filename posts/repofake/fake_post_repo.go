package fakepostrepo

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-blog-server/posts"
)

var _ posts.Repo = (*FakePostRepo)(nil)

type FakePostRepo struct {
	posts    map[string]*posts.Post
	comments map[string][]*posts.Comment // postID -> comments, oldest first
	lock     sync.RWMutex
}

func NewFakePostRepo() *FakePostRepo {
	return &FakePostRepo{
		posts:    make(map[string]*posts.Post),
		comments: make(map[string][]*posts.Comment),
	}
}

func (pr *FakePostRepo) List() ([]*posts.Post, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	list := make([]*posts.Post, 0, len(pr.posts))
	for _, p := range pr.posts {
		copied := clonePost(p)
		list = append(list, copied)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (pr *FakePostRepo) Get(id string) (*posts.Post, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	post, ok := pr.posts[id]
	if !ok {
		return nil, posts.ErrPostNotFound
	}
	return clonePost(post), nil
}

func (pr *FakePostRepo) Create(post *posts.Post) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	pr.posts[post.ID] = clonePost(post)
	return nil
}

func (pr *FakePostRepo) Delete(id string) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	if _, ok := pr.posts[id]; !ok {
		return posts.ErrPostNotFound
	}
	delete(pr.posts, id)
	delete(pr.comments, id)
	return nil
}

func (pr *FakePostRepo) ToggleLike(postID, userID string) (posts.LikeResult, error) {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	post, ok := pr.posts[postID]
	if !ok {
		return posts.LikeResult{}, posts.ErrPostNotFound
	}

	liked := true
	likedBy := make([]string, 0, len(post.LikedBy)+1)
	for _, id := range post.LikedBy {
		if id == userID {
			liked = false
			continue
		}
		likedBy = append(likedBy, id)
	}
	if liked {
		likedBy = append(likedBy, userID)
	}
	post.LikedBy = likedBy

	return posts.LikeResult{Liked: liked, LikeCount: len(likedBy)}, nil
}

func (pr *FakePostRepo) Comments(postID string) ([]*posts.Comment, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	if _, ok := pr.posts[postID]; !ok {
		return nil, posts.ErrPostNotFound
	}
	list := make([]*posts.Comment, 0, len(pr.comments[postID]))
	for _, c := range pr.comments[postID] {
		copied := *c
		list = append(list, &copied)
	}
	return list, nil
}

func (pr *FakePostRepo) AddComment(comment *posts.Comment) error {
	pr.lock.Lock()
	defer pr.lock.Unlock()

	if _, ok := pr.posts[comment.PostID]; !ok {
		return posts.ErrPostNotFound
	}
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	copied := *comment
	pr.comments[comment.PostID] = append(pr.comments[comment.PostID], &copied)
	return nil
}

func (pr *FakePostRepo) CommentCount(postID string) (int, error) {
	pr.lock.RLock()
	defer pr.lock.RUnlock()

	return len(pr.comments[postID]), nil
}

func clonePost(p *posts.Post) *posts.Post {
	copied := *p
	copied.LikedBy = append([]string(nil), p.LikedBy...)
	return &copied
}
