// Package boltpostrepo provides a BBolt-backed post and comment repository.
// Like toggles and comment appends run inside single bbolt update
// transactions, which is all the atomicity the records require.
package boltpostrepo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/jrsteele09/go-blog-server/posts"
)

var (
	postsBucket    = []byte("posts")
	commentsBucket = []byte("comments")
)

var _ posts.Repo = (*Repo)(nil)

// Repo implements posts.Repo backed by a BBolt database.
type Repo struct {
	db *bbolt.DB
}

// New returns a Repo backed by the given BBolt database.
func New(db *bbolt.DB) (*Repo, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(postsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(commentsBucket)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "[boltpostrepo.New] creating buckets")
	}
	return &Repo{db: db}, nil
}

func (r *Repo) List() ([]*posts.Post, error) {
	var list []*posts.Post
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(postsBucket).ForEach(func(_, v []byte) error {
			var post posts.Post
			if err := json.Unmarshal(v, &post); err != nil {
				return errors.Wrap(err, "[Repo.List] unmarshal post")
			}
			list = append(list, &post)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (r *Repo) Get(id string) (*posts.Post, error) {
	var post posts.Post
	err := r.db.View(func(tx *bbolt.Tx) error {
		return getPost(tx, id, &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *Repo) Create(post *posts.Post) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		return putPost(tx, post)
	})
}

func (r *Repo) Delete(id string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(postsBucket)
		if b.Get([]byte(id)) == nil {
			return posts.ErrPostNotFound
		}
		if err := b.Delete([]byte(id)); err != nil {
			return err
		}

		// Drop the post's comments as well.
		c := tx.Bucket(commentsBucket).Cursor()
		prefix := commentKeyPrefix(id)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) ToggleLike(postID, userID string) (posts.LikeResult, error) {
	var result posts.LikeResult
	err := r.db.Update(func(tx *bbolt.Tx) error {
		var post posts.Post
		if err := getPost(tx, postID, &post); err != nil {
			return err
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

		if err := putPost(tx, &post); err != nil {
			return err
		}
		result = posts.LikeResult{Liked: liked, LikeCount: len(likedBy)}
		return nil
	})
	if err != nil {
		return posts.LikeResult{}, err
	}
	return result, nil
}

func (r *Repo) Comments(postID string) ([]*posts.Comment, error) {
	list := make([]*posts.Comment, 0)
	err := r.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(postsBucket).Get([]byte(postID)) == nil {
			return posts.ErrPostNotFound
		}
		c := tx.Bucket(commentsBucket).Cursor()
		prefix := commentKeyPrefix(postID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var comment posts.Comment
			if err := json.Unmarshal(v, &comment); err != nil {
				return errors.Wrap(err, "[Repo.Comments] unmarshal comment")
			}
			list = append(list, &comment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *Repo) AddComment(comment *posts.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(postsBucket).Get([]byte(comment.PostID)) == nil {
			return posts.ErrPostNotFound
		}
		b := tx.Bucket(commentsBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(comment)
		if err != nil {
			return errors.Wrap(err, "[Repo.AddComment] marshal comment")
		}
		// Sequence in the key keeps cursor order equal to insertion order.
		key := fmt.Sprintf("%s:%020d", comment.PostID, seq)
		return b.Put([]byte(key), data)
	})
}

func (r *Repo) CommentCount(postID string) (int, error) {
	count := 0
	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(commentsBucket).Cursor()
		prefix := commentKeyPrefix(postID)
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func getPost(tx *bbolt.Tx, id string, post *posts.Post) error {
	data := tx.Bucket(postsBucket).Get([]byte(id))
	if data == nil {
		return posts.ErrPostNotFound
	}
	if err := json.Unmarshal(data, post); err != nil {
		return errors.Wrap(err, "[boltpostrepo] unmarshal post")
	}
	return nil
}

func putPost(tx *bbolt.Tx, post *posts.Post) error {
	data, err := json.Marshal(post)
	if err != nil {
		return errors.Wrap(err, "[boltpostrepo] marshal post")
	}
	return tx.Bucket(postsBucket).Put([]byte(post.ID), data)
}

func commentKeyPrefix(postID string) []byte {
	return []byte(postID + ":")
}
