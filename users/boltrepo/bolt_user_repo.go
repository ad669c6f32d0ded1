// Package boltuserrepo provides a BBolt-backed user repository.
package boltuserrepo

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/jrsteele09/go-blog-server/credential"
	"github.com/jrsteele09/go-blog-server/users"
)

var (
	usersBucket     = []byte("users")
	usernamesBucket = []byte("usernames")
)

var _ users.UserRepo = (*Repo)(nil)

// Repo implements users.UserRepo backed by a BBolt database.
type Repo struct {
	db *bbolt.DB
}

// userRecord is the persisted form of a user. The password hash must be
// stored, so it cannot reuse users.User's JSON encoding which drops it.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	DateJoined   time.Time `json:"date_joined"`
}

// New returns a Repo backed by the given BBolt database.
func New(db *bbolt.DB) (*Repo, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(usersBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(usernamesBucket)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "[boltuserrepo.New] creating buckets")
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Create(user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		names := tx.Bucket(usernamesBucket)
		if names.Get([]byte(user.Username)) != nil {
			return users.ErrUsernameTaken
		}

		data, err := json.Marshal(toRecord(user))
		if err != nil {
			return errors.Wrap(err, "[Repo.Create] marshal user")
		}
		if err := tx.Bucket(usersBucket).Put([]byte(user.ID), data); err != nil {
			return err
		}
		return names.Put([]byte(user.Username), []byte(user.ID))
	})
}

func (r *Repo) GetByUsername(username string) (*users.User, error) {
	var user *users.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(usernamesBucket).Get([]byte(username))
		if id == nil {
			return users.ErrNotFound
		}
		var err error
		user, err = getByID(tx, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repo) GetByID(id string) (*users.User, error) {
	var user *users.User
	err := r.db.View(func(tx *bbolt.Tx) error {
		var err error
		user, err = getByID(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repo) SetRole(id string, role credential.Role) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		user, err := getByID(tx, id)
		if err != nil {
			return err
		}
		user.Role = role
		data, err := json.Marshal(toRecord(user))
		if err != nil {
			return errors.Wrap(err, "[Repo.SetRole] marshal user")
		}
		return tx.Bucket(usersBucket).Put([]byte(id), data)
	})
}

func getByID(tx *bbolt.Tx, id string) (*users.User, error) {
	data := tx.Bucket(usersBucket).Get([]byte(id))
	if data == nil {
		return nil, users.ErrNotFound
	}
	var record userRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrap(err, "[boltuserrepo] unmarshal user")
	}
	return fromRecord(&record), nil
}

func toRecord(u *users.User) *userRecord {
	return &userRecord{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		DateJoined:   u.DateJoined,
	}
}

func fromRecord(rec *userRecord) *users.User {
	return &users.User{
		ID:           rec.ID,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		Role:         credential.ParseRole(rec.Role),
		DateJoined:   rec.DateJoined,
	}
}
