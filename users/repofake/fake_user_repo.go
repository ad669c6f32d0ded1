package fakeuserrepo

import (
	"sync"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-blog-server/credential"
	"github.com/jrsteele09/go-blog-server/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[string]*users.User
	usernameIds map[string]string // username to user id
	lock        sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[string]*users.User),
		usernameIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Create(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.usernameIds[user.Username]; ok {
		return users.ErrUsernameTaken
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	copied := *user
	ur.users[user.ID] = &copied
	ur.usernameIds[user.Username] = user.ID
	return nil
}

func (ur *FakeUserRepo) GetByUsername(username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.usernameIds[username]
	if !ok {
		return nil, users.ErrNotFound
	}
	copied := *ur.users[id]
	return &copied, nil
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (ur *FakeUserRepo) SetRole(id string, role credential.Role) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	user, ok := ur.users[id]
	if !ok {
		return users.ErrNotFound
	}
	user.Role = role
	return nil
}
