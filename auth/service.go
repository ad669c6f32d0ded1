// Package auth implements the credential store: account registration,
// username/password authentication, and identity re-sync against the
// authoritative user store.
package auth

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-blog-server/credential"
	"github.com/jrsteele09/go-blog-server/users"
)

// Identity is the result of a successful login, signup, or refresh:
// the verified claim plus a freshly issued credential asserting it.
type Identity struct {
	Claim credential.Claim
	Token string
}

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users users.UserRepo
}

// Service issues credentials against the account store and re-derives
// identity from presented credentials.
type Service struct {
	repos   Repos
	codec   *credential.Codec
	nowTime func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// NewService initializes a new Service with required dependencies.
func NewService(repos Repos, codec *credential.Codec, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if codec == nil {
		return nil, errors.New("[NewService] credential codec is required")
	}

	service := &Service{
		repos:   repos,
		codec:   codec,
		nowTime: time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Register creates a new account with the default standard role and issues
// its first credential. The raw password is hashed immediately and never
// stored or logged.
func (s *Service) Register(username, password string) (*Identity, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	username = strings.TrimSpace(username)
	if err := users.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := users.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] HashPassword")
	}

	user := &users.User{
		Username:     username,
		PasswordHash: hash,
		Role:         credential.RoleStandard,
		DateJoined:   s.nowTime(),
	}
	if err := s.repos.Users.Create(user); err != nil {
		if errors.Is(err, users.ErrUsernameTaken) {
			return nil, users.ErrUsernameTaken
		}
		return nil, errors.Wrap(err, "[Service.Register] Users.Create")
	}

	return s.issueFor(user)
}

// Authenticate checks a username/password pair and issues a credential.
// Unknown usernames and wrong passwords fail identically with
// ErrInvalidLogin.
func (s *Service) Authenticate(username, password string) (*Identity, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.repos.Users.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, ErrInvalidLogin
	}

	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidLogin
	}

	return s.issueFor(user)
}

// CurrentIdentity verifies the credential and then re-reads the account so
// the returned claim carries the authoritative role, not the role frozen
// into the token at issuance. Role changes propagate through here without
// waiting for token expiry.
func (s *Service) CurrentIdentity(token string) (credential.Claim, error) {
	claim, err := s.codec.Verify(token)
	if err != nil {
		return credential.Claim{}, credential.ErrInvalidCredential
	}

	user, err := s.repos.Users.GetByID(claim.SubjectID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return credential.Claim{}, users.ErrNotFound
		}
		return credential.Claim{}, errors.Wrap(err, "[Service.CurrentIdentity] Users.GetByID")
	}

	return user.Claim(), nil
}

// Refresh verifies the presented credential and issues a fresh one carrying
// the account's current role.
func (s *Service) Refresh(token string) (*Identity, error) {
	claim, err := s.CurrentIdentity(token)
	if err != nil {
		return nil, err
	}

	fresh, err := s.codec.Issue(claim)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh] codec.Issue")
	}
	return &Identity{Claim: claim, Token: fresh}, nil
}

func (s *Service) issueFor(user *users.User) (*Identity, error) {
	claim := user.Claim()
	token, err := s.codec.Issue(claim)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.issueFor] codec.Issue")
	}
	return &Identity{Claim: claim, Token: token}, nil
}
