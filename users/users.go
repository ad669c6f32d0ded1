package users

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-blog-server/credential"
)

// User is a stored account. The server exclusively owns this record; the
// authoritative role lives here, not in any issued credential.
type User struct {
	ID           string          `json:"id,omitempty"`       // Unique identifier for the user
	Username     string          `json:"username,omitempty"` // Unique username (case-sensitive)
	PasswordHash string          `json:"-"`                  // Hashed version of the user's password - never serialize
	Role         credential.Role `json:"role,omitempty"`     // Authorization role (user or admin)
	DateJoined   time.Time       `json:"date_joined,omitempty"`
}

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

// ValidateUsername checks registration username requirements. The username
// is compared case-sensitively everywhere, so no normalisation beyond
// trimming happens here.
func ValidateUsername(username string) error {
	if len(strings.TrimSpace(username)) < MinUsernameLength {
		return ErrUsernameTooShort
	}
	return nil
}

// ValidatePassword checks registration password requirements.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash verifies a password against its stored hash. The bcrypt
// comparison is the only timing signal allowed to distinguish outcomes.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Claim builds the identity claim this account asserts at issuance time.
func (u *User) Claim() credential.Claim {
	return credential.Claim{
		SubjectID: u.ID,
		Username:  u.Username,
		Role:      u.Role,
	}
}

// IsElevated returns true if the user holds the elevated role
func (u *User) IsElevated() bool {
	return u.Role == credential.RoleElevated
}
