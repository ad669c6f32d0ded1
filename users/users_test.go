package users_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-blog-server/credential"
	"github.com/jrsteele09/go-blog-server/users"
)

func TestValidateUsername(t *testing.T) {
	require.NoError(t, users.ValidateUsername("ada"))
	require.NoError(t, users.ValidateUsername("grace_hopper"))
	require.ErrorIs(t, users.ValidateUsername("ab"), users.ErrUsernameTooShort)
	require.ErrorIs(t, users.ValidateUsername("  a  "), users.ErrUsernameTooShort)
	require.ErrorIs(t, users.ValidateUsername(""), users.ErrUsernameTooShort)
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, users.ValidatePassword("secret1"))
	require.ErrorIs(t, users.ValidatePassword("12345"), users.ErrPasswordTooShort)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := users.HashPassword("secret1")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", hash)

	require.True(t, users.CheckPasswordHash("secret1", hash))
	require.False(t, users.CheckPasswordHash("secret2", hash))
	require.False(t, users.CheckPasswordHash("secret1", "not-a-hash"))
}

func TestUserClaim(t *testing.T) {
	user := &users.User{ID: "user-1", Username: "ada", Role: credential.RoleElevated}
	claim := user.Claim()
	require.Equal(t, "user-1", claim.SubjectID)
	require.Equal(t, "ada", claim.Username)
	require.True(t, claim.Elevated())
	require.True(t, user.IsElevated())

	standard := &users.User{ID: "user-2", Username: "bob", Role: credential.RoleStandard}
	require.False(t, standard.IsElevated())
}
