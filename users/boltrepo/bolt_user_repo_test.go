package boltuserrepo_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/jrsteele09/go-blog-server/credential"
	"github.com/jrsteele09/go-blog-server/users"
	boltuserrepo "github.com/jrsteele09/go-blog-server/users/boltrepo"
)

func setupRepo(t *testing.T) *boltuserrepo.Repo {
	t.Helper()

	db, err := bbolt.Open(filepath.Join(t.TempDir(), "users.db"), 0o600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := boltuserrepo.New(db)
	require.NoError(t, err)
	return repo
}

func TestCreateAndLookup(t *testing.T) {
	repo := setupRepo(t)

	user := &users.User{Username: "ada", PasswordHash: "hashed", Role: credential.RoleStandard}
	require.NoError(t, repo.Create(user))
	require.NotEmpty(t, user.ID)

	byName, err := repo.GetByUsername("ada")
	require.NoError(t, err)
	require.Equal(t, user.ID, byName.ID)
	require.Equal(t, "hashed", byName.PasswordHash)

	byID, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	require.Equal(t, "ada", byID.Username)
}

func TestCreate_DuplicateUsername(t *testing.T) {
	repo := setupRepo(t)

	require.NoError(t, repo.Create(&users.User{Username: "ada", PasswordHash: "h1"}))
	err := repo.Create(&users.User{Username: "ada", PasswordHash: "h2"})
	require.ErrorIs(t, err, users.ErrUsernameTaken)
}

func TestLookup_CaseSensitive(t *testing.T) {
	repo := setupRepo(t)

	require.NoError(t, repo.Create(&users.User{Username: "Ada", PasswordHash: "h"}))

	_, err := repo.GetByUsername("ada")
	require.ErrorIs(t, err, users.ErrNotFound)
}

func TestLookup_Missing(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetByUsername("nobody")
	require.ErrorIs(t, err, users.ErrNotFound)

	_, err = repo.GetByID("missing-id")
	require.ErrorIs(t, err, users.ErrNotFound)
}

func TestSetRole(t *testing.T) {
	repo := setupRepo(t)

	user := &users.User{Username: "ada", PasswordHash: "h", Role: credential.RoleStandard}
	require.NoError(t, repo.Create(user))

	require.NoError(t, repo.SetRole(user.ID, credential.RoleElevated))

	stored, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	require.Equal(t, credential.RoleElevated, stored.Role)

	require.ErrorIs(t, repo.SetRole("missing", credential.RoleElevated), users.ErrNotFound)
}
