package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-blog-server/auth"
	"github.com/jrsteele09/go-blog-server/credential"
	"github.com/jrsteele09/go-blog-server/users"
	fakeuserrepo "github.com/jrsteele09/go-blog-server/users/repofake"
)

const (
	testSecret   = "test-signing-secret"
	testUsername = "ada"
	testPassword = "secret1"
)

// testFixture holds all test dependencies
type testFixture struct {
	userRepo *fakeuserrepo.FakeUserRepo
	codec    *credential.Codec
	service  *auth.Service
}

// setupTestFixture creates a new test fixture with all dependencies
func setupTestFixture(t *testing.T, codecOptions ...credential.CodecOption) *testFixture {
	t.Helper()

	userRepo := fakeuserrepo.NewFakeUserRepo()
	codec, err := credential.NewCodec(testSecret, codecOptions...)
	require.NoError(t, err)

	service, err := auth.NewService(auth.Repos{Users: userRepo}, codec)
	require.NoError(t, err)

	return &testFixture{
		userRepo: userRepo,
		codec:    codec,
		service:  service,
	}
}

func (f *testFixture) registerTestUser(t *testing.T) *auth.Identity {
	t.Helper()
	identity, err := f.service.Register(testUsername, testPassword)
	require.NoError(t, err)
	return identity
}

func TestRegister_Success(t *testing.T) {
	f := setupTestFixture(t)

	identity := f.registerTestUser(t)
	require.Equal(t, testUsername, identity.Claim.Username)
	require.Equal(t, credential.RoleStandard, identity.Claim.Role)
	require.NotEmpty(t, identity.Token)

	claim, err := f.codec.Verify(identity.Token)
	require.NoError(t, err)
	require.Equal(t, identity.Claim, claim)

	stored, err := f.userRepo.GetByUsername(testUsername)
	require.NoError(t, err)
	require.NotEqual(t, testPassword, stored.PasswordHash)
}

func TestRegister_TrimsUsername(t *testing.T) {
	f := setupTestFixture(t)

	identity, err := f.service.Register("  ada  ", testPassword)
	require.NoError(t, err)
	require.Equal(t, "ada", identity.Claim.Username)
}

func TestRegister_Validation(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Register("", "")
	require.ErrorIs(t, err, auth.ErrMissingFields)

	_, err = f.service.Register("ab", testPassword)
	require.ErrorIs(t, err, users.ErrUsernameTooShort)

	_, err = f.service.Register(testUsername, "12345")
	require.ErrorIs(t, err, users.ErrPasswordTooShort)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	f := setupTestFixture(t)
	f.registerTestUser(t)

	_, err := f.service.Register(testUsername, "anotherpassword")
	require.ErrorIs(t, err, users.ErrUsernameTaken)
}

func TestAuthenticate_Success(t *testing.T) {
	f := setupTestFixture(t)
	f.registerTestUser(t)

	identity, err := f.service.Authenticate(testUsername, testPassword)
	require.NoError(t, err)
	require.Equal(t, testUsername, identity.Claim.Username)

	_, err = f.codec.Verify(identity.Token)
	require.NoError(t, err)
}

func TestAuthenticate_UniformFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.registerTestUser(t)

	_, wrongPassword := f.service.Authenticate(testUsername, "wrong-password")
	_, unknownUser := f.service.Authenticate("nobody", testPassword)

	// Unknown usernames and wrong passwords must be indistinguishable.
	require.ErrorIs(t, wrongPassword, auth.ErrInvalidLogin)
	require.ErrorIs(t, unknownUser, auth.ErrInvalidLogin)
	require.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestCurrentIdentity_ResyncsRole(t *testing.T) {
	f := setupTestFixture(t)
	identity := f.registerTestUser(t)

	claim, err := f.service.CurrentIdentity(identity.Token)
	require.NoError(t, err)
	require.Equal(t, credential.RoleStandard, claim.Role)

	// A role change takes effect on the next lookup, not at token expiry.
	require.NoError(t, f.userRepo.SetRole(identity.Claim.SubjectID, credential.RoleElevated))

	claim, err = f.service.CurrentIdentity(identity.Token)
	require.NoError(t, err)
	require.Equal(t, credential.RoleElevated, claim.Role)
}

func TestCurrentIdentity_InvalidToken(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.CurrentIdentity("not-a-token")
	require.ErrorIs(t, err, credential.ErrInvalidCredential)
}

func TestCurrentIdentity_DeletedAccount(t *testing.T) {
	f := setupTestFixture(t)

	// A valid credential for an account the store no longer has.
	orphan, err := f.codec.Issue(credential.Claim{
		SubjectID: "gone", Username: "ghost", Role: credential.RoleStandard,
	})
	require.NoError(t, err)

	_, err = f.service.CurrentIdentity(orphan)
	require.ErrorIs(t, err, users.ErrNotFound)
}

func TestRefresh_CarriesCurrentRole(t *testing.T) {
	f := setupTestFixture(t)
	identity := f.registerTestUser(t)

	require.NoError(t, f.userRepo.SetRole(identity.Claim.SubjectID, credential.RoleElevated))

	refreshed, err := f.service.Refresh(identity.Token)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.Token)
	require.Equal(t, credential.RoleElevated, refreshed.Claim.Role)

	claim, err := f.codec.Verify(refreshed.Token)
	require.NoError(t, err)
	require.Equal(t, credential.RoleElevated, claim.Role)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	f := setupTestFixture(t, credential.WithNowTime(func() time.Time { return issuedAt }))
	identity := f.registerTestUser(t)

	// The codec's clock moves back to real time; the token is now stale.
	fresh := setupTestFixture(t)
	_, err := fresh.service.Refresh(identity.Token)
	require.ErrorIs(t, err, credential.ErrInvalidCredential)
}
