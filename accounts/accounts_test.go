package accounts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	a := New()
	user, sk, err := a.Register("alice", "pw_alice_long")
	require.NoError(t, err)
	require.NotNil(t, sk)
	require.Equal(t, "alice", user.Username)

	got, gotSK, err := a.Authenticate("alice", "pw_alice_long")
	require.NoError(t, err)
	require.Equal(t, user.Username, got.Username)
	require.Equal(t, sk.D, gotSK.D)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	a := New()
	_, _, err := a.Register("bob", "pw_bob_long")
	require.NoError(t, err)
	_, _, err = a.Register("bob", "something-else")
	require.ErrorIs(t, err, ErrDuplicateUser)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	a := New()
	_, _, err := a.Register("carol", "pw_carol_long")
	require.NoError(t, err)

	_, _, err = a.Authenticate("carol", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	a := New()
	_, _, err := a.Authenticate("nobody", "whatever")
	require.ErrorIs(t, err, ErrUnknownUser)
}

func TestExportImportRoundTrip(t *testing.T) {
	a := New()
	_, _, err := a.Register("dave", "pw_dave_long")
	require.NoError(t, err)

	a2 := Import(a.Export())
	require.True(t, a2.Has("dave"))
}
