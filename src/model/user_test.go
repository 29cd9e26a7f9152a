package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserPasswordRoundTrip(t *testing.T) {
	u := &User{Email: "alice@example.com"}
	require.NoError(t, u.SetPassword("s3cret"))
	require.NotEmpty(t, u.HashedPassword)
	require.NotEqual(t, "s3cret", u.HashedPassword)

	require.True(t, u.CheckPassword("s3cret"))
	require.False(t, u.CheckPassword("wrong"))
	require.False(t, u.CheckPassword(""))
}

func TestUserBeforeCreateAssignsID(t *testing.T) {
	u := &User{Email: "alice@example.com"}
	require.NoError(t, u.BeforeCreate(nil))
	require.Len(t, u.UserID, 36)

	keep := &User{UserID: "fixed-id", Email: "bob@example.com"}
	require.NoError(t, keep.BeforeCreate(nil))
	require.Equal(t, "fixed-id", keep.UserID)
}
