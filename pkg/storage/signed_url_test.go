package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("user-1", "user-1/proof.png")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	owner, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "user-1", owner)
	require.Equal(t, "user-1/proof.png", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("user-1", "user-1/proof.png")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 1100)

	_, _, _, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	owner, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "user-1", owner)
	require.Equal(t, "user-1/proof.png", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("user-1", "user-1/proof.png")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, _, _, err = signer.Parse("user-2"+token[len("user-1"):], false)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, _, _, err = signer.Parse("garbage", false)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLocalStorageRoundTripAndTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("user-1/a.png", []byte("png"))
	require.NoError(t, err)
	file, err := store.Open(name)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	_, err = store.Save("../escape.png", []byte("x"))
	require.ErrorIs(t, err, ErrInvalidPath)
	_, err = store.Open("/etc/passwd")
	require.ErrorIs(t, err, ErrInvalidPath)
	require.NoError(t, store.Delete("user-1/a.png"))
}
