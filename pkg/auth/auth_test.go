package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arnavshah/rota-matcher/internal/config"
	"github.com/arnavshah/rota-matcher/pkg/database"
)

func newTestAuth() *Authenticator {
	a := New(config.AuthConfig{JWTSecret: "jwt-secret", MasterSecret: "master-secret"})
	a.Cost = bcrypt.MinCost
	return a
}

func TestHMACKey(t *testing.T) {
	a := newTestAuth()

	key := a.GenerateHMACKey("kitchen")
	userID, err := a.VerifyHMACKey(key)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", userID)

	_, err = a.VerifyHMACKey("kitchen")
	assert.ErrorIs(t, err, ErrInvalidKeyFormat)

	_, err = a.VerifyHMACKey("kitchen.a.b")
	assert.ErrorIs(t, err, ErrInvalidKeyFormat)

	_, err = a.VerifyHMACKey("kitchen.deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	other := New(config.AuthConfig{MasterSecret: "another"})
	_, err = other.VerifyHMACKey(key)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestNewAPIKey(t *testing.T) {
	a := newTestAuth()

	key, err := a.NewAPIKey("front-desk")
	require.NoError(t, err)
	assert.Equal(t, a.GenerateHMACKey("front-desk"), key)

	_, err = a.NewAPIKey("")
	assert.ErrorIs(t, err, ErrInvalidKeyFormat)
	_, err = a.NewAPIKey("front.desk")
	assert.ErrorIs(t, err, ErrInvalidKeyFormat)
}

func TestToken(t *testing.T) {
	a := newTestAuth()

	token, err := a.CreateToken("admin")
	require.NoError(t, err)

	claims, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	other := New(config.AuthConfig{JWTSecret: "different"})
	_, err = other.VerifyToken(token)
	assert.Error(t, err)

	a.TokenTTL = -time.Minute
	expired, err := a.CreateToken("admin")
	require.NoError(t, err)
	_, err = a.VerifyToken(expired)
	assert.Error(t, err)
}

func TestEnsureAdminAndLogin(t *testing.T) {
	db, err := database.Open(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "auth.db")})
	require.NoError(t, err)
	a := newTestAuth()

	require.NoError(t, a.EnsureAdminExists(db, "admin", "secret"))
	// A second call leaves the existing admin alone.
	require.NoError(t, a.EnsureAdminExists(db, "other", "other"))

	var count int64
	db.Model(&database.MasterUser{}).Count(&count)
	assert.Equal(t, int64(1), count)

	token, err := a.Login(db, "admin", "secret")
	require.NoError(t, err)
	claims, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	_, err = a.Login(db, "admin", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = a.Login(db, "nobody", "secret")
	assert.ErrorIs(t, err, ErrBadCredentials)
}
