package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/universys/universyslite/internal/app/models"
)

func newTestService(now time.Time) *JWTService {
	s := NewJWTService(JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "universys-test",
	})
	s.now = func() time.Time { return now }
	return s
}

func TestGenerateAndValidateToken(t *testing.T) {
	now := time.Now()
	s := newTestService(now)
	user := &models.User{ID: 42, Email: "reg@universys.edu", RoleType: models.RoleRegistrar}

	pair, err := s.GenerateTokenPair(user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Len(t, pair.RefreshToken, 36)
	assert.EqualValues(t, 3600, pair.ExpiresIn)
	assert.True(t, pair.RefreshExpiresAt.Equal(now.Add(24*time.Hour)))

	claims, err := s.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{UserID: 42, Role: models.RoleRegistrar}, claims.Actor())
	assert.Equal(t, "reg@universys.edu", claims.Email)
}

func TestValidateTokenExpired(t *testing.T) {
	issued := time.Now().Add(-3 * time.Hour)
	pair, err := newTestService(issued).GenerateTokenPair(&models.User{ID: 1, Email: "a@b.c", RoleType: models.RoleStudent})
	require.NoError(t, err)

	_, err = newTestService(time.Now()).ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongSecretOrIssuer(t *testing.T) {
	pair, err := newTestService(time.Now()).GenerateTokenPair(&models.User{ID: 1, Email: "a@b.c", RoleType: models.RoleStudent})
	require.NoError(t, err)

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "universys-test"})
	_, err = other.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherIssuer := NewJWTService(JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "elsewhere"})
	_, err = otherIssuer.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = other.ValidateToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = ExtractBearerToken("bearer xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer ", "Basic abc", "abc.def"} {
		_, err := ExtractBearerToken(h)
		assert.ErrorIs(t, err, ErrInvalidFormat, h)
	}
}

func TestPasswordHashing(t *testing.T) {
	old := BcryptCost
	BcryptCost = bcrypt.MinCost
	t.Cleanup(func() { BcryptCost = old })

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
}
