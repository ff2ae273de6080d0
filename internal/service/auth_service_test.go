package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/sekolah-backend/internal/config"
	"github.com/stemsi/sekolah-backend/internal/model"
	"github.com/stemsi/sekolah-backend/internal/service"
)

func TestAuthServiceRoundTrip(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour})
	branch := uuid.New()

	token, err := auth.GenerateToken("user-7", branch, model.RoleTeacher)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.UserID)
	assert.Equal(t, branch, claims.Branch())
	assert.Equal(t, model.RoleTeacher, claims.Role)
}

func TestAuthServiceRejects(t *testing.T) {
	auth := service.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour})

	t.Run("wrong secret", func(t *testing.T) {
		other := service.NewAuthService(&config.Config{JWTSecret: "other", JWTExpiry: time.Hour})
		token, err := other.GenerateToken("u", uuid.New(), model.RoleAdmin)
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired := service.NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: -time.Minute})
		token, err := expired.GenerateToken("u", uuid.New(), model.RoleAdmin)
		require.NoError(t, err)
		_, err = auth.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("no branch claim", func(t *testing.T) {
		token, err := auth.GenerateToken("u", uuid.Nil, model.RoleAdmin)
		require.NoError(t, err)
		claims, err := auth.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, claims.Branch())
	})
}
