package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BranchID returns the caller's branch from the JWT claims. It is uuid.Nil
// when the token carries no usable branch; services reject that with
// service.ErrBranchMissing.
func BranchID(c *gin.Context) uuid.UUID {
	claims := GetClaims(c)
	if claims == nil {
		return uuid.Nil
	}
	return claims.Branch()
}

// ActorID returns the caller's user id from the JWT claims.
func ActorID(c *gin.Context) string {
	claims := GetClaims(c)
	if claims == nil {
		return ""
	}
	return claims.UserID
}
